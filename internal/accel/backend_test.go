package accel

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/mmr-tortoise/volsynth/internal/model"
	"github.com/mmr-tortoise/volsynth/internal/monitoring"
	"github.com/mmr-tortoise/volsynth/internal/spheres"
	"github.com/mmr-tortoise/volsynth/internal/volume"
)

var errEnqueue = errors.New("out of resources")

type fakeDriver struct {
	name      string
	platforms []Platform
}

func (d fakeDriver) Name() string                   { return d.name }
func (d fakeDriver) Platforms() ([]Platform, error) { return d.platforms, nil }

type fakePlatform struct{ devices []Device }

func (fakePlatform) Name() string                 { return "fake" }
func (p fakePlatform) Devices() ([]Device, error) { return p.devices, nil }

type fakeDevice struct {
	openErr     error
	failEnqueue bool
}

func (fakeDevice) Name() string      { return "fake" }
func (fakeDevice) ComputeUnits() int { return 1 }

func (d fakeDevice) Open(opts QueueOptions) (Queue, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	q, err := hostDevice{}.Open(opts)
	if err != nil {
		return nil, err
	}
	if d.failEnqueue {
		return failingQueue{q}, nil
	}
	return q, nil
}

// failingQueue is a working host queue whose kernel never launches.
type failingQueue struct{ Queue }

func (failingQueue) Enqueue(KernelArgs, int) (Event, error) { return nil, errEnqueue }

var registerFakes sync.Once

func useFakeDrivers() {
	registerFakes.Do(func() {
		Register(fakeDriver{name: "test-noplatform"})
		Register(fakeDriver{name: "test-nodevice", platforms: []Platform{fakePlatform{}}})
		Register(fakeDriver{name: "test-faulty", platforms: []Platform{fakePlatform{devices: []Device{
			fakeDevice{openErr: errors.New("context creation failed")},
			fakeDevice{failEnqueue: true},
		}}}})
	})
}

func testJob(t *testing.T, dims model.Dimensions, count int, seed uint64) volume.Job {
	t.Helper()
	cfg := model.Config{
		SphereCount:    count,
		MinRadius:      0.02,
		MaxRadius:      0.25,
		EmptyThreshold: 30,
		NoiseSpread:    10,
		Dims:           dims,
	}
	set, err := spheres.Generate(volume.NewRand(seed, volume.StreamSpheres), spheres.ParamsFromConfig(cfg))
	require.NoError(t, err)
	return volume.Job{Config: cfg, Spheres: set, Seed: seed}
}

// TestBackend_MaterialParity verifies that the accelerated backend assigns
// exactly the materials the scalar backend assigns, and that the density
// distributions agree.
func TestBackend_MaterialParity(t *testing.T) {
	job := testJob(t, model.Dimensions{X: 24, Y: 20, Z: 16}, 150, 42)

	want, err := volume.NewScalar().Run(context.Background(), job)
	require.NoError(t, err)
	got, err := NewBackend(DefaultSelector(), 4).Run(context.Background(), job)
	require.NoError(t, err)

	if diff := cmp.Diff(want.Material, got.Material); diff != "" {
		t.Errorf("material mismatch (-scalar +accel):\n%s", diff)
	}
	assert.Equal(t, want.Dims, got.Dims)
	assert.Equal(t, Name, got.Backend)
	assert.Equal(t, "host:0:0 (cpu)", got.Device)

	mean := func(d []uint8) float64 {
		xs := make([]float64, len(d))
		for i, v := range d {
			xs[i] = float64(v)
		}
		return stat.Mean(xs, nil)
	}
	assert.InDelta(t, mean(want.Density), mean(got.Density), 0.5)
}

// TestBackend_WorkerIndependence verifies that the worker count does not
// change either output array.
func TestBackend_WorkerIndependence(t *testing.T) {
	job := testJob(t, model.Dimensions{X: 40, Y: 30, Z: 20}, 80, 7)

	ref, err := NewBackend(DefaultSelector(), 1).Run(context.Background(), job)
	require.NoError(t, err)
	for _, workers := range []int{2, 3, 16, 0} {
		got, err := NewBackend(DefaultSelector(), workers).Run(context.Background(), job)
		require.NoError(t, err)
		if diff := cmp.Diff(ref.Density, got.Density); diff != "" {
			t.Errorf("workers=%d density differs:\n%s", workers, diff)
		}
		if diff := cmp.Diff(ref.Material, got.Material); diff != "" {
			t.Errorf("workers=%d material differs:\n%s", workers, diff)
		}
	}
}

// TestBackend_BlockStreams verifies that a grid smaller than one block draws
// its noise, in voxel order, from the first block stream.
func TestBackend_BlockStreams(t *testing.T) {
	job := testJob(t, model.Dimensions{X: 4, Y: 4, Z: 4}, 20, 3)
	got, err := (&Backend{}).Run(context.Background(), job)
	require.NoError(t, err)

	rng := volume.NewRand(job.Seed, volume.StreamBlockBase)
	flat := volume.Flatten(job.Spheres)
	for n := range got.Density {
		i, j, k := volume.VoxelCoords(n, job.Config.Dims)
		c := volume.ClassifyFlat(volume.PointFor(i, j, k, job.Config.Dims), flat, len(job.Spheres), 30)
		require.Equal(t, volume.Density(rng, c, 10), got.Density[n], "voxel %d", n)
	}
}

// TestBackend_CoveringSphere runs the 4x4x4 single covering sphere scenario
// on the accelerated backend.
func TestBackend_CoveringSphere(t *testing.T) {
	job := volume.Job{
		Config:  model.Config{EmptyThreshold: 30, NoiseSpread: 10, Dims: model.Dimensions{X: 4, Y: 4, Z: 4}},
		Spheres: model.SphereSet{{ID: 0, Origin: model.Vec3{X: 0.5, Y: 0.5, Z: 0.5}, Radius: 10, Density: 200}},
		Seed:    9,
	}
	vol, err := (&Backend{}).Run(context.Background(), job)
	require.NoError(t, err)
	for n := range vol.Material {
		assert.Equal(t, int32(0), vol.Material[n])
		assert.InDelta(t, 200, float64(vol.Density[n]), 20)
	}
}

// TestBackend_StateTrace verifies the transition sequence of a successful
// run and of a run whose kernel fails to launch.
func TestBackend_StateTrace(t *testing.T) {
	useFakeDrivers()
	job := testJob(t, model.Dimensions{X: 3, Y: 3, Z: 3}, 5, 1)

	var seen []State
	b := &Backend{Trace: func(_, to State) { seen = append(seen, to) }}
	_, err := b.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, []State{StateInitialized, StateBuffersUploaded, StateKernelDispatched, StateResultsReadBack, StateDone}, seen)

	seen = nil
	b.Selector = Selector{Driver: "test-faulty", Device: 1}
	_, err = b.Run(context.Background(), job)
	require.ErrorIs(t, err, errEnqueue)
	assert.False(t, IsInitError(err), "failures after setup are not init errors")
	assert.Equal(t, []State{StateInitialized, StateBuffersUploaded, StateFailed}, seen)
}

// TestBackend_InitErrors verifies that every device setup failure is an
// *InitError wrapping the right cause.
func TestBackend_InitErrors(t *testing.T) {
	useFakeDrivers()
	job := testJob(t, model.Dimensions{X: 2, Y: 2, Z: 2}, 0, 1)

	tests := []struct {
		name string
		sel  Selector
		want error
	}{
		{"unknown driver", Selector{Driver: "nope"}, ErrUnknownDriver},
		{"no platform", Selector{Driver: "test-noplatform"}, ErrNoPlatform},
		{"no device", Selector{Driver: "test-nodevice"}, ErrNoDevice},
		{"platform index out of range", Selector{Driver: "host", Platform: 1}, ErrNoPlatform},
		{"device index out of range", Selector{Driver: "host", Device: 5}, ErrNoDevice},
		{"open fails", Selector{Driver: "test-faulty"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen []State
			b := &Backend{Selector: tt.sel, Trace: func(_, to State) { seen = append(seen, to) }}
			_, err := b.Run(context.Background(), job)
			require.Error(t, err)
			assert.True(t, IsInitError(err))
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
			var ie *InitError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, tt.sel.String(), ie.Selector)
			assert.Equal(t, []State{StateFailed}, seen)
		})
	}
}

// TestBackend_FallbackToScalar verifies the auto backend composition: an
// unreachable device hands the job to the scalar backend.
func TestBackend_FallbackToScalar(t *testing.T) {
	prev := monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(prev) })

	job := testJob(t, model.Dimensions{X: 5, Y: 5, Z: 5}, 10, 11)
	f := &volume.Fallback{
		Primary:        NewBackend(Selector{Driver: "missing"}, 0),
		Secondary:      volume.NewScalar(),
		ShouldFallback: IsInitError,
	}
	vol, err := f.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, volume.ScalarName, vol.Backend)
}

// TestBackend_Canceled verifies that a canceled context stops the run before
// any device work.
func TestBackend_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Backend{}).Run(ctx, testJob(t, model.Dimensions{X: 2, Y: 2, Z: 2}, 1, 1))
	assert.ErrorIs(t, err, context.Canceled)
}

// TestListDevices verifies that the host device is always listed.
func TestListDevices(t *testing.T) {
	infos, err := ListDevices()
	require.NoError(t, err)
	assert.Contains(t, infos, DeviceInfo{
		Selector:     "host:0:0",
		Driver:       "host",
		Platform:     "goroutine pool",
		Device:       "cpu",
		ComputeUnits: hostDevice{}.ComputeUnits(),
	})
	assert.Contains(t, Drivers(), "host")
}
