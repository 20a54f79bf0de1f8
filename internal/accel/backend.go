package accel

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmr-tortoise/volsynth/internal/model"
	"github.com/mmr-tortoise/volsynth/internal/monitoring"
	"github.com/mmr-tortoise/volsynth/internal/volume"
)

// Name is the name the accelerated backend reports.
const Name = "accel"

// maxSpheres is the largest sphere count whose ids survive the float32
// sphere buffer exactly.
const maxSpheres = 1 << 24

// Backend runs jobs on an accelerator device. The zero value uses the
// default selector with one worker per CPU.
type Backend struct {
	// Selector picks the device. The zero value means DefaultSelector().
	Selector Selector

	// Workers is passed to the device queue.
	Workers int

	// Trace, if set, observes every state transition of a run.
	Trace func(from, to State)
}

// NewBackend returns a backend for sel.
func NewBackend(sel Selector, workers int) *Backend {
	return &Backend{Selector: sel, Workers: workers}
}

// Name implements volume.Backend.
func (b *Backend) Name() string {
	return Name
}

func (b *Backend) selector() Selector {
	if b.Selector.Driver == "" {
		return DefaultSelector()
	}
	return b.Selector
}

// Run implements volume.Backend. Device setup failures are *InitError;
// failures after setup are plain errors and leave the run in StateFailed.
func (b *Backend) Run(ctx context.Context, job volume.Job) (*model.Volume, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	if len(job.Spheres) > maxSpheres {
		return nil, fmt.Errorf("%d spheres exceed the device limit of %d", len(job.Spheres), maxSpheres)
	}

	m := &machine{trace: b.Trace}
	vol, err := b.run(ctx, m, job)
	if err != nil {
		m.fail()
		return nil, err
	}
	return vol, nil
}

func (b *Backend) run(ctx context.Context, m *machine, job volume.Job) (vol *model.Volume, err error) {
	sel := b.selector()
	dev, err := Acquire(sel)
	if err != nil {
		return nil, err
	}
	q, err := dev.Open(QueueOptions{Workers: b.Workers})
	if err != nil {
		return nil, &InitError{Selector: sel.String(), Err: fmt.Errorf("opening queue: %w", err)}
	}
	defer func() {
		if rerr := q.Release(); rerr != nil {
			monitoring.Warnf("releasing %s queue: %v", sel, rerr)
		}
	}()
	if err := m.advance(StateInitialized); err != nil {
		return nil, err
	}

	cfg := job.Config
	dims := cfg.Dims
	n := dims.Count()

	dimsBuf, err := q.WriteUint32([]uint32{uint32(dims.X), uint32(dims.Y), uint32(dims.Z)})
	if err != nil {
		return nil, fmt.Errorf("uploading dims: %w", err)
	}
	sphereBuf, err := q.WriteFloat32(volume.Flatten(job.Spheres))
	if err != nil {
		return nil, fmt.Errorf("uploading spheres: %w", err)
	}
	densityBuf, err := q.AllocUint32(n)
	if err != nil {
		return nil, fmt.Errorf("allocating density output: %w", err)
	}
	materialBuf, err := q.AllocInt32(n)
	if err != nil {
		return nil, fmt.Errorf("allocating material output: %w", err)
	}
	if err := m.advance(StateBuffersUploaded); err != nil {
		return nil, err
	}

	// Last chance to abandon the run; dispatched kernels always complete.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	kernelDone, err := q.Enqueue(KernelArgs{
		EmptyThreshold: cfg.EmptyThreshold,
		NoiseSpread:    cfg.NoiseSpread,
		SphereCount:    int32(len(job.Spheres)),
		Dims:           dimsBuf,
		Spheres:        sphereBuf,
		Density:        densityBuf,
		Material:       materialBuf,
		Seed:           job.Seed,
	}, n)
	if err != nil {
		return nil, fmt.Errorf("dispatching kernel: %w", err)
	}
	if err := m.advance(StateKernelDispatched); err != nil {
		return nil, err
	}
	if err := kernelDone.Wait(); err != nil {
		return nil, fmt.Errorf("kernel: %w", err)
	}

	vol = model.NewVolume(dims)
	density := make([]uint32, n)
	densityRead, err := q.ReadUint32(densityBuf, density, kernelDone)
	if err != nil {
		return nil, fmt.Errorf("reading density: %w", err)
	}
	materialRead, err := q.ReadInt32(materialBuf, vol.Material, kernelDone)
	if err != nil {
		_ = densityRead.Wait()
		return nil, fmt.Errorf("reading material: %w", err)
	}
	if err := errors.Join(densityRead.Wait(), materialRead.Wait()); err != nil {
		return nil, fmt.Errorf("reading results: %w", err)
	}
	if err := m.advance(StateResultsReadBack); err != nil {
		return nil, err
	}

	for i, d := range density {
		vol.Density[i] = uint8(min(d, 255))
	}
	vol.Backend = Name
	vol.Device = fmt.Sprintf("%s (%s)", sel, dev.Name())
	if err := m.advance(StateDone); err != nil {
		return nil, err
	}
	return vol, nil
}
