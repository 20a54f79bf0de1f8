package accel

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mmr-tortoise/volsynth/internal/model"
	"github.com/mmr-tortoise/volsynth/internal/volume"
)

var errQueueReleased = errors.New("queue released")

func init() {
	Register(hostDriver{})
}

// hostDriver exposes the local CPUs as a single device.
type hostDriver struct{}

func (hostDriver) Name() string { return DefaultDriver }

func (hostDriver) Platforms() ([]Platform, error) {
	return []Platform{hostPlatform{}}, nil
}

type hostPlatform struct{}

func (hostPlatform) Name() string { return "goroutine pool" }

func (hostPlatform) Devices() ([]Device, error) {
	return []Device{hostDevice{}}, nil
}

type hostDevice struct{}

func (hostDevice) Name() string { return "cpu" }

func (hostDevice) ComputeUnits() int { return runtime.GOMAXPROCS(0) }

func (d hostDevice) Open(opts QueueOptions) (Queue, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = d.ComputeUnits()
	}
	return &hostQueue{workers: workers}, nil
}

// hostBuffer is a typed slice owned by one queue. Exactly one of the
// slices is set.
type hostBuffer struct {
	owner *hostQueue
	u32   []uint32
	i32   []int32
	f32   []float32
}

func (b *hostBuffer) Len() int {
	return len(b.u32) + len(b.i32) + len(b.f32)
}

// hostEvent is closed when its command finishes.
type hostEvent struct {
	done chan struct{}
	err  error
}

func newHostEvent() *hostEvent {
	return &hostEvent{done: make(chan struct{})}
}

func (e *hostEvent) finish(err error) {
	e.err = err
	close(e.done)
}

func (e *hostEvent) Wait() error {
	<-e.done
	return e.err
}

// hostQueue runs commands on goroutines. The kernel is split into blocks of
// BlockSize work items executed by at most workers goroutines.
type hostQueue struct {
	workers int

	mu       sync.Mutex
	released bool
	inflight sync.WaitGroup
}

// submit runs fn asynchronously and returns its completion event.
func (q *hostQueue) submit(fn func() error) (Event, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.released {
		return nil, errQueueReleased
	}
	ev := newHostEvent()
	q.inflight.Add(1)
	go func() {
		defer q.inflight.Done()
		ev.finish(fn())
	}()
	return ev, nil
}

func (q *hostQueue) alloc(b *hostBuffer) (Buffer, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.released {
		return nil, errQueueReleased
	}
	b.owner = q
	return b, nil
}

// own returns buf as a host buffer allocated by q.
func (q *hostQueue) own(buf Buffer) (*hostBuffer, error) {
	hb, ok := buf.(*hostBuffer)
	if !ok || hb == nil || hb.owner != q {
		return nil, fmt.Errorf("buffer %T does not belong to this queue", buf)
	}
	return hb, nil
}

func (q *hostQueue) WriteUint32(data []uint32) (Buffer, error) {
	return q.alloc(&hostBuffer{u32: append([]uint32(nil), data...)})
}

func (q *hostQueue) WriteFloat32(data []float32) (Buffer, error) {
	return q.alloc(&hostBuffer{f32: append([]float32(nil), data...)})
}

func (q *hostQueue) AllocUint32(n int) (Buffer, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative buffer length %d", n)
	}
	return q.alloc(&hostBuffer{u32: make([]uint32, n)})
}

func (q *hostQueue) AllocInt32(n int) (Buffer, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative buffer length %d", n)
	}
	return q.alloc(&hostBuffer{i32: make([]int32, n)})
}

// bind resolves the kernel arguments to host memory and checks their sizes.
func (q *hostQueue) bind(args KernelArgs, workSize int) (*kernel, error) {
	dims, err := q.own(args.Dims)
	if err != nil {
		return nil, fmt.Errorf("dims: %w", err)
	}
	spheres, err := q.own(args.Spheres)
	if err != nil {
		return nil, fmt.Errorf("spheres: %w", err)
	}
	density, err := q.own(args.Density)
	if err != nil {
		return nil, fmt.Errorf("density: %w", err)
	}
	material, err := q.own(args.Material)
	if err != nil {
		return nil, fmt.Errorf("material: %w", err)
	}

	if len(dims.u32) != 3 {
		return nil, fmt.Errorf("dims buffer must hold 3 uint32 values, got %d", dims.Len())
	}
	d := model.Dimensions{X: int(dims.u32[0]), Y: int(dims.u32[1]), Z: int(dims.u32[2])}
	if !d.IsValid() || d.Count() != workSize {
		return nil, fmt.Errorf("work size %d does not match dims %s", workSize, d)
	}
	if args.SphereCount < 0 || len(spheres.f32) < int(args.SphereCount)*volume.SphereStride {
		return nil, fmt.Errorf("sphere buffer holds %d floats, need %d", len(spheres.f32), int(args.SphereCount)*volume.SphereStride)
	}
	if len(density.u32) < workSize || len(material.i32) < workSize {
		return nil, fmt.Errorf("output buffers smaller than work size %d", workSize)
	}

	return &kernel{
		emptyThreshold: args.EmptyThreshold,
		noiseSpread:    args.NoiseSpread,
		sphereCount:    int(args.SphereCount),
		dims:           d,
		spheres:        spheres.f32,
		density:        density.u32,
		material:       material.i32,
		seed:           args.Seed,
	}, nil
}

func (q *hostQueue) Enqueue(args KernelArgs, workSize int) (Event, error) {
	k, err := q.bind(args, workSize)
	if err != nil {
		return nil, err
	}
	return q.submit(func() error {
		var g errgroup.Group
		g.SetLimit(q.workers)
		for b, start := 0, 0; start < workSize; b, start = b+1, start+BlockSize {
			end := min(start+BlockSize, workSize)
			g.Go(func() error {
				return k.block(b, start, end)
			})
		}
		return g.Wait()
	})
}

func (q *hostQueue) ReadUint32(buf Buffer, dst []uint32, wait ...Event) (Event, error) {
	hb, err := q.own(buf)
	if err != nil {
		return nil, err
	}
	if hb.u32 == nil && hb.Len() > 0 {
		return nil, errors.New("ReadUint32 on a non-uint32 buffer")
	}
	if len(dst) < len(hb.u32) {
		return nil, fmt.Errorf("destination holds %d values, buffer has %d", len(dst), len(hb.u32))
	}
	return q.submit(func() error {
		if err := waitAll(wait); err != nil {
			return err
		}
		copy(dst, hb.u32)
		return nil
	})
}

func (q *hostQueue) ReadInt32(buf Buffer, dst []int32, wait ...Event) (Event, error) {
	hb, err := q.own(buf)
	if err != nil {
		return nil, err
	}
	if hb.i32 == nil && hb.Len() > 0 {
		return nil, errors.New("ReadInt32 on a non-int32 buffer")
	}
	if len(dst) < len(hb.i32) {
		return nil, fmt.Errorf("destination holds %d values, buffer has %d", len(dst), len(hb.i32))
	}
	return q.submit(func() error {
		if err := waitAll(wait); err != nil {
			return err
		}
		copy(dst, hb.i32)
		return nil
	})
}

func (q *hostQueue) Release() error {
	q.mu.Lock()
	if q.released {
		q.mu.Unlock()
		return errQueueReleased
	}
	q.released = true
	q.mu.Unlock()

	q.inflight.Wait()
	return nil
}
