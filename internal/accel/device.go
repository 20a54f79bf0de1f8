package accel

// Driver is an accelerator runtime, for example the built-in host driver.
type Driver interface {
	// Name is the selector prefix the driver is registered under.
	Name() string

	// Platforms enumerates the platforms the runtime exposes, in a stable
	// order. Selector indices refer to this order.
	Platforms() ([]Platform, error)
}

// Platform groups devices that share a runtime implementation.
type Platform interface {
	Name() string
	Devices() ([]Device, error)
}

// Device is a compute device that can open command queues.
type Device interface {
	Name() string

	// ComputeUnits is the number of units the device runs in parallel.
	ComputeUnits() int

	// Open creates a queue with its own buffers. Queues are not shared
	// between runs.
	Open(opts QueueOptions) (Queue, error)
}

// QueueOptions tune a queue at open time.
type QueueOptions struct {
	// Workers caps the parallelism of kernel execution. Zero or negative
	// lets the device decide.
	Workers int
}

// Buffer is device memory owned by the queue that allocated it.
type Buffer interface {
	// Len is the number of elements in the buffer.
	Len() int
}

// Event completes when the command that returned it has finished.
type Event interface {
	// Wait blocks until the command finishes and returns its error.
	Wait() error
}

// KernelArgs are the arguments of the voxel kernel, in the order the
// kernel declares them.
type KernelArgs struct {
	EmptyThreshold uint32
	NoiseSpread    uint32
	SphereCount    int32

	// Dims holds X, Y, Z as three uint32 values.
	Dims Buffer

	// Spheres holds SphereCount records of volume.SphereStride float32s.
	Spheres Buffer

	// Density receives one uint32 in [0,255] per voxel.
	Density Buffer

	// Material receives one int32 per voxel.
	Material Buffer

	// Seed selects the noise streams.
	Seed uint64
}

// Queue is an in-order command queue on a device. Commands that return an
// Event run asynchronously; read commands wait on the events passed to them
// before touching the buffer.
type Queue interface {
	WriteUint32(data []uint32) (Buffer, error)
	WriteFloat32(data []float32) (Buffer, error)
	AllocUint32(n int) (Buffer, error)
	AllocInt32(n int) (Buffer, error)

	// Enqueue runs the kernel once per work item, workSize items in total.
	Enqueue(args KernelArgs, workSize int) (Event, error)

	ReadUint32(buf Buffer, dst []uint32, wait ...Event) (Event, error)
	ReadInt32(buf Buffer, dst []int32, wait ...Event) (Event, error)

	// Release waits for outstanding commands and frees every buffer the
	// queue allocated. The queue is unusable afterwards.
	Release() error
}

// waitAll waits for every event and returns the first error.
func waitAll(events []Event) error {
	var first error
	for _, ev := range events {
		if ev == nil {
			continue
		}
		if err := ev.Wait(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
