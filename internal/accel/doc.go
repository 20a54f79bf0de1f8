// Package accel implements the data-parallel execution backend.
//
// The backend talks to a small device model shaped like the usual compute
// APIs: a Driver exposes Platforms, a Platform exposes Devices, and a
// Device opens a Queue that owns buffers and runs the voxel kernel. Every
// run follows the same choreography:
//
//	acquire device -> upload dims and spheres -> allocate outputs
//	-> enqueue kernel -> read density and material back -> release
//
// The built-in "host" driver runs the kernel on a goroutine pool. Work is
// split into fixed-size blocks and each block draws its noise from its own
// random stream, so results depend only on the seed, never on how many
// workers ran them.
//
// Failures to reach a device are reported as *InitError so callers can
// fall back to the scalar backend (see IsInitError).
package accel
