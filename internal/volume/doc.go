// Package volume is the voxel classification-and-noise engine.
//
// For every voxel (i,j,k) of the grid the engine:
//   - maps the voxel to its centre in the unit cube (PointFor)
//   - decides which sphere owns that point, or that it is empty space
//     (Classify / ClassifyFlat)
//   - draws a noisy density around the owner's base density (Sample, Density)
//
// The functions are pure apart from the explicit random source, so any
// subset of voxels can be evaluated independently and in any order. The
// Scalar backend composes them sequentially and is the reference the
// accelerated backend in package accel is checked against.
package volume
