// Package output turns a generated volume into its output files.
//
// Each variation produces three files sharing one base name,
// <name>_<variation>_i<spheres>_<X>x<Y>x<Z>:
//   - .raw: one unsigned byte of density per voxel, row-major (i slowest)
//   - .sgm: one big-endian int32 material id per voxel, same order
//   - .yaml: a manifest with the seed, configuration, backend, timings,
//     the sphere set and per-material density statistics
//
// The Writer stores them through a sink.Store, so the same code writes to
// a local directory or an S3 bucket.
package output
