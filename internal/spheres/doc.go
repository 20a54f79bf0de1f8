// Package spheres generates the randomized sphere population placed in the
// unit cube for each generated volume.
//
// Generation has three steps:
//   - build a pool of candidate base densities, every value in
//     [emptyThreshold+noiseSpread, 255] exactly once, and shuffle it
//   - draw origin, radius and pool density for each sphere index
//   - sort the set ascending by radius, ties broken by ascending id
//
// All randomness comes from a caller-supplied *rand.Rand so a seed
// reproduces the exact set.
package spheres
