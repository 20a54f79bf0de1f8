package volume

import (
	"math"
	"math/rand/v2"
)

// Random stream identifiers. A run seed combined with a stream gives an
// independent PCG source, so sphere generation, the scalar noise pass and
// every accelerated block draw from separate sequences.
const (
	StreamSpheres uint64 = 1
	StreamScalar  uint64 = 2

	// StreamBlockBase is added to a block index to form that block's stream.
	StreamBlockBase uint64 = 1 << 32
)

// NewRand returns a PCG-backed generator for (seed, stream).
func NewRand(seed, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, stream))
}

// openUnit draws uniformly from (0,1).
func openUnit(rng *rand.Rand) float64 {
	for {
		if u := rng.Float64(); u > 0 {
			return u
		}
	}
}

// Sample draws one value from a normal distribution with the given mean and
// variance using the Box–Muller transform on two fresh uniform draws.
func Sample(rng *rand.Rand, mean, spread float64) float64 {
	u1 := openUnit(rng)
	u2 := openUnit(rng)
	r := math.Sqrt(-2 * math.Log(u1))
	c := math.Cos(2 * math.Pi * u2)
	return mean + math.Sqrt(spread)*r*c
}

// Quantize truncates v toward zero and saturates it to [0,255].
// NaN maps to 0.
func Quantize(v float64) uint8 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}

// Density draws the final density of a classified voxel. Occupied voxels
// are perturbed around the owner's base density with variance noiseSpread;
// empty voxels use half the empty threshold as both mean and variance.
func Density(rng *rand.Rand, c Classification, noiseSpread uint32) uint8 {
	spread := float64(noiseSpread)
	if c.IsEmpty() {
		spread = c.Base
	}
	return Quantize(Sample(rng, c.Base, spread))
}
