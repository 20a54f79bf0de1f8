package spheres

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/mmr-tortoise/volsynth/internal/model"
)

// maxDensity is the largest representable base density.
const maxDensity = 255

var (
	// ErrInvalidRadius is returned for a radius interval that would produce
	// non-positive or inverted radii.
	ErrInvalidRadius = errors.New("invalid sphere radius interval")

	// ErrEmptyDensityPool is returned when spheres are requested but the
	// empty-space threshold plus noise spread leaves no density above it.
	ErrEmptyDensityPool = errors.New("no base density available above empty threshold plus noise spread")
)

// Params are the generator inputs taken from the run configuration.
type Params struct {
	Count          int
	MinRadius      float32
	MaxRadius      float32
	EmptyThreshold uint32
	NoiseSpread    uint32
}

// ParamsFromConfig extracts generator parameters from cfg.
func ParamsFromConfig(cfg model.Config) Params {
	return Params{
		Count:          cfg.SphereCount,
		MinRadius:      cfg.MinRadius,
		MaxRadius:      cfg.MaxRadius,
		EmptyThreshold: cfg.EmptyThreshold,
		NoiseSpread:    cfg.NoiseSpread,
	}
}

// Validate rejects parameters the generator cannot honour.
func (p Params) Validate() error {
	if p.Count < 0 {
		return fmt.Errorf("sphere count %d must not be negative", p.Count)
	}
	if p.Count == 0 {
		return nil
	}
	if math.IsNaN(float64(p.MinRadius)) || math.IsNaN(float64(p.MaxRadius)) {
		return fmt.Errorf("%w: NaN bound", ErrInvalidRadius)
	}
	if p.MinRadius < 0 || p.MaxRadius <= 0 || p.MinRadius > p.MaxRadius {
		return fmt.Errorf("%w: [%v, %v]", ErrInvalidRadius, p.MinRadius, p.MaxRadius)
	}
	if uint64(p.EmptyThreshold)+uint64(p.NoiseSpread) > maxDensity {
		return fmt.Errorf("%w: %d + %d > %d", ErrEmptyDensityPool, p.EmptyThreshold, p.NoiseSpread, maxDensity)
	}
	return nil
}

// DensityPool returns every integer in [lo, 255] exactly once, shuffled with
// rng. The pool is empty when lo exceeds 255.
func DensityPool(rng *rand.Rand, lo uint32) []uint8 {
	if lo > maxDensity {
		return nil
	}
	pool := make([]uint8, 0, maxDensity-lo+1)
	for d := lo; d <= maxDensity; d++ {
		pool = append(pool, uint8(d))
	}
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool
}

// Generate produces p.Count spheres with ids 0..Count-1, sorted ascending by
// radius with id as tie-break. Base densities cycle through the shuffled
// pool when Count exceeds its size.
func Generate(rng *rand.Rand, p Params) (model.SphereSet, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	set := make(model.SphereSet, 0, p.Count)
	if p.Count == 0 {
		return set, nil
	}

	pool := DensityPool(rng, p.EmptyThreshold+p.NoiseSpread)
	for i := 0; i < p.Count; i++ {
		origin := model.Vec3{X: rng.Float32(), Y: rng.Float32(), Z: rng.Float32()}
		set = append(set, model.Sphere{
			ID:      int32(i),
			Origin:  origin,
			Radius:  drawRadius(rng, p.MinRadius, p.MaxRadius),
			Density: pool[i%len(pool)],
		})
	}
	set.Sort()
	return set, nil
}

// drawRadius returns a uniform draw in [lo, hi), or lo when the interval is
// degenerate. The result is always strictly positive.
func drawRadius(rng *rand.Rand, lo, hi float32) float32 {
	r := lo + rng.Float32()*(hi-lo)
	if r >= hi && hi > lo {
		r = math.Nextafter32(hi, lo)
	}
	if r <= 0 {
		r = math.SmallestNonzeroFloat32
	}
	return r
}
