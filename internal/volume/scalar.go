package volume

import (
	"context"

	"github.com/mmr-tortoise/volsynth/internal/model"
)

// ScalarName is the name the scalar backend reports.
const ScalarName = "scalar"

// Scalar is the sequential reference backend. It walks the grid in
// row-major order on the calling goroutine.
type Scalar struct{}

// NewScalar returns the scalar backend.
func NewScalar() *Scalar {
	return &Scalar{}
}

// Name implements Backend.
func (s *Scalar) Name() string {
	return ScalarName
}

// Run implements Backend.
func (s *Scalar) Run(ctx context.Context, job Job) (*model.Volume, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}

	cfg := job.Config
	dims := cfg.Dims
	rng := NewRand(job.Seed, StreamScalar)
	vol := model.NewVolume(dims)
	vol.Backend = ScalarName
	vol.Device = "cpu"

	n := 0
	for i := 0; i < dims.X; i++ {
		for j := 0; j < dims.Y; j++ {
			for k := 0; k < dims.Z; k++ {
				c := Classify(PointFor(i, j, k, dims), job.Spheres, cfg.EmptyThreshold)
				vol.Material[n] = c.Material
				vol.Density[n] = Density(rng, c, cfg.NoiseSpread)
				n++
			}
		}
	}
	return vol, nil
}
