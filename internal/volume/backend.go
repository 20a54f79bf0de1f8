package volume

import (
	"context"
	"fmt"

	"github.com/mmr-tortoise/volsynth/internal/model"
	"github.com/mmr-tortoise/volsynth/internal/monitoring"
)

// Job is one backend invocation: the configuration, the sphere set it
// classifies against, and the seed for the density noise.
type Job struct {
	Config  model.Config
	Spheres model.SphereSet
	Seed    uint64
}

// Validate rejects jobs the engine cannot classify. Callers are expected to
// have sanitised the configuration already; this is the last line before
// the backends allocate voxel-sized arrays.
func (j Job) Validate() error {
	if !j.Config.Dims.IsValid() {
		return fmt.Errorf("invalid grid dimensions %s", j.Config.Dims)
	}
	if !j.Config.Dims.WithinLimit() {
		return fmt.Errorf("grid %s exceeds %d voxels", j.Config.Dims, model.MaxVoxels)
	}
	if j.Config.EmptyThreshold > 255 {
		return fmt.Errorf("empty threshold %d out of range (0-255)", j.Config.EmptyThreshold)
	}
	return j.Spheres.Validate()
}

// Backend classifies every voxel of a job's grid.
// Implementations must produce identical material arrays for the same job;
// density arrays agree in distribution.
type Backend interface {
	// Name identifies the backend in logs and manifests.
	Name() string

	// Run computes the volume. ctx is only consulted before work starts:
	// once dispatched, a run either completes or fails.
	Run(ctx context.Context, job Job) (*model.Volume, error)
}

// Fallback runs Primary and, when it fails with an error ShouldFallback
// accepts, runs Secondary on the same job.
type Fallback struct {
	Primary   Backend
	Secondary Backend

	// ShouldFallback decides whether a Primary error is recoverable by
	// switching backends. Nil means never.
	ShouldFallback func(error) bool
}

// Name returns "primary|secondary".
func (f *Fallback) Name() string {
	return f.Primary.Name() + "|" + f.Secondary.Name()
}

// Run implements Backend.
func (f *Fallback) Run(ctx context.Context, job Job) (*model.Volume, error) {
	vol, err := f.Primary.Run(ctx, job)
	if err == nil {
		return vol, nil
	}
	if f.ShouldFallback == nil || !f.ShouldFallback(err) {
		return nil, err
	}
	monitoring.Warnf("%s backend unavailable (%v), falling back to %s", f.Primary.Name(), err, f.Secondary.Name())
	return f.Secondary.Run(ctx, job)
}
