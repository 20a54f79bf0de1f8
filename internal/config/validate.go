package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/mmr-tortoise/volsynth/internal/accel"
	"github.com/mmr-tortoise/volsynth/internal/model"
)

// ValidationError is one rejected configuration field.
type ValidationError struct {
	// Field is the configuration key that failed (e.g. "maxRadius").
	Field string

	// Message describes what is wrong with the value.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Message)
}

// Validate checks that cfg describes a run the generator can execute. It
// returns every problem found; an empty list means the configuration is
// valid.
func Validate(cfg model.Config) []ValidationError {
	var errs []ValidationError
	add := func(field, format string, args ...interface{}) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if cfg.Name == "" {
		add("name", "output name must not be empty")
	} else if strings.ContainsAny(cfg.Name, `/\`) {
		add("name", "output name %q must not contain path separators", cfg.Name)
	}

	if cfg.Variations < 0 {
		add("variations", "variation count %d must not be negative", cfg.Variations)
	}
	if cfg.SphereCount < 0 {
		add("sphereCount", "sphere count %d must not be negative", cfg.SphereCount)
	}

	minR, maxR := float64(cfg.MinRadius), float64(cfg.MaxRadius)
	switch {
	case math.IsNaN(minR) || math.IsInf(minR, 0) || minR < 0:
		add("minRadius", "minimum radius %v must be a finite non-negative number", cfg.MinRadius)
	case math.IsNaN(maxR) || math.IsInf(maxR, 0) || maxR <= 0:
		add("maxRadius", "maximum radius %v must be a finite positive number", cfg.MaxRadius)
	case minR > maxR:
		add("minRadius", "minimum radius %v exceeds maximum radius %v", cfg.MinRadius, cfg.MaxRadius)
	}

	if cfg.EmptyThreshold > 255 {
		add("emptyThreshold", "value %d out of range (0-255)", cfg.EmptyThreshold)
	} else if cfg.SphereCount > 0 && uint64(cfg.EmptyThreshold)+uint64(cfg.NoiseSpread) > 255 {
		add("noiseSpread", "empty threshold %d plus noise spread %d leaves no sphere density below 256",
			cfg.EmptyThreshold, cfg.NoiseSpread)
	}

	if !cfg.Dims.IsValid() {
		add("dims", "every dimension must be at least 1, got %s", cfg.Dims)
	} else if !cfg.Dims.WithinLimit() {
		add("dims", "grid %s exceeds %d voxels", cfg.Dims, model.MaxVoxels)
	}

	if !cfg.Backend.IsValid() {
		add("backend", "unknown backend %q (valid: scalar, accel, auto)", cfg.Backend)
	}
	if _, err := accel.ParseSelector(cfg.Device); err != nil {
		add("device", "%v", err)
	}
	if cfg.Workers < 0 {
		add("workers", "worker count %d must not be negative", cfg.Workers)
	}

	if cfg.Output == "" {
		add("output", "output location must not be empty")
	}
	return errs
}
