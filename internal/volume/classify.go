package volume

import (
	"math"

	"github.com/mmr-tortoise/volsynth/internal/model"
)

// SphereStride is the number of float32 values per sphere in a flattened
// sphere buffer: origin x, y, z, radius, id, base density.
const SphereStride = 6

// Classification is the outcome of classifying one sample point.
type Classification struct {
	// Material is the owning sphere's id, or model.EmptyMaterial.
	Material int32

	// Base is the density the noise model perturbs: the owner's base
	// density, or half the empty-space threshold for empty space.
	Base float64
}

// IsEmpty reports whether no sphere owns the point.
func (c Classification) IsEmpty() bool {
	return c.Material == model.EmptyMaterial
}

func emptyClass(emptyThreshold uint32) Classification {
	return Classification{Material: model.EmptyMaterial, Base: float64(emptyThreshold) / 2}
}

// contains reports whether p lies within distance r of (ox, oy, oz).
// The per-axis test rejects most spheres before the square root.
func contains(p model.Vec3, ox, oy, oz, r float32) bool {
	dx := p.X - ox
	if dx > r || -dx > r {
		return false
	}
	dy := p.Y - oy
	if dy > r || -dy > r {
		return false
	}
	dz := p.Z - oz
	if dz > r || -dz > r {
		return false
	}
	d2 := float32(dx*dx) + float32(dy*dy) + float32(dz*dz)
	return float32(math.Sqrt(float64(d2))) <= r
}

// wins reports whether candidate (radius r, id) beats the current owner:
// the smaller radius wins, the smaller id breaks a tie.
func wins(r float32, id int32, bestR float32, bestID int32) bool {
	if r != bestR {
		return r < bestR
	}
	return id < bestID
}

// Classify decides which sphere of set owns p. Among all spheres containing
// p the one with the smallest radius wins, then the smallest id. The rule is
// applied explicitly, so the result does not depend on the order of set.
func Classify(p model.Vec3, set model.SphereSet, emptyThreshold uint32) Classification {
	best := -1
	for idx := range set {
		s := &set[idx]
		if !contains(p, s.Origin.X, s.Origin.Y, s.Origin.Z, s.Radius) {
			continue
		}
		if best < 0 || wins(s.Radius, s.ID, set[best].Radius, set[best].ID) {
			best = idx
		}
	}
	if best < 0 {
		return emptyClass(emptyThreshold)
	}
	return Classification{Material: set[best].ID, Base: float64(set[best].Density)}
}

// Flatten packs set into the device layout, SphereStride floats per sphere.
// Ids travel as float32 and are exact up to 2^24.
func Flatten(set model.SphereSet) []float32 {
	flat := make([]float32, 0, len(set)*SphereStride)
	for _, s := range set {
		flat = append(flat,
			s.Origin.X, s.Origin.Y, s.Origin.Z,
			s.Radius,
			float32(s.ID),
			float32(s.Density),
		)
	}
	return flat
}

// ClassifyFlat is Classify over a flattened sphere buffer of count spheres.
func ClassifyFlat(p model.Vec3, flat []float32, count int, emptyThreshold uint32) Classification {
	best := -1
	var bestR float32
	var bestID int32
	for s := 0; s < count; s++ {
		o := s * SphereStride
		r := flat[o+3]
		if !contains(p, flat[o], flat[o+1], flat[o+2], r) {
			continue
		}
		id := int32(flat[o+4])
		if best < 0 || wins(r, id, bestR, bestID) {
			best, bestR, bestID = s, r, id
		}
	}
	if best < 0 {
		return emptyClass(emptyThreshold)
	}
	return Classification{Material: bestID, Base: float64(flat[best*SphereStride+5])}
}
