package model

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// EmptyMaterial is the material id assigned to voxels that no sphere owns.
const EmptyMaterial int32 = -1

// BackendKind selects which execution backend classifies a volume.
type BackendKind string

const (
	// BackendScalar is the sequential reference implementation.
	BackendScalar BackendKind = "scalar"

	// BackendAccel is the data-parallel device implementation.
	BackendAccel BackendKind = "accel"

	// BackendAuto tries the accelerated backend and falls back to the
	// scalar one when no device can be initialised.
	BackendAuto BackendKind = "auto"
)

// String returns the string representation of BackendKind.
func (b BackendKind) String() string {
	return string(b)
}

// IsValid checks whether the BackendKind value is one of the predefined kinds.
func (b BackendKind) IsValid() bool {
	switch b {
	case BackendScalar, BackendAccel, BackendAuto:
		return true
	default:
		return false
	}
}

// ParseBackendKind converts a string to a BackendKind.
// Returns an error if the string does not match any valid kind.
func ParseBackendKind(s string) (BackendKind, error) {
	kind := BackendKind(strings.ToLower(strings.TrimSpace(s)))
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid backend: %q (valid: scalar, accel, auto)", s)
	}
	return kind, nil
}

// Dimensions is the voxel resolution of the generated grid along each axis.
type Dimensions struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
	Z int `json:"z" yaml:"z"`
}

// MaxVoxels bounds the voxel count of one grid. Work items on an
// accelerator device are addressed with int32 ids.
const MaxVoxels = math.MaxInt32

// Count returns the total number of voxels, X*Y*Z. The result is only
// meaningful for dimensions within WithinLimit.
func (d Dimensions) Count() int {
	return d.X * d.Y * d.Z
}

// IsValid reports whether every axis has at least one voxel.
func (d Dimensions) IsValid() bool {
	return d.X > 0 && d.Y > 0 && d.Z > 0
}

// WithinLimit reports whether the dimensions are valid and X*Y*Z does not
// exceed MaxVoxels. The product is checked axis by axis so it cannot
// overflow.
func (d Dimensions) WithinLimit() bool {
	if !d.IsValid() {
		return false
	}
	n := uint64(1)
	for _, a := range []int{d.X, d.Y, d.Z} {
		if uint64(a) > MaxVoxels {
			return false
		}
		n *= uint64(a)
		if n > MaxVoxels {
			return false
		}
	}
	return true
}

// String formats the dimensions as "XxYxZ", the same form the -d flag accepts.
func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%dx%d", d.X, d.Y, d.Z)
}

// Vec3 is a point or offset in the unit cube.
type Vec3 struct {
	X float32 `json:"x" yaml:"x"`
	Y float32 `json:"y" yaml:"y"`
	Z float32 `json:"z" yaml:"z"`
}

// Sphere is one generated primitive. Spheres are immutable after generation.
type Sphere struct {
	// ID is unique within a set and contiguous over the generated
	// population (0..count-1). It does not change when the set is sorted.
	ID int32 `json:"id" yaml:"id"`

	// Origin is the centre of the sphere, each coordinate in [0,1).
	Origin Vec3 `json:"origin" yaml:"origin"`

	// Radius is strictly positive.
	Radius float32 `json:"radius" yaml:"radius"`

	// Density is the base density voxels owned by this sphere are
	// perturbed around.
	Density uint8 `json:"density" yaml:"density"`
}

// Before reports whether s orders before o: smaller radius first, lower id
// on equal radii.
func (s Sphere) Before(o Sphere) bool {
	if s.Radius != o.Radius {
		return s.Radius < o.Radius
	}
	return s.ID < o.ID
}

// SphereSet is an ordered sequence of spheres, ascending by radius with id
// as tie-break.
type SphereSet []Sphere

// Sort puts the set into canonical order.
func (set SphereSet) Sort() {
	sort.Slice(set, func(i, j int) bool { return set[i].Before(set[j]) })
}

// IsSorted reports whether the set is in canonical order.
func (set SphereSet) IsSorted() bool {
	return sort.SliceIsSorted(set, func(i, j int) bool { return set[i].Before(set[j]) })
}

// Validate checks the per-sphere invariants and id uniqueness.
func (set SphereSet) Validate() error {
	seen := make(map[int32]struct{}, len(set))
	for _, s := range set {
		if !(s.Radius > 0) || math.IsInf(float64(s.Radius), 0) {
			return fmt.Errorf("sphere %d: radius %v must be positive and finite", s.ID, s.Radius)
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("sphere %d: duplicate id", s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return nil
}

// Config is the immutable configuration of one generator invocation.
type Config struct {
	// Name is the prefix of every generated output file.
	Name string `json:"name" yaml:"name"`

	// Variations is how many independent volumes are generated.
	Variations int `json:"variations" yaml:"variations"`

	// SphereCount is the number of spheres placed in each volume.
	SphereCount int `json:"sphereCount" yaml:"sphereCount"`

	// MinRadius and MaxRadius bound the uniformly drawn sphere radius.
	MinRadius float32 `json:"minRadius" yaml:"minRadius"`
	MaxRadius float32 `json:"maxRadius" yaml:"maxRadius"`

	// EmptyThreshold is the density up to which a value reads as empty
	// space, in [0,255].
	EmptyThreshold uint32 `json:"emptyThreshold" yaml:"emptyThreshold"`

	// NoiseSpread is the variance of the density noise around a sphere's
	// base density.
	NoiseSpread uint32 `json:"noiseSpread" yaml:"noiseSpread"`

	// Dims is the grid resolution.
	Dims Dimensions `json:"dims" yaml:"dims"`

	// Seed drives every random draw of the run. Zero asks for a fresh seed.
	Seed uint64 `json:"seed" yaml:"seed"`

	// Backend selects the execution backend.
	Backend BackendKind `json:"backend" yaml:"backend"`

	// Device selects the accelerator as driver[:platform[:device]].
	Device string `json:"device" yaml:"device"`

	// Workers caps the host device's goroutine pool; 0 means one per CPU.
	Workers int `json:"workers" yaml:"workers"`

	// Output is a directory or an s3://bucket/prefix location.
	Output string `json:"output" yaml:"output"`

	// MetricsFile, if set, receives a prometheus textfile after the run.
	MetricsFile string `json:"metricsFile,omitempty" yaml:"metricsFile,omitempty"`
}

// EmptyMean is the reference density of empty space, half the threshold.
func (c Config) EmptyMean() float64 {
	return float64(c.EmptyThreshold) / 2
}

// Volume is the output of one backend run: two parallel arrays in row-major
// (i slowest, k fastest) voxel order.
type Volume struct {
	Dims     Dimensions
	Material []int32
	Density  []uint8

	// Backend and Device name what produced the arrays.
	Backend string
	Device  string
}

// NewVolume allocates a volume sized for dims.
func NewVolume(dims Dimensions) *Volume {
	n := dims.Count()
	return &Volume{
		Dims:     dims,
		Material: make([]int32, n),
		Density:  make([]uint8, n),
	}
}

// Len returns the number of voxels in the volume.
func (v *Volume) Len() int {
	return len(v.Material)
}
