// Package stats summarises the density distribution of a generated volume
// per material.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/mmr-tortoise/volsynth/internal/model"
)

// Material is the density summary of one material id.
type Material struct {
	Material int32   `json:"material" yaml:"material"`
	Voxels   int     `json:"voxels" yaml:"voxels"`
	Fraction float64 `json:"fraction" yaml:"fraction"`
	Mean     float64 `json:"mean" yaml:"mean"`
	StdDev   float64 `json:"stdDev" yaml:"stdDev"`
	Median   float64 `json:"median" yaml:"median"`
	Min      uint8   `json:"min" yaml:"min"`
	Max      uint8   `json:"max" yaml:"max"`
}

// levels holds the 256 possible density values in ascending order; each
// material's histogram weights them.
var levels = func() []float64 {
	x := make([]float64, 256)
	for i := range x {
		x[i] = float64(i)
	}
	return x
}()

// Summarize returns one entry per material present in vol, ordered by
// material id (empty space, -1, first).
func Summarize(vol *model.Volume) []Material {
	hist := make(map[int32]*[256]float64)
	for n, m := range vol.Material {
		h, ok := hist[m]
		if !ok {
			h = new([256]float64)
			hist[m] = h
		}
		h[vol.Density[n]]++
	}

	out := make([]Material, 0, len(hist))
	total := float64(vol.Len())
	for m, h := range hist {
		weights := h[:]
		mean, std := stat.MeanStdDev(levels, weights)
		if math.IsNaN(std) {
			std = 0
		}
		s := Material{
			Material: m,
			Mean:     mean,
			StdDev:   std,
			Median:   stat.Quantile(0.5, stat.Empirical, levels, weights),
		}
		first := true
		for d, c := range h {
			if c == 0 {
				continue
			}
			s.Voxels += int(c)
			if first {
				s.Min, first = uint8(d), false
			}
			s.Max = uint8(d)
		}
		s.Fraction = float64(s.Voxels) / total
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Material < out[j].Material })
	return out
}

// Occupied returns the fraction of voxels owned by some sphere.
func Occupied(summary []Material) float64 {
	var f float64
	for _, s := range summary {
		if s.Material != model.EmptyMaterial {
			f += s.Fraction
		}
	}
	return f
}
