package spheres

import (
	"errors"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/mmr-tortoise/volsynth/internal/model"
)

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0x5eed))
}

func defaultParams(count int) Params {
	return Params{Count: count, MinRadius: 0.001, MaxRadius: 0.1, EmptyThreshold: 30, NoiseSpread: 10}
}

// TestGenerate_IDsAndOrdering checks that ids are exactly {0..N-1} and the
// set is sorted by radius then id.
func TestGenerate_IDsAndOrdering(t *testing.T) {
	for _, n := range []int{1, 2, 17, 500} {
		set, err := Generate(newRand(uint64(n)), defaultParams(n))
		require.NoError(t, err)
		require.Len(t, set, n)

		ids := make([]int, 0, n)
		for _, s := range set {
			ids = append(ids, int(s.ID))
		}
		sort.Ints(ids)
		for i, id := range ids {
			assert.Equal(t, i, id)
		}

		for i := 1; i < len(set); i++ {
			prev, cur := set[i-1], set[i]
			assert.True(t, prev.Radius < cur.Radius || (prev.Radius == cur.Radius && prev.ID < cur.ID),
				"sphere %d out of order", i)
		}
		assert.NoError(t, set.Validate())
	}
}

// TestGenerate_Ranges checks that origins, radii and densities stay inside
// their documented ranges.
func TestGenerate_Ranges(t *testing.T) {
	p := Params{Count: 1000, MinRadius: 0.05, MaxRadius: 0.2, EmptyThreshold: 40, NoiseSpread: 20}
	set, err := Generate(newRand(7), p)
	require.NoError(t, err)

	for _, s := range set {
		for _, c := range []float32{s.Origin.X, s.Origin.Y, s.Origin.Z} {
			assert.GreaterOrEqual(t, c, float32(0))
			assert.Less(t, c, float32(1))
		}
		assert.GreaterOrEqual(t, s.Radius, p.MinRadius)
		assert.Less(t, s.Radius, p.MaxRadius)
		assert.GreaterOrEqual(t, s.Density, uint8(60))
	}
}

// TestGenerate_UniformDraws checks the first two moments of the radius and
// origin draws against a uniform distribution.
func TestGenerate_UniformDraws(t *testing.T) {
	p := Params{Count: 20000, MinRadius: 0.2, MaxRadius: 0.6, EmptyThreshold: 0, NoiseSpread: 0}
	set, err := Generate(newRand(77), p)
	require.NoError(t, err)

	radii := make([]float64, len(set))
	xs := make([]float64, len(set))
	for i, s := range set {
		radii[i] = float64(s.Radius)
		xs[i] = float64(s.Origin.X)
	}

	// Uniform [a,b): mean (a+b)/2, variance (b-a)^2/12.
	mean, variance := stat.MeanVariance(radii, nil)
	assert.InDelta(t, 0.4, mean, 0.005)
	assert.InDelta(t, 0.16/12, variance, 0.0005)

	mean, variance = stat.MeanVariance(xs, nil)
	assert.InDelta(t, 0.5, mean, 0.01)
	assert.InDelta(t, 1.0/12, variance, 0.003)
}

// TestGenerate_DensityCycling verifies that densities repeat through the pool
// when there are more spheres than pool entries, without error.
func TestGenerate_DensityCycling(t *testing.T) {
	// Pool is [250, 255]: six values.
	p := Params{Count: 18, MinRadius: 0.01, MaxRadius: 0.02, EmptyThreshold: 245, NoiseSpread: 5}
	set, err := Generate(newRand(3), p)
	require.NoError(t, err)

	counts := map[uint8]int{}
	byID := map[int32]uint8{}
	for _, s := range set {
		counts[s.Density]++
		byID[s.ID] = s.Density
	}
	assert.Len(t, counts, 6)
	for d, c := range counts {
		assert.GreaterOrEqual(t, d, uint8(250))
		assert.Equal(t, 3, c)
	}
	// id i and id i+6 read the same pool slot.
	for id := int32(0); id < 12; id++ {
		assert.Equal(t, byID[id], byID[id+6])
	}
}

// TestGenerate_Empty verifies that zero spheres yields an empty, non-nil set
// even with parameters that would otherwise be rejected.
func TestGenerate_Empty(t *testing.T) {
	set, err := Generate(newRand(1), Params{Count: 0, MinRadius: 1, MaxRadius: 0})
	require.NoError(t, err)
	assert.NotNil(t, set)
	assert.Empty(t, set)
}

// TestGenerate_Rejects covers the parameter errors.
func TestGenerate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		target error
	}{
		{"inverted radius", Params{Count: 1, MinRadius: 0.5, MaxRadius: 0.1}, ErrInvalidRadius},
		{"zero max radius", Params{Count: 1, MinRadius: 0, MaxRadius: 0}, ErrInvalidRadius},
		{"negative min radius", Params{Count: 1, MinRadius: -0.1, MaxRadius: 0.1}, ErrInvalidRadius},
		{"no density above threshold", Params{Count: 1, MinRadius: 0.1, MaxRadius: 0.2, EmptyThreshold: 250, NoiseSpread: 10}, ErrEmptyDensityPool},
		{"negative count", Params{Count: -1}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Generate(newRand(1), tt.params)
			require.Error(t, err)
			if tt.target != nil {
				assert.True(t, errors.Is(err, tt.target))
			}
		})
	}
}

// TestGenerate_DegenerateInterval verifies that min == max gives every sphere
// that radius, and that a zero lower bound never yields a zero radius.
func TestGenerate_DegenerateInterval(t *testing.T) {
	set, err := Generate(newRand(2), Params{Count: 10, MinRadius: 0.25, MaxRadius: 0.25})
	require.NoError(t, err)
	for i, s := range set {
		assert.Equal(t, float32(0.25), s.Radius)
		assert.Equal(t, int32(i), s.ID, "equal radii sort by id")
	}

	set, err = Generate(newRand(2), Params{Count: 200, MinRadius: 0, MaxRadius: 1e-6})
	require.NoError(t, err)
	for _, s := range set {
		assert.Greater(t, s.Radius, float32(0))
	}
}

// TestGenerate_Reproducible verifies that the same seed reproduces the exact
// set and a different seed does not.
func TestGenerate_Reproducible(t *testing.T) {
	a, err := Generate(newRand(42), defaultParams(50))
	require.NoError(t, err)
	b, err := Generate(newRand(42), defaultParams(50))
	require.NoError(t, err)
	c, err := Generate(newRand(43), defaultParams(50))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

// TestDensityPool checks pool contents and the empty case.
func TestDensityPool(t *testing.T) {
	pool := DensityPool(newRand(9), 40)
	require.Len(t, pool, 216)
	seen := map[uint8]bool{}
	for _, d := range pool {
		assert.False(t, seen[d], "duplicate %d", d)
		seen[d] = true
		assert.GreaterOrEqual(t, d, uint8(40))
	}

	assert.Equal(t, []uint8{255}, DensityPool(newRand(9), 255))
	assert.Empty(t, DensityPool(newRand(9), 256))
}

// TestParamsFromConfig maps the configuration fields.
func TestParamsFromConfig(t *testing.T) {
	cfg := model.Config{SphereCount: 5, MinRadius: 0.1, MaxRadius: 0.2, EmptyThreshold: 30, NoiseSpread: 10}
	assert.Equal(t, Params{Count: 5, MinRadius: 0.1, MaxRadius: 0.2, EmptyThreshold: 30, NoiseSpread: 10}, ParamsFromConfig(cfg))
}
