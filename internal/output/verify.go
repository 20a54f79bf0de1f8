package output

import (
	"context"
	"fmt"
	"io"
	"math"
	"path"
	"regexp"

	"github.com/mmr-tortoise/volsynth/internal/model"
	"github.com/mmr-tortoise/volsynth/internal/sink"
	"github.com/mmr-tortoise/volsynth/internal/stats"
)

// manifestName matches the manifest file of a variation; other YAML files
// in the same location (a config file, say) are not manifests.
var manifestName = regexp.MustCompile(`_\d+_i\d+_\d+x\d+x\d+\.yaml$`)

// Check is the outcome of verifying one stored variation.
type Check struct {
	Manifest string   `json:"manifest"`
	Base     string   `json:"base,omitempty"`
	Problems []string `json:"problems,omitempty"`
}

// OK reports whether no problem was found.
func (c *Check) OK() bool {
	return len(c.Problems) == 0
}

func (c *Check) fail(format string, args ...interface{}) {
	c.Problems = append(c.Problems, fmt.Sprintf(format, args...))
}

// ManifestKeys returns the keys of every variation manifest in store,
// sorted.
func ManifestKeys(ctx context.Context, store sink.Store) ([]string, error) {
	infos, err := store.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", store.Location(""), err)
	}
	var keys []string
	for _, info := range infos {
		if manifestName.MatchString(info.Key) {
			keys = append(keys, info.Key)
		}
	}
	return keys, nil
}

// Verify reads the variation described by the manifest at key and checks
// the stored files against it: both streams hold one value per voxel,
// every material id names a sphere of the manifest, the sphere set is in
// canonical order, and the occupied fraction matches.
func Verify(ctx context.Context, store sink.Store, key string) Check {
	c := Check{Manifest: key}

	data, err := readObject(ctx, store, key)
	if err != nil {
		c.fail("%v", err)
		return c
	}
	m, err := ParseManifest(data)
	if err != nil {
		c.fail("%v", err)
		return c
	}
	c.Base = m.Files.Base

	if err := m.Spheres.Validate(); err != nil {
		c.fail("sphere set: %v", err)
	}
	if !m.Spheres.IsSorted() {
		c.fail("sphere set is not ordered by radius then id")
	}
	dims := m.Config.Dims
	if !dims.WithinLimit() {
		c.fail("manifest dims %s are not a valid grid", dims)
		return c
	}
	n := dims.Count()

	dir := path.Dir(key)
	density, err := readObject(ctx, store, path.Join(dir, m.Files.Density))
	if err != nil {
		c.fail("%v", err)
	} else if len(density) != n {
		c.fail("%s holds %d voxels, want %d", m.Files.Density, len(density), n)
	}

	var material []int32
	if raw, err := readObject(ctx, store, path.Join(dir, m.Files.Material)); err != nil {
		c.fail("%v", err)
	} else if material, err = DecodeMaterial(raw); err != nil {
		c.fail("%s: %v", m.Files.Material, err)
	} else if len(material) != n {
		c.fail("%s holds %d voxels, want %d", m.Files.Material, len(material), n)
	}
	if !c.OK() {
		return c
	}

	ids := make(map[int32]struct{}, len(m.Spheres))
	for _, s := range m.Spheres {
		ids[s.ID] = struct{}{}
	}
	for i, id := range material {
		if _, ok := ids[id]; id != model.EmptyMaterial && !ok {
			c.fail("voxel %d has material %d, which names no sphere", i, id)
			break
		}
	}

	vol := &model.Volume{Dims: dims, Material: material, Density: density}
	if occ := stats.Occupied(stats.Summarize(vol)); math.Abs(occ-m.Occupied) > 1e-9 {
		c.fail("occupied fraction is %.6f, manifest records %.6f", occ, m.Occupied)
	}
	return c
}

func readObject(ctx context.Context, store sink.Store, key string) ([]byte, error) {
	_, rc, err := store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", store.Location(key), err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", store.Location(key), err)
	}
	return data, nil
}
