package output

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/volsynth/internal/model"
	"github.com/mmr-tortoise/volsynth/internal/sink"
)

// writeVariation stores testVolume with a sphere set naming both of its
// material ids and returns the store and manifest.
func writeVariation(t *testing.T) (*sink.Memory, *Manifest) {
	t.Helper()
	store := sink.NewMemory()
	set := model.SphereSet{
		{ID: 0, Origin: model.Vec3{X: 0.25, Y: 0.5, Z: 0.75}, Radius: 0.05, Density: 200},
		{ID: 258, Origin: model.Vec3{X: 0.1, Y: 0.2, Z: 0.3}, Radius: 0.07, Density: 99},
	}
	vol := testVolume()
	m := NewManifest(NewRunID(), 0, 9, testConfig(), set, vol)
	_, err := NewWriter(store, nil).Write(context.Background(), vol, m)
	require.NoError(t, err)
	return store, m
}

func put(t *testing.T, store *sink.Memory, key string, data []byte) {
	t.Helper()
	_, err := store.Put(context.Background(), key, bytes.NewReader(data), sink.PutOptions{})
	require.NoError(t, err)
}

// TestManifestKeys verifies that only variation manifests are listed.
func TestManifestKeys(t *testing.T) {
	store, m := writeVariation(t)
	put(t, store, "volsynth.yaml", []byte("name: x\n"))
	put(t, store, "runs/other_3_i7_1x1x1.yaml", []byte("runId: x\n"))

	keys, err := ManifestKeys(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, []string{"runs/other_3_i7_1x1x1.yaml", m.Files.Manifest}, keys)
}

// TestVerify_Intact verifies that freshly written output passes.
func TestVerify_Intact(t *testing.T) {
	store, m := writeVariation(t)

	c := Verify(context.Background(), store, m.Files.Manifest)
	assert.True(t, c.OK(), "%v", c.Problems)
	assert.Equal(t, m.Files.Base, c.Base)
}

// TestVerify_DetectsDamage covers each kind of mismatch between the stored
// files and their manifest.
func TestVerify_DetectsDamage(t *testing.T) {
	tests := []struct {
		name   string
		damage func(t *testing.T, store *sink.Memory, m *Manifest)
		want   string
	}{
		{
			name: "truncated density",
			damage: func(t *testing.T, store *sink.Memory, m *Manifest) {
				put(t, store, m.Files.Density, []byte{1, 2})
			},
			want: "holds 2 voxels, want 4",
		},
		{
			name: "material stream not a multiple of four bytes",
			damage: func(t *testing.T, store *sink.Memory, m *Manifest) {
				put(t, store, m.Files.Material, []byte{0, 0, 0})
			},
			want: "not a multiple of 4",
		},
		{
			name: "material id naming no sphere",
			damage: func(t *testing.T, store *sink.Memory, m *Manifest) {
				vol := testVolume()
				vol.Material[1] = 7
				put(t, store, m.Files.Material, EncodeMaterial(vol))
			},
			want: "material 7, which names no sphere",
		},
		{
			name: "occupancy differs from manifest",
			damage: func(t *testing.T, store *sink.Memory, m *Manifest) {
				vol := testVolume()
				vol.Material[0] = 0
				put(t, store, m.Files.Material, EncodeMaterial(vol))
			},
			want: "occupied fraction is 0.750000",
		},
		{
			name: "spheres out of order",
			damage: func(t *testing.T, store *sink.Memory, m *Manifest) {
				m.Spheres[0], m.Spheres[1] = m.Spheres[1], m.Spheres[0]
				data, err := MarshalManifest(m)
				require.NoError(t, err)
				put(t, store, m.Files.Manifest, data)
			},
			want: "not ordered by radius then id",
		},
		{
			name: "missing material file",
			damage: func(t *testing.T, store *sink.Memory, m *Manifest) {
				m.Files.Material = "gone.sgm"
				data, err := MarshalManifest(m)
				require.NoError(t, err)
				put(t, store, m.Files.Manifest, data)
			},
			want: "failed to read memory://gone.sgm",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, m := writeVariation(t)
			tt.damage(t, store, m)

			c := Verify(context.Background(), store, m.Files.Manifest)
			require.False(t, c.OK())
			assert.Contains(t, c.Problems[0], tt.want)
		})
	}
}

// TestVerify_UnreadableManifest verifies that a manifest that does not
// parse is reported rather than skipped.
func TestVerify_UnreadableManifest(t *testing.T) {
	store := sink.NewMemory()
	put(t, store, "a_0_i1_1x1x1.yaml", []byte("runId: nope\n"))

	c := Verify(context.Background(), store, "a_0_i1_1x1x1.yaml")
	require.Len(t, c.Problems, 1)
	assert.Contains(t, c.Problems[0], "run id")
}
