package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRecorder_WriteTextfile verifies that observations end up in the
// textfile output.
func TestRecorder_WriteTextfile(t *testing.T) {
	r := New()
	r.ObserveVolume("accel", 64)
	r.ObserveVolume("accel", 64)
	r.ObserveVolume("scalar", 8)
	r.ObserveStage("classify", 20*time.Millisecond)
	r.ObserveOutput("raw", 64)
	r.Fallback()

	path := filepath.Join(t.TempDir(), "volsynth.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, `volsynth_volumes_generated_total{backend="accel"} 2`)
	assert.Contains(t, text, `volsynth_voxels_classified_total{backend="accel"} 128`)
	assert.Contains(t, text, `volsynth_voxels_classified_total{backend="scalar"} 8`)
	assert.Contains(t, text, `volsynth_backend_fallbacks_total 1`)
	assert.Contains(t, text, `volsynth_output_bytes_total{kind="raw"} 64`)
	assert.Contains(t, text, `volsynth_stage_duration_seconds_count{stage="classify"} 1`)
}

// TestRecorder_Gather verifies that every collector is registered.
func TestRecorder_Gather(t *testing.T) {
	r := New()
	r.ObserveVolume("scalar", 1)
	r.ObserveStage("spheres", time.Millisecond)
	r.ObserveOutput("sgm", 4)

	families, err := r.Registry().Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"volsynth_volumes_generated_total",
		"volsynth_voxels_classified_total",
		"volsynth_backend_fallbacks_total",
		"volsynth_output_bytes_total",
		"volsynth_stage_duration_seconds",
	} {
		assert.True(t, names[want], "missing %s", want)
	}
}
