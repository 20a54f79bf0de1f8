package output

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/mmr-tortoise/volsynth/internal/model"
	"github.com/mmr-tortoise/volsynth/internal/stats"
)

// Timings are the wall-clock durations of the stages of one variation.
type Timings struct {
	Spheres  time.Duration `json:"spheres" yaml:"spheres"`
	Classify time.Duration `json:"classify" yaml:"classify"`
	Write    time.Duration `json:"write,omitempty" yaml:"write,omitempty"`
}

// Manifest describes one generated variation. It carries everything needed
// to reproduce the volume: the variation seed and the configuration.
type Manifest struct {
	RunID     string    `json:"runId" yaml:"runId"`
	Variation int       `json:"variation" yaml:"variation"`
	Seed      uint64    `json:"seed" yaml:"seed"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	Generator string    `json:"generator" yaml:"generator"`

	Backend string `json:"backend" yaml:"backend"`
	Device  string `json:"device" yaml:"device"`

	Files   FileSet      `json:"files" yaml:"files"`
	Config  model.Config `json:"config" yaml:"config"`
	Timings Timings      `json:"timings" yaml:"timings"`

	Occupied  float64          `json:"occupied" yaml:"occupied"`
	Materials []stats.Material `json:"materials" yaml:"materials"`
	Spheres   model.SphereSet  `json:"spheres" yaml:"spheres"`
}

// NewRunID returns a fresh identifier shared by every variation of a run.
func NewRunID() string {
	return uuid.NewString()
}

// NewManifest assembles the manifest of variation v. The per-material
// statistics are computed from vol.
func NewManifest(runID string, v int, seed uint64, cfg model.Config, set model.SphereSet, vol *model.Volume) *Manifest {
	summary := stats.Summarize(vol)
	return &Manifest{
		RunID:     runID,
		Variation: v,
		Seed:      seed,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Backend:   vol.Backend,
		Device:    vol.Device,
		Files:     Names(cfg, v),
		Config:    cfg,
		Occupied:  stats.Occupied(summary),
		Materials: summary,
		Spheres:   set,
	}
}

// MarshalManifest encodes m as YAML with a header comment.
func MarshalManifest(m *Manifest) ([]byte, error) {
	body, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize manifest: %w", err)
	}
	header := fmt.Sprintf("# Generated by volsynth for %s (run %s)\n# Rerun with --seed %d -v 1 to reproduce this variation\n",
		m.Files.Base, m.RunID, m.Seed)
	return append([]byte(header), body...), nil
}

// ParseManifest decodes a manifest written by MarshalManifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if _, err := uuid.Parse(m.RunID); err != nil {
		return nil, fmt.Errorf("manifest run id %q: %w", m.RunID, err)
	}
	return &m, nil
}
