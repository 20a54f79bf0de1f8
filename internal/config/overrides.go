package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mmr-tortoise/volsynth/internal/accel"
	"github.com/mmr-tortoise/volsynth/internal/model"
)

// Overrides are raw command-line values. An empty string means the flag was
// not given.
type Overrides struct {
	Name           string
	Variations     string
	SphereCount    string
	Radius         string
	EmptyThreshold string
	NoiseSpread    string
	Dims           string
	Seed           string
	Backend        string
	Device         string
	Workers        string
	Output         string
	MetricsFile    string
}

// Apply merges o over cfg. Malformed values keep the value already in cfg
// and are reported as warnings; Apply never fails.
func Apply(cfg model.Config, o Overrides) (model.Config, []string) {
	var warnings []string
	warn := func(w string) {
		if w != "" {
			warnings = append(warnings, w)
		}
	}

	if o.Name != "" {
		cfg.Name = o.Name
	}
	if o.Variations != "" {
		var w string
		cfg.Variations, w = ParseCount("number of variations", o.Variations, cfg.Variations)
		warn(w)
	}
	if o.SphereCount != "" {
		var w string
		cfg.SphereCount, w = ParseCount("number of instances", o.SphereCount, cfg.SphereCount)
		warn(w)
	}
	if o.Radius != "" {
		var w []string
		cfg.MinRadius, cfg.MaxRadius, w = ParseRadius(o.Radius, cfg.MinRadius, cfg.MaxRadius)
		warnings = append(warnings, w...)
	}
	if o.EmptyThreshold != "" {
		var w string
		cfg.EmptyThreshold, w = ParseUint32("max empty space density", o.EmptyThreshold, cfg.EmptyThreshold)
		warn(w)
	}
	if o.NoiseSpread != "" {
		var w string
		cfg.NoiseSpread, w = ParseUint32("quality variability", o.NoiseSpread, cfg.NoiseSpread)
		warn(w)
	}
	if o.Dims != "" {
		var w string
		cfg.Dims, w = ParseDimensions(o.Dims, cfg.Dims)
		warn(w)
	}
	if o.Seed != "" {
		if v, err := strconv.ParseUint(strings.TrimSpace(o.Seed), 0, 64); err != nil {
			warn(fmt.Sprintf("seed %q is not a valid unsigned integer, defaulting to %d", o.Seed, cfg.Seed))
		} else {
			cfg.Seed = v
		}
	}
	if o.Backend != "" {
		if kind, err := model.ParseBackendKind(o.Backend); err != nil {
			warn(fmt.Sprintf("%v, defaulting to %s", err, cfg.Backend))
		} else {
			cfg.Backend = kind
		}
	}
	if o.Device != "" {
		if sel, err := accel.ParseSelector(o.Device); err != nil {
			warn(fmt.Sprintf("%v, defaulting to %s", err, cfg.Device))
		} else {
			cfg.Device = sel.String()
		}
	}
	if o.Workers != "" {
		var w string
		cfg.Workers, w = ParseCount("number of workers", o.Workers, cfg.Workers)
		warn(w)
	}
	if o.Output != "" {
		cfg.Output = o.Output
	}
	if o.MetricsFile != "" {
		cfg.MetricsFile = o.MetricsFile
	}
	return cfg, warnings
}

// ParseCount parses a non-negative integer. On failure it returns def and a
// warning naming what was being parsed.
func ParseCount(what, s string, def int) (int, string) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 0 {
		return def, fmt.Sprintf("%s %q not a valid integer, defaulting to %d", what, s, def)
	}
	return v, ""
}

// ParseUint32 parses an unsigned 32-bit integer. On failure it returns def
// and a warning.
func ParseUint32(what, s string, def uint32) (uint32, string) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return def, fmt.Sprintf("%s %q not a valid integer, defaulting to %d", what, s, def)
	}
	return uint32(v), ""
}

func parseFloat32(s string) (float32, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	return float32(v), err
}

// ParseRadius parses a radius interval given as "min,max", "min max" or a
// single "max". A single value means [0, max]. Each malformed bound keeps
// its default independently.
func ParseRadius(s string, defMin, defMax float32) (float32, float32, []string) {
	fields := SplitRadius(s)
	switch len(fields) {
	case 1:
		v, err := parseFloat32(fields[0])
		if err != nil {
			return defMin, defMax, []string{fmt.Sprintf("top radius limit %q not a valid float, defaulting to %v", fields[0], defMax)}
		}
		return 0, v, nil
	case 2:
		var warnings []string
		lo, err := parseFloat32(fields[0])
		if err != nil {
			lo = defMin
			warnings = append(warnings, fmt.Sprintf("bottom radius limit %q not a valid float, defaulting to %v", fields[0], defMin))
		}
		hi, err := parseFloat32(fields[1])
		if err != nil {
			hi = defMax
			warnings = append(warnings, fmt.Sprintf("top radius limit %q not a valid float, defaulting to %v", fields[1], defMax))
		}
		return lo, hi, warnings
	default:
		return defMin, defMax, []string{fmt.Sprintf("radius limits %q must be one or two floats, defaulting to %v and %v", s, defMin, defMax)}
	}
}

// SplitRadius splits a radius interval on commas and whitespace.
func SplitRadius(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
}

// ParseDimensions parses "XxYxZ". An axis that is not a non-negative
// integer keeps its value from def; a string without exactly three axes
// returns def. A zero axis parses here and is rejected by Validate.
func ParseDimensions(s string, def model.Dimensions) (model.Dimensions, string) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) != 3 {
		return def, fmt.Sprintf("not all volume dimensions were provided in %q, defaulting to %s", s, def)
	}

	axes := []*int{&def.X, &def.Y, &def.Z}
	names := "xyz"
	var bad []string
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 {
			bad = append(bad, names[i:i+1])
			continue
		}
		*axes[i] = v
	}
	if len(bad) > 0 {
		return def, fmt.Sprintf("some of the volume dimensions in %q were not valid (%s), keeping %s", s, strings.Join(bad, ""), def)
	}
	return def, ""
}
