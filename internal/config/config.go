package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/mmr-tortoise/volsynth/internal/model"
)

// Built-in defaults.
const (
	DefaultName           = "untitled"
	DefaultVariations     = 1
	DefaultSphereCount    = 100
	DefaultMinRadius      = float32(0.001)
	DefaultMaxRadius      = float32(0.1)
	DefaultEmptyThreshold = uint32(30)
	DefaultNoiseSpread    = uint32(10)
	DefaultDimension      = 256
	DefaultBackend        = model.BackendAccel
	DefaultDevice         = "host"
	DefaultOutput         = "."
)

// Default returns the configuration used when nothing is specified.
func Default() model.Config {
	return model.Config{
		Name:           DefaultName,
		Variations:     DefaultVariations,
		SphereCount:    DefaultSphereCount,
		MinRadius:      DefaultMinRadius,
		MaxRadius:      DefaultMaxRadius,
		EmptyThreshold: DefaultEmptyThreshold,
		NoiseSpread:    DefaultNoiseSpread,
		Dims:           model.Dimensions{X: DefaultDimension, Y: DefaultDimension, Z: DefaultDimension},
		Backend:        DefaultBackend,
		Device:         DefaultDevice,
		Output:         DefaultOutput,
	}
}

// Load reads the configuration file at path over the defaults. The format
// follows the extension: .yaml and .yml are YAML, .json and .jsonc are
// JSON with comments allowed. Keys absent from the file keep their default.
//
// Returns a CLIError with ExitInvalidConfig if the file is missing or
// cannot be parsed.
func Load(path string) (model.Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, model.WrapCLIError(model.ExitInvalidConfig,
				fmt.Sprintf("config file not found: %s", path), err)
		}
		return cfg, model.WrapCLIError(model.ExitInvalidConfig,
			fmt.Sprintf("failed to read config file %s", path), err)
	}

	if err := decode(path, data, &cfg); err != nil {
		return Default(), model.WrapCLIError(model.ExitInvalidConfig,
			fmt.Sprintf("failed to parse config file %s", path), err)
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *model.Config) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		// An empty document decodes to io.EOF; treat it as "no overrides".
		if len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		return yaml.Unmarshal(data, cfg)
	case ".json", ".jsonc":
		return json.Unmarshal(jsonc.ToJSON(data), cfg)
	default:
		return fmt.Errorf("unsupported config format %q (use .yaml, .yml, .json or .jsonc)", ext)
	}
}

// ResolveSeed returns cfg.Seed, or a fresh non-zero seed when it is zero.
func ResolveSeed(cfg model.Config) uint64 {
	if cfg.Seed != 0 {
		return cfg.Seed
	}
	for {
		if s := rand.Uint64(); s != 0 {
			return s
		}
	}
}

// VariationSeed derives the seed of variation v (0-based) from the run seed.
// Variation 0 uses the run seed itself, so a single-variation run is
// reproduced by the seed recorded in its manifest.
func VariationSeed(seed uint64, v int) uint64 {
	if v == 0 {
		return seed
	}
	// splitmix64 finaliser over seed + v*golden gamma.
	z := seed + uint64(v)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
