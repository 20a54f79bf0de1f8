// Package cli: generate.go implements "volsynth generate", which is also
// the root command's default action.
//
// A run resolves the configuration (defaults, then the optional config file,
// then flags), picks the execution backend, and for each variation generates
// a sphere set, classifies the grid and writes the output files.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/volsynth/internal/accel"
	"github.com/mmr-tortoise/volsynth/internal/config"
	"github.com/mmr-tortoise/volsynth/internal/metrics"
	"github.com/mmr-tortoise/volsynth/internal/model"
	"github.com/mmr-tortoise/volsynth/internal/monitoring"
	"github.com/mmr-tortoise/volsynth/internal/output"
	"github.com/mmr-tortoise/volsynth/internal/sink"
	"github.com/mmr-tortoise/volsynth/internal/spheres"
	"github.com/mmr-tortoise/volsynth/internal/volume"
)

// generateFlags holds the flag values for the generate command.
// Values are kept as raw strings so malformed input can fall back to the
// default with a warning instead of failing flag parsing.
type generateFlags struct {
	// configFile is an optional YAML or JSONC file read before flags.
	configFile string

	overrides config.Overrides
}

// NewGenerateCommand creates the "generate" cobra command.
func NewGenerateCommand() *cobra.Command {
	flags := &generateFlags{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate synthetic volumes",
		Long: `Generate one or more synthetic volumes.

Malformed flag values are replaced by their defaults with a warning.
Invalid combinations such as a minimum radius above the maximum or a grid
of more than 2^31-1 voxels are rejected before generation starts. The
radius interval may be given as one argument ("0.01 0.05") or two, and
-v 0 runs nothing.

Examples:
  volsynth generate -o phantom -v 2 -i 500 -r 0.05
  volsynth generate -r 0.01 0.05 -d 128x128x128
  volsynth generate -d 64x64x64 --backend auto --device host:0:0
  volsynth generate --config volsynth.yaml --metrics-file run.prom`,

		Args: radiusArgs(flags),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, flags, args)
		},
	}

	addGenerateFlags(cmd, flags)
	return cmd
}

// addGenerateFlags binds the generation flags to cmd. The short flags keep
// the names of the original single-command tool.
func addGenerateFlags(cmd *cobra.Command, flags *generateFlags) {
	o := &flags.overrides
	f := cmd.Flags()
	f.StringVar(&flags.configFile, "config", "", "Configuration file (.yaml, .yml, .json or .jsonc)")
	f.StringVarP(&o.Name, "name", "o", "", fmt.Sprintf("Output name prefix (default %q)", config.DefaultName))
	f.StringVarP(&o.Variations, "variations", "v", "", fmt.Sprintf("Number of variations (default %d)", config.DefaultVariations))
	f.StringVarP(&o.SphereCount, "instances", "i", "", fmt.Sprintf("Number of spheres per volume (default %d)", config.DefaultSphereCount))
	f.StringVarP(&o.Radius, "radius", "r", "", fmt.Sprintf("Radius interval \"min max\"; one value means [0, value] (default %v %v)", config.DefaultMinRadius, config.DefaultMaxRadius))
	f.StringVarP(&o.EmptyThreshold, "empty", "n", "", fmt.Sprintf("Largest density of empty space, 0-255 (default %d)", config.DefaultEmptyThreshold))
	f.StringVarP(&o.NoiseSpread, "quality", "q", "", fmt.Sprintf("Density noise spread; larger means more noise (default %d)", config.DefaultNoiseSpread))
	f.StringVarP(&o.Dims, "dims", "d", "", fmt.Sprintf("Grid dimensions XxYxZ (default %dx%dx%d)", config.DefaultDimension, config.DefaultDimension, config.DefaultDimension))
	f.StringVar(&o.Seed, "seed", "", "Random seed; 0 or unset picks a fresh one")
	f.StringVar(&o.Backend, "backend", "", fmt.Sprintf("Execution backend: scalar, accel, auto (default %s)", config.DefaultBackend))
	f.StringVar(&o.Device, "device", "", "Accelerator device as driver[:platform[:device]] (default host:0:0)")
	f.StringVar(&o.Workers, "workers", "", "Accelerator worker goroutines; 0 means one per CPU")
	f.StringVar(&o.Output, "out", "", "Output directory, s3://bucket/prefix or memory:// (default .)")
	f.StringVar(&o.MetricsFile, "metrics-file", "", "Write prometheus metrics of the run to this textfile")
}

// radiusArgs accepts the one positional argument "-r min max" leaves
// behind when the interval is given as two words, as in the original
// single-command tool. Anything else is rejected like cobra.NoArgs.
func radiusArgs(flags *generateFlags) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 && cmd.Flags().Changed("radius") && len(config.SplitRadius(flags.overrides.Radius)) == 1 {
			return nil
		}
		return cobra.NoArgs(cmd, args)
	}
}

// variationResult summarises one generated variation for output.
type variationResult struct {
	Variation int           `json:"variation"`
	Seed      uint64        `json:"seed"`
	Backend   string        `json:"backend"`
	Device    string        `json:"device"`
	Spheres   int           `json:"spheres"`
	Occupied  float64       `json:"occupied"`
	Files     []string      `json:"files"`
	Duration  time.Duration `json:"durationNs"`
}

// generateResult is the outcome of a whole run.
type generateResult struct {
	RunID      string            `json:"runId"`
	Seed       uint64            `json:"seed"`
	Dims       string            `json:"dims"`
	Output     string            `json:"output"`
	Variations []variationResult `json:"variations"`
}

// runGenerate is the main logic function for the generate command.
func runGenerate(cmd *cobra.Command, flags *generateFlags, args []string) error {
	ctx := cmd.Context()
	defer monitoring.SetLogger(monitoring.SetLogger(stderrLogf))

	// "-r 0.01 0.05": the upper bound arrives as a positional argument.
	if len(args) == 1 {
		flags.overrides.Radius += " " + args[0]
	}

	// Step 1: Resolve the configuration: defaults, config file, flags.
	cfg, err := resolveConfig(flags)
	if err != nil {
		return err
	}
	cfg.Seed = config.ResolveSeed(cfg)
	VerboseLog("Configuration: %d variation(s) of %d spheres on %s, backend %s, seed %d",
		cfg.Variations, cfg.SphereCount, cfg.Dims, cfg.Backend, cfg.Seed)

	// Step 2: Select the execution backend.
	backend, err := newBackend(cfg)
	if err != nil {
		return err
	}

	// Step 3: Open the output location.
	store, err := sink.Open(ctx, cfg.Output)
	if err != nil {
		return model.WrapCLIError(model.ExitOutputFailed,
			fmt.Sprintf("failed to open output location %s", cfg.Output), err)
	}
	VerboseLog("Writing to %s (%s)", cfg.Output, store.Driver())

	// Step 4: Generate every variation in turn.
	rec := metrics.New()
	run := &generation{
		cfg:     cfg,
		runID:   output.NewRunID(),
		backend: backend,
		writer:  output.NewWriter(store, rec),
		metrics: rec,
	}
	result := generateResult{
		RunID:      run.runID,
		Seed:       cfg.Seed,
		Dims:       cfg.Dims.String(),
		Output:     cfg.Output,
		Variations: make([]variationResult, 0, cfg.Variations),
	}
	for v := 0; v < cfg.Variations; v++ {
		res, err := run.variation(ctx, v)
		if err != nil {
			return err
		}
		result.Variations = append(result.Variations, res)
	}

	// Step 5: Export run metrics if requested.
	if cfg.MetricsFile != "" {
		if err := rec.WriteTextfile(cfg.MetricsFile); err != nil {
			return model.WrapCLIError(model.ExitOutputFailed, "failed to write metrics file", err)
		}
		VerboseLog("Metrics written to %s", cfg.MetricsFile)
	}

	// Step 6: Output results in the appropriate format.
	printGenerateResult(cmd.OutOrStdout(), result)
	return nil
}

// resolveConfig merges the config file and flags over the defaults, prints
// warnings for values that fell back, and validates the result.
func resolveConfig(flags *generateFlags) (model.Config, error) {
	cfg := config.Default()
	if flags.configFile != "" {
		loaded, err := config.Load(flags.configFile)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
		VerboseLog("Loaded configuration from %s", flags.configFile)
	}

	cfg, warnings := config.Apply(cfg, flags.overrides)
	for _, w := range warnings {
		printWarning("%s", w)
	}

	if verrs := config.Validate(cfg); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i := range verrs {
			errs[i] = &verrs[i]
		}
		return cfg, model.WrapCLIError(model.ExitInvalidConfig, "invalid configuration", errors.Join(errs...))
	}
	return cfg, nil
}

// newBackend builds the backend named by cfg.Backend. The auto backend
// tries the accelerator and falls back to the scalar path when no device
// can be initialised.
func newBackend(cfg model.Config) (volume.Backend, error) {
	if cfg.Backend == model.BackendScalar {
		return volume.NewScalar(), nil
	}

	sel, err := accel.ParseSelector(cfg.Device)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitInvalidConfig, "invalid device selector", err)
	}
	b := accel.NewBackend(sel, cfg.Workers)
	b.Trace = func(from, to accel.State) {
		VerboseLog("Accelerator %s: %s -> %s", sel, from, to)
	}

	if cfg.Backend == model.BackendAuto {
		return &volume.Fallback{
			Primary:        b,
			Secondary:      volume.NewScalar(),
			ShouldFallback: accel.IsInitError,
		}, nil
	}
	return b, nil
}

// generation carries the state shared by the variations of one run.
type generation struct {
	cfg     model.Config
	runID   string
	backend volume.Backend
	writer  *output.Writer
	metrics *metrics.Recorder
}

// variation generates and writes variation v.
func (g *generation) variation(ctx context.Context, v int) (variationResult, error) {
	started := time.Now()
	seed := config.VariationSeed(g.cfg.Seed, v)

	// Sphere set.
	set, err := spheres.Generate(volume.NewRand(seed, volume.StreamSpheres), spheres.ParamsFromConfig(g.cfg))
	if err != nil {
		return variationResult{}, model.WrapCLIError(model.ExitGenerationFailed,
			fmt.Sprintf("failed to generate spheres for variation %d", v), err)
	}
	tSpheres := time.Since(started)
	g.metrics.ObserveStage("spheres", tSpheres)

	// Classification.
	start := time.Now()
	vol, err := g.backend.Run(ctx, volume.Job{Config: g.cfg, Spheres: set, Seed: seed})
	if err != nil {
		if accel.IsInitError(err) {
			return variationResult{}, model.WrapCLIError(model.ExitAcceleratorUnavailable,
				"accelerator unavailable (use --backend auto to fall back to the scalar backend)", err)
		}
		return variationResult{}, model.WrapCLIError(model.ExitGenerationFailed,
			fmt.Sprintf("failed to generate variation %d", v), err)
	}
	tClassify := time.Since(start)
	g.metrics.ObserveStage("classify", tClassify)
	g.metrics.ObserveVolume(vol.Backend, vol.Len())
	if g.cfg.Backend != model.BackendScalar && vol.Backend == volume.ScalarName {
		g.metrics.Fallback()
	}
	VerboseLog("Variation %d: %d spheres classified on %s in %s", v, len(set), vol.Device, tClassify)

	// Output files.
	m := output.NewManifest(g.runID, v, seed, g.cfg, set, vol)
	m.Timings.Spheres = tSpheres
	m.Timings.Classify = tClassify
	infos, err := g.writer.Write(ctx, vol, m)
	if err != nil {
		return variationResult{}, model.WrapCLIError(model.ExitOutputFailed,
			fmt.Sprintf("failed to write variation %d", v), err)
	}
	g.metrics.ObserveStage("write", m.Timings.Write)

	files := make([]string, 0, len(infos))
	for _, info := range infos {
		files = append(files, g.writer.Store.Location(info.Key))
	}
	return variationResult{
		Variation: v,
		Seed:      seed,
		Backend:   vol.Backend,
		Device:    vol.Device,
		Spheres:   len(set),
		Occupied:  m.Occupied,
		Files:     files,
		Duration:  time.Since(started),
	}, nil
}

// printGenerateResult outputs the run summary in text or JSON format,
// depending on the global --json flag.
func printGenerateResult(w io.Writer, result generateResult) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	fmt.Fprintf(w, "Run %s (seed %d, %s)\n", result.RunID, result.Seed, result.Dims)
	for _, v := range result.Variations {
		fmt.Fprintf(w, "  variation %d: %d spheres, %.1f%% occupied, %s on %s in %s\n",
			v.Variation, v.Spheres, 100*v.Occupied, v.Backend, v.Device, v.Duration.Round(time.Millisecond))
		for _, f := range v.Files {
			fmt.Fprintf(w, "    %s\n", f)
		}
	}
}
