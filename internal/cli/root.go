// Package cli implements the cobra-based CLI commands for volsynth.
//
// The root command generates volumes directly (it shares its flags with the
// generate subcommand, so "volsynth -i 50" and "volsynth generate -i 50" are
// equivalent). The devices subcommand lists the accelerator devices a run
// can select with --device, and verify checks stored volumes against their
// manifests.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/volsynth/internal/model"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command,
// which makes them available to every subcommand automatically.
var (
	// jsonOutput controls whether command output is formatted as JSON.
	jsonOutput bool

	// verbose enables detailed logging output for debugging.
	// When true, backend state transitions and stage timings are printed
	// to stderr.
	verbose bool
)

// Version, Commit, and Date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
//
// Unlike a pure dispatcher, the root command runs a generation when invoked
// without a subcommand, keeping the original single-command usage
// ("volsynth -o name -v 3 -d 64x64x64") working.
func NewRootCommand() *cobra.Command {
	flags := &generateFlags{}

	rootCmd := &cobra.Command{
		Use:   "volsynth",
		Short: "Synthetic 3D volume generator",
		Long: `volsynth generates synthetic volumetric test datasets.

Random spheres are placed in the unit cube, the cube is voxelized into a
regular grid, and every voxel gets the id of the smallest sphere containing
it (or -1 for empty space) plus a noisy density around that sphere's base
density. Each variation is written as a .raw density file, a .sgm material
file and a .yaml manifest.

Examples:
  volsynth -o phantom -v 3 -i 200 -d 128x128x128
  volsynth -r "0.01 0.05" --seed 42 --backend scalar
  volsynth generate --config volsynth.yaml --out s3://bucket/volumes
  volsynth -r 0.01 0.05 -v 0
  volsynth devices --json
  volsynth verify --out ./volumes`,

		Args: radiusArgs(flags),

		// SilenceUsage prevents cobra from printing usage on every error.
		// We handle error output ourselves for cleaner UX.
		SilenceUsage: true,

		// SilenceErrors prevents cobra from printing errors automatically.
		// We format errors ourselves (text or JSON based on --json flag).
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, flags, args)
		},
	}

	// -v is the variation count, so verbose takes -V.
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "V", false, "Enable verbose output")

	addGenerateFlags(rootCmd, flags)

	rootCmd.AddCommand(NewGenerateCommand())
	rootCmd.AddCommand(NewDevicesCommand())
	rootCmd.AddCommand(NewVerifyCommand())

	return rootCmd
}

// Execute runs the root command and handles exit codes.
// This is the main entry point called from main.go.
//
// CLIError types carry their own exit codes; other errors default to
// exit code 1.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		if cliErr, ok := err.(*model.CLIError); ok {
			printError(cliErr.Message, cliErr.Err)
			os.Exit(int(cliErr.Code))
		}

		printError(err.Error(), nil)
		os.Exit(int(model.ExitGeneralError))
	}
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag.
func printError(message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		// Errors go to stderr even in JSON mode; stdout is reserved for
		// successful command output.
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		if underlying != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, underlying)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", message)
		}
	}
}

// printWarning reports a recoverable problem, such as a malformed flag
// value that was replaced by its default.
func printWarning(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
}

// stderrLogf routes core package log output to stderr without timestamps.
func stderrLogf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

// VerboseLog prints a message to stderr only when verbose mode is enabled.
func VerboseLog(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}

// IsJSONOutput returns whether the --json flag is set.
// Subcommands use this to decide their output format.
func IsJSONOutput() bool {
	return jsonOutput
}
