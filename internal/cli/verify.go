// Package cli: verify.go implements the "volsynth verify" command.
//
// The verify command reads every variation stored at an output location
// back through its manifest and reports files that do not match it.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/volsynth/internal/config"
	"github.com/mmr-tortoise/volsynth/internal/model"
	"github.com/mmr-tortoise/volsynth/internal/output"
	"github.com/mmr-tortoise/volsynth/internal/sink"
)

// verifyFlags holds the flag values for the verify command.
type verifyFlags struct {
	// out is the location to verify, as accepted by generate --out.
	out string
}

// NewVerifyCommand creates the "verify" cobra command.
func NewVerifyCommand() *cobra.Command {
	flags := &verifyFlags{}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check stored volumes against their manifests",
		Long: `Check every generated variation at an output location.

Each manifest is read back together with its .raw and .sgm files. The
command fails if a file is missing, holds the wrong number of voxels,
uses a material id that names no sphere of the manifest, or disagrees
with the occupied fraction the manifest records.

Examples:
  volsynth verify --out ./volumes
  volsynth verify --out s3://bucket/volumes --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd.Context(), cmd.OutOrStdout(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.out, "out", config.DefaultOutput, "Output location to verify")
	return cmd
}

// runVerify is the main logic function for the verify command.
func runVerify(ctx context.Context, w io.Writer, flags *verifyFlags) error {
	// Step 1: Open the output location.
	store, err := sink.Open(ctx, flags.out)
	if err != nil {
		return model.WrapCLIError(model.ExitOutputFailed,
			fmt.Sprintf("failed to open output location %s", flags.out), err)
	}

	// Step 2: Find the manifests.
	keys, err := output.ManifestKeys(ctx, store)
	if err != nil {
		return model.WrapCLIError(model.ExitOutputFailed, "failed to list output files", err)
	}
	VerboseLog("Found %d manifest(s) at %s", len(keys), flags.out)

	// Step 3: Check each variation.
	checks := make([]output.Check, 0, len(keys))
	failed := 0
	for _, key := range keys {
		c := output.Verify(ctx, store, key)
		if !c.OK() {
			failed++
		}
		checks = append(checks, c)
	}

	// Step 4: Output results in the appropriate format.
	printVerifyResult(w, checks)
	if failed > 0 {
		return model.NewCLIError(model.ExitVerificationFailed,
			fmt.Sprintf("%d of %d variation(s) failed verification", failed, len(checks)))
	}
	return nil
}

// printVerifyResult outputs the checks in text or JSON format, depending
// on the global --json flag.
func printVerifyResult(w io.Writer, checks []output.Check) {
	if IsJSONOutput() {
		type resultJSON struct {
			Variations []output.Check `json:"variations"`
		}
		data, _ := json.MarshalIndent(resultJSON{Variations: checks}, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	if len(checks) == 0 {
		fmt.Fprintln(w, "No generated volumes found.")
		return
	}

	fmt.Fprintf(w, "%-40s %-6s %s\n", "MANIFEST", "STATUS", "DETAIL")
	for _, c := range checks {
		status, detail := "ok", "-"
		if !c.OK() {
			status, detail = "FAILED", strings.Join(c.Problems, "; ")
		}
		fmt.Fprintf(w, "%-40s %-6s %s\n", c.Manifest, status, detail)
	}
}
