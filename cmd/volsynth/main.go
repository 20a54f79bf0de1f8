// Package main is the entry point for the volsynth CLI.
//
// volsynth generates synthetic volumetric datasets: random spheres in a
// voxel grid, written as density and material arrays. All functionality
// lives in internal/cli; main only injects the build information.
package main

import (
	"github.com/mmr-tortoise/volsynth/internal/cli"
)

// version, commit, and date are set at build time via ldflags
// (-X main.version=...). They are shown by --version.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	rootCmd := cli.NewRootCommand()
	cli.Execute(rootCmd)
}
