// Package cli: devices.go implements the "volsynth devices" command.
//
// The devices command enumerates every device of every registered
// accelerator driver and prints the selector that --device accepts for it.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/volsynth/internal/accel"
	"github.com/mmr-tortoise/volsynth/internal/model"
)

// NewDevicesCommand creates the "devices" cobra command.
func NewDevicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List accelerator devices",
		Long: `List the accelerator devices available to the accel backend.

The SELECTOR column is the value to pass to --device.

Examples:
  volsynth devices
  volsynth devices --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevices(cmd.OutOrStdout())
		},
	}
}

// runDevices lists the devices. Drivers that fail to enumerate are reported
// as warnings; the command only fails when no device is found at all.
func runDevices(w io.Writer) error {
	devices, err := accel.ListDevices()
	if err != nil {
		if len(devices) == 0 {
			return model.WrapCLIError(model.ExitAcceleratorUnavailable, "no accelerator devices found", err)
		}
		printWarning("%v", err)
	}
	VerboseLog("Found %d device(s) across drivers %v", len(devices), accel.Drivers())

	printDevicesResult(w, devices)
	return nil
}

// printDevicesResult outputs the device list in text or JSON format,
// depending on the global --json flag.
func printDevicesResult(w io.Writer, devices []accel.DeviceInfo) {
	if IsJSONOutput() {
		type resultJSON struct {
			Devices []accel.DeviceInfo `json:"devices"`
		}
		// Empty slice instead of nil so the output shows [] rather than null.
		result := resultJSON{Devices: make([]accel.DeviceInfo, 0, len(devices))}
		result.Devices = append(result.Devices, devices...)

		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	if len(devices) == 0 {
		fmt.Fprintln(w, "No accelerator devices found.")
		return
	}

	fmt.Fprintf(w, "%-16s %-10s %-20s %-10s %s\n", "SELECTOR", "DRIVER", "PLATFORM", "DEVICE", "UNITS")
	for _, d := range devices {
		fmt.Fprintf(w, "%-16s %-10s %-20s %-10s %d\n", d.Selector, d.Driver, d.Platform, d.Device, d.ComputeUnits)
	}
}
