package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dantte-lp/gobroadlink/pkg/broadlink"
)

// errBadPowerState rejects power arguments other than on/off/status.
var errBadPowerState = errors.New("expected on, off, or status")

func powerCmd() *cobra.Command {
	var socket int

	cmd := &cobra.Command{
		Use:   "power <on|off|status>",
		Short: "Switch or query a plug or power strip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := authTarget(cmd)
			if err != nil {
				return err
			}
			defer dev.Close()

			switch args[0] {
			case "on", "off":
				on := args[0] == "on"
				if dev.Family() == broadlink.FamilyMP1 {
					return dev.SetSocketPower(cmd.Context(), socket, on)
				}
				return dev.SetPower(cmd.Context(), on)

			case "status":
				return printPowerStatus(cmd, dev)

			default:
				return fmt.Errorf("%q: %w", args[0], errBadPowerState)
			}
		},
	}

	cmd.Flags().IntVar(&socket, "socket", 1, "strip socket number (MP1 only)")

	return cmd
}

// printPowerStatus renders the power state for either plug dialect.
func printPowerStatus(cmd *cobra.Command, dev *broadlink.Device) error {
	if dev.Family() == broadlink.FamilyMP1 {
		states, err := dev.CheckSocketPower(cmd.Context())
		if err != nil {
			return err
		}
		out, err := formatSockets(states, outputFormat)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	}

	on, err := dev.CheckPower(cmd.Context())
	if err != nil {
		return err
	}
	out, err := formatPower(on, outputFormat)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

func energyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "energy",
		Short: "Read the energy meter of a metering plug",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dev, err := authTarget(cmd)
			if err != nil {
				return err
			}
			defer dev.Close()

			kwh, err := dev.GetEnergy(cmd.Context())
			if err != nil {
				return err
			}
			out, err := formatEnergy(kwh, outputFormat)
			if err != nil {
				return err
			}
			fmt.Print(out)

			return nil
		},
	}
}
