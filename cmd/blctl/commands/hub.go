package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dantte-lp/gobroadlink/pkg/broadlink"
)

func hubCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hub",
		Short: "Operate sub-devices behind an S3 hub",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List sub-devices paired to the hub",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dev, err := authTarget(cmd)
			if err != nil {
				return err
			}
			defer dev.Close()

			subdevices, err := dev.GetSubdevices(cmd.Context())
			if err != nil {
				return err
			}
			out, err := formatSubdevices(subdevices, outputFormat)
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <did>",
		Short: "Read a sub-device's switch state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := authTarget(cmd)
			if err != nil {
				return err
			}
			defer dev.Close()

			state, err := dev.GetHubState(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out, err := formatHubState(state, outputFormat)
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <did> <key=value>...",
		Short: "Write a sub-device's switch state (pwr, pwr1, pwr2)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := parseHubArgs(args[1:])
			if err != nil {
				return err
			}

			dev, err := authTarget(cmd)
			if err != nil {
				return err
			}
			defer dev.Close()

			return dev.SetHubState(cmd.Context(), args[0], state)
		},
	})

	return cmd
}

// parseHubArgs builds a hub state write from key=value arguments.
func parseHubArgs(args []string) (*broadlink.HubState, error) {
	state := &broadlink.HubState{}
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("parse option %q: want key=value: %w",
				arg, broadlink.ErrInvalidArgument)
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("parse option %q: %w", arg, err)
		}

		v := value
		switch key {
		case "pwr":
			state.Pwr = &v
		case "pwr1":
			state.Pwr1 = &v
		case "pwr2":
			state.Pwr2 = &v
		default:
			return nil, fmt.Errorf("hub option %q: %w", key, broadlink.ErrInvalidArgument)
		}
	}
	return state, nil
}
