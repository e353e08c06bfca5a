package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dantte-lp/gobroadlink/pkg/broadlink"
)

func bulbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulb",
		Short: "Read or write LB bulb state",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Read the bulb's full state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dev, err := authTarget(cmd)
			if err != nil {
				return err
			}
			defer dev.Close()

			state, err := dev.GetBulbState(cmd.Context())
			if err != nil {
				return err
			}
			out, err := formatBulbState(state, outputFormat)
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key=value>...",
		Short: "Write bulb state options",
		Long: "Writes one or more state options, e.g. 'bulb set pwr=1 " +
			"brightness=80 red=255 green=120 blue=0'. Recognized keys: pwr, " +
			"brightness, bulb_colormode, red, green, blue, hue, saturation, " +
			"colortemp.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			update, err := parseBulbArgs(args)
			if err != nil {
				return err
			}

			dev, err := authTarget(cmd)
			if err != nil {
				return err
			}
			defer dev.Close()

			return dev.SetBulbState(cmd.Context(), update)
		},
	})

	return cmd
}

// parseBulbArgs builds a state update from key=value arguments.
func parseBulbArgs(args []string) (*broadlink.BulbStateUpdate, error) {
	update := &broadlink.BulbStateUpdate{}
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
		if err := broadlink.ParseBulbOption(update, key, value); err != nil {
			return nil, err
		}
	}
	return update, nil
}
