package commands

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/spf13/cobra"

	"github.com/dantte-lp/gobroadlink/pkg/broadlink"
)

func discoverCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Broadcast-probe the local network for devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := discoverOptions(timeout)
			if err != nil {
				return err
			}

			devices, err := broadlink.Discover(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("discover: %w", err)
			}
			defer closeAll(devices)

			out, err := formatDevices(devices, outputFormat)
			if err != nil {
				return fmt.Errorf("format devices: %w", err)
			}
			fmt.Print(out)

			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0,
		"sweep duration (default from configuration)")

	return cmd
}

func helloCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "hello <ip>",
		Short: "Probe a single device directly (works on locked devices)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ip, err := netip.ParseAddr(args[0])
			if err != nil {
				return fmt.Errorf("parse address: %w", err)
			}

			opts, err := discoverOptions(timeout)
			if err != nil {
				return err
			}

			dev, err := broadlink.Hello(cmd.Context(), ip, opts)
			if err != nil {
				return err
			}
			defer dev.Close()

			out, err := formatDevices([]*broadlink.Device{dev}, outputFormat)
			if err != nil {
				return fmt.Errorf("format device: %w", err)
			}
			fmt.Print(out)

			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0,
		"probe timeout (default from configuration)")

	return cmd
}

// closeAll releases a batch of discovered handles.
func closeAll(devices []*broadlink.Device) {
	for _, d := range devices {
		d.Close()
	}
}
