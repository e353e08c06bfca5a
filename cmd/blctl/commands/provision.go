package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dantte-lp/gobroadlink/pkg/broadlink"
)

// errUnknownSecurity rejects unrecognized --security values.
var errUnknownSecurity = errors.New("unknown security mode, expected none, wep, wpa1, wpa2, or wpa12")

func provisionCmd() *cobra.Command {
	var (
		ssid     string
		password string
		security string
	)

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Broadcast Wi-Fi credentials to a device in AP mode",
		Long: "Sends the setup broadcast that joins a factory-reset device to " +
			"the given network. Connect this machine to the device's ad-hoc " +
			"access point first. No response is expected.",
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			mode, err := parseSecurityMode(security)
			if err != nil {
				return err
			}

			opts, err := discoverOptions(0)
			if err != nil {
				return err
			}

			if err := broadlink.Provision(ssid, password, mode, opts); err != nil {
				return err
			}
			fmt.Println("Provisioning broadcast sent.")
			return nil
		},
	}

	cmd.Flags().StringVar(&ssid, "ssid", "", "network SSID (required)")
	cmd.Flags().StringVar(&password, "password", "", "network password")
	cmd.Flags().StringVar(&security, "security", "wpa2",
		"security mode: none, wep, wpa1, wpa2, wpa12")
	_ = cmd.MarkFlagRequired("ssid")

	return cmd
}

// parseSecurityMode maps the --security flag to the wire value.
func parseSecurityMode(s string) (broadlink.SecurityMode, error) {
	switch s {
	case "none":
		return broadlink.SecurityNone, nil
	case "wep":
		return broadlink.SecurityWEP, nil
	case "wpa1":
		return broadlink.SecurityWPA1, nil
	case "wpa2":
		return broadlink.SecurityWPA2, nil
	case "wpa12":
		return broadlink.SecurityWPA12, nil
	default:
		return 0, fmt.Errorf("%q: %w", s, errUnknownSecurity)
	}
}
