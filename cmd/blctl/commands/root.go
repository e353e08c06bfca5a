// Package commands implements the blctl CLI commands.
package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dantte-lp/gobroadlink/internal/config"
	"github.com/dantte-lp/gobroadlink/pkg/broadlink"
)

var (
	// cfg is the loaded configuration, initialized in PersistentPreRunE.
	cfg *config.Config

	// logger is the CLI logger, honoring log.level and log.format.
	logger *slog.Logger

	// outputFormat controls the output format for all commands (table or json).
	outputFormat string

	// configPath is the YAML configuration file (optional).
	configPath string

	// Target selection flags: a configured device alias, or an explicit
	// host/mac/type triple.
	targetName string
	targetHost string
	targetMAC  string
	targetType uint16
)

// Target-selection errors.
var (
	errNoTarget      = errors.New("no target device: use --device, or --host with --mac and --type")
	errUnknownDevice = errors.New("device not found in configuration")
)

// rootCmd is the top-level cobra command for blctl.
var rootCmd = &cobra.Command{
	Use:   "blctl",
	Short: "Control Broadlink devices on the local network",
	Long: "blctl speaks the Broadlink LAN protocol directly: discovery, " +
		"authentication, IR/RF learning, and per-family device control.",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		logger = newLogger(cfg.Log)
		slog.SetDefault(logger)

		return nil
	},
	// Silence cobra's built-in usage/error printing so we control it.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "path to configuration file (YAML)")
	pf.StringVar(&outputFormat, "format", "table", "output format: table, json")
	pf.StringVar(&targetName, "device", "", "configured device name to target")
	pf.StringVar(&targetHost, "host", "", "target device IP address")
	pf.StringVar(&targetMAC, "mac", "", "target device MAC (display form)")
	pf.Uint16Var(&targetType, "type", 0, "target device type code")

	rootCmd.AddCommand(discoverCmd())
	rootCmd.AddCommand(helloCmd())
	rootCmd.AddCommand(provisionCmd())
	rootCmd.AddCommand(powerCmd())
	rootCmd.AddCommand(energyCmd())
	rootCmd.AddCommand(sensorsCmd())
	rootCmd.AddCommand(learnCmd())
	rootCmd.AddCommand(sendCmd())
	rootCmd.AddCommand(bulbCmd())
	rootCmd.AddCommand(hubCmd())
	rootCmd.AddCommand(monitorCmd())
	rootCmd.AddCommand(codesCmd())
	rootCmd.AddCommand(shellCmd())
	rootCmd.AddCommand(versionCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newLogger builds the CLI logger from the log configuration.
func newLogger(lc config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: config.ParseLogLevel(lc.Level)}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// targetDevice resolves the target flags to an authenticated-ready
// handle. --device selects a configured alias; otherwise --host, --mac
// and --type describe the device directly.
func targetDevice() (*broadlink.Device, error) {
	host, mac, devType, name, err := resolveTarget()
	if err != nil {
		return nil, err
	}

	return broadlink.NewDevice(broadlink.DeviceConfig{
		Host:       hostPort(host),
		MAC:        mac,
		DeviceType: devType,
		Name:       name,
	},
		broadlink.WithDeviceLogger(logger),
		broadlink.WithRequestTimeout(cfg.Network.Timeout),
		broadlink.WithRequestRetries(cfg.Network.Retries),
	)
}

// hostPort pairs a device address with the protocol port.
func hostPort(host netip.Addr) netip.AddrPort {
	return netip.AddrPortFrom(host, broadlink.DevicePort)
}

// resolveTarget picks the device description from the flags or the
// configuration.
func resolveTarget() (netip.Addr, [6]byte, uint16, string, error) {
	var mac [6]byte

	if targetName != "" {
		for _, dc := range cfg.Devices {
			if dc.Name != targetName {
				continue
			}
			host, err := dc.HostAddr()
			if err != nil {
				return netip.Addr{}, mac, 0, "", err
			}
			m, err := config.ParseMAC(dc.MAC)
			if err != nil {
				return netip.Addr{}, mac, 0, "", err
			}
			return host, m, dc.Type, dc.Name, nil
		}
		return netip.Addr{}, mac, 0, "", fmt.Errorf("%q: %w", targetName, errUnknownDevice)
	}

	if targetHost == "" {
		return netip.Addr{}, mac, 0, "", errNoTarget
	}
	host, err := netip.ParseAddr(targetHost)
	if err != nil {
		return netip.Addr{}, mac, 0, "", fmt.Errorf("parse --host: %w", err)
	}
	if targetMAC != "" {
		mac, err = config.ParseMAC(targetMAC)
		if err != nil {
			return netip.Addr{}, mac, 0, "", fmt.Errorf("parse --mac: %w", err)
		}
	}
	return host, mac, targetType, "", nil
}

// authTarget resolves the target and runs the handshake.
func authTarget(cmd *cobra.Command) (*broadlink.Device, error) {
	dev, err := targetDevice()
	if err != nil {
		return nil, err
	}
	if err := dev.Auth(cmd.Context()); err != nil {
		dev.Close()
		return nil, err
	}
	return dev, nil
}

// discoverOptions builds the sweep options from the configuration.
func discoverOptions(timeout time.Duration) (broadlink.DiscoverOptions, error) {
	opts := broadlink.DiscoverOptions{
		Timeout: timeout,
		Logger:  logger,
	}
	if opts.Timeout <= 0 {
		opts.Timeout = cfg.Network.DiscoverTimeout
	}
	if cfg.Network.LocalIP != "" {
		ip, err := netip.ParseAddr(cfg.Network.LocalIP)
		if err != nil {
			return opts, fmt.Errorf("parse network.local_ip: %w", err)
		}
		opts.LocalIP = ip
	}
	if cfg.Network.Broadcast != "" {
		ip, err := netip.ParseAddr(cfg.Network.Broadcast)
		if err != nil {
			return opts, fmt.Errorf("parse network.broadcast: %w", err)
		}
		opts.Broadcast = netip.AddrPortFrom(ip, broadlink.DevicePort)
	}
	return opts, nil
}
