// Package config manages blctl configuration using koanf/v2.
//
// Supports YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// -------------------------------------------------------------------------
// Configuration Structures
// -------------------------------------------------------------------------

// Config holds the complete blctl configuration.
type Config struct {
	Network NetworkConfig  `koanf:"network"`
	Metrics MetricsConfig  `koanf:"metrics"`
	Log     LogConfig      `koanf:"log"`
	Learn   LearnConfig    `koanf:"learn"`
	Store   StoreConfig    `koanf:"store"`
	Devices []DeviceConfig `koanf:"devices"`
}

// NetworkConfig holds the UDP transport parameters.
type NetworkConfig struct {
	// Timeout is the per-attempt response timeout (e.g., "10s").
	Timeout time.Duration `koanf:"timeout"`

	// Retries is the number of retries after a timed-out attempt.
	Retries int `koanf:"retries"`

	// DiscoverTimeout bounds a discovery sweep (e.g., "5s").
	DiscoverTimeout time.Duration `koanf:"discover_timeout"`

	// LocalIP pins the source address for discovery framing. Empty
	// selects the kernel's route toward the probe target.
	LocalIP string `koanf:"local_ip"`

	// Broadcast overrides the discovery destination, e.g. a subnet
	// broadcast address. Empty selects 255.255.255.255.
	Broadcast string `koanf:"broadcast"`
}

// MetricsConfig holds the monitor command's Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the HTTP listen address (e.g., ":9101").
	Addr string `koanf:"addr"`

	// Path is the URL path for the metrics endpoint (e.g., "/metrics").
	Path string `koanf:"path"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`

	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// LearnConfig holds the learning-mode polling parameters.
type LearnConfig struct {
	// Timeout bounds a capture attempt end to end (e.g., "30s").
	Timeout time.Duration `koanf:"timeout"`

	// PollInterval is the capture polling cadence (e.g., "1s").
	PollInterval time.Duration `koanf:"poll_interval"`
}

// StoreConfig holds the captured-code store location.
type StoreConfig struct {
	// Path is the bbolt database file for learned codes.
	Path string `koanf:"path"`
}

// DeviceConfig describes a statically configured device, addressable by
// name without a discovery sweep.
type DeviceConfig struct {
	// Name is the alias used on the blctl command line.
	Name string `koanf:"name"`

	// Host is the device IP address.
	Host string `koanf:"host"`

	// MAC is the device MAC in canonical display form.
	MAC string `koanf:"mac"`

	// Type is the 16-bit device model code (e.g., "0x2712").
	Type uint16 `koanf:"type"`
}

// HostAddr parses the Host string as a netip.Addr.
func (dc DeviceConfig) HostAddr() (netip.Addr, error) {
	addr, err := netip.ParseAddr(dc.Host)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("parse device host %q: %w", dc.Host, err)
	}
	return addr, nil
}

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// DefaultConfig returns a Config populated with sensible defaults.
// The network defaults match the device firmware's expectations: one
// outstanding request, ten-second waits, two retries.
func DefaultConfig() *Config {
	return &Config{
		Network: NetworkConfig{
			Timeout:         10 * time.Second,
			Retries:         2,
			DiscoverTimeout: 5 * time.Second,
		},
		Metrics: MetricsConfig{
			Addr: ":9101",
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Learn: LearnConfig{
			Timeout:      30 * time.Second,
			PollInterval: time.Second,
		},
		Store: StoreConfig{
			Path: "blctl.db",
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for blctl configuration.
// Variables are named BLCTL_<section>_<key>, e.g., BLCTL_NETWORK_TIMEOUT.
const envPrefix = "BLCTL_"

// Load reads configuration from a YAML file at path, overlays
// environment variable overrides (BLCTL_ prefix), and merges on top of
// DefaultConfig(). An empty path skips the file layer.
//
// Environment variable mapping:
//
//	BLCTL_NETWORK_TIMEOUT  -> network.timeout
//	BLCTL_METRICS_ADDR     -> metrics.addr
//	BLCTL_LOG_LEVEL        -> log.level
//	BLCTL_STORE_PATH       -> store.path
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
	}

	// BLCTL_NETWORK_TIMEOUT -> network.timeout (strip prefix,
	// lowercase, _ -> .).
	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		if path != "" {
			return nil, fmt.Errorf("validate config from %s: %w", path, err)
		}
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// envKeyMapper transforms BLCTL_NETWORK_TIMEOUT -> network.timeout.
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "_", ".")
}

// loadDefaults marshals the default config into koanf as the base layer.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"network.timeout":          defaults.Network.Timeout.String(),
		"network.retries":          defaults.Network.Retries,
		"network.discover_timeout": defaults.Network.DiscoverTimeout.String(),
		"metrics.addr":             defaults.Metrics.Addr,
		"metrics.path":             defaults.Metrics.Path,
		"log.level":                defaults.Log.Level,
		"log.format":               defaults.Log.Format,
		"learn.timeout":            defaults.Learn.Timeout.String(),
		"learn.poll_interval":      defaults.Learn.PollInterval.String(),
		"store.path":               defaults.Store.Path,
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

// Validation errors.
var (
	// ErrInvalidTimeout indicates a non-positive network timeout.
	ErrInvalidTimeout = errors.New("network.timeout must be > 0")

	// ErrInvalidRetries indicates a negative retry count.
	ErrInvalidRetries = errors.New("network.retries must be >= 0")

	// ErrInvalidLocalIP indicates network.local_ip does not parse.
	ErrInvalidLocalIP = errors.New("network.local_ip is invalid")

	// ErrInvalidBroadcast indicates network.broadcast does not parse.
	ErrInvalidBroadcast = errors.New("network.broadcast is invalid")

	// ErrInvalidLearnTimeout indicates a non-positive learn timeout.
	ErrInvalidLearnTimeout = errors.New("learn.timeout must be > 0")

	// ErrDeviceName indicates a static device entry without a name.
	ErrDeviceName = errors.New("device name must not be empty")

	// ErrDeviceHost indicates a static device entry with a bad host.
	ErrDeviceHost = errors.New("device host is invalid")

	// ErrDeviceMAC indicates a static device entry with a bad MAC.
	ErrDeviceMAC = errors.New("device mac is invalid")

	// ErrDuplicateDevice indicates two static devices share a name.
	ErrDuplicateDevice = errors.New("duplicate device name")
)

// Validate checks the configuration for logical errors.
// Returns the first validation error encountered.
func Validate(cfg *Config) error {
	if cfg.Network.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if cfg.Network.Retries < 0 {
		return ErrInvalidRetries
	}
	if cfg.Network.LocalIP != "" {
		if _, err := netip.ParseAddr(cfg.Network.LocalIP); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidLocalIP, err)
		}
	}
	if cfg.Network.Broadcast != "" {
		if _, err := netip.ParseAddr(cfg.Network.Broadcast); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidBroadcast, err)
		}
	}
	if cfg.Learn.Timeout <= 0 {
		return ErrInvalidLearnTimeout
	}

	return validateDevices(cfg.Devices)
}

// validateDevices checks each static device entry for correctness.
func validateDevices(devices []DeviceConfig) error {
	seen := make(map[string]struct{}, len(devices))

	for i, dc := range devices {
		if dc.Name == "" {
			return fmt.Errorf("devices[%d]: %w", i, ErrDeviceName)
		}
		if _, err := dc.HostAddr(); err != nil {
			return fmt.Errorf("devices[%d]: %w: %w", i, ErrDeviceHost, err)
		}
		if _, err := ParseMAC(dc.MAC); err != nil {
			return fmt.Errorf("devices[%d]: %w: %w", i, ErrDeviceMAC, err)
		}

		if _, dup := seen[dc.Name]; dup {
			return fmt.Errorf("devices[%d] name %q: %w", i, dc.Name, ErrDuplicateDevice)
		}
		seen[dc.Name] = struct{}{}
	}

	return nil
}

// ParseMAC parses a canonical display MAC ("aa:bb:cc:dd:ee:ff") into
// the wire byte order the protocol transmits (reversed octets).
func ParseMAC(s string) ([6]byte, error) {
	var mac [6]byte
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return mac, fmt.Errorf("mac %q: want 6 colon-separated octets", s)
	}
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 16, 8)
		if err != nil || len(p) != 2 {
			return mac, fmt.Errorf("mac %q: octet %q", s, p)
		}
		// Display form is reversed relative to the wire.
		mac[5-i] = byte(v)
	}
	return mac, nil
}

// -------------------------------------------------------------------------
// Log Level Parsing
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the
// corresponding slog.Level. Unknown values default to slog.LevelInfo.
//
// Recognized values: "debug", "info", "warn", "error" (case-insensitive).
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
