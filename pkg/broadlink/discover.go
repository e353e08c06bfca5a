package broadlink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"github.com/dantte-lp/gobroadlink/internal/netio"
)

// This file implements the discovery surface: the broadcast probe, the
// unicast hello probe for locked devices, and the AP-mode provisioning
// broadcast. Discovery helpers hold no process-wide state; each call
// opens a transient socket, sends, collects, and closes.

// DefaultDiscoverTimeout bounds a discovery sweep.
const DefaultDiscoverTimeout = 5 * time.Second

// broadcastAddr is the default probe destination.
var broadcastAddr = netip.AddrPortFrom(netip.AddrFrom4([4]byte{255, 255, 255, 255}), DevicePort)

// DiscoverOptions configures a discovery sweep or a hello probe.
type DiscoverOptions struct {
	// Timeout bounds the sweep. Zero selects DefaultDiscoverTimeout.
	Timeout time.Duration

	// LocalIP is the source address encoded into the probe. Unset, the
	// kernel's route toward the probe target decides.
	LocalIP netip.Addr

	// Broadcast overrides the probe destination, e.g. a subnet
	// broadcast address.
	Broadcast netip.AddrPort

	// Port overrides the device UDP port for hello probes and
	// constructed handles. Zero selects DevicePort.
	Port uint16

	// Logger receives per-response debug logs. nil selects slog.Default.
	Logger *slog.Logger

	// Metrics counts discovered devices. nil keeps the no-op reporter.
	Metrics MetricsReporter

	// DeviceOpts are applied to every constructed handle.
	DeviceOpts []DeviceOption
}

func (o *DiscoverOptions) withDefaults(probeTarget netip.Addr) (DiscoverOptions, error) {
	out := *o
	if out.Timeout <= 0 {
		out.Timeout = DefaultDiscoverTimeout
	}
	if out.Port == 0 {
		out.Port = DevicePort
	}
	if !out.Broadcast.IsValid() {
		out.Broadcast = broadcastAddr
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	if out.Metrics == nil {
		out.Metrics = noopMetrics{}
	}
	if !out.LocalIP.IsValid() {
		target := probeTarget
		if !target.IsValid() {
			target = out.Broadcast.Addr()
		}
		ip, err := netio.LocalIP(target)
		if err != nil {
			return out, fmt.Errorf("discover: select local ip: %w", err)
		}
		out.LocalIP = ip
	}
	return out, nil
}

// Discover broadcasts the probe and collects every response until the
// timeout elapses. The timeout is the normal exit: partial results are
// returned, never an error, unless the socket itself fails.
func Discover(ctx context.Context, opts DiscoverOptions) ([]*Device, error) {
	var devices []*Device
	err := XDiscover(ctx, func(d *Device) bool {
		devices = append(devices, d)
		return true
	}, opts)
	return devices, err
}

// XDiscover is the incremental variant: fn receives each handle as soon
// as its response arrives. Returning false stops the sweep early.
func XDiscover(ctx context.Context, fn func(*Device) bool, opts DiscoverOptions) error {
	o, err := opts.withDefaults(netip.Addr{})
	if err != nil {
		return err
	}

	conn, err := netio.Listen(o.LocalIP, netio.WithLogger(o.Logger))
	if err != nil {
		return fmt.Errorf("discover: %w", err)
	}
	defer conn.Close()

	frame, err := MarshalDiscovery(netip.AddrPortFrom(o.LocalIP, conn.LocalAddr().Port()), time.Now())
	if err != nil {
		return fmt.Errorf("discover: %w", err)
	}
	if err := conn.Send(o.Broadcast, frame); err != nil {
		return fmt.Errorf("discover: %w", err)
	}

	deadline := time.Now().Add(o.Timeout)
	return conn.Drain(ctx, deadline, func(buf []byte, src netip.AddrPort) bool {
		dev, err := deviceFromProbe(buf, src, o)
		if err != nil {
			o.Logger.Debug("discarding discovery response",
				slog.String("src", src.String()),
				slog.String("error", err.Error()),
			)
			return true
		}
		return fn(dev)
	})
}

// Hello probes a single address directly and constructs a handle from
// its answer. Locked devices that ignore broadcast discovery still
// answer this unicast variant.
func Hello(ctx context.Context, ip netip.Addr, opts DiscoverOptions) (*Device, error) {
	o, err := opts.withDefaults(ip)
	if err != nil {
		return nil, err
	}

	conn, err := netio.Listen(o.LocalIP,
		netio.WithLogger(o.Logger),
		netio.WithTimeout(o.Timeout),
		netio.WithRetries(0),
	)
	if err != nil {
		return nil, fmt.Errorf("hello %s: %w", ip, err)
	}
	defer conn.Close()

	frame, err := MarshalDiscovery(netip.AddrPortFrom(o.LocalIP, conn.LocalAddr().Port()), time.Now())
	if err != nil {
		return nil, fmt.Errorf("hello %s: %w", ip, err)
	}

	dst := netip.AddrPortFrom(ip, o.Port)
	raw, err := conn.Request(ctx, dst, frame)
	if err != nil {
		if errors.Is(err, netio.ErrTimeout) {
			return nil, fmt.Errorf("hello %s: %w", ip, ErrNetworkTimeout)
		}
		return nil, fmt.Errorf("hello %s: %w", ip, err)
	}

	dev, err := deviceFromProbe(raw, dst, o)
	if err != nil {
		return nil, fmt.Errorf("hello %s: %w", ip, err)
	}
	return dev, nil
}

// deviceFromProbe parses one probe response and constructs the handle.
func deviceFromProbe(buf []byte, src netip.AddrPort, o DiscoverOptions) (*Device, error) {
	resp, err := UnmarshalDiscoveryResponse(buf)
	if err != nil {
		return nil, err
	}

	port := o.Port
	if port == 0 {
		port = DevicePort
	}
	dev, err := NewDevice(DeviceConfig{
		Host:       netip.AddrPortFrom(src.Addr(), port),
		MAC:        resp.MAC,
		DeviceType: resp.DeviceType,
		Name:       resp.Name,
		Locked:     resp.Locked,
	}, o.DeviceOpts...)
	if err != nil {
		return nil, err
	}

	o.Metrics.IncDiscovered(dev.Family().String())
	o.Logger.Debug("discovered device",
		slog.String("host", dev.Host().String()),
		slog.String("mac", CanonicalMAC(dev.MAC())),
		slog.String("family", dev.Family().String()),
		slog.String("name", dev.Name()),
		slog.Bool("locked", dev.Locked()),
	)
	return dev, nil
}

// Provision broadcasts the AP-mode setup frame carrying the network
// credentials. The device joins the network and leaves AP mode; no
// response is expected.
func Provision(ssid, password string, mode SecurityMode, opts DiscoverOptions) error {
	frame, err := MarshalProvision(ssid, password, mode)
	if err != nil {
		return fmt.Errorf("provision: %w", err)
	}

	o := opts
	if !o.Broadcast.IsValid() {
		o.Broadcast = broadcastAddr
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	conn, err := netio.Listen(o.LocalIP, netio.WithLogger(o.Logger))
	if err != nil {
		return fmt.Errorf("provision: %w", err)
	}
	defer conn.Close()

	if err := conn.Send(o.Broadcast, frame); err != nil {
		return fmt.Errorf("provision: %w", err)
	}
	return nil
}
