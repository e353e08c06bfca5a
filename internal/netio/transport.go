// Package netio provides the UDP socket layer for the Broadlink protocol:
// unicast request/response with timeout and retry, broadcast probes, and
// local-address selection for discovery framing.
package netio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"time"
)

// MaxDatagramSize bounds a single device response. Learned RF packets are
// the largest payloads and stay well under 2 KiB.
const MaxDatagramSize = 2048

// DefaultTimeout is the per-attempt wait for a device response.
const DefaultTimeout = 10 * time.Second

// DefaultRetries is the number of additional attempts after a timeout.
const DefaultRetries = 2

// Sentinel errors for transport failures.
var (
	// ErrTimeout indicates no response arrived within the timeout after
	// all retries.
	ErrTimeout = errors.New("request timed out")

	// ErrClosed indicates the connection has been closed.
	ErrClosed = errors.New("connection closed")
)

// Conn is a UDP socket bound to an ephemeral local port. One Conn serves
// one device handle (or one discovery sweep); it is not safe for
// concurrent use.
type Conn struct {
	pc      *net.UDPConn
	timeout time.Duration
	retries int
	logger  *slog.Logger
}

// Option configures optional Conn parameters.
type Option func(*Conn)

// WithTimeout sets the per-attempt response timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Conn) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetries sets the number of retries after a timed-out attempt.
func WithRetries(n int) Option {
	return func(c *Conn) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithLogger sets the transport logger. nil selects slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Conn) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Listen opens a UDP socket bound to (local, ephemeral port) with the
// broadcast flag usable for discovery sends. A zero local address binds
// to all interfaces.
func Listen(local netip.Addr, opts ...Option) (*Conn, error) {
	var laddr *net.UDPAddr
	if local.IsValid() && !local.IsUnspecified() {
		laddr = net.UDPAddrFromAddrPort(netip.AddrPortFrom(local, 0))
	}
	pc, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		return nil, fmt.Errorf("netio listen: %w", err)
	}

	c := &Conn{
		pc:      pc,
		timeout: DefaultTimeout,
		retries: DefaultRetries,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// LocalAddr returns the bound local address and port.
func (c *Conn) LocalAddr() netip.AddrPort {
	return c.pc.LocalAddr().(*net.UDPAddr).AddrPort()
}

// Close releases the socket.
func (c *Conn) Close() error {
	return c.pc.Close()
}

// Send transmits one datagram without waiting for a response. Used for
// provisioning and keepalive frames.
func (c *Conn) Send(dst netip.AddrPort, frame []byte) error {
	if _, err := c.pc.WriteToUDP(frame, net.UDPAddrFromAddrPort(dst)); err != nil {
		return fmt.Errorf("netio send to %s: %w", dst, err)
	}
	return nil
}

// Request sends frame to dst and waits for a single response datagram.
// On a timed-out attempt it resends, up to the configured retry count,
// then fails with ErrTimeout. The context deadline, when earlier than
// the per-attempt timeout, bounds each read.
func (c *Conn) Request(ctx context.Context, dst netip.AddrPort, frame []byte) ([]byte, error) {
	buf := make([]byte, MaxDatagramSize)

	for attempt := 0; attempt <= c.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("netio request to %s: %w", dst, err)
		}
		if attempt > 0 {
			c.logger.Debug("retrying request",
				slog.String("dst", dst.String()),
				slog.Int("attempt", attempt),
			)
		}

		if err := c.Send(dst, frame); err != nil {
			return nil, err
		}

		n, _, err := c.read(ctx, buf)
		if err == nil {
			resp := make([]byte, n)
			copy(resp, buf[:n])
			return resp, nil
		}
		if !isTimeout(err) {
			return nil, fmt.Errorf("netio request to %s: %w", dst, err)
		}
	}

	return nil, fmt.Errorf("netio request to %s after %d attempts: %w",
		dst, c.retries+1, ErrTimeout)
}

// Drain invokes fn for every datagram received until the deadline passes
// or fn returns false. Read errors other than timeouts abort the drain;
// the deadline itself is a normal return. Used by discovery.
func (c *Conn) Drain(ctx context.Context, deadline time.Time, fn func(buf []byte, src netip.AddrPort) bool) error {
	buf := make([]byte, MaxDatagramSize)

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("netio drain: %w", err)
		}
		if !time.Now().Before(deadline) {
			return nil
		}

		if err := c.pc.SetReadDeadline(deadline); err != nil {
			return fmt.Errorf("netio drain: %w", err)
		}
		n, src, err := c.pc.ReadFromUDPAddrPort(buf)
		if err != nil {
			if isTimeout(err) {
				return nil
			}
			return fmt.Errorf("netio drain: %w", err)
		}

		datagram := make([]byte, n)
		copy(datagram, buf[:n])
		if !fn(datagram, src) {
			return nil
		}
	}
}

// read performs a single deadline-bounded read. The deadline is the
// earlier of the per-attempt timeout and the context deadline.
func (c *Conn) read(ctx context.Context, buf []byte) (int, netip.AddrPort, error) {
	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.pc.SetReadDeadline(deadline); err != nil {
		return 0, netip.AddrPort{}, err
	}
	return c.pc.ReadFromUDPAddrPort(buf)
}

// isTimeout reports whether err is a read-deadline expiry.
func isTimeout(err error) bool {
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

// LocalIP selects the local IPv4 address the kernel would use to reach
// dst. No packets are sent; the socket is connected and immediately
// closed. Used to fill the discovery frame's source-address field.
func LocalIP(dst netip.Addr) (netip.Addr, error) {
	conn, err := net.Dial("udp4", net.JoinHostPort(dst.String(), "80"))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("netio local ip: %w", err)
	}
	defer conn.Close()

	addr := conn.LocalAddr().(*net.UDPAddr).AddrPort().Addr()
	return addr.Unmap(), nil
}
