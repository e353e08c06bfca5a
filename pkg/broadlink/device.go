package broadlink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"sync"
	"time"

	"github.com/dantte-lp/gobroadlink/internal/netio"
)

// -------------------------------------------------------------------------
// Device Errors
// -------------------------------------------------------------------------

var (
	// ErrNetworkTimeout indicates the device did not answer within the
	// timeout after all retries.
	ErrNetworkTimeout = errors.New("network timeout")

	// ErrAuthFailed indicates the auth response carried a zero device ID,
	// an all-zero session key, or a truncated payload.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrUnsupportedDevice indicates the device's family has no dialect
	// for the requested operation.
	ErrUnsupportedDevice = errors.New("unsupported device")
)

// -------------------------------------------------------------------------
// Transport — pluggable UDP layer
// -------------------------------------------------------------------------

// Transport abstracts the UDP request/response exchange. The default
// implementation is internal/netio.Conn; tests substitute an in-memory
// fake.
type Transport interface {
	// Request sends frame to dst and returns one response datagram.
	Request(ctx context.Context, dst netip.AddrPort, frame []byte) ([]byte, error)

	// Send transmits frame to dst without waiting for a response.
	Send(dst netip.AddrPort, frame []byte) error

	// Close releases the transport's socket.
	Close() error
}

// -------------------------------------------------------------------------
// Device — one physical Broadlink unit
// -------------------------------------------------------------------------

// authPayloadSize is the fixed auth request payload length.
const authPayloadSize = 0x50

// authNameMax bounds the client name written into the auth payload
// (offset 0x30, NUL-terminated).
const authNameMax = 0x1F

// DeviceConfig contains the parameters needed to construct a Device
// handle, normally taken from a discovery response.
type DeviceConfig struct {
	// Host is the device address, normally port 80.
	Host netip.AddrPort

	// MAC is the device MAC in wire byte order.
	MAC [6]byte

	// DeviceType is the 16-bit device model code. Selects the family.
	DeviceType uint16

	// Name is the device-reported name, informational only.
	Name string

	// Locked is the cloud-lock hint from discovery.
	Locked bool
}

// Device is the handle for one physical device. All protocol state lives
// here; operations serialize on an internal lock, so a Device is safe
// for concurrent use, with at most one request in flight at a time.
type Device struct {
	mu sync.Mutex

	host    netip.AddrPort
	mac     [6]byte
	devType uint16
	family  Family
	name    string
	locked  bool

	localMAC [6]byte
	authID   [15]byte
	authName string

	transport  Transport
	ownsConn   bool
	reqTimeout time.Duration
	reqRetries *int
	sess       *Session
	learn      LearnState

	logger  *slog.Logger
	metrics MetricsReporter
}

// DeviceOption configures optional Device parameters.
type DeviceOption func(*Device)

// WithLocalMAC sets the caller-chosen MAC written into every command
// frame. Any stable value works; it need not match the host NIC.
func WithLocalMAC(mac [6]byte) DeviceOption {
	return func(d *Device) {
		d.localMAC = mac
	}
}

// WithAuthID sets the 15-digit client identifier carried in the auth
// payload. Defaults to all zeros.
func WithAuthID(id [15]byte) DeviceOption {
	return func(d *Device) {
		d.authID = id
	}
}

// WithAuthName sets the client name carried in the auth payload.
func WithAuthName(name string) DeviceOption {
	return func(d *Device) {
		if len(name) > authNameMax {
			name = name[:authNameMax]
		}
		d.authName = name
	}
}

// WithTransport substitutes the UDP layer. The Device does not close a
// caller-provided transport.
func WithTransport(t Transport) DeviceOption {
	return func(d *Device) {
		d.transport = t
		d.ownsConn = false
	}
}

// WithDeviceLogger sets the handle's logger. nil selects slog.Default.
func WithDeviceLogger(logger *slog.Logger) DeviceOption {
	return func(d *Device) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithDeviceMetrics attaches a MetricsReporter. nil keeps the no-op
// reporter.
func WithDeviceMetrics(mr MetricsReporter) DeviceOption {
	return func(d *Device) {
		if mr != nil {
			d.metrics = mr
		}
	}
}

// WithRequestTimeout sets the per-attempt response timeout for the
// default transport. Ignored when WithTransport is used.
func WithRequestTimeout(d time.Duration) DeviceOption {
	return func(dev *Device) {
		dev.reqTimeout = d
	}
}

// WithRequestRetries sets the retry count for the default transport.
// Ignored when WithTransport is used.
func WithRequestRetries(n int) DeviceOption {
	return func(dev *Device) {
		dev.reqRetries = &n
	}
}

// NewDevice constructs a handle for the device described by cfg. The
// family is resolved from the device-type code; unknown codes yield a
// handle that authenticates but rejects family operations.
func NewDevice(cfg DeviceConfig, opts ...DeviceOption) (*Device, error) {
	d := &Device{
		host:     cfg.Host,
		mac:      cfg.MAC,
		devType:  cfg.DeviceType,
		family:   FamilyOf(cfg.DeviceType),
		name:     cfg.Name,
		locked:   cfg.Locked,
		authName: "gobroadlink",
		sess:     newSession(),
		learn:    LearnIdle,
		logger:   slog.Default(),
		metrics:  noopMetrics{},
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.transport == nil {
		connOpts := []netio.Option{netio.WithLogger(d.logger)}
		if d.reqTimeout > 0 {
			connOpts = append(connOpts, netio.WithTimeout(d.reqTimeout))
		}
		if d.reqRetries != nil {
			connOpts = append(connOpts, netio.WithRetries(*d.reqRetries))
		}
		conn, err := netio.Listen(netip.Addr{}, connOpts...)
		if err != nil {
			return nil, fmt.Errorf("new device: %w", err)
		}
		d.transport = conn
		d.ownsConn = true
	}

	return d, nil
}

// Close releases the handle's socket when the handle owns it.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.ownsConn {
		return nil
	}
	return d.transport.Close()
}

// Host returns the device address.
func (d *Device) Host() netip.AddrPort { return d.host }

// MAC returns the device MAC in wire byte order.
func (d *Device) MAC() [6]byte { return d.mac }

// DeviceType returns the 16-bit device model code.
func (d *Device) DeviceType() uint16 { return d.devType }

// Family returns the dialect family resolved at construction. Immutable
// for the lifetime of the handle.
func (d *Device) Family() Family { return d.family }

// Name returns the device-reported name.
func (d *Device) Name() string { return d.name }

// Locked returns the cloud-lock hint from discovery.
func (d *Device) Locked() bool { return d.locked }

// Session exposes the handle's session state for inspection.
func (d *Device) Session() *Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sess
}

// -------------------------------------------------------------------------
// Auth — key exchange
// -------------------------------------------------------------------------

// Auth performs the key-exchange handshake: the device answers with a
// session key and a device ID that replace the bootstrap credentials.
// Re-auth is idempotent and rotates the session; any in-flight learning
// session is invalidated.
func (d *Device) Auth(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Auth always runs under the bootstrap key, including re-auth.
	d.sess.reset()
	d.learn = LearnIdle

	resp, err := d.roundTrip(ctx, CmdAuth, d.authPayload())
	if err != nil {
		d.metrics.IncAuthFailures(d.host.Addr().String())
		return fmt.Errorf("auth: %w", err)
	}

	if len(resp.Payload) < 0x14 {
		d.metrics.IncAuthFailures(d.host.Addr().String())
		return fmt.Errorf("auth: response payload %d bytes: %w",
			len(resp.Payload), ErrAuthFailed)
	}

	id := leUint32(resp.Payload[0x00:0x04])
	key := resp.Payload[0x04:0x14]
	if id == 0 || allZero(key) {
		d.metrics.IncAuthFailures(d.host.Addr().String())
		return fmt.Errorf("auth: device id %#x: %w", id, ErrAuthFailed)
	}

	d.sess.rotate(key, id)
	d.logger.Debug("authenticated",
		slog.String("host", d.host.String()),
		slog.String("family", d.family.String()),
	)
	return nil
}

// authPayload builds the fixed 80-byte auth request: the client
// identifier at 0x04-0x12, 0x01 markers at 0x13 and 0x2D, and the
// NUL-terminated client name from 0x30.
func (d *Device) authPayload() []byte {
	payload := make([]byte, authPayloadSize)
	copy(payload[0x04:], d.authID[:])
	payload[0x13] = 0x01
	payload[0x2D] = 0x01
	copy(payload[0x30:], d.authName)
	return payload
}

// Ping sends the fire-and-forget keepalive datagram. Devices do not
// answer it; errors are socket-level only.
func (d *Device) Ping() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	frame, err := (&CommandFrame{
		DeviceType: d.devType,
		Command:    CmdPing,
		Count:      d.sess.next(),
		LocalMAC:   d.localMAC,
		DeviceID:   d.sess.id,
	}).Marshal(d.sess.key, d.sess.iv)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	d.metrics.IncCommandsSent(d.host.Addr().String())
	if err := d.transport.Send(d.host, frame); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// -------------------------------------------------------------------------
// Command round-trip
// -------------------------------------------------------------------------

// command serializes one request/response turn under the handle lock.
// Family operations call it with their dialect payloads.
func (d *Device) command(ctx context.Context, cmd uint16, payload []byte) (*Response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.roundTrip(ctx, cmd, payload)
}

// roundTrip builds, sends, and parses one command frame. Callers hold
// the handle lock.
func (d *Device) roundTrip(ctx context.Context, cmd uint16, payload []byte) (*Response, error) {
	host := d.host.Addr().String()

	frame, err := (&CommandFrame{
		DeviceType: d.devType,
		Command:    cmd,
		Count:      d.sess.next(),
		LocalMAC:   d.localMAC,
		DeviceID:   d.sess.id,
		Payload:    payload,
	}).Marshal(d.sess.key, d.sess.iv)
	if err != nil {
		return nil, fmt.Errorf("command 0x%04x: %w", cmd, err)
	}

	d.metrics.IncCommandsSent(host)
	raw, err := d.transport.Request(ctx, d.host, frame)
	if err != nil {
		if errors.Is(err, netio.ErrTimeout) {
			d.metrics.IncTimeouts(host)
			return nil, fmt.Errorf("command 0x%04x to %s: %w", cmd, d.host, ErrNetworkTimeout)
		}
		return nil, fmt.Errorf("command 0x%04x: %w", cmd, err)
	}

	resp, err := UnmarshalResponse(raw, d.sess.key, d.sess.iv)
	if err != nil {
		var devErr *DeviceError
		if errors.As(err, &devErr) {
			d.metrics.IncDeviceErrors(host, devErr.Code)
			return nil, fmt.Errorf("command 0x%04x: %w", cmd, err)
		}
		return nil, fmt.Errorf("command 0x%04x: %w", cmd, err)
	}

	d.metrics.IncResponses(host)
	return resp, nil
}

// requireFamily guards a family operation against handles of the wrong
// dialect.
func (d *Device) requireFamily(op string, families ...Family) error {
	for _, f := range families {
		if d.family == f {
			return nil
		}
	}
	return fmt.Errorf("%s: family %s (device type 0x%04x): %w",
		op, d.family, d.devType, ErrUnsupportedDevice)
}

// -------------------------------------------------------------------------
// Small helpers shared by the family dialects
// -------------------------------------------------------------------------

// leUint32 reads a little-endian uint32.
func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// allZero reports whether every byte of b is zero.
func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
