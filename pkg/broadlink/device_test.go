package broadlink_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/dantte-lp/gobroadlink/internal/netio"
	"github.com/dantte-lp/gobroadlink/pkg/broadlink"
)

// -------------------------------------------------------------------------
// TestAuth — handshake rotates the session key and device ID
// -------------------------------------------------------------------------

func TestAuth(t *testing.T) {
	t.Parallel()

	fake := newFakeDevice()
	dev, err := broadlink.NewDevice(broadlink.DeviceConfig{
		Host:       testHost,
		DeviceType: 0x2712,
	}, broadlink.WithTransport(fake))
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}

	if dev.Session().Authenticated() {
		t.Fatal("fresh handle reports authenticated")
	}

	if err := dev.Auth(t.Context()); err != nil {
		t.Fatalf("Auth() error = %v", err)
	}

	sess := dev.Session()
	if !sess.Authenticated() {
		t.Error("session not authenticated after Auth")
	}
	if sess.DeviceID() != fake.authID {
		t.Errorf("DeviceID = 0x%08x, want 0x%08x", sess.DeviceID(), fake.authID)
	}

	// Post-auth traffic must round-trip under the rotated key.
	fake.handle = func(cmd uint16, payload []byte) (uint16, []byte) {
		return 0, pad16(0x04, 0x00, 0x00, 0x00, 0x2A)
	}
	data, err := dev.CheckData(t.Context())
	if err != nil {
		t.Fatalf("CheckData() after auth error = %v", err)
	}
	if data[0] != 0x2A {
		t.Errorf("post-auth payload byte = 0x%02x, want 0x2a", data[0])
	}
}

// TestAuthPayloadLayout checks the fixed 80-byte auth request.
func TestAuthPayloadLayout(t *testing.T) {
	t.Parallel()

	fake := newFakeDevice()
	dev, err := broadlink.NewDevice(broadlink.DeviceConfig{
		Host:       testHost,
		DeviceType: 0x2712,
	},
		broadlink.WithTransport(fake),
		broadlink.WithAuthName("test"),
	)
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	if err := dev.Auth(t.Context()); err != nil {
		t.Fatalf("Auth() error = %v", err)
	}

	req := fake.lastRequest(t)
	if req.cmd != 0x0065 {
		t.Fatalf("auth command = 0x%04x, want 0x0065", req.cmd)
	}
	if len(req.payload) != 0x50 {
		t.Fatalf("auth payload %d bytes, want 0x50", len(req.payload))
	}
	if req.payload[0x13] != 0x01 {
		t.Errorf("payload[0x13] = 0x%02x, want 0x01", req.payload[0x13])
	}
	if req.payload[0x2D] != 0x01 {
		t.Errorf("payload[0x2d] = 0x%02x, want 0x01", req.payload[0x2D])
	}
	for i := 0; i < 0x30; i++ {
		if i == 0x13 || i == 0x2D {
			continue
		}
		if req.payload[i] != 0 {
			t.Errorf("payload[0x%02x] = 0x%02x, want zero", i, req.payload[i])
		}
	}
	if !bytes.Equal(req.payload[0x30:0x35], []byte("test\x00")) {
		t.Errorf("name field = % x", req.payload[0x30:0x35])
	}
}

// TestAuthFailures covers the zero-ID and all-zero-key responses.
func TestAuthFailures(t *testing.T) {
	t.Parallel()

	t.Run("zero device id", func(t *testing.T) {
		t.Parallel()
		fake := newFakeDevice()
		fake.authID = 0

		dev, err := broadlink.NewDevice(broadlink.DeviceConfig{
			Host:       testHost,
			DeviceType: 0x2712,
		}, broadlink.WithTransport(fake))
		if err != nil {
			t.Fatalf("NewDevice: %v", err)
		}
		if err := dev.Auth(t.Context()); !errors.Is(err, broadlink.ErrAuthFailed) {
			t.Errorf("Auth() error = %v, want ErrAuthFailed", err)
		}
	})

	t.Run("all-zero key", func(t *testing.T) {
		t.Parallel()
		fake := newFakeDevice()
		fake.authKey = make([]byte, 16)

		dev, err := broadlink.NewDevice(broadlink.DeviceConfig{
			Host:       testHost,
			DeviceType: 0x2712,
		}, broadlink.WithTransport(fake))
		if err != nil {
			t.Fatalf("NewDevice: %v", err)
		}
		if err := dev.Auth(t.Context()); !errors.Is(err, broadlink.ErrAuthFailed) {
			t.Errorf("Auth() error = %v, want ErrAuthFailed", err)
		}
	})
}

// -------------------------------------------------------------------------
// TestCounterMonotonicity — sequential commands increment mod 2^16
// -------------------------------------------------------------------------

func TestCounterMonotonicity(t *testing.T) {
	t.Parallel()

	fake := newFakeDevice()
	fake.handle = func(cmd uint16, payload []byte) (uint16, []byte) {
		return 0, pad16(0x04)
	}
	dev := newTestDevice(t, 0x2712, fake)

	const n = 300
	for i := 0; i < n; i++ {
		if err := dev.EnterLearning(t.Context()); err != nil {
			t.Fatalf("command %d: %v", i, err)
		}
	}

	counts := make([]uint16, 0, n)
	for _, req := range fake.requests {
		if req.cmd == broadlink.CmdCommand {
			counts = append(counts, req.count)
		}
	}
	if len(counts) != n {
		t.Fatalf("captured %d command counts, want %d", len(counts), n)
	}
	for i := 1; i < len(counts); i++ {
		if counts[i] != counts[i-1]+1 {
			t.Fatalf("count[%d] = 0x%04x after 0x%04x, want increment", i, counts[i], counts[i-1])
		}
	}
}

// -------------------------------------------------------------------------
// TestRequestTimeout — exhausted retries surface as ErrNetworkTimeout
// -------------------------------------------------------------------------

func TestRequestTimeout(t *testing.T) {
	t.Parallel()

	fake := newFakeDevice()
	dev := newTestDevice(t, 0x2712, fake)

	fake.mu.Lock()
	fake.err = netio.ErrTimeout
	fake.mu.Unlock()

	if err := dev.EnterLearning(t.Context()); !errors.Is(err, broadlink.ErrNetworkTimeout) {
		t.Errorf("error = %v, want ErrNetworkTimeout", err)
	}
}

// -------------------------------------------------------------------------
// TestUnsupportedFamilyOps — unknown device types authenticate only
// -------------------------------------------------------------------------

func TestUnsupportedFamilyOps(t *testing.T) {
	t.Parallel()

	fake := newFakeDevice()
	dev := newTestDevice(t, 0x1234, fake) // unknown code, still auths

	if dev.Family() != broadlink.FamilyUnsupported {
		t.Fatalf("family = %s, want Unsupported", dev.Family())
	}

	ops := map[string]error{
		"EnterLearning": dev.EnterLearning(t.Context()),
		"SetPower":      dev.SetPower(t.Context(), true),
		"GetEnergy":     errOnly2(dev.GetEnergy(t.Context())),
		"CheckSensors":  errOnly2(dev.CheckSensors(t.Context())),
		"GetBulbState":  errOnly2(dev.GetBulbState(t.Context())),
		"GetSubdevices": errOnly2(dev.GetSubdevices(t.Context())),
		"OpenCurtain":   dev.OpenCurtain(t.Context()),
	}
	for name, err := range ops {
		if !errors.Is(err, broadlink.ErrUnsupportedDevice) {
			t.Errorf("%s error = %v, want ErrUnsupportedDevice", name, err)
		}
	}
}

// errOnly2 discards the value of a two-return call.
func errOnly2[T any](_ T, err error) error { return err }

// -------------------------------------------------------------------------
// TestPing — keepalive is fire-and-forget
// -------------------------------------------------------------------------

func TestPing(t *testing.T) {
	t.Parallel()

	fake := newFakeDevice()
	dev := newTestDevice(t, 0x2712, fake)

	if err := dev.Ping(); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	req := fake.lastRequest(t)
	if req.cmd != 0x0001 {
		t.Errorf("ping command = 0x%04x, want 0x0001", req.cmd)
	}
}

// -------------------------------------------------------------------------
// TestSessionCountAccessor — Count tracks the last transmitted value
// -------------------------------------------------------------------------

func TestSessionCountAccessor(t *testing.T) {
	t.Parallel()

	fake := newFakeDevice()
	fake.handle = func(cmd uint16, payload []byte) (uint16, []byte) {
		return 0, pad16(0x04)
	}
	dev := newTestDevice(t, 0x2712, fake)

	before := dev.Session().Count()
	if err := dev.EnterLearning(t.Context()); err != nil {
		t.Fatalf("EnterLearning: %v", err)
	}
	after := dev.Session().Count()
	if after != before+1 {
		t.Errorf("Count = 0x%04x after 0x%04x, want increment", after, before)
	}

	req := fake.lastRequest(t)
	if req.count != after {
		t.Errorf("wire count = 0x%04x, session count = 0x%04x", req.count, after)
	}
}
