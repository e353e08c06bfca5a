package broadlink_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/dantte-lp/gobroadlink/pkg/broadlink"
)

// -------------------------------------------------------------------------
// TestPulseEncoding — microsecond-to-tick conversion and byte layout
// -------------------------------------------------------------------------

func TestPulseEncoding(t *testing.T) {
	t.Parallel()

	// 8920 us and 4450 us at 269/8192 ticks per microsecond: the long
	// pulse needs the three-byte big-endian form, the short one fits a
	// single byte.
	ticks := []int{
		broadlink.MicrosecondsToTicks(8920),
		broadlink.MicrosecondsToTicks(4450),
	}
	if ticks[0] != 0x0124 || ticks[1] != 0x92 {
		t.Fatalf("ticks = %#x, want [0x124 0x92]", ticks)
	}

	out, err := broadlink.EncodePulses(ticks)
	if err != nil {
		t.Fatalf("EncodePulses() error = %v", err)
	}
	want := []byte{0x00, 0x01, 0x24, 0x92}
	if !bytes.Equal(out, want) {
		t.Errorf("EncodePulses() = % x, want % x", out, want)
	}
}

func TestPulseEncodingErrors(t *testing.T) {
	t.Parallel()

	for _, ticks := range [][]int{{0}, {-1}, {0x10000}} {
		if _, err := broadlink.EncodePulses(ticks); !errors.Is(err, broadlink.ErrInvalidArgument) {
			t.Errorf("EncodePulses(%v) error = %v, want ErrInvalidArgument", ticks, err)
		}
	}
}

func TestEncodeIR(t *testing.T) {
	t.Parallel()

	raw, err := broadlink.EncodeIR([]int{8920, 4450}, 1)
	if err != nil {
		t.Fatalf("EncodeIR() error = %v", err)
	}

	if raw[0] != broadlink.ModalityIR {
		t.Errorf("modality = 0x%02x, want 0x26", raw[0])
	}
	if raw[1] != 1 {
		t.Errorf("repeat = %d, want 1", raw[1])
	}

	// Pulse section: encoded pulses plus the 0x0d 0x05 terminator.
	wantPulses := []byte{0x00, 0x01, 0x24, 0x92, 0x0D, 0x05}
	if got := int(raw[2]) | int(raw[3])<<8; got != len(wantPulses) {
		t.Errorf("length field = %d, want %d", got, len(wantPulses))
	}
	if !bytes.Equal(raw[4:], wantPulses) {
		t.Errorf("pulse section = % x, want % x", raw[4:], wantPulses)
	}
}

// -------------------------------------------------------------------------
// TestLearningOps — payload opcodes and response handling
// -------------------------------------------------------------------------

func TestLearningOps(t *testing.T) {
	t.Parallel()

	fake := newFakeDevice()
	fake.handle = func(cmd uint16, payload []byte) (uint16, []byte) {
		return 0, pad16(0x04)
	}
	dev := newTestDevice(t, 0x2712, fake)

	ops := []struct {
		name   string
		opcode byte
		run    func() error
	}{
		{"enter learning", 0x03, func() error { return dev.EnterLearning(t.Context()) }},
		{"sweep frequency", 0x19, func() error { return dev.SweepFrequency(t.Context()) }},
		{"check frequency", 0x1A, func() error { _, err := dev.CheckFrequency(t.Context()); return err }},
		{"find rf packet", 0x1B, func() error { return dev.FindRFPacket(t.Context()) }},
		{"cancel sweep", 0x1E, func() error { return dev.CancelSweepFrequency(t.Context()) }},
	}
	for _, op := range ops {
		if err := op.run(); err != nil {
			t.Fatalf("%s: %v", op.name, err)
		}
		req := fake.lastRequest(t)
		if req.cmd != broadlink.CmdCommand {
			t.Errorf("%s: command = 0x%04x, want 0x006a", op.name, req.cmd)
		}
		if req.payload[0] != op.opcode {
			t.Errorf("%s: opcode = 0x%02x, want 0x%02x", op.name, req.payload[0], op.opcode)
		}
	}
}

func TestCheckData(t *testing.T) {
	t.Parallel()

	t.Run("returns data past the header", func(t *testing.T) {
		t.Parallel()
		fake := newFakeDevice()
		code := []byte{0x26, 0x00, 0x02, 0x00, 0xAA, 0xBB}
		fake.handle = func(cmd uint16, payload []byte) (uint16, []byte) {
			resp := make([]byte, 4+len(code))
			resp[0] = 0x04
			copy(resp[4:], code)
			return 0, resp
		}
		dev := newTestDevice(t, 0x2712, fake)

		data, err := dev.CheckData(t.Context())
		if err != nil {
			t.Fatalf("CheckData() error = %v", err)
		}
		if !bytes.Equal(data[:len(code)], code) {
			t.Errorf("data = % x, want prefix % x", data, code)
		}
	})

	t.Run("not ready", func(t *testing.T) {
		t.Parallel()
		fake := newFakeDevice()
		fake.handle = func(cmd uint16, payload []byte) (uint16, []byte) {
			return 0xFFF6, nil
		}
		dev := newTestDevice(t, 0x2712, fake)

		_, err := dev.CheckData(t.Context())
		if !errors.Is(err, broadlink.ErrNotReady) {
			t.Errorf("CheckData() error = %v, want ErrNotReady", err)
		}
	})
}

// -------------------------------------------------------------------------
// TestSendData — dialect prefix and raw passthrough
// -------------------------------------------------------------------------

func TestSendData(t *testing.T) {
	t.Parallel()

	raw := []byte{0x26, 0x00, 0x04, 0x00, 0x11, 0x22, 0x0D, 0x05}

	t.Run("rm", func(t *testing.T) {
		t.Parallel()
		fake := newFakeDevice()
		dev := newTestDevice(t, 0x2712, fake)

		if err := dev.SendData(t.Context(), raw); err != nil {
			t.Fatalf("SendData() error = %v", err)
		}
		req := fake.lastRequest(t)
		want := append([]byte{0x02, 0x00, 0x00, 0x00}, raw...)
		if !bytes.Equal(req.payload[:len(want)], want) {
			t.Errorf("payload = % x, want prefix % x", req.payload, want)
		}
	})

	t.Run("rm4 prefixes 0x04 0x00", func(t *testing.T) {
		t.Parallel()
		fake := newFakeDevice()
		dev := newTestDevice(t, 0x61A2, fake)

		if err := dev.SendData(t.Context(), raw); err != nil {
			t.Fatalf("SendData() error = %v", err)
		}
		req := fake.lastRequest(t)
		want := append([]byte{0x04, 0x00, 0x02, 0x00, 0x00, 0x00}, raw...)
		if !bytes.Equal(req.payload[:len(want)], want) {
			t.Errorf("payload = % x, want prefix % x", req.payload, want)
		}
	})
}

// TestRM4ResponseOffset verifies the two-byte response shift.
func TestRM4ResponseOffset(t *testing.T) {
	t.Parallel()

	fake := newFakeDevice()
	fake.handle = func(cmd uint16, payload []byte) (uint16, []byte) {
		resp := make([]byte, 16)
		resp[0x06] = 0x77 // RM4 data position
		return 0, resp
	}
	dev := newTestDevice(t, 0x61A2, fake)

	data, err := dev.CheckData(t.Context())
	if err != nil {
		t.Fatalf("CheckData() error = %v", err)
	}
	if data[0] != 0x77 {
		t.Errorf("data[0] = 0x%02x, want 0x77", data[0])
	}
}

// -------------------------------------------------------------------------
// TestCheckSensors — scenario from the protocol document
// -------------------------------------------------------------------------

func TestCheckSensors(t *testing.T) {
	t.Parallel()

	fake := newFakeDevice()
	fake.handle = func(cmd uint16, payload []byte) (uint16, []byte) {
		// 23.3 degrees, 50.0 percent.
		return 0, pad16(0x04, 0x00, 0x00, 0x00, 0x17, 0x03, 0x32, 0x00)
	}
	dev := newTestDevice(t, 0x2712, fake)

	reading, err := dev.CheckSensors(t.Context())
	if err != nil {
		t.Fatalf("CheckSensors() error = %v", err)
	}
	if reading.Temperature != 23.3 {
		t.Errorf("Temperature = %v, want 23.3", reading.Temperature)
	}
	if reading.Humidity != 50.0 {
		t.Errorf("Humidity = %v, want 50.0", reading.Humidity)
	}

	temp, err := dev.CheckTemperature(t.Context())
	if err != nil || temp != 23.3 {
		t.Errorf("CheckTemperature() = %v, %v", temp, err)
	}
	hum, err := dev.CheckHumidity(t.Context())
	if err != nil || hum != 50.0 {
		t.Errorf("CheckHumidity() = %v, %v", hum, err)
	}
}

// -------------------------------------------------------------------------
// TestLearnStateTracking — device ops advance the advisory FSM
// -------------------------------------------------------------------------

func TestLearnStateTracking(t *testing.T) {
	t.Parallel()

	fake := newFakeDevice()
	dataReady := false
	fake.handle = func(cmd uint16, payload []byte) (uint16, []byte) {
		if payload[0] == 0x04 && !dataReady {
			return 0xFFF6, nil
		}
		if payload[0] == 0x1A {
			return 0, pad16(0x04, 0x00, 0x00, 0x00, 0x01) // frequency locked
		}
		return 0, pad16(0x04, 0x26)
	}
	dev := newTestDevice(t, 0x2712, fake)

	if got := dev.LearnState(); got != broadlink.LearnIdle {
		t.Fatalf("initial state = %s, want Idle", got)
	}

	if err := dev.SweepFrequency(t.Context()); err != nil {
		t.Fatalf("SweepFrequency: %v", err)
	}
	if got := dev.LearnState(); got != broadlink.LearnRFSweeping {
		t.Fatalf("state = %s, want RFSweeping", got)
	}

	locked, err := dev.CheckFrequency(t.Context())
	if err != nil || !locked {
		t.Fatalf("CheckFrequency() = %t, %v", locked, err)
	}
	if got := dev.LearnState(); got != broadlink.LearnRFLocked {
		t.Fatalf("state = %s, want RFLocked", got)
	}

	if err := dev.FindRFPacket(t.Context()); err != nil {
		t.Fatalf("FindRFPacket: %v", err)
	}
	if got := dev.LearnState(); got != broadlink.LearnRFArmed {
		t.Fatalf("state = %s, want RFArmed", got)
	}

	dataReady = true
	if _, err := dev.CheckData(t.Context()); err != nil {
		t.Fatalf("CheckData: %v", err)
	}
	if got := dev.LearnState(); got != broadlink.LearnRFCaptured {
		t.Fatalf("state = %s, want RFCaptured", got)
	}

	// Re-auth invalidates the learning session.
	if err := dev.Auth(t.Context()); err != nil {
		t.Fatalf("Auth: %v", err)
	}
	if got := dev.LearnState(); got != broadlink.LearnIdle {
		t.Errorf("state after re-auth = %s, want Idle", got)
	}
}
