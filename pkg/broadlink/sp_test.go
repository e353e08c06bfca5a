package broadlink_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/dantte-lp/gobroadlink/pkg/broadlink"
)

// -------------------------------------------------------------------------
// TestSP1SetPower — the pre-0x6A dialect
// -------------------------------------------------------------------------

func TestSP1SetPower(t *testing.T) {
	t.Parallel()

	fake := newFakeDevice()
	dev := newTestDevice(t, 0x0000, fake)

	if err := dev.SetPower(t.Context(), true); err != nil {
		t.Fatalf("SetPower() error = %v", err)
	}
	req := fake.lastRequest(t)
	if req.cmd != 0x0066 {
		t.Errorf("command = 0x%04x, want 0x0066", req.cmd)
	}
	if req.payload[0] != 0x01 {
		t.Errorf("state byte = 0x%02x, want 0x01", req.payload[0])
	}

	if err := dev.SetPower(t.Context(), false); err != nil {
		t.Fatalf("SetPower(off) error = %v", err)
	}
	if req := fake.lastRequest(t); req.payload[0] != 0x00 {
		t.Errorf("state byte = 0x%02x, want 0x00", req.payload[0])
	}
}

// -------------------------------------------------------------------------
// TestSP2PowerOps — generic command payloads and state decoding
// -------------------------------------------------------------------------

func TestSP2PowerOps(t *testing.T) {
	t.Parallel()

	fake := newFakeDevice()
	state := byte(0x00)
	fake.handle = func(cmd uint16, payload []byte) (uint16, []byte) {
		if payload[0] == 0x02 {
			state = payload[4]
			return 0, nil
		}
		return 0, pad16(0x01, 0x00, 0x00, 0x00, state)
	}
	dev := newTestDevice(t, 0x2711, fake)

	if err := dev.SetPower(t.Context(), true); err != nil {
		t.Fatalf("SetPower() error = %v", err)
	}
	req := fake.lastRequest(t)
	if req.payload[0] != 0x02 || req.payload[4] != 0x01 {
		t.Errorf("set payload = % x, want 02 .. 01 at [4]", req.payload[:5])
	}

	on, err := dev.CheckPower(t.Context())
	if err != nil {
		t.Fatalf("CheckPower() error = %v", err)
	}
	if !on {
		t.Error("CheckPower() = false after SetPower(true)")
	}

	// Nightlight write preserves the power bit.
	if err := dev.SetNightlight(t.Context(), true); err != nil {
		t.Fatalf("SetNightlight() error = %v", err)
	}
	if state != 0x03 {
		t.Errorf("state byte = 0x%02x, want 0x03 (power + nightlight)", state)
	}
	night, err := dev.CheckNightlight(t.Context())
	if err != nil || !night {
		t.Errorf("CheckNightlight() = %t, %v", night, err)
	}
}

// -------------------------------------------------------------------------
// TestGetEnergy — BCD decoding
// -------------------------------------------------------------------------

func TestGetEnergy(t *testing.T) {
	t.Parallel()

	fake := newFakeDevice()
	fake.handle = func(cmd uint16, payload []byte) (uint16, []byte) {
		// BCD bytes 0x23 0x45 0x01 at offsets 7-9: 14523 -> 145.23 kWh.
		return 0, pad16(0x08, 0, 0, 0, 0, 0, 0, 0x23, 0x45, 0x01)
	}
	dev := newTestDevice(t, 0x947A, fake)

	kwh, err := dev.GetEnergy(t.Context())
	if err != nil {
		t.Fatalf("GetEnergy() error = %v", err)
	}
	if kwh != 145.23 {
		t.Errorf("GetEnergy() = %v, want 145.23", kwh)
	}

	req := fake.lastRequest(t)
	wantReq := []byte{0x08, 0x00, 0xFE, 0x01, 0x05, 0x01, 0x00, 0x00, 0x00, 0x2D}
	if !bytes.Equal(req.payload[:len(wantReq)], wantReq) {
		t.Errorf("energy request = % x, want % x", req.payload[:len(wantReq)], wantReq)
	}
}

// -------------------------------------------------------------------------
// TestMP1SocketOps — bitmask encoding per socket
// -------------------------------------------------------------------------

func TestMP1SocketOps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		socket     int
		on         bool
		wantMask   byte
		wantState  byte
		wantMarker byte
	}{
		{socket: 1, on: true, wantMask: 0x01, wantState: 0x01, wantMarker: 0xB2 + 0x02},
		{socket: 2, on: true, wantMask: 0x02, wantState: 0x02, wantMarker: 0xB2 + 0x04},
		{socket: 3, on: true, wantMask: 0x04, wantState: 0x04, wantMarker: 0xB2 + 0x08},
		{socket: 2, on: false, wantMask: 0x02, wantState: 0x00, wantMarker: 0xB2 + 0x02},
		{socket: 4, on: false, wantMask: 0x08, wantState: 0x00, wantMarker: 0xB2 + 0x08},
	}

	fake := newFakeDevice()
	dev := newTestDevice(t, 0x4EB5, fake)

	for _, tt := range tests {
		if err := dev.SetSocketPower(t.Context(), tt.socket, tt.on); err != nil {
			t.Fatalf("SetSocketPower(%d, %t): %v", tt.socket, tt.on, err)
		}
		req := fake.lastRequest(t)
		if req.payload[0x0D] != tt.wantMask {
			t.Errorf("socket %d: mask = 0x%02x, want 0x%02x",
				tt.socket, req.payload[0x0D], tt.wantMask)
		}
		if req.payload[0x0E] != tt.wantState {
			t.Errorf("socket %d on=%t: state = 0x%02x, want 0x%02x",
				tt.socket, tt.on, req.payload[0x0E], tt.wantState)
		}
		if req.payload[0x06] != tt.wantMarker {
			t.Errorf("socket %d on=%t: marker = 0x%02x, want 0x%02x",
				tt.socket, tt.on, req.payload[0x06], tt.wantMarker)
		}
	}

	if err := dev.SetSocketPower(t.Context(), 0, true); !errors.Is(err, broadlink.ErrInvalidArgument) {
		t.Errorf("socket 0 error = %v, want ErrInvalidArgument", err)
	}
	if err := dev.SetSocketPower(t.Context(), 5, true); !errors.Is(err, broadlink.ErrInvalidArgument) {
		t.Errorf("socket 5 error = %v, want ErrInvalidArgument", err)
	}
}

func TestMP1CheckSocketPower(t *testing.T) {
	t.Parallel()

	fake := newFakeDevice()
	fake.handle = func(cmd uint16, payload []byte) (uint16, []byte) {
		resp := make([]byte, 16)
		resp[0x0E] = 0b0101 // sockets 1 and 3 on
		return 0, resp
	}
	dev := newTestDevice(t, 0x4EB5, fake)

	states, err := dev.CheckSocketPower(t.Context())
	if err != nil {
		t.Fatalf("CheckSocketPower() error = %v", err)
	}
	want := [4]bool{true, false, true, false}
	if states != want {
		t.Errorf("states = %v, want %v", states, want)
	}

	req := fake.lastRequest(t)
	if req.payload[0] != 0x0A || req.payload[0x06] != 0xAE {
		t.Errorf("query payload = % x", req.payload[:9])
	}
}

// -------------------------------------------------------------------------
// TestA1CheckSensors — spaced categorical layout
// -------------------------------------------------------------------------

func TestA1CheckSensors(t *testing.T) {
	t.Parallel()

	fake := newFakeDevice()
	fake.handle = func(cmd uint16, payload []byte) (uint16, []byte) {
		// 21.5 degrees, 48.0 percent, light dim, air excellent, noise noisy.
		resp := make([]byte, 16)
		resp[0x04] = 21
		resp[0x05] = 5
		resp[0x06] = 48
		resp[0x08] = 1
		resp[0x0A] = 0
		resp[0x0C] = 2
		return 0, resp
	}
	dev := newTestDevice(t, 0x2714, fake)

	reading, err := dev.CheckSensorsA1(t.Context())
	if err != nil {
		t.Fatalf("CheckSensorsA1() error = %v", err)
	}
	if reading.Temperature != 21.5 {
		t.Errorf("Temperature = %v, want 21.5", reading.Temperature)
	}
	if reading.Humidity != 48.0 {
		t.Errorf("Humidity = %v, want 48.0", reading.Humidity)
	}
	if got := reading.LightName(); got != "dim" {
		t.Errorf("LightName() = %q, want dim", got)
	}
	if got := reading.AirQualityName(); got != "excellent" {
		t.Errorf("AirQualityName() = %q, want excellent", got)
	}
	if got := reading.NoiseName(); got != "noisy" {
		t.Errorf("NoiseName() = %q, want noisy", got)
	}
}
