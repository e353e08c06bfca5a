package broadlink

import (
	"context"
	"fmt"
)

// This file implements the MP1 power strip dialect. The strip carries
// four sockets addressed by a bitmask: socket N uses mask 0x01 << (N-1).

// MP1Sockets is the number of switchable sockets on the strip.
const MP1Sockets = 4

// SetSocketPower switches one strip socket (1-based) on or off.
func (d *Device) SetSocketPower(ctx context.Context, socket int, on bool) error {
	if err := d.requireFamily("set socket power", FamilyMP1); err != nil {
		return err
	}
	if socket < 1 || socket > MP1Sockets {
		return fmt.Errorf("set socket power: socket %d (want 1-%d): %w",
			socket, MP1Sockets, ErrInvalidArgument)
	}
	return d.setSocketMask(ctx, 0x01<<(socket-1), on)
}

// setSocketMask switches every socket selected by mask. The 0xB2 marker
// byte encodes the direction: mask added once for off, twice for on.
func (d *Device) setSocketMask(ctx context.Context, mask byte, on bool) error {
	marker := 0xB2 + mask
	state := byte(0)
	if on {
		marker += mask
		state = mask
	}

	payload := make([]byte, 16)
	payload[0x00] = 0x0D
	payload[0x02] = 0xA5
	payload[0x03] = 0xA5
	payload[0x04] = 0x5A
	payload[0x05] = 0x5A
	payload[0x06] = marker
	payload[0x07] = 0xC0
	payload[0x08] = 0x02
	payload[0x0A] = 0x03
	payload[0x0D] = mask
	payload[0x0E] = state

	_, err := d.command(ctx, CmdCommand, payload)
	return err
}

// CheckSocketPower reads the power state of all four sockets. Index 0
// is socket 1.
func (d *Device) CheckSocketPower(ctx context.Context) ([MP1Sockets]bool, error) {
	var states [MP1Sockets]bool
	if err := d.requireFamily("check socket power", FamilyMP1); err != nil {
		return states, err
	}

	payload := make([]byte, 16)
	payload[0x00] = 0x0A
	payload[0x02] = 0xA5
	payload[0x03] = 0xA5
	payload[0x04] = 0x5A
	payload[0x05] = 0x5A
	payload[0x06] = 0xAE
	payload[0x07] = 0xC0
	payload[0x08] = 0x01

	resp, err := d.command(ctx, CmdCommand, payload)
	if err != nil {
		return states, err
	}
	if len(resp.Payload) < 0x0F {
		return states, fmt.Errorf("check socket power: payload %d bytes: %w",
			len(resp.Payload), ErrFrameTooShort)
	}

	bitmap := resp.Payload[0x0E]
	for i := range states {
		states[i] = bitmap&(0x01<<i) != 0
	}
	return states, nil
}
