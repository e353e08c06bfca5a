package broadlink

import (
	"context"
	"fmt"
)

// This file implements the Dooya DT360E curtain motor dialect: a fixed
// 16-byte command payload with two operation bytes at offsets 3 and 4,
// answered with the motor position at response offset 4.

// Dooya operation bytes (payload offset 0x03).
const (
	dooyaOpOpen     byte = 0x01
	dooyaOpClose    byte = 0x02
	dooyaOpStop     byte = 0x03
	dooyaOpPosition byte = 0x06
)

// dooyaCommand performs one motor command and returns the response byte
// at offset 4 (the position for queries, echoed state otherwise).
func (d *Device) dooyaCommand(ctx context.Context, op, arg byte) (byte, error) {
	payload := make([]byte, 16)
	payload[0x00] = 0x09
	payload[0x02] = 0xBB
	payload[0x03] = op
	payload[0x04] = arg
	payload[0x09] = 0xFA
	payload[0x0A] = 0x44

	resp, err := d.command(ctx, CmdCommand, payload)
	if err != nil {
		return 0, err
	}
	if len(resp.Payload) < 0x05 {
		return 0, fmt.Errorf("curtain command 0x%02x: payload %d bytes: %w",
			op, len(resp.Payload), ErrFrameTooShort)
	}
	return resp.Payload[0x04], nil
}

// OpenCurtain starts opening the curtain.
func (d *Device) OpenCurtain(ctx context.Context) error {
	if err := d.requireFamily("open curtain", FamilyDooya); err != nil {
		return err
	}
	_, err := d.dooyaCommand(ctx, dooyaOpOpen, 0x00)
	return err
}

// CloseCurtain starts closing the curtain.
func (d *Device) CloseCurtain(ctx context.Context) error {
	if err := d.requireFamily("close curtain", FamilyDooya); err != nil {
		return err
	}
	_, err := d.dooyaCommand(ctx, dooyaOpClose, 0x00)
	return err
}

// StopCurtain halts the motor where it is.
func (d *Device) StopCurtain(ctx context.Context) error {
	if err := d.requireFamily("stop curtain", FamilyDooya); err != nil {
		return err
	}
	_, err := d.dooyaCommand(ctx, dooyaOpStop, 0x00)
	return err
}

// CurtainPosition reads the motor position in percent open.
func (d *Device) CurtainPosition(ctx context.Context) (int, error) {
	if err := d.requireFamily("curtain position", FamilyDooya); err != nil {
		return 0, err
	}
	pos, err := d.dooyaCommand(ctx, dooyaOpPosition, 0x5D)
	if err != nil {
		return 0, err
	}
	return int(pos), nil
}
