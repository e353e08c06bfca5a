package broadlink

import (
	"context"
	"fmt"
)

// This file implements the RM/RM4 dialect: IR/RF learning, code
// transmission, and the environment sensor reads shared with the A1.
//
// RM4 firmware prefixes every generic payload with 0x04 0x00 and returns
// response data two bytes later than RM2/RM3.

// Learning-dialect opcode bytes (first payload byte of a 16-byte generic
// command).
const (
	rmOpSensors        byte = 0x01
	rmOpSendData       byte = 0x02
	rmOpEnterLearning  byte = 0x03
	rmOpCheckData      byte = 0x04
	rmOpSweepFrequency byte = 0x19
	rmOpCheckFrequency byte = 0x1A
	rmOpFindRFPacket   byte = 0x1B
	rmOpCancelSweep    byte = 0x1E
)

// Modality bytes for transmitted code packets (raw[0] of SendData).
const (
	// ModalityIR marks an infrared pulse packet.
	ModalityIR byte = 0x26

	// ModalityRF433 marks a 433 MHz RF packet.
	ModalityRF433 byte = 0xB2

	// ModalityRF315 marks a 315 MHz RF packet.
	ModalityRF315 byte = 0xD7
)

// irTerminator ends every IR pulse packet.
var irTerminator = []byte{0x0D, 0x05}

// rmHeader returns the dialect prefix for generic payloads: empty for
// RM2/RM3, 0x04 0x00 for RM4.
func (d *Device) rmHeader() []byte {
	if d.family == FamilyRM4 {
		return []byte{0x04, 0x00}
	}
	return nil
}

// rmOffset returns the response byte offset where dialect data starts.
func (d *Device) rmOffset() int {
	if d.family == FamilyRM4 {
		return 0x06
	}
	return 0x04
}

// rmPayload builds a generic 16-byte opcode payload with the dialect
// prefix applied.
func (d *Device) rmPayload(op byte) []byte {
	header := d.rmHeader()
	payload := make([]byte, len(header)+16)
	copy(payload, header)
	payload[len(header)] = op
	return payload
}

// applyLearn advances the handle's advisory learning state.
func (d *Device) applyLearn(event LearnEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	res := ApplyLearnEvent(d.learn, event)
	if res.Changed {
		d.metrics.RecordLearnTransition(d.host.Addr().String(),
			res.OldState.String(), res.NewState.String())
	}
	d.learn = res.NewState
}

// LearnState returns the handle's advisory learning-mode state.
func (d *Device) LearnState() LearnState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.learn
}

// -------------------------------------------------------------------------
// Learning operations
// -------------------------------------------------------------------------

// EnterLearning arms one-shot IR capture. The device LED turns on and
// the next received IR signal is stored for CheckData.
func (d *Device) EnterLearning(ctx context.Context) error {
	if err := d.requireFamily("enter learning", FamilyRM, FamilyRM4); err != nil {
		return err
	}
	if _, err := d.command(ctx, CmdCommand, d.rmPayload(rmOpEnterLearning)); err != nil {
		return err
	}
	d.applyLearn(EventEnterLearning)
	return nil
}

// CheckData polls for a captured packet. Until the device has one it
// answers with firmware code 0xFFF6, surfaced as ErrNotReady; callers
// poll until data arrives or their deadline passes.
func (d *Device) CheckData(ctx context.Context) ([]byte, error) {
	if err := d.requireFamily("check data", FamilyRM, FamilyRM4); err != nil {
		return nil, err
	}
	resp, err := d.command(ctx, CmdCommand, d.rmPayload(rmOpCheckData))
	if err != nil {
		return nil, err
	}
	off := d.rmOffset()
	if len(resp.Payload) <= off {
		return nil, fmt.Errorf("check data: payload %d bytes: %w",
			len(resp.Payload), ErrFrameTooShort)
	}
	d.applyLearn(EventDataReady)
	return resp.Payload[off:], nil
}

// SendData transmits a device-native code packet: raw[0] is the
// modality (ModalityIR, ModalityRF433, ModalityRF315), raw[1] the
// repeat count, raw[2:4] the little-endian pulse-section length.
func (d *Device) SendData(ctx context.Context, raw []byte) error {
	if err := d.requireFamily("send data", FamilyRM, FamilyRM4); err != nil {
		return err
	}
	header := d.rmHeader()
	payload := make([]byte, 0, len(header)+4+len(raw))
	payload = append(payload, header...)
	payload = append(payload, rmOpSendData, 0x00, 0x00, 0x00)
	payload = append(payload, raw...)
	_, err := d.command(ctx, CmdCommand, payload)
	return err
}

// SweepFrequency starts the RF frequency sweep. The user holds the
// remote button down while the device scans candidate carriers.
func (d *Device) SweepFrequency(ctx context.Context) error {
	if err := d.requireFamily("sweep frequency", FamilyRM, FamilyRM4); err != nil {
		return err
	}
	if _, err := d.command(ctx, CmdCommand, d.rmPayload(rmOpSweepFrequency)); err != nil {
		return err
	}
	d.applyLearn(EventSweepFrequency)
	return nil
}

// CheckFrequency polls the sweep. It returns true once the device has
// locked onto the carrier the held-down button transmits on.
func (d *Device) CheckFrequency(ctx context.Context) (bool, error) {
	if err := d.requireFamily("check frequency", FamilyRM, FamilyRM4); err != nil {
		return false, err
	}
	resp, err := d.command(ctx, CmdCommand, d.rmPayload(rmOpCheckFrequency))
	if err != nil {
		return false, err
	}
	off := d.rmOffset()
	if len(resp.Payload) <= off {
		return false, fmt.Errorf("check frequency: payload %d bytes: %w",
			len(resp.Payload), ErrFrameTooShort)
	}
	locked := resp.Payload[off] == 1
	if locked {
		d.applyLearn(EventFrequencyLocked)
	}
	return locked, nil
}

// FindRFPacket arms RF packet capture on the locked frequency. The user
// presses the button briefly; the capture is then polled with CheckData.
func (d *Device) FindRFPacket(ctx context.Context) error {
	if err := d.requireFamily("find rf packet", FamilyRM, FamilyRM4); err != nil {
		return err
	}
	if _, err := d.command(ctx, CmdCommand, d.rmPayload(rmOpFindRFPacket)); err != nil {
		return err
	}
	d.applyLearn(EventFindRFPacket)
	return nil
}

// CancelSweepFrequency aborts the device-side RF sweep from any RF
// state and returns the advisory FSM to Idle.
func (d *Device) CancelSweepFrequency(ctx context.Context) error {
	if err := d.requireFamily("cancel sweep", FamilyRM, FamilyRM4); err != nil {
		return err
	}
	if _, err := d.command(ctx, CmdCommand, d.rmPayload(rmOpCancelSweep)); err != nil {
		return err
	}
	d.applyLearn(EventCancel)
	return nil
}

// -------------------------------------------------------------------------
// Sensor reads
// -------------------------------------------------------------------------

// SensorReading holds one environment read. Only the fields the family
// reports are meaningful: RM units report temperature (and humidity on
// RM4 models with the sensor cable). A1 reads use A1Reading
// (CheckSensorsA1) instead.
type SensorReading struct {
	// Temperature in degrees Celsius.
	Temperature float64

	// Humidity in percent relative humidity.
	Humidity float64

	// Light is the categorical light level (0 dark .. 3 bright).
	Light uint8

	// AirQuality is the categorical air quality (0 excellent .. 3 bad).
	AirQuality uint8

	// Noise is the categorical noise level (0 quiet .. 2 noisy).
	Noise uint8
}

// CheckSensors reads the RM unit's environment sensors: temperature and
// humidity as (integer, tenths) byte pairs, then the categorical light,
// air and noise flags.
func (d *Device) CheckSensors(ctx context.Context) (*SensorReading, error) {
	if err := d.requireFamily("check sensors", FamilyRM, FamilyRM4); err != nil {
		return nil, err
	}
	resp, err := d.command(ctx, CmdCommand, d.rmPayload(rmOpSensors))
	if err != nil {
		return nil, err
	}
	off := d.rmOffset()
	if len(resp.Payload) < off+7 {
		return nil, fmt.Errorf("check sensors: payload %d bytes: %w",
			len(resp.Payload), ErrFrameTooShort)
	}
	p := resp.Payload[off:]
	return &SensorReading{
		Temperature: float64(p[0]) + float64(p[1])/10,
		Humidity:    float64(p[2]) + float64(p[3])/10,
		Light:       p[4],
		AirQuality:  p[5],
		Noise:       p[6],
	}, nil
}

// CheckTemperature reads the temperature sensor.
func (d *Device) CheckTemperature(ctx context.Context) (float64, error) {
	reading, err := d.CheckSensors(ctx)
	if err != nil {
		return 0, err
	}
	return reading.Temperature, nil
}

// CheckHumidity reads the humidity sensor.
func (d *Device) CheckHumidity(ctx context.Context) (float64, error) {
	reading, err := d.CheckSensors(ctx)
	if err != nil {
		return 0, err
	}
	return reading.Humidity, nil
}

// -------------------------------------------------------------------------
// IR pulse codec
// -------------------------------------------------------------------------

// pulseNum and pulseDen convert microseconds to device ticks: one tick
// is 8192/269 microseconds of carrier time.
const (
	pulseNum = 269
	pulseDen = 8192
)

// MicrosecondsToTicks converts a pulse duration in microseconds to
// device ticks (truncating).
func MicrosecondsToTicks(us int) int {
	return us * pulseNum / pulseDen
}

// TicksToMicroseconds converts device ticks back to microseconds
// (truncating).
func TicksToMicroseconds(ticks int) int {
	return ticks * pulseDen / pulseNum
}

// EncodePulses renders tick values as the per-pulse byte stream: values
// under 256 are emitted plain, larger values as 0x00 followed by the
// big-endian 16-bit value.
func EncodePulses(ticks []int) ([]byte, error) {
	out := make([]byte, 0, len(ticks))
	for _, t := range ticks {
		switch {
		case t <= 0 || t > 0xFFFF:
			return nil, fmt.Errorf("encode pulses: tick %d out of range: %w",
				t, ErrInvalidArgument)
		case t < 0x100:
			out = append(out, byte(t))
		default:
			out = append(out, 0x00, byte(t>>8), byte(t))
		}
	}
	return out, nil
}

// EncodeIR builds a complete SendData packet from microsecond pulse
// durations: modality 0x26, the given repeat count, the little-endian
// pulse-section length, the encoded pulses, and the 0x0D 0x05
// terminator.
func EncodeIR(microseconds []int, repeat byte) ([]byte, error) {
	ticks := make([]int, len(microseconds))
	for i, us := range microseconds {
		ticks[i] = MicrosecondsToTicks(us)
	}
	pulses, err := EncodePulses(ticks)
	if err != nil {
		return nil, fmt.Errorf("encode ir: %w", err)
	}
	pulses = append(pulses, irTerminator...)

	if len(pulses) > 0xFFFF {
		return nil, fmt.Errorf("encode ir: %d pulse bytes: %w",
			len(pulses), ErrInvalidArgument)
	}

	raw := make([]byte, 0, 4+len(pulses))
	raw = append(raw, ModalityIR, repeat, byte(len(pulses)), byte(len(pulses)>>8))
	raw = append(raw, pulses...)
	return raw, nil
}
