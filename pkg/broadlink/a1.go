package broadlink

import (
	"context"
	"fmt"
)

// This file implements the A1 environment sensor dialect. The read
// shares the RM sensor opcode but lays its response out differently:
// the categorical values sit at spaced offsets.

// A1 categorical value names, indexed by the raw sensor byte. Values
// past the end render as "unknown".
var (
	a1LightNames = []string{"dark", "dim", "normal", "bright"}
	a1AirNames   = []string{"excellent", "good", "normal", "bad"}
	a1NoiseNames = []string{"quiet", "normal", "noisy"}
)

// A1Reading is one A1 sensor read with both raw and named categorical
// values.
type A1Reading struct {
	// Temperature in degrees Celsius.
	Temperature float64

	// Humidity in percent relative humidity.
	Humidity float64

	// Light is the raw categorical light level; LightName renders it.
	Light uint8

	// AirQuality is the raw categorical air quality.
	AirQuality uint8

	// Noise is the raw categorical noise level.
	Noise uint8
}

// LightName renders the categorical light level.
func (r *A1Reading) LightName() string { return a1Name(a1LightNames, r.Light) }

// AirQualityName renders the categorical air quality.
func (r *A1Reading) AirQualityName() string { return a1Name(a1AirNames, r.AirQuality) }

// NoiseName renders the categorical noise level.
func (r *A1Reading) NoiseName() string { return a1Name(a1NoiseNames, r.Noise) }

func a1Name(names []string, v uint8) string {
	if int(v) < len(names) {
		return names[v]
	}
	return "unknown"
}

// CheckSensorsA1 reads the full A1 sensor set: temperature at response
// offsets 0x04-0x05, humidity at 0x06-0x07, then light at 0x08, air
// quality at 0x0A, and noise at 0x0C.
func (d *Device) CheckSensorsA1(ctx context.Context) (*A1Reading, error) {
	if err := d.requireFamily("check sensors", FamilyA1); err != nil {
		return nil, err
	}

	payload := make([]byte, 16)
	payload[0] = rmOpSensors
	resp, err := d.command(ctx, CmdCommand, payload)
	if err != nil {
		return nil, err
	}
	if len(resp.Payload) < 0x0D {
		return nil, fmt.Errorf("check sensors: payload %d bytes: %w",
			len(resp.Payload), ErrFrameTooShort)
	}

	p := resp.Payload
	return &A1Reading{
		Temperature: float64(p[0x04]) + float64(p[0x05])/10,
		Humidity:    float64(p[0x06]) + float64(p[0x07])/10,
		Light:       p[0x08],
		AirQuality:  p[0x0A],
		Noise:       p[0x0C],
	}, nil
}
