package broadlink

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
)

// This file implements the S3 hub dialect. The hub multiplexes a set of
// sub-devices, each addressed by a 32-hex-character DID, over the same
// JSON-over-binary framing as the bulbs.

// didPattern matches a well-formed sub-device identifier.
var didPattern = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)

// hubPageSize is the number of sub-devices requested per enumeration
// page.
const hubPageSize = 5

// HubSubdevice describes one device paired to the hub.
type HubSubdevice struct {
	// DID is the 32-hex-character sub-device identifier.
	DID string `json:"did"`

	// Name is the user-assigned sub-device name.
	Name string `json:"name"`

	// Type is the hub-reported sub-device model code.
	Type int `json:"pid"`
}

// HubState is the switch state of one sub-device. Multi-gang switches
// report per-gang states alongside the whole-device one.
type HubState struct {
	// Pwr is the whole-device power state.
	Pwr *int `json:"pwr,omitempty"`

	// Pwr1 and Pwr2 are the per-gang states of two-gang switches.
	Pwr1 *int `json:"pwr1,omitempty"`
	Pwr2 *int `json:"pwr2,omitempty"`
}

// hubList is the enumeration response document.
type hubList struct {
	Total int            `json:"total"`
	List  []HubSubdevice `json:"list"`
}

// hubStateEnvelope wraps per-device state reads and writes.
type hubStateEnvelope struct {
	DID  string `json:"did"`
	Pwr  *int   `json:"pwr,omitempty"`
	Pwr1 *int   `json:"pwr1,omitempty"`
	Pwr2 *int   `json:"pwr2,omitempty"`
}

// GetSubdevices enumerates every sub-device paired to the hub, paging
// through the firmware's list in fixed-size steps.
func (d *Device) GetSubdevices(ctx context.Context) ([]HubSubdevice, error) {
	if err := d.requireFamily("get subdevices", FamilyHub); err != nil {
		return nil, err
	}

	var devices []HubSubdevice
	for index := 0; ; index += hubPageSize {
		page, total, err := d.subdevicePage(ctx, index)
		if err != nil {
			return nil, err
		}
		devices = append(devices, page...)
		if len(devices) >= total || len(page) == 0 {
			return devices, nil
		}
	}
}

// subdevicePage fetches one enumeration page.
func (d *Device) subdevicePage(ctx context.Context, index int) ([]HubSubdevice, int, error) {
	doc, err := json.Marshal(map[string]int{"count": hubPageSize, "index": index})
	if err != nil {
		return nil, 0, fmt.Errorf("get subdevices: %w", err)
	}
	resp, err := d.command(ctx, CmdCommand, encodeJSONPayload(jsonFlagRead, doc))
	if err != nil {
		return nil, 0, err
	}
	raw, err := decodeJSONPayload(resp.Payload)
	if err != nil {
		return nil, 0, fmt.Errorf("get subdevices: %w", err)
	}

	var list hubList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, 0, fmt.Errorf("get subdevices: %w", err)
	}
	return list.List, list.Total, nil
}

// GetHubState reads the switch state of the sub-device addressed by did.
func (d *Device) GetHubState(ctx context.Context, did string) (*HubState, error) {
	if err := d.requireFamily("get hub state", FamilyHub); err != nil {
		return nil, err
	}
	if !didPattern.MatchString(did) {
		return nil, fmt.Errorf("get hub state: did %q: %w", did, ErrInvalidArgument)
	}

	doc, err := json.Marshal(hubStateEnvelope{DID: did})
	if err != nil {
		return nil, fmt.Errorf("get hub state: %w", err)
	}
	resp, err := d.command(ctx, CmdCommand, encodeJSONPayload(jsonFlagRead, doc))
	if err != nil {
		return nil, err
	}
	raw, err := decodeJSONPayload(resp.Payload)
	if err != nil {
		return nil, fmt.Errorf("get hub state: %w", err)
	}

	var state HubState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("get hub state: %w", err)
	}
	return &state, nil
}

// SetHubState writes the set fields of state to the sub-device
// addressed by did. Recognized fields are pwr, pwr1, and pwr2; values
// must be 0 or 1.
func (d *Device) SetHubState(ctx context.Context, did string, state *HubState) error {
	if err := d.requireFamily("set hub state", FamilyHub); err != nil {
		return err
	}
	if !didPattern.MatchString(did) {
		return fmt.Errorf("set hub state: did %q: %w", did, ErrInvalidArgument)
	}
	for _, v := range []*int{state.Pwr, state.Pwr1, state.Pwr2} {
		if v != nil && *v != 0 && *v != 1 {
			return fmt.Errorf("set hub state: value %d (want 0 or 1): %w",
				*v, ErrInvalidArgument)
		}
	}
	if state.Pwr == nil && state.Pwr1 == nil && state.Pwr2 == nil {
		return fmt.Errorf("set hub state: no fields set: %w", ErrInvalidArgument)
	}

	doc, err := json.Marshal(hubStateEnvelope{
		DID:  did,
		Pwr:  state.Pwr,
		Pwr1: state.Pwr1,
		Pwr2: state.Pwr2,
	})
	if err != nil {
		return fmt.Errorf("set hub state: %w", err)
	}
	_, err = d.command(ctx, CmdCommand, encodeJSONPayload(jsonFlagWrite, doc))
	return err
}
