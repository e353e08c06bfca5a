package broadlink

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"time"
)

// This file builds the two unencrypted probe frames (discovery and
// provisioning) and parses discovery responses. Probes are broadcast to
// 255.255.255.255:80 by default; the discovery frame can also be sent
// unicast to a single device ("hello").

// -------------------------------------------------------------------------
// Discovery Frame
// -------------------------------------------------------------------------

// MarshalDiscovery builds the 48-byte discovery probe.
//
// Wire format:
//
//	0x08-0x0B  GMT offset in hours (LE int32)
//	0x0C-0x0D  Year (LE)
//	0x0E       Minute
//	0x0F       Hour
//	0x10       Year modulo 100
//	0x11       ISO weekday
//	0x12       Day
//	0x13       Month
//	0x18-0x1B  Local IPv4, octets reversed
//	0x1C-0x1D  Local source port (LE)
//	0x20-0x21  Checksum (LE, computed with this field zeroed)
//	0x26       0x06
func MarshalDiscovery(local netip.AddrPort, now time.Time) ([]byte, error) {
	if !local.Addr().Is4() {
		return nil, fmt.Errorf("marshal discovery: local address %s is not IPv4: %w",
			local.Addr(), ErrInvalidArgument)
	}

	buf := make([]byte, DiscoveryFrameSize)

	_, offset := now.Zone()
	// The frame carries whole hours only. Negative offsets are sign-
	// extended across all four bytes.
	binary.LittleEndian.PutUint32(buf[0x08:], uint32(int32(offset/3600)))

	year := now.Year()
	binary.LittleEndian.PutUint16(buf[0x0C:], uint16(year))
	buf[0x0E] = byte(now.Minute())
	buf[0x0F] = byte(now.Hour())
	buf[0x10] = byte(year % 100)
	// ISO weekday: Monday=1 .. Sunday=7.
	iso := byte(now.Weekday())
	if iso == 0 {
		iso = 7
	}
	buf[0x11] = iso
	buf[0x12] = byte(now.Day())
	buf[0x13] = byte(now.Month())

	ip := local.Addr().As4()
	buf[0x18] = ip[3]
	buf[0x19] = ip[2]
	buf[0x1A] = ip[1]
	buf[0x1B] = ip[0]
	binary.LittleEndian.PutUint16(buf[0x1C:], local.Port())

	buf[0x26] = byte(CmdHello)

	binary.LittleEndian.PutUint16(buf[0x20:], Checksum(buf))
	return buf, nil
}

// DiscoveryResponse holds the fields parsed out of a device's answer to
// the discovery probe.
type DiscoveryResponse struct {
	// DeviceType is the 16-bit device model code (offset 0x34).
	DeviceType uint16

	// MAC is the device MAC in wire byte order (offset 0x3A). Canonical
	// display form reverses the octets.
	MAC [6]byte

	// Name is the device-reported UTF-8 name (offset 0x40, NUL-terminated).
	Name string

	// Locked reports the cloud-lock hint from offset 0x7F. Locked devices
	// ignore broadcast discovery but still answer unicast hello probes.
	Locked bool
}

// discoveryRespMin is the minimum response length carrying device type
// and MAC. Name and lock fields are only present on longer responses.
const discoveryRespMin = 0x40

// UnmarshalDiscoveryResponse parses a discovery (or hello) response.
func UnmarshalDiscoveryResponse(buf []byte) (*DiscoveryResponse, error) {
	if len(buf) < discoveryRespMin {
		return nil, fmt.Errorf("unmarshal discovery response: %d bytes, minimum %d: %w",
			len(buf), discoveryRespMin, ErrFrameTooShort)
	}

	resp := &DiscoveryResponse{
		DeviceType: binary.LittleEndian.Uint16(buf[0x34:]),
	}
	copy(resp.MAC[:], buf[0x3A:0x40])

	if len(buf) > 0x40 {
		name := buf[0x40:]
		for i, b := range name {
			if b == 0 {
				name = name[:i]
				break
			}
		}
		resp.Name = string(name)
	}
	if len(buf) > 0x7F {
		resp.Locked = buf[0x7F] != 0
	}

	return resp, nil
}

// CanonicalMAC renders a wire-order MAC in display form (reversed octets,
// colon-separated).
func CanonicalMAC(mac [6]byte) string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x",
		mac[5], mac[4], mac[3], mac[2], mac[1], mac[0])
}

// -------------------------------------------------------------------------
// Provisioning Frame
// -------------------------------------------------------------------------

// SecurityMode is the Wi-Fi security mode carried in the provisioning
// frame at offset 0x86.
type SecurityMode uint8

const (
	// SecurityNone is an open network.
	SecurityNone SecurityMode = 0

	// SecurityWEP is WEP.
	SecurityWEP SecurityMode = 1

	// SecurityWPA1 is WPA1-PSK.
	SecurityWPA1 SecurityMode = 2

	// SecurityWPA2 is WPA2-PSK.
	SecurityWPA2 SecurityMode = 3

	// SecurityWPA12 is mixed WPA1/WPA2-PSK.
	SecurityWPA12 SecurityMode = 4
)

// String returns the human-readable name for the security mode.
func (m SecurityMode) String() string {
	switch m {
	case SecurityNone:
		return "none"
	case SecurityWEP:
		return "wep"
	case SecurityWPA1:
		return "wpa1"
	case SecurityWPA2:
		return "wpa2"
	case SecurityWPA12:
		return "wpa1/2"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// provisionFieldMax bounds the SSID and password fields; each occupies a
// 32-byte region of the provisioning frame.
const provisionFieldMax = 32

// MarshalProvision builds the 136-byte AP-mode provisioning broadcast.
// The device joins the given network and leaves AP mode; no response is
// sent.
//
// Wire format: SSID at 0x44, password at 0x64, SSID length at 0x84,
// password length at 0x85, security mode at 0x86, 0x26 = 0x14, checksum
// at 0x20.
func MarshalProvision(ssid, password string, mode SecurityMode) ([]byte, error) {
	if len(ssid) == 0 || len(ssid) > provisionFieldMax {
		return nil, fmt.Errorf("marshal provision: ssid length %d (want 1-%d): %w",
			len(ssid), provisionFieldMax, ErrInvalidArgument)
	}
	if len(password) > provisionFieldMax {
		return nil, fmt.Errorf("marshal provision: password length %d (max %d): %w",
			len(password), provisionFieldMax, ErrInvalidArgument)
	}

	buf := make([]byte, ProvisionFrameSize)
	buf[0x26] = byte(CmdProvision)
	copy(buf[0x44:], ssid)
	copy(buf[0x64:], password)
	buf[0x84] = byte(len(ssid))
	buf[0x85] = byte(len(password))
	buf[0x86] = byte(mode)

	binary.LittleEndian.PutUint16(buf[0x20:], Checksum(buf))
	return buf, nil
}
