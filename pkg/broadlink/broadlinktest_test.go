package broadlink_test

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"net/netip"
	"sync"
	"testing"

	"github.com/dantte-lp/gobroadlink/pkg/broadlink"
)

// The well-known bootstrap credentials from the protocol document. Every
// device ships with them; auth replaces the key.
var (
	testKey = []byte{
		0x09, 0x76, 0x28, 0x34, 0x3F, 0xE9, 0x9E, 0x23,
		0x76, 0x5C, 0x15, 0x13, 0xAC, 0xCF, 0x8B, 0x02,
	}
	testIV = []byte{
		0x56, 0x2E, 0x17, 0x99, 0x6D, 0x09, 0x3D, 0x28,
		0xDD, 0xB3, 0xBA, 0x69, 0x5A, 0x2E, 0x6F, 0x58,
	}
)

// testHost is the address fake devices answer on.
var testHost = netip.AddrPortFrom(netip.AddrFrom4([4]byte{192, 0, 2, 10}), broadlink.DevicePort)

// cbcEncrypt zero-pads and encrypts a plaintext with the given key.
func cbcEncrypt(t *testing.T, key, plaintext []byte) []byte {
	t.Helper()
	if rem := len(plaintext) % aes.BlockSize; rem != 0 {
		plaintext = append(append([]byte(nil), plaintext...),
			bytes.Repeat([]byte{0}, aes.BlockSize-rem)...)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatalf("aes.NewCipher: %v", err)
	}
	out := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, testIV).CryptBlocks(out, plaintext)
	return out
}

// cbcDecrypt decrypts a ciphertext with the given key.
func cbcDecrypt(t *testing.T, key, ciphertext []byte) []byte {
	t.Helper()
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatalf("aes.NewCipher: %v", err)
	}
	out := make([]byte, len(ciphertext))
	if len(ciphertext) > 0 {
		cipher.NewCBCDecrypter(block, testIV).CryptBlocks(out, ciphertext)
	}
	return out
}

// request is one decoded frame captured by the fake device.
type request struct {
	cmd     uint16
	count   uint16
	payload []byte
}

// fakeDevice implements broadlink.Transport, emulating device firmware:
// it decrypts requests under the current session key, hands the
// plaintext to a handler, and encrypts the handler's answer. An auth
// exchange rotates the key the same way real firmware does.
type fakeDevice struct {
	mu       sync.Mutex
	key      []byte
	requests []request

	// handle answers one command: firmware error code plus response
	// payload. nil payload with code 0 produces a header-only frame.
	handle func(cmd uint16, payload []byte) (uint16, []byte)

	// err, when set, is returned from Request instead of an answer.
	err error

	// authKey and authID are installed into responses to CmdAuth.
	authKey []byte
	authID  uint32
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		key:     append([]byte(nil), testKey...),
		authKey: []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		authID:  0x00003713,
	}
}

// Request implements broadlink.Transport.
func (f *fakeDevice) Request(_ context.Context, _ netip.AddrPort, frame []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	cmd := binary.LittleEndian.Uint16(frame[0x26:])
	count := binary.LittleEndian.Uint16(frame[0x28:])

	// Auth exchanges always run under the bootstrap key, including
	// re-auth after a rotation.
	if cmd == broadlink.CmdAuth {
		f.key = append([]byte(nil), testKey...)
	}

	var payload []byte
	if len(frame) > 0x38 {
		block, err := aes.NewCipher(f.key)
		if err != nil {
			return nil, err
		}
		payload = make([]byte, len(frame)-0x38)
		cipher.NewCBCDecrypter(block, testIV).CryptBlocks(payload, frame[0x38:])
	}
	f.requests = append(f.requests, request{cmd: cmd, count: count, payload: payload})

	code, respPayload := f.answer(cmd, payload)
	resp, err := f.buildResponse(frame, cmd, count, code, respPayload)
	if err != nil {
		return nil, err
	}

	// Firmware encrypts the auth answer under the old key, then
	// switches to the negotiated one.
	if cmd == broadlink.CmdAuth && code == 0 {
		f.key = append([]byte(nil), f.authKey...)
	}
	return resp, nil
}

// answer produces the response payload for one command.
func (f *fakeDevice) answer(cmd uint16, payload []byte) (uint16, []byte) {
	if cmd == broadlink.CmdAuth {
		resp := make([]byte, 0x14)
		binary.LittleEndian.PutUint32(resp[0x00:], f.authID)
		copy(resp[0x04:], f.authKey)
		return 0, resp
	}
	if f.handle != nil {
		return f.handle(cmd, payload)
	}
	return 0, nil
}

// buildResponse assembles a well-formed device response frame.
func (f *fakeDevice) buildResponse(req []byte, cmd, count, code uint16, payload []byte) ([]byte, error) {
	buf := make([]byte, 0x38)
	copy(buf, broadlink.Magic[:])
	binary.LittleEndian.PutUint16(buf[0x22:], code)
	copy(buf[0x24:0x26], req[0x24:0x26])
	binary.LittleEndian.PutUint16(buf[0x26:], cmd|0x0380)
	binary.LittleEndian.PutUint16(buf[0x28:], count)

	if len(payload) > 0 {
		if rem := len(payload) % aes.BlockSize; rem != 0 {
			payload = append(append([]byte(nil), payload...),
				bytes.Repeat([]byte{0}, aes.BlockSize-rem)...)
		}
		binary.LittleEndian.PutUint16(buf[0x34:], broadlink.Checksum(payload))

		block, err := aes.NewCipher(f.key)
		if err != nil {
			return nil, err
		}
		enc := make([]byte, len(payload))
		cipher.NewCBCEncrypter(block, testIV).CryptBlocks(enc, payload)
		buf = append(buf, enc...)
	}

	binary.LittleEndian.PutUint16(buf[0x20:], broadlink.Checksum(buf))
	return buf, nil
}

// Send implements broadlink.Transport. Fire-and-forget frames are
// recorded without an answer.
func (f *fakeDevice) Send(_ netip.AddrPort, frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, request{
		cmd:   binary.LittleEndian.Uint16(frame[0x26:]),
		count: binary.LittleEndian.Uint16(frame[0x28:]),
	})
	return nil
}

// Close implements broadlink.Transport.
func (f *fakeDevice) Close() error { return nil }

// lastRequest returns the most recent captured request.
func (f *fakeDevice) lastRequest(t *testing.T) request {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatal("no requests captured")
	}
	return f.requests[len(f.requests)-1]
}

// newTestDevice wires a handle of the given type to a fake device and
// authenticates it.
func newTestDevice(t *testing.T, devType uint16, fake *fakeDevice) *broadlink.Device {
	t.Helper()
	dev, err := broadlink.NewDevice(broadlink.DeviceConfig{
		Host:       testHost,
		DeviceType: devType,
	}, broadlink.WithTransport(fake))
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	if err := dev.Auth(t.Context()); err != nil {
		t.Fatalf("Auth: %v", err)
	}
	return dev
}

// pad16 zero-pads a payload fragment to one AES block, the smallest
// well-formed response payload.
func pad16(b ...byte) []byte {
	out := make([]byte, 16)
	copy(out, b)
	return out
}
