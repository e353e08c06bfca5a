package broadlink

import (
	"crypto/aes"
	"math/rand/v2"
)

// -------------------------------------------------------------------------
// Session — per-handle authenticated context
// -------------------------------------------------------------------------

// Session holds the mutable per-device protocol state: the AES session
// key, the fixed IV, the device ID assigned at auth, and the packet
// counter. A fresh Session carries the well-known bootstrap key and a
// zero device ID; Auth replaces both.
//
// All mutation happens on the caller goroutine inside a single
// request/response turn, under the owning Device's lock.
type Session struct {
	key   []byte
	iv    []byte
	id    uint32
	count uint16
}

// newSession returns a bootstrap-keyed session. The packet counter is
// seeded randomly so a re-created handle does not replay counter values
// the device has recently seen.
func newSession() *Session {
	s := &Session{count: uint16(rand.Uint32())}
	s.reset()
	return s
}

// reset restores the bootstrap key and IV and clears the device ID.
// The counter keeps running: re-auth must not reuse counts.
func (s *Session) reset() {
	s.key = append([]byte(nil), bootstrapKey...)
	s.iv = append([]byte(nil), bootstrapIV...)
	s.id = 0
}

// rotate installs the device-chosen key and ID from an auth response.
func (s *Session) rotate(key []byte, id uint32) {
	s.key = append([]byte(nil), key...)
	s.id = id
}

// next increments the packet counter and returns the new value. Wraps
// naturally at 0xFFFF.
func (s *Session) next() uint16 {
	s.count++
	return s.count
}

// Count returns the current packet counter value.
func (s *Session) Count() uint16 {
	return s.count
}

// DeviceID returns the device ID, zero before authentication.
func (s *Session) DeviceID() uint32 {
	return s.id
}

// Authenticated reports whether Auth has rotated the session key: the
// device ID is non-zero and the key differs from the bootstrap key.
func (s *Session) Authenticated() bool {
	if s.id == 0 || len(s.key) != aes.BlockSize {
		return false
	}
	for i, b := range s.key {
		if b != bootstrapKey[i] {
			return true
		}
	}
	return false
}
