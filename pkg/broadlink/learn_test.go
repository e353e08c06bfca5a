package broadlink_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/dantte-lp/gobroadlink/pkg/broadlink"
)

// learnOpts speeds the polling loops up for tests.
func learnOpts() []broadlink.LearnerOption {
	return []broadlink.LearnerOption{
		broadlink.WithLearnTimeout(500 * time.Millisecond),
		broadlink.WithPollInterval(10 * time.Millisecond),
	}
}

// -------------------------------------------------------------------------
// TestLearnIR — arm, poll through NotReady, capture
// -------------------------------------------------------------------------

func TestLearnIR(t *testing.T) {
	t.Parallel()

	code := []byte{0x26, 0x00, 0x02, 0x00, 0x11, 0x22}

	fake := newFakeDevice()
	polls := 0
	fake.handle = func(cmd uint16, payload []byte) (uint16, []byte) {
		if payload[0] != 0x04 {
			return 0, nil
		}
		polls++
		if polls < 3 {
			return 0xFFF6, nil
		}
		resp := make([]byte, 4+len(code))
		resp[0] = 0x04
		copy(resp[4:], code)
		return 0, resp
	}
	dev := newTestDevice(t, 0x2712, fake)

	learner, err := broadlink.NewLearner(dev, learnOpts()...)
	if err != nil {
		t.Fatalf("NewLearner: %v", err)
	}

	data, err := learner.LearnIR(t.Context())
	if err != nil {
		t.Fatalf("LearnIR() error = %v", err)
	}
	if !bytes.Equal(data[:len(code)], code) {
		t.Errorf("LearnIR() = % x, want prefix % x", data, code)
	}
	if polls < 3 {
		t.Errorf("polled %d times, want >= 3", polls)
	}
	if got := dev.LearnState(); got != broadlink.LearnIRCaptured {
		t.Errorf("state = %s, want IRCaptured", got)
	}
}

// TestLearnIRTimeout — a device that never captures fails softly.
func TestLearnIRTimeout(t *testing.T) {
	t.Parallel()

	fake := newFakeDevice()
	fake.handle = func(cmd uint16, payload []byte) (uint16, []byte) {
		if payload[0] == 0x04 {
			return 0xFFF6, nil
		}
		return 0, nil
	}
	dev := newTestDevice(t, 0x2712, fake)

	learner, err := broadlink.NewLearner(dev, learnOpts()...)
	if err != nil {
		t.Fatalf("NewLearner: %v", err)
	}

	_, err = learner.LearnIR(t.Context())
	if !errors.Is(err, broadlink.ErrLearnTimeout) {
		t.Fatalf("LearnIR() error = %v, want ErrLearnTimeout", err)
	}
	if got := dev.LearnState(); got != broadlink.LearnIdle {
		t.Errorf("state after timeout = %s, want Idle", got)
	}
}

// -------------------------------------------------------------------------
// TestLearnRF — full two-phase capture
// -------------------------------------------------------------------------

func TestLearnRF(t *testing.T) {
	t.Parallel()

	code := []byte{0xB2, 0x00, 0x02, 0x00, 0x33, 0x44}

	fake := newFakeDevice()
	freqPolls, dataPolls := 0, 0
	fake.handle = func(cmd uint16, payload []byte) (uint16, []byte) {
		switch payload[0] {
		case 0x1A:
			freqPolls++
			if freqPolls < 2 {
				return 0, pad16(0x1A)
			}
			return 0, pad16(0x1A, 0x00, 0x00, 0x00, 0x01)
		case 0x04:
			dataPolls++
			if dataPolls < 2 {
				return 0xFFF6, nil
			}
			resp := make([]byte, 4+len(code))
			resp[0] = 0x04
			copy(resp[4:], code)
			return 0, resp
		default:
			return 0, nil
		}
	}
	dev := newTestDevice(t, 0x2712, fake)

	learner, err := broadlink.NewLearner(dev, learnOpts()...)
	if err != nil {
		t.Fatalf("NewLearner: %v", err)
	}

	lockedSeen := false
	data, err := learner.LearnRF(t.Context(), func() { lockedSeen = true })
	if err != nil {
		t.Fatalf("LearnRF() error = %v", err)
	}
	if !lockedSeen {
		t.Error("locked callback never invoked")
	}
	if !bytes.Equal(data[:len(code)], code) {
		t.Errorf("LearnRF() = % x, want prefix % x", data, code)
	}
	if got := dev.LearnState(); got != broadlink.LearnRFCaptured {
		t.Errorf("state = %s, want RFCaptured", got)
	}
}

// TestLearnRFSweepTimeout — an unlocked sweep cancels device-side.
func TestLearnRFSweepTimeout(t *testing.T) {
	t.Parallel()

	fake := newFakeDevice()
	cancelled := false
	fake.handle = func(cmd uint16, payload []byte) (uint16, []byte) {
		switch payload[0] {
		case 0x1A:
			return 0, pad16(0x1A) // never locks
		case 0x1E:
			cancelled = true
		}
		return 0, nil
	}
	dev := newTestDevice(t, 0x2712, fake)

	learner, err := broadlink.NewLearner(dev, learnOpts()...)
	if err != nil {
		t.Fatalf("NewLearner: %v", err)
	}

	_, err = learner.LearnRF(t.Context(), nil)
	if !errors.Is(err, broadlink.ErrLearnTimeout) {
		t.Fatalf("LearnRF() error = %v, want ErrLearnTimeout", err)
	}
	if !cancelled {
		t.Error("sweep was not cancelled after timeout")
	}
	if got := dev.LearnState(); got != broadlink.LearnIdle {
		t.Errorf("state after cancel = %s, want Idle", got)
	}
}

// TestNewLearnerRejectsNonRM — only remotes learn.
func TestNewLearnerRejectsNonRM(t *testing.T) {
	t.Parallel()

	fake := newFakeDevice()
	dev := newTestDevice(t, 0x2711, fake) // SP2

	if _, err := broadlink.NewLearner(dev); !errors.Is(err, broadlink.ErrUnsupportedDevice) {
		t.Errorf("NewLearner error = %v, want ErrUnsupportedDevice", err)
	}
}
