package broadlink

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// This file implements the Learner, a thin wrapper over the advisory
// learning FSM that runs the human-in-the-loop polling protocols: one
// poll per second against the device until a packet arrives, the
// deadline passes, or the context is cancelled. Callers who want their
// own cadence drive the Device operations and ApplyLearnEvent directly.

// DefaultLearnTimeout bounds a capture attempt end to end.
const DefaultLearnTimeout = 30 * time.Second

// DefaultPollInterval is the capture polling cadence. The firmware
// defines no backoff; one hertz is the conventional rate.
const DefaultPollInterval = time.Second

// ErrLearnTimeout indicates the polling deadline elapsed without a
// capture.
var ErrLearnTimeout = errors.New("learning timed out")

// Learner drives IR and RF capture on one RM handle.
type Learner struct {
	dev      *Device
	timeout  time.Duration
	interval time.Duration
}

// LearnerOption configures optional Learner parameters.
type LearnerOption func(*Learner)

// WithLearnTimeout sets the end-to-end capture deadline.
func WithLearnTimeout(d time.Duration) LearnerOption {
	return func(l *Learner) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithPollInterval sets the polling cadence.
func WithPollInterval(d time.Duration) LearnerOption {
	return func(l *Learner) {
		if d > 0 {
			l.interval = d
		}
	}
}

// NewLearner wraps an RM-family handle.
func NewLearner(dev *Device, opts ...LearnerOption) (*Learner, error) {
	if err := dev.requireFamily("new learner", FamilyRM, FamilyRM4); err != nil {
		return nil, err
	}
	l := &Learner{
		dev:      dev,
		timeout:  DefaultLearnTimeout,
		interval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// LearnIR arms IR capture and polls until the device returns a packet.
// The user points the remote at the device and presses the button. On
// deadline expiry the attempt fails with ErrLearnTimeout and the
// advisory state returns to Idle.
func (l *Learner) LearnIR(ctx context.Context) ([]byte, error) {
	if err := l.dev.EnterLearning(ctx); err != nil {
		return nil, fmt.Errorf("learn ir: %w", err)
	}

	data, err := l.pollData(ctx)
	if err != nil {
		l.dev.applyLearn(EventTimeout)
		return nil, fmt.Errorf("learn ir: %w", err)
	}
	return data, nil
}

// LearnRF runs the full two-phase RF capture. During the sweep the user
// holds the remote button down; locked is invoked once the carrier is
// found, after which the user releases and presses the button briefly
// for packet capture. A nil locked is allowed.
//
// Any failure cancels the device-side sweep before returning.
func (l *Learner) LearnRF(ctx context.Context, locked func()) ([]byte, error) {
	if err := l.dev.SweepFrequency(ctx); err != nil {
		return nil, fmt.Errorf("learn rf: %w", err)
	}

	if err := l.pollFrequency(ctx); err != nil {
		l.cancel()
		return nil, fmt.Errorf("learn rf: %w", err)
	}
	if locked != nil {
		locked()
	}

	if err := l.dev.FindRFPacket(ctx); err != nil {
		l.cancel()
		return nil, fmt.Errorf("learn rf: %w", err)
	}

	data, err := l.pollData(ctx)
	if err != nil {
		l.cancel()
		return nil, fmt.Errorf("learn rf: %w", err)
	}
	return data, nil
}

// Cancel aborts an in-progress RF sweep.
func (l *Learner) Cancel(ctx context.Context) error {
	return l.dev.CancelSweepFrequency(ctx)
}

// cancel is the best-effort abort used on error paths. The device drops
// the sweep on its own if the datagram is lost.
func (l *Learner) cancel() {
	ctx, stop := context.WithTimeout(context.Background(), l.interval)
	defer stop()
	_ = l.dev.CancelSweepFrequency(ctx)
}

// pollData polls CheckData until a packet arrives or the deadline
// passes. ErrNotReady responses keep the loop running; any other error
// aborts.
func (l *Learner) pollData(ctx context.Context) ([]byte, error) {
	ctx, stop := context.WithTimeout(ctx, l.timeout)
	defer stop()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		data, err := l.dev.CheckData(ctx)
		switch {
		case err == nil:
			return data, nil
		case ctx.Err() != nil:
			return nil, ErrLearnTimeout
		case !errors.Is(err, ErrNotReady):
			return nil, err
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, ErrLearnTimeout
		}
	}
}

// pollFrequency polls CheckFrequency until the sweep locks.
func (l *Learner) pollFrequency(ctx context.Context) error {
	ctx, stop := context.WithTimeout(ctx, l.timeout)
	defer stop()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		locked, err := l.dev.CheckFrequency(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ErrLearnTimeout
			}
			if !errors.Is(err, ErrNotReady) {
				return err
			}
		}
		if locked {
			return nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ErrLearnTimeout
		}
	}
}
