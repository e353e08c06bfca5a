package broadlink

// This file implements the learning-mode finite state machine for RM
// devices. The FSM is advisory: the device firmware enforces ordering on
// its side and answers premature polls with 0xFFF6 (not ready). It is
// implemented as a pure function over a transition table so it can be
// driven either by the Learner helper or directly by callers who run
// their own polling loops.
//
// State diagram:
//
//	                 EnterLearning              DataReady
//	        Idle ------------------> IRArmed -------------> IRCaptured
//	         |
//	         | SweepFrequency
//	         v
//	     RFSweeping --FrequencyLocked--> RFLocked --FindRFPacket--> RFArmed
//	         |                              |                          |
//	         |                              |                          | DataReady
//	         |  Cancel / Timeout from RFSweeping, RFLocked, RFArmed    v
//	         +------------------> Idle                             RFCaptured

// LearnState represents a position in the learning-mode state machine.
type LearnState uint8

const (
	// LearnIdle means no capture is in progress.
	LearnIdle LearnState = iota

	// LearnIRArmed means the device is waiting for an IR signal.
	LearnIRArmed

	// LearnIRCaptured means an IR packet has been returned.
	LearnIRCaptured

	// LearnRFSweeping means the device is scanning carrier frequencies
	// while the user holds the remote button.
	LearnRFSweeping

	// LearnRFLocked means the frequency sweep found the carrier.
	LearnRFLocked

	// LearnRFArmed means the device is waiting for a short button press
	// on the locked frequency.
	LearnRFArmed

	// LearnRFCaptured means an RF packet has been returned.
	LearnRFCaptured
)

// String returns the human-readable state name.
func (s LearnState) String() string {
	switch s {
	case LearnIdle:
		return "Idle"
	case LearnIRArmed:
		return "IRArmed"
	case LearnIRCaptured:
		return "IRCaptured"
	case LearnRFSweeping:
		return "RFSweeping"
	case LearnRFLocked:
		return "RFLocked"
	case LearnRFArmed:
		return "RFArmed"
	case LearnRFCaptured:
		return "RFCaptured"
	default:
		return "Unknown"
	}
}

// LearnEvent represents an input to the learning-mode state machine.
type LearnEvent uint8

const (
	// EventEnterLearning arms one-shot IR capture.
	EventEnterLearning LearnEvent = iota

	// EventSweepFrequency starts the RF frequency sweep.
	EventSweepFrequency

	// EventFrequencyLocked reports that CheckFrequency returned true.
	EventFrequencyLocked

	// EventFindRFPacket arms RF packet capture on the locked frequency.
	EventFindRFPacket

	// EventDataReady reports that CheckData returned a packet.
	EventDataReady

	// EventCancel aborts the RF sweep (CancelSweepFrequency).
	EventCancel

	// EventTimeout reports that the caller's polling deadline elapsed.
	EventTimeout
)

// String returns the human-readable event name.
func (e LearnEvent) String() string {
	switch e {
	case EventEnterLearning:
		return "EnterLearning"
	case EventSweepFrequency:
		return "SweepFrequency"
	case EventFrequencyLocked:
		return "FrequencyLocked"
	case EventFindRFPacket:
		return "FindRFPacket"
	case EventDataReady:
		return "DataReady"
	case EventCancel:
		return "Cancel"
	case EventTimeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}

// learnKey is the transition table key: current state + incoming event.
type learnKey struct {
	state LearnState
	event LearnEvent
}

// LearnResult holds the outcome of applying an event to the FSM.
type LearnResult struct {
	// OldState is the state before the event was applied.
	OldState LearnState

	// NewState is the state after the event was applied. Equal to
	// OldState when the event is not applicable.
	NewState LearnState

	// Changed is true when NewState differs from OldState.
	Changed bool
}

// learnTable is the complete learning-mode transition table. Unlisted
// (state, event) pairs are ignored: the device answers premature polls
// with 0xFFF6 on its own, so the advisory FSM simply stays put.
//
// The only path into RFCaptured runs RFSweeping -> RFLocked -> RFArmed;
// Cancel and Timeout return to Idle from every RF state short of
// RFCaptured.
//
//nolint:gochecknoglobals // FSM transition table is intentionally package-level.
var learnTable = map[learnKey]LearnState{
	// IR path.
	{LearnIdle, EventEnterLearning}: LearnIRArmed,
	{LearnIRArmed, EventDataReady}:  LearnIRCaptured,
	{LearnIRArmed, EventTimeout}:    LearnIdle,

	// RF path.
	{LearnIdle, EventSweepFrequency}:        LearnRFSweeping,
	{LearnRFSweeping, EventFrequencyLocked}: LearnRFLocked,
	{LearnRFLocked, EventFindRFPacket}:      LearnRFArmed,
	{LearnRFArmed, EventDataReady}:          LearnRFCaptured,

	// Cancel and timeout from any RF state short of RFCaptured.
	{LearnRFSweeping, EventCancel}:  LearnIdle,
	{LearnRFLocked, EventCancel}:    LearnIdle,
	{LearnRFArmed, EventCancel}:     LearnIdle,
	{LearnRFSweeping, EventTimeout}: LearnIdle,
	{LearnRFLocked, EventTimeout}:   LearnIdle,
	{LearnRFArmed, EventTimeout}:    LearnIdle,

	// Captured states move straight to IRArmed or RFSweeping on the next arm.
	{LearnIRCaptured, EventEnterLearning}:  LearnIRArmed,
	{LearnIRCaptured, EventSweepFrequency}: LearnRFSweeping,
	{LearnRFCaptured, EventEnterLearning}:  LearnIRArmed,
	{LearnRFCaptured, EventSweepFrequency}: LearnRFSweeping,
}

// ApplyLearnEvent applies an event to the given state and returns the
// result. Pure function; the caller performs the matching device
// operation (EnterLearning, SweepFrequency, ...) itself.
func ApplyLearnEvent(current LearnState, event LearnEvent) LearnResult {
	next, ok := learnTable[learnKey{state: current, event: event}]
	if !ok {
		return LearnResult{OldState: current, NewState: current, Changed: false}
	}
	return LearnResult{OldState: current, NewState: next, Changed: current != next}
}
