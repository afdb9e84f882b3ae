// Package conversation implements the voice conversation orchestration
// loop: transcript in, local knowledge lookup or remote completion, speech
// playback out, with explicit state tracking and cancellation.
package conversation

import "errors"

// State is the tagged voice-session state. Exactly one state holds at a
// time; the independent boolean flags this replaces could represent
// impossible combinations.
type State int

const (
	// StateIdle: nothing in flight; new turns are accepted.
	StateIdle State = iota
	// StateListening: the client is capturing an utterance.
	StateListening
	// StateProcessing: a turn is being answered; new turns are rejected.
	StateProcessing
	// StateSpeaking: the assistant reply is being played back; a new turn
	// barges in by cancelling playback.
	StateSpeaking
)

// String returns the wire name of the state.
func (s State) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StateProcessing:
		return "processing"
	case StateSpeaking:
		return "speaking"
	default:
		return "idle"
	}
}

// ErrBusy is returned when a turn arrives while a previous turn is still
// being answered. The submission is rejected, not queued.
var ErrBusy = errors.New("a turn is already being processed")

// ErrStale is returned when a completion finished after a newer turn was
// accepted; the stale reply is discarded rather than appended.
var ErrStale = errors.New("turn superseded by a newer submission")

// canSubmit reports whether a new user turn may start from state s.
func canSubmit(s State) bool {
	switch s {
	case StateIdle, StateListening, StateSpeaking:
		return true
	default:
		return false
	}
}
