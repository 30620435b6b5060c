// Package snapshot defines the lifecycle states and serializable status
// projection shared by the supervisor, store, hub, and streaming layers.
package snapshot

import (
	"encoding/json"
	"fmt"
)

// State represents the lifecycle state of a supervised subject.
type State int

const (
	// StateStopped is the initial and normal terminal state.
	StateStopped State = iota

	// StateStarting indicates the child process is being spawned and has
	// not yet signalled readiness.
	StateStarting

	// StateRunning indicates readiness was observed (or the bind-detection
	// window elapsed with the process still alive).
	StateRunning

	// StateError indicates a spawn failure or abnormal exit. Terminal
	// until an explicit restart re-enters Starting.
	StateError
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// IsActive returns true if the state represents a live child process
// (either running or in the process of starting).
func (s State) IsActive() bool {
	return s == StateStarting || s == StateRunning
}

// ParseState converts a persisted status string back to a State.
func ParseState(v string) (State, error) {
	switch v {
	case "stopped":
		return StateStopped, nil
	case "starting":
		return StateStarting, nil
	case "running":
		return StateRunning, nil
	case "error":
		return StateError, nil
	default:
		return StateStopped, fmt.Errorf("unknown state %q", v)
	}
}

// Snapshot is the serializable projection of a subject's status. It is
// persisted as the authoritative record and streamed to viewers; viewers
// treat it as read-only.
type Snapshot struct {
	SubjectID    string `json:"subjectId"`
	Status       string `json:"status"`
	Port         int    `json:"port,omitempty"`
	TunnelURL    string `json:"tunnelUrl,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// Encode returns the canonical JSON encoding of the snapshot. Struct
// field order is fixed, so two snapshots with equal values always encode
// to identical bytes. Streaming dedup compares these bytes.
func (s Snapshot) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// Equal reports whether two snapshots carry the same values.
func (s Snapshot) Equal(other Snapshot) bool {
	return s == other
}
