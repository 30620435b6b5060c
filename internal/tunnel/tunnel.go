// Package tunnel exposes supervised processes through an external tunnel
// provider. Tunnel lifecycle is fully insulated from process lifecycle:
// a provider failure only ever updates the binding, never the process
// state.
package tunnel

import (
	"time"

	"github.com/google/uuid"
)

// Status describes the lifecycle of one tunnel binding.
type Status int

const (
	// StatusCreating means the provider process is starting and no public
	// URL has been observed yet.
	StatusCreating Status = iota

	// StatusActive means a public URL is live.
	StatusActive

	// StatusFailed means the provider could not establish the tunnel.
	StatusFailed
)

// String returns a human-readable name for the status.
func (s Status) String() string {
	switch s {
	case StatusCreating:
		return "creating"
	case StatusActive:
		return "active"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Binding records one subject's tunnel.
type Binding struct {
	ID        string
	SubjectID string
	LocalPort int
	PublicURL string
	Status    Status
	Error     string
	CreatedAt time.Time
}

// newBinding creates a Creating-state binding.
func newBinding(subjectID string, localPort int) Binding {
	return Binding{
		ID:        uuid.NewString(),
		SubjectID: subjectID,
		LocalPort: localPort,
		Status:    StatusCreating,
		CreatedAt: time.Now(),
	}
}
