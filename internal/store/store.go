// Package store persists status snapshots. The persisted row is the
// single source of truth for a subject's status: the hub's push path only
// accelerates it, and every streaming connection's initial load and
// reconcile tick read from here.
package store

import (
	"context"
	"errors"

	"github.com/codyde/sentryvibe-runner/internal/snapshot"
)

// ErrNotFound is returned by Load when no snapshot exists for the subject.
var ErrNotFound = errors.New("store: snapshot not found")

// Store is the minimal persistence interface for status snapshots.
type Store interface {
	// Save upserts the subject's snapshot.
	Save(ctx context.Context, snap snapshot.Snapshot) error

	// Load returns the subject's snapshot, or ErrNotFound.
	Load(ctx context.Context, subjectID string) (snapshot.Snapshot, error)

	// Delete removes the subject's snapshot. Missing rows are not an error.
	Delete(ctx context.Context, subjectID string) error

	// Close releases the underlying resources.
	Close() error
}
