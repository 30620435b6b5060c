package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"

	"github.com/codyde/sentryvibe-runner/internal/snapshot"
)

// TransientStorageError reports a fault matching a transient signature
// that survived the full retry budget.
type TransientStorageError struct {
	SubjectID string
	Attempts  int
	Err       error
}

func (e *TransientStorageError) Error() string {
	return fmt.Sprintf("storage for subject %q still transiently failing after %d attempts: %v",
		e.SubjectID, e.Attempts, e.Err)
}

func (e *TransientStorageError) Unwrap() error { return e.Err }

// FatalStorageError reports a fault outside the transient signatures.
// Callers must not retry it.
type FatalStorageError struct {
	SubjectID string
	Err       error
}

func (e *FatalStorageError) Error() string {
	return fmt.Sprintf("fatal storage fault for subject %q: %v", e.SubjectID, e.Err)
}

func (e *FatalStorageError) Unwrap() error { return e.Err }

// RetryPolicy bounds retries of transient storage faults: a small fixed
// number of attempts with short linear backoff. Anything outside the
// known transient fault signatures fails immediately.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultRetryPolicy returns the policy used by streaming connections.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 3,
		Backoff:  250 * time.Millisecond,
	}
}

// IsTransient reports whether the error matches a known transient fault
// signature: lock contention, busy handles, or an interrupted statement.
// Schema errors, corruption, and missing rows are not transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, ErrNotFound) {
		return false
	}
	switch sqlite.ErrCode(err).ToPrimary() {
	case sqlite.ResultBusy, sqlite.ResultLocked, sqlite.ResultInterrupt:
		return true
	}
	return false
}

// LoadWithRetry loads a subject's snapshot, retrying transient faults
// under the policy. Linear backoff: attempt N sleeps N*Backoff before
// retrying. ErrNotFound and context errors surface as-is; other
// non-transient faults surface immediately as FatalStorageError; retry
// exhaustion surfaces the last fault as TransientStorageError.
func LoadWithRetry(ctx context.Context, s Store, subjectID string, policy RetryPolicy) (snapshot.Snapshot, error) {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		snap, err := s.Load(ctx, subjectID)
		if err == nil {
			return snap, nil
		}
		if !IsTransient(err) {
			if errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return snapshot.Snapshot{}, err
			}
			return snapshot.Snapshot{}, &FatalStorageError{SubjectID: subjectID, Err: err}
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return snapshot.Snapshot{}, ctx.Err()
		case <-time.After(time.Duration(attempt) * policy.Backoff):
		}
	}
	return snapshot.Snapshot{}, &TransientStorageError{SubjectID: subjectID, Attempts: attempts, Err: lastErr}
}
