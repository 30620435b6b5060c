package supervisor

import (
	"fmt"

	"github.com/codyde/sentryvibe-runner/internal/snapshot"
)

// ConfigError rejects an operation against an unregistered subject or an
// invalid descriptor. Callers must not retry blindly.
type ConfigError struct {
	SubjectID string
	Reason    string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("subject %q: %s", e.SubjectID, e.Reason)
}

// AlreadyRunningError rejects a start against a subject that is not
// Stopped. Exactly one live instance per subject is guaranteed.
type AlreadyRunningError struct {
	SubjectID string
	State     snapshot.State
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("subject %q is already %s", e.SubjectID, e.State)
}

// SpawnError reports that the OS failed to create the child process. The
// subject is driven to Error state.
type SpawnError struct {
	SubjectID string
	Err       error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawning subject %q: %v", e.SubjectID, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// RuntimeExitError reports an abnormal child exit: a non-zero code not
// caused by an expected termination signal.
type RuntimeExitError struct {
	SubjectID string
	ExitCode  int
	LastLine  string
}

func (e *RuntimeExitError) Error() string {
	if e.LastLine != "" {
		return fmt.Sprintf("subject %q exited with code %d: %s", e.SubjectID, e.ExitCode, e.LastLine)
	}
	return fmt.Sprintf("subject %q exited with code %d", e.SubjectID, e.ExitCode)
}

// TunnelError reports a tunnel-only failure. It never mutates process
// state.
type TunnelError struct {
	SubjectID string
	Reason    string
}

func (e *TunnelError) Error() string {
	return fmt.Sprintf("tunnel for subject %q: %s", e.SubjectID, e.Reason)
}
