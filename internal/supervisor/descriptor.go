package supervisor

import (
	"github.com/codyde/sentryvibe-runner/internal/profile"
)

// Descriptor declares what to run for one subject. It is owned by
// whichever layer decides what to run (the build pipeline or the service
// manifest); the supervisor only knows how to run and track it.
type Descriptor struct {
	// ID is the unique subject key: a service name or a project id.
	ID string

	// Name is the human-readable display name.
	Name string

	// Command and Args form the child process invocation.
	Command string
	Args    []string

	// Dir is the working directory. Empty means the daemon's cwd.
	Dir string

	// Env is merged over the ambient process environment; descriptor
	// values win on key collision.
	Env map[string]string

	// Port is the preferred port, 0 for none.
	Port int

	// Profile selects port range, env conventions, and readiness
	// patterns. Empty with Port 0 means no port reservation at all.
	Profile profile.Name
}

// wantsPort reports whether starting this subject should reserve a port.
func (d Descriptor) wantsPort() bool {
	return d.Port > 0 || d.Profile != ""
}

// validate checks the descriptor before registration.
func (d Descriptor) validate() error {
	if d.ID == "" {
		return &ConfigError{SubjectID: d.ID, Reason: "descriptor id is required"}
	}
	if d.Command == "" {
		return &ConfigError{SubjectID: d.ID, Reason: "descriptor command is required"}
	}
	if d.Port < 0 || d.Port > 65535 {
		return &ConfigError{SubjectID: d.ID, Reason: "descriptor port out of range"}
	}
	return nil
}
