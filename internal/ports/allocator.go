// Package ports arbitrates network ports between supervised subjects.
//
// The allocator keeps a bijective table between live reservations and
// ports: no two subjects ever simultaneously claim the same port. It is
// the only resource contended across subjects, so every mutation happens
// under one lock.
package ports

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/codyde/sentryvibe-runner/internal/profile"
)

// Status describes the lifecycle of a reservation.
type Status int

const (
	// StatusReserved means the port is claimed but the process has not
	// been observed binding it yet.
	StatusReserved Status = iota

	// StatusBound means the process was observed (or assumed after the
	// bind-detection window) to be serving on the port.
	StatusBound

	// StatusReleased means the claim was freed.
	StatusReleased
)

// String returns a human-readable name for the status.
func (s Status) String() string {
	switch s {
	case StatusReserved:
		return "reserved"
	case StatusBound:
		return "bound"
	case StatusReleased:
		return "released"
	default:
		return "unknown"
	}
}

// Reservation is an exclusive claim on a port for a subject, independent
// of whether the process has actually bound it.
type Reservation struct {
	SubjectID string
	Port      int
	Profile   profile.Name
	Status    Status
	CreatedAt time.Time
}

// ExhaustionError is returned when a profile's port range has no free
// ports left.
type ExhaustionError struct {
	Profile profile.Name
	Range   [2]int
}

func (e *ExhaustionError) Error() string {
	return fmt.Sprintf("ports: profile %q range %d-%d exhausted", e.Profile, e.Range[0], e.Range[1])
}

// ProbeFunc reports whether a port is free on the local host. Overridable
// for tests.
type ProbeFunc func(port int) bool

// Allocator hands out non-conflicting ports under framework-specific
// environment conventions. Safe for concurrent use.
type Allocator struct {
	mu        sync.Mutex
	bySubject map[string]*Reservation
	byPort    map[int]string // port -> subject holding it
	probe     ProbeFunc
}

// Option customizes a new Allocator.
type Option func(*Allocator)

// WithProbe replaces the OS-level free-port probe. Tests use this to make
// allocation deterministic.
func WithProbe(probe ProbeFunc) Option {
	return func(a *Allocator) { a.probe = probe }
}

// NewAllocator creates an empty allocator.
func NewAllocator(opts ...Option) *Allocator {
	a := &Allocator{
		bySubject: make(map[string]*Reservation),
		byPort:    make(map[int]string),
		probe:     probeListen,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// probeListen checks OS-level availability by briefly binding the port.
// The check races with other processes on the host; the reservation table
// only guarantees exclusivity between our own subjects.
func probeListen(port int) bool {
	ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		return false
	}
	ln.Close()
	return true
}

// Reserve claims a port for the subject. If preferred is non-zero and
// free, it is used; otherwise the next free port in the profile's range
// is picked. A prior reservation held by the same subject is replaced.
func (a *Allocator) Reserve(subjectID string, prof profile.Name, preferred int) (Reservation, error) {
	p := profile.Lookup(prof)

	a.mu.Lock()
	defer a.mu.Unlock()

	// Replace any stale claim this subject still holds.
	a.releaseLocked(subjectID)

	if preferred > 0 && a.freeLocked(preferred) {
		return a.claimLocked(subjectID, p.Name, preferred), nil
	}

	for port := p.PortRangeStart; port <= p.PortRangeEnd; port++ {
		if a.freeLocked(port) {
			return a.claimLocked(subjectID, p.Name, port), nil
		}
	}

	return Reservation{}, &ExhaustionError{
		Profile: p.Name,
		Range:   [2]int{p.PortRangeStart, p.PortRangeEnd},
	}
}

// freeLocked reports whether the port is unclaimed by any subject and
// passes the OS probe. Caller holds a.mu.
func (a *Allocator) freeLocked(port int) bool {
	if _, taken := a.byPort[port]; taken {
		return false
	}
	return a.probe(port)
}

// claimLocked records a reservation. Caller holds a.mu.
func (a *Allocator) claimLocked(subjectID string, prof profile.Name, port int) Reservation {
	res := &Reservation{
		SubjectID: subjectID,
		Port:      port,
		Profile:   prof,
		Status:    StatusReserved,
		CreatedAt: time.Now(),
	}
	a.bySubject[subjectID] = res
	a.byPort[port] = subjectID
	return *res
}

// MarkBound upgrades the subject's reservation to Bound. No-op when the
// subject holds no reservation.
func (a *Allocator) MarkBound(subjectID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if res, ok := a.bySubject[subjectID]; ok {
		res.Status = StatusBound
	}
}

// Reconcile swaps the subject's reservation to the observed port and
// frees the original, atomically. Called when process output reveals a
// bound port different from the reservation (frameworks that fall back
// to an alternate port when the requested one is busy).
func (a *Allocator) Reconcile(subjectID string, observedPort int) (Reservation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	res, ok := a.bySubject[subjectID]
	if !ok {
		return Reservation{}, fmt.Errorf("ports: no reservation for subject %q", subjectID)
	}
	if res.Port == observedPort {
		res.Status = StatusBound
		return *res, nil
	}
	if holder, taken := a.byPort[observedPort]; taken && holder != subjectID {
		return Reservation{}, fmt.Errorf("ports: observed port %d already held by subject %q", observedPort, holder)
	}

	delete(a.byPort, res.Port)
	res.Port = observedPort
	res.Status = StatusBound
	a.byPort[observedPort] = subjectID
	return *res, nil
}

// Release frees any Reserved or Bound entry for the subject. Idempotent.
func (a *Allocator) Release(subjectID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.releaseLocked(subjectID)
}

func (a *Allocator) releaseLocked(subjectID string) {
	res, ok := a.bySubject[subjectID]
	if !ok {
		return
	}
	delete(a.byPort, res.Port)
	delete(a.bySubject, subjectID)
	res.Status = StatusReleased
}

// Lookup returns the subject's live reservation, if any.
func (a *Allocator) Lookup(subjectID string) (Reservation, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	res, ok := a.bySubject[subjectID]
	if !ok {
		return Reservation{}, false
	}
	return *res, true
}

// Live returns the number of live (Reserved or Bound) reservations.
func (a *Allocator) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.bySubject)
}

// BuildEnv returns the minimal environment variables the framework
// profile is known to honor for binding: the generic PORT variable plus
// any profile-specific override key.
func BuildEnv(prof profile.Name, port int) map[string]string {
	p := profile.Lookup(prof)
	value := strconv.Itoa(port)

	env := map[string]string{profile.GenericPortEnv: value}
	for _, key := range p.EnvKeys {
		env[key] = value
	}
	return env
}
