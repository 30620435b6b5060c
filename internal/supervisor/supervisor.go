// Package supervisor owns the lifecycle state machine of managed child
// processes: spawn, readiness detection, graceful/forceful stop, and
// optional tunnel attachment. At most one live process per subject id.
//
// The registry is an explicit object passed by shared reference to the
// HTTP layer; tests run independent supervisors in isolation.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/codyde/sentryvibe-runner/internal/hub"
	"github.com/codyde/sentryvibe-runner/internal/logging"
	"github.com/codyde/sentryvibe-runner/internal/metrics"
	"github.com/codyde/sentryvibe-runner/internal/output"
	"github.com/codyde/sentryvibe-runner/internal/ports"
	"github.com/codyde/sentryvibe-runner/internal/profile"
	"github.com/codyde/sentryvibe-runner/internal/snapshot"
	"github.com/codyde/sentryvibe-runner/internal/store"
	"github.com/codyde/sentryvibe-runner/internal/tunnel"
)

// Callbacks contains optional callback functions for supervisor events.
type Callbacks struct {
	// OnStateChange is called after every lifecycle transition.
	OnStateChange func(subjectID string, oldState, newState snapshot.State)

	// OnError is called for spawn failures and abnormal exits, for
	// collaborators wanting alerts beyond the status event.
	OnError func(subjectID string, err error)
}

// Config holds configuration for creating a new Supervisor.
type Config struct {
	// GraceWindow bounds how long Stop waits after the graceful signal
	// before the forceful kill. Defaults to 2s.
	GraceWindow time.Duration

	// SettleDelay separates stop and start inside Restart. Defaults to
	// 300ms.
	SettleDelay time.Duration

	// PortFallbackWindow is how long a Starting subject may stay silent
	// before the originally reserved port is accepted and the subject is
	// flagged Running. A tunable heuristic for frameworks that start
	// slowly, not a correctness guarantee: a late "real" port
	// announcement can still arrive after the fallback was accepted, at
	// which point reconciliation swaps the reservation. Defaults to 8s.
	PortFallbackWindow time.Duration

	// UptimeTickInterval drives the periodic uptime recomputation for
	// non-stopped subjects. Defaults to 5s.
	UptimeTickInterval time.Duration

	// OutputBufferSize is the per-stream line buffer. Defaults to 256.
	OutputBufferSize int

	// StoreSaveTimeout bounds each snapshot persist. Defaults to 2s.
	StoreSaveTimeout time.Duration

	Logger    *slog.Logger
	Ports     *ports.Allocator
	Hub       *hub.Hub
	Store     store.Store       // optional; nil skips persistence
	Tunnels   tunnel.Provider   // optional
	Metrics   *metrics.Collector // optional
	Callbacks Callbacks
}

// managed is the supervisor-owned record of one subject.
type managed struct {
	desc Descriptor
	prof profile.Profile

	state     snapshot.State
	cmd       *exec.Cmd
	pid       int
	port      int
	tunnelURL string
	binding   *tunnel.Binding
	errMsg    string
	lastLine  string
	startedAt time.Time

	// exitCh is closed when the current run's exit is observed. Stop
	// waits on it; it is replaced on every start.
	exitCh chan struct{}

	// expectedStop marks the termination signal as ours, so the exit is
	// classified Stopped rather than Error.
	expectedStop bool

	// generation invalidates watchers, fallback timers, and waiters from
	// previous runs.
	generation int
}

// Status is the read-only view of one subject handed to the TUI and the
// control API.
type Status struct {
	ID        string
	Name      string
	State     snapshot.State
	PID       int
	Port      int
	TunnelURL string
	Error     string
	LastLine  string
	Uptime    time.Duration
}

// Supervisor is the registry of managed processes.
type Supervisor struct {
	cfg     Config
	logger  *slog.Logger
	ports   *ports.Allocator
	hub     *hub.Hub
	store   store.Store
	tunnels tunnel.Provider
	metrics *metrics.Collector

	mu    sync.Mutex
	procs map[string]*managed
}

// New creates an empty supervisor registry.
func New(cfg Config) *Supervisor {
	if cfg.GraceWindow <= 0 {
		cfg.GraceWindow = 2 * time.Second
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 300 * time.Millisecond
	}
	if cfg.PortFallbackWindow <= 0 {
		cfg.PortFallbackWindow = 8 * time.Second
	}
	if cfg.UptimeTickInterval <= 0 {
		cfg.UptimeTickInterval = 5 * time.Second
	}
	if cfg.OutputBufferSize <= 0 {
		cfg.OutputBufferSize = 256
	}
	if cfg.StoreSaveTimeout <= 0 {
		cfg.StoreSaveTimeout = 2 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Ports == nil {
		cfg.Ports = ports.NewAllocator()
	}
	if cfg.Hub == nil {
		cfg.Hub = hub.New()
	}

	return &Supervisor{
		cfg:     cfg,
		logger:  cfg.Logger,
		ports:   cfg.Ports,
		hub:     cfg.Hub,
		store:   cfg.Store,
		tunnels: cfg.Tunnels,
		metrics: cfg.Metrics,
		procs:   make(map[string]*managed),
	}
}

// Hub returns the status hub shared with the streaming layer.
func (s *Supervisor) Hub() *hub.Hub { return s.hub }

// Store returns the snapshot store shared with the streaming layer.
func (s *Supervisor) Store() store.Store { return s.store }

// Register adds a subject in Stopped state. Duplicate ids are rejected.
func (s *Supervisor) Register(desc Descriptor) error {
	if err := desc.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if _, exists := s.procs[desc.ID]; exists {
		s.mu.Unlock()
		return &ConfigError{SubjectID: desc.ID, Reason: "already registered"}
	}
	m := &managed{
		desc:  desc,
		prof:  profile.Lookup(desc.Profile),
		state: snapshot.StateStopped,
	}
	s.procs[desc.ID] = m
	s.mu.Unlock()

	s.logger.Info("subject_registered",
		"subject_id", desc.ID,
		"command", desc.Command,
		"profile", string(m.prof.Name),
	)
	s.publish(desc.ID)
	return nil
}

// Start spawns the subject's process. Fails with AlreadyRunningError when
// the subject is Starting or Running; an Error subject re-enters Starting.
func (s *Supervisor) Start(ctx context.Context, id string) error {
	s.mu.Lock()
	m, ok := s.procs[id]
	if !ok {
		s.mu.Unlock()
		return &ConfigError{SubjectID: id, Reason: "not registered"}
	}
	if m.state.IsActive() {
		state := m.state
		s.mu.Unlock()
		return &AlreadyRunningError{SubjectID: id, State: state}
	}

	m.generation++
	gen := m.generation
	old := m.state
	m.state = snapshot.StateStarting
	m.errMsg = ""
	m.tunnelURL = ""
	m.binding = nil
	m.expectedStop = false
	m.lastLine = ""
	m.port = 0
	m.exitCh = make(chan struct{})
	desc := m.desc
	prof := m.prof
	s.mu.Unlock()

	s.notifyStateChange(id, old, snapshot.StateStarting)
	s.publish(id)

	var reserved ports.Reservation
	if desc.wantsPort() {
		var err error
		reserved, err = s.ports.Reserve(id, desc.Profile, desc.Port)
		if err != nil {
			var exhausted *ports.ExhaustionError
			if errors.As(err, &exhausted) {
				s.metrics.IncPortExhaustions()
			}
			s.failStart(id, gen, err.Error())
			return err
		}
		s.syncPortGauges()
	}

	cmd := exec.Command(desc.Command, desc.Args...)
	cmd.Dir = desc.Dir
	cmd.Env = buildEnv(desc, reserved)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return s.failSpawn(id, gen, desc, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return s.failSpawn(id, gen, desc, err)
	}

	if err := cmd.Start(); err != nil {
		return s.failSpawn(id, gen, desc, err)
	}

	s.mu.Lock()
	if m.generation != gen {
		// A concurrent stop invalidated this start while we were
		// spawning. Kill the orphan immediately.
		s.mu.Unlock()
		cmd.Process.Kill()
		go cmd.Wait()
		s.ports.Release(id)
		s.syncPortGauges()
		return &ConfigError{SubjectID: id, Reason: "start superseded"}
	}
	m.cmd = cmd
	m.pid = cmd.Process.Pid
	m.port = reserved.Port
	m.startedAt = time.Now()
	s.mu.Unlock()

	s.metrics.IncStarts()
	s.logger.Info("subject_started",
		"subject_id", id,
		"pid", cmd.Process.Pid,
		"port", reserved.Port,
	)
	s.publish(id)

	onLine := func(stream, line string) { s.observeLine(id, gen, stream, line) }
	onPort := func(port int) { s.observePort(id, gen, port) }
	onReady := func() { s.observeReady(id, gen) }

	stdoutPipeline := output.NewPipeline(id, "stdout", s.cfg.OutputBufferSize)
	go output.NewPipeReader(stdout, stdoutPipeline).Run()
	go stdoutPipeline.RunSink(newWatcher(prof, "stdout", onLine, onPort, onReady))

	stderrPipeline := output.NewPipeline(id, "stderr", s.cfg.OutputBufferSize)
	go output.NewPipeReader(stderr, stderrPipeline).Run()
	go stderrPipeline.RunSink(newWatcher(prof, "stderr", onLine, onPort, onReady))

	// Fallback: accept the reserved port and flag Running if the process
	// is still silent when the window closes, so a subject cannot remain
	// stuck in Starting.
	fallback := time.AfterFunc(s.cfg.PortFallbackWindow, func() {
		s.fallbackReady(id, gen)
	})

	go s.wait(id, gen, cmd, fallback)
	return nil
}

// buildEnv layers descriptor environment over the ambient one, with the
// allocator-derived port variables applied last: the kernel's port
// assignment is authoritative.
func buildEnv(desc Descriptor, reserved ports.Reservation) []string {
	env := os.Environ()
	for k, v := range desc.Env {
		env = append(env, k+"="+v)
	}
	if reserved.Port > 0 {
		for k, v := range ports.BuildEnv(reserved.Profile, reserved.Port) {
			env = append(env, k+"="+v)
		}
	}
	return env
}

// failSpawn handles pipe/spawn errors: Error state plus a SpawnError for
// the caller.
func (s *Supervisor) failSpawn(id string, gen int, desc Descriptor, err error) error {
	s.metrics.IncSpawnFailures()
	spawnErr := &SpawnError{SubjectID: id, Err: err}
	s.failStart(id, gen, spawnErr.Error())
	if s.cfg.Callbacks.OnError != nil {
		s.cfg.Callbacks.OnError(id, spawnErr)
	}
	return spawnErr
}

// failStart drives an in-flight start to Error state.
func (s *Supervisor) failStart(id string, gen int, msg string) {
	s.mu.Lock()
	m, ok := s.procs[id]
	if !ok || m.generation != gen {
		s.mu.Unlock()
		return
	}
	old := m.state
	m.state = snapshot.StateError
	m.errMsg = msg
	m.cmd = nil
	m.port = 0
	close(m.exitCh)
	s.mu.Unlock()

	s.ports.Release(id)
	s.syncPortGauges()
	s.logger.Error("subject_start_failed", "subject_id", id, "error", msg)
	s.notifyStateChange(id, old, snapshot.StateError)
	s.publish(id)
}

// wait blocks on the child's exit and classifies it.
func (s *Supervisor) wait(id string, gen int, cmd *exec.Cmd, fallback *time.Timer) {
	waitErr := cmd.Wait()
	fallback.Stop()
	exitCode := extractExitCode(waitErr)

	s.mu.Lock()
	m, ok := s.procs[id]
	if !ok || m.generation != gen {
		s.mu.Unlock()
		return
	}
	old := m.state
	expected := m.expectedStop
	lastLine := m.lastLine
	uptime := time.Since(m.startedAt)

	abnormal := !expected && exitCode != 0
	if abnormal {
		m.state = snapshot.StateError
		m.errMsg = (&RuntimeExitError{SubjectID: id, ExitCode: exitCode, LastLine: lastLine}).Error()
	} else {
		m.state = snapshot.StateStopped
		m.errMsg = ""
	}
	m.cmd = nil
	m.pid = 0
	m.port = 0
	m.tunnelURL = ""
	m.binding = nil
	close(m.exitCh)
	newState := m.state
	s.mu.Unlock()

	s.ports.Release(id)
	s.syncPortGauges()
	s.metrics.ClearUptime(id)
	s.closeTunnelQuietly(id)

	s.logger.Info("subject_exited",
		"subject_id", id,
		"exit_code", exitCode,
		"expected", expected,
		"uptime", uptime.String(),
	)

	if abnormal {
		s.metrics.IncAbnormalExits()
		if s.cfg.Callbacks.OnError != nil {
			s.cfg.Callbacks.OnError(id, &RuntimeExitError{SubjectID: id, ExitCode: exitCode, LastLine: lastLine})
		}
	}

	s.notifyStateChange(id, old, newState)
	s.publish(id)
}

// observeLine records the latest output line and logs it at a level
// derived from its content.
func (s *Supervisor) observeLine(id string, gen int, stream, line string) {
	s.mu.Lock()
	m, ok := s.procs[id]
	if !ok || m.generation != gen {
		s.mu.Unlock()
		return
	}
	m.lastLine = line
	s.mu.Unlock()

	s.logger.Log(context.Background(), logging.ClassifyLine(line), "child_output",
		"subject_id", id,
		"stream", stream,
		"line", logging.TruncateLine(line),
	)
}

// observePort handles a bound-port announcement from process output.
func (s *Supervisor) observePort(id string, gen int, observed int) {
	s.mu.Lock()
	m, ok := s.procs[id]
	if !ok || m.generation != gen || !m.state.IsActive() {
		s.mu.Unlock()
		return
	}
	current := m.port
	s.mu.Unlock()

	if current == observed {
		s.ports.MarkBound(id)
		return
	}

	res, err := s.ports.Reconcile(id, observed)
	if err != nil {
		s.logger.Debug("port_reconcile_skipped", "subject_id", id, "observed", observed, "error", err)
		return
	}

	s.mu.Lock()
	if m.generation == gen {
		m.port = res.Port
	}
	s.mu.Unlock()

	s.metrics.IncPortReconciliations()
	s.syncPortGauges()
	s.logger.Info("port_reconciled",
		"subject_id", id,
		"reserved", current,
		"observed", observed,
	)
	s.publish(id)
}

// observeReady flags the subject Running on the first readiness match.
func (s *Supervisor) observeReady(id string, gen int) {
	s.transitionRunning(id, gen, false)
}

// fallbackReady flags a still-Starting subject Running when the
// bind-detection window closes without any readiness signal.
func (s *Supervisor) fallbackReady(id string, gen int) {
	s.transitionRunning(id, gen, true)
}

func (s *Supervisor) transitionRunning(id string, gen int, assumed bool) {
	s.mu.Lock()
	m, ok := s.procs[id]
	if !ok || m.generation != gen || m.state != snapshot.StateStarting || m.cmd == nil {
		s.mu.Unlock()
		return
	}
	old := m.state
	m.state = snapshot.StateRunning
	startupLatency := time.Since(m.startedAt)
	s.mu.Unlock()

	s.ports.MarkBound(id)
	s.metrics.ObserveStartup(startupLatency)

	s.logger.Info("subject_running",
		"subject_id", id,
		"startup", startupLatency.String(),
		"assumed", assumed,
	)
	s.notifyStateChange(id, old, snapshot.StateRunning)
	s.publish(id)
}

// Stop sends the graceful signal, waits up to the grace window, then
// force-kills the process group. It resolves only once an exit is
// observed, whichever path triggered it. Stopping a subject that is not
// running is a no-op that resolves immediately.
func (s *Supervisor) Stop(id string, graceSignal syscall.Signal) error {
	if graceSignal == 0 {
		graceSignal = syscall.SIGTERM
	}

	s.mu.Lock()
	m, ok := s.procs[id]
	if !ok {
		s.mu.Unlock()
		return &ConfigError{SubjectID: id, Reason: "not registered"}
	}
	if !m.state.IsActive() {
		s.mu.Unlock()
		return nil
	}

	m.expectedStop = true
	cmd := m.cmd
	exitCh := m.exitCh

	if cmd == nil || cmd.Process == nil {
		// Stop raced an in-flight start that has not spawned yet.
		// Invalidate the start's generation so it kills whatever it
		// spawns, and settle this subject as Stopped now.
		m.generation++
		old := m.state
		m.state = snapshot.StateStopped
		close(m.exitCh)
		s.mu.Unlock()

		s.ports.Release(id)
		s.syncPortGauges()
		s.notifyStateChange(id, old, snapshot.StateStopped)
		s.publish(id)
		return nil
	}
	pid := cmd.Process.Pid
	s.mu.Unlock()

	signalGroup(pid, graceSignal)

	select {
	case <-exitCh:
	case <-time.After(s.cfg.GraceWindow):
		s.logger.Warn("force_killing_subject", "subject_id", id, "pid", pid)
		signalGroup(pid, syscall.SIGKILL)
		<-exitCh
	}

	s.metrics.IncStops()
	return nil
}

// signalGroup signals the whole process group, falling back to the single
// process when the group is gone.
func signalGroup(pid int, sig syscall.Signal) {
	if pgid, err := syscall.Getpgid(pid); err == nil {
		syscall.Kill(-pgid, sig)
	} else {
		syscall.Kill(pid, sig)
	}
}

// Restart stops the subject, waits a short settle delay, then starts it.
// Same guarantees as the composed primitives.
func (s *Supervisor) Restart(ctx context.Context, id string) error {
	if err := s.Stop(id, syscall.SIGTERM); err != nil {
		return err
	}
	time.Sleep(s.cfg.SettleDelay)
	s.metrics.IncRestarts()
	return s.Start(ctx, id)
}

// CreateTunnel attaches a public tunnel to a Running subject's port.
// Best-effort: failures surface as TunnelError and update only the
// binding, never the process state.
func (s *Supervisor) CreateTunnel(ctx context.Context, id string) (tunnel.Binding, error) {
	if s.tunnels == nil {
		return tunnel.Binding{}, &TunnelError{SubjectID: id, Reason: "no tunnel provider configured"}
	}

	s.mu.Lock()
	m, ok := s.procs[id]
	if !ok {
		s.mu.Unlock()
		return tunnel.Binding{}, &ConfigError{SubjectID: id, Reason: "not registered"}
	}
	if m.state != snapshot.StateRunning || m.port == 0 {
		state := m.state
		s.mu.Unlock()
		return tunnel.Binding{}, &TunnelError{
			SubjectID: id,
			Reason:    fmt.Sprintf("subject is %s without a bound port", state),
		}
	}
	port := m.port
	gen := m.generation
	s.mu.Unlock()

	binding := s.tunnels.Open(ctx, id, port)

	s.mu.Lock()
	if m.generation == gen {
		b := binding
		m.binding = &b
		if binding.Status == tunnel.StatusActive {
			m.tunnelURL = binding.PublicURL
		}
	}
	s.mu.Unlock()

	s.syncTunnelGauge()
	s.publish(id)

	if binding.Status != tunnel.StatusActive {
		return binding, &TunnelError{SubjectID: id, Reason: binding.Error}
	}
	return binding, nil
}

// CloseTunnel tears down the subject's tunnel. Idempotent.
func (s *Supervisor) CloseTunnel(id string) error {
	s.mu.Lock()
	m, ok := s.procs[id]
	if !ok {
		s.mu.Unlock()
		return &ConfigError{SubjectID: id, Reason: "not registered"}
	}
	had := m.binding != nil
	m.binding = nil
	m.tunnelURL = ""
	s.mu.Unlock()

	s.closeTunnelQuietly(id)
	s.syncTunnelGauge()
	if had {
		s.publish(id)
	}
	return nil
}

func (s *Supervisor) closeTunnelQuietly(id string) {
	if s.tunnels == nil {
		return
	}
	if err := s.tunnels.Close(id); err != nil {
		s.logger.Debug("tunnel_close_error", "subject_id", id, "error", err)
	}
}

// Snapshot returns the subject's current status projection.
func (s *Supervisor) Snapshot(id string) (snapshot.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.procs[id]
	if !ok {
		return snapshot.Snapshot{}, &ConfigError{SubjectID: id, Reason: "not registered"}
	}
	return snapshotLocked(id, m), nil
}

// List returns the status of every registered subject, ordered by id.
func (s *Supervisor) List() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Status, 0, len(s.procs))
	for id, m := range s.procs {
		st := Status{
			ID:        id,
			Name:      m.desc.Name,
			State:     m.state,
			PID:       m.pid,
			Port:      m.port,
			TunnelURL: m.tunnelURL,
			Error:     m.errMsg,
			LastLine:  m.lastLine,
		}
		if m.state.IsActive() {
			st.Uptime = time.Since(m.startedAt)
		}
		out = append(out, st)
	}
	sortStatuses(out)
	return out
}

// Run drives the periodic uptime tick until ctx is cancelled. The tick
// recomputes uptime for non-stopped subjects without mutating logical
// state.
func (s *Supervisor) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.UptimeTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tickUptime()
		}
	}
}

func (s *Supervisor) tickUptime() {
	s.mu.Lock()
	type entry struct {
		id     string
		uptime time.Duration
	}
	var live []entry
	for id, m := range s.procs {
		if m.state.IsActive() {
			live = append(live, entry{id, time.Since(m.startedAt)})
		}
	}
	s.mu.Unlock()

	for _, e := range live {
		s.metrics.SetUptime(e.id, e.uptime.Seconds())
	}
}

// StopAll stops every active subject; used on daemon shutdown.
func (s *Supervisor) StopAll(graceSignal syscall.Signal) {
	s.mu.Lock()
	var active []string
	for id, m := range s.procs {
		if m.state.IsActive() {
			active = append(active, id)
		}
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, id := range active {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := s.Stop(id, graceSignal); err != nil {
				s.logger.Warn("stop_all_error", "subject_id", id, "error", err)
			}
		}(id)
	}
	wg.Wait()
}

// snapshotLocked builds the serializable projection. Caller holds s.mu.
func snapshotLocked(id string, m *managed) snapshot.Snapshot {
	return snapshot.Snapshot{
		SubjectID:    id,
		Status:       m.state.String(),
		Port:         m.port,
		TunnelURL:    m.tunnelURL,
		ErrorMessage: m.errMsg,
	}
}

// publish persists the subject's snapshot and fans it out through the
// hub. The store is the source of truth; hub delivery is best-effort.
func (s *Supervisor) publish(id string) {
	s.mu.Lock()
	m, ok := s.procs[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	snap := snapshotLocked(id, m)
	s.mu.Unlock()

	if s.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.StoreSaveTimeout)
		if err := s.store.Save(ctx, snap); err != nil {
			s.logger.Error("snapshot_persist_failed", "subject_id", id, "error", err)
		}
		cancel()
	}

	s.hub.Publish(id, snap)
	s.syncStateGauges()
}

func (s *Supervisor) notifyStateChange(id string, oldState, newState snapshot.State) {
	if s.cfg.Callbacks.OnStateChange != nil && oldState != newState {
		s.cfg.Callbacks.OnStateChange(id, oldState, newState)
	}
}

// syncStateGauges refreshes the per-state subject counts.
func (s *Supervisor) syncStateGauges() {
	if s.metrics == nil {
		return
	}
	counts := map[snapshot.State]int{}
	s.mu.Lock()
	for _, m := range s.procs {
		counts[m.state]++
	}
	s.mu.Unlock()

	for _, st := range []snapshot.State{
		snapshot.StateStopped,
		snapshot.StateStarting,
		snapshot.StateRunning,
		snapshot.StateError,
	} {
		s.metrics.SetSubjects(st.String(), float64(counts[st]))
	}
}

func (s *Supervisor) syncPortGauges() {
	if s.metrics == nil {
		return
	}
	counts := map[profile.Name]int{}
	s.mu.Lock()
	ids := make([]string, 0, len(s.procs))
	for id := range s.procs {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	for _, id := range ids {
		if res, ok := s.ports.Lookup(id); ok {
			counts[res.Profile]++
		}
	}
	for _, name := range profile.Names() {
		s.metrics.SetPortReservations(string(name), float64(counts[name]))
	}
}

func (s *Supervisor) syncTunnelGauge() {
	if s.metrics == nil {
		return
	}
	s.mu.Lock()
	active := 0
	for _, m := range s.procs {
		if m.binding != nil && m.binding.Status == tunnel.StatusActive {
			active++
		}
	}
	s.mu.Unlock()
	s.metrics.SetTunnelsActive(float64(active))
}

func sortStatuses(list []Status) {
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
}

// extractExitCode extracts the exit code from a Wait() error. Signal
// exits map to 128 + signal number.
func extractExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if status.Signaled() {
				return 128 + int(status.Signal())
			}
			return status.ExitStatus()
		}
	}

	return 1
}
