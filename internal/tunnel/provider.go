package tunnel

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"sync"
	"syscall"
	"time"

	"github.com/codyde/sentryvibe-runner/internal/output"
)

// Provider establishes and tears down tunnels for subjects.
type Provider interface {
	// Open starts a tunnel to localPort and blocks until a public URL is
	// observed or the attempt fails. The returned binding is Active or
	// Failed, never Creating.
	Open(ctx context.Context, subjectID string, localPort int) Binding

	// Close tears down the subject's tunnel. Idempotent.
	Close(subjectID string) error
}

// publicURLRe matches the public URL announced on the provider's output.
var publicURLRe = regexp.MustCompile(`https://[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}[^\s]*`)

// ExecConfig holds the parameters for an exec-based provider.
type ExecConfig struct {
	// BinaryPath is the tunnel provider binary (external collaborator).
	BinaryPath string

	// ExtraArgs are prepended before the --url argument.
	ExtraArgs []string

	// URLTimeout bounds how long Open waits for the public URL.
	// Defaults to 20s.
	URLTimeout time.Duration

	// Logger receives operational messages.
	Logger *slog.Logger
}

// ExecProvider spawns the tunnel binary per subject and scans its output
// for the announced public URL.
type ExecProvider struct {
	cfg    ExecConfig
	logger *slog.Logger

	mu    sync.Mutex
	procs map[string]*exec.Cmd
}

var _ Provider = (*ExecProvider)(nil)

// NewExecProvider creates a provider that shells out to cfg.BinaryPath.
func NewExecProvider(cfg ExecConfig) *ExecProvider {
	if cfg.URLTimeout <= 0 {
		cfg.URLTimeout = 20 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ExecProvider{
		cfg:    cfg,
		logger: logger,
		procs:  make(map[string]*exec.Cmd),
	}
}

// urlSink watches provider output for the first public URL.
type urlSink struct {
	found chan string
	once  sync.Once
}

func (s *urlSink) HandleLine(line string) {
	if m := publicURLRe.FindString(line); m != "" {
		s.once.Do(func() { s.found <- m })
	}
}

// Open starts the provider process and waits for its URL announcement.
func (p *ExecProvider) Open(ctx context.Context, subjectID string, localPort int) Binding {
	binding := newBinding(subjectID, localPort)

	// Replace any prior tunnel for this subject.
	p.Close(subjectID)

	args := append(append([]string{}, p.cfg.ExtraArgs...),
		"--url", fmt.Sprintf("http://localhost:%d", localPort))
	cmd := exec.Command(p.cfg.BinaryPath, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return p.fail(binding, fmt.Errorf("stdout pipe: %w", err))
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return p.fail(binding, fmt.Errorf("stderr pipe: %w", err))
	}

	if err := cmd.Start(); err != nil {
		return p.fail(binding, fmt.Errorf("starting %s: %w", p.cfg.BinaryPath, err))
	}

	p.mu.Lock()
	p.procs[subjectID] = cmd
	p.mu.Unlock()

	// Providers differ on which stream carries the URL; scan both.
	sink := &urlSink{found: make(chan string, 1)}
	outPipe := output.NewPipeline(subjectID, "stdout", 64)
	errPipe := output.NewPipeline(subjectID, "stderr", 64)
	go output.NewPipeReader(stdout, outPipe).Run()
	go output.NewPipeReader(stderr, errPipe).Run()
	go outPipe.RunSink(sink)
	go errPipe.RunSink(sink)

	// Reap the process whenever it exits so Close never leaves a zombie.
	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	select {
	case url := <-sink.found:
		binding.PublicURL = url
		binding.Status = StatusActive
		p.logger.Info("tunnel_active",
			"subject_id", subjectID,
			"local_port", localPort,
			"public_url", url,
		)
		return binding
	case err := <-exited:
		p.forget(subjectID)
		return p.fail(binding, fmt.Errorf("provider exited before announcing URL: %v", err))
	case <-time.After(p.cfg.URLTimeout):
		p.Close(subjectID)
		return p.fail(binding, fmt.Errorf("no public URL within %s", p.cfg.URLTimeout))
	case <-ctx.Done():
		p.Close(subjectID)
		return p.fail(binding, ctx.Err())
	}
}

// Close kills the subject's provider process, if any. Idempotent.
func (p *ExecProvider) Close(subjectID string) error {
	p.mu.Lock()
	cmd, ok := p.procs[subjectID]
	delete(p.procs, subjectID)
	p.mu.Unlock()

	if !ok || cmd.Process == nil {
		return nil
	}

	if pgid, err := syscall.Getpgid(cmd.Process.Pid); err == nil {
		syscall.Kill(-pgid, syscall.SIGTERM)
	} else {
		cmd.Process.Signal(syscall.SIGTERM)
	}
	p.logger.Debug("tunnel_closed", "subject_id", subjectID)
	return nil
}

func (p *ExecProvider) forget(subjectID string) {
	p.mu.Lock()
	delete(p.procs, subjectID)
	p.mu.Unlock()
}

func (p *ExecProvider) fail(binding Binding, err error) Binding {
	binding.Status = StatusFailed
	binding.Error = err.Error()
	p.logger.Warn("tunnel_failed",
		"subject_id", binding.SubjectID,
		"local_port", binding.LocalPort,
		"error", err,
	)
	return binding
}
