// Package stream serves the per-subject status streaming endpoint and
// the control API.
//
// Status delivery is deliberately dual-path: the hub pushes snapshots as
// they happen, and every connection independently polls the persisted
// store on a reconcile timer, republishing only on value change. Push
// masks poll latency; poll masks lost push events. Staleness is bounded
// by one reconcile interval, never by the fragile push path.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/codyde/sentryvibe-runner/internal/hub"
	"github.com/codyde/sentryvibe-runner/internal/metrics"
	"github.com/codyde/sentryvibe-runner/internal/snapshot"
	"github.com/codyde/sentryvibe-runner/internal/store"
	"github.com/codyde/sentryvibe-runner/internal/supervisor"
)

// Config holds the streaming timer and retry settings.
type Config struct {
	// KeepalivePeriod is how often a comment frame holds the transport
	// open. Defaults to 15s.
	KeepalivePeriod time.Duration

	// ReconcilePeriod is how often the persisted snapshot is reloaded
	// and compared against the last sent value. Defaults to 5s.
	ReconcilePeriod time.Duration

	// Retry bounds the storage reads feeding the stream.
	Retry store.RetryPolicy
}

// Server carries the shared collaborators of the HTTP layer.
type Server struct {
	cfg     Config
	logger  *slog.Logger
	sup     *supervisor.Supervisor
	hub     *hub.Hub
	store   store.Store
	metrics *metrics.Collector

	// fatalLogged notes subjects whose fatal storage fault was already
	// logged, so retries exhausting repeatedly do not storm the log.
	fatalLogged sync.Map
}

// NewServer creates the HTTP layer over a supervisor and its
// collaborators.
func NewServer(cfg Config, sup *supervisor.Supervisor, logger *slog.Logger, collector *metrics.Collector) *Server {
	if cfg.KeepalivePeriod <= 0 {
		cfg.KeepalivePeriod = 15 * time.Second
	}
	if cfg.ReconcilePeriod <= 0 {
		cfg.ReconcilePeriod = 5 * time.Second
	}
	if cfg.Retry.Attempts == 0 {
		cfg.Retry = store.DefaultRetryPolicy()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Server{
		cfg:     cfg,
		logger:  logger,
		sup:     sup,
		hub:     sup.Hub(),
		store:   sup.Store(),
		metrics: collector,
	}
}

// statusUpdateFrame is the payload frame pushed on every snapshot change.
type statusUpdateFrame struct {
	Type    string            `json:"type"`
	Project snapshot.Snapshot `json:"project"`
}

// handleStream serves one long-lived status stream for a subject.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	initial, err := s.initialSnapshot(r, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "unknown subject", http.StatusNotFound)
			return
		}
		s.logFatalOnce(id, err)
		http.Error(w, "status unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	s.metrics.StreamOpened()
	defer s.metrics.StreamClosed()

	sub := s.hub.Subscribe(id)
	defer func() {
		// Teardown happens exactly once; Unsubscribe tolerates repeats.
		s.hub.Unsubscribe(sub)
		s.metrics.SetHubSubscribers(float64(s.hub.TotalSubscribers()))
	}()
	s.metrics.SetHubSubscribers(float64(s.hub.TotalSubscribers()))

	s.logger.Debug("stream_opened", "subject_id", id, "subscription_id", sub.ID)

	if err := s.writeFrame(w, flusher, map[string]string{"type": "connected"}, "connected"); err != nil {
		return
	}

	var lastSent []byte
	send := func(snap snapshot.Snapshot) error {
		encoded, err := snap.Encode()
		if err != nil {
			return err
		}
		// Value-based change detection: a structurally identical
		// snapshot is suppressed even if it arrived as a fresh object.
		if lastSent != nil && string(encoded) == string(lastSent) {
			return nil
		}
		if err := s.writeFrame(w, flusher, statusUpdateFrame{Type: "status-update", Project: snap}, "status-update"); err != nil {
			return err
		}
		lastSent = encoded
		return nil
	}

	if err := send(initial); err != nil {
		return
	}

	keepalive := time.NewTicker(s.cfg.KeepalivePeriod)
	defer keepalive.Stop()
	reconcile := time.NewTicker(s.cfg.ReconcilePeriod)
	defer reconcile.Stop()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("stream_closed", "subject_id", id, "subscription_id", sub.ID)
			return

		case snap, ok := <-sub.C():
			if !ok {
				return
			}
			if err := send(snap); err != nil {
				return
			}

		case <-keepalive.C:
			if err := s.writeKeepalive(w, flusher); err != nil {
				return
			}

		case <-reconcile.C:
			// No store means no persisted row to reconcile against; the
			// live registry stands in, as on the initial load.
			if s.store == nil {
				snap, err := s.liveSnapshot(id)
				if err != nil {
					continue
				}
				if err := send(snap); err != nil {
					return
				}
				continue
			}
			snap, err := store.LoadWithRetry(r.Context(), s.store, id, s.cfg.Retry)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) || errors.Is(err, r.Context().Err()) {
					continue
				}
				// Retry budget exhausted or a non-transient fault:
				// close with an error frame rather than hang.
				s.logFatalOnce(id, err)
				s.writeFrame(w, flusher, map[string]string{
					"type":    "error",
					"message": "status store unavailable",
				}, "error")
				return
			}
			if err := send(snap); err != nil {
				return
			}
		}
	}
}

// initialSnapshot loads the persisted snapshot with bounded retry,
// falling back to the live registry when no row exists yet.
func (s *Server) initialSnapshot(r *http.Request, id string) (snapshot.Snapshot, error) {
	if s.store == nil {
		return s.liveSnapshot(id)
	}
	snap, err := store.LoadWithRetry(r.Context(), s.store, id, s.cfg.Retry)
	if err == nil {
		return snap, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return s.liveSnapshot(id)
	}
	return snapshot.Snapshot{}, err
}

func (s *Server) liveSnapshot(id string) (snapshot.Snapshot, error) {
	snap, err := s.sup.Snapshot(id)
	if err != nil {
		return snapshot.Snapshot{}, store.ErrNotFound
	}
	return snap, nil
}

// writeFrame writes one `data: <json>` payload frame.
func (s *Server) writeFrame(w http.ResponseWriter, flusher http.Flusher, payload any, frameType string) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", encoded); err != nil {
		return err
	}
	flusher.Flush()
	s.metrics.IncStreamFrames(frameType)
	return nil
}

// writeKeepalive writes the comment frame that holds the transport open.
func (s *Server) writeKeepalive(w http.ResponseWriter, flusher http.Flusher) error {
	if _, err := fmt.Fprint(w, ":keepalive\n\n"); err != nil {
		return err
	}
	flusher.Flush()
	s.metrics.IncStreamFrames("keepalive")
	return nil
}

// logFatalOnce logs a fatal storage fault once per subject to avoid log
// storms while connections churn.
func (s *Server) logFatalOnce(id string, err error) {
	if _, loaded := s.fatalLogged.LoadOrStore(id, struct{}{}); !loaded {
		s.logger.Error("stream_storage_fatal", "subject_id", id, "error", err)
	}
}
