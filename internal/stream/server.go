package stream

import (
	"encoding/json"
	"errors"
	"net/http"
	"syscall"
	"time"

	"github.com/codyde/sentryvibe-runner/internal/ports"
	"github.com/codyde/sentryvibe-runner/internal/profile"
	"github.com/codyde/sentryvibe-runner/internal/supervisor"
)

// Handler returns the HTTP routes: the streaming endpoint plus the
// control API the decision layer (build pipeline or user action) calls.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/projects", s.handleList)
	mux.HandleFunc("POST /api/projects", s.handleRegister)
	mux.HandleFunc("GET /api/projects/{id}/status", s.handleStatus)
	mux.HandleFunc("GET /api/projects/{id}/status/stream", s.handleStream)
	mux.HandleFunc("POST /api/projects/{id}/start", s.handleStart)
	mux.HandleFunc("POST /api/projects/{id}/stop", s.handleStop)
	mux.HandleFunc("POST /api/projects/{id}/restart", s.handleRestart)
	mux.HandleFunc("POST /api/projects/{id}/tunnel", s.handleCreateTunnel)
	mux.HandleFunc("DELETE /api/projects/{id}/tunnel", s.handleCloseTunnel)

	return mux
}

// subjectView is the list/status JSON shape.
type subjectView struct {
	ID        string  `json:"id"`
	Name      string  `json:"name,omitempty"`
	Status    string  `json:"status"`
	PID       int     `json:"pid,omitempty"`
	Port      int     `json:"port,omitempty"`
	TunnelURL string  `json:"tunnelUrl,omitempty"`
	Error     string  `json:"errorMessage,omitempty"`
	UptimeSec float64 `json:"uptimeSeconds,omitempty"`
}

func viewOf(st supervisor.Status) subjectView {
	return subjectView{
		ID:        st.ID,
		Name:      st.Name,
		Status:    st.State.String(),
		PID:       st.PID,
		Port:      st.Port,
		TunnelURL: st.TunnelURL,
		Error:     st.Error,
		UptimeSec: st.Uptime.Seconds(),
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	list := s.sup.List()
	views := make([]subjectView, 0, len(list))
	for _, st := range list {
		views = append(views, viewOf(st))
	}
	writeJSON(w, http.StatusOK, views)
}

// registerRequest mirrors the process descriptor owned by the decision
// layer.
type registerRequest struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Dir     string            `json:"dir"`
	Env     map[string]string `json:"env"`
	Port    int               `json:"port"`
	Profile string            `json:"profile"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	err := s.sup.Register(supervisor.Descriptor{
		ID:      req.ID,
		Name:    req.Name,
		Command: req.Command,
		Args:    req.Args,
		Dir:     req.Dir,
		Env:     req.Env,
		Port:    req.Port,
		Profile: profile.Name(req.Profile),
	})
	if err != nil {
		s.writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": req.ID})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sup.Snapshot(r.PathValue("id"))
	if err != nil {
		s.writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.sup.Start(r.Context(), id); err != nil {
		s.writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": "starting"})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.sup.Stop(id, syscall.SIGTERM); err != nil {
		s.writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "stopped"})
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.sup.Restart(r.Context(), id); err != nil {
		s.writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": "starting"})
}

func (s *Server) handleCreateTunnel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	binding, err := s.sup.CreateTunnel(r.Context(), id)
	if err != nil {
		s.writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"id":        id,
		"tunnelUrl": binding.PublicURL,
	})
}

func (s *Server) handleCloseTunnel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.sup.CloseTunnel(id); err != nil {
		s.writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

// writeOperationError maps the kernel's error taxonomy to HTTP status
// codes. ConfigError and AlreadyRunningError are synchronous rejections
// the caller must not blindly retry.
func (s *Server) writeOperationError(w http.ResponseWriter, err error) {
	var configErr *supervisor.ConfigError
	var runningErr *supervisor.AlreadyRunningError
	var exhaustedErr *ports.ExhaustionError
	var tunnelErr *supervisor.TunnelError

	switch {
	case errors.As(err, &configErr):
		writeError(w, http.StatusNotFound, configErr.Error())
	case errors.As(err, &runningErr):
		writeError(w, http.StatusConflict, runningErr.Error())
	case errors.As(err, &exhaustedErr):
		writeError(w, http.StatusServiceUnavailable, exhaustedErr.Error())
	case errors.As(err, &tunnelErr):
		writeError(w, http.StatusBadGateway, tunnelErr.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// NewHTTPServer wraps the handler in a server with sane timeouts.
// WriteTimeout stays zero: streaming responses are long-lived by design.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
}
