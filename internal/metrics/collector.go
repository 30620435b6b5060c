// Package metrics provides Prometheus metrics for the runner kernel.
//
// All instruments hang off an explicit Collector bound to a caller-owned
// registry, so tests can run independent supervisors without shared
// global state.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/codyde/sentryvibe-runner/internal/stats"
)

// Collector owns the kernel's Prometheus instruments. A nil *Collector is
// valid and discards every observation.
type Collector struct {
	subjectsByState *prometheus.GaugeVec
	subjectUptime   *prometheus.GaugeVec

	startsTotal        prometheus.Counter
	stopsTotal         prometheus.Counter
	restartsTotal      prometheus.Counter
	spawnFailuresTotal prometheus.Counter
	abnormalExitsTotal prometheus.Counter

	portReservations         *prometheus.GaugeVec
	portReconciliationsTotal prometheus.Counter
	portExhaustionsTotal     prometheus.Counter

	hubSubscribers    prometheus.Gauge
	streamConnections prometheus.Gauge
	streamFramesTotal *prometheus.CounterVec

	tunnelsActive prometheus.Gauge

	startupLatency *prometheus.GaugeVec
	startupTracker *stats.LatencyTracker
}

// NewCollector creates the instrument set and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		subjectsByState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "runner_subjects",
				Help: "Registered subjects by lifecycle state",
			},
			[]string{"state"},
		),
		subjectUptime: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "runner_subject_uptime_seconds",
				Help: "Uptime of non-stopped subjects",
			},
			[]string{"subject"},
		),
		startsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "runner_starts_total",
				Help: "Total successful process starts",
			},
		),
		stopsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "runner_stops_total",
				Help: "Total stop operations resolved",
			},
		),
		restartsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "runner_restarts_total",
				Help: "Total restart operations",
			},
		),
		spawnFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "runner_spawn_failures_total",
				Help: "Total failures to create the child process",
			},
		),
		abnormalExitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "runner_abnormal_exits_total",
				Help: "Total abnormal child exits (non-zero, unexpected signal)",
			},
		),
		portReservations: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "runner_port_reservations",
				Help: "Live port reservations by framework profile",
			},
			[]string{"profile"},
		),
		portReconciliationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "runner_port_reconciliations_total",
				Help: "Total reservation swaps after an observed-port mismatch",
			},
		),
		portExhaustionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "runner_port_exhaustions_total",
				Help: "Total reservation failures due to an exhausted profile range",
			},
		),
		hubSubscribers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "runner_hub_subscribers",
				Help: "Live status hub subscriptions",
			},
		),
		streamConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "runner_stream_connections",
				Help: "Open streaming connections",
			},
		),
		streamFramesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "runner_stream_frames_total",
				Help: "Frames written to streaming connections",
			},
			[]string{"type"},
		),
		tunnelsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "runner_tunnels_active",
				Help: "Tunnel bindings currently active",
			},
		),
		startupLatency: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "runner_startup_latency_seconds",
				Help: "Starting to Running latency distribution",
			},
			[]string{"quantile"},
		),
		startupTracker: stats.NewLatencyTracker(),
	}

	reg.MustRegister(
		c.subjectsByState,
		c.subjectUptime,
		c.startsTotal,
		c.stopsTotal,
		c.restartsTotal,
		c.spawnFailuresTotal,
		c.abnormalExitsTotal,
		c.portReservations,
		c.portReconciliationsTotal,
		c.portExhaustionsTotal,
		c.hubSubscribers,
		c.streamConnections,
		c.streamFramesTotal,
		c.tunnelsActive,
		c.startupLatency,
	)

	return c
}

// SetSubjects records the number of subjects in a state.
func (c *Collector) SetSubjects(state string, n float64) {
	if c == nil {
		return
	}
	c.subjectsByState.WithLabelValues(state).Set(n)
}

// SetUptime records a subject's current uptime.
func (c *Collector) SetUptime(subject string, seconds float64) {
	if c == nil {
		return
	}
	c.subjectUptime.WithLabelValues(subject).Set(seconds)
}

// ClearUptime drops the uptime series for a stopped subject.
func (c *Collector) ClearUptime(subject string) {
	if c == nil {
		return
	}
	c.subjectUptime.DeleteLabelValues(subject)
}

// IncStarts counts a successful spawn.
func (c *Collector) IncStarts() {
	if c == nil {
		return
	}
	c.startsTotal.Inc()
}

// IncStops counts a resolved stop.
func (c *Collector) IncStops() {
	if c == nil {
		return
	}
	c.stopsTotal.Inc()
}

// IncRestarts counts a restart operation.
func (c *Collector) IncRestarts() {
	if c == nil {
		return
	}
	c.restartsTotal.Inc()
}

// IncSpawnFailures counts a failed spawn.
func (c *Collector) IncSpawnFailures() {
	if c == nil {
		return
	}
	c.spawnFailuresTotal.Inc()
}

// IncAbnormalExits counts an abnormal child exit.
func (c *Collector) IncAbnormalExits() {
	if c == nil {
		return
	}
	c.abnormalExitsTotal.Inc()
}

// SetPortReservations records live reservations for a profile.
func (c *Collector) SetPortReservations(profile string, n float64) {
	if c == nil {
		return
	}
	c.portReservations.WithLabelValues(profile).Set(n)
}

// IncPortReconciliations counts an observed-port reservation swap.
func (c *Collector) IncPortReconciliations() {
	if c == nil {
		return
	}
	c.portReconciliationsTotal.Inc()
}

// IncPortExhaustions counts a range-exhausted reservation failure.
func (c *Collector) IncPortExhaustions() {
	if c == nil {
		return
	}
	c.portExhaustionsTotal.Inc()
}

// SetHubSubscribers records the live subscription count.
func (c *Collector) SetHubSubscribers(n float64) {
	if c == nil {
		return
	}
	c.hubSubscribers.Set(n)
}

// StreamOpened counts a streaming connection opening.
func (c *Collector) StreamOpened() {
	if c == nil {
		return
	}
	c.streamConnections.Inc()
}

// StreamClosed counts a streaming connection closing.
func (c *Collector) StreamClosed() {
	if c == nil {
		return
	}
	c.streamConnections.Dec()
}

// IncStreamFrames counts a written frame by type ("connected",
// "status-update", "keepalive", "error").
func (c *Collector) IncStreamFrames(frameType string) {
	if c == nil {
		return
	}
	c.streamFramesTotal.WithLabelValues(frameType).Inc()
}

// SetTunnelsActive records the number of active tunnel bindings.
func (c *Collector) SetTunnelsActive(n float64) {
	if c == nil {
		return
	}
	c.tunnelsActive.Set(n)
}

// ObserveStartup records one Starting→Running latency and refreshes the
// exported quantile gauges.
func (c *Collector) ObserveStartup(d time.Duration) {
	if c == nil {
		return
	}
	c.startupTracker.Record(d)
	for _, q := range []float64{0.5, 0.95, 0.99} {
		c.startupLatency.
			WithLabelValues(formatQuantile(q)).
			Set(c.startupTracker.Quantile(q).Seconds())
	}
}

// StartupQuantile exposes the tracked distribution to the TUI.
func (c *Collector) StartupQuantile(q float64) time.Duration {
	if c == nil {
		return 0
	}
	return c.startupTracker.Quantile(q)
}

// StartupCount returns how many startups have been observed.
func (c *Collector) StartupCount() int64 {
	if c == nil {
		return 0
	}
	return c.startupTracker.Count()
}

func formatQuantile(q float64) string {
	switch q {
	case 0.5:
		return "0.5"
	case 0.95:
		return "0.95"
	case 0.99:
		return "0.99"
	default:
		return "other"
	}
}
