package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// =============================================================================
// Registration
// =============================================================================

func TestNewCollector_RegistersInstruments(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.IncStarts()
	c.IncStops()
	c.SetSubjects("running", 2)
	c.SetPortReservations("vite", 1)
	c.IncStreamFrames("status-update")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}

	want := map[string]bool{
		"runner_starts_total":        false,
		"runner_stops_total":         false,
		"runner_subjects":            false,
		"runner_port_reservations":   false,
		"runner_stream_frames_total": false,
	}
	for _, mf := range families {
		if _, ok := want[mf.GetName()]; ok {
			want[mf.GetName()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("metric family %q not gathered", name)
		}
	}
}

func TestNewCollector_TwoRegistriesIndependent(t *testing.T) {
	regA := prometheus.NewRegistry()
	regB := prometheus.NewRegistry()
	a := NewCollector(regA)
	b := NewCollector(regB)

	a.IncStarts()
	a.IncStarts()
	b.IncStarts()

	if got := testutil.ToFloat64(a.startsTotal); got != 2 {
		t.Errorf("collector A starts = %v, want 2", got)
	}
	if got := testutil.ToFloat64(b.startsTotal); got != 1 {
		t.Errorf("collector B starts = %v, want 1", got)
	}
}

// =============================================================================
// Counter and Gauge Behavior
// =============================================================================

func TestCollector_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.IncStarts()
	c.IncRestarts()
	c.IncSpawnFailures()
	c.IncAbnormalExits()
	c.IncPortReconciliations()
	c.IncPortExhaustions()

	tests := []struct {
		name    string
		counter prometheus.Counter
		want    float64
	}{
		{"starts", c.startsTotal, 1},
		{"restarts", c.restartsTotal, 1},
		{"spawn_failures", c.spawnFailuresTotal, 1},
		{"abnormal_exits", c.abnormalExitsTotal, 1},
		{"port_reconciliations", c.portReconciliationsTotal, 1},
		{"port_exhaustions", c.portExhaustionsTotal, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.ToFloat64(tt.counter); got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestCollector_StreamGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.StreamOpened()
	c.StreamOpened()
	c.StreamClosed()

	if got := testutil.ToFloat64(c.streamConnections); got != 1 {
		t.Errorf("stream connections = %v, want 1", got)
	}

	c.SetHubSubscribers(3)
	if got := testutil.ToFloat64(c.hubSubscribers); got != 3 {
		t.Errorf("hub subscribers = %v, want 3", got)
	}
}

func TestCollector_UptimeClear(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.SetUptime("proj-1", 42)
	if got := testutil.ToFloat64(c.subjectUptime.WithLabelValues("proj-1")); got != 42 {
		t.Errorf("uptime = %v, want 42", got)
	}

	c.ClearUptime("proj-1")
	// After deletion a fresh series starts at zero.
	if got := testutil.ToFloat64(c.subjectUptime.WithLabelValues("proj-1")); got != 0 {
		t.Errorf("uptime after clear = %v, want 0", got)
	}
}

// =============================================================================
// Startup Latency
// =============================================================================

func TestCollector_ObserveStartup(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	for i := 0; i < 10; i++ {
		c.ObserveStartup(time.Second)
	}

	if got := c.StartupCount(); got != 10 {
		t.Errorf("StartupCount = %d, want 10", got)
	}

	p50 := c.StartupQuantile(0.5)
	if p50 < 900*time.Millisecond || p50 > 1100*time.Millisecond {
		t.Errorf("StartupQuantile(0.5) = %v, want ~1s", p50)
	}

	// The exported gauge must carry the same value in seconds.
	gauge := testutil.ToFloat64(c.startupLatency.WithLabelValues("0.5"))
	if gauge < 0.9 || gauge > 1.1 {
		t.Errorf("exported p50 gauge = %v, want ~1.0", gauge)
	}
}

// =============================================================================
// Nil Safety
// =============================================================================

func TestCollector_NilReceiverSafe(t *testing.T) {
	var c *Collector

	c.SetSubjects("running", 1)
	c.SetUptime("proj-1", 1)
	c.ClearUptime("proj-1")
	c.IncStarts()
	c.IncStops()
	c.IncRestarts()
	c.IncSpawnFailures()
	c.IncAbnormalExits()
	c.SetPortReservations("vite", 1)
	c.IncPortReconciliations()
	c.IncPortExhaustions()
	c.SetHubSubscribers(1)
	c.StreamOpened()
	c.StreamClosed()
	c.IncStreamFrames("connected")
	c.SetTunnelsActive(1)
	c.ObserveStartup(time.Second)

	if got := c.StartupQuantile(0.5); got != 0 {
		t.Errorf("nil StartupQuantile = %v, want 0", got)
	}
	if got := c.StartupCount(); got != 0 {
		t.Errorf("nil StartupCount = %d, want 0", got)
	}
}
