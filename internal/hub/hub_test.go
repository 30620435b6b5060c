package hub

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/codyde/sentryvibe-runner/internal/snapshot"
)

// =============================================================================
// Subscribe / Publish
// =============================================================================

func TestHub_PublishReachesSubscriber(t *testing.T) {
	h := New()
	sub := h.Subscribe("proj-1")
	defer h.Unsubscribe(sub)

	snap := snapshot.Snapshot{SubjectID: "proj-1", Status: "running", Port: 3000}
	h.Publish("proj-1", snap)

	select {
	case got := <-sub.C():
		if !got.Equal(snap) {
			t.Errorf("received %+v, want %+v", got, snap)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
}

func TestHub_NoCrossSubjectLeakage(t *testing.T) {
	h := New()
	subA := h.Subscribe("proj-a")
	subB := h.Subscribe("proj-b")
	defer h.Unsubscribe(subA)
	defer h.Unsubscribe(subB)

	h.Publish("proj-a", snapshot.Snapshot{SubjectID: "proj-a", Status: "running"})

	select {
	case <-subA.C():
	case <-time.After(time.Second):
		t.Fatal("proj-a subscriber did not receive its snapshot")
	}

	select {
	case got := <-subB.C():
		t.Errorf("proj-b subscriber received foreign snapshot: %+v", got)
	default:
	}
}

func TestHub_FIFOOrder(t *testing.T) {
	h := New()
	sub := h.Subscribe("proj-1")
	defer h.Unsubscribe(sub)

	for i := 0; i < 5; i++ {
		h.Publish("proj-1", snapshot.Snapshot{
			SubjectID: "proj-1",
			Status:    "running",
			Port:      3000 + i,
		})
	}

	for i := 0; i < 5; i++ {
		select {
		case got := <-sub.C():
			if got.Port != 3000+i {
				t.Errorf("snapshot %d: Port = %d, want %d", i, got.Port, 3000+i)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for snapshot %d", i)
		}
	}
}

// =============================================================================
// Backpressure
// =============================================================================

func TestHub_SlowSubscriberDropsOldest(t *testing.T) {
	h := New()
	sub := h.Subscribe("proj-1")
	defer h.Unsubscribe(sub)

	// Overflow the buffer without draining.
	total := subscriptionBuffer + 10
	for i := 0; i < total; i++ {
		h.Publish("proj-1", snapshot.Snapshot{SubjectID: "proj-1", Port: i})
	}

	if sub.Dropped() != 10 {
		t.Errorf("Dropped() = %d, want 10", sub.Dropped())
	}

	// What survives must be the newest window, still in order.
	first := <-sub.C()
	if first.Port != 10 {
		t.Errorf("first surviving Port = %d, want 10", first.Port)
	}

	last := first
	for i := 1; i < subscriptionBuffer; i++ {
		last = <-sub.C()
	}
	if last.Port != total-1 {
		t.Errorf("last surviving Port = %d, want %d", last.Port, total-1)
	}
}

// =============================================================================
// Unsubscribe
// =============================================================================

func TestHub_Unsubscribe_Idempotent(t *testing.T) {
	h := New()
	sub := h.Subscribe("proj-1")

	h.Unsubscribe(sub)
	h.Unsubscribe(sub)
	h.Unsubscribe(nil)

	if h.Subscribers("proj-1") != 0 {
		t.Errorf("Subscribers = %d, want 0", h.Subscribers("proj-1"))
	}

	// Channel must be closed.
	select {
	case _, open := <-sub.C():
		if open {
			t.Error("channel still open after Unsubscribe")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after Unsubscribe")
	}
}

func TestHub_PublishAfterUnsubscribe(t *testing.T) {
	h := New()
	sub := h.Subscribe("proj-1")
	h.Unsubscribe(sub)

	// Must not panic on the closed channel.
	h.Publish("proj-1", snapshot.Snapshot{SubjectID: "proj-1"})
}

// =============================================================================
// Counters
// =============================================================================

func TestHub_SubscriberCounts(t *testing.T) {
	h := New()

	var subs []*Subscription
	for i := 0; i < 3; i++ {
		subs = append(subs, h.Subscribe("proj-a"))
	}
	subs = append(subs, h.Subscribe("proj-b"))

	if got := h.Subscribers("proj-a"); got != 3 {
		t.Errorf("Subscribers(proj-a) = %d, want 3", got)
	}
	if got := h.TotalSubscribers(); got != 4 {
		t.Errorf("TotalSubscribers = %d, want 4", got)
	}

	for _, sub := range subs {
		h.Unsubscribe(sub)
	}
	if got := h.TotalSubscribers(); got != 0 {
		t.Errorf("TotalSubscribers after teardown = %d, want 0", got)
	}
}

func TestHub_ConcurrentPublishSubscribe(t *testing.T) {
	h := New()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			h.Publish(fmt.Sprintf("proj-%d", i%4), snapshot.Snapshot{Port: i})
		}
	}()

	for i := 0; i < 20; i++ {
		sub := h.Subscribe(fmt.Sprintf("proj-%d", i%4))
		h.Unsubscribe(sub)
	}

	<-done
}

func TestHub_PublishRacingUnsubscribe(t *testing.T) {
	// A viewer disconnecting while the supervisor publishes a state
	// change must never panic the publisher with a send on a closed
	// channel. Run with -race.
	h := New()
	snap := snapshot.Snapshot{SubjectID: "proj-1", Status: "running"}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				h.Publish("proj-1", snap)
			}
		}
	}()

	for i := 0; i < 500; i++ {
		sub := h.Subscribe("proj-1")
		// No drain: the subscription goes away with sends in flight.
		h.Unsubscribe(sub)

		// The channel must be closed and deliver at most its buffered
		// backlog, never block.
		for range sub.C() {
		}
	}

	close(stop)
	wg.Wait()

	if got := h.Subscribers("proj-1"); got != 0 {
		t.Errorf("Subscribers = %d, want 0", got)
	}
}
