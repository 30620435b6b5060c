// Package hub provides in-process publish/subscribe of status snapshots
// keyed by subject id.
//
// Delivery is best-effort: the persisted store is the source of truth and
// each streaming connection runs its own reconciliation poll. The hub
// exists to accelerate, not to replace, that path, so a slow subscriber
// loses its oldest pending snapshot rather than blocking the publisher.
package hub

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/codyde/sentryvibe-runner/internal/snapshot"
)

// subscriptionBuffer bounds pending snapshots per subscriber. Old entries
// are dropped first, so delivery order stays FIFO for what survives.
const subscriptionBuffer = 16

// Subscription is one subscriber's registration for a subject's snapshots.
type Subscription struct {
	// ID identifies the subscription in logs.
	ID string

	// SubjectID is the subject this subscription follows.
	SubjectID string

	ch        chan snapshot.Snapshot
	closeOnce sync.Once
	dropped   atomic.Int64
}

// C returns the receive channel. Closed when the subscription is removed.
func (s *Subscription) C() <-chan snapshot.Snapshot {
	return s.ch
}

// Dropped returns how many snapshots were discarded because this
// subscriber fell behind.
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

func (s *Subscription) close() {
	s.closeOnce.Do(func() {
		close(s.ch)
	})
}

// Hub fans snapshots out to subscribers of the matching subject id only.
// Safe for concurrent use.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{
		subs: make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe registers a new subscriber for the subject.
func (h *Hub) Subscribe(subjectID string) *Subscription {
	sub := &Subscription{
		ID:        uuid.NewString(),
		SubjectID: subjectID,
		ch:        make(chan snapshot.Snapshot, subscriptionBuffer),
	}

	h.mu.Lock()
	set, ok := h.subs[subjectID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[subjectID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	return sub
}

// Unsubscribe removes the subscription and closes its channel. Idempotent;
// repeated disconnect signals are safely ignored.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	if set, ok := h.subs[sub.SubjectID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.SubjectID)
		}
	}
	// Close under the lock: Publish fans out while holding it, so no
	// send can be in flight on the channel being closed.
	sub.close()
	h.mu.Unlock()
}

// Publish fans the snapshot out to subscribers registered for the subject.
// Per-subscriber order is FIFO; a full subscriber loses its oldest pending
// snapshot to make room.
func (h *Hub) Publish(subjectID string, snap snapshot.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Sends stay under the lock. They never block, and Unsubscribe also
	// closes under the lock, so a send can never hit a closed channel.
	for sub := range h.subs[subjectID] {
		select {
		case sub.ch <- snap:
		default:
			// Subscriber is behind: drop its oldest pending snapshot,
			// then queue the new one.
			select {
			case <-sub.ch:
				sub.dropped.Add(1)
			default:
			}
			select {
			case sub.ch <- snap:
			default:
			}
		}
	}
}

// Subscribers returns the number of live subscriptions for the subject.
func (h *Hub) Subscribers(subjectID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[subjectID])
}

// TotalSubscribers returns the number of live subscriptions across all
// subjects.
func (h *Hub) TotalSubscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	total := 0
	for _, set := range h.subs {
		total += len(set)
	}
	return total
}
