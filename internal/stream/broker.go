// Package stream fans lifecycle events out to per-user subscribers over
// Server-Sent-Events framing. Delivery is fire-and-forget: no persistence,
// no replay, and a slow subscriber loses events rather than stalling the
// publisher.
package stream

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
)

// EventKind names one stream event type.
type EventKind string

const (
	EventConnected         EventKind = "connected"
	EventPing              EventKind = "ping"
	EventRecordCreated     EventKind = "record_created"
	EventAnalysisCompleted EventKind = "analysis_completed"
	EventAnalysisFailed    EventKind = "analysis_failed"
	EventRecordUpdated     EventKind = "record_updated"
)

// DefaultQueueCapacity bounds a subscriber queue when no capacity is given.
const DefaultQueueCapacity = 32

// Frame renders one SSE wire record. The shape is fixed client contract:
// an event line, a data line with the JSON payload, and a blank line.
func Frame(kind EventKind, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", kind, data)), nil
}

// Subscription is one subscriber queue. It belongs to the connection that
// created it and must be released with Broker.Unsubscribe.
type Subscription struct {
	userID string
	ch     chan []byte
}

// Events returns the frame queue to receive from.
func (s *Subscription) Events() <-chan []byte { return s.ch }

// Broker multiplexes events by user identity. A user may hold any number of
// concurrent subscriptions; one mutex guards the structural map and is never
// held while enqueueing.
type Broker struct {
	mu       sync.Mutex
	subs     map[string]map[*Subscription]struct{}
	capacity int
	drops    atomic.Int64
}

// NewBroker creates a Broker whose subscriber queues hold capacity frames.
func NewBroker(capacity int) *Broker {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Broker{
		subs:     make(map[string]map[*Subscription]struct{}),
		capacity: capacity,
	}
}

// Subscribe registers a new queue for the user. Never fails.
func (b *Broker) Subscribe(userID string) *Subscription {
	sub := &Subscription{userID: userID, ch: make(chan []byte, b.capacity)}
	b.mu.Lock()
	set, ok := b.subs[userID]
	if !ok {
		set = make(map[*Subscription]struct{})
		b.subs[userID] = set
	}
	set[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes the queue from its user's set, dropping the user entry
// once empty. Idempotent.
func (b *Broker) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	if set, ok := b.subs[sub.userID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(b.subs, sub.userID)
		}
	}
	b.mu.Unlock()
}

// Publish formats one event frame and offers it to every subscription the
// user holds. A full queue drops the frame for that subscriber only; a user
// with no subscribers is a no-op.
func (b *Broker) Publish(userID string, kind EventKind, payload any) {
	frame, err := Frame(kind, payload)
	if err != nil {
		return
	}

	b.mu.Lock()
	set := b.subs[userID]
	targets := make([]*Subscription, 0, len(set))
	for s := range set {
		targets = append(targets, s)
	}
	b.mu.Unlock()

	for _, s := range targets {
		select {
		case s.ch <- frame:
		default:
			b.drops.Add(1)
		}
	}
}

// Subscribers reports the number of open subscriptions across all users.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, set := range b.subs {
		n += len(set)
	}
	return n
}

// Drops reports how many frames were discarded against full queues.
func (b *Broker) Drops() int64 { return b.drops.Load() }
