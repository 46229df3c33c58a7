// Package journal persists the event stream of a content repository.
//
// A Journal stores opaque event envelopes ordered by sequence number. The
// content repository appends the events produced by each command and replays
// the full stream on startup to rebuild its projection.
//
// Implementations:
//   - Memory (this package): volatile, for tests and one-shot runs
//   - badgerjournal: embedded BadgerDB
//   - natsjournal: NATS JetStream key-value bucket
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Event is one persisted event envelope.
type Event struct {
	Sequence   uint64          `json:"seq"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// Journal is an append-only event store.
type Journal interface {
	// Append stores events. Sequences must be strictly increasing and
	// greater than every sequence already stored.
	Append(ctx context.Context, events ...Event) error
	// Load returns every stored event ordered by sequence.
	Load(ctx context.Context) ([]Event, error)
	Close() error
}

// Key renders a sequence as a fixed-width key so that lexical and numeric
// order agree.
func Key(seq uint64) string {
	return fmt.Sprintf("%020d", seq)
}

// SortBySequence orders events in place.
func SortBySequence(events []Event) {
	sort.Slice(events, func(i, j int) bool { return events[i].Sequence < events[j].Sequence })
}

// CheckOrder verifies that events continue after last without gaps in order.
func CheckOrder(last uint64, events []Event) error {
	for _, e := range events {
		if e.Sequence <= last {
			return fmt.Errorf("event sequence %d not after %d", e.Sequence, last)
		}
		last = e.Sequence
	}
	return nil
}

// Memory keeps events in process memory.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

// NewMemory creates an empty in-memory journal.
func NewMemory() *Memory {
	return &Memory{}
}

// Append implements Journal.
func (m *Memory) Append(_ context.Context, events ...Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var last uint64
	if n := len(m.events); n > 0 {
		last = m.events[n-1].Sequence
	}
	if err := CheckOrder(last, events); err != nil {
		return err
	}
	m.events = append(m.events, events...)
	return nil
}

// Load implements Journal.
func (m *Memory) Load(_ context.Context) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out, nil
}

// Len returns the number of stored events.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// Close implements Journal.
func (m *Memory) Close() error { return nil }
