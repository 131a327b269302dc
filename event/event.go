/*
Package event carries the notifications emitted by the ledger and swap engine.

PURPOSE:
  The core emits "occurred" notifications but never delivers them. An
  operation records events into a Buffer while it runs; the buffer is handed
  to a Sink only after the operation's transaction commits, so a rolled back
  operation never leaks a notification.

DELIVERY:
  Sink implementations decide what delivery means: drop (Discard), keep the
  most recent N in memory (MemorySink), fan out (Multi), or log (see
  api/events.go).

SEE ALSO:
  - ledger/events.go: AssetCreated, Transfer, Approval
  - swap/events.go: PoolCreated, LiquidityAdded, LiquidityRemoved, purchases
*/
package event

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is one notification payload.
type Event interface {
	// EventKind names the notification, e.g. "transfer".
	EventKind() string
}

// Envelope wraps a published event with delivery metadata.
type Envelope struct {
	ID         uuid.UUID
	Seq        uint64
	Kind       string
	OccurredAt time.Time
	Event      Event
}

// Recorder collects events while an operation runs.
type Recorder interface {
	Record(e Event)
}

// Sink receives events of committed operations.
type Sink interface {
	Publish(ctx context.Context, events []Envelope)
}

// =============================================================================
// BUFFER
// =============================================================================

// Buffer is a Recorder that holds events until the operation commits.
type Buffer struct {
	events []Event
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

func (b *Buffer) Record(e Event) {
	b.events = append(b.events, e)
}

// Len returns the number of recorded events.
func (b *Buffer) Len() int {
	return len(b.events)
}

// Seal wraps the recorded events in envelopes and empties the buffer.
func (b *Buffer) Seal(now time.Time) []Envelope {
	out := make([]Envelope, len(b.events))
	for i, e := range b.events {
		out[i] = Envelope{
			ID:         uuid.New(),
			Kind:       e.EventKind(),
			OccurredAt: now,
			Event:      e,
		}
	}
	b.events = nil
	return out
}

// =============================================================================
// SINKS
// =============================================================================

// Discard drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Publish(context.Context, []Envelope) {}

// Multi fans events out to every sink in order.
type Multi []Sink

func (m Multi) Publish(ctx context.Context, events []Envelope) {
	for _, s := range m {
		s.Publish(ctx, events)
	}
}

// MemorySink keeps the most recent events in a bounded ring and numbers them.
type MemorySink struct {
	mu     sync.Mutex
	cap    int
	seq    uint64
	events []Envelope
}

// NewMemorySink returns a sink holding at most capacity events (1024 if capacity <= 0).
func NewMemorySink(capacity int) *MemorySink {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemorySink{cap: capacity}
}

func (s *MemorySink) Publish(_ context.Context, events []Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		s.seq++
		e.Seq = s.seq
		s.events = append(s.events, e)
	}
	if over := len(s.events) - s.cap; over > 0 {
		s.events = append([]Envelope(nil), s.events[over:]...)
	}
}

// Events returns retained events with Seq greater than after, oldest first.
func (s *MemorySink) Events(after uint64) []Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Envelope
	for _, e := range s.events {
		if e.Seq > after {
			out = append(out, e)
		}
	}
	return out
}

// Kinds returns the kinds of all retained events, oldest first.
func (s *MemorySink) Kinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Kind
	}
	return out
}
