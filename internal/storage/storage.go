package storage

import (
	"context"
	"sync"

	"remediPair/internal/model"
)

// EventStorage defines a sink for committed pair events.
type EventStorage interface {
	PutEvents(ctx context.Context, events []model.PairEvent) error
}

// EventBuffer collects events emitted by a pair until they are flushed.
type EventBuffer struct {
	mu     sync.Mutex
	events []model.PairEvent
}

func NewEventBuffer() *EventBuffer {
	return &EventBuffer{}
}

func (b *EventBuffer) Emit(event model.PairEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

// Len reports the number of buffered events.
func (b *EventBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Drain returns the buffered events and empties the buffer.
func (b *EventBuffer) Drain() []model.PairEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.events
	b.events = nil
	return out
}

// Flush drains the buffer into every sink. Events stay drained even if a
// sink fails.
func (b *EventBuffer) Flush(ctx context.Context, sinks ...EventStorage) error {
	events := b.Drain()
	if len(events) == 0 {
		return nil
	}
	for _, sink := range sinks {
		if sink == nil {
			continue
		}
		if err := sink.PutEvents(ctx, events); err != nil {
			return err
		}
	}
	return nil
}
