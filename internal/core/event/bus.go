package event

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type Handler func(ctx context.Context, event Event) error

// Bus fans process-wide notifications out to in-process subscribers.
// Handlers run synchronously on the publisher's goroutine.
type Bus interface {
	Publish(ctx context.Context, event Event)
	Subscribe(eventType EventType, handler Handler) (unsubscribe func())
}

// NewBus creates an in-process event bus.
func NewBus() Bus {
	return &inProcessBus{
		subscribers: make(map[EventType][]subscriberEntry),
	}
}

type subscriberEntry struct {
	id      uint64
	handler Handler
}

type inProcessBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]subscriberEntry
	nextID      uint64
}

func (b *inProcessBus) Publish(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	subs := make([]subscriberEntry, 0, len(b.subscribers[event.Type])+len(b.subscribers[Any]))
	subs = append(subs, b.subscribers[event.Type]...)
	if event.Type != Any {
		subs = append(subs, b.subscribers[Any]...)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		if err := sub.handler(ctx, event); err != nil {
			log.Error().Err(err).
				Str("event", string(event.Type)).
				Msg("event handler error")
		}
	}
}

func (b *inProcessBus) Subscribe(eventType EventType, handler Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subscribers[eventType] = append(b.subscribers[eventType], subscriberEntry{
		id:      id,
		handler: handler,
	})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[eventType]
		for i, s := range subs {
			if s.id == id {
				b.subscribers[eventType] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
	}
}

// LogJobs subscribes a handler that writes job lifecycle events to the
// global logger.
func LogJobs(b Bus) (unsubscribe func()) {
	return b.Subscribe(Any, func(_ context.Context, e Event) error {
		je, ok := e.Payload.(JobEvent)
		if !ok {
			return nil
		}
		ev := log.Info()
		switch e.Type {
		case EventJobFailed, EventJobCleanupFailed:
			ev = log.Warn()
		}
		ev = ev.Str("event", string(e.Type)).Str("job_id", je.JobID)
		if je.Input != "" {
			ev = ev.Str("input", je.Input)
		}
		if je.AudioID != "" {
			ev = ev.Str("audio_id", je.AudioID)
		}
		if je.Error != "" {
			ev = ev.Str("error", je.Error)
		}
		if je.Duration > 0 {
			ev = ev.Dur("took", je.Duration)
		}
		ev.Msg("job event")
		return nil
	})
}
