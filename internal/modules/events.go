package modules

import (
	"context"
	"sync"
)

type EventKind string

const (
	EventReady  EventKind = "ready"
	EventFailed EventKind = "error"
)

// Event announces that a module settled.
type Event struct {
	Kind    EventKind
	ID      string
	Bytes   int
	Message string
}

// broker fans settle events out to subscribers. Slow subscribers lose their
// oldest undelivered event rather than blocking generation.
type broker struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func newBroker() *broker {
	return &broker{subs: make(map[chan Event]struct{})}
}

func (b *broker) subscribe(ctx context.Context, size int) <-chan Event {
	if size <= 0 {
		size = 1
	}
	ch := make(chan Event, size)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, ch)
		close(ch)
		b.mu.Unlock()
	}()
	return ch
}

func (b *broker) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		push(ch, ev)
	}
}

func push(ch chan Event, ev Event) {
	select {
	case ch <- ev:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- ev:
	default:
	}
}
