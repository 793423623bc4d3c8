// Package eventbus is a small in-memory fanout used to decouple the
// scheduler engine from anything that wants to observe its lifecycle.
package eventbus

import (
	"sync"
	"time"
)

// Announcement lifecycle event types published by the scheduler engine.
const (
	TypeCreated = "announcement.created"
	TypeDeleted = "announcement.deleted"
	TypeFired   = "announcement.fired"
	TypeMissed  = "announcement.missed"
)

// Event is a lightweight in-memory signal.
//
// Publish never blocks; slow subscribers lose events rather than stall
// the publisher. Data should stay small.
type Event struct {
	Type string
	Time time.Time
	ID   string // announcement id, when applicable
	Data any
}

type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
}

// New returns an in-memory fanout bus with no background goroutines.
func New() Bus {
	return &memBus{subs: map[uint64]chan Event{}}
}

type memBus struct {
	mu   sync.Mutex
	subs map[uint64]chan Event
	seq  uint64
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	// Sends are non-blocking, so holding the lock across the fanout is
	// cheap and rules out send-on-closed races with Unsubscribe.
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (b *memBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	b.seq++
	id := b.seq
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			close(ch)
			b.mu.Unlock()
		})
	}
	return ch, unsub
}
