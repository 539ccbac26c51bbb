package events

import (
	"sync"
	"sync/atomic"

	"github.com/kelindar/event"
)

// Feed collects events of several types into one buffered channel for the
// SSE handlers. A full buffer drops the event instead of stalling the bus.
type Feed struct {
	ch      chan any
	dropped atomic.Uint64

	mu     sync.Mutex
	unsubs []func()
}

// NewFeed returns an empty feed buffering up to size events.
func NewFeed(size int) *Feed {
	return &Feed{ch: make(chan any, size)}
}

// Watch subscribes f to events of type T on bus.
func Watch[T Event](bus *Bus, f *Feed) {
	unsub := event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case f.ch <- e:
		default:
			f.dropped.Add(1)
		}
	})

	f.mu.Lock()
	f.unsubs = append(f.unsubs, unsub)
	f.mu.Unlock()
}

// C returns the channel events are delivered on.
func (f *Feed) C() <-chan any { return f.ch }

// Dropped returns how many events were discarded on a full buffer.
func (f *Feed) Dropped() uint64 { return f.dropped.Load() }

// Close removes every subscription. The channel stays open.
func (f *Feed) Close() {
	f.mu.Lock()
	unsubs := f.unsubs
	f.unsubs = nil
	f.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
}
