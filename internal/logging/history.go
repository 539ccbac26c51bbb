package logging

import (
	"sync"
	"time"
)

// LogEntry is one record kept for the log stream endpoint.
type LogEntry struct {
	Seq        uint64         `json:"seq"`
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// History keeps the most recent log entries in a fixed-size ring.
// Entries are numbered in append order starting at 1.
type History struct {
	mu    sync.RWMutex
	slots []LogEntry
	next  uint64
}

// NewHistory returns a history holding at most capacity entries.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{slots: make([]LogEntry, capacity)}
}

// Append stores entry, evicting the oldest one when full, and returns the
// sequence number assigned to it.
func (h *History) Append(entry LogEntry) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.next++
	entry.Seq = h.next
	h.slots[(h.next-1)%uint64(len(h.slots))] = entry
	return entry.Seq
}

// Len returns the number of entries currently held.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.held()
}

// Snapshot returns every held entry, oldest first.
func (h *History) Snapshot() []LogEntry {
	return h.Tail(0)
}

// Tail returns the newest n entries, oldest first. n <= 0 means all.
func (h *History) Tail(n int) []LogEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	held := h.held()
	if n <= 0 || n > held {
		n = held
	}
	if n == 0 {
		return nil
	}

	out := make([]LogEntry, 0, n)
	size := uint64(len(h.slots))
	for seq := h.next - uint64(n) + 1; seq <= h.next; seq++ {
		out = append(out, h.slots[(seq-1)%size])
	}
	return out
}

func (h *History) held() int {
	if h.next < uint64(len(h.slots)) {
		return int(h.next)
	}
	return len(h.slots)
}
