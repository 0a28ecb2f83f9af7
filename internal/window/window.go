// Package window keeps the most recent records of a stream in a fixed-size
// ring buffer.
package window

import (
	"sync"

	"github.com/couchcryptid/weather-stream-listener/internal/domain"
)

// Window is a bounded FIFO of records. Appending to a full window evicts the
// oldest record. It is safe for concurrent use: one writer (the stream
// supervisor) and any number of readers.
type Window struct {
	mu    sync.RWMutex
	items []domain.Record
	head  int // index of the oldest record
	size  int
}

// New creates an empty window holding at most capacity records.
// Capacities below 1 are raised to 1.
func New(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{items: make([]domain.Record, capacity)}
}

// Append adds rec as the newest record, evicting the oldest one when full.
func (w *Window) Append(rec domain.Record) {
	w.mu.Lock()
	defer w.mu.Unlock()

	capacity := len(w.items)
	if w.size == capacity {
		w.items[w.head] = rec
		w.head = (w.head + 1) % capacity
		return
	}
	w.items[(w.head+w.size)%capacity] = rec
	w.size++
}

// Snapshot returns a copy of the current records, oldest first. Later
// mutations of the window do not affect the returned slice.
// The copy is shallow: structured payload maps are shared with the window and
// every other snapshot, so callers must treat them as read-only.
func (w *Window) Snapshot() []domain.Record {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]domain.Record, w.size)
	capacity := len(w.items)
	for i := range w.size {
		out[i] = w.items[(w.head+i)%capacity]
	}
	return out
}

// Clear drops every record.
func (w *Window) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()

	clear(w.items)
	w.head = 0
	w.size = 0
}

// Len returns the number of records currently held.
func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.size
}

// Cap returns the fixed capacity.
func (w *Window) Cap() int {
	return len(w.items)
}
