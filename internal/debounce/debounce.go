// Package debounce coalesces bursts of calls into one, tracked per key.
//
// The filesystem watcher uses it to collapse the write storms media
// copies produce into a single rescan per path, and the dashboard uses
// it to hold track edits until typing pauses.
package debounce

import (
	"sync"
	"time"

	bep "github.com/bep/debounce"
)

// Keyed debounces function calls independently per key. Each call
// resets that key's timer and replaces its pending function, so only
// the last call within the quiet window fires.
type Keyed[K comparable] struct {
	after time.Duration

	mu    sync.Mutex
	slots map[K]func(f func())
}

// NewKeyed creates a Keyed debouncer with the given quiet window.
func NewKeyed[K comparable](after time.Duration) *Keyed[K] {
	return &Keyed[K]{
		after: after,
		slots: make(map[K]func(f func())),
	}
}

// Call schedules f to run once key has been quiet for the window. A
// newer Call with the same key replaces f before it fires.
func (d *Keyed[K]) Call(key K, f func()) {
	d.mu.Lock()
	slot, ok := d.slots[key]
	if !ok {
		slot = bep.New(d.after)
		d.slots[key] = slot
	}
	d.mu.Unlock()

	slot(func() {
		f()
		d.mu.Lock()
		delete(d.slots, key)
		d.mu.Unlock()
	})
}

// Cancel replaces any pending call for key with a no-op.
func (d *Keyed[K]) Cancel(key K) {
	d.mu.Lock()
	slot, ok := d.slots[key]
	if ok {
		delete(d.slots, key)
	}
	d.mu.Unlock()

	if ok {
		slot(func() {})
	}
}

// CancelAll replaces every pending call with a no-op.
func (d *Keyed[K]) CancelAll() {
	d.mu.Lock()
	slots := d.slots
	d.slots = make(map[K]func(f func()))
	d.mu.Unlock()

	for _, slot := range slots {
		slot(func() {})
	}
}

// Len reports the number of keys with a pending call.
func (d *Keyed[K]) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.slots)
}
