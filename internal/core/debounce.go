package core

import (
	"sync"
	"time"
)

// DefaultDuplicateDebounce is the quiet period before a duplicate lookup runs.
const DefaultDuplicateDebounce = 500 * time.Millisecond

// Debouncer runs only the last function triggered within a quiet window.
// It serves callers that hold an AddSession across edits. The HTTP API does
// not keep sessions: clients debounce and call GET /api/slabs/check.
type Debouncer struct {
	window time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewDebouncer creates a Debouncer. A non-positive window uses
// DefaultDuplicateDebounce.
func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultDuplicateDebounce
	}
	return &Debouncer{window: window}
}

// Trigger schedules fn after the window, cancelling any pending call.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, fn)
}

// Stop cancels the pending call, if any.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
