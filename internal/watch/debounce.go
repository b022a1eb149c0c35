package watch

import (
	"sync"
	"time"
)

// Debouncer collapses bursts of calls into one call of fn, made once the
// burst has been quiet for the configured duration.
type Debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	duration time.Duration
	fn       func()
}

// NewDebouncer returns a Debouncer that calls fn after d of quiet.
func NewDebouncer(d time.Duration, fn func()) *Debouncer {
	return &Debouncer{duration: d, fn: fn}
}

// Trigger schedules fn, pushing back any call already pending.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, d.fn)
}

// Flush cancels any pending call and calls fn now.
func (d *Debouncer) Flush() {
	d.Cancel()
	d.fn()
}

// Cancel drops any pending call.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
