package filter

import (
	"sync"
	"time"
)

// DefaultDebounceWindow is the keystroke quiescence window before a search
// query is committed.
const DefaultDebounceWindow = 300 * time.Millisecond

// Timer is a cancellable scheduled callback.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer collapses a burst of values into a single commit of the last one.
// Each Push cancels the pending commit and reschedules it a full window
// later, so intermediate values are dropped.
type Debouncer struct {
	window    time.Duration
	afterFunc AfterFunc
	commit    func(string)

	mu      sync.Mutex
	timer   Timer
	value   string
	pending bool
	gen     uint64
}

// DebounceOption configures a Debouncer.
type DebounceOption func(*Debouncer)

// WithAfterFunc replaces the time source, typically with a fake clock in tests.
func WithAfterFunc(f AfterFunc) DebounceOption {
	return func(d *Debouncer) { d.afterFunc = f }
}

// NewDebouncer returns a Debouncer that calls commit with the settled value.
// A non-positive window falls back to DefaultDebounceWindow.
func NewDebouncer(window time.Duration, commit func(string), opts ...DebounceOption) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	d := &Debouncer{window: window, afterFunc: realAfterFunc, commit: commit}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Push records v as the latest raw value and restarts the quiescence window.
func (d *Debouncer) Push(v string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.value = v
	d.pending = true
	d.timer = d.afterFunc(d.window, func() { d.fire(gen) })
}

// Pending returns the buffered value and whether a commit is scheduled.
func (d *Debouncer) Pending() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.value, d.pending
}

// Flush commits the pending value immediately, if there is one.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	v := d.value
	d.pending = false
	d.mu.Unlock()

	d.commit(v)
}

// Stop cancels any pending commit.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.pending = false
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	// A timer that lost the race with Push, Flush or Stop is stale.
	if gen != d.gen || !d.pending {
		d.mu.Unlock()
		return
	}
	v := d.value
	d.pending = false
	d.timer = nil
	d.mu.Unlock()

	d.commit(v)
}
