// Package debounce delays propagation of a rapidly changing value until it has been stable
// for a quiet period. Every intermediate value is discarded; only the last value set before
// the quiet period elapses is emitted, exactly one delay after it was set.
package debounce

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Debouncer emits the last value passed to Set once no new value arrived for delay.
type Debouncer[T any] struct {
	clock clockwork.Clock
	delay time.Duration
	emit  func(T)

	mu      sync.Mutex
	timer   clockwork.Timer
	pending T
	has     bool
	gen     uint64
	stopped bool
}

// New creates a Debouncer. A nil clock means the real clock.
func New[T any](clock clockwork.Clock, delay time.Duration, emit func(T)) *Debouncer[T] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Debouncer[T]{clock: clock, delay: delay, emit: emit}
}

// Set records v as the latest value and restarts the quiet period.
func (d *Debouncer[T]) Set(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = v
	d.has = true
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen) })
}

// fire emits the pending value unless a newer Set superseded the timer that called it.
func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || !d.has || gen != d.gen {
		d.mu.Unlock()
		return
	}
	v := d.pending
	d.has = false
	d.timer = nil
	d.mu.Unlock()

	d.emit(v)
}

// Flush emits the pending value immediately, if any.
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	if d.stopped || !d.has {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	v := d.pending
	d.has = false
	d.gen++
	d.mu.Unlock()

	d.emit(v)
}

// Stop discards any pending value. Later calls to Set are ignored.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.has = false
	d.stopped = true
}
