package scheduler

import (
	"sync"
	"time"
)

// Debouncer delays an action until no new trigger has arrived for a quiet
// period. Only the most recent trigger's function runs.
type Debouncer struct {
	queue *Queue
	delay time.Duration

	mu      sync.Mutex
	pending *Task
	fn      func()
}

// NewDebouncer creates a Debouncer that runs on q after delay.
func NewDebouncer(q *Queue, delay time.Duration) *Debouncer {
	return &Debouncer{queue: q, delay: delay}
}

// Trigger schedules fn, replacing any pending run.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending != nil {
		d.pending.Cancel()
	}
	d.fn = fn

	var task *Task
	task = d.queue.After(d.delay, func() {
		d.mu.Lock()
		if d.pending != task {
			d.mu.Unlock()
			return
		}
		run := d.fn
		d.pending, d.fn = nil, nil
		d.mu.Unlock()

		if run != nil {
			run()
		}
	})
	d.pending = task
}

// Pending reports whether a run is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Cancel drops the pending run. It reports whether one was pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending == nil {
		return false
	}
	d.pending.Cancel()
	d.pending, d.fn = nil, nil
	return true
}

// Flush runs the pending function immediately on the calling goroutine.
// It reports whether anything ran.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if d.pending == nil {
		d.mu.Unlock()
		return false
	}
	d.pending.Cancel()
	run := d.fn
	d.pending, d.fn = nil, nil
	d.mu.Unlock()

	if run != nil {
		run()
	}
	return true
}
