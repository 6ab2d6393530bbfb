package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/phuslu/log"
)

// Queue runs posted tasks one at a time on a single consumer: either the
// goroutine inside Run or a caller of Drain, never both at once.
type Queue struct {
	clock Clock

	mu    sync.Mutex
	tasks []func()
	wake  chan struct{}
}

// NewQueue creates a Queue. A nil clock means RealClock.
func NewQueue(clock Clock) *Queue {
	if clock == nil {
		clock = RealClock()
	}
	return &Queue{
		clock: clock,
		wake:  make(chan struct{}, 1),
	}
}

// Clock returns the clock used for delayed tasks.
func (q *Queue) Clock() Clock { return q.clock }

// Post appends fn to the queue. It is safe to call from any goroutine.
func (q *Queue) Post(fn func()) {
	q.mu.Lock()
	q.tasks = append(q.tasks, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// After posts fn once d has elapsed, unless the returned task is cancelled
// first.
func (q *Queue) After(d time.Duration, fn func()) *Task {
	t := &Task{}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timer = q.clock.AfterFunc(d, func() {
		q.Post(func() {
			if t.claim(true) {
				fn()
			}
		})
	})
	return t
}

// Every posts fn each time d elapses until the returned task is cancelled.
func (q *Queue) Every(d time.Duration, fn func()) *Task {
	t := &Task{}
	var arm func()
	arm = func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.cancelled {
			return
		}
		t.timer = q.clock.AfterFunc(d, func() {
			arm()
			q.Post(func() {
				if t.claim(false) {
					fn()
				}
			})
		})
	}
	arm()
	return t
}

// Len returns the number of queued tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Drain runs queued tasks on the calling goroutine until the queue is
// empty, including tasks posted while draining. It returns how many ran.
func (q *Queue) Drain() int {
	n := 0
	for {
		fn, ok := q.pop()
		if !ok {
			return n
		}
		q.runTask(fn)
		n++
	}
}

// Run consumes tasks until ctx is done.
func (q *Queue) Run(ctx context.Context) {
	for {
		q.Drain()
		select {
		case <-ctx.Done():
			return
		case <-q.wake:
		}
	}
}

func (q *Queue) pop() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return nil, false
	}
	fn := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	return fn, true
}

func (q *Queue) runTask(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("scheduler: task panicked")
		}
	}()
	fn()
}

// Task is a handle to a delayed or periodic task.
type Task struct {
	mu        sync.Mutex
	timer     Timer
	cancelled bool
	done      bool
}

// Cancel stops the task. It reports whether the task was still pending.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled || t.done {
		return false
	}
	t.cancelled = true
	if t.timer != nil {
		t.timer.Stop()
	}
	return true
}

// Active reports whether the task can still run.
func (t *Task) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.cancelled && !t.done
}

// claim reports whether the task may run now; once marks one-shot tasks done.
func (t *Task) claim(once bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled || t.done {
		return false
	}
	if once {
		t.done = true
	}
	return true
}
