// Package scheduler coalesces rapid repeated staging requests per path and
// guarantees at most one in-flight attempt per path.
//
// Each path moves through Idle -> Pending -> InFlight -> Idle. A request
// for a pending path resets its debounce timer, so only the latest
// request's timing governs execution; a request for an in-flight path is
// dropped. Clear discards every timer and entry immediately; in-flight
// completions against cleared state become no-ops.
package scheduler

import (
	"sync"
	"time"
)

// RunFunc executes the deferred action for a path once its debounce delay
// elapses. Implementations must call release exactly once when the attempt
// completes, whatever the outcome. release reports whether the attempt's
// state was still current; it returns false after a Clear, in which case
// the outcome must not be surfaced.
type RunFunc func(path string, release func() bool)

// entry is the per-path pending state. It owns at most one timer; the
// timer is always stopped before the entry is discarded.
type entry struct {
	timer    *time.Timer
	inFlight bool
}

// Scheduler is the per-path debounce/dedup table.
type Scheduler struct {
	mu      sync.Mutex
	delay   time.Duration
	run     RunFunc
	pending map[string]*entry
	epoch   uint64
}

// New creates a scheduler that invokes run after delay of quiet time per
// path. A delay of zero runs the action immediately on Request.
func New(delay time.Duration, run RunFunc) *Scheduler {
	return &Scheduler{
		delay:   delay,
		run:     run,
		pending: make(map[string]*entry),
	}
}

// Request schedules a staging attempt for path. Repeated requests while
// pending restart the timer; requests while in flight are dropped.
func (s *Scheduler) Request(path string) {
	s.mu.Lock()

	if e, ok := s.pending[path]; ok {
		if !e.inFlight {
			e.timer.Reset(s.delay)
		}
		s.mu.Unlock()
		return
	}

	if s.delay <= 0 {
		s.pending[path] = &entry{inFlight: true}
		release := s.releaseFunc(path, s.epoch)
		s.mu.Unlock()
		s.run(path, release)
		return
	}

	e := &entry{}
	e.timer = time.AfterFunc(s.delay, func() { s.fire(path) })
	s.pending[path] = e
	s.mu.Unlock()
}

// fire transitions path from Pending to InFlight and invokes the action.
func (s *Scheduler) fire(path string) {
	s.mu.Lock()
	e, ok := s.pending[path]
	if !ok || e.inFlight {
		s.mu.Unlock()
		return
	}
	e.timer = nil
	e.inFlight = true
	release := s.releaseFunc(path, s.epoch)
	s.mu.Unlock()

	s.run(path, release)
}

// releaseFunc returns the completion callback for one attempt. It deletes
// the entry once, and only if no Clear happened since the attempt started.
func (s *Scheduler) releaseFunc(path string, epoch uint64) func() bool {
	var once sync.Once
	var current bool
	return func() bool {
		once.Do(func() {
			s.mu.Lock()
			if s.epoch == epoch {
				delete(s.pending, path)
				current = true
			}
			s.mu.Unlock()
		})
		return current
	}
}

// Clear stops every pending timer and discards all per-path state without
// waiting for in-flight attempts; their release calls become no-ops.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	for path, e := range s.pending {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(s.pending, path)
	}
	s.epoch++
	s.mu.Unlock()
}

// SetDelay updates the debounce delay for future requests. Currently
// pending timers keep their original delay.
func (s *Scheduler) SetDelay(delay time.Duration) {
	s.mu.Lock()
	s.delay = delay
	s.mu.Unlock()
}

// PendingCount returns the number of per-path entries (pending or in
// flight).
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// State reports whether path currently has a pending timer or an in-flight
// attempt.
func (s *Scheduler) State(path string) (pending, inFlight bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.pending[path]
	if !ok {
		return false, false
	}
	return !e.inFlight, e.inFlight
}
