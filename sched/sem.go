package sched

import (
	"sync"

	"defs"
)

// Semaphore is a counting semaphore, grounded on
// kernel/core/ksemaphore.c in the source this is distilled from.
type Semaphore struct {
	mu      sync.Mutex
	count   int
	waiters []*Task
}

// NewSemaphore creates a semaphore with the given initial count.
func NewSemaphore(initial int) *Semaphore {
	return &Semaphore{count: initial}
}

// TimedGet decrements the count, blocking in state Sleep while it is
// zero. timeoutTicks of 0 blocks indefinitely; a positive value bounds
// the wait, returning -ETIMEDOUT on expiry or -EINTR if interrupted
// (k_semaphore_timed_get).
func (s *Semaphore) TimedGet(self *Task, timeoutTicks int) defs.Err_t {
	for {
		s.mu.Lock()
		if s.count > 0 {
			s.count--
			s.mu.Unlock()
			return 0
		}
		s.waiters = append(s.waiters, self)
		s.mu.Unlock()

		if r := Block(self, Sleep, timeoutTicks); r != 0 {
			s.removeWaiter(self)
			return r
		}
	}
}

// Put increments the count and wakes one waiter, if any.
func (s *Semaphore) Put() {
	s.mu.Lock()
	s.count++
	var w *Task
	if len(s.waiters) > 0 {
		w = s.waiters[0]
		s.waiters = s.waiters[1:]
	}
	s.mu.Unlock()
	if w != nil {
		Wake(w, defs.Err_t(0))
	}
}

func (s *Semaphore) removeWaiter(t *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, w := range s.waiters {
		if w == t {
			s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
			return
		}
	}
}

// Count reports the current count, for debugging/tests only.
func (s *Semaphore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
