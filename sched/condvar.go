package sched

import (
	"sync"

	"defs"
)

// Condvar is a condition variable used with an external Mutex
// (k_condvar_wait). There is no dedicated source file for this in
// the distilled original beyond the same sched_sleep/sched_wakeup
// pattern ksemaphore.c and kmutex.c both use; Condvar reuses that
// pattern directly.
type Condvar struct {
	mu      sync.Mutex
	waiters []*Task
}

// NewCondvar creates an empty condition variable.
func NewCondvar() *Condvar { return &Condvar{} }

// Wait atomically releases m and blocks self until Signal/Broadcast
// wakes it (or timeoutTicks elapses, or it is interrupted), then
// reacquires m before returning, matching the usual condvar contract.
func (c *Condvar) Wait(self *Task, m *Mutex, timeoutTicks int) defs.Err_t {
	c.mu.Lock()
	c.waiters = append(c.waiters, self)
	c.mu.Unlock()

	m.Unlock(self)
	r := Block(self, Sleep, timeoutTicks)
	if r != 0 {
		c.remove(self)
	}
	m.Lock(self)
	return r
}

// Signal wakes one waiter, if any.
func (c *Condvar) Signal() {
	c.mu.Lock()
	var w *Task
	if len(c.waiters) > 0 {
		w = c.waiters[0]
		c.waiters = c.waiters[1:]
	}
	c.mu.Unlock()
	if w != nil {
		Wake(w, defs.Err_t(0))
	}
}

// Broadcast wakes every current waiter.
func (c *Condvar) Broadcast() {
	c.mu.Lock()
	ws := c.waiters
	c.waiters = nil
	c.mu.Unlock()
	for _, w := range ws {
		Wake(w, defs.Err_t(0))
	}
}

func (c *Condvar) remove(t *Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, w := range c.waiters {
		if w == t {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			return
		}
	}
}
