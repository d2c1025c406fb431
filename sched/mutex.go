package sched

import (
	"sync"

	"defs"
)

// Mutex is a priority-inheriting lock, grounded on
// kernel/core/kmutex.c in the source this is distilled from — that
// implementation left priority inheritance as a TODO; this one
// raises the direct owner only: an owner that itself waits on another
// mutex does not pass the raise on.
type Mutex struct {
	mu      sync.Mutex
	name    string
	owner   *Task
	waiters []*Task // kept sorted by priority, highest (lowest number) first
}

// NewMutex creates an unlocked, named mutex.
func NewMutex(name string) *Mutex {
	return &Mutex{name: name}
}

// Lock acquires the mutex, blocking in state MutexWait if it is already
// held. If the caller's priority is numerically lower (higher
// priority) than the current owner's effective priority, the owner is
// temporarily raised to match (priority inheritance) until it unlocks.
func (m *Mutex) Lock(self *Task) {
	for {
		m.mu.Lock()
		if m.owner == nil {
			m.owner = self
			self.mu.Lock()
			self.mutexesOwned = append(self.mutexesOwned, m)
			self.mu.Unlock()
			m.mu.Unlock()
			return
		}

		owner := m.owner
		m.insertWaiterLocked(self)
		m.raiseOwnerLocked(owner, self)
		m.mu.Unlock()

		// Block until Unlock hands this task ownership (a mutex wait
		// has no timeout in this kernel's ABI, matching kmutex_lock's
		// unconditional sched_sleep; an interrupt can still end it).
		Block(self, MutexWait, 0)

		m.mu.Lock()
		if m.owner == self {
			m.mu.Unlock()
			return
		}
		// Woken without ownership (an interrupt): leave the waiter
		// list and wait again.
		for i, w := range m.waiters {
			if w == self {
				m.waiters = append(m.waiters[:i], m.waiters[i+1:]...)
				break
			}
		}
		m.mu.Unlock()
	}
}

func (m *Mutex) insertWaiterLocked(t *Task) {
	i := 0
	for ; i < len(m.waiters); i++ {
		if t.Priority() < m.waiters[i].Priority() {
			break
		}
	}
	m.waiters = append(m.waiters, nil)
	copy(m.waiters[i+1:], m.waiters[i:])
	m.waiters[i] = t
}

func (m *Mutex) raiseOwnerLocked(owner, waiter *Task) {
	owner.mu.Lock()
	defer owner.mu.Unlock()
	if waiter.priority < owner.priority {
		if !owner.piRaised {
			owner.savedPriority = owner.priority
			owner.piRaised = true
		}
		owner.priority = waiter.priority
	}
}

// Unlock releases the mutex, restoring the owner's original priority
// if it was raised, and hands ownership directly to the
// highest-priority waiter (avoiding the thundering-herd of waking
// everyone only to have all but one re-block).
func (m *Mutex) Unlock(self *Task) {
	m.mu.Lock()
	if m.owner != self {
		panic("sched: Unlock by non-owner")
	}

	self.mu.Lock()
	if self.piRaised {
		self.priority = self.savedPriority
		self.piRaised = false
	}
	for i, owned := range self.mutexesOwned {
		if owned == m {
			self.mutexesOwned = append(self.mutexesOwned[:i], self.mutexesOwned[i+1:]...)
			break
		}
	}
	self.mu.Unlock()

	if len(m.waiters) == 0 {
		m.owner = nil
		m.mu.Unlock()
		return
	}
	next := m.waiters[0]
	m.waiters = m.waiters[1:]
	m.owner = next
	next.mu.Lock()
	next.mutexesOwned = append(next.mutexesOwned, m)
	next.mu.Unlock()
	m.mu.Unlock()

	Wake(next, defs.Err_t(0))
}

// Holding reports whether self currently owns the mutex.
func (m *Mutex) Holding(self *Task) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.owner == self
}
