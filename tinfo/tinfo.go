// Package tinfo tracks per-thread kernel state (Tnote_t) that does not
// belong on sched.Task itself: liveness/doom flags and the kill
// handshake a process uses to tear a thread down from outside.
//
// The retrieved source located the current thread's note through
// runtime.Gptr/Setgptr, a pair of hooks that exist only in a forked Go
// toolchain. This tree's scheduler abandoned goroutine-local "current
// task" lookups entirely (every blocking primitive threads *sched.Task
// explicitly), so Current/SetCurrent/ClearCurrent are replaced with an
// explicit table keyed by Tid_t, looked up the same way process looks
// up a Task's owning Process.
package tinfo

import (
	"sync"

	"defs"
)

/// Tnote_t stores per-thread state used by the kernel.
type Tnote_t struct {
	State    interface{}
	Alive    bool
	Killed   bool
	Isdoomed bool
	// protects Killed, Killnaps.Cond and Kerr, and is a leaf lock
	sync.Mutex
	Killnaps struct {
		Killch chan bool
		Cond   *sync.Cond
		Kerr   defs.Err_t
	}
}

/// Doomed reports whether the thread is marked as doomed.
func (t *Tnote_t) Doomed() bool {
	return t.Isdoomed
}

/// Threadinfo_t tracks all thread notes, indexed by thread ID.
type Threadinfo_t struct {
	sync.Mutex
	Notes map[defs.Tid_t]*Tnote_t
}

/// Init initializes the thread info map.
func (t *Threadinfo_t) Init() {
	t.Notes = make(map[defs.Tid_t]*Tnote_t)
}

/// Spawn installs and returns a fresh note for tid.
func (t *Threadinfo_t) Spawn(tid defs.Tid_t) *Tnote_t {
	n := &Tnote_t{Alive: true}
	n.Killnaps.Killch = make(chan bool, 1)
	n.Killnaps.Cond = sync.NewCond(n)
	t.Lock()
	t.Notes[tid] = n
	t.Unlock()
	return n
}

/// Find returns tid's note, or nil if it has none (already reaped).
func (t *Threadinfo_t) Find(tid defs.Tid_t) *Tnote_t {
	t.Lock()
	defer t.Unlock()
	return t.Notes[tid]
}

/// Remove drops tid's note once the thread has been fully reaped.
func (t *Threadinfo_t) Remove(tid defs.Tid_t) {
	t.Lock()
	delete(t.Notes, tid)
	t.Unlock()
}
