package sched

import (
	"fmt"

	"arch"
	"caller"
)

// Spinlock is a non-blocking lock that disables local IRQs on its
// owning CPU for as long as it is held, grounded on
// kernel/core/spin.c in the source this is distilled from. Since this
// kernel core never runs on real interrupt hardware, "disabling IRQs"
// is represented as incrementing the owning CPU's irqDepth counter;
// what matters is that nesting is counted and only the outermost
// release restores it, which this preserves exactly. The actual
// exclusive-access primitive is arch.Lock, the same
// ldrex/strex-or-cmpxchg retry loop kernel/arch/arm/core/arch_spinlock.c
// implements in assembly.
type Spinlock struct {
	lock  arch.Lock
	name  string
	owner *CPU
	pcs   []uintptr
}

// NewSpinlock creates an unlocked, named spinlock.
func NewSpinlock(name string) *Spinlock {
	return &Spinlock{name: name}
}

// Acquire takes the lock on behalf of t's CPU. Double-acquiring the
// same spinlock from the same CPU is a programmer error and panics
// with the previous acquire site's backtrace, matching spin_lock's
// "already holding" panic.
func (s *Spinlock) Acquire(t *Task) {
	cpu := t.cpu
	if s.holdingBy(cpu) {
		panic(fmt.Sprintf("sched: CPU %d already holding spinlock %q, acquired at:\n%s",
			cpu.ID, s.name, caller.FormatPCs(s.pcs)))
	}

	cpu.mu.Lock()
	cpu.irqDepth++
	cpu.mu.Unlock()

	s.lock.Acquire()

	s.owner = cpu
	s.pcs = caller.PCs(1, 16)
}

// Release gives up the lock; only the outermost nested Acquire/Release
// pair on a CPU actually re-enables IRQs (here: decrements irqDepth to
// zero).
func (s *Spinlock) Release(t *Task) {
	cpu := t.cpu
	if !s.holdingBy(cpu) {
		panic(fmt.Sprintf("sched: CPU %d cannot release spinlock %q: held by %v", cpu.ID, s.name, s.owner))
	}

	s.owner = nil
	s.pcs = nil
	s.lock.Release()

	cpu.mu.Lock()
	cpu.irqDepth--
	cpu.mu.Unlock()
}

// Holding reports whether t's CPU currently holds the lock.
func (s *Spinlock) Holding(t *Task) bool {
	return s.holdingBy(t.cpu)
}

func (s *Spinlock) holdingBy(cpu *CPU) bool {
	return s.lock.Locked() && s.owner == cpu
}
