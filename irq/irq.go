// Package irq implements the interrupt dispatch layer: a per-line
// chain of top-half hooks grounded on kernel/irq.c and
// include/kernel/irq.h, plus the dedicated-kernel-thread bottom half
// kernel/trap.c's interrupt_attach_thread builds on top of it. The two
// models are layered exactly as the source layers them: a hook runs on
// the interrupt line itself and must be short and non-blocking; a
// thread handler runs at ordinary task priority and may block, woken
// by a semaphore the hook posts.
package irq

import (
	"fmt"
	"sync"

	"msi"
	"sched"
)

// Max is the number of interrupt lines this core dispatches, matching
// IRQ_MAX's role as an upper bound on vector numbers. Real GIC/IOAPIC
// line counts vary; this is generous enough for the timer, IPI, and a
// handful of device lines.
const Max = 64

// Hook is one top-half handler attached to an interrupt line,
// mirroring struct IrqHook: Handler returns true once the line no
// longer needs to stay masked (the C side signals this by returning
// nonzero from hook->handler).
type Hook struct {
	IRQ     int
	Handler func(irq int) bool

	id uint64
}

type line struct {
	mu        sync.Mutex
	hooks     []*Hook
	usedIDs   uint64
	activeIDs uint64
	masked    bool
}

// Table dispatches hardware interrupts to attached hooks, one line
// per index, the Go equivalent of the file-scope irq_hooks[IRQ_MAX]
// array in kernel/irq.c.
type Table struct {
	lines [Max]line
}

// New creates an empty dispatch table.
func New() *Table {
	return &Table{}
}

// Attach installs hook on the given line, allocating it a bit-id
// unique among hooks on that line (irq_hook_attach). It panics if irq
// is out of range or every bit-id on the line is already taken — both
// are programmer errors, not runtime conditions to recover from.
func (t *Table) Attach(irq int, handler func(irq int) bool) *Hook {
	if irq < 0 || irq >= Max {
		panic(fmt.Sprintf("irq: line %d out of range", irq))
	}
	l := &t.lines[irq]
	l.mu.Lock()
	defer l.mu.Unlock()

	var id uint64 = 1
	for ; id != 0; id <<= 1 {
		if l.usedIDs&id == 0 {
			break
		}
	}
	if id == 0 {
		panic(fmt.Sprintf("irq: line %d has no free hook id", irq))
	}

	h := &Hook{IRQ: irq, Handler: handler, id: id}
	l.usedIDs |= id
	l.hooks = append(l.hooks, h)
	l.masked = false
	return h
}

// Detach removes hook from its line (irq_hook_disable followed by the
// C side's implicit detach — this tree has no separate "disabled but
// still attached" state, since nothing here depends on re-enabling a
// hook without re-attaching it).
func (t *Table) Detach(h *Hook) {
	l := &t.lines[h.IRQ]
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, hh := range l.hooks {
		if hh == h {
			l.hooks = append(l.hooks[:i], l.hooks[i+1:]...)
			break
		}
	}
	l.usedIDs &^= h.id
	l.activeIDs &^= h.id
	l.masked = true
}

// Handle runs every hook on irq in attachment order (irq_handle): a
// hook whose Handler returns true is considered to have finished with
// this assertion of the line and its active bit is cleared; the line
// is reported still masked (the caller should not unmask the physical
// source) as long as any hook's active bit remains set.
func (t *Table) Handle(irq int) (stillActive bool) {
	l := &t.lines[irq]
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, h := range l.hooks {
		if l.activeIDs&h.id != 0 {
			continue
		}
		l.activeIDs |= h.id
		if h.Handler(irq) {
			l.activeIDs &^= h.id
		}
	}
	l.masked = l.activeIDs != 0
	return l.masked
}

// WorkerTask is a bottom-half handler that runs as an ordinary
// scheduled task, parked on a semaphore the top half posts to —
// interrupt_attach_thread's ISRThread, expressed with this tree's
// sched.Task/sched.Semaphore instead of a raw KThread.
type WorkerTask struct {
	IRQ    int
	Vector msi.Msivec_t

	sem  *sched.Semaphore
	task *sched.Task
}

// AttachWorker installs a top-half hook on irq that does nothing but
// post sem (interrupt_common in kernel/trap.c), and spawns a task that
// loops waiting on sem and calling handler once per post
// (interrupt_thread). The worker is given a reserved MSI vector purely
// as a stable identifier the debug monitor can key a tracked mailbox
// name on — these vectors were msi's only consumer before this package
// existed to use one.
func AttachWorker(t *Table, sc *sched.Scheduler, irq int, name string, handler func()) *WorkerTask {
	w := &WorkerTask{
		IRQ:    irq,
		Vector: msi.Msi_alloc(),
		sem:    sched.NewSemaphore(0),
	}

	w.task = sc.Create(name, sched.NZero, func(self *sched.Task) {
		for {
			if err := w.sem.TimedGet(self, 0); err != 0 {
				panic(fmt.Sprintf("irq: worker %q semaphore wait failed: %d", name, err))
			}
			handler()
		}
	})

	t.Attach(irq, func(int) bool {
		w.sem.Put()
		return true
	})

	return w
}

// Detach releases the worker's reserved MSI vector. The worker task
// itself is left running its loop forever, the same lifetime the
// retrieved source gives interrupt_thread: nothing in this core tears
// an IRQ worker down independently of process shutdown.
func (w *WorkerTask) Detach() {
	msi.Msi_free(w.Vector)
}
