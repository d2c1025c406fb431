package sched

import (
	"sync"
	"sync/atomic"
	"time"

	"defs"
	"limits"
)

// Scheduler owns every CPU's run queue and the cross-CPU migration
// lock used only during wakeup-across-CPU sequences.
type Scheduler struct {
	cpus []*CPU

	migrate sync.Mutex

	nextCPU uint32
}

// New creates a scheduler with n CPUs (n <= limits.KCpuMax) and starts
// each one's dispatch loop.
func New(n int) *Scheduler {
	if n < 1 || n > limits.KCpuMax {
		panic("sched: CPU count out of range")
	}
	s := &Scheduler{cpus: make([]*CPU, n)}
	for i := range s.cpus {
		s.cpus[i] = newCPU(i)
		go s.cpus[i].dispatchLoop()
	}
	return s
}

// Stop halts every CPU's dispatch loop; used only by tests tearing
// down a scheduler instance.
func (s *Scheduler) Stop() {
	for _, c := range s.cpus {
		c.mu.Lock()
		c.stop = true
		c.cond.Signal()
		c.mu.Unlock()
	}
}

// NCPU reports how many CPUs this scheduler drives.
func (s *Scheduler) NCPU() int { return len(s.cpus) }

// CPUs returns the scheduler's CPUs, for callers (the debug monitor)
// that only need to read per-CPU occupancy, never to mutate a queue.
func (s *Scheduler) CPUs() []*CPU { return s.cpus }

// PokeCPU wakes cpuID's dispatch loop if it is idle in wfi, without
// readying any particular task. This is the entire job of an
// inter-processor interrupt's top half: its only purpose is to force
// the target CPU out of wfi and into the IRQ-return preemption point
// — the real work happens once the woken CPU re-examines its queue.
func (s *Scheduler) PokeCPU(cpuID int) {
	c := s.cpus[cpuID]
	c.mu.Lock()
	c.cond.Signal()
	c.mu.Unlock()
}

func (s *Scheduler) pickCPU() *CPU {
	i := atomic.AddUint32(&s.nextCPU, 1) - 1
	return s.cpus[int(i)%len(s.cpus)]
}

// Create makes a new task at the given priority and admits it to the
// ready queue of some CPU, the way k_task_create + k_task_resume do
// together (state machine transition: NONE -> READY).
func (s *Scheduler) Create(name string, priority int, entry func(*Task)) *Task {
	if priority < 0 || priority >= MaxPriorities {
		panic("sched: priority out of range")
	}
	t := newTask(name, priority, entry)
	cpu := s.pickCPU()

	go func() {
		<-t.permit
		entry(t)
		s.exit(t)
	}()

	cpu.mu.Lock()
	cpu.enqueueLocked(t)
	cpu.mu.Unlock()
	return t
}

func (s *Scheduler) exit(t *Task) {
	t.mu.Lock()
	t.state = Destroyed
	t.mu.Unlock()
	t.parked <- struct{}{}
}

// Yield voluntarily gives up the CPU, re-entering the ready queue at
// the back of its own priority level (k_task_yield).
func Yield(t *Task) {
	cpu := t.cpu
	cpu.mu.Lock()
	cpu.enqueueLocked(t)
	cpu.mu.Unlock()

	t.parked <- struct{}{}
	<-t.permit
}

// Block suspends t in the given state (Sleep, MutexWait, or Suspended)
// until Wake(t, reason) is called, the timeout (in ticks; 0 = forever)
// elapses, or the task has been marked interrupted. It returns the
// reason the task was woken: 0 on a normal wake, -ETIMEDOUT, or
// -EINTR, mirroring k_task_sleep's contract.
func Block(t *Task, state State, timeoutTicks int) defs.Err_t {
	t.mu.Lock()
	t.state = state
	wakeCh := make(chan defs.Err_t, 1)
	t.wakeCh = wakeCh
	interrupted := t.interrupted
	t.interrupted = false
	t.mu.Unlock()

	if interrupted {
		select {
		case wakeCh <- -defs.EINTR:
		default:
		}
	}

	var timer *time.Timer
	if timeoutTicks > 0 {
		timer = time.AfterFunc(time.Duration(timeoutTicks)*limits.TickDuration, func() {
			select {
			case wakeCh <- -defs.ETIMEDOUT:
			default:
			}
		})
	}

	t.parked <- struct{}{}
	reason := <-wakeCh
	if timer != nil {
		timer.Stop()
	}
	if reason == -defs.EINTR {
		// an interrupt that arrived during this wait is consumed by it
		t.mu.Lock()
		t.interrupted = false
		t.mu.Unlock()
	}

	cpu := t.cpu
	cpu.mu.Lock()
	cpu.enqueueLocked(t)
	cpu.mu.Unlock()
	<-t.permit

	return reason
}

// Wake readies a task blocked in Block, delivering reason (0 for a
// normal wake). Only the first of {Wake, timeout, Interrupt} to fire
// has any effect; later ones are no-ops, matching the source's
// sched_wakeup_one/task_wakeup semantics where a task can only leave
// its wait list once.
func Wake(t *Task, reason defs.Err_t) {
	t.mu.Lock()
	ch := t.wakeCh
	t.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- reason:
	default:
	}
}

// Interrupt wakes t with -EINTR if it is currently blocked, and marks
// it so a Block call already in flight (racing the mark) still sees
// the interrupted flag (k_task_interrupt).
func Interrupt(t *Task) {
	t.Interrupt()
	Wake(t, -defs.EINTR)
}

// Tick is the per-timer-interrupt entry point: it sets RESCHEDULE on
// the task currently running on cpu, which the next preemption point
// observes via CheckPreempt.
func (s *Scheduler) Tick(cpuID int) {
	c := s.cpus[cpuID]
	if cur := c.Current(); cur != nil {
		cur.SetFlag(FlagReschedule)
	}
}

// CheckPreempt yields the CPU if t's RESCHEDULE flag is set; it is the
// call every IRQ-return / syscall-return path makes before resuming
// user or kernel code.
func CheckPreempt(t *Task) {
	if t.testAndClearFlag(FlagReschedule) {
		Yield(t)
	}
}
