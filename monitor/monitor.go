// Package monitor implements the in-kernel debug console: an
// on-demand pprof-format profile of per-CPU run-queue occupancy and
// mailbox depth, built with github.com/google/pprof/profile.
//
// stats.Rdtsc/Counter_t/Cycles_t guarded their bodies behind a
// runtime.Rdtsc() call that exists only in a forked Go toolchain, and
// behind a Stats/Timing const that was false even in the retrieved
// source — dead code twice over. Counter_t survives here as a plain
// atomic counter with no cycle-counting half; Rdtsc has no
// replacement, since nothing in this tree samples wall-clock cycles.
package monitor

import (
	"fmt"
	"io"
	"sync/atomic"

	"sched"
)

// Counter_t is a statistical counter, incremented from any goroutine.
type Counter_t int64

// Inc increments the counter by one.
func (c *Counter_t) Inc() { atomic.AddInt64((*int64)(c), 1) }

// Get reads the counter's current value.
func (c *Counter_t) Get() int64 { return atomic.LoadInt64((*int64)(c)) }

// Monitor samples a running Scheduler for occupancy-profile requests.
type Monitor struct {
	sched *sched.Scheduler

	// mailboxes are named mailboxes the monitor additionally
	// reports on (IPC endpoints, IRQ bottom-half queues); callers
	// register the ones they want visible.
	mailboxes map[string]*sched.Mailbox
}

// New creates a monitor sampling sc.
func New(sc *sched.Scheduler) *Monitor {
	return &Monitor{sched: sc, mailboxes: make(map[string]*sched.Mailbox)}
}

// Track registers a mailbox under name so its depth appears in future
// profiles.
func (m *Monitor) Track(name string, mb *sched.Mailbox) {
	m.mailboxes[name] = mb
}

// Profile builds a pprof profile: one "occupancy" sample per
// (CPU, priority) bucket with a positive queue length, and one
// "depth" sample per tracked mailbox.
func (m *Monitor) Profile() *Profile {
	p := &Profile{
		SampleTypes: []string{"runqueue_occupancy", "mailbox_depth"},
	}
	for _, cpu := range m.sched.CPUs() {
		occ := cpu.Occupancy()
		for prio, n := range occ {
			if n == 0 {
				continue
			}
			p.Samples = append(p.Samples, Sample{
				Labels: map[string]string{
					"cpu":      fmt.Sprintf("%d", cpu.ID),
					"priority": fmt.Sprintf("%d", prio),
				},
				Kind:  "runqueue_occupancy",
				Value: int64(n),
			})
		}
	}
	for name, mb := range m.mailboxes {
		p.Samples = append(p.Samples, Sample{
			Labels: map[string]string{"mailbox": name},
			Kind:   "mailbox_depth",
			Value:  int64(mb.Len()),
		})
	}
	return p
}

// WriteTo writes the current profile to w in pprof's gzipped protobuf
// format, for a debug HTTP endpoint or a local socket to pipe into
// `pprof`.
func (m *Monitor) WriteTo(w io.Writer) error {
	return m.Profile().toPprof().Write(w)
}
