package sched

import "sync"

// timer is one delta-encoded deadline node, grounded on
// kernel/core/ktimer.c in the source this is distilled from:
// remain holds ticks relative to the *previous* node in the list, not
// an absolute deadline, so a per-tick decrement only ever touches the
// head.
type timer struct {
	callback func()
	remain   int // relative to the previous node
	period   int // 0 = one-shot
	active   bool
}

// Wheel is the kernel's tick-based timer list: nodes stay sorted by
// remaining ticks using delta encoding, so firing or arming a timer
// never has to rescan the whole list to find its deadline.
type Wheel struct {
	mu    sync.Mutex
	nodes []*timer
}

// NewWheel creates an empty timer wheel.
func NewWheel() *Wheel { return &Wheel{} }

// After arms a one-shot timer firing callback roughly delayTicks from
// now.
func (w *Wheel) After(delayTicks int, callback func()) *timer {
	return w.arm(delayTicks, 0, callback)
}

// Every arms a periodic timer firing callback every periodTicks,
// first firing after periodTicks.
func (w *Wheel) Every(periodTicks int, callback func()) *timer {
	return w.arm(periodTicks, periodTicks, callback)
}

func (w *Wheel) arm(delay, period int, callback func()) *timer {
	t := &timer{callback: callback, period: period, active: true}
	w.mu.Lock()
	w.insertLocked(t, delay)
	w.mu.Unlock()
	return t
}

// insertLocked walks forward, consuming delay against each node's
// delta, until it finds where target falls; it then splices t in and
// subtracts t's position from the following node's delta so the chain
// still sums correctly.
func (w *Wheel) insertLocked(t *timer, target int) {
	i := 0
	remaining := target
	for i < len(w.nodes) && remaining >= w.nodes[i].remain {
		remaining -= w.nodes[i].remain
		i++
	}
	t.remain = remaining
	if i < len(w.nodes) {
		w.nodes[i].remain -= remaining
	}
	w.nodes = append(w.nodes, nil)
	copy(w.nodes[i+1:], w.nodes[i:])
	w.nodes[i] = t
}

// Cancel removes a still-pending timer; it is a no-op if the timer
// already fired (one-shot) or was never armed on this wheel.
func (w *Wheel) Cancel(t *timer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, n := range w.nodes {
		if n == t {
			if i+1 < len(w.nodes) {
				w.nodes[i+1].remain += n.remain
			}
			w.nodes = append(w.nodes[:i], w.nodes[i+1:]...)
			t.active = false
			return
		}
	}
}

// Tick decrements the head node's delta by one and fires (dequeuing)
// every node that reaches zero, re-arming periodic ones.
func (w *Wheel) Tick() {
	w.mu.Lock()
	if len(w.nodes) == 0 {
		w.mu.Unlock()
		return
	}
	w.nodes[0].remain--

	var fired []*timer
	for len(w.nodes) > 0 && w.nodes[0].remain <= 0 {
		fired = append(fired, w.nodes[0])
		w.nodes = w.nodes[1:]
	}
	for _, t := range fired {
		if t.period > 0 {
			w.insertLocked(t, t.period)
		} else {
			t.active = false
		}
	}
	w.mu.Unlock()

	for _, t := range fired {
		t.callback()
	}
}
