package sched

import (
	"sync"

	"defs"
)

// Mailbox is a fixed-capacity ring of uniform messages (any), used
// heavily by IPC endpoints and bottom-half IRQ notification. Neither
// source tree has a standalone mailbox type; this is implemented with
// the same TimedGet/Put-style blocking this package already uses for
// Semaphore, since a mailbox is precisely a semaphore-gated ring
// buffer.
type Mailbox struct {
	mu        sync.Mutex
	buf       []any
	head, cnt int

	notEmpty []*Task
	notFull  []*Task
}

// NewMailbox creates a mailbox with the given fixed capacity.
func NewMailbox(capacity int) *Mailbox {
	if capacity < 1 {
		panic("sched: mailbox capacity must be positive")
	}
	return &Mailbox{buf: make([]any, capacity)}
}

// TimedSend blocks while the mailbox is full, then enqueues msg.
func (mb *Mailbox) TimedSend(self *Task, msg any, timeoutTicks int) defs.Err_t {
	for {
		mb.mu.Lock()
		if mb.cnt < len(mb.buf) {
			idx := (mb.head + mb.cnt) % len(mb.buf)
			mb.buf[idx] = msg
			mb.cnt++
			var w *Task
			if len(mb.notEmpty) > 0 {
				w = mb.notEmpty[0]
				mb.notEmpty = mb.notEmpty[1:]
			}
			mb.mu.Unlock()
			if w != nil {
				Wake(w, defs.Err_t(0))
			}
			return 0
		}
		mb.notFull = append(mb.notFull, self)
		mb.mu.Unlock()

		if r := Block(self, Sleep, timeoutTicks); r != 0 {
			mb.removeFrom(&mb.notFull, self)
			return r
		}
	}
}

// TimedReceive blocks while the mailbox is empty, then dequeues and
// returns the oldest message.
func (mb *Mailbox) TimedReceive(self *Task, timeoutTicks int) (any, defs.Err_t) {
	for {
		mb.mu.Lock()
		if mb.cnt > 0 {
			msg := mb.buf[mb.head]
			mb.buf[mb.head] = nil
			mb.head = (mb.head + 1) % len(mb.buf)
			mb.cnt--
			var w *Task
			if len(mb.notFull) > 0 {
				w = mb.notFull[0]
				mb.notFull = mb.notFull[1:]
			}
			mb.mu.Unlock()
			if w != nil {
				Wake(w, defs.Err_t(0))
			}
			return msg, 0
		}
		mb.notEmpty = append(mb.notEmpty, self)
		mb.mu.Unlock()

		if r := Block(self, Sleep, timeoutTicks); r != 0 {
			mb.removeFrom(&mb.notEmpty, self)
			return nil, r
		}
	}
}

func (mb *Mailbox) removeFrom(list *[]*Task, t *Task) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	l := *list
	for i, w := range l {
		if w == t {
			*list = append(l[:i], l[i+1:]...)
			return
		}
	}
}

// Len reports how many messages are currently queued.
func (mb *Mailbox) Len() int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return mb.cnt
}
