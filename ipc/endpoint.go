package ipc

import (
	"defs"
	"limits"
	"sched"
)

// Endpoint is the server side of a channel: a fixed-capacity mailbox
// of in-flight *Request pointers (struct Endpoint, kernel/ipc/ipc.h).
type Endpoint struct {
	mbox *sched.Mailbox
}

func newEndpoint() *Endpoint {
	return &Endpoint{mbox: sched.NewMailbox(limits.MailboxCapacity)}
}

// Receive blocks the calling server task until a request is available
// (endpoint_receive), returning it with the server's reference
// already held (the sender dup'd it before pushing).
func (e *Endpoint) Receive(self *sched.Task) (*Request, defs.Err_t) {
	msg, err := e.mbox.TimedReceive(self, 0)
	if err != 0 {
		return nil, err
	}
	return msg.(*Request), 0
}

func (e *Endpoint) send(self *sched.Task, req *Request, timeoutTicks int) defs.Err_t {
	return e.mbox.TimedSend(self, req, timeoutTicks)
}
