package process

import (
	"sched"
)

// Kill tears p's main thread down from outside the normal
// pending-signal path: it marks p's thread note doomed and killed,
// wakes anything waiting on the kill handshake, and forces the task
// out of whatever it is blocked on with -EINTR. SIGKILL's default
// action is termination regardless of mask or handler, so it cannot
// wait for the next trap return the way DeliverPending's other
// signals do; Kill is that immediate path.
func Kill(p *Process_t) {
	note := p.Note
	if note == nil {
		return
	}

	note.Lock()
	note.Isdoomed = true
	note.Killed = true
	select {
	case note.Killnaps.Killch <- true:
	default:
	}
	note.Killnaps.Cond.Broadcast()
	note.Unlock()

	if p.MainThread != nil {
		p.MainThread.SetFlag(sched.FlagDestroy)
		p.MainThread.Interrupt()
	}
}
