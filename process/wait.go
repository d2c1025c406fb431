package process

import (
	"defs"
	"sched"
)

// Wait blocks self until one of parent's children becomes a zombie
// (or already is one), reaps it from the process table, and returns
// its pid and exit code. pid filters which child to wait for; -1
// (matching the wait(2) convention) accepts any child.
func Wait(self *sched.Task, parent *Process_t, reg *Registry, pid defs.Pid_t, timeoutTicks int) (defs.Pid_t, int, defs.Err_t) {
	parent.lock()
	if !hasChild(parent, pid) {
		parent.unlock()
		return 0, 0, -defs.ECHILD
	}
	if z := findZombie(parent, pid); z != nil {
		reapLocked(parent, z)
		parent.unlock()
		reg.remove(z.Pid)
		return z.Pid, z.ExitCode, 0
	}
	parent.unlock()

	msg, err := parent.exitMB.TimedReceive(self, timeoutTicks)
	if err != 0 {
		return 0, 0, err
	}
	z := msg.(*Process_t)
	if pid > 0 && z.Pid != pid {
		// A different child exited first; re-deliver it so a later
		// Wait(any-pid) still observes it instead of losing the event.
		parent.exitMB.TimedSend(self, z, 0)
		return 0, 0, -defs.EAGAIN
	}

	parent.lock()
	reapLocked(parent, z)
	parent.unlock()
	reg.remove(z.Pid)
	return z.Pid, z.ExitCode, 0
}

func hasChild(parent *Process_t, pid defs.Pid_t) bool {
	if pid < 0 {
		return len(parent.Children) > 0
	}
	for _, c := range parent.Children {
		if c.Pid == pid {
			return true
		}
	}
	return false
}

func findZombie(parent *Process_t, pid defs.Pid_t) *Process_t {
	for _, c := range parent.Children {
		c.lock()
		z := c.Zombie
		c.unlock()
		if z && (pid < 0 || c.Pid == pid) {
			return c
		}
	}
	return nil
}

func reapLocked(parent *Process_t, child *Process_t) {
	for i, c := range parent.Children {
		if c == child {
			parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
			return
		}
	}
}
