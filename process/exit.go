package process

import (
	"defs"
	"sched"
)

// initPid is the reparenting target for orphaned children, the same
// role pid 1 plays in the retrieved source's process tree.
const initPid = 1

// Exit tears down self's process: closes every descriptor, releases
// the address space, reparents any surviving children to pid 1,
// merges this process's resource usage into its parent's accounting
// (the rusage a wait(2) caller eventually sees includes descendants'
// time, matching Accnt_t.Add's purpose), marks the process a zombie, and
// wakes whoever is waiting on it.
func Exit(self *sched.Task, p *Process_t, reg *Registry, code int) {
	p.CloseAll(self)
	p.Space.Destroy()

	initProc := reg.Lookup(initPid)

	p.lock()
	children := p.Children
	p.Children = nil
	parent := p.Parent
	p.unlock()

	for _, c := range children {
		c.lock()
		c.Parent = initProc
		c.unlock()
		if initProc != nil {
			initProc.lock()
			initProc.Children = append(initProc.Children, c)
			initProc.unlock()
		}
	}

	if parent != nil {
		parent.Acct.Add(&p.Acct)
	}

	p.lock()
	p.Zombie = true
	p.ExitCode = code
	p.unlock()

	p.exitMB.TimedSend(self, p, 0)
}
