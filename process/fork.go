package process

import (
	"defs"
	"sched"
)

// Fork creates a child of self's process: a copy-on-write clone of the
// address space (vmspace.VMSpace.Clone(false), downgrading every
// shared page to COW exactly as process_alloc's vm_copy_out-per-segment
// walk does for exec but fork instead shares the existing mapping),
// a cloned fd table, and a fresh main thread scheduled to resume
// execution at the fork call site — grounded on process_alloc/
// process_create in kernel/process.c.
func Fork(self *sched.Task, parent *Process_t, reg *Registry, sc *sched.Scheduler, resume func(*sched.Task)) (*Process_t, defs.Err_t) {
	fds, err := parent.cloneFds()
	if err != 0 {
		return nil, err
	}

	space := parent.Space.Clone(false)

	child := newProcess(0, space)
	reg.allocPid(child)

	child.Pgid = parent.Pgid
	child.Ruid, child.Euid = parent.Ruid, parent.Euid
	child.Rgid, child.Egid = parent.Rgid, parent.Egid
	child.Cmask = parent.Cmask
	child.SignalHandlers = parent.SignalHandlers
	child.SignalStub = parent.SignalStub
	child.Fds = fds
	child.Cwd = parent.Cwd
	child.Parent = parent

	parent.lock()
	parent.Children = append(parent.Children, child)
	parent.unlock()

	child.MainThread = sc.Create("fork-child", self.Priority(), resume)

	return child, 0
}
