package process

import (
	"defs"
	"fd"
	"limits"
	"sched"
)

// AllocFd installs f at the lowest free descriptor number, mirroring
// fd_alloc's linear scan in kernel/process/fd.c.
func (p *Process_t) AllocFd(f *fd.Fd_t) (int, defs.Err_t) {
	p.lock()
	defer p.unlock()
	for i := 0; i < limits.OpenMax; i++ {
		if p.Fds[i] == nil {
			p.Fds[i] = f
			return i, 0
		}
	}
	return 0, -defs.EMFILE
}

// LookupFd returns the descriptor at fdno, or EBADF.
func (p *Process_t) LookupFd(fdno int) (*fd.Fd_t, defs.Err_t) {
	p.lock()
	defer p.unlock()
	if fdno < 0 || fdno >= limits.OpenMax || p.Fds[fdno] == nil {
		return nil, -defs.EBADF
	}
	return p.Fds[fdno], 0
}

// CloseFd closes and clears fdno (fd_close).
func (p *Process_t) CloseFd(self *sched.Task, fdno int) defs.Err_t {
	p.lock()
	if fdno < 0 || fdno >= limits.OpenMax || p.Fds[fdno] == nil {
		p.unlock()
		return -defs.EBADF
	}
	f := p.Fds[fdno]
	p.Fds[fdno] = nil
	p.unlock()
	return f.Fops.Close(self)
}

// GetFdFlags reports fdno's permission/close-on-exec bits.
func (p *Process_t) GetFdFlags(fdno int) (int, defs.Err_t) {
	p.lock()
	defer p.unlock()
	if fdno < 0 || fdno >= limits.OpenMax || p.Fds[fdno] == nil {
		return 0, -defs.EBADF
	}
	return p.Fds[fdno].Perms, 0
}

// SetFdFlags replaces fdno's flags, masked to FD_CLOEXEC only
// (fd_set_flags masks to this same single bit: permissions are fixed
// at open time and not settable after the fact).
func (p *Process_t) SetFdFlags(fdno int, flags int) defs.Err_t {
	p.lock()
	defer p.unlock()
	if fdno < 0 || fdno >= limits.OpenMax || p.Fds[fdno] == nil {
		return -defs.EBADF
	}
	perms := p.Fds[fdno].Perms
	perms &^= fd.FD_CLOEXEC
	perms |= flags & fd.FD_CLOEXEC
	p.Fds[fdno].Perms = perms
	return 0
}

// CloseAll closes every open descriptor, called once at Exit
// (fd_close_all).
func (p *Process_t) CloseAll(self *sched.Task) {
	p.lock()
	var open []*fd.Fd_t
	for i := range p.Fds {
		if p.Fds[i] != nil {
			open = append(open, p.Fds[i])
			p.Fds[i] = nil
		}
	}
	p.unlock()
	for _, f := range open {
		fd.Close_panic(self, f)
	}
}

// CloseOnExec closes every descriptor flagged FD_CLOEXEC, called by
// Exec before building the new image (fd_close_on_exec).
func (p *Process_t) CloseOnExec(self *sched.Task) {
	p.lock()
	var closing []int
	for i := range p.Fds {
		if p.Fds[i] != nil && p.Fds[i].Perms&fd.FD_CLOEXEC != 0 {
			closing = append(closing, i)
		}
	}
	p.unlock()
	for _, i := range closing {
		p.CloseFd(self, i)
	}
}

// cloneFds duplicates every open descriptor by reopening it
// (fd_clone's ref-count-each-entry behavior, expressed through
// fd.Copyfd's Reopen call instead of a raw refcount bump since
// Fdops_i connections track their own refcount internally).
func (p *Process_t) cloneFds() ([limits.OpenMax]*fd.Fd_t, defs.Err_t) {
	p.lock()
	defer p.unlock()

	var out [limits.OpenMax]*fd.Fd_t
	for i, f := range p.Fds {
		if f == nil {
			continue
		}
		nf, err := fd.Copyfd(f)
		if err != 0 {
			return out, err
		}
		out[i] = nf
	}
	return out, 0
}
