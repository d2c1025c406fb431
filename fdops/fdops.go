// Package fdops defines the interfaces a file-descriptor-addressable
// object (an ipc.Connection, in this kernel) must implement, and the
// Userio_i abstraction used to move bytes between a descriptor and either
// kernel memory or a checked user-space range.
package fdops

import (
	"defs"
	"sched"
	"stat"
)

// Userio_i abstracts a source or destination for descriptor I/O so the
// same Fdops_i methods serve both a raw kernel buffer (used when the IPC
// server itself is the kernel, e.g. a pipe) and a user virtual address
// range reached through vm.Space's fault-checked copy routines.
type Userio_i interface {
	// Uioread copies from the underlying source into dst, returning the
	// number of bytes moved.
	Uioread(dst []uint8) (int, defs.Err_t)
	// Uiowrite copies src into the underlying destination, returning the
	// number of bytes moved.
	Uiowrite(src []uint8) (int, defs.Err_t)
	// Remain reports how many bytes the caller still wants transferred.
	Remain() int
	// Totalsz reports the full requested transfer size.
	Totalsz() int
}

// Fdops_i is implemented by every object reachable through a process fd
// table entry. In this kernel that is always an *ipc.Connection: every
// descriptor operation is a synchronous IPC send to the owning server,
// except Reopen/Close which additionally manage the connection's
// refcount. Every method that can block takes the calling task
// explicitly, the same convention every other blocking primitive in
// this kernel (sched.Semaphore, sched.Mailbox, ...) already follows.
type Fdops_i interface {
	Close(self *sched.Task) defs.Err_t
	Reopen() defs.Err_t
	Read(self *sched.Task, dst Userio_i) (int, defs.Err_t)
	Write(self *sched.Task, src Userio_i) (int, defs.Err_t)
	Seek(self *sched.Task, offset int64, whence int) (int64, defs.Err_t)
	Fstat(self *sched.Task, st *stat.Stat_t) defs.Err_t
	Fchmod(self *sched.Task, mode int) defs.Err_t
	Fchown(self *sched.Task, uid, gid int) defs.Err_t
	Fsync(self *sched.Task) defs.Err_t
	Ioctl(self *sched.Task, request int, arg int) defs.Err_t
	Getdents(self *sched.Task, dst Userio_i) (int, defs.Err_t)
	Truncate(self *sched.Task, length int64) defs.Err_t
	Select(self *sched.Task, timeoutTicks int) (bool, defs.Err_t)
}
