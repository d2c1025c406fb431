// Package process implements process and thread-group lifecycle: the
// pid/parent/children tree, the per-process file-descriptor table,
// fork/exec/wait/exit, and POSIX-style signal delivery. Fields on
// Process_t mirror struct Process in kernel/include/kernel/process.h
// (vmspace, main thread, pid table linkage, pgid, parent/children,
// wait queue, zombie/exit-code, pending signals and handlers, uid/gid
// set, cmask, fd table, cwd). Process_t values are ordinary Go
// allocations; only the signal-frame staging buffers come from a slab
// pool (Registry.framePool).
package process

import (
	"sync"

	"accnt"
	"defs"
	"fd"
	"limits"
	"sched"
	"tinfo"
	"vmspace"
)

// NSIG bounds the signal handler table, matching NSIG in the
// retrieved process.h (slot 0 unused, signals 1 through 31).
const NSIG = 32

// SigHandler is one entry in a process's signal disposition table:
// zero means default action, SigIgn means ignore, anything else is a
// user-mode handler's virtual address.
type SigHandler uintptr

const SigDefault SigHandler = 0
const SigIgn SigHandler = ^SigHandler(0)

// Process_t is one process: one address space, one or more threads
// (only MainThread is modeled; this core does not implement
// pthread-style additional user threads within one process), and the
// bookkeeping kernel/include/kernel/process.h's struct Process carries.
type Process_t struct {
	mu sync.Mutex

	Pid  defs.Pid_t
	Pgid defs.Pid_t

	Space      *vmspace.VMSpace
	MainThread *sched.Task

	Parent   *Process_t
	Children []*Process_t

	// exitMB is signaled once by Exit, delivering this process as a
	// zombie to whichever Wait call (by Parent, or by the registry's
	// reaper once Parent is nil) observes it.
	exitMB *sched.Mailbox

	Zombie   bool
	ExitCode int

	PendingSignals  uint32
	BlockedSignals  uint32
	SignalHandlers  [NSIG]SigHandler
	SignalStub      uintptr

	Ruid, Euid int
	Rgid, Egid int
	Cmask      int

	Fds [limits.OpenMax]*fd.Fd_t
	Cwd *fd.Cwd_t

	Acct accnt.Accnt_t

	// Note is this process's main thread's liveness/kill note, owned by
	// the Registry that created it. Kill uses it to tear the thread
	// down from outside the normal pending-signal path.
	Note *tinfo.Tnote_t
}

func newProcess(pid defs.Pid_t, space *vmspace.VMSpace) *Process_t {
	return &Process_t{
		Pid:    pid,
		Space:  space,
		exitMB: sched.NewMailbox(1),
	}
}

// lock/unlock expose the process's own mutex to the fd-table and
// signal-delivery methods in fd.go and signal.go, kept in this file
// since they touch the same struct's invariants.
func (p *Process_t) lock()   { p.mu.Lock() }
func (p *Process_t) unlock() { p.mu.Unlock() }
