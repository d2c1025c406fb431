// Signal generation and delivery: setting a pending bit on the target
// process (signal_generate), and building/restoring the saved-register
// frame on the user stack around a handler invocation
// (arch_signal_prepare/arch_signal_return in
// kernel/arch/arm/process/arch_signal.c). Signal numbers are named
// from golang.org/x/sys/unix's SIG* constants rather than a
// hand-rolled table, since this core's ABI intentionally matches
// POSIX numbering.
package process

import (
	"encoding/binary"

	"arch"
	"defs"
	"golang.org/x/sys/unix"
	"sched"
)

// Generate sets sig pending on p and, if the signal is neither
// blocked nor ignored, interrupts p's main thread so the next trap
// return delivers it (signal_generate). SIGKILL can neither be
// blocked nor ignored and does not wait for a trap return at all: it
// goes straight through Kill, the same immediate thread-teardown path
// k_task_kill uses.
func Generate(p *Process_t, sig int) defs.Err_t {
	if sig <= 0 || sig >= NSIG {
		return -defs.EINVAL
	}
	if sig == SIGKILL {
		Kill(p)
		return 0
	}
	p.lock()
	h := p.SignalHandlers[sig]
	blocked := p.BlockedSignals&(1<<uint(sig)) != 0
	if h != SigIgn {
		p.PendingSignals |= 1 << uint(sig)
	}
	p.unlock()

	if h != SigIgn && !blocked && p.MainThread != nil {
		p.MainThread.Interrupt()
	}
	return 0
}

// nextPending returns the lowest-numbered deliverable pending
// signal, or 0. It takes p's lock itself.
func (p *Process_t) nextPending() int {
	p.lock()
	defer p.unlock()
	deliverable := p.PendingSignals &^ p.BlockedSignals
	for sig := 1; sig < NSIG; sig++ {
		if deliverable&(1<<uint(sig)) != 0 {
			return sig
		}
	}
	return 0
}

func (p *Process_t) clearPending(sig int) {
	p.lock()
	p.PendingSignals &^= 1 << uint(sig)
	p.unlock()
}

// frameLayout is the wire shape staged into a Registry frame buffer
// before arch.Frame-specific fields are copied out: the saved r0, sp,
// lr/eflags, and pc a handler must be able to restore on sigreturn,
// matching struct SignalFrame's fields in arch_signal.c.
type frameLayout struct {
	savedArg0 uint32
	savedSP   uint32
	savedLink uint32 // lr (ARM) or eflags (i386)
	savedPC   uint32
}

func (fl frameLayout) marshal(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], fl.savedArg0)
	binary.LittleEndian.PutUint32(buf[4:8], fl.savedSP)
	binary.LittleEndian.PutUint32(buf[8:12], fl.savedLink)
	binary.LittleEndian.PutUint32(buf[12:16], fl.savedPC)
}

func unmarshalFrame(buf []byte) frameLayout {
	return frameLayout{
		savedArg0: binary.LittleEndian.Uint32(buf[0:4]),
		savedSP:   binary.LittleEndian.Uint32(buf[4:8]),
		savedLink: binary.LittleEndian.Uint32(buf[8:12]),
		savedPC:   binary.LittleEndian.Uint32(buf[12:16]),
	}
}

const frameWireSize = 16

// DeliverPending checks p for a deliverable signal and, if one is
// pending, diverts f to run p's handler: it stages a frameLayout onto
// the user stack below the current sp, points pc at SignalStub (a
// trampoline that calls the handler then executes a sigreturn
// syscall) with arg0 and sp set to the staged frame's address, and
// leaves a way back via Return. Called once
// per user-mode trap return, mirroring trap()'s
// "signal_deliver_pending()" call grounded in kernel/trap.c.
func DeliverPending(self *sched.Task, p *Process_t, reg *Registry, f arch.Frame) defs.Err_t {
	sig := p.nextPending()
	if sig == 0 {
		return 0
	}

	handler := p.SignalHandlers[sig]
	if handler == SigDefault {
		// No installed handler: default action for every signal this
		// core generates (SIGSEGV, SIGILL, SIGKILL-by-convention) is
		// termination, left to the caller (trap/process glue) to act
		// on via the returned signal number.
		p.clearPending(sig)
		return defs.Err_t(-sig)
	}

	stage := reg.stageFrame()
	defer reg.unstageFrame(stage)

	fl := frameLayout{savedArg0: f.Arg0(), savedSP: f.SP(), savedPC: f.PC()}
	fl.marshal(stage)

	ctxVA := f.SP() - frameWireSize
	if err := p.Space.Pgtab.CopyOut(uintptr(ctxVA), stage[:frameWireSize]); err != 0 {
		return err
	}

	f.SetArg0(ctxVA)
	f.SetSP(ctxVA)
	f.SetPC(uint32(p.SignalStub))

	p.clearPending(sig)
	return 0
}

// Return restores the trap frame saved by a prior DeliverPending, the
// sigreturn side of arch_signal_return: it refuses to restore a frame
// found while not in user mode, the same PSR_M_USR/CS-privilege check
// arch_signal_return makes before trusting user-supplied register
// values.
func Return(p *Process_t, ctxVA uint32, f arch.Frame) (uint32, defs.Err_t) {
	if !f.IsUserMode() {
		return 0, -defs.EFAULT
	}

	buf := make([]byte, frameWireSize)
	if err := p.Space.Pgtab.CopyIn(uintptr(ctxVA), buf); err != 0 {
		return 0, err
	}
	fl := unmarshalFrame(buf)

	f.SetSP(fl.savedSP)
	f.SetPC(fl.savedPC)
	return fl.savedArg0, 0
}

// Common signal numbers, named from unix.SIG* rather than redefined
// locally.
var (
	SIGHUP  = int(unix.SIGHUP)
	SIGINT  = int(unix.SIGINT)
	SIGKILL = int(unix.SIGKILL)
	SIGSEGV = int(unix.SIGSEGV)
	SIGILL  = int(unix.SIGILL)
	SIGCHLD = int(unix.SIGCHLD)
)
