// Package trap implements the single dispatch entry every synchronous
// and asynchronous exception funnels through, grounded on
// kernel/trap.c's trap(struct TrapFrame *tf): one switch on trap
// cause, an abort path that tries copy-on-write fault resolution
// before giving up, a syscall path, and an IRQ path. The architecture
// detail trap.c still has to touch directly (PSR/CR mode bits, the
// register layout) is isolated behind arch.Frame so this file reads
// the same for both targets.
package trap

import (
	"fmt"

	"arch"
	"irq"
	"vmspace"
)

// Cause classifies why Dispatch was entered, independent of
// architecture-specific trap numbers (arch.TrapSWI and friends feed
// into this, not the reverse).
type Cause int

const (
	CauseAbort Cause = iota
	CauseSyscall
	CauseIRQ
	CauseUndef
	CauseUnknown
)

func causeOf(f arch.Frame) Cause {
	switch f.TrapNo() {
	case arch.TrapDAbort, arch.TrapPAbort:
		return CauseAbort
	case arch.TrapSWI:
		return CauseSyscall
	case arch.TrapIRQ:
		return CauseIRQ
	case arch.TrapUndef:
		return CauseUndef
	default:
		return CauseUnknown
	}
}

// FaultInfo carries the architecture-neutral abort detail Dispatch's
// caller needs to decide between COW resolution and SIGSEGV, standing
// in for the CP15 DFAR/DFSR or i386 CR2/error-code pair a real port
// would read directly.
type FaultInfo struct {
	Addr      uintptr
	Write     bool
	Present   bool // true: protection fault (SEGV_ACCERR); false: no mapping (SEGV_MAPERR)
}

// Hooks are the callbacks Dispatch needs from the rest of the kernel,
// kept as fields rather than package-level globals so tests can supply
// fakes without a singleton.
type Hooks struct {
	// Fault reads the current abort's address and kind; only called
	// for CauseAbort.
	Fault func(f arch.Frame) FaultInfo

	// Space resolves the faulting address space for a user-mode abort.
	Space func(f arch.Frame) *vmspace.VMSpace

	// Syscall dispatches a supervisor call and returns the value to
	// place in the frame's return-value register (sys_dispatch).
	Syscall func(f arch.Frame) uint32

	// IRQLine reports which interrupt line triggered a CauseIRQ trap,
	// and IRQs dispatches it (interrupt_dispatch).
	IRQLine func(f arch.Frame) int
	IRQs    *irq.Table

	// Segv is invoked when an abort cannot be resolved as a COW fault;
	// SEGV_MAPERR/SEGV_ACCERR is encoded in FaultInfo.Present.
	Segv func(f arch.Frame, fi FaultInfo)

	// Illop is invoked for CauseUndef in user mode (SIGILL delivery).
	Illop func(f arch.Frame)

	// Code reads n instruction bytes at pc for a kernel-mode undefined-
	// instruction panic's diagnostic message; optional, since a test
	// harness has no real text segment to read from.
	Code func(pc uint32, n int) []byte
}

func decodeAt(f arch.Frame, h Hooks) string {
	if h.Code == nil {
		return "<no code reader>"
	}
	if _, isARM := f.(*arch.ARMFrame); !isARM {
		return "<decode only implemented for ARM>"
	}
	return DecodeARM(h.Code(f.PC(), 4))
}

// Dispatch is the architecture-neutral body of trap(): it classifies
// the frame, handles what it can locally, and otherwise calls into the
// supplied hooks. A kernel-mode abort is unconditionally fatal, just
// as trap_handle_abort prints the frame and panics rather than trying
// to recover.
func Dispatch(f arch.Frame, h Hooks) {
	switch causeOf(f) {
	case CauseAbort:
		dispatchAbort(f, h)

	case CauseSyscall:
		f.SetArg0(h.Syscall(f))

	case CauseIRQ:
		line := h.IRQLine(f)
		if h.IRQs.Handle(line) {
			// Line still asserted by another hook; leave it masked,
			// matching interrupt_dispatch's conditional re-unmask.
		}

	case CauseUndef:
		if f.IsUserMode() {
			h.Illop(f)
			return
		}
		panic(fmt.Sprintf("trap: undefined instruction in kernel mode at pc=%#x: %s",
			f.PC(), decodeAt(f, h)))

	default:
		panic(fmt.Sprintf("trap: unhandled trap %d at pc=%#x", f.TrapNo(), f.PC()))
	}
}

func dispatchAbort(f arch.Frame, h Hooks) {
	fi := h.Fault(f)

	if !f.IsUserMode() {
		panic(fmt.Sprintf("trap: kernel fault va=%#x write=%v pc=%#x", fi.Addr, fi.Write, f.PC()))
	}

	space := h.Space(f)
	if space != nil {
		if space.Pgtab.Fault(fi.Addr) == 0 {
			return
		}
	}

	h.Segv(f, fi)
}
