// Package arch isolates the two register, trap-frame, and
// atomic-primitive layouts this kernel core targets (ARMv7-A Cortex-A9
// MPCore and i386), grounded directly on
// arch/arm/include/arch/kernel/regs.h, kernel/include/kernel/trap.h,
// kernel/arch/i386/include/arch/i386/mmu.h, and
// kernel/arch/arm/core/arch_spinlock.c in the original C kernel source
// — none of which the Go teacher reimplements (its proc/ and apic/
// directories are empty module stubs). Everything else in this tree
// treats a trap frame through the Frame interface below rather than
// assuming either architecture's field layout.
package arch

// Trap cause ordinals, shared across both architectures by this
// kernel core's dispatch table (trap.Dispatch switches on these, not
// on a per-architecture enum). Values match T_* in
// kernel/include/kernel/trap.h.
const (
	TrapReset  = 0
	TrapUndef  = 1 // undefined instruction
	TrapSWI    = 2 // supervisor call
	TrapPAbort = 3 // prefetch abort
	TrapDAbort = 4 // data abort
	trapUnused = 5
	TrapIRQ    = 6
	TrapFIQ    = 7
)

// Frame abstracts a saved trap frame so trap.Dispatch, process.Fork,
// and process's signal-delivery path can all operate without a
// per-architecture type switch. Both ARM and i386 implementations
// below are plain exported structs, not opaque handles: an assembly
// entry stub (not written here, since this core never runs on real
// hardware) would need to address individual fields by offset the way
// kernel/include/kernel/trap.h's struct TrapFrame does.
type Frame interface {
	TrapNo() int
	PC() uint32
	SetPC(uint32)
	SP() uint32
	SetSP(uint32)
	Arg0() uint32     // r0 / eax: syscall argument 0 and return value register
	SetArg0(uint32)
	IsUserMode() bool
}

// ARMFrame is the ARMv7-A TrapFrame: aligned field order matching
// kernel/include/kernel/trap.h's struct TrapFrame exactly, since the
// source's assembly entry stub pushes registers in this order.
type ARMFrame struct {
	Trapno uint32
	Psr    uint32
	R0     uint32
	R1     uint32
	R2     uint32
	R3     uint32
	R4     uint32
	R5     uint32
	R6     uint32
	R7     uint32
	R8     uint32
	R9     uint32
	R10    uint32
	R11    uint32
	R12    uint32
	Sp     uint32
	Lr     uint32
	Pc     uint32
}

// PSR mode-field bits, matching arch/arm/include/arch/kernel/regs.h.
const (
	PSRModeMask = 0x1F
	PSRModeUsr  = 0x10
	PSRModeFIQ  = 0x11
	PSRModeIRQ  = 0x12
	PSRModeSVC  = 0x13
	PSRModeAbt  = 0x17
	PSRModeUnd  = 0x1B
	PSRModeSys  = 0x1F

	PSRThumb = 1 << 5
	PSRFIQMask = 1 << 6
	PSRIRQMask = 1 << 7
)

func (f *ARMFrame) TrapNo() int      { return int(f.Trapno) }
func (f *ARMFrame) PC() uint32       { return f.Pc }
func (f *ARMFrame) SetPC(v uint32)   { f.Pc = v }
func (f *ARMFrame) SP() uint32       { return f.Sp }
func (f *ARMFrame) SetSP(v uint32)   { f.Sp = v }
func (f *ARMFrame) Arg0() uint32     { return f.R0 }
func (f *ARMFrame) SetArg0(v uint32) { f.R0 = v }
func (f *ARMFrame) IsUserMode() bool { return f.Psr&PSRModeMask == PSRModeUsr }

var _ Frame = (*ARMFrame)(nil)

// I386Frame is the i386 trap frame: general-purpose registers, the
// saved segment selectors, and the privilege level encoded in Cs's low
// two bits (PL_MASK/PL_USER in kernel/arch/i386/include/arch/i386/mmu.h),
// i386 having no single PSR-style mode field.
type I386Frame struct {
	Trapno uint32

	Edi, Esi, Ebp, Esp, Ebx, Edx, Ecx, Eax uint32

	Eip    uint32
	Cs     uint32
	Eflags uint32

	// Present only when the trap crossed a privilege level, mirroring
	// the hardware's own conditional push.
	UserEsp uint32
	Ss      uint32
}

const (
	i386PLMask = 3
	i386PLUser = 3
)

func (f *I386Frame) TrapNo() int      { return int(f.Trapno) }
func (f *I386Frame) PC() uint32       { return f.Eip }
func (f *I386Frame) SetPC(v uint32)   { f.Eip = v }
func (f *I386Frame) SP() uint32 {
	if f.IsUserMode() {
		return f.UserEsp
	}
	return f.Esp
}
func (f *I386Frame) SetSP(v uint32) {
	if f.IsUserMode() {
		f.UserEsp = v
	} else {
		f.Esp = v
	}
}
func (f *I386Frame) Arg0() uint32     { return f.Eax }
func (f *I386Frame) SetArg0(v uint32) { f.Eax = v }
func (f *I386Frame) IsUserMode() bool { return f.Cs&i386PLMask == i386PLUser }

var _ Frame = (*I386Frame)(nil)
