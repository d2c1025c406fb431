package process

import (
	"defs"
	"limits"
	"sched"
	"vmspace"
)

// Segment is one PT_LOAD-equivalent range the caller has already read
// from an executable image; loading the image itself (ELF parsing,
// section/segment selection) is left to the caller, since the ELF
// format beyond a flat load-and-jump is out of scope for this core.
type Segment struct {
	VA    uintptr
	Flags vmspace.RegionFlags
	Data  []byte
}

// stackPages bounds the fixed-size user stack region Exec maps fresh
// for every new image, mirroring VIRT_USTACK_TOP/USTACK_SIZE in
// process/exec.c.
const stackPages = 8

// maxArgv bounds argument count, matching copy_args's fixed oargs[32].
const maxArgv = 32

// Exec replaces p's address space in place: the old VMSpace is
// destroyed (process_exec's old_vm teardown), a fresh one is built
// from reg's shared page allocator and kernel half, every segment is
// mapped and copied in, and argv is laid out on a freshly mapped user
// stack (copy_args). It returns the new stack pointer; the caller
// (which already knows the image's entry point) installs both that
// and the stack pointer into the resuming thread's trap frame.
func Exec(self *sched.Task, p *Process_t, reg *Registry, segs []Segment, argv []string) (sp uintptr, err defs.Err_t) {
	if len(argv) > maxArgv {
		return 0, -defs.E2BIG
	}
	if totalArgBytes(argv) > limits.ArgMax {
		return 0, -defs.E2BIG
	}

	p.CloseOnExec(self)

	old := p.Space
	space := vmspace.Create(reg.pages, reg.kernel)

	for _, s := range segs {
		n := (len(s.Data) + 4095) / 4096
		if n == 0 {
			n = 1
		}
		va, e := space.Map(s.VA, n, s.Flags)
		if e != 0 {
			space.Destroy()
			return 0, e
		}
		if e := space.Pgtab.CopyOut(va, s.Data); e != 0 {
			space.Destroy()
			return 0, e
		}
	}

	usp, e := copyArgs(space, argv)
	if e != 0 {
		space.Destroy()
		return 0, e
	}

	old.Destroy()
	p.Space = space
	return usp, 0
}

// copyArgs lays argv out at the top of a freshly mapped stack region,
// highest address first, then writes the pointer table below it —
// copy_args's two-pass layout (strings, then the argv[] array itself).
func copyArgs(space *vmspace.VMSpace, argv []string) (uintptr, defs.Err_t) {
	sp, err := space.Map(0, stackPages, vmspace.RegionFlags(0))
	if err != 0 {
		return 0, err
	}
	top := sp + uintptr(stackPages)*4096
	usp := top

	offsets := make([]uint32, len(argv))
	for i, a := range argv {
		n := len(a) + 1
		usp -= uintptr(roundUp4(n))
		if usp < sp {
			return 0, -defs.E2BIG
		}
		if err := space.Pgtab.CopyOut(usp, append([]byte(a), 0)); err != 0 {
			return 0, err
		}
		offsets[i] = uint32(usp)
	}

	tblSize := (len(argv) + 1) * 4
	usp -= uintptr(roundUp4(tblSize))
	if usp < sp {
		return 0, -defs.E2BIG
	}
	tbl := make([]byte, tblSize)
	for i, off := range offsets {
		tbl[i*4] = byte(off)
		tbl[i*4+1] = byte(off >> 8)
		tbl[i*4+2] = byte(off >> 16)
		tbl[i*4+3] = byte(off >> 24)
	}
	if err := space.Pgtab.CopyOut(usp, tbl); err != 0 {
		return 0, err
	}

	return usp, 0
}

func totalArgBytes(argv []string) int {
	n := 0
	for _, a := range argv {
		n += len(a) + 1
	}
	return n
}

func roundUp4(n int) int {
	return (n + 3) &^ 3
}
