package vm

import (
	"defs"
	"limits"
	"page"
)

// CheckPtr verifies that [va, va+n) is entirely covered by mappings
// carrying at least USER and the requested permission flags
// (vm_user_check_ptr/buf).
func (pt *Pgtab) CheckPtr(va uintptr, n int, want Flags) defs.Err_t {
	if n == 0 {
		return 0
	}
	start := va &^ (page.Size - 1)
	end := (va + uintptr(n) + page.Size - 1) &^ (page.Size - 1)
	for a := start; a < end; a += page.Size {
		e, ok := pt.Lookup(a, false)
		if !ok {
			return -defs.ENOMEM
		}
		if e == nil || !e.valid || e.flags&User == 0 || e.flags&want != want {
			return -defs.EFAULT
		}
	}
	return 0
}

// CheckBuf is CheckPtr under the name used for read/write buffer
// arguments at the syscall boundary.
func (pt *Pgtab) CheckBuf(va uintptr, n int, want Flags) defs.Err_t {
	return pt.CheckPtr(va, n, want)
}

// CheckStr scans up to limit bytes starting at va for a NUL
// terminator, verifying every page touched along the way carries
// USER|Read. It returns the string's length (excluding the NUL) on
// success.
func (pt *Pgtab) CheckStr(va uintptr, limit int) (int, defs.Err_t) {
	for i := 0; i < limit; i++ {
		a := va + uintptr(i)
		base := a &^ (page.Size - 1)
		e, ok := pt.Lookup(base, false)
		if !ok {
			return 0, -defs.ENOMEM
		}
		if e == nil || !e.valid || e.flags&User == 0 || e.flags&Read == 0 {
			return 0, -defs.EFAULT
		}
		within := int(a - base)
		if pt.pages.KVA(e.pg)[within] == 0 {
			return i, 0
		}
	}
	return 0, -defs.EFAULT
}

// CheckArgs walks a NUL-terminated array of pointers at va (an argv-
// or envp-style vector), verifying each entry is itself a valid,
// NUL-terminated string, with the cumulative length of every string
// bounded by limits.ArgMax.
func (pt *Pgtab) CheckArgs(va uintptr, ptrSize int) (count int, err defs.Err_t) {
	total := 0
	for {
		var ptrBuf [8]byte
		if e := pt.CopyIn(va+uintptr(count*ptrSize), ptrBuf[:ptrSize]); e != 0 {
			return 0, e
		}
		p := decodePtr(ptrBuf[:ptrSize])
		if p == 0 {
			return count, 0
		}
		n, e := pt.CheckStr(p, limits.ArgMax-total)
		if e != 0 {
			return 0, e
		}
		total += n + 1
		if total > limits.ArgMax {
			return 0, -defs.E2BIG
		}
		count++
	}
}

func decodePtr(b []byte) uintptr {
	var v uintptr
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uintptr(b[i])
	}
	return v
}
