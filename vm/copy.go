package vm

import (
	"defs"
	"page"
)

// CopyOut writes src into the address space starting at va, walking
// the destination page table a page at a time and returning -EFAULT
// the moment an unmapped page is hit.
func (pt *Pgtab) CopyOut(va uintptr, src []byte) defs.Err_t {
	return pt.copyPageByPage(va, src, true)
}

// CopyIn reads len(dst) bytes starting at va into dst, page by page,
// the symmetric counterpart of CopyOut.
func (pt *Pgtab) CopyIn(va uintptr, dst []byte) defs.Err_t {
	return pt.copyPageByPage(va, dst, false)
}

func (pt *Pgtab) copyPageByPage(va uintptr, buf []byte, toMem bool) defs.Err_t {
	off := 0
	for off < len(buf) {
		pageVA := va + uintptr(off)
		base := pageVA &^ (page.Size - 1)
		within := int(pageVA - base)

		e, ok := pt.Lookup(base, false)
		if !ok {
			return -defs.ENOMEM
		}
		if e == nil || !e.valid {
			return -defs.EFAULT
		}
		n := page.Size - within
		if rem := len(buf) - off; n > rem {
			n = rem
		}

		kva := pt.pages.KVA(e.pg)[within : within+n]
		if toMem {
			copy(kva, buf[off:off+n])
		} else {
			copy(buf[off:off+n], kva)
		}
		off += n
	}
	return 0
}

// RangeAlloc allocates one zeroed page per page in [va, va+n), inserts
// each with flags, and rolls back everything allocated so far if any
// insert fails partway through.
func (pt *Pgtab) RangeAlloc(va uintptr, n int, flags Flags) defs.Err_t {
	start := va &^ (page.Size - 1)
	end := (va + uintptr(n) + page.Size - 1) &^ (page.Size - 1)

	var mapped []uintptr
	for a := start; a < end; a += page.Size {
		pg := pt.pages.AllocOne(page.AllocZero, page.TagAnon)
		if pg == nil {
			pt.rangeFree(mapped)
			return -defs.ENOMEM
		}
		if err := pt.Insert(pg, a, flags); err != 0 {
			pt.pages.FreeOne(pg)
			pt.rangeFree(mapped)
			return err
		}
		pt.pages.FreeOne(pg) // the mapping now holds the page's only reference
		mapped = append(mapped, a)
	}
	return 0
}

// RangeFree unmaps and frees every page in [va, va+n).
func (pt *Pgtab) RangeFree(va uintptr, n int) {
	start := va &^ (page.Size - 1)
	end := (va + uintptr(n) + page.Size - 1) &^ (page.Size - 1)
	for a := start; a < end; a += page.Size {
		pt.Remove(a)
	}
}

func (pt *Pgtab) rangeFree(vas []uintptr) {
	for _, a := range vas {
		pt.Remove(a)
	}
}
