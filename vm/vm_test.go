package vm

import (
	"testing"

	"defs"
	"page"
)

func mkPages(npages int) *page.Allocator {
	a := page.New(0, npages)
	buf := make([]byte, npages*page.Size)
	a.SetKVAMapper(func(pa page.PA) []byte {
		return buf[int(pa) : int(pa)+page.Size]
	})
	a.InitLow(npages * page.Size)
	a.InitHigh()
	return a
}

func TestCopyOutThenCopyInRoundTrips(t *testing.T) {
	pages := mkPages(16)
	kern := NewKernel(pages)
	pt := NewUser(pages, kern)

	const va = 0x1000
	pg := pages.AllocOne(page.AllocZero, page.TagAnon)
	if err := pt.Insert(pg, va, Read|Write|User); err != 0 {
		t.Fatalf("Insert: %v", err)
	}

	msg := []byte("hello, vm")
	if err := pt.CopyOut(va, msg); err != 0 {
		t.Fatalf("CopyOut: %v", err)
	}
	got := make([]byte, len(msg))
	if err := pt.CopyIn(va, got); err != 0 {
		t.Fatalf("CopyIn: %v", err)
	}
	if string(got) != string(msg) {
		t.Fatalf("round trip = %q, want %q", got, msg)
	}
}

func TestRemoveThenCopyFaults(t *testing.T) {
	pages := mkPages(16)
	kern := NewKernel(pages)
	pt := NewUser(pages, kern)

	const va = 0x2000
	pg := pages.AllocOne(page.AllocZero, page.TagAnon)
	pt.Insert(pg, va, Read|Write|User)
	pt.Remove(va)

	if err := pt.CopyOut(va, []byte("x")); err != -defs.EFAULT {
		t.Fatalf("CopyOut after Remove = %v, want EFAULT", err)
	}
	if err := pt.CopyIn(va, make([]byte, 1)); err != -defs.EFAULT {
		t.Fatalf("CopyIn after Remove = %v, want EFAULT", err)
	}
}

func TestCOWFaultCopiesAndDropsSharedRef(t *testing.T) {
	pages := mkPages(16)
	kern := NewKernel(pages)
	a := NewUser(pages, kern)

	const va = 0x3000
	shared := pages.AllocOne(page.AllocZero, page.TagAnon)
	copy(pages.KVA(shared), []byte("parent"))
	pages.Refup(shared) // a second space (simulated) also maps it
	a.Insert(shared, va, Read|User|COW)

	if rc := pages.Refcount(shared); rc != 2 {
		t.Fatalf("refcount before fault = %d, want 2", rc)
	}

	if code := a.Fault(va); code != 0 {
		t.Fatalf("Fault returned %d, want 0", code)
	}

	if rc := pages.Refcount(shared); rc != 1 {
		t.Fatalf("refcount after fault = %d, want 1 (this space's ref dropped)", rc)
	}

	var back [6]byte
	a.CopyIn(va, back[:])
	if string(back[:]) != "parent" {
		t.Fatalf("content after COW copy = %q, want %q", back, "parent")
	}

	e, _ := a.Lookup(va, false)
	if e.flags&COW != 0 {
		t.Fatal("COW flag still set after fault")
	}
	if e.flags&Write == 0 {
		t.Fatal("mapping not writable after COW fault")
	}
}

func TestFaultOnNonCOWIsAViolation(t *testing.T) {
	pages := mkPages(16)
	kern := NewKernel(pages)
	a := NewUser(pages, kern)

	const va = 0x4000
	pg := pages.AllocOne(page.AllocZero, page.TagAnon)
	a.Insert(pg, va, Read|User)

	if code := a.Fault(va); code == 0 {
		t.Fatal("Fault on a non-COW mapping should report a violation")
	}
}
