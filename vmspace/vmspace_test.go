package vmspace

import (
	"testing"

	"page"
	"vm"
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

func TestMapReturnsDistinctNonOverlappingRegions(t *testing.T) {
	pages := mkPages(64)
	kern := vm.NewKernel(pages)
	s := Create(pages, kern)

	a, err := s.Map(0x1000, page.Size, vm.Read|vm.Write|vm.User)
	if err != 0 {
		t.Fatalf("first Map: %v", err)
	}
	b, err := s.Map(0x1000, page.Size, vm.Read|vm.Write|vm.User)
	if err != 0 {
		t.Fatalf("second Map: %v", err)
	}
	if a == b {
		t.Fatalf("two Map calls at the same hint returned the same VA %#x", a)
	}
	if b < a+page.Size {
		t.Fatalf("second region %#x overlaps first [%#x,%#x)", b, a, a+page.Size)
	}
}

func TestCOWDivergenceAfterClone(t *testing.T) {
	pages := mkPages(64)
	kern := vm.NewKernel(pages)
	parent := Create(pages, kern)

	va, err := parent.Map(0x10000, page.Size, vm.Read|vm.Write|vm.User)
	if err != 0 {
		t.Fatalf("Map: %v", err)
	}
	parent.Pgtab.CopyOut(va, []byte{'a'})

	child := parent.Clone(false)

	// writing through the parent's now-read-only COW mapping must
	// fault and diverge, not silently corrupt the child's page.
	if code := parent.Pgtab.Fault(va); code != 0 {
		t.Fatalf("parent COW fault: code %d", code)
	}
	parent.Pgtab.CopyOut(va, []byte{'a'})

	if code := child.Pgtab.Fault(va); code != 0 {
		t.Fatalf("child COW fault: code %d", code)
	}
	child.Pgtab.CopyOut(va, []byte{'b'})

	var pb, cb [1]byte
	parent.Pgtab.CopyIn(va, pb[:])
	child.Pgtab.CopyIn(va, cb[:])

	if pb[0] != 'a' {
		t.Fatalf("parent byte = %q, want 'a'", pb[0])
	}
	if cb[0] != 'b' {
		t.Fatalf("child byte = %q, want 'b'", cb[0])
	}
}
