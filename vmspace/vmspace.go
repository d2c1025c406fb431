// Package vmspace implements the VMSpace manager: the
// sorted, non-overlapping region list over a process's address space,
// region insertion with gap search and coalescing, and fork-time
// cloning (shared or copy-on-write). It is grounded on
// Vm_t.Vmregion (vm_legacy/as.go), which plays the same role —
// a region list carried alongside the page table — generalized from
// its single flat region type to an explicit
// {start, length, flags} model with VMSpace owning the vm.Pgtab
// directly rather than delegating PTE operations to a separate
// embedded struct.
package vmspace

import (
	"sort"
	"sync"

	"defs"
	"page"
	"vm"
)

// RegionFlags mirror vm.Flags but are named separately because a
// region also carries flags (NOCACHE) that only matter at mapping
// time, not as a live PTE predicate.
type RegionFlags = vm.Flags

// Region is one {start, length, flags} entry in a VMSpace's sorted
// list.
type Region struct {
	Start  uintptr
	Length int
	Flags  RegionFlags
}

func (r Region) end() uintptr { return r.Start + uintptr(r.Length) }

// VMSpace owns a page-table root and its region list.
type VMSpace struct {
	mu      sync.Mutex
	Pgtab   *vm.Pgtab
	pages   *page.Allocator
	regions []Region // sorted by Start, non-overlapping
}

// Create builds a fresh, empty address space sharing kern's kernel
// half (vm_space_create).
func Create(pages *page.Allocator, kern *vm.Pgtab) *VMSpace {
	return &VMSpace{
		Pgtab: vm.NewUser(pages, kern),
		pages: pages,
	}
}

// Map finds the first gap of size n at or after hint (never crossing
// vm.VirtKernelBase), allocates and inserts zeroed pages there with
// flags, and records/coalesces the region, returning the chosen VA
// (vmspace_map).
func (s *VMSpace) Map(hint uintptr, n int, flags RegionFlags) (uintptr, defs.Err_t) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hint = roundup(hint)
	n = roundupInt(n)

	va, i := s.findGapLocked(hint, n)
	if va+uintptr(n) > vm.VirtKernelBase {
		return 0, -defs.ENOMEM
	}

	if err := s.Pgtab.RangeAlloc(va, n, flags); err != 0 {
		return 0, err
	}

	s.insertLocked(i, Region{Start: va, Length: n, Flags: flags})
	return va, 0
}

func (s *VMSpace) findGapLocked(hint uintptr, n int) (uintptr, int) {
	cand := hint
	for i, r := range s.regions {
		if cand+uintptr(n) <= r.Start {
			return cand, i
		}
		if cand < r.end() {
			cand = r.end()
		}
	}
	return cand, len(s.regions)
}

// insertLocked inserts r at index i, coalescing with neighbors that
// share identical flags and abut exactly.
func (s *VMSpace) insertLocked(i int, r Region) {
	s.regions = append(s.regions, Region{})
	copy(s.regions[i+1:], s.regions[i:])
	s.regions[i] = r

	// coalesce with following neighbor
	if i+1 < len(s.regions) {
		nxt := s.regions[i+1]
		if nxt.Flags == r.Flags && r.end() == nxt.Start {
			s.regions[i].Length += nxt.Length
			s.regions = append(s.regions[:i+1], s.regions[i+2:]...)
		}
	}
	// coalesce with preceding neighbor
	if i > 0 {
		prev := s.regions[i-1]
		if prev.Flags == s.regions[i].Flags && prev.end() == s.regions[i].Start {
			s.regions[i-1].Length += s.regions[i].Length
			s.regions = append(s.regions[:i], s.regions[i+1:]...)
		}
	}
}

// Regions returns a snapshot of the current region list, sorted by
// Start.
func (s *VMSpace) Regions() []Region {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Region, len(s.regions))
	copy(out, s.regions)
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// Destroy walks the region list, freeing every mapped page, then
// abandons the page table for garbage collection (vm_space_destroy:
// unlike a C pgdir, this arena needs no explicit free call since Go
// reclaims the Pgtab's backing maps once unreferenced).
func (s *VMSpace) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.regions {
		s.Pgtab.RangeFree(r.Start, r.Length)
	}
	s.regions = nil
}

func roundup(va uintptr) uintptr {
	return (va + page.Size - 1) &^ (page.Size - 1)
}

func roundupInt(n int) int {
	return (n + page.Size - 1) &^ (page.Size - 1)
}
