package vmspace

import (
	"page"
	"vm"
)

// Clone creates a peer address space from s: for each region, a
// matching region is created in the destination. If share is false
// (the fork path), every mapped page's PTE in both spaces is demoted
// to read-only and marked COW, with the shared page's refcount bumped
// once per new mapping (vm_space_clone). If share is true, both
// spaces map the same pages with the original permissions (reserved
// for a future same-process multi-threading path; not exercised by
// fork today).
func (s *VMSpace) Clone(share bool) *VMSpace {
	s.mu.Lock()
	defer s.mu.Unlock()

	dst := Create(s.pages, s.Pgtab.KernelHalf())

	for _, r := range s.regions {
		flags := r.Flags
		if !share {
			flags = (flags &^ vm.Write) | vm.COW
		}
		for va := r.Start; va < r.end(); va += page.Size {
			pg := s.Pgtab.PageAtVA(va)
			if pg == nil {
				continue
			}
			if !share {
				s.Pgtab.Downgrade(va, vm.COW)
			}
			dst.Pgtab.Insert(pg, va, flags)
		}
		dst.insertLocked(len(dst.regions), Region{Start: r.Start, Length: r.Length, Flags: flags})
	}
	return dst
}
