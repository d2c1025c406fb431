package vm

import (
	"defs"
	"page"
)

// Insert maps pg at va with the given flags: the page's
// refcount is bumped first (so replacing an existing mapping of the
// same page with different flags never transiently drops it to zero),
// then any existing mapping at va is evicted, then the new PTE is
// written with PageFlag set.
func (pt *Pgtab) Insert(pg *page.Page, va uintptr, flags Flags) defs.Err_t {
	pt.pages.Refup(pg)

	e, ok := pt.Lookup(va, true)
	if !ok {
		pt.pages.FreeOne(pg) // undo the Refup; out of memory for the table
		return -defs.ENOMEM
	}

	owner := pt.tableFor(va)
	owner.mu.Lock()
	wasMapped := e.valid && e.pg != nil
	owner.mu.Unlock()
	if wasMapped {
		pt.removeLocked(va)
	}

	owner.mu.Lock()
	e.valid = true
	e.pa = owner.pages.PA(pg)
	e.flags = flags | PageFlag
	e.pg = pg
	owner.mu.Unlock()
	return 0
}

// Remove clears any mapping at va, dropping the mapped page's refcount
// and freeing it on last reference.
func (pt *Pgtab) Remove(va uintptr) {
	pt.removeLocked(va)
}

func (pt *Pgtab) removeLocked(va uintptr) {
	owner := pt.tableFor(va)
	owner.mu.Lock()
	e, ok := owner.lookupNoAllocLocked(va)
	if !ok || e == nil || !e.valid {
		owner.mu.Unlock()
		return
	}
	pg := e.pg
	*e = pte{}
	owner.mu.Unlock()

	if pg != nil {
		owner.pages.FreeOne(pg)
	}
}

// lookupNoAllocLocked is Lookup(va, false) for a caller that already
// holds owner.mu (Lookup would deadlock re-acquiring it).
func (pt *Pgtab) lookupNoAllocLocked(va uintptr) (*pte, bool) {
	i1 := l1Index(va)
	l2 := pt.l1[i1]
	if l2 == nil {
		return nil, true
	}
	return &l2.entries[l2Index(va)], true
}
