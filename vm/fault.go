package vm

import "page"

// Fault handles a user page fault at va. If the PTE is
// valid and COW, it allocates a fresh page, copies the old content,
// drops a reference on the shared old page, installs the new page R/W
// (clearing COW), and returns 0. No TLB is modelled, so nothing is
// invalidated.
// Any other case — unmapped, or valid-but-not-COW (a genuine
// protection violation) — returns non-zero so the caller queues
// SIGSEGV.
func (pt *Pgtab) Fault(va uintptr) int {
	owner := pt.tableFor(va)
	owner.mu.Lock()
	e, ok := owner.lookupNoAllocLocked(va)
	if !ok || e == nil || !e.valid || e.flags&COW == 0 {
		owner.mu.Unlock()
		return 1
	}
	oldPg := e.pg
	oldFlags := e.flags
	owner.mu.Unlock()

	newPg := owner.pages.AllocOne(0, page.TagAnon)
	if newPg == nil {
		return 1
	}
	copy(owner.pages.KVA(newPg), owner.pages.KVA(oldPg))

	owner.mu.Lock()
	*e = pte{
		valid: true,
		pa:    owner.pages.PA(newPg),
		flags: (oldFlags &^ COW) | Write | PageFlag,
		pg:    newPg,
	}
	owner.mu.Unlock()

	owner.pages.FreeOne(oldPg) // drop the reference this mapping held
	return 0
}
