package vm

import "page"

// KernelHalf returns the Pgtab this one shares its kernel mappings
// with (itself, if this is the kernel table).
func (pt *Pgtab) KernelHalf() *Pgtab {
	if pt.isKernel {
		return pt
	}
	return pt.kernel
}

// PageAtVA returns the page currently mapped at va, if any.
func (pt *Pgtab) PageAtVA(va uintptr) *page.Page {
	e, ok := pt.Lookup(va, false)
	if !ok || e == nil || !e.valid {
		return nil
	}
	return e.pg
}

// Downgrade clears Write and sets COW on the existing mapping at va in
// place, without touching the mapped page's refcount — the
// "demote to read-only and mark COW in both parents' PTEs" step
// vm_space_clone performs on the ORIGINAL side of a fork; the
// new space's side gets its own full Insert, which is where the
// refcount bump happens.
func (pt *Pgtab) Downgrade(va uintptr, addFlags Flags) {
	owner := pt.tableFor(va)
	owner.mu.Lock()
	defer owner.mu.Unlock()
	e, ok := owner.lookupNoAllocLocked(va)
	if !ok || e == nil || !e.valid {
		return
	}
	e.flags = (e.flags &^ Write) | addFlags
}
