// Package vm implements the virtual-memory engine: the kernel map, a
// per-process two-level page table, page insert/remove/lookup, range
// alloc/free, copy-in/copy-out, the copy-on-write fault handler, and
// user-pointer validation. It is grounded on vm_legacy/as.go
// (Vm_t: a mutex-guarded Pmap_t plus the COW-aware
// Userdmap8_inner fault path) generalized from its flat
// x86-64 PTE word to a two-level ARMv7-A short-descriptor
// layout with a software sidecar for flags hardware has no bit for.
//
// The sidecar in the distilled source lives at a fixed offset past the
// hardware descriptor array in the same page; this package instead
// keeps one Go struct per PTE that holds both the physical address and
// the software flags together, since nothing here ever walks a real
// ARM MMU and a combined struct is the plain idiomatic choice — the
// two-array-with-fixed-offset layout is recorded as a documented
// simplification, not dropped functionality: flags not representable
// by hardware (COW, PAGE) still round-trip exactly as the sidecar word
// would have carried them.
package vm

import (
	"sync"

	"page"
)

// Address-space layout constants.
const (
	// L1Entries/L2Entries mirror ARMv7-A short-descriptor geometry: a
	// first-level table of 4096 entries each covering 1MiB, refined by
	// a second-level (coarse) table of 256 4KiB-page entries.
	L1Entries = 4096
	L2Entries = 256

	sectionShift = 20 // bits covered by one L1 entry (1 MiB)

	// VirtKernelBase is the first virtual address reserved for the
	// kernel map; every Pgtab shares the same L2 tables at or above it.
	VirtKernelBase = 0xC0000000
)

// Flags describes a mapping's permissions and metadata: an
// architecture-opaque value exposing uniform predicates and mutators.
type Flags uint32

const (
	Read Flags = 1 << iota
	Write
	Exec
	User
	NoCache
	COW
	// PageFlag distinguishes a managed, refcounted page mapping from a
	// fixed device mapping.
	PageFlag
)

type pte struct {
	valid bool
	pa    page.PA
	flags Flags
	pg    *page.Page // non-nil iff PageFlag is set
}

type l2table struct {
	entries [L2Entries]pte
}

// Pgtab is one address space's page table plus the lock guarding its
// region-independent PTE operations: per-PTE operations use the
// lock of the containing space.
type Pgtab struct {
	mu sync.Mutex

	l1 [L1Entries]*l2table

	pages *page.Allocator

	// kernel, if non-nil, is the shared kernel half: L1 indices at or
	// above VirtKernelBase>>sectionShift are looked up there instead of
	// in l1, so every process Pgtab shares one kernel mapping.
	kernel *Pgtab
	isKernel bool
}

// NewUser creates a process page table sharing kern's kernel half.
func NewUser(pages *page.Allocator, kern *Pgtab) *Pgtab {
	return &Pgtab{pages: pages, kernel: kern}
}

// NewKernel creates the one kernel map, empty; callers populate it via
// Insert for RAM/device windows before any NewUser table can rely on
// it being complete.
func NewKernel(pages *page.Allocator) *Pgtab {
	return &Pgtab{pages: pages, isKernel: true}
}

func l1Index(va uintptr) int { return int(va >> sectionShift) }
func l2Index(va uintptr) int { return int((va >> page.Shift) & (L2Entries - 1)) }

func kernelSplit() int { return VirtKernelBase >> sectionShift }

// tableFor routes a VA to the Pgtab that actually owns its L1 slot:
// the kernel table for kernel VAs (via pt.kernel, or pt itself if pt
// is the kernel table), pt itself otherwise. It also enforces the
// defensive invariant that a user VA never appears in the kernel
// table and vice versa.
func (pt *Pgtab) tableFor(va uintptr) *Pgtab {
	isKernelVA := l1Index(va) >= kernelSplit()
	if pt.isKernel != isKernelVA && pt.kernel == nil {
		panic("vm: kernel/user VA mismatch with no shared kernel table")
	}
	if isKernelVA {
		if pt.isKernel {
			return pt
		}
		return pt.kernel
	}
	if pt.isKernel {
		panic("vm: user VA looked up in the kernel page table")
	}
	return pt
}

// Lookup walks to the PTE covering va, allocating the second-level
// table on alloc if missing. It returns (nil, ok=true) only when
// alloc is false and no table exists yet for va's section — a true
// "unmapped" result, distinct from allocation failure (ok=false).
func (pt *Pgtab) Lookup(va uintptr, alloc bool) (entry *pte, ok bool) {
	owner := pt.tableFor(va)
	owner.mu.Lock()
	defer owner.mu.Unlock()

	i1 := l1Index(va)
	l2 := owner.l1[i1]
	if l2 == nil {
		if !alloc {
			return nil, true
		}
		blk := owner.pages.AllocOne(page.AllocZero, page.TagPgtab)
		if blk == nil {
			return nil, false
		}
		l2 = new(l2table)
		owner.l1[i1] = l2
	}
	return &l2.entries[l2Index(va)], true
}
