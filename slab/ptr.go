package slab

import "unsafe"

// uintptrDiff returns the byte offset of b from a and whether b is at
// or after a, the way Userdmap8_inner's callers in the original vm
// package compare pointers into a mapped page via unsafe.Pointer
// arithmetic.
func uintptrDiff(b, a *byte) (int, bool) {
	pb := uintptr(unsafe.Pointer(b))
	pa := uintptr(unsafe.Pointer(a))
	if pb < pa {
		return 0, false
	}
	return int(pb - pa), true
}
