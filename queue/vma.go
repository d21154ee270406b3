package queue

import "biscuit32/config"

/// VME is a reserved, page-aligned user virtual memory region
/// [Start, End). Pages inside it are allocated lazily on first fault
/// (spec.md §3/§4.3).
type VME struct {
	Start, End uint32
	next, prev *VME
}

/// Size returns the byte length of the region.
func (v *VME) Size() uint32 { return v.End - v.Start }

/// VMEList is the sorted, non-overlapping list of a process's VMAs. It is
/// single-owner (only the owning PCB's current CPU touches it) so, unlike
/// FIFO and MRU, it carries no lock (spec.md §5).
type VMEList struct {
	first, last *VME
}

/// AddVME places a new region of the given size. If start is 0, a
/// first-fit search starting at config.UserMin picks the placement;
/// otherwise the region is inserted at its sorted position without an
/// overlap check (mmap's caller is responsible for rejecting overlap via
/// IntersectsQueue first). Returns the chosen start address, or 0 if the
/// region would escape [UserMin, UserMax) or size is 0.
func (q *VMEList) AddVME(start, size uint32) uint32 {
	if size == 0 {
		return 0
	}
	vme := &VME{Start: start, End: start + size}

	var prev, next *VME
	if start == 0 {
		next = q.first
		startAddr := uint32(config.UserMin)
		for next != nil && next.Start < startAddr+size {
			startAddr = next.End
			prev = next
			next = next.next
		}
		if startAddr+size > config.UserMax || startAddr+size < startAddr {
			return 0
		}
		vme.Start = startAddr
		vme.End = startAddr + size
	} else {
		if start < config.UserMin || vme.End > config.UserMax || vme.End < start {
			return 0
		}
		next = q.first
		for next != nil && next.Start < vme.End {
			prev = next
			next = next.next
		}
	}

	vme.prev = prev
	vme.next = next
	if prev != nil {
		prev.next = vme
	} else {
		q.first = vme
	}
	if next != nil {
		next.prev = vme
	} else {
		q.last = vme
	}
	return vme.Start
}

/// IntersectsQueue reports whether [addr, addr+size) overlaps any
/// existing VMA.
func (q *VMEList) IntersectsQueue(addr, size uint32) bool {
	for it := q.first; it != nil; it = it.next {
		if addr < it.End && addr+size > it.Start {
			return true
		}
	}
	return false
}

/// ContainsRange reports whether [start, end] is fully covered by the
/// union of VMAs, allowing coverage to span VMAs that touch.
func (q *VMEList) ContainsRange(start, end uint32) bool {
	for it := q.first; it != nil; it = it.next {
		if start >= it.Start && start < it.End {
			if end < it.End {
				return true
			}
			start = it.End
		}
	}
	return false
}

/// Lookup returns the VMA containing va, if any.
func (q *VMEList) Lookup(va uint32) (*VME, bool) {
	for it := q.first; it != nil; it = it.next {
		if va >= it.Start && va < it.End {
			return it, true
		}
	}
	return nil, false
}

/// Remove unlinks and returns the VMA whose range contains addr.
func (q *VMEList) Remove(addr uint32) (*VME, bool) {
	for it := q.first; it != nil; it = it.next {
		if addr < it.End && addr >= it.Start {
			if it.prev != nil {
				it.prev.next = it.next
			} else {
				q.first = it.next
			}
			if it.next != nil {
				it.next.prev = it.prev
			} else {
				q.last = it.prev
			}
			it.next, it.prev = nil, nil
			return it, true
		}
	}
	return nil, false
}

/// DeepCopy produces an independent list with the same (start, size)
/// tuples, used by fork (spec.md §4.5).
func (q *VMEList) DeepCopy() *VMEList {
	cp := &VMEList{}
	for it := q.first; it != nil; it = it.next {
		cp.AddVME(it.Start, it.Size())
	}
	return cp
}

/// Each iterates VMAs in sorted order, for callers (like the VM manager's
/// free path) that need to walk them without mutation.
func (q *VMEList) Each(f func(*VME)) {
	for it := q.first; it != nil; it = it.next {
		f(it)
	}
}

/// IsEmpty reports whether the list holds no VMAs.
func (q *VMEList) IsEmpty() bool {
	return q.first == nil
}

/// Clear empties the list.
func (q *VMEList) Clear() {
	q.first, q.last = nil, nil
}
