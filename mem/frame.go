// Package mem implements the physical frame allocator (spec.md §4.1). It
// hands out zeroed 4 KiB frames from a fixed pool and reclaims them; the
// pool is backed by an in-process byte slice standing in for physical RAM,
// since the kernel has no real hardware to allocate from in this port.
package mem

import (
	"sync"
	"unsafe"

	"biscuit32/config"
	"biscuit32/klog"
)

/// PhysFrame identifies a 4 KiB-aligned physical frame by frame number.
type PhysFrame uint32

/// PageTable is a page directory or page table page, 1024 32-bit
/// entries wide, matching the 32-bit paging structures this port
/// targets (spec.md §4.1/§4.4).
type PageTable [config.PDECount]uint32

/// Allocator hands out and reclaims PhysFrames. It must be safe to call
/// from trap context with interrupts disabled, so it guards its freelist
/// with a single short-held mutex standing in for a spinlock (see
/// spec.md §5: "the frame allocator is process-wide and must be
/// internally synchronized").
type Allocator struct {
	mu    sync.Mutex
	ram   []byte
	free  []PhysFrame // LIFO freelist: last-freed frame is reused first
	total int
}

/// NewAllocator builds an allocator managing nframes frames. Frame 0 is
/// reserved and never handed out, mirroring the VM manager leaving entry
/// (0,0) unmapped to trap null dereferences (spec.md §4.4).
func NewAllocator(nframes int) *Allocator {
	if nframes < 2 {
		klog.Fatalf("frame pool too small")
	}
	a := &Allocator{
		ram:   make([]byte, nframes*config.PageSize),
		total: nframes,
	}
	for i := nframes - 1; i >= 1; i-- {
		a.free = append(a.free, PhysFrame(i))
	}
	return a
}

/// Alloc returns a zeroed frame. Allocation is assumed to always succeed
/// (spec.md §4.1/§7): exhaustion is a fatal, unrecoverable condition, not
/// a caller-visible error.
func (a *Allocator) Alloc() PhysFrame {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := len(a.free)
	if n == 0 {
		klog.Fatalf("physical frame allocator exhausted")
	}
	f := a.free[n-1]
	a.free = a.free[:n-1]
	clear(a.bytesLocked(f))
	return f
}

/// Dealloc returns f to the pool.
func (a *Allocator) Dealloc(f PhysFrame) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.free = append(a.free, f)
}

/// Bytes returns the page-sized byte slice backing f. The slice aliases
/// the allocator's backing store; callers must not retain it past f's
/// lifetime.
func (a *Allocator) Bytes(f PhysFrame) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bytesLocked(f)
}

func (a *Allocator) bytesLocked(f PhysFrame) []byte {
	off := int(f) * config.PageSize
	return a.ram[off : off+config.PageSize]
}

/// Table reinterprets f's backing bytes as a PageTable, for callers
/// walking page directories/tables as uint32 entry arrays rather than
/// raw bytes. The returned pointer aliases the allocator's backing
/// store, same lifetime caveat as Bytes.
func (a *Allocator) Table(f PhysFrame) *PageTable {
	return (*PageTable)(unsafe.Pointer(&a.Bytes(f)[0]))
}

/// Free reports the number of frames currently on the freelist.
func (a *Allocator) Free() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.free)
}

/// Total reports the number of frames the allocator manages.
func (a *Allocator) Total() int {
	return a.total
}
