// Package vm implements per-process virtual memory (spec.md §4.1/§4.4/
// §4.5): building and tearing down 32-bit page directories, the
// identity-mapped kernel region and shared APIC/communication pages
// every address space carries, lazy (demand-paged) allocation of user
// pages inside a registered VMA, and the eager address-space copy fork
// requires instead of copy-on-write.
package vm

import (
	"sync"

	"biscuit32/config"
	"biscuit32/mem"
	"biscuit32/queue"
)

func frameAddr(f mem.PhysFrame) uint32 { return uint32(f) << config.PageShift }

func pdi(va uint32) uint32 { return va >> 22 }
func pti(va uint32) uint32 { return (va >> 12) & 0x3FF }

/// Global holds the process-independent page tables every address
/// space shares: the identity-mapped kernel region, the APIC MMIO
/// mapping, and the 0xF0000000 shared communication page. Built once
/// at boot and referenced (never copied) by every AddressSpace.
type Global struct {
	mu sync.Mutex

	alloc *mem.Allocator

	kernelPT    [config.KernelPTCount]mem.PhysFrame
	apicPT      mem.PhysFrame
	sharedPT    mem.PhysFrame
	sharedFrame mem.PhysFrame

	inited bool
}

/// NewGlobal builds an uninitialized Global backed by alloc. Call Init
/// once (on the boot core) before NewAddressSpace.
func NewGlobal(alloc *mem.Allocator) *Global {
	return &Global{alloc: alloc}
}

/// Init builds the shared page table, the shared data frame at
/// 0xF0000000, the APIC page table, and the identity-mapped kernel
/// page tables. Ground truth: VMM::global_init.
func (g *Global) Init() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inited {
		return
	}

	g.sharedPT = g.alloc.Alloc()
	g.sharedFrame = g.alloc.Alloc()
	g.alloc.Table(g.sharedPT)[0] = frameAddr(g.sharedFrame) | config.UserDataFlags

	g.apicPT = g.alloc.Alloc()
	apicTable := g.alloc.Table(g.apicPT)
	apicTable[pti(config.LocalAPIC)] = config.LocalAPIC | config.ApicPTEFlags
	apicTable[pti(config.IOAPIC)] = config.IOAPIC | config.ApicPTEFlags

	for i := 0; i < config.KernelPTCount; i++ {
		frame := g.alloc.Alloc()
		g.kernelPT[i] = frame
		table := g.alloc.Table(frame)
		for j := 0; j < config.PDECount; j++ {
			if i == 0 && j == 0 {
				// Leave (0,0) unmapped so a null-pointer dereference
				// faults instead of silently succeeding.
				continue
			}
			table[j] = (uint32(i) << 22) | (uint32(j) << 12) | config.KernelPTEFlags
		}
	}

	g.inited = true
}

/// AddressSpace is one process's page directory plus its registered
/// VMA list. VMAs carry no lock of their own (spec.md §5: single-owner),
/// so callers must not touch an AddressSpace from more than one CPU at
/// a time.
type AddressSpace struct {
	global *Global
	PD     mem.PhysFrame
	VMAs   queue.VMEList
}

/// NewAddressSpace allocates a fresh page directory mapping the shared
/// kernel identity region, the APIC page, and the shared page, with an
/// empty user region. Ground truth: VMM::per_core_init, generalized
/// from "once per boot core" to "once per process" since this port
/// creates a fresh address space per process rather than per core.
func (g *Global) NewAddressSpace() *AddressSpace {
	g.mu.Lock()
	defer g.mu.Unlock()

	pd := g.alloc.Alloc()
	table := g.alloc.Table(pd)
	for i := 0; i < config.KernelPTCount; i++ {
		table[i] = frameAddr(g.kernelPT[i]) | config.KernelPDEFlags
	}
	table[pdi(config.IOAPIC)] = frameAddr(g.apicPT) | config.ApicPDEFlags
	table[pdi(config.SharedPageBase)] = frameAddr(g.sharedPT) | config.SharedPDEFlags

	return &AddressSpace{global: g, PD: pd}
}

/// FaultAlloc resolves a page fault at va by walking (and lazily
/// creating) the page directory entry and page table entry covering
/// it. Callers must have already confirmed va falls inside a
/// registered VMA (spec.md §4.4: "a fault outside every VMA is a
/// segmentation violation, not a lazy allocation"). Ground truth:
/// vmm_pageFault's final branch.
func (as *AddressSpace) FaultAlloc(va uint32) {
	g := as.global
	g.mu.Lock()
	defer g.mu.Unlock()

	table := g.alloc.Table(as.PD)
	i := pdi(va)
	if table[i]&config.PteP == 0 {
		table[i] = frameAddr(g.alloc.Alloc()) | config.UserPTFlags
	}

	ptFrame := mem.PhysFrame(table[i] >> config.PageShift)
	pt := g.alloc.Table(ptFrame)
	j := pti(va)
	if pt[j]&config.PteP == 0 {
		pt[j] = frameAddr(g.alloc.Alloc()) | config.UserDataFlags
	}
}

/// Resident reports whether va already has a present page table entry,
/// without allocating one.
func (as *AddressSpace) Resident(va uint32) bool {
	g := as.global
	g.mu.Lock()
	defer g.mu.Unlock()

	table := g.alloc.Table(as.PD)
	i := pdi(va)
	if table[i]&config.PteP == 0 {
		return false
	}
	ptFrame := mem.PhysFrame(table[i] >> config.PageShift)
	pt := g.alloc.Table(ptFrame)
	return pt[pti(va)]&config.PteP != 0
}

/// Bytes returns the page-sized slice backing va's resident page,
/// allocating it first if necessary. Used by callers copying process
/// argument/ELF data into the address space.
func (as *AddressSpace) Bytes(va uint32) []byte {
	if !as.Resident(va) {
		as.FaultAlloc(va)
	}
	g := as.global
	g.mu.Lock()
	table := g.alloc.Table(as.PD)
	ptFrame := mem.PhysFrame(table[pdi(va)] >> config.PageShift)
	pt := g.alloc.Table(ptFrame)
	dataFrame := mem.PhysFrame(pt[pti(va)] >> config.PageShift)
	g.mu.Unlock()
	return g.alloc.Bytes(dataFrame)
}

/// Free releases every user-region frame and page table this address
/// space owns (but not the shared kernel/APIC/shared-page tables,
/// which belong to Global). Ground truth: VMM::free.
func (as *AddressSpace) Free() {
	g := as.global
	g.mu.Lock()
	defer g.mu.Unlock()

	table := g.alloc.Table(as.PD)
	for i := pdi(config.UserMin); i < pdi(config.UserMax); i++ {
		pde := table[i]
		if pde&config.PteP == 0 {
			continue
		}
		ptFrame := mem.PhysFrame(pde >> config.PageShift)
		pt := g.alloc.Table(ptFrame)
		for j := 0; j < config.PDECount; j++ {
			pte := pt[j]
			if pte&config.PteP == 0 {
				continue
			}
			g.alloc.Dealloc(mem.PhysFrame(pte >> config.PageShift))
			pt[j] = 0
		}
		g.alloc.Dealloc(ptFrame)
		table[i] = 0
	}
	as.VMAs.Clear()
}

/// RemoveVMA unmaps and frees every page-table entry (and now-empty
/// page table) covering the VMA containing addr, then removes the VMA
/// itself. Reports false if addr lies in no VMA. Ground truth:
/// PCB::remove_from_vmequeue.
func (as *AddressSpace) RemoveVMA(addr uint32) bool {
	vme, ok := as.VMAs.Remove(addr)
	if !ok {
		return false
	}

	g := as.global
	g.mu.Lock()
	defer g.mu.Unlock()

	table := g.alloc.Table(as.PD)
	startPDI := pdi(vme.Start)
	endPDI := pdi(vme.End)
	for i := startPDI; i <= endPDI; i++ {
		pde := table[i]
		if pde&config.PteP == 0 {
			continue
		}
		ptFrame := mem.PhysFrame(pde >> config.PageShift)
		pt := g.alloc.Table(ptFrame)

		start, end := uint32(0), uint32(config.PDECount)
		if i == startPDI {
			start = pti(vme.Start)
		}
		if i == endPDI {
			end = pti(vme.End)
		}
		for j := start; j < end; j++ {
			pte := pt[j]
			if pte&config.PteP == 0 {
				continue
			}
			g.alloc.Dealloc(mem.PhysFrame(pte >> config.PageShift))
			pt[j] = 0
		}
		empty := true
		for j := 0; j < config.PDECount; j++ {
			if pt[j]&config.PteP != 0 {
				empty = false
				break
			}
		}
		if empty {
			g.alloc.Dealloc(ptFrame)
			table[i] = 0
		}
	}
	return true
}

/// Fork builds a fresh AddressSpace that eagerly copies every present
/// user page from the parent (no copy-on-write, per spec.md §4.5's
/// explicit deviation from the upstream kernel this was ported from),
/// shares the kernel identity and APIC/shared-page mappings by
/// reference, and deep-copies the VMA list. Ground truth: the address
/// space portion of sys.cc's fork handler.
func (g *Global) Fork(parent *AddressSpace) *AddressSpace {
	g.mu.Lock()
	defer g.mu.Unlock()

	childPD := g.alloc.Alloc()
	parentTable := g.alloc.Table(parent.PD)
	childTable := g.alloc.Table(childPD)

	for i := 0; i < config.KernelPTCount; i++ {
		childTable[i] = parentTable[i]
	}

	for i := pdi(config.UserMin); i < pdi(config.UserMax); i++ {
		pde := parentTable[i]
		if pde&config.PteP == 0 {
			continue
		}
		childPT := g.alloc.Alloc()
		childTable[i] = frameAddr(childPT) | config.UserPTFlags

		parentPT := g.alloc.Table(mem.PhysFrame(pde >> config.PageShift))
		childPTTable := g.alloc.Table(childPT)

		for j := 0; j < config.PDECount; j++ {
			pte := parentPT[j]
			if pte&config.PteP == 0 {
				continue
			}
			childFrame := g.alloc.Alloc()
			copy(g.alloc.Bytes(childFrame), g.alloc.Bytes(mem.PhysFrame(pte>>config.PageShift)))
			childPTTable[j] = frameAddr(childFrame) | config.UserDataFlags
		}
	}

	childTable[pdi(config.IOAPIC)] = parentTable[pdi(config.IOAPIC)]
	childTable[pdi(config.SharedPageBase)] = parentTable[pdi(config.SharedPageBase)]

	child := &AddressSpace{global: g, PD: childPD}
	child.VMAs = *parent.VMAs.DeepCopy()
	return child
}
