// Package config centralizes the machine-geometry and table-size constants
// the kernel fixes throughout the source, mirroring how the teacher's mem
// package centralizes PGSIZE-style constants rather than letting each
// package re-declare them.
package config

/// PageShift is the base-2 exponent for the page size.
const PageShift = 12

/// PageSize is the size of a single page in bytes.
const PageSize = 1 << PageShift

/// PageOffsetMask masks the offset within a page.
const PageOffsetMask = PageSize - 1

/// PDECount is the number of entries in a page directory or page table.
const PDECount = 1024

/// KernelPTCount is the number of identity-mapped kernel page tables,
/// each covering 4 MiB, for a total of 128 MiB of identity-mapped memory.
const KernelPTCount = 32

/// MemSize is the size of identity-mapped physical memory.
const MemSize = KernelPTCount * 4 << 20

/// UserMin is the first byte of the per-process user region.
const UserMin = 0x80000000

/// UserMax is one past the last byte of the per-process user region.
const UserMax = 0xF0000000

/// SharedPageBase is the process-shared read/write page's address.
const SharedPageBase = 0xF0000000

/// FaultSlot is where the page-fault handler records a fatal fault's VA.
const FaultSlot = SharedPageBase + 0x800

/// SigSentinel is the fake return address pushed before a signal handler
/// runs; a fault there means the handler returned without sigreturn.
const SigSentinel = 0x2000

/// ElfEntryMax is one page past UserMax: the original loader allows an
/// entry point or segment to reach exactly one page into the otherwise
/// reserved shared-page region before rejecting it.
const ElfEntryMax = UserMax + PageSize

/// RedZone is the byte count skipped below esp before pushing a signal frame.
const RedZone = 128

/// LocalAPIC and IOAPIC are the MMIO addresses mapped uncached in every
/// address space.
const (
	LocalAPIC = 0xfee00000
	IOAPIC    = 0xfec00000
)

/// MaxFD is the number of file-descriptor table slots per process.
const MaxFD = 10

/// MaxSem is the number of semaphore table slots per process.
const MaxSem = 100

/// MRUCapacity is the fixed number of slots in the block cache.
const MRUCapacity = 16

/// PipeCapacity is the byte capacity of a pipe's bounded buffer.
const PipeCapacity = 100

// Page table/directory entry flag bits, named after the bit patterns the
// original kernel hard-codes (kept as the same magic numbers, now named).
const (
	PteP   = 1 << 0 // present
	PteW   = 1 << 1 // writable
	PteU   = 1 << 2 // user-accessible
	PtePCD = 1 << 4 // cache-disable (used for MMIO)
	PteG   = 1 << 8 // global (used to mark data frames non-TLB-flushed)
)

/// KernelPDEFlags is the flag pattern for shared kernel identity PDEs.
const KernelPDEFlags = PteP | PteW

/// ApicPDEFlags is the flag pattern for the APIC page directory entry.
const ApicPDEFlags = PteP | PteW | PtePCD

/// SharedPDEFlags is the flag pattern for the 0xF0000000 shared-page PDE.
const SharedPDEFlags = PteP | PteW | PteU

/// UserPTFlags is the flag pattern used for a freshly allocated page table.
const UserPTFlags = PteP | PteW | PteU

/// UserDataFlags is the flag pattern used for a freshly allocated user data
/// frame (global bit set, like the kernel identity PTEs).
const UserDataFlags = PteP | PteW | PteU | PteG

/// KernelPTEFlags is the flag pattern for the identity-mapped kernel PTEs:
/// global and writable, but not user-accessible.
const KernelPTEFlags = PteP | PteW | PteG

/// ApicPTEFlags is the flag pattern for the LAPIC/IOAPIC PTEs: global and
/// uncached, not user-accessible.
const ApicPTEFlags = PteP | PteW | PtePCD | PteG
