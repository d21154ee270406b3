// Package mach describes the boundary between the kernel proper and the
// handful of operations that are inherently machine-specific: loading a
// page directory into CR3, resuming a saved register set into user mode,
// and the shapes of the register/interrupt-frame structs a trap leaves
// behind (spec.md §4.1/§4.8). The real trampolines are out of scope (no
// assembly, no ring transitions); Machine exists so the rest of the
// kernel can be written and tested against an interface instead of bare
// hardware.
package mach

/// Registers is the general-purpose register file a trap handler saves,
// laid out to match the original kernel's stack-pushed order.
type Registers struct {
	Edi     uint32
	Esi     uint32
	Ebp     uint32
	Scratch uint32
	Ebx     uint32
	Edx     uint32
	Ecx     uint32
	Eax     uint32
}

/// IFrame is the interrupt frame the CPU itself pushes on a trap: the
// resume address, code segment, flags, and (on a privilege-level change)
// the user stack pointer and stack segment.
type IFrame struct {
	Eip    uint32
	Cs     uint32
	Eflags uint32
	Esp    uint32
	Ss     uint32
}

/// UserContext bundles a saved Registers and IFrame: everything needed
// to resume a process exactly where a trap interrupted it.
type UserContext struct {
	Regs   Registers
	IFrame IFrame
}

/// Machine is the set of operations that touch real hardware state: CR3,
// the ring-0-to-ring-3 transition, and resuming a previously trapped
// context. This module has no hardware-backed implementation:
// FakeMachine is the only one, used by the tests and by cmd/kernel.
type Machine interface {
	// VmmOn installs pageDirectory (a physical frame number) as the
	// active address space.
	VmmOn(pageDirectory uint32)

	// Resume loads ctx's registers and IFrame and returns to user mode
	// at ctx.IFrame.Eip. Never returns on real hardware.
	Resume(ctx UserContext)

	// SwitchToUser builds a fresh UserContext (all general registers
	// zeroed but Eax=arg) and transfers to user mode at eip with stack
	// pointer esp. Never returns on real hardware.
	SwitchToUser(eip, esp, arg uint32)
}

/// FakeMachine is a Machine double for tests: instead of transferring
// control, it just records the most recent call so assertions can
// inspect what the kernel asked the "hardware" to do.
type FakeMachine struct {
	ActivePD uint32

	Resumed  *UserContext
	SwitchTo *SwitchCall
}

/// SwitchCall records the arguments of the most recent SwitchToUser.
type SwitchCall struct {
	Eip, Esp, Arg uint32
}

/// NewFakeMachine builds a FakeMachine with no recorded calls.
func NewFakeMachine() *FakeMachine {
	return &FakeMachine{}
}

func (f *FakeMachine) VmmOn(pageDirectory uint32) {
	f.ActivePD = pageDirectory
}

func (f *FakeMachine) Resume(ctx UserContext) {
	c := ctx
	f.Resumed = &c
}

func (f *FakeMachine) SwitchToUser(eip, esp, arg uint32) {
	f.SwitchTo = &SwitchCall{Eip: eip, Esp: esp, Arg: arg}
}
