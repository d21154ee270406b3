package syscall

import (
	"biscuit32/config"
	"biscuit32/mach"
	"biscuit32/proc"
	"biscuit32/sched"
	"biscuit32/uaccess"
)

// sigSegv is the only signal number this port ever delivers: an
// out-of-VMA access. The original dispatches several signal numbers;
// spec.md's Non-goals exclude the rest.
const sigSegv = 1

/// HandleFault is called on every page fault trapped from user mode. It
/// implements spec.md §4.4/§4.9's three-way branch:
//
//  1. If the fault is at the signal sentinel address while a handler is
//     running, the handler returned without calling sigreturn; treat
//     that exactly as an implicit sigreturn.
//  2. If the fault address falls inside a registered VMA, it's an
//     ordinary demand-paging fault: allocate the page and retry.
//  3. Otherwise it's a segmentation violation. If no handler is
//     installed (or one is already running), the process is killed
//     with status 139 and the faulting address is recorded on the
//     shared page. Otherwise the handler is invoked: the current
//     context is saved, a fake return frame is pushed onto the user
//     stack, and execution resumes at HandlerEip.
//
// Ground truth: vmm_pageFault's classification plus sys.cc's signal
// delivery setup.
func (k *Kernel) HandleFault(cpu *sched.CPU, m mach.Machine, pcb *proc.PCB, va uint32) {
	if pcb.InHandler && va == config.SigSentinel {
		pcb.UserContext = pcb.HandlerUserContext
		pcb.InHandler = false
		k.scheduleFresh(cpu, m, pcb)
		return
	}

	if _, ok := pcb.AS.VMAs.Lookup(va); ok {
		pcb.AS.FaultAlloc(va)
		if c := cpuStats(k, cpu); c != nil {
			c.IncPageFaults()
		}
		k.scheduleFresh(cpu, m, pcb)
		return
	}

	if pcb.HandlerEip == 0 || pcb.InHandler {
		uaccess.WriteUint32(pcb.AS, config.FaultSlot, va)
		pcb.ExitFuture.Set(139)
		return
	}

	k.deliverSignal(cpu, m, pcb, va)
}

func (k *Kernel) deliverSignal(cpu *sched.CPU, m mach.Machine, pcb *proc.PCB, va uint32) {
	pcb.HandlerUserContext = pcb.UserContext
	pcb.InHandler = true

	base := pcb.UserContext.IFrame.Esp - config.RedZone - 12
	uaccess.WriteUint32(pcb.AS, base, config.SigSentinel)
	uaccess.WriteUint32(pcb.AS, base+4, sigSegv)
	uaccess.WriteUint32(pcb.AS, base+8, va)

	pcb.UserContext.IFrame.Esp = base
	pcb.UserContext.IFrame.Eip = pcb.HandlerEip

	k.scheduleFresh(cpu, m, pcb)
}
