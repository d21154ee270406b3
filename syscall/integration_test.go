package syscall

import (
	"testing"

	"github.com/stretchr/testify/require"

	"biscuit32/config"
	"biscuit32/mach"
	"biscuit32/sched"
	"biscuit32/uaccess"
)

// TestScenarioNormalExitAndJoin mirrors spec scenario S1: a child
// exits with a status, and the parent's join returns that status.
func TestScenarioNormalExitAndJoin(t *testing.T) {
	k, _ := newTestKernel(t)
	parent := newTestProcess(t, k)
	cpu := sched.NewCPU(0)
	m := mach.NewFakeMachine()

	k.Dispatch(cpu, m, parent, Fork, Args{})
	cpu.Drain()
	child := parent.Children[0]

	k.Dispatch(cpu, m, child, Exit, Args{A0: 42})
	cpu.Drain()

	k.Dispatch(cpu, m, parent, Join, Args{})
	cpu.Drain()

	require.Equal(t, uint32(42), m.Resumed.Regs.Eax)
}

// TestScenarioSegvTerminatesWithFaultRecorded mirrors S2: an
// unhandled out-of-VMA fault kills the process with status 139 and
// records the faulting address on the shared page.
func TestScenarioSegvTerminatesWithFaultRecorded(t *testing.T) {
	k, _ := newTestKernel(t)
	parent := newTestProcess(t, k)
	cpu := sched.NewCPU(0)
	m := mach.NewFakeMachine()

	k.Dispatch(cpu, m, parent, Fork, Args{})
	cpu.Drain()
	child := parent.Children[0]

	const faultVA = 666
	k.HandleFault(cpu, m, child, faultVA)
	cpu.Drain()

	require.True(t, child.ExitFuture.IsSet())

	k.Dispatch(cpu, m, parent, Join, Args{})
	cpu.Drain()
	require.Equal(t, uint32(139), m.Resumed.Regs.Eax)

	got := uaccess.ReadUint32(parent.AS, config.FaultSlot)
	require.Equal(t, uint32(faultVA), got)
}

// TestScenarioCrossProcessSemaphore mirrors S4: a semaphore allocated
// before fork is shared by the child; the child's up() unblocks the
// parent's down(); closing the same slot twice fails the second time;
// an out-of-range slot is rejected.
func TestScenarioCrossProcessSemaphore(t *testing.T) {
	k, _ := newTestKernel(t)
	parent := newTestProcess(t, k)
	cpu := sched.NewCPU(0)
	m := mach.NewFakeMachine()

	k.Dispatch(cpu, m, parent, Sem, Args{A0: 0})
	cpu.Drain()
	idx := m.Resumed.Regs.Eax

	k.Dispatch(cpu, m, parent, Fork, Args{})
	cpu.Drain()
	child := parent.Children[0]
	m.Resumed = nil // forget the sem and fork resumptions

	k.Dispatch(cpu, m, parent, Down, Args{A0: idx})
	cpu.Drain()
	require.Nil(t, m.Resumed) // parent blocked; child hasn't upped yet

	k.Dispatch(cpu, m, child, Up, Args{A0: idx})
	cpu.Drain()
	require.Equal(t, uint32(0), m.Resumed.Regs.Eax) // parent's down() completing

	k.Dispatch(cpu, m, child, Exit, Args{A0: 0})
	cpu.Drain()
	k.Dispatch(cpu, m, parent, Join, Args{})
	cpu.Drain()
	require.Equal(t, uint32(0), m.Resumed.Regs.Eax)

	k.Dispatch(cpu, m, parent, SemClose, Args{A0: idx})
	cpu.Drain()
	require.Equal(t, uint32(0), m.Resumed.Regs.Eax)

	k.Dispatch(cpu, m, parent, SemClose, Args{A0: idx})
	cpu.Drain()
	require.Equal(t, ^uint32(0), m.Resumed.Regs.Eax) // -1

	k.Dispatch(cpu, m, parent, Down, Args{A0: 1000})
	cpu.Drain()
	require.Equal(t, ^uint32(0), m.Resumed.Regs.Eax) // -1
}

// TestScenarioSignalHandlerForIllegalAccess mirrors S5: a fault with a
// handler installed delivers signum=1 and the faulting address as the
// handler's argument, instead of killing the process.
func TestScenarioSignalHandlerForIllegalAccess(t *testing.T) {
	k, _ := newTestKernel(t)
	pcb := newTestProcess(t, k)
	cpu := sched.NewCPU(0)
	m := mach.NewFakeMachine()

	const handlerEip = 0x90000
	pcb.HandlerEip = handlerEip
	pcb.UserContext.IFrame.Esp = config.UserMin + config.PageSize

	const faultVA = 0x100000
	k.HandleFault(cpu, m, pcb, faultVA)
	cpu.Drain()

	require.False(t, pcb.ExitFuture.IsSet())
	require.Equal(t, uint32(handlerEip), m.Resumed.IFrame.Eip)

	esp := m.Resumed.IFrame.Esp
	signum := uaccess.ReadUint32(pcb.AS, esp+4)
	arg := uaccess.ReadUint32(pcb.AS, esp+8)
	require.Equal(t, uint32(1), signum)
	require.Equal(t, uint32(faultVA), arg)

	k.Dispatch(cpu, m, pcb, Shutdown, Args{})
	require.True(t, k.Halted)
}

// TestScenarioMmapFromSignalHandlerGrowsAddressSpace mirrors S6: a
// handler invoked for a fault above the mapped region calls
// simple_mmap at the faulting page, sigreturns, and the retried access
// now resolves as an ordinary demand-paging fault instead of a segv.
func TestScenarioMmapFromSignalHandlerGrowsAddressSpace(t *testing.T) {
	k, _ := newTestKernel(t)
	pcb := newTestProcess(t, k)
	cpu := sched.NewCPU(0)
	m := mach.NewFakeMachine()

	const handlerEip = 0x90000
	pcb.HandlerEip = handlerEip
	pcb.UserContext.IFrame.Esp = config.UserMin + config.PageSize

	faultPage := uint32(config.UserMin + 20*config.PageSize)
	k.HandleFault(cpu, m, pcb, faultPage)
	cpu.Drain()
	require.True(t, pcb.InHandler)

	// The handler, now running, maps exactly the faulting page.
	k.Dispatch(cpu, m, pcb, SimpleMmap, Args{A0: faultPage, A1: config.PageSize, A2: ^uint32(0)})
	cpu.Drain()
	require.Equal(t, faultPage, m.Resumed.Regs.Eax)

	k.Dispatch(cpu, m, pcb, Sigreturn, Args{})
	cpu.Drain()
	require.False(t, pcb.InHandler)

	// The retried access now lands inside a registered VMA: an ordinary
	// lazy allocation, not a second segv.
	k.HandleFault(cpu, m, pcb, faultPage)
	cpu.Drain()
	require.False(t, pcb.ExitFuture.IsSet())
	require.True(t, pcb.AS.Resident(faultPage))
}
