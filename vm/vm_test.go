package vm

import (
	"testing"

	"biscuit32/config"
	"biscuit32/mem"

	"github.com/stretchr/testify/require"
)

func newTestGlobal(t *testing.T) *Global {
	t.Helper()
	alloc := mem.NewAllocator(4096)
	g := NewGlobal(alloc)
	g.Init()
	return g
}

func TestNewAddressSpaceMapsKernelIdentity(t *testing.T) {
	g := newTestGlobal(t)
	as := g.NewAddressSpace()
	table := g.alloc.Table(as.PD)
	for i := 0; i < config.KernelPTCount; i++ {
		require.NotZero(t, table[i]&config.PteP, "kernel PDE %d must be present", i)
	}
	require.NotZero(t, table[pdi(config.IOAPIC)]&config.PteP)
	require.NotZero(t, table[pdi(config.SharedPageBase)]&config.PteP)
}

func TestFaultAllocIsIdempotentAndLazy(t *testing.T) {
	g := newTestGlobal(t)
	as := g.NewAddressSpace()
	va := uint32(config.UserMin)
	require.False(t, as.Resident(va))
	as.FaultAlloc(va)
	require.True(t, as.Resident(va))

	b := as.Bytes(va)
	b[0] = 0xAB
	b2 := as.Bytes(va)
	require.Equal(t, byte(0xAB), b2[0], "refetching the same va must return the same frame")
}

func TestFreeReclaimsUserFrames(t *testing.T) {
	g := newTestGlobal(t)
	as := g.NewAddressSpace()
	before := g.alloc.Free()
	as.FaultAlloc(config.UserMin)
	as.FaultAlloc(config.UserMin + config.PageSize)
	require.Less(t, g.alloc.Free(), before)
	as.Free()
	require.Equal(t, before, g.alloc.Free())
}

func TestForkCopiesDataEagerly(t *testing.T) {
	g := newTestGlobal(t)
	parent := g.NewAddressSpace()
	va := uint32(config.UserMin)
	parent.FaultAlloc(va)
	parent.Bytes(va)[0] = 0x42

	child := g.Fork(parent)
	require.True(t, child.Resident(va))
	require.Equal(t, byte(0x42), child.Bytes(va)[0])

	// Eager copy: mutating the child must not affect the parent.
	child.Bytes(va)[0] = 0x99
	require.Equal(t, byte(0x42), parent.Bytes(va)[0])
}

func TestRemoveVMAFreesItsFrames(t *testing.T) {
	g := newTestGlobal(t)
	as := g.NewAddressSpace()
	as.VMAs.AddVME(config.UserMin, config.PageSize*2)
	before := g.alloc.Free()
	as.FaultAlloc(config.UserMin)
	as.FaultAlloc(config.UserMin + config.PageSize)
	require.Less(t, g.alloc.Free(), before)

	require.True(t, as.RemoveVMA(config.UserMin))
	require.Equal(t, before, g.alloc.Free())
	_, ok := as.VMAs.Lookup(config.UserMin)
	require.False(t, ok)
}

func TestRemoveVMAMissReportsFalse(t *testing.T) {
	g := newTestGlobal(t)
	as := g.NewAddressSpace()
	require.False(t, as.RemoveVMA(config.UserMin))
}

func TestForkSharesKernelAndApicMappingsByReference(t *testing.T) {
	g := newTestGlobal(t)
	parent := g.NewAddressSpace()
	child := g.Fork(parent)

	parentTable := g.alloc.Table(parent.PD)
	childTable := g.alloc.Table(child.PD)
	for i := 0; i < config.KernelPTCount; i++ {
		require.Equal(t, parentTable[i], childTable[i])
	}
	require.Equal(t, parentTable[pdi(config.IOAPIC)], childTable[pdi(config.IOAPIC)])
	require.Equal(t, parentTable[pdi(config.SharedPageBase)], childTable[pdi(config.SharedPageBase)])
}
