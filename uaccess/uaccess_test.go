package uaccess

import (
	"testing"

	"biscuit32/config"
	"biscuit32/mem"
	"biscuit32/vm"

	"github.com/stretchr/testify/require"
)

func newAS(t *testing.T) *vm.AddressSpace {
	t.Helper()
	alloc := mem.NewAllocator(4096)
	g := vm.NewGlobal(alloc)
	g.Init()
	return g.NewAddressSpace()
}

func TestValidRangeAcceptsInsideUserRegion(t *testing.T) {
	require.True(t, ValidRange(config.UserMin, 16))
	require.True(t, ValidRange(config.UserMax-17, 16))
}

func TestValidRangeRejectsBelowUserMin(t *testing.T) {
	require.False(t, ValidRange(config.UserMin-1, 1))
}

func TestValidRangeRejectsAtOrAboveUserMax(t *testing.T) {
	require.False(t, ValidRange(config.UserMax-1, 2))
}

func TestValidRangeRejectsOverflow(t *testing.T) {
	require.False(t, ValidRange(0xFFFFFFF0, 0x100))
}

func TestReadWriteUint32RoundTrips(t *testing.T) {
	as := newAS(t)
	va := uint32(config.UserMin)
	WriteUint32(as, va, 0xDEADBEEF)
	require.Equal(t, uint32(0xDEADBEEF), ReadUint32(as, va))
}

func TestReadWriteBytesAcrossPageBoundary(t *testing.T) {
	as := newAS(t)
	va := uint32(config.UserMin + config.PageSize - 4)
	data := []byte("crossing-a-page-boundary")
	WriteBytes(as, va, data)
	require.Equal(t, data, ReadBytes(as, va, uint32(len(data))))
}

func TestReadCStringStopsAtNUL(t *testing.T) {
	as := newAS(t)
	va := uint32(config.UserMin)
	WriteBytes(as, va, append([]byte("hello"), 0, 'X'))
	s, ok := ReadCString(as, va)
	require.True(t, ok)
	require.Equal(t, "hello", s)
}

func TestReadCStringRejectsOutOfRangePointer(t *testing.T) {
	as := newAS(t)
	_, ok := ReadCString(as, config.UserMin-1)
	require.False(t, ok)
}
