package mem

import (
	"testing"

	"biscuit32/config"

	"github.com/stretchr/testify/require"
)

func TestAllocZeroed(t *testing.T) {
	a := NewAllocator(8)
	f := a.Alloc()
	buf := a.Bytes(f)
	require.Len(t, buf, config.PageSize)
	for _, b := range buf {
		require.Zero(t, b)
	}
}

func TestAllocDeallocLIFO(t *testing.T) {
	a := NewAllocator(4)
	f1 := a.Alloc()
	f2 := a.Alloc()
	a.Dealloc(f2)
	f3 := a.Alloc()
	require.Equal(t, f2, f3, "freed frame should be reused LIFO for cache locality")
	_ = f1
}

func TestAllocDirtyFrameIsRezeroed(t *testing.T) {
	a := NewAllocator(4)
	f := a.Alloc()
	buf := a.Bytes(f)
	buf[0] = 0xff
	a.Dealloc(f)
	f2 := a.Alloc()
	require.Equal(t, f, f2)
	require.Zero(t, a.Bytes(f2)[0])
}

func TestAllocExhaustionIsFatal(t *testing.T) {
	a := NewAllocator(2) // 1 usable frame (frame 0 reserved)
	a.Alloc()
	require.Panics(t, func() { a.Alloc() })
}

func TestFrameZeroNeverAllocated(t *testing.T) {
	a := NewAllocator(3)
	for i := 0; i < 2; i++ {
		f := a.Alloc()
		require.NotZero(t, f)
	}
}
