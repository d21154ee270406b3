package queue

import (
	"testing"

	"biscuit32/config"

	"github.com/stretchr/testify/require"
)

func TestFIFOOrder(t *testing.T) {
	var q FIFO[int]
	q.Push(1)
	q.Push(2)
	q.Push(3)
	require.Equal(t, 3, q.Len())
	v, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, 1, v)
	v, ok = q.Pop()
	require.True(t, ok)
	require.Equal(t, 2, v)
}

func TestFIFOClearThenReuse(t *testing.T) {
	var q FIFO[int]
	q.Push(1)
	q.Clear()
	require.Equal(t, 0, q.Len())
	_, ok := q.Pop()
	require.False(t, ok)
	q.Push(9)
	v, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, 9, v)
}

func TestMRUFixedCapacity(t *testing.T) {
	m := NewMRU(16)
	// capacity is always MRUCapacity regardless of inserts
	for i := uint32(0); i < 100; i++ {
		m.Add(i, make([]byte, 16))
	}
	count := 0
	for n := m.first; n != nil; n = n.next {
		count++
	}
	require.Equal(t, MRUCapacity, count)
}

func TestMRUContainsMovesToFront(t *testing.T) {
	m := NewMRU(4)
	buf := []byte{1, 2, 3, 4}
	m.Add(10, buf)
	m.Add(11, []byte{5, 6, 7, 8})
	require.True(t, m.Contains(10))
	require.Equal(t, uint32(10), m.first.id)
	require.Equal(t, buf, m.Peek())
}

func TestMRUMissOnUncached(t *testing.T) {
	m := NewMRU(4)
	require.False(t, m.Contains(42))
}

func TestVMEListFirstFit(t *testing.T) {
	var q VMEList
	a := q.AddVME(0, 0x1000)
	require.Equal(t, uint32(config.UserMin), a)
	b := q.AddVME(0, 0x2000)
	require.Equal(t, uint32(config.UserMin+0x1000), b)
}

func TestVMEListSortedNonOverlapInvariant(t *testing.T) {
	var q VMEList
	q.AddVME(config.UserMin+0x5000, 0x1000)
	q.AddVME(config.UserMin, 0x1000)
	q.AddVME(config.UserMin+0x2000, 0x1000)
	var prevEnd uint32
	first := true
	q.Each(func(v *VME) {
		if !first {
			require.LessOrEqual(t, prevEnd, v.Start)
		}
		first = false
		prevEnd = v.End
	})
}

func TestVMEListRejectsEscapingRange(t *testing.T) {
	var q VMEList
	got := q.AddVME(config.UserMax-0x1000, 0x2000)
	require.Zero(t, got)
}

func TestVMEListIntersectsQueue(t *testing.T) {
	var q VMEList
	q.AddVME(config.UserMin, 0x1000)
	require.True(t, q.IntersectsQueue(config.UserMin, 0x1000))
	require.True(t, q.IntersectsQueue(config.UserMin+0x500, 0x1000))
	require.False(t, q.IntersectsQueue(config.UserMin+0x1000, 0x1000))
}

func TestVMEListContainsRangeAcrossAdjacentRegions(t *testing.T) {
	var q VMEList
	q.AddVME(config.UserMin, 0x1000)
	q.AddVME(config.UserMin+0x1000, 0x1000)
	require.True(t, q.ContainsRange(config.UserMin, config.UserMin+0x1fff))
	require.False(t, q.ContainsRange(config.UserMin, config.UserMin+0x2000))
}

func TestVMEListRemove(t *testing.T) {
	var q VMEList
	q.AddVME(config.UserMin, 0x1000)
	v, ok := q.Remove(config.UserMin + 0x10)
	require.True(t, ok)
	require.Equal(t, uint32(config.UserMin), v.Start)
	require.True(t, q.IsEmpty())
	_, ok = q.Remove(config.UserMin)
	require.False(t, ok)
}

func TestVMEListDeepCopyIsIndependent(t *testing.T) {
	var q VMEList
	q.AddVME(config.UserMin, 0x1000)
	cp := q.DeepCopy()
	q.AddVME(config.UserMin+0x1000, 0x1000)
	count := 0
	cp.Each(func(*VME) { count++ })
	require.Equal(t, 1, count)
}
