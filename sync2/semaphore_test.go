package sync2

import (
	"testing"

	"biscuit32/sched"

	"github.com/stretchr/testify/require"
)

func TestDownSynchronousWhenAvailable(t *testing.T) {
	cpu := sched.NewCPU(0)
	s := NewSemaphore(1)
	ran := false
	s.Down(cpu, func() { ran = true })
	cpu.Drain()
	require.True(t, ran)
	require.Equal(t, 0, s.Count())
}

func TestDownBlocksWhenZero(t *testing.T) {
	cpu := sched.NewCPU(0)
	s := NewSemaphore(0)
	ran := false
	s.Down(cpu, func() { ran = true })
	require.False(t, ran, "down must not run synchronously when count is 0")
	require.Equal(t, 1, s.Waiting())
	s.Up(cpu)
	cpu.Drain()
	require.True(t, ran)
}

func TestUpWithNoWaitersIncrementsCount(t *testing.T) {
	cpu := sched.NewCPU(0)
	s := NewSemaphore(0)
	s.Up(cpu)
	require.Equal(t, 1, s.Count())
	ran := false
	s.Down(cpu, func() { ran = true })
	cpu.Drain()
	require.True(t, ran)
}

// Invariant: each Down either takes one unit of count or queues a waiter,
// and each Up either releases a waiter or adds one unit, so
// count - waiting + downs - ups stays equal to the initial count.
func TestConservedQuantity(t *testing.T) {
	cpu := sched.NewCPU(0)
	s := NewSemaphore(3)
	conserved := s.Count() - s.Waiting()
	s.Down(cpu, func() {})
	s.Down(cpu, func() {})
	require.Equal(t, conserved, s.Count()-s.Waiting()+2)
	s.Down(cpu, func() {})
	s.Down(cpu, func() {}) // now blocks
	require.Equal(t, conserved, s.Count()-s.Waiting()+4)
	s.Up(cpu)
	cpu.Drain()
	require.Equal(t, conserved, s.Count()-s.Waiting()+4-1)
}

func TestFIFOWaiterOrder(t *testing.T) {
	cpu := sched.NewCPU(0)
	s := NewSemaphore(0)
	var order []int
	s.Down(cpu, func() { order = append(order, 1) })
	s.Down(cpu, func() { order = append(order, 2) })
	s.Up(cpu)
	s.Up(cpu)
	cpu.Drain()
	require.Equal(t, []int{1, 2}, order)
}
