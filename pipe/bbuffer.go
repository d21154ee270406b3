// Package pipe implements the bounded buffer (spec.md §3/§4.7): a
// fixed-capacity FIFO guarded by a pair of counting semaphores, one
// tracking empty slots and one tracking filled slots, so Put and Get
// never block the calling goroutine and instead schedule a continuation.
package pipe

import (
	"biscuit32/queue"
	"biscuit32/sched"
	"biscuit32/sync2"
)

/// BoundedBuffer is a capacity-n FIFO buffer of T values shared
/// between producers and consumers running on (possibly different)
/// per-CPU event loops.
type BoundedBuffer[T any] struct {
	q      queue.FIFO[T]
	nFull  *sync2.Semaphore
	nEmpty *sync2.Semaphore
}

/// NewBoundedBuffer builds a buffer with room for n values.
func NewBoundedBuffer[T any](n int) *BoundedBuffer[T] {
	return &BoundedBuffer[T]{
		nFull:  sync2.NewSemaphore(0),
		nEmpty: sync2.NewSemaphore(n),
	}
}

/// Put waits for a free slot, then appends v and schedules work on cpu.
// Mirrors bb.h's put: down(n_empty) -> enqueue -> up(n_full) -> work().
func (b *BoundedBuffer[T]) Put(cpu *sched.CPU, v T, work sched.Work) {
	b.nEmpty.Down(cpu, func() {
		b.q.Push(v)
		b.nFull.Up(cpu)
		work()
	})
}

/// Get waits for a filled slot, then removes the oldest value and
// schedules work(v) on cpu. Mirrors bb.h's get: down(n_full) -> dequeue
// -> up(n_empty) -> work(v).
func (b *BoundedBuffer[T]) Get(cpu *sched.CPU, work func(T)) {
	b.nFull.Down(cpu, func() {
		v, ok := b.q.Pop()
		if !ok {
			// n_full's count guarantees a value is present; a miss here
			// means n_full and the queue have fallen out of sync.
			panic("pipe: n_full signaled but queue is empty")
		}
		b.nEmpty.Up(cpu)
		work(v)
	})
}

/// Len reports the number of buffered values, for tests and diagnostics.
func (b *BoundedBuffer[T]) Len() int {
	return b.q.Len()
}
