// Package sync2 implements the counting semaphore (spec.md §3/§4): a
// continuation-accepting Down and a waking Up, invariant count >= 0 and
// "whenever count > 0, waiters is empty".
package sync2

import (
	"sync"

	"biscuit32/queue"
	"biscuit32/sched"
)

/// Semaphore is a counting semaphore whose blocked waiters are
/// continuations dispatched on the event loop rather than parked
/// OS threads.
type Semaphore struct {
	mu      sync.Mutex
	count   int
	waiters queue.FIFO[sched.Work]
}

/// NewSemaphore builds a semaphore with the given initial count.
func NewSemaphore(n int) *Semaphore {
	return &Semaphore{count: n}
}

/// Down either decrements the count and runs k synchronously (enqueued
/// on cpu's event loop) or, if the count is already zero, enqueues k to
/// run from a later Up. Down never blocks the calling goroutine.
func (s *Semaphore) Down(cpu *sched.CPU, k sched.Work) {
	s.mu.Lock()
	if s.count > 0 {
		s.count--
		s.mu.Unlock()
		cpu.Go(k)
		return
	}
	s.waiters.Push(k)
	s.mu.Unlock()
}

/// Up increments the count, or — if a waiter is queued — dequeues one and
/// enqueues it on cpu's event loop to run instead.
func (s *Semaphore) Up(cpu *sched.CPU) {
	s.mu.Lock()
	if k, ok := s.waiters.Pop(); ok {
		s.mu.Unlock()
		cpu.Go(k)
		return
	}
	s.count++
	s.mu.Unlock()
}

/// Count returns the current count, for tests asserting the conserved
/// quantity in spec.md §8 invariant 3.
func (s *Semaphore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

/// Waiting returns the number of continuations currently queued.
func (s *Semaphore) Waiting() int {
	return s.waiters.Len()
}
