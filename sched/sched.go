// Package sched implements the per-CPU cooperative event loop (spec.md
// §4.7): each CPU owns a FIFO of Work closures; Go enqueues one; the
// driver loop dequeues and invokes work items, halting when the queue is
// empty until new work arrives.
package sched

import (
	"sync"

	"biscuit32/queue"

	"golang.org/x/sys/cpu"
)

/// Work is a deferred piece of kernel work: either a freshly-runnable
/// continuation (semaphore/future/buffer fired) or a trap-return
/// resumption.
type Work func()

/// CPU is one core's event loop state: its work queue and the
/// "interrupts pending" flag, per-CPU and never shared. It holds no
/// current-PCB slot; the dispatcher is handed the PCB on every call.
/// CacheLinePad keeps neighboring CPUs' structs
/// (as held in a []CPU-like array) from false-sharing a cache line.
type CPU struct {
	ID int

	_ cpu.CacheLinePad

	mu   sync.Mutex
	cond *sync.Cond
	q    queue.FIFO[Work]

	// Interrupts records whether a timer interrupt fired while this CPU
	// was servicing a syscall (spec.md §4.8/§5).
	Interrupts bool

	stopped bool
}

/// NewCPU builds an idle CPU with id.
func NewCPU(id int) *CPU {
	c := &CPU{ID: id}
	c.cond = sync.NewCond(&c.mu)
	return c
}

/// Go enqueues w on this CPU's work queue and wakes the event loop if it
/// is halted waiting for work.
func (c *CPU) Go(w Work) {
	c.q.Push(w)
	c.mu.Lock()
	c.cond.Signal()
	c.mu.Unlock()
}

/// EventLoop is the per-CPU driver: it dequeues and invokes work items
/// until Stop is called, halting (via a condition wait, standing in for
/// "halt the CPU until an interrupt re-enters") whenever the queue is
/// empty. Hardware has no such exit; Stop exists so this loop is
/// testable instead of literally never returning.
func (c *CPU) EventLoop() {
	for {
		w, ok := c.q.Pop()
		if !ok {
			c.mu.Lock()
			if c.stopped {
				c.mu.Unlock()
				return
			}
			if c.q.Len() == 0 {
				c.cond.Wait()
			}
			stopped := c.stopped
			c.mu.Unlock()
			if stopped {
				return
			}
			continue
		}
		w()
	}
}

/// Drain runs queued work items until the queue is empty, without
/// halting. It never blocks, making it the right driver for deterministic
/// tests that don't want to coordinate a separate Stop call.
func (c *CPU) Drain() int {
	n := 0
	for {
		w, ok := c.q.Pop()
		if !ok {
			return n
		}
		w()
		n++
	}
}

/// Stop halts EventLoop, waking it if it is currently idle.
func (c *CPU) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.cond.Signal()
	c.mu.Unlock()
}

/// QueueLen reports the number of pending work items, for tests and
/// diagnostics.
func (c *CPU) QueueLen() int {
	return c.q.Len()
}
