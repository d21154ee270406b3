// Package future implements a single-writer, many-reader value cell
// (spec.md §3/§4.7), used for a process's exit status.
package future

import "sync"

/// Future holds a value that is set at most once and read by any number
/// of continuations, some of which may register before the value exists.
type Future[T any] struct {
	mu      sync.Mutex
	isSet   bool
	val     T
	waiters []func(T)
}

/// Set transitions the future to Set(v) exactly once and drains any
/// continuations registered via Get, invoking each with v. Setting an
/// already-set future is a kernel invariant violation in the source
/// model (a process exits exactly once); callers that might race should
/// check IsSet first.
func (f *Future[T]) Set(v T) {
	f.mu.Lock()
	if f.isSet {
		f.mu.Unlock()
		return
	}
	f.isSet = true
	f.val = v
	waiters := f.waiters
	f.waiters = nil
	f.mu.Unlock()
	for _, k := range waiters {
		k(v)
	}
}

/// Get invokes k(v) immediately if the future is already set, otherwise
/// enqueues k to run when Set is eventually called.
func (f *Future[T]) Get(k func(T)) {
	f.mu.Lock()
	if f.isSet {
		v := f.val
		f.mu.Unlock()
		k(v)
		return
	}
	f.waiters = append(f.waiters, k)
	f.mu.Unlock()
}

/// IsSet reports whether the future has been set.
func (f *Future[T]) IsSet() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.isSet
}
