// Package stats tracks per-CPU kernel counters (syscalls served, page
// faults handled, context switches taken) and snapshots them as a
// github.com/google/pprof/profile.Profile, so the counters can be
// written out and inspected with the standard pprof toolchain instead
// of a bespoke stats format.
package stats

import (
	"io"
	"strconv"
	"sync/atomic"

	"github.com/google/pprof/profile"
)

/// Counters holds one CPU's running totals. All fields are updated
/// with atomic ops so a Snapshot taken from another goroutine never
/// observes a torn value.
type Counters struct {
	Syscalls    int64
	PageFaults  int64
	CtxSwitches int64
}

/// IncSyscalls records one dispatched syscall.
func (c *Counters) IncSyscalls() { atomic.AddInt64(&c.Syscalls, 1) }

/// IncPageFaults records one handled page fault.
func (c *Counters) IncPageFaults() { atomic.AddInt64(&c.PageFaults, 1) }

/// IncCtxSwitches records one event-loop continuation switch.
func (c *Counters) IncCtxSwitches() { atomic.AddInt64(&c.CtxSwitches, 1) }

func (c *Counters) snapshot() (syscalls, faults, switches int64) {
	return atomic.LoadInt64(&c.Syscalls),
		atomic.LoadInt64(&c.PageFaults),
		atomic.LoadInt64(&c.CtxSwitches)
}

/// Registry tracks one Counters instance per CPU index.
type Registry struct {
	perCPU []*Counters
}

/// NewRegistry builds a registry with n freshly-zeroed per-CPU counters.
func NewRegistry(n int) *Registry {
	r := &Registry{perCPU: make([]*Counters, n)}
	for i := range r.perCPU {
		r.perCPU[i] = &Counters{}
	}
	return r
}

/// CPU returns the Counters for CPU index i.
func (r *Registry) CPU(i int) *Counters { return r.perCPU[i] }

var sampleTypes = []*profile.ValueType{
	{Type: "syscalls", Unit: "count"},
	{Type: "pagefaults", Unit: "count"},
	{Type: "ctxswitches", Unit: "count"},
}

/// Snapshot builds a profile.Profile with one Sample per CPU, labeled
/// by CPU index, and the three running counters as that sample's
/// values, in sampleTypes order.
func (r *Registry) Snapshot() *profile.Profile {
	p := &profile.Profile{
		SampleType: sampleTypes,
		Sample:     make([]*profile.Sample, len(r.perCPU)),
	}
	for i, c := range r.perCPU {
		syscalls, faults, switches := c.snapshot()
		p.Sample[i] = &profile.Sample{
			Value: []int64{syscalls, faults, switches},
			Label: map[string][]string{"cpu": {strconv.Itoa(i)}},
		}
	}
	return p
}

/// Write snapshots the registry and writes it to w in pprof's gzipped
/// protobuf format.
func (r *Registry) Write(w io.Writer) error {
	return r.Snapshot().Write(w)
}
