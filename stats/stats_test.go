package stats

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCountersAccumulate(t *testing.T) {
	r := NewRegistry(2)
	r.CPU(0).IncSyscalls()
	r.CPU(0).IncSyscalls()
	r.CPU(0).IncPageFaults()
	r.CPU(1).IncCtxSwitches()

	snap := r.Snapshot()
	require.Len(t, snap.Sample, 2)
	require.Equal(t, []int64{2, 1, 0}, snap.Sample[0].Value)
	require.Equal(t, []int64{0, 0, 1}, snap.Sample[1].Value)
	require.Equal(t, []string{"0"}, snap.Sample[0].Label["cpu"])
}

func TestSnapshotSampleTypesMatchCounterOrder(t *testing.T) {
	r := NewRegistry(1)
	snap := r.Snapshot()
	require.Equal(t, "syscalls", snap.SampleType[0].Type)
	require.Equal(t, "pagefaults", snap.SampleType[1].Type)
	require.Equal(t, "ctxswitches", snap.SampleType[2].Type)
}

func TestWriteProducesNonEmptyOutput(t *testing.T) {
	r := NewRegistry(1)
	r.CPU(0).IncSyscalls()

	var buf bytes.Buffer
	require.NoError(t, r.Write(&buf))
	require.NotZero(t, buf.Len())
}
