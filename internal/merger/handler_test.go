package merger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aogaki/delila-go/internal/state"
	"github.com/aogaki/delila-go/internal/wire"
)

func newTestMerger(t *testing.T, capacity int) *Merger {
	t.Helper()
	return &Merger{
		queue: make(chan wire.Message, capacity),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

func TestMergerHandlerGatesForwardingByRunState(t *testing.T) {
	m := newTestMerger(t, 10)
	machine := state.New(m)

	machine.Handle(state.Command{Kind: state.CmdConfigure, RunConfig: &state.RunConfig{RunNumber: 1}})
	machine.Handle(state.Command{Kind: state.CmdArm})
	require.False(t, m.running.Load(), "merger should not forward before Start")

	machine.Handle(state.Command{Kind: state.CmdStart, RunNumber: 1})
	require.True(t, m.running.Load())

	machine.Handle(state.Command{Kind: state.CmdStop})
	require.False(t, m.running.Load(), "Stop must disable forwarding")
}

func TestMergerTracksSourceStatsOnce(t *testing.T) {
	m := newTestMerger(t, 10)
	m.running.Store(true)

	b := wire.NewBatch(7, 0)
	b.Push(wire.NewEventData(0, 0, 1000, 750, 1.0, 0))

	msg := wire.DataMessage(b)
	stats, _ := m.sources.LoadOrStore(msg.Batch.SourceID, &SourceStats{})
	stats.(*SourceStats).Update(msg.Batch.SequenceNumber)

	snap := m.SourceSnapshot(7)
	require.Equal(t, uint64(1), snap.TotalBatches)
}

func TestMergerStatusDetailsSummarizesGaps(t *testing.T) {
	m := newTestMerger(t, 10)
	stats := &SourceStats{}
	stats.Update(0)
	stats.Update(50) // gap of 49
	m.sources.Store(uint32(3), stats)

	details := m.StatusDetails()
	require.Contains(t, details, "Gaps: 1")
	require.Contains(t, details, "Missing: 49")
}

func TestMergerRejectsEmulatorConfig(t *testing.T) {
	m := newTestMerger(t, 10)
	require.NotEmpty(t, m.OnUpdateEmulatorConfig(state.EmulatorRuntimeConfig{}))
}

func TestMergerResetClearsSourceStats(t *testing.T) {
	m := newTestMerger(t, 10)
	m.sources.Store(uint32(1), &SourceStats{TotalBatches: 5})
	m.OnReset()

	count := 0
	m.sources.Range(func(_, _ any) bool { count++; return true })
	require.Equal(t, 0, count)
}
