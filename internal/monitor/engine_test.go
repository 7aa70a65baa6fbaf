package monitor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aogaki/delila-go/internal/wire"
)

func newTestEngine(t *testing.T) *engine {
	t.Helper()
	eng := newEngine(DefaultHistogramConfig(), 100)
	go eng.run()
	t.Cleanup(eng.close)
	return eng
}

func TestHistogramFillBinsWithinRange(t *testing.T) {
	h := NewHistogram1D(0, 0, HistogramConfig{NumBins: 10, MinValue: 0, MaxValue: 100})
	h.Fill(5)
	h.Fill(95)
	h.Fill(-1)   // underflow
	h.Fill(1000) // overflow

	require.Equal(t, uint64(4), h.TotalCounts)
	require.Equal(t, uint64(1), h.Underflow)
	require.Equal(t, uint64(1), h.Overflow)
	require.Equal(t, uint64(1), h.Bins[0])
	require.Equal(t, uint64(1), h.Bins[9])
}

func TestHistogramClearResetsCountersAndBins(t *testing.T) {
	h := NewHistogram1D(0, 0, HistogramConfig{NumBins: 4, MinValue: 0, MaxValue: 4})
	h.Fill(1)
	h.Fill(2)
	h.Clear()
	require.Equal(t, uint64(0), h.TotalCounts)
	for _, b := range h.Bins {
		require.Equal(t, uint64(0), b)
	}
}

func TestEngineProcessesBatchPerChannel(t *testing.T) {
	eng := newTestEngine(t)

	b := wire.NewBatch(1, 0)
	b.Push(wire.NewEventData(0, 0, 1000, 750, 1.0, 0))
	b.Push(wire.NewEventData(0, 1, 2000, 1500, 2.0, 0))
	b.Push(wire.NewEventData(0, 0, 1100, 825, 3.0, 0))
	eng.submitBatch(b)

	snap := eng.Snapshot()
	require.Equal(t, uint64(3), snap.TotalEvents)
	require.Len(t, snap.Histograms, 2)

	h0 := eng.Histogram(ChannelKey{ModuleID: 0, ChannelID: 0})
	require.NotNil(t, h0)
	require.Equal(t, uint64(2), h0.TotalCounts)
}

func TestEngineHistogramQueryMissingChannelReturnsNil(t *testing.T) {
	eng := newTestEngine(t)
	require.Nil(t, eng.Histogram(ChannelKey{ModuleID: 9, ChannelID: 9}))
}

func TestEngineClearZeroesAccumulatedState(t *testing.T) {
	eng := newTestEngine(t)

	b := wire.NewBatch(1, 0)
	b.Push(wire.NewEventData(0, 0, 1000, 750, 1.0, 0))
	eng.submitBatch(b)
	require.Equal(t, uint64(1), eng.Snapshot().TotalEvents)

	eng.submitClear()
	require.Equal(t, uint64(0), eng.Snapshot().TotalEvents)
}
