package monitor

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/aogaki/delila-go/internal/wire"
)

func TestConfigureProjectorThenWaveformProducesCoefficients(t *testing.T) {
	eng := newTestEngine(t)
	key := ChannelKey{ModuleID: 0, ChannelID: 0}

	// 2x4 basis: first row sums the samples, second row sums only the
	// first half, so the expected coefficients are easy to check by hand.
	projectors := mat.NewDense(2, 4, []float64{
		1, 1, 1, 1,
		1, 1, 0, 0,
	})
	eng.configureProjector(key, projectors)

	b := wire.NewBatch(1, 0)
	ev := wire.NewEventDataWithWaveform(0, 0, 1000, 750, 1.0, 0, wire.Waveform{
		AnalogProbe1: []int16{10, 20, 30, 40},
	})
	b.Push(ev)
	eng.submitBatch(b)
	_ = eng.Snapshot() // synchronize: wait for the batch to be processed

	coeffs := eng.lastProjection(key)
	require.Equal(t, []float64{100, 30}, coeffs)
}

func TestProjectorMismatchedSampleCountIsIgnored(t *testing.T) {
	eng := newTestEngine(t)
	key := ChannelKey{ModuleID: 1, ChannelID: 1}

	projectors := mat.NewDense(1, 4, []float64{1, 1, 1, 1})
	eng.configureProjector(key, projectors)

	b := wire.NewBatch(1, 0)
	ev := wire.NewEventDataWithWaveform(1, 1, 1000, 750, 1.0, 0, wire.Waveform{
		AnalogProbe1: []int16{1, 2, 3}, // wrong length for the 1x4 basis
	})
	b.Push(ev)
	eng.submitBatch(b)
	_ = eng.Snapshot() // synchronize

	require.Nil(t, eng.lastProjection(key))
}
