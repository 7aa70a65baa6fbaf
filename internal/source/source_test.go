package source

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aogaki/delila-go/internal/state"
)

func TestDefaultConfigMatchesUpstreamDefaults(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, 100, cfg.EventsPerBatch)
	require.Equal(t, uint8(1), cfg.NumModules)
	require.Equal(t, uint8(16), cfg.ChannelsPerModule)
	require.False(t, cfg.EnableWaveform)
	require.Equal(t, ProbesAllAnalog, cfg.WaveformProbes)
	require.Equal(t, 512, cfg.WaveformSamples)
}

func newTestEmulator(cfg Config) *Emulator {
	return &Emulator{
		cfg:      cfg,
		settings: newRuntimeSettings(cfg),
		rng:      newRand(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func TestGenerateBatchProducesRequestedEventCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EventsPerBatch = 37
	e := newTestEmulator(cfg)

	b := e.generateBatch()
	require.Equal(t, 37, b.Len())
	require.Equal(t, uint64(0), b.SequenceNumber)
}

func TestGenerateBatchIncrementsSequenceNumber(t *testing.T) {
	e := newTestEmulator(DefaultConfig())

	first := e.generateBatch()
	second := e.generateBatch()
	require.Equal(t, uint64(0), first.SequenceNumber)
	require.Equal(t, uint64(1), second.SequenceNumber)
}

func TestGenerateBatchTimestampsStrictlyIncrease(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EventsPerBatch = 20
	e := newTestEmulator(cfg)

	b := e.generateBatch()
	for i := 1; i < len(b.Events); i++ {
		require.Greater(t, b.Events[i].TimestampNs, b.Events[i-1].TimestampNs)
	}
}

func TestGenerateBatchAttachesWaveformOnlyWhenEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EventsPerBatch = 5
	cfg.EnableWaveform = true
	cfg.WaveformSamples = 64
	e := newTestEmulator(cfg)

	b := e.generateBatch()
	for _, ev := range b.Events {
		require.NotNil(t, ev.Waveform)
		require.Len(t, ev.Waveform.AnalogProbe1, 64)
	}
}

func TestGenerateBatchEnergyDistributionHasBackgroundAndPeak(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EventsPerBatch = 2000
	e := newTestEmulator(cfg)

	b := e.generateBatch()
	var lowEnergy, peakEnergy int
	for _, ev := range b.Events {
		switch {
		case ev.Energy < 200:
			lowEnergy++
		case ev.Energy > 400 && ev.Energy < 700:
			peakEnergy++
		}
	}
	require.Greater(t, lowEnergy, 0, "uniform background should produce some low-energy events")
	require.Greater(t, peakEnergy, 0, "Gaussian peak should dominate near module*1000+channel*50+500")
}

func TestGenerateWaveformRespectsProbeMask(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	wf := generateWaveform(rng, 30000, ProbeDigital1, 64)
	require.Empty(t, wf.AnalogProbe1)
	require.Empty(t, wf.AnalogProbe2)
	require.Len(t, wf.DigitalProbe1, 8) // 64 samples / 8 bits per byte
	require.Empty(t, wf.DigitalProbe2)
}

func TestRuntimeSettingsUpdateAppliesNewParameters(t *testing.T) {
	rs := newRuntimeSettings(DefaultConfig())
	rs.update(state.EmulatorRuntimeConfig{
		EventsPerBatch:  10,
		BatchIntervalMs: 5,
		EnableWaveform:  true,
		WaveformProbes:  ProbeDigital1,
		WaveformSamples: 128,
	})

	events, enableWaveform, probes, samples := rs.snapshot()
	require.Equal(t, 10, events)
	require.True(t, enableWaveform)
	require.Equal(t, ProbeDigital1, probes)
	require.Equal(t, 128, samples)
}

func TestEmulatorHandlerLifecycleTogglesRunning(t *testing.T) {
	e := newTestEmulator(DefaultConfig())
	machine := state.New(e)

	machine.Handle(state.Command{Kind: state.CmdConfigure, RunConfig: &state.RunConfig{RunNumber: 1}})
	machine.Handle(state.Command{Kind: state.CmdArm})
	require.False(t, e.running.Load())

	machine.Handle(state.Command{Kind: state.CmdStart, RunNumber: 1})
	require.True(t, e.running.Load())
	require.True(t, e.resetPending.Load())

	machine.Handle(state.Command{Kind: state.CmdStop})
	require.False(t, e.running.Load())
}

func TestEmulatorAppliesResetOnlyOnceAfterStart(t *testing.T) {
	e := newTestEmulator(DefaultConfig())
	e.sequenceNumber = 99
	e.timestampNs = 12345
	e.resetPending.Store(true)

	e.applyPendingReset()
	require.Equal(t, uint64(0), e.sequenceNumber)
	require.Equal(t, float64(0), e.timestampNs)
	require.False(t, e.resetPending.Load())

	e.sequenceNumber = 7
	e.applyPendingReset()
	require.Equal(t, uint64(7), e.sequenceNumber, "a second call without a new Start must not reset again")
}

func TestEmulatorAcceptsUpdateEmulatorConfig(t *testing.T) {
	e := newTestEmulator(DefaultConfig())
	msg := e.OnUpdateEmulatorConfig(state.EmulatorRuntimeConfig{EventsPerBatch: 42})
	require.Empty(t, msg)
	events, _, _, _ := e.settings.snapshot()
	require.Equal(t, 42, events)
}
