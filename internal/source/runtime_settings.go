package source

import (
	"sync"

	"github.com/aogaki/delila-go/internal/state"
)

// runtimeSettings holds the subset of Config that UpdateEmulatorConfig may
// change while the emulator is running. The original guards each field
// with its own atomic; Go has no packed-atomic-struct equivalent and none
// of these fields are meaningfully read or written independently of the
// others, so one mutex covers the lot.
type runtimeSettings struct {
	mu sync.Mutex

	eventsPerBatch  int
	batchInterval   uint64 // milliseconds; stored but not read back, same as upstream: the batch ticker is fixed at startup
	enableWaveform  bool
	waveformProbes  uint8
	waveformSamples int
}

func newRuntimeSettings(cfg Config) *runtimeSettings {
	return &runtimeSettings{
		eventsPerBatch:  cfg.EventsPerBatch,
		batchInterval:   uint64(cfg.BatchInterval.Milliseconds()),
		enableWaveform:  cfg.EnableWaveform,
		waveformProbes:  cfg.WaveformProbes,
		waveformSamples: cfg.WaveformSamples,
	}
}

func (r *runtimeSettings) update(cfg state.EmulatorRuntimeConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.eventsPerBatch = int(cfg.EventsPerBatch)
	r.batchInterval = cfg.BatchIntervalMs
	r.enableWaveform = cfg.EnableWaveform
	r.waveformProbes = cfg.WaveformProbes
	r.waveformSamples = int(cfg.WaveformSamples)
}

// snapshot is used by the data-generation loop; reading all fields under
// one lock keeps a batch's parameters internally consistent even if a
// config update lands mid-batch.
func (r *runtimeSettings) snapshot() (eventsPerBatch int, enableWaveform bool, probes uint8, samples int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.eventsPerBatch, r.enableWaveform, r.waveformProbes, r.waveformSamples
}
