package source

import (
	"math/rand"

	"github.com/aogaki/delila-go/internal/wire"
)

const backgroundRatio = 0.3

// generateBatch fills a batch of synthetic events: 30% uniform background
// noise across the full 12-bit ADC range, 70% a Gaussian peak centered on
// module*1000 + channel*50 + 500 with sigma 50, so each channel shows a
// distinct peak over a realistic background. Grounded on
// original_source/src/data_source_emulator/mod.rs's generate_batch.
func (e *Emulator) generateBatch() wire.Batch {
	eventsPerBatch, enableWaveform, probes, samples := e.settings.snapshot()
	module := uint8(e.cfg.SourceID)

	batch := wire.NewBatchWithCapacity(e.cfg.SourceID, e.sequenceNumber, eventsPerBatch)

	for i := 0; i < eventsPerBatch; i++ {
		channel := uint8(e.rng.Intn(int(e.cfg.ChannelsPerModule)))

		var energy uint16
		if e.rng.Float64() < backgroundRatio {
			energy = uint16(e.rng.Intn(4096))
		} else {
			mean := float64(module)*1000.0 + float64(channel)*50.0 + 500.0
			const sigma = 50.0
			v := e.rng.NormFloat64()*sigma + mean
			energy = clampUint16(v)
		}

		shortRatio := 0.75 + (e.rng.Float64()*0.1 - 0.05) // 0.75 +/- 0.05
		energyShort := clampUint16(float64(energy) * shortRatio)

		e.timestampNs += 10.0 + e.rng.Float64()*990.0 // uniform in [10, 1000)

		var flags uint64
		switch {
		case e.rng.Intn(100) == 0:
			flags = wire.FlagPileup
		case e.rng.Intn(1000) == 0:
			flags = wire.FlagOverRange
		}

		var event wire.EventData
		if enableWaveform {
			wf := generateWaveform(e.rng, energy, probes, samples)
			event = wire.NewEventDataWithWaveform(module, channel, energy, energyShort, e.timestampNs, flags, wf)
		} else {
			event = wire.NewEventData(module, channel, energy, energyShort, e.timestampNs, flags)
		}
		batch.Push(event)
	}

	e.sequenceNumber++
	return batch
}

func clampUint16(v float64) uint16 {
	switch {
	case v < 0:
		return 0
	case v > 65535:
		return 65535
	default:
		return uint16(v)
	}
}

// newRand seeds a *rand.Rand private to one Emulator, avoiding contention
// on the package-level global source that math/rand's top-level functions
// share.
func newRand() *rand.Rand {
	return rand.New(rand.NewSource(rand.Int63()))
}
