package source

import (
	"math"
	"math/rand"

	"github.com/aogaki/delila-go/internal/wire"
)

// generateWaveform synthesizes a realistic pulse trace: a small baseline
// fluctuation, a fast linear rise, then an exponential decay, with the
// trigger position randomized within the window. Digital probes are
// bit-packed one bit per sample. Grounded on
// original_source/src/data_source_emulator/mod.rs's generate_waveform.
func generateWaveform(rng *rand.Rand, energy uint16, probes uint8, n int) wire.Waveform {
	const (
		riseTime = 5
		decayTau = 50.0
	)

	baseline := int16(rng.Intn(100) - 50) // [-50, 50)
	amplitude := int16(float64(energy) / 65535.0 * 8000.0)
	pulseStart := n/4 + rng.Intn(n/2-n/4)

	var analog1, analog2 []int16
	if probes&ProbeAnalog1 != 0 {
		analog1 = make([]int16, n)
		for i := 0; i < n; i++ {
			switch {
			case i < pulseStart:
				analog1[i] = baseline
			case i < pulseStart+riseTime:
				frac := float64(i-pulseStart) / float64(riseTime)
				analog1[i] = baseline + int16(float64(amplitude)*frac)
			default:
				t := float64(i - pulseStart - riseTime)
				analog1[i] = baseline + int16(float64(amplitude)*math.Exp(-t/decayTau))
			}
		}
	}

	if probes&ProbeAnalog2 != 0 {
		analog2 = make([]int16, n)
		for i := 0; i < n; i++ {
			switch {
			case i < pulseStart || i >= pulseStart+riseTime+100:
				analog2[i] = 0
			case i < pulseStart+riseTime:
				analog2[i] = amplitude / 4
			default:
				t := float64(i - pulseStart - riseTime)
				analog2[i] = int16(-(float64(amplitude) / 4.0) * math.Exp(-t/decayTau))
			}
		}
	}

	var digital1, digital2, digital3, digital4 []byte
	if probes&ProbeDigital1 != 0 {
		digital1 = packBits(n, pulseStart, pulseStart+50)
	}
	if probes&ProbeDigital2 != 0 {
		digital2 = packBits(n, pulseStart, pulseStart+100)
	}
	if probes&ProbeDigital3 != 0 {
		digital3 = packBits(n, pulseStart, pulseStart+30)
	}
	if probes&ProbeDigital4 != 0 {
		// Pileup indicator: always low in this simple simulation.
		digital4 = make([]byte, (n+7)/8)
	}

	return wire.Waveform{
		AnalogProbe1:     analog1,
		AnalogProbe2:     analog2,
		DigitalProbe1:    digital1,
		DigitalProbe2:    digital2,
		DigitalProbe3:    digital3,
		DigitalProbe4:    digital4,
		TimeResolution:   0,
		TriggerThreshold: 100,
	}
}

// packBits sets one bit per sample in [start, end) (clamped to n), 8
// samples per byte.
func packBits(n, start, end int) []byte {
	bits := make([]byte, (n+7)/8)
	if end > n {
		end = n
	}
	for i := start; i < end; i++ {
		bits[i/8] |= 1 << (uint(i) % 8)
	}
	return bits
}
