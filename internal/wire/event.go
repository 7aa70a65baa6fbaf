// Package wire defines the data-plane payload types — EventData, Batch,
// Heartbeat, and the Message union that frames them — and their
// MessagePack encoding, grounded on original_source/src/common/mod.rs.
package wire

// Flag bits carried in EventData.Flags, bit-compatible in meaning (not
// necessarily in memory layout — Go has no packed-struct equivalent of the
// original's repr(C, packed), so we encode via MessagePack instead of
// relying on raw struct layout) with the original C++ EventData.
const (
	FlagPileup       uint64 = 0x01
	FlagTriggerLost  uint64 = 0x02
	FlagOverRange    uint64 = 0x04
	Flag1024Trigger  uint64 = 0x08
	FlagNLostTrigger uint64 = 0x10
)

// Waveform carries the optional per-event sampled trace: two analog probes
// and four bit-packed digital probes, plus the acquisition parameters
// needed to interpret them.
type Waveform struct {
	AnalogProbe1     []int16 `msgpack:"analog_probe1"`
	AnalogProbe2     []int16 `msgpack:"analog_probe2"`
	DigitalProbe1    []byte  `msgpack:"digital_probe1"`
	DigitalProbe2    []byte  `msgpack:"digital_probe2"`
	DigitalProbe3    []byte  `msgpack:"digital_probe3"`
	DigitalProbe4    []byte  `msgpack:"digital_probe4"`
	TimeResolution   uint8   `msgpack:"time_resolution"`
	TriggerThreshold int16   `msgpack:"trigger_threshold"`
}

// EventData is one physics pulse.
type EventData struct {
	Module      uint8     `msgpack:"module"`
	Channel     uint8     `msgpack:"channel"`
	Energy      uint16    `msgpack:"energy"`
	EnergyShort uint16    `msgpack:"energy_short"`
	TimestampNs float64   `msgpack:"timestamp_ns"`
	Flags       uint64    `msgpack:"flags"`
	Waveform    *Waveform `msgpack:"waveform,omitempty"`
}

// NewEventData builds an EventData with no waveform.
func NewEventData(module, channel uint8, energy, energyShort uint16, timestampNs float64, flags uint64) EventData {
	return EventData{
		Module:      module,
		Channel:     channel,
		Energy:      energy,
		EnergyShort: energyShort,
		TimestampNs: timestampNs,
		Flags:       flags,
	}
}

// NewEventDataWithWaveform builds an EventData carrying a waveform.
func NewEventDataWithWaveform(module, channel uint8, energy, energyShort uint16, timestampNs float64, flags uint64, wf Waveform) EventData {
	e := NewEventData(module, channel, energy, energyShort, timestampNs, flags)
	e.Waveform = &wf
	return e
}

// HasPileup reports the pileup flag.
func (e EventData) HasPileup() bool { return e.Flags&FlagPileup != 0 }

// HasTriggerLost reports the trigger-lost flag.
func (e EventData) HasTriggerLost() bool { return e.Flags&FlagTriggerLost != 0 }

// HasOverRange reports the over-range flag.
func (e EventData) HasOverRange() bool { return e.Flags&FlagOverRange != 0 }
