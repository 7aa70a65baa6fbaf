// Package source implements the data source emulator: a standalone
// generator of synthetic physics events, publishing batches on a ZMQ PUB
// socket and answering the same Configure/Arm/Start/Stop/Reset command
// lifecycle as every other stage. Grounded on
// original_source/src/data_source_emulator/mod.rs.
package source

import "time"

// Probe bit masks select which waveform traces generateWaveform fills in.
// Bit-compatible in meaning with the original's waveform_probes module.
const (
	ProbeAnalog1  uint8 = 0b0000_0001
	ProbeAnalog2  uint8 = 0b0000_0010
	ProbeDigital1 uint8 = 0b0000_0100
	ProbeDigital2 uint8 = 0b0000_1000
	ProbeDigital3 uint8 = 0b0001_0000
	ProbeDigital4 uint8 = 0b0010_0000

	ProbesAllAnalog  = ProbeAnalog1 | ProbeAnalog2
	ProbesAllDigital = ProbeDigital1 | ProbeDigital2 | ProbeDigital3 | ProbeDigital4
	ProbesAll        = ProbesAllAnalog | ProbesAllDigital
)

// Config holds an emulator instance's fixed identity and its initial
// generation parameters (the latter also seed RuntimeSettings, which may
// be changed later via UpdateEmulatorConfig).
type Config struct {
	Address string
	// CommandAddress is a plain net.Listen TCP address (e.g. ":5560"), not
	// a ZMQ URL like Address — the control plane is a bare TCP/JSON codec.
	CommandAddress    string
	SourceID          uint32
	EventsPerBatch    int
	BatchInterval     time.Duration
	HeartbeatInterval time.Duration
	NumModules        uint8
	ChannelsPerModule uint8
	EnableWaveform    bool
	WaveformProbes    uint8
	WaveformSamples   int
}

// DefaultConfig mirrors the original's EmulatorConfig::default().
func DefaultConfig() Config {
	return Config{
		Address:           "tcp://*:5555",
		CommandAddress:    ":5560",
		SourceID:          0,
		EventsPerBatch:    100,
		BatchInterval:     100 * time.Millisecond,
		HeartbeatInterval: time.Second,
		NumModules:        1,
		ChannelsPerModule: 16,
		EnableWaveform:    false,
		WaveformProbes:    ProbesAllAnalog,
		WaveformSamples:   512,
	}
}
