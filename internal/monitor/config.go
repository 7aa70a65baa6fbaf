// Package monitor implements the real-time histogram monitoring stage: a
// subscriber that bins incoming event energies per (module, channel) and
// answers read-only snapshot queries over HTTP, without ever taking a lock
// on the hot fill path. Grounded on original_source/src/monitor/mod.rs.
package monitor

// HistogramConfig describes one histogram's binning.
type HistogramConfig struct {
	NumBins  uint32
	MinValue float32
	MaxValue float32
}

// DefaultHistogramConfig mirrors the original's HistogramConfig::default():
// 4096 bins spanning the full 16-bit ADC range.
func DefaultHistogramConfig() HistogramConfig {
	return HistogramConfig{NumBins: 4096, MinValue: 0.0, MaxValue: 65535.0}
}

// Config holds a monitor instance's transport addresses and default
// histogram shape.
type Config struct {
	SubscribeAddress string
	// CommandAddress is a plain net.Listen TCP address (e.g. ":5590"), not
	// a ZMQ URL like SubscribeAddress — the control plane is a bare
	// TCP/JSON codec. HTTPAddress follows the same plain net/http
	// convention.
	CommandAddress  string
	HTTPAddress     string
	HistogramConfig HistogramConfig
	ChannelCapacity int
}

// DefaultConfig mirrors the original's MonitorConfig::default().
func DefaultConfig() Config {
	return Config{
		SubscribeAddress: "tcp://localhost:5557",
		CommandAddress:   ":5590",
		HTTPAddress:      ":8081",
		HistogramConfig:  DefaultHistogramConfig(),
		ChannelCapacity:  1000,
	}
}
