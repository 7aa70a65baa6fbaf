package monitor

import (
	"fmt"
)

// ChannelKey identifies one digitizer channel's histogram.
type ChannelKey struct {
	ModuleID  uint32
	ChannelID uint32
}

// MarshalText renders the key as "module:channel" so it can serve as a
// JSON object key — encoding/json only accepts string-like map keys, and
// this is the one place a ChannelKey crosses that boundary (StateSnapshot).
func (k ChannelKey) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("%d:%d", k.ModuleID, k.ChannelID)), nil
}

// UnmarshalText parses the "module:channel" form MarshalText produces.
func (k *ChannelKey) UnmarshalText(text []byte) error {
	var module, channel uint32
	if _, err := fmt.Sscanf(string(text), "%d:%d", &module, &channel); err != nil {
		return fmt.Errorf("monitor: invalid channel key %q: %w", text, err)
	}
	k.ModuleID = module
	k.ChannelID = channel
	return nil
}

// Histogram1D accumulates one channel's energy spectrum. It is owned
// exclusively by the engine goroutine; callers only ever see copies
// returned through a snapshot query, never a live pointer, so Fill never
// needs to synchronize against a reader.
type Histogram1D struct {
	ModuleID    uint32
	ChannelID   uint32
	Config      HistogramConfig
	Bins        []uint64
	TotalCounts uint64
	Overflow    uint64
	Underflow   uint64
}

// NewHistogram1D allocates a zeroed histogram with cfg's binning.
func NewHistogram1D(moduleID, channelID uint32, cfg HistogramConfig) *Histogram1D {
	return &Histogram1D{
		ModuleID:  moduleID,
		ChannelID: channelID,
		Config:    cfg,
		Bins:      make([]uint64, cfg.NumBins),
	}
}

// Fill bins one value, counting it as underflow/overflow if it falls
// outside [MinValue, MaxValue).
func (h *Histogram1D) Fill(value float32) {
	h.TotalCounts++

	if value < h.Config.MinValue {
		h.Underflow++
		return
	}
	if value >= h.Config.MaxValue {
		h.Overflow++
		return
	}

	binWidth := (h.Config.MaxValue - h.Config.MinValue) / float32(h.Config.NumBins)
	bin := int((value - h.Config.MinValue) / binWidth)
	if bin >= 0 && bin < len(h.Bins) {
		h.Bins[bin]++
	} else {
		h.Overflow++
	}
}

// Clear zeroes the histogram's bins and counters in place.
func (h *Histogram1D) Clear() {
	for i := range h.Bins {
		h.Bins[i] = 0
	}
	h.TotalCounts = 0
	h.Overflow = 0
	h.Underflow = 0
}

// Clone returns a deep copy safe to hand to a caller outside the engine
// goroutine.
func (h *Histogram1D) Clone() *Histogram1D {
	c := *h
	c.Bins = append([]uint64(nil), h.Bins...)
	return &c
}
