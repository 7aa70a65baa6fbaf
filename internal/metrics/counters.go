// Package metrics provides the lock-free hot-path counters shared by every
// pipeline stage, grounded on original_source/src/common/metrics.rs's
// AtomicCounters. All operations are relaxed-ordering atomics: snapshots are
// eventually consistent, which is acceptable for monitoring counters.
package metrics

import (
	"fmt"
	"sync/atomic"

	"github.com/aogaki/delila-go/internal/state"
)

// Counters is the common atomic counter set tracked by every stage.
type Counters struct {
	Received        atomic.Uint64
	Processed       atomic.Uint64
	Dropped         atomic.Uint64
	EventsReceived  atomic.Uint64
	EventsProcessed atomic.Uint64
	Bytes           atomic.Uint64
}

// IncReceived increments the received-batch counter by one.
func (c *Counters) IncReceived() { c.Received.Add(1) }

// IncProcessed increments the processed-batch counter by one.
func (c *Counters) IncProcessed() { c.Processed.Add(1) }

// IncDropped increments the dropped-batch counter by one.
func (c *Counters) IncDropped() { c.Dropped.Add(1) }

// AddEventsReceived adds n to the events-received counter.
func (c *Counters) AddEventsReceived(n uint64) { c.EventsReceived.Add(n) }

// AddEventsProcessed adds n to the events-processed counter.
func (c *Counters) AddEventsProcessed(n uint64) { c.EventsProcessed.Add(n) }

// AddBytes adds n to the bytes-transferred counter.
func (c *Counters) AddBytes(n uint64) { c.Bytes.Add(n) }

// Snapshot copies the current counter values.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Received:        c.Received.Load(),
		Processed:       c.Processed.Load(),
		Dropped:         c.Dropped.Load(),
		EventsReceived:  c.EventsReceived.Load(),
		EventsProcessed: c.EventsProcessed.Load(),
		Bytes:           c.Bytes.Load(),
	}
}

// Reset zeroes every counter. Used on Start so each run's metrics begin
// fresh.
func (c *Counters) Reset() {
	c.Received.Store(0)
	c.Processed.Store(0)
	c.Dropped.Store(0)
	c.EventsReceived.Store(0)
	c.EventsProcessed.Store(0)
	c.Bytes.Store(0)
}

// Snapshot is an immutable point-in-time copy of Counters.
type Snapshot struct {
	Received        uint64
	Processed       uint64
	Dropped         uint64
	EventsReceived  uint64
	EventsProcessed uint64
	Bytes           uint64
}

// ToState adapts a Snapshot into the wire-level MetricsSnapshot embedded in
// a command reply. queueSize/queueMax are supplied by the caller since
// queue depth belongs to the stage's transport layer, not the counters.
func (s Snapshot) ToState(queueSize, queueMax uint32, rate RateSnapshot) state.MetricsSnapshot {
	return state.MetricsSnapshot{
		EventsProcessed:  s.EventsProcessed,
		BytesTransferred: s.Bytes,
		QueueSize:        queueSize,
		QueueMax:         queueMax,
		EventRate:        rate.EventsRate,
		DataRate:         rate.BytesRate,
	}
}

// RateFrom computes per-second deltas between s and an earlier snapshot
// prev, given the elapsed time in seconds. Saturating subtraction protects
// against a Reset happening between snapshots.
func (s Snapshot) RateFrom(prev Snapshot, elapsedSecs float64) RateSnapshot {
	if elapsedSecs <= 0 {
		return RateSnapshot{}
	}
	return RateSnapshot{
		ReceivedRate:  satSub(s.Received, prev.Received) / elapsedSecs,
		ProcessedRate: satSub(s.Processed, prev.Processed) / elapsedSecs,
		EventsRate:    satSub(s.EventsProcessed, prev.EventsProcessed) / elapsedSecs,
		BytesRate:     satSub(s.Bytes, prev.Bytes) / elapsedSecs,
	}
}

func satSub(a, b uint64) float64 {
	if a < b {
		return 0
	}
	return float64(a - b)
}

// RateSnapshot holds per-second rates derived from two Snapshots.
type RateSnapshot struct {
	ReceivedRate  float64
	ProcessedRate float64
	EventsRate    float64
	BytesRate     float64
}

// FormatBytesRate renders BytesRate as a human-readable throughput string.
func (r RateSnapshot) FormatBytesRate() string {
	switch {
	case r.BytesRate >= 1_000_000_000:
		return fmt.Sprintf("%.2f GB/s", r.BytesRate/1_000_000_000)
	case r.BytesRate >= 1_000_000:
		return fmt.Sprintf("%.2f MB/s", r.BytesRate/1_000_000)
	case r.BytesRate >= 1_000:
		return fmt.Sprintf("%.2f KB/s", r.BytesRate/1_000)
	default:
		return fmt.Sprintf("%.0f B/s", r.BytesRate)
	}
}

// FormatEventsRate renders EventsRate as a human-readable throughput string.
func (r RateSnapshot) FormatEventsRate() string {
	switch {
	case r.EventsRate >= 1_000_000:
		return fmt.Sprintf("%.2f M/s", r.EventsRate/1_000_000)
	case r.EventsRate >= 1_000:
		return fmt.Sprintf("%.2f K/s", r.EventsRate/1_000)
	default:
		return fmt.Sprintf("%.0f /s", r.EventsRate)
	}
}
