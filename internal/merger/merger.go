// Package merger implements the N-subscriber, one-publisher fan-in stage:
// a receiver task tracks per-source sequence gaps and feeds a bounded
// queue, and a decoupled sender task drains the queue onto the downstream
// publisher, so a stalled publish never slows down receiving. Grounded on
// original_source/src/merger/mod.rs.
package merger

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/aogaki/delila-go/internal/metrics"
	"github.com/aogaki/delila-go/internal/state"
	"github.com/aogaki/delila-go/internal/transport"
	"github.com/aogaki/delila-go/internal/wire"
)

// Merger fans in N upstream publishers and republishes on one socket,
// tracking per-source sequence gaps and exposing itself as a
// state.Handler.
type Merger struct {
	cfg Config

	counters    metrics.Counters
	eosReceived atomic.Uint64
	rate        metrics.RateTracker
	sources     sync.Map // uint32 source id -> *SourceStats

	running atomic.Bool

	sub   *transport.Subscriber
	pub   *transport.Publisher
	queue chan wire.Message

	stop chan struct{}
	done chan struct{}
}

// New constructs a Merger, connecting its subscriber to cfg's upstream
// addresses and binding its publisher on cfg.PublishAddress.
func New(cfg Config) (*Merger, error) {
	if len(cfg.SubscribeAddresses) == 0 {
		return nil, fmt.Errorf("merger: no upstream addresses configured")
	}
	sub, err := transport.NewSubscriber(cfg.SubscribeAddresses...)
	if err != nil {
		return nil, fmt.Errorf("merger: subscribe: %w", err)
	}
	capacity := cfg.ChannelCapacity
	if capacity <= 0 {
		capacity = 1000
	}
	return &Merger{
		cfg:   cfg,
		sub:   sub,
		pub:   transport.NewPublisher(cfg.PublishAddress),
		queue: make(chan wire.Message, capacity),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}, nil
}

// Run spawns the sender task, runs the receiver inline until Close fires,
// then drains the sender before returning. Receiver runs inline (rather
// than as its own goroutine) so closing the queue strictly follows the
// receiver's exit, never racing its non-blocking sends.
func (m *Merger) Run() {
	senderDone := make(chan struct{})
	go func() {
		defer close(senderDone)
		m.send()
	}()

	m.receive()

	close(m.queue)
	<-senderDone
	close(m.done)
}

// receive consumes the subscriber's decoded message stream, updating
// sequence-tracking stats and forwarding onto the bounded queue. Messages
// observed while not Running are discarded without being counted, the
// closest Go equivalent of the original's "only poll the socket while
// Running" gate — goczmq's channeler has no way to pause delivery, so the
// gate moves from the read to the drop decision.
func (m *Merger) receive() {
	msgs := m.sub.Messages()
	for {
		var msg wire.Message
		select {
		case <-m.stop:
			return
		case got, ok := <-msgs:
			if !ok {
				return
			}
			msg = got
		}

		if !m.running.Load() {
			continue
		}

		switch {
		case msg.IsHeartbeat():
			log.Debug().Msg("merger received heartbeat")
		case msg.IsEOS():
			m.eosReceived.Add(1)
		default:
			if msg.Batch == nil {
				continue
			}
			m.counters.IncReceived()
			stats, _ := m.sources.LoadOrStore(msg.Batch.SourceID, &SourceStats{})
			if stats.(*SourceStats).Update(msg.Batch.SequenceNumber) {
				log.Warn().Uint32("source_id", msg.Batch.SourceID).Msg("source appears to have restarted")
			}
		}

		select {
		case m.queue <- msg:
		default:
			m.counters.IncDropped()
			log.Warn().Msg("merger queue full, dropped message")
		}
	}
}

// send drains the bounded queue onto the downstream publisher.
func (m *Merger) send() {
	for msg := range m.queue {
		if err := m.pub.Publish(msg); err != nil {
			log.Error().Err(err).Msg("merger failed to publish message")
			continue
		}
		m.counters.IncProcessed()
		if msg.Batch != nil {
			m.rate.Update(m.counters.Processed.Load())
		}
	}
}

// Close stops the receiver/sender tasks and releases the transport
// sockets.
func (m *Merger) Close() error {
	close(m.stop)
	<-m.done
	m.sub.Close()
	m.pub.Close()
	return nil
}

// --- state.Handler ---

// OnConfigure is a no-op: the merger has no per-run resources to prepare
// beyond the state machine's own RunConfig bookkeeping.
func (m *Merger) OnConfigure(state.RunConfig) string { return "" }

// OnArm is a no-op.
func (m *Merger) OnArm() string { return "" }

// OnStart resets stats for the new run and enables message forwarding.
func (m *Merger) OnStart(uint32) string {
	m.counters.Reset()
	m.rate.Reset()
	m.eosReceived.Store(0)
	m.sources.Range(func(key, _ any) bool {
		m.sources.Delete(key)
		return true
	})
	m.running.Store(true)
	return ""
}

// OnStop disables forwarding.
func (m *Merger) OnStop() string {
	m.running.Store(false)
	return ""
}

// OnReset disables forwarding and clears per-source stats.
func (m *Merger) OnReset() string {
	m.running.Store(false)
	m.sources.Range(func(key, _ any) bool {
		m.sources.Delete(key)
		return true
	})
	return ""
}

// OnUpdateEmulatorConfig is not meaningful for the merger.
func (m *Merger) OnUpdateEmulatorConfig(state.EmulatorRuntimeConfig) string {
	return "merger does not accept emulator configuration"
}

// StatusDetails summarizes throughput and gap-detection counters across
// all sources.
func (m *Merger) StatusDetails() string {
	s := m.counters.Snapshot()
	var gaps, missing uint64
	m.sources.Range(func(_, v any) bool {
		stat := v.(*SourceStats).Snapshot()
		gaps += stat.GapsDetected
		missing += stat.TotalGapSize
		return true
	})
	return fmt.Sprintf("Received: %d, Sent: %d, Dropped: %d, EOS: %d, Gaps: %d, Missing: %d",
		s.Received, s.Processed, s.Dropped, m.eosReceived.Load(), gaps, missing)
}

// Metrics returns the current metrics snapshot for GetStatus. Like the
// original, EventsProcessed here actually counts messages sent downstream
// (batches, heartbeats and EndOfStream markers alike), not individual
// events — the merger never unpacks a batch to count its events.
func (m *Merger) Metrics() state.MetricsSnapshot {
	s := m.counters.Snapshot()
	return state.MetricsSnapshot{
		EventsProcessed:  s.Processed,
		BytesTransferred: s.Bytes,
		QueueSize:        uint32(len(m.queue)),
		QueueMax:         uint32(cap(m.queue)),
		EventRate:        m.rate.Rate(),
	}
}

// SourceSnapshot returns a copy of the tracked stats for sourceID, or the
// zero value if nothing has been seen from it yet.
func (m *Merger) SourceSnapshot(sourceID uint32) SourceStats {
	v, ok := m.sources.Load(sourceID)
	if !ok {
		return SourceStats{}
	}
	return v.(*SourceStats).Snapshot()
}
