// Package sink implements the simplest possible pipeline consumer: it
// subscribes, tracks per-source sequence gaps and throughput metrics like
// every other stage, and discards payloads rather than forwarding or
// persisting them. Used as an end-to-end pipeline terminus in tests,
// grounded directly on internal/merger's receiver task minus the publish
// side (same backpressure policy: never block the receive loop).
package sink

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

// Sink consumes one upstream publisher (typically the merger's output),
// discarding every batch after accounting for it.
type Sink struct {
	cfg Config

	counters    metrics.Counters
	eosReceived atomic.Uint64
	rate        metrics.RateTracker
	sources     sync.Map // uint32 source id -> *sourceStats

	running atomic.Bool

	sub *transport.Subscriber

	stop chan struct{}
	done chan struct{}
}

// New constructs a Sink, connecting its subscriber to cfg's upstream
// addresses.
func New(cfg Config) (*Sink, error) {
	if len(cfg.SubscribeAddresses) == 0 {
		return nil, fmt.Errorf("sink: no upstream addresses configured")
	}
	sub, err := transport.NewSubscriber(cfg.SubscribeAddresses...)
	if err != nil {
		return nil, fmt.Errorf("sink: subscribe: %w", err)
	}
	return &Sink{
		cfg:  cfg,
		sub:  sub,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}, nil
}

// Run consumes the subscriber's decoded message stream until Close fires.
// Messages observed while not Running are discarded without being
// counted, mirroring merger.Merger.receive's gate.
func (s *Sink) Run() {
	defer close(s.done)
	msgs := s.sub.Messages()
	for {
		var msg wire.Message
		select {
		case <-s.stop:
			return
		case got, ok := <-msgs:
			if !ok {
				return
			}
			msg = got
		}

		if !s.running.Load() {
			continue
		}

		switch {
		case msg.IsHeartbeat():
			log.Debug().Msg("sink received heartbeat")
		case msg.IsEOS():
			s.eosReceived.Add(1)
		default:
			if msg.Batch == nil {
				continue
			}
			s.counters.IncReceived()
			stats, _ := s.sources.LoadOrStore(msg.Batch.SourceID, &sourceStats{})
			stats.(*sourceStats).update(msg.Batch.SequenceNumber)
			s.counters.AddEventsProcessed(uint64(len(msg.Batch.Events)))
			s.counters.IncProcessed()
			s.rate.Update(s.counters.Processed.Load())
		}
	}
}

// Close stops the receive loop and releases the subscriber socket.
func (s *Sink) Close() error {
	close(s.stop)
	<-s.done
	s.sub.Close()
	return nil
}

// --- state.Handler ---

// OnConfigure is a no-op: a sink has no per-run resources to prepare.
func (s *Sink) OnConfigure(state.RunConfig) string { return "" }

// OnArm is a no-op.
func (s *Sink) OnArm() string { return "" }

// OnStart resets stats for the new run and enables message consumption.
func (s *Sink) OnStart(uint32) string {
	s.counters.Reset()
	s.rate.Reset()
	s.eosReceived.Store(0)
	s.sources.Range(func(key, _ any) bool {
		s.sources.Delete(key)
		return true
	})
	s.running.Store(true)
	return ""
}

// OnStop disables consumption.
func (s *Sink) OnStop() string {
	s.running.Store(false)
	return ""
}

// OnReset disables consumption and clears per-source stats.
func (s *Sink) OnReset() string {
	s.running.Store(false)
	s.sources.Range(func(key, _ any) bool {
		s.sources.Delete(key)
		return true
	})
	return ""
}

// OnUpdateEmulatorConfig is not meaningful for the sink.
func (s *Sink) OnUpdateEmulatorConfig(state.EmulatorRuntimeConfig) string {
	return "sink does not accept emulator configuration"
}

// StatusDetails summarizes throughput and gap-detection counters across
// all sources.
func (s *Sink) StatusDetails() string {
	c := s.counters.Snapshot()
	var gaps, missing uint64
	s.sources.Range(func(_, v any) bool {
		stat := v.(*sourceStats).snapshot()
		gaps += stat.GapsDetected
		missing += stat.TotalGapSize
		return true
	})
	return fmt.Sprintf("Received: %d, Consumed: %d, EOS: %d, Gaps: %d, Missing: %d",
		c.Received, c.Processed, s.eosReceived.Load(), gaps, missing)
}

// Metrics returns the current metrics snapshot for GetStatus.
func (s *Sink) Metrics() state.MetricsSnapshot {
	c := s.counters.Snapshot()
	return state.MetricsSnapshot{
		EventsProcessed:  c.EventsProcessed,
		BytesTransferred: c.Bytes,
		EventRate:        s.rate.Rate(),
	}
}

// SourceBatches returns how many batches have been seen from sourceID, or
// 0 if nothing has arrived from it yet.
func (s *Sink) SourceBatches(sourceID uint32) uint64 {
	v, ok := s.sources.Load(sourceID)
	if !ok {
		return 0
	}
	return v.(*sourceStats).snapshot().TotalBatches
}
