package monitor

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/aogaki/delila-go/internal/metrics"
	"github.com/aogaki/delila-go/internal/state"
	"github.com/aogaki/delila-go/internal/transport"
	"github.com/aogaki/delila-go/internal/wire"
)

// Monitor subscribes to the data plane, feeds every batch into its
// histogram engine, and serves read-only queries over HTTP.
type Monitor struct {
	cfg  Config
	eng  *engine
	http *httpServer

	counters metrics.Counters

	sub  *transport.Subscriber
	stop chan struct{}
	done chan struct{}
}

// New connects a Monitor's subscriber to cfg's upstream address and
// prepares its HTTP server; Run starts the server listening.
func New(cfg Config) (*Monitor, error) {
	sub, err := transport.NewSubscriber(cfg.SubscribeAddress)
	if err != nil {
		return nil, fmt.Errorf("monitor: subscribe: %w", err)
	}
	capacity := cfg.ChannelCapacity
	if capacity <= 0 {
		capacity = 1000
	}
	eng := newEngine(cfg.HistogramConfig, capacity)
	m := &Monitor{
		cfg:  cfg,
		eng:  eng,
		http: newHTTPServer(cfg.HTTPAddress, eng),
		sub:  sub,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	return m, nil
}

// Run spawns the engine and HTTP server goroutines and forwards the
// subscriber's data messages to the engine until Close fires.
func (m *Monitor) Run() {
	defer close(m.done)

	go m.eng.run()
	go func() {
		if err := m.http.start(); err != nil {
			log.Debug().Err(err).Msg("monitor HTTP server stopped")
		}
	}()

	msgs := m.sub.Messages()
	for {
		select {
		case <-m.stop:
			m.eng.close()
			return
		case msg, ok := <-msgs:
			if !ok {
				m.eng.close()
				return
			}
			m.handle(msg)
		}
	}
}

func (m *Monitor) handle(msg wire.Message) {
	switch {
	case msg.IsHeartbeat(), msg.IsEOS():
		return
	default:
		if msg.Batch == nil {
			return
		}
		m.counters.IncReceived()
		m.eng.submitBatch(*msg.Batch)
		m.counters.IncProcessed()
	}
}

// Close stops the run loop, the HTTP server, and the transport socket.
func (m *Monitor) Close() error {
	close(m.stop)
	<-m.done
	_ = m.http.close()
	m.sub.Close()
	return nil
}

// --- state.Handler ---

// OnConfigure is a no-op.
func (m *Monitor) OnConfigure(state.RunConfig) string { return "" }

// OnArm is a no-op.
func (m *Monitor) OnArm() string { return "" }

// OnStart resets counters and marks the histogram engine's run clock.
func (m *Monitor) OnStart(uint32) string {
	m.counters.Reset()
	m.eng.submitClear()
	m.eng.submitSetStartTime()
	return ""
}

// OnStop is a no-op: the monitor keeps accumulating histograms across
// Stop, since reviewing a completed run's spectra is the point.
func (m *Monitor) OnStop() string { return "" }

// OnReset clears the accumulated histograms.
func (m *Monitor) OnReset() string {
	m.eng.submitClear()
	return ""
}

// OnUpdateEmulatorConfig is not meaningful for the monitor.
func (m *Monitor) OnUpdateEmulatorConfig(state.EmulatorRuntimeConfig) string {
	return "monitor does not accept emulator configuration"
}

// StatusDetails summarizes throughput.
func (m *Monitor) StatusDetails() string {
	s := m.counters.Snapshot()
	snap := m.eng.Snapshot()
	return fmt.Sprintf("Received: %d, Processed: %d, Channels: %d, TotalEvents: %d",
		s.Received, s.Processed, len(snap.Histograms), snap.TotalEvents)
}

// Metrics returns the current metrics snapshot for GetStatus.
func (m *Monitor) Metrics() state.MetricsSnapshot {
	s := m.counters.Snapshot()
	return state.MetricsSnapshot{
		EventsProcessed:  s.Processed,
		BytesTransferred: s.Bytes,
	}
}
