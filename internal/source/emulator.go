package source

import (
	"fmt"
	mrand "math/rand"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aogaki/delila-go/internal/metrics"
	"github.com/aogaki/delila-go/internal/state"
	"github.com/aogaki/delila-go/internal/transport"
	"github.com/aogaki/delila-go/internal/wire"
)

// Emulator generates synthetic physics events and publishes them on a ZMQ
// PUB socket, driven by the same Configure/Arm/Start/Stop/Reset lifecycle
// as every other stage.
type Emulator struct {
	cfg      Config
	settings *runtimeSettings

	pub *transport.Publisher
	rng *mrand.Rand

	counters metrics.Counters
	rate     metrics.RateTracker

	sequenceNumber   uint64
	timestampNs      float64
	heartbeatCounter uint64

	running      atomic.Bool
	resetPending atomic.Bool

	stop chan struct{}
	done chan struct{}
}

// New binds the emulator's publish socket and returns it ready to run,
// Idle until Configure/Arm/Start drives it Running.
func New(cfg Config) *Emulator {
	return &Emulator{
		cfg:      cfg,
		settings: newRuntimeSettings(cfg),
		pub:      transport.NewPublisher(cfg.Address),
		rng:      newRand(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run generates and publishes batches while Running, honoring cfg's batch
// interval, and emits heartbeats on a separate cadence. An interval of
// zero runs uncooperatively fast — no ticker delay between batches — but
// still yields between iterations so the control-plane goroutine gets to
// run, matching the original's "full speed mode" branch.
func (e *Emulator) Run() {
	defer close(e.done)

	useTicker := e.cfg.BatchInterval > 0
	var ticker *time.Ticker
	if useTicker {
		ticker = time.NewTicker(e.cfg.BatchInterval)
		defer ticker.Stop()
	}

	useHeartbeat := e.cfg.HeartbeatInterval > 0
	var heartbeatTicker *time.Ticker
	if useHeartbeat {
		heartbeatTicker = time.NewTicker(e.cfg.HeartbeatInterval)
		defer heartbeatTicker.Stop()
	}

	var heartbeats <-chan time.Time
	if heartbeatTicker != nil {
		heartbeats = heartbeatTicker.C
	}

	if useTicker {
		var ticks <-chan time.Time = ticker.C
		for {
			select {
			case <-e.stop:
				e.sendEOSIfRunning()
				return
			case <-heartbeats:
				if e.running.Load() {
					e.sendHeartbeat()
				}
			case <-ticks:
				if e.running.Load() {
					e.publishBatch()
				}
			}
		}
	}

	for {
		select {
		case <-e.stop:
			e.sendEOSIfRunning()
			return
		case <-heartbeats:
			if e.running.Load() {
				e.sendHeartbeat()
			}
			continue
		default:
		}

		if e.running.Load() {
			e.publishBatch()
		} else {
			time.Sleep(time.Millisecond)
		}
	}
}

// applyPendingReset zeroes sequence/timestamp/heartbeat state once per
// Start, consumed from the run loop's own goroutine so these plain fields
// never need synchronization against OnStart's goroutine.
func (e *Emulator) applyPendingReset() {
	if e.resetPending.CompareAndSwap(true, false) {
		e.sequenceNumber = 0
		e.timestampNs = 0
		e.heartbeatCounter = 0
	}
}

func (e *Emulator) publishBatch() {
	e.applyPendingReset()
	batch := e.generateBatch()
	events := uint64(batch.Len())
	msg := wire.DataMessage(batch)
	data, err := msg.ToMsgpack()
	if err != nil {
		log.Error().Err(err).Msg("emulator failed to encode batch")
		return
	}
	if err := e.pub.Publish(msg); err != nil {
		log.Error().Err(err).Msg("emulator failed to publish batch")
		return
	}
	e.counters.AddEventsProcessed(events)
	e.counters.IncProcessed()
	e.counters.AddBytes(uint64(len(data)))
	e.rate.Update(e.counters.EventsProcessed.Load())
}

func (e *Emulator) sendHeartbeat() {
	e.applyPendingReset()
	msg := wire.HeartbeatMessage(e.cfg.SourceID, e.heartbeatCounter)
	e.heartbeatCounter++
	if err := e.pub.Publish(msg); err != nil {
		log.Error().Err(err).Msg("emulator failed to publish heartbeat")
	}
}

func (e *Emulator) sendEOSIfRunning() {
	if !e.running.Load() {
		return
	}
	if err := e.pub.Publish(wire.EOSMessage(e.cfg.SourceID)); err != nil {
		log.Error().Err(err).Msg("emulator failed to publish end-of-stream")
	}
}

// Close stops the run loop and releases the publish socket.
func (e *Emulator) Close() error {
	close(e.stop)
	<-e.done
	e.pub.Close()
	return nil
}

// --- state.Handler ---

// OnConfigure is a no-op: the emulator has no per-run resources to
// prepare beyond the state machine's own RunConfig bookkeeping.
func (e *Emulator) OnConfigure(state.RunConfig) string { return "" }

// OnArm is a no-op.
func (e *Emulator) OnArm() string { return "" }

// OnStart enables data generation and schedules a sequence/timestamp/
// heartbeat reset. The reset itself is applied on the run loop's own
// goroutine (see applyPendingReset) rather than here, since sequenceNumber
// and timestampNs are plain fields the run loop owns exclusively.
func (e *Emulator) OnStart(uint32) string {
	e.counters.Reset()
	e.rate.Reset()
	e.resetPending.Store(true)
	e.running.Store(true)
	return ""
}

// OnStop disables data generation.
func (e *Emulator) OnStop() string {
	e.running.Store(false)
	return ""
}

// OnReset disables data generation.
func (e *Emulator) OnReset() string {
	e.running.Store(false)
	return ""
}

// OnUpdateEmulatorConfig swaps in new generation parameters without
// requiring a full Configure/Arm/Start cycle.
func (e *Emulator) OnUpdateEmulatorConfig(cfg state.EmulatorRuntimeConfig) string {
	e.settings.update(cfg)
	log.Info().
		Uint32("events_per_batch", cfg.EventsPerBatch).
		Uint64("batch_interval_ms", cfg.BatchIntervalMs).
		Bool("enable_waveform", cfg.EnableWaveform).
		Msg("emulator runtime settings updated")
	return ""
}

// StatusDetails summarizes generation throughput.
func (e *Emulator) StatusDetails() string {
	s := e.counters.Snapshot()
	return fmt.Sprintf("Events: %d, Batches: %d, Bytes: %d", s.EventsProcessed, s.Processed, s.Bytes)
}

// Metrics returns the current metrics snapshot for GetStatus.
func (e *Emulator) Metrics() state.MetricsSnapshot {
	s := e.counters.Snapshot()
	return state.MetricsSnapshot{
		EventsProcessed:  s.EventsProcessed,
		BytesTransferred: s.Bytes,
		EventRate:        e.rate.Rate(),
	}
}
