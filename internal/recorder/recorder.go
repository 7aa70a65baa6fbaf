package recorder

import (
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/aogaki/delila-go/internal/metrics"
	"github.com/aogaki/delila-go/internal/state"
	"github.com/aogaki/delila-go/internal/transport"
	"github.com/aogaki/delila-go/internal/wire"
)

// Recorder is the storage-engine component: it subscribes to the merged
// data plane, hands each batch to a FileWriter, and exposes itself as a
// state.Handler so the control plane can drive Configure/Arm/Start/Stop/
// Reset against it.
type Recorder struct {
	writer   *FileWriter
	counters metrics.Counters
	rate     metrics.RateTracker

	sub *transport.Subscriber

	filesWritten atomic.Uint64
	failed       atomic.Bool
	stop         chan struct{}
	done         chan struct{}

	// failer reports a fatal writer error to the owning state.Machine.
	// Unset by default so Recorder can be constructed and tested without
	// one; cmd/delila-recorder wires it to machine.Fail once the machine
	// exists.
	failer func(msg string)
}

// SetFailHandler installs the callback invoked when the writer hits a
// fatal serialize or I/O error. Call once, after state.New(r), before Run.
func (r *Recorder) SetFailHandler(f func(msg string)) {
	r.failer = f
}

// New constructs a Recorder that will subscribe to addresses once Run is
// called.
func New(cfg Config, addresses ...string) (*Recorder, error) {
	sub, err := transport.NewSubscriber(addresses...)
	if err != nil {
		return nil, fmt.Errorf("recorder: subscribe: %w", err)
	}
	return &Recorder{
		writer: NewFileWriter(cfg),
		sub:    sub,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}, nil
}

// Run consumes the subscriber's message channel until Close is called,
// writing data batches and closing the current file on EndOfStream.
func (r *Recorder) Run() {
	defer close(r.done)
	msgs := r.sub.Messages()
	for {
		select {
		case <-r.stop:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			r.handle(msg)
		}
	}
}

func (r *Recorder) handle(msg wire.Message) {
	if r.failed.Load() {
		// Writer already hit a fatal error; everything is discarded until
		// an operator issues Reset.
		return
	}
	switch {
	case msg.IsHeartbeat():
		// Heartbeats carry no data: ignored and not counted.
		return
	case msg.IsEOS():
		log.Info().Uint32("source_id", msg.Source()).Msg("end of stream, flushing current file")
		if err := r.writer.CloseFile(); err != nil {
			log.Error().Err(err).Msg("fatal: failed to close file on end of stream")
			r.writer.ForceClose()
			r.fail(fmt.Sprintf("writer close failed: %v", err))
			return
		}
	default:
		batch := msg.Batch
		if batch == nil {
			return
		}
		r.counters.IncReceived()
		r.counters.AddEventsReceived(uint64(batch.Len()))

		wasOpen := r.writer.file != nil
		if err := r.writer.WriteBatch(*batch); err != nil {
			log.Error().Err(err).Msg("fatal: failed to write batch")
			r.counters.IncDropped()
			r.writer.ForceClose()
			r.fail(fmt.Sprintf("writer write failed: %v", err))
			return
		}
		if !wasOpen && r.writer.file != nil {
			r.filesWritten.Add(1)
		}

		r.counters.IncProcessed()
		r.counters.AddEventsProcessed(uint64(batch.Len()))
		r.rate.Update(r.counters.EventsProcessed.Load())
	}
}

// fail marks the recorder halted and reports msg to the owning
// state.Machine, if one is wired, driving the stage into Error.
func (r *Recorder) fail(msg string) {
	r.failed.Store(true)
	if r.failer != nil {
		r.failer(msg)
	}
}

// Close stops the run loop and tears down the subscriber.
func (r *Recorder) Close() error {
	close(r.stop)
	<-r.done
	r.sub.Close()
	return nil
}

// --- state.Handler ---

// OnConfigure prepares the writer for a new run; the file itself is opened
// lazily on the first batch after Start.
func (r *Recorder) OnConfigure(cfg state.RunConfig) string {
	r.writer.NewRun(cfg)
	return ""
}

// OnArm is a no-op for the recorder: nothing needs preparing between Arm
// and Start.
func (r *Recorder) OnArm() string { return "" }

// OnStart enables writing for runNumber, resetting the run's counters and
// file sequence.
func (r *Recorder) OnStart(runNumber uint32) string {
	r.counters.Reset()
	r.rate.Reset()
	r.filesWritten.Store(0)
	if err := r.writer.StartRun(runNumber); err != nil {
		return err.Error()
	}
	return ""
}

// OnStop is a no-op: Stop does not close the current file. An open file
// stays open until an EndOfStream message arrives, Reset is issued, or the
// next Start begins a new run; the source emulator publishes EndOfStream
// only when it shuts down while running, not on Stop.
func (r *Recorder) OnStop() string { return "" }

// OnReset closes any open file, writing its footer, and clears any fatal
// error latched by a prior write failure.
func (r *Recorder) OnReset() string {
	r.failed.Store(false)
	if err := r.writer.EndRun(); err != nil {
		return err.Error()
	}
	return ""
}

// OnUpdateEmulatorConfig is not meaningful for the recorder.
func (r *Recorder) OnUpdateEmulatorConfig(state.EmulatorRuntimeConfig) string {
	return "recorder does not accept emulator configuration"
}

// StatusDetails summarizes received/written event counts and file count.
func (r *Recorder) StatusDetails() string {
	s := r.counters.Snapshot()
	return fmt.Sprintf("Received: %d events, Written: %d events, Files: %d, Dropped: %d batches",
		s.EventsReceived, s.EventsProcessed, r.filesWritten.Load(), s.Dropped)
}

// Metrics returns the current metrics snapshot for GetStatus.
func (r *Recorder) Metrics() state.MetricsSnapshot {
	snap := r.counters.Snapshot()
	return snap.ToState(0, 0, metrics.RateSnapshot{EventsRate: r.rate.Rate()})
}
