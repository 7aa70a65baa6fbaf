package monitor

import (
	"time"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"

	"github.com/aogaki/delila-go/internal/wire"
)

// StateSnapshot is an immutable point-in-time view of every channel's
// histogram, safe to serialize straight to JSON.
type StateSnapshot struct {
	TotalEvents uint64
	ElapsedSecs float64
	EventRate   float64
	Histograms  map[ChannelKey]*Histogram1D
}

type requestKind int

const (
	reqBatch requestKind = iota
	reqClear
	reqSnapshot
	reqHistogram
	reqSetStartTime
	reqConfigureProjector
	reqLastProjection
)

// request is the single message type the engine goroutine consumes,
// mirroring the original's HistogramMessage enum: event ingestion and
// read-only queries travel through the same channel so the histogram maps
// are never touched outside their owning goroutine.
type request struct {
	kind            requestKind
	batch           *wire.Batch
	key             ChannelKey
	snapshotReply   chan StateSnapshot
	histogramReply  chan *Histogram1D
	projectors      *mat.Dense
	configureReply  chan struct{}
	projectionReply chan []float64
}

// engine owns the per-channel histogram map and processes requests one at
// a time on its own goroutine — the "lock-free" design the original
// documents: no mutex anywhere, because nothing outside this goroutine
// ever reaches into the map. It also holds an optional per-channel
// waveform projection basis (gonum mat.Dense), configurable per channel
// over the HTTP control surface.
type engine struct {
	cfg         HistogramConfig
	histograms  map[ChannelKey]*Histogram1D
	totalEvents uint64
	startTime   time.Time

	projectors      map[ChannelKey]*mat.Dense
	lastProjections map[ChannelKey][]float64

	requests chan request
	done     chan struct{}
}

func newEngine(cfg HistogramConfig, capacity int) *engine {
	return &engine{
		cfg:             cfg,
		histograms:      make(map[ChannelKey]*Histogram1D),
		projectors:      make(map[ChannelKey]*mat.Dense),
		lastProjections: make(map[ChannelKey][]float64),
		requests:        make(chan request, capacity),
		done:            make(chan struct{}),
	}
}

// run drains requests until the channel is closed.
func (e *engine) run() {
	defer close(e.done)
	for req := range e.requests {
		switch req.kind {
		case reqBatch:
			e.processBatch(req.batch)
		case reqClear:
			e.clear()
		case reqSetStartTime:
			e.startTime = time.Now()
		case reqSnapshot:
			req.snapshotReply <- e.snapshot()
		case reqHistogram:
			h, ok := e.histograms[req.key]
			if !ok {
				req.histogramReply <- nil
			} else {
				req.histogramReply <- h.Clone()
			}
		case reqConfigureProjector:
			e.projectors[req.key] = req.projectors
			delete(e.lastProjections, req.key)
			req.configureReply <- struct{}{}
		case reqLastProjection:
			req.projectionReply <- e.lastProjections[req.key]
		}
	}
}

func (e *engine) processBatch(b *wire.Batch) {
	if b == nil {
		return
	}
	for _, ev := range b.Events {
		e.totalEvents++
		key := ChannelKey{ModuleID: uint32(ev.Module), ChannelID: uint32(ev.Channel)}
		h, ok := e.histograms[key]
		if !ok {
			h = NewHistogram1D(key.ModuleID, key.ChannelID, e.cfg)
			e.histograms[key] = h
		}
		h.Fill(float32(ev.Energy))

		if ev.Waveform != nil && len(ev.Waveform.AnalogProbe1) > 0 {
			if _, configured := e.projectors[key]; configured {
				coeffs, err := e.project(key, ev.Waveform.AnalogProbe1)
				if err != nil {
					log.Warn().Err(err).Msg("monitor: waveform projection failed")
				} else {
					e.lastProjections[key] = coeffs
				}
			}
		}
	}
}

func (e *engine) clear() {
	for _, h := range e.histograms {
		h.Clear()
	}
	e.totalEvents = 0
}

func (e *engine) snapshot() StateSnapshot {
	elapsed := 0.0
	if !e.startTime.IsZero() {
		elapsed = time.Since(e.startTime).Seconds()
	}
	rate := 0.0
	if elapsed > 0 {
		rate = float64(e.totalEvents) / elapsed
	}
	histograms := make(map[ChannelKey]*Histogram1D, len(e.histograms))
	for k, h := range e.histograms {
		histograms[k] = h.Clone()
	}
	return StateSnapshot{
		TotalEvents: e.totalEvents,
		ElapsedSecs: elapsed,
		EventRate:   rate,
		Histograms:  histograms,
	}
}

// --- request-side helpers, called from any goroutine ---

func (e *engine) submitBatch(b wire.Batch) {
	select {
	case e.requests <- request{kind: reqBatch, batch: &b}:
	default:
		// Engine backlogged: drop rather than block the receive loop.
	}
}

func (e *engine) submitClear() {
	e.requests <- request{kind: reqClear}
}

func (e *engine) submitSetStartTime() {
	e.requests <- request{kind: reqSetStartTime}
}

// Snapshot blocks until the engine goroutine replies with a full state
// snapshot.
func (e *engine) Snapshot() StateSnapshot {
	reply := make(chan StateSnapshot, 1)
	e.requests <- request{kind: reqSnapshot, snapshotReply: reply}
	return <-reply
}

// Histogram blocks until the engine goroutine replies with a copy of one
// channel's histogram, or nil if nothing has been seen from it yet.
func (e *engine) Histogram(key ChannelKey) *Histogram1D {
	reply := make(chan *Histogram1D, 1)
	e.requests <- request{kind: reqHistogram, key: key, histogramReply: reply}
	return <-reply
}

func (e *engine) close() {
	close(e.requests)
	<-e.done
}
