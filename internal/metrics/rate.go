package metrics

import (
	"sync"
	"time"
)

// RateTracker maintains a 1-second-interval event-rate gauge, supplementing
// the bare counters with a smoothed rate no component computes on its own.
// Grounded on original_source/src/data_source_emulator/mod.rs's
// RateTracker: Rust holds three atomics plus a std Mutex<Option<Instant>>;
// Go's single mutex guarding all three fields is the idiomatic equivalent
// since none of these fields are updated independently of the others.
type RateTracker struct {
	mu          sync.Mutex
	prevEvents  uint64
	prevTime    time.Time
	currentRate float64
}

// Update recomputes the rate if at least one second has elapsed since the
// last update; otherwise it leaves the current rate untouched.
func (r *RateTracker) Update(currentEvents uint64) {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.prevTime.IsZero() {
		r.prevEvents = currentEvents
		r.prevTime = now
		return
	}

	elapsed := now.Sub(r.prevTime).Seconds()
	if elapsed < 1.0 {
		return
	}

	delta := satSub(currentEvents, r.prevEvents)
	r.currentRate = delta / elapsed
	r.prevEvents = currentEvents
	r.prevTime = now
}

// Rate returns the most recently computed events-per-second rate.
func (r *RateTracker) Rate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentRate
}

// Reset clears the tracker back to its initial state, used on Start.
func (r *RateTracker) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prevEvents = 0
	r.prevTime = time.Time{}
	r.currentRate = 0
}
