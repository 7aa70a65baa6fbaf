package merger

import "sync"

// SourceStats tracks per-source sequence-gap/restart detection using a
// saturating-subtract heuristic, grounded on
// original_source/src/merger/mod.rs's SourceStats.
type SourceStats struct {
	mu sync.Mutex

	hasLast      bool
	lastSequence uint64
	TotalBatches uint64
	RestartCount uint32
	GapsDetected uint64
	TotalGapSize uint64
}

// Update folds one observed sequence number into the stats and reports
// whether it looks like a source restart (seq fell far behind the last
// one seen — the 100-sequence threshold separates genuine restarts from
// large but ordinary losses).
func (s *SourceStats) Update(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	restarted := false
	if s.hasLast {
		last := s.lastSequence
		if seq < satSub(last, 100) {
			s.RestartCount++
			restarted = true
		} else if expected := last + 1; seq > expected {
			gap := seq - expected
			s.GapsDetected++
			s.TotalGapSize += gap
		}
	}

	s.lastSequence = seq
	s.hasLast = true
	s.TotalBatches++
	return restarted
}

// Snapshot returns a copy of the current counters, safe to read
// concurrently with further Update calls.
func (s *SourceStats) Snapshot() SourceStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SourceStats{
		hasLast:      s.hasLast,
		lastSequence: s.lastSequence,
		TotalBatches: s.TotalBatches,
		RestartCount: s.RestartCount,
		GapsDetected: s.GapsDetected,
		TotalGapSize: s.TotalGapSize,
	}
}

func satSub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}
