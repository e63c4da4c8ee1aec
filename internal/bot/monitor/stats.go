package monitor

import (
	"sync/atomic"
	"time"

	"panterabot/internal/bot/timeutil"
)

// Stats counts what the monitor has seen. All methods are safe for concurrent use.
type Stats struct {
	ticks        atomic.Int64
	detected     atomic.Int64
	filtered     atomic.Int64
	detectedOnly atomic.Int64
	bidsPlaced   atomic.Int64
	bidsFailed   atomic.Int64
	sourceErrors atomic.Int64
	lastTick     atomic.Int64
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	Ticks        int64      `json:"ticks"`
	Detected     int64      `json:"detected"`
	Filtered     int64      `json:"filtered"`
	DetectedOnly int64      `json:"detected_only"`
	BidsPlaced   int64      `json:"bids"`
	BidsFailed   int64      `json:"bids_failed"`
	SourceErrors int64      `json:"source_errors"`
	LastTickAt   *time.Time `json:"last_tick_at,omitempty"`
}

func (s *Stats) markTick() {
	s.ticks.Add(1)
	s.lastTick.Store(timeutil.Now().UnixNano())
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() Snapshot {
	snap := Snapshot{
		Ticks:        s.ticks.Load(),
		Detected:     s.detected.Load(),
		Filtered:     s.filtered.Load(),
		DetectedOnly: s.detectedOnly.Load(),
		BidsPlaced:   s.bidsPlaced.Load(),
		BidsFailed:   s.bidsFailed.Load(),
		SourceErrors: s.sourceErrors.Load(),
	}
	if ns := s.lastTick.Load(); ns != 0 {
		at := timeutil.In(time.Unix(0, ns))
		snap.LastTickAt = &at
	}
	return snap
}
