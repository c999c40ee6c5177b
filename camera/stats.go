package camera

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/montanaflynn/stats"
)

// Stats describes the health of the acquisition loop.
type Stats struct {
	FramesPublished uint64
	// FramesDropped counts frames the device delivered that never made it into a published pair.
	FramesDropped uint64
	LastFrameAt   time.Time
	// MeanInterval and StdDevInterval cover the most recent publish intervals.
	MeanInterval   time.Duration
	StdDevInterval time.Duration
}

type statsTracker struct {
	clk clock.Clock

	mu        sync.Mutex
	intervals []float64
	next      int
	published uint64
	last      time.Time
}

func newStatsTracker(clk clock.Clock, window int) *statsTracker {
	return &statsTracker{clk: clk, intervals: make([]float64, 0, window)}
}

func (st *statsTracker) record() {
	now := st.clk.Now()
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.last.IsZero() && cap(st.intervals) > 0 {
		interval := float64(now.Sub(st.last))
		if len(st.intervals) < cap(st.intervals) {
			st.intervals = append(st.intervals, interval)
		} else {
			st.intervals[st.next] = interval
			st.next = (st.next + 1) % len(st.intervals)
		}
	}
	st.last = now
	st.published++
}

func (st *statsTracker) snapshot(dropped uint64) Stats {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := Stats{
		FramesPublished: st.published,
		FramesDropped:   dropped,
		LastFrameAt:     st.last,
	}
	if len(st.intervals) == 0 {
		return out
	}
	data := stats.Float64Data(st.intervals)
	if mean, err := data.Mean(); err == nil {
		out.MeanInterval = time.Duration(mean)
	}
	if stddev, err := data.StandardDeviation(); err == nil {
		out.StdDevInterval = time.Duration(stddev)
	}
	return out
}
