// Package stats provides frame rate measurement for the processing
// pipeline.
package stats

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// DefaultWindow is the number of frame intervals the meter averages over
const DefaultWindow = 30

// Meter measures the frame rate of a processing loop over a sliding window
// of recent frame intervals.  It is safe for use from one producer with
// readers on other goroutines.
type Meter struct {
	mu        sync.Mutex
	intervals []float64
	pos       int
	full      bool
	last      time.Time
}

// NewMeter returns a Meter averaging over the given number of frame
// intervals, window values <= 0 use DefaultWindow
func NewMeter(window int) *Meter {

	if window <= 0 {
		window = DefaultWindow
	}

	return &Meter{
		intervals: make([]float64, window),
	}
}

// Tick records the completion of one frame at the given time
func (m *Meter) Tick(now time.Time) {

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.last.IsZero() {
		m.last = now
		return
	}

	m.intervals[m.pos] = now.Sub(m.last).Seconds()
	m.last = now

	m.pos++

	if m.pos == len(m.intervals) {
		m.pos = 0
		m.full = true
	}
}

// FPS returns the mean frame rate over the window, 0 until two frames
// have been recorded
func (m *Meter) FPS() float64 {

	m.mu.Lock()
	defer m.mu.Unlock()

	window := m.window()

	if len(window) == 0 {
		return 0
	}

	mean := stat.Mean(window, nil)

	if mean <= 0 {
		return 0
	}

	return 1.0 / mean
}

// Jitter returns the standard deviation of the frame interval in seconds
// over the window
func (m *Meter) Jitter() float64 {

	m.mu.Lock()
	defer m.mu.Unlock()

	window := m.window()

	if len(window) < 2 {
		return 0
	}

	return stat.StdDev(window, nil)
}

// Reset clears recorded intervals
func (m *Meter) Reset() {

	m.mu.Lock()
	defer m.mu.Unlock()

	m.pos = 0
	m.full = false
	m.last = time.Time{}
}

// window returns the recorded intervals, callers must hold the lock
func (m *Meter) window() []float64 {

	if m.full {
		return m.intervals
	}

	return m.intervals[:m.pos]
}
