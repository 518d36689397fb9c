package profiler

import "time"

// DefaultRateSamples is the averaging window of a RateMeter.
const DefaultRateSamples = 30

// RateMeter averages how fast a counter advances over its last few observations.
// It is not safe for concurrent use.
type RateMeter struct {
	samples []float64
	next    int
	filled  int

	last    uint64
	lastAt  time.Time
	started bool
}

// NewRateMeter creates a meter averaging over n rate samples; n <= 0 uses DefaultRateSamples.
func NewRateMeter(n int) *RateMeter {
	if n <= 0 {
		n = DefaultRateSamples
	}
	return &RateMeter{samples: make([]float64, n)}
}

// Observe records the counter value at time at. The first observation only sets the baseline;
// observations that do not move time forward, or that see the counter go backwards, restart it.
//
// Parameters:
//   - count: the counter value, e.g. the simulation tick
//   - at: when the value was read
func (m *RateMeter) Observe(count uint64, at time.Time) {
	if !m.started || count < m.last {
		m.last, m.lastAt, m.started = count, at, true
		return
	}
	dt := at.Sub(m.lastAt).Seconds()
	if dt <= 0 {
		return
	}
	m.samples[m.next] = float64(count-m.last) / dt
	m.next = (m.next + 1) % len(m.samples)
	m.filled = min(m.filled+1, len(m.samples))
	m.last, m.lastAt = count, at
}

// Rate returns the mean of the recorded rate samples, in counts per second.
func (m *RateMeter) Rate() float64 {
	if m.filled == 0 {
		return 0
	}
	var sum float64
	for _, s := range m.samples[:m.filled] {
		sum += s
	}
	return sum / float64(m.filled)
}

// Reset drops every sample and the baseline.
func (m *RateMeter) Reset() {
	m.next, m.filled, m.started = 0, 0, false
}
