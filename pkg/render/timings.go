package render

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Timings keeps the most recent render durations.
type Timings struct {
	mu      sync.Mutex
	samples []time.Duration
	max     int
}

// NewTimings keeps up to max samples; max <= 0 keeps five.
func NewTimings(max int) *Timings {
	if max <= 0 {
		max = 5
	}
	return &Timings{max: max}
}

// Add records a sample, dropping the oldest once full.
func (t *Timings) Add(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.samples = append(t.samples, d)
	if len(t.samples) > t.max {
		t.samples = t.samples[1:]
	}
}

// Len returns the number of samples held.
func (t *Timings) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.samples)
}

// Mean returns the average sample, zero when empty.
func (t *Timings) Mean() time.Duration {
	seconds := t.seconds()
	if len(seconds) == 0 {
		return 0
	}
	return toDuration(stat.Mean(seconds, nil))
}

// StdDev returns the sample standard deviation, zero with fewer than two samples.
func (t *Timings) StdDev() time.Duration {
	seconds := t.seconds()
	if len(seconds) < 2 {
		return 0
	}
	return toDuration(stat.StdDev(seconds, nil))
}

func (t *Timings) seconds() []float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]float64, len(t.samples))
	for i, d := range t.samples {
		out[i] = d.Seconds()
	}
	return out
}

func toDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
