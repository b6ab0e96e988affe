package bench

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// DefaultWindow is the wall-clock budget of one throughput measurement.
const DefaultWindow = time.Second

// Speed is the outcome of one throughput measurement.
type Speed struct {
	Iterations int
	Hz         float64
}

// Unmeasured is the Speed of a measurement that has not completed.
var Unmeasured = Speed{Iterations: -1, Hz: -1}

// Measured reports whether s holds a completed measurement.
func (s Speed) Measured() bool { return s.Iterations >= 0 && s.Hz >= 0 }

// Speedup returns candidate.Hz / baseline.Hz, or NaN when either side is
// unmeasured or the baseline frequency is zero.
func Speedup(candidate, baseline Speed) float64 {
	if !candidate.Measured() || !baseline.Measured() || baseline.Hz == 0 {
		return math.NaN()
	}

	return candidate.Hz / baseline.Hz
}

// Releaser is a per-invocation allocation the meter frees after each call.
type Releaser interface {
	Release()
}

// Meter runs a callable back to back for a fixed wall-clock window.
type Meter struct {
	Window time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

func (m Meter) window() time.Duration {
	if m.Window <= 0 {
		return DefaultWindow
	}

	return m.Window
}

func (m Meter) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}

	return m.Now()
}

// Measure invokes fn until the window has elapsed and reports the number of
// completed invocations and their frequency. Whatever fn returns is
// released before the next invocation. The first error aborts the
// measurement.
func (m Meter) Measure(fn func() (Releaser, error)) (Speed, error) {
	if fn == nil {
		return Unmeasured, errors.New("bench: nil callable")
	}

	window := m.window()
	iter := 0
	start := m.now()
	end := start

	for end.Sub(start) < window {
		out, err := fn()
		if out != nil {
			out.Release()
		}

		if err != nil {
			return Unmeasured, fmt.Errorf("bench: iteration %d: %w", iter+1, err)
		}

		end = m.now()
		iter++
	}

	elapsed := end.Sub(start).Seconds()
	if elapsed <= 0 {
		return Unmeasured, errors.New("bench: clock did not advance")
	}

	return Speed{Iterations: iter, Hz: float64(iter) / elapsed}, nil
}
