package bench_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/go-kernel-bench/internal/bench"
)

type countingReleaser struct{ released *int }

func (c countingReleaser) Release() { *c.released++ }

// fakeClock advances by step on every reading.
func fakeClock(step time.Duration) func() time.Time {
	now := time.Unix(0, 0)

	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func TestMeter_CountsUntilWindowElapses(t *testing.T) {
	m := bench.Meter{Window: time.Second, Now: fakeClock(100 * time.Millisecond)}

	calls := 0
	speed, err := m.Measure(func() (bench.Releaser, error) {
		calls++
		return nil, nil
	})
	require.NoError(t, err)

	assert.Equal(t, 10, speed.Iterations)
	assert.Equal(t, 10, calls)
	assert.InDelta(t, 10.0, speed.Hz, 1e-9)
}

func TestMeter_ReleasesEveryOutput(t *testing.T) {
	m := bench.Meter{Window: time.Second, Now: fakeClock(250 * time.Millisecond)}

	released := 0
	speed, err := m.Measure(func() (bench.Releaser, error) {
		return countingReleaser{released: &released}, nil
	})
	require.NoError(t, err)

	assert.Equal(t, speed.Iterations, released)
}

func TestMeter_ErrorAborts(t *testing.T) {
	m := bench.Meter{Window: time.Second, Now: fakeClock(time.Millisecond)}
	boom := errors.New("boom")

	calls := 0
	speed, err := m.Measure(func() (bench.Releaser, error) {
		calls++
		if calls == 3 {
			return nil, boom
		}

		return nil, nil
	})

	require.ErrorIs(t, err, boom)
	assert.False(t, speed.Measured())
	assert.Equal(t, 3, calls)
}

func TestMeter_NilCallable(t *testing.T) {
	_, err := bench.Meter{}.Measure(nil)
	assert.Error(t, err)
}

// A sub-millisecond callable completes at least 900 times in the default
// one second window.
func TestMeter_RealClockThroughput(t *testing.T) {
	if testing.Short() {
		t.Skip("measures for one second")
	}

	speed, err := bench.Meter{}.Measure(func() (bench.Releaser, error) {
		time.Sleep(100 * time.Microsecond)
		return nil, nil
	})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, speed.Iterations, 900)
	assert.InDelta(t, float64(speed.Iterations), speed.Hz, float64(speed.Iterations)*0.1)
}
