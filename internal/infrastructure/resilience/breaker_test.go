package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

var errFetch = errors.New("fetch failed")

func outcome(success bool) func() error {
	return func() error {
		if success {
			return nil
		}
		return errFetch
	}
}

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		settings      Settings
		requests      []bool // true = success, false = failure
		expectedState State
	}{
		{
			name:          "stays closed on successes",
			settings:      Settings{MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute},
			requests:      []bool{true, true, true},
			expectedState: StateClosed,
		},
		{
			name: "opens after consecutive failures",
			settings: Settings{
				MaxRequests: 1,
				Interval:    time.Minute,
				Timeout:     time.Minute,
				ReadyToTrip: func(counts Counts) bool { return counts.ConsecutiveFailures >= 3 },
			},
			requests:      []bool{false, false, false},
			expectedState: StateOpen,
		},
		{
			name: "a success resets the failure run",
			settings: Settings{
				MaxRequests: 1,
				Interval:    time.Minute,
				Timeout:     time.Minute,
				ReadyToTrip: func(counts Counts) bool { return counts.ConsecutiveFailures >= 2 },
			},
			requests:      []bool{false, true, false},
			expectedState: StateClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			breaker := New("test", tt.settings)
			for _, success := range tt.requests {
				_ = breaker.Run(outcome(success))
			}
			assert.Equal(t, tt.expectedState, breaker.State())
		})
	}
}

func TestBreakerCounts(t *testing.T) {
	breaker := New("test", Settings{MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute})

	got, err := Do(breaker, func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", got)

	counts := breaker.Counts()
	assert.Equal(t, uint32(1), counts.Requests)
	assert.Equal(t, uint32(1), counts.TotalSuccesses)
	assert.Equal(t, uint32(1), counts.ConsecutiveSuccesses)
	assert.Equal(t, uint32(0), counts.TotalFailures)

	assert.ErrorIs(t, breaker.Run(outcome(false)), errFetch)

	counts = breaker.Counts()
	assert.Equal(t, uint32(2), counts.Requests)
	assert.Equal(t, uint32(1), counts.TotalFailures)
	assert.Equal(t, uint32(1), counts.ConsecutiveFailures)
	assert.Equal(t, uint32(0), counts.ConsecutiveSuccesses)
}

func TestBreakerIgnoresCancellation(t *testing.T) {
	breaker := New("test", Settings{
		ReadyToTrip: func(counts Counts) bool { return counts.ConsecutiveFailures >= 1 },
	})

	err := breaker.Run(func() error { return context.Canceled })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, breaker.State())
}

func TestBreakerOpenAndRecover(t *testing.T) {
	clock := newClock()
	var transitions []string
	breaker := New("fetch", Settings{
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts Counts) bool { return counts.ConsecutiveFailures >= 2 },
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
		Clock: clock.Now,
	})

	for i := 0; i < 2; i++ {
		_ = breaker.Run(outcome(false))
	}
	assert.Equal(t, StateOpen, breaker.State())
	assert.ErrorIs(t, breaker.Run(outcome(true)), ErrCircuitOpen)

	clock.Advance(31 * time.Second)
	assert.Equal(t, StateHalfOpen, breaker.State())

	require.NoError(t, breaker.Run(outcome(true)))
	require.NoError(t, breaker.Run(outcome(true)))
	assert.Equal(t, StateClosed, breaker.State())

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	clock := newClock()
	breaker := New("fetch", Settings{
		MaxRequests: 1,
		Timeout:     time.Second,
		ReadyToTrip: func(counts Counts) bool { return counts.ConsecutiveFailures >= 1 },
		Clock:       clock.Now,
	})

	_ = breaker.Run(outcome(false))
	clock.Advance(2 * time.Second)
	require.Equal(t, StateHalfOpen, breaker.State())

	_ = breaker.Run(outcome(false))
	assert.Equal(t, StateOpen, breaker.State())
}

func TestBreakerClosedCountsExpire(t *testing.T) {
	clock := newClock()
	breaker := New("fetch", Settings{Interval: time.Minute, Clock: clock.Now})

	_ = breaker.Run(outcome(false))
	require.Equal(t, uint32(1), breaker.Counts().ConsecutiveFailures)

	clock.Advance(2 * time.Minute)
	assert.Equal(t, StateClosed, breaker.State())
	assert.Equal(t, Counts{}, breaker.Counts())
}

func TestBreakerPanicCountsAsFailure(t *testing.T) {
	breaker := New("test", Settings{})

	assert.Panics(t, func() {
		_ = breaker.Run(func() error { panic("boom") })
	})
	assert.Equal(t, uint32(1), breaker.Counts().TotalFailures)
}

func TestStateText(t *testing.T) {
	text, err := StateHalfOpen.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "half-open", string(text))
	assert.Equal(t, "unknown", State(9).String())

	var s State
	require.NoError(t, s.UnmarshalText([]byte("open")))
	assert.Equal(t, StateOpen, s)
	assert.Error(t, s.UnmarshalText([]byte("ajar")))
}
