package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddiefleurent/apobacktest/internal/models"
)

// stubSource counts calls and returns a fixed result.
type stubSource struct {
	calls int
	bars  []models.Bar
	err   error
}

func (s *stubSource) FetchBars(context.Context, string, time.Time, time.Time) ([]models.Bar, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return append([]models.Bar(nil), s.bars...), nil
}

func testSettings() CircuitBreakerSettings {
	return CircuitBreakerSettings{
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		MinRequests:  2,
		FailureRatio: 0.5,
	}
}

func TestCircuitBreakerSource_PassesThrough(t *testing.T) {
	stub := &stubSource{bars: []models.Bar{{Close: 1}}}
	cb := NewCircuitBreakerSource(stub, nil)

	bars, err := cb.FetchBars(context.Background(), "SPY", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, bars, 1)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreakerSource_TripsOnFailures(t *testing.T) {
	stub := &stubSource{err: errors.New("connection refused")}
	cb := NewCircuitBreakerSourceWithSettings(stub, testSettings(), nil)

	for i := 0; i < 2; i++ {
		_, err := cb.FetchBars(context.Background(), "SPY", time.Time{}, time.Time{})
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	_, err := cb.FetchBars(context.Background(), "SPY", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, stub.calls, "open breaker must not reach the source")
}

func TestCircuitBreakerSource_NoDataDoesNotTrip(t *testing.T) {
	stub := &stubSource{err: ErrNoData}
	cb := NewCircuitBreakerSourceWithSettings(stub, testSettings(), nil)

	for i := 0; i < 5; i++ {
		_, err := cb.FetchBars(context.Background(), "SPY", time.Time{}, time.Time{})
		assert.ErrorIs(t, err, ErrNoData)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
	assert.Equal(t, 5, stub.calls)
}
