package marketdata

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/eddiefleurent/apobacktest/internal/models"
)

// CircuitBreakerSource wraps a Source with circuit breaker functionality
type CircuitBreakerSource struct {
	source  Source
	breaker *gobreaker.CircuitBreaker
}

var _ Source = (*CircuitBreakerSource)(nil)

// CircuitBreakerSettings configures circuit breaker behavior
type CircuitBreakerSettings struct {
	MaxRequests  uint32        // Max requests when half-open
	Interval     time.Duration // Reset counts interval
	Timeout      time.Duration // Open circuit duration
	MinRequests  uint32        // Min requests before tripping
	FailureRatio float64       // Failure ratio threshold
}

// DefaultCircuitBreakerSettings trips after 60% of at least 5 requests fail.
var DefaultCircuitBreakerSettings = CircuitBreakerSettings{
	MaxRequests:  3,                // Allow 3 requests when half-open
	Interval:     60 * time.Second, // Reset counts every minute
	Timeout:      30 * time.Second, // Open circuit for 30 seconds
	MinRequests:  5,                // Minimum requests before tripping
	FailureRatio: 0.6,              // Trip if 60% failure rate
}

// NewCircuitBreakerSource creates a CircuitBreakerSource with default settings
func NewCircuitBreakerSource(source Source, logger logrus.FieldLogger) *CircuitBreakerSource {
	return NewCircuitBreakerSourceWithSettings(source, DefaultCircuitBreakerSettings, logger)
}

// NewCircuitBreakerSourceWithSettings creates a CircuitBreakerSource with custom settings
func NewCircuitBreakerSourceWithSettings(source Source, settings CircuitBreakerSettings, logger logrus.FieldLogger) *CircuitBreakerSource {
	gbSettings := gobreaker.Settings{
		Name:        "MarketDataCircuitBreaker",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 || counts.Requests < settings.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= settings.FailureRatio
		},
		// A missing symbol or a canceled run says nothing about the upstream's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoData) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if logger != nil {
				logger.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).
					Warn("circuit breaker state changed")
			}
		},
	}

	return &CircuitBreakerSource{
		source:  source,
		breaker: gobreaker.NewCircuitBreaker(gbSettings),
	}
}

// exec is a generic helper for circuit breaker wrapper methods
func execCircuitBreaker[T any](
	breaker *gobreaker.CircuitBreaker,
	source Source,
	fn func(Source) (T, error),
) (T, error) {
	var zero T
	res, err := breaker.Execute(func() (interface{}, error) { return fn(source) })
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	v, ok := res.(T)
	if !ok {
		return zero, errors.New("circuit breaker: type assertion failed")
	}
	return v, nil
}

// FetchBars wraps the underlying source call with circuit breaker
func (c *CircuitBreakerSource) FetchBars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error) {
	return execCircuitBreaker(c.breaker, c.source, func(s Source) ([]models.Bar, error) {
		return s.FetchBars(ctx, symbol, from, to)
	})
}

// CacheVariant forwards the wrapped source's variant.
func (c *CircuitBreakerSource) CacheVariant() string {
	return sourceVariant(c.source)
}

// State returns the current breaker state.
func (c *CircuitBreakerSource) State() gobreaker.State {
	return c.breaker.State()
}
