// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package analytics

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/trafficlens/internal/database"
	"github.com/tomtom215/trafficlens/internal/logging"
	"github.com/tomtom215/trafficlens/internal/metrics"
)

// BreakerName labels the store circuit breaker in metrics.
const BreakerName = "store-queries"

// BreakerSettings tunes the store circuit breaker.
type BreakerSettings struct {
	MaxRequests  uint32        // allowed in half-open state
	Interval     time.Duration // closed-state count reset
	Timeout      time.Duration // open before trying half-open
	MinRequests  uint32
	FailureRatio float64
}

// DefaultBreakerSettings opens after 60% failures over at least 10
// requests and retries after 30 seconds.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		MinRequests:  10,
		FailureRatio: 0.6,
	}
}

// isExpected reports errors that describe the request rather than the
// health of the store. They never count toward tripping the breaker.
func isExpected(err error) bool {
	return err == nil ||
		errors.Is(err, database.ErrStationNotFound) ||
		errors.Is(err, database.ErrUnknownColumn) ||
		errors.Is(err, ErrNoData) ||
		errors.Is(err, ErrInvalidWindow) ||
		errors.Is(err, context.Canceled)
}

func newBreaker(st BreakerSettings) *gobreaker.CircuitBreaker[any] {
	metrics.CircuitBreakerState.WithLabelValues(BreakerName).Set(0)

	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        BreakerName,
		MaxRequests: st.MaxRequests,
		Interval:    st.Interval,
		Timeout:     st.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < st.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= st.FailureRatio {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", ratio*100).
					Msg("[CIRCUIT BREAKER] Opening circuit")
				return true
			}
			return false
		},
		IsSuccessful: isExpected,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("[CIRCUIT BREAKER] State transition")
			metrics.RecordBreakerTransition(name, from.String(), to.String())
		},
	})
}

// guarded runs fn through the breaker. ErrOpenState and
// ErrTooManyRequests surface unchanged so the API can answer 503.
func guarded[T any](s *Service, fn func() (T, error)) (T, error) {
	res, err := s.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, _ := res.(T)
	return typed, nil
}

// IsUnavailable reports whether err came from an open breaker.
func IsUnavailable(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
