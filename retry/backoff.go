// Package retry provides exponential backoff strategies, used by the cluster
// bridge when re-establishing its subscription to the shared bus.
package retry

import (
	"math"
	"time"
)

// Strategy defines exponential backoff behavior for reconnect attempts.
//
// The schedule follows: delay = min(BaseDelay * ExponentialBase^attempt, MaxDelay)
//
// Example with defaults (1s base, 2.0 exponential, 30s max):
//
//	Attempt 0: 1s
//	Attempt 1: 2s
//	Attempt 2: 4s
//	Attempt 5: 30s (capped)
type Strategy struct {
	BaseDelay       time.Duration // Initial delay (first attempt)
	MaxDelay        time.Duration // Maximum delay cap
	ExponentialBase float64       // Backoff multiplier (e.g., 2.0 for doubling)
}

// DefaultStrategy returns the default reconnect strategy:
// 1s base delay doubling up to a 30s cap.
func DefaultStrategy() Strategy {
	return Strategy{
		BaseDelay:       time.Second,
		MaxDelay:        30 * time.Second,
		ExponentialBase: 2.0,
	}
}

// Delay calculates the backoff delay for a given attempt.
// Formula: delay = min(BaseDelay * ExponentialBase^attempt, MaxDelay)
//
// Attempts at or below zero return the base delay.
func (s Strategy) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return s.BaseDelay
	}

	delay := float64(s.BaseDelay) * math.Pow(s.ExponentialBase, float64(attempt))
	if delay > float64(s.MaxDelay) {
		return s.MaxDelay
	}
	return time.Duration(delay)
}
