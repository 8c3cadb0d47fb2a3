package transport

import (
	"math/rand"
	"time"
)

// RetryPolicy describes exponential backoff for transient failures. The
// policy is plain data so tests can exercise it without timers.
type RetryPolicy struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// MaxDelay caps the grown delay.
	MaxDelay time.Duration
	// Multiplier grows the delay between attempts. Values below 1 are
	// treated as 2.
	Multiplier float64
	// Jitter adds up to this fraction of the delay as random slack, 0..1.
	Jitter float64
}

// DefaultRetryPolicy returns the standard backoff: base 500ms doubling per
// attempt, capped at 10s, with 10% jitter.
func DefaultRetryPolicy(maxRetries int) RetryPolicy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return RetryPolicy{
		MaxRetries: maxRetries,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   10 * time.Second,
		Multiplier: 2,
		Jitter:     0.1,
	}
}

// Backoff returns the delay before the given retry attempt (1-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	mult := p.Multiplier
	if mult < 1 {
		mult = 2
	}

	d := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		d *= mult
		if p.MaxDelay > 0 && d >= float64(p.MaxDelay) {
			d = float64(p.MaxDelay)
			break
		}
	}
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}

	if p.Jitter > 0 {
		d += d * p.Jitter * rand.Float64()
	}

	return time.Duration(d)
}
