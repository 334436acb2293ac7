package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Backoff computes exponentially growing waits between failed attempts.
type Backoff struct {
	// MinInterval defaults to 1s.
	MinInterval time.Duration

	// MaxInterval defaults to 60s.
	MaxInterval time.Duration

	// NoJitter removes the +/-5% jitter.
	NoJitter bool
}

// Interval returns the wait before retrying after the given failed attempt,
// counting from 1.
func (b Backoff) Interval(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	minInterval := b.MinInterval
	if minInterval <= 0 {
		minInterval = time.Second
	}

	maxInterval := b.MaxInterval
	if maxInterval <= 0 {
		maxInterval = 60 * time.Second
	}
	if maxInterval < minInterval {
		maxInterval = minInterval
	}

	factor := math.Pow(2, min(
		float64(attempt-1),
		math.Log2(float64(maxInterval)/float64(minInterval)),
	))
	if !b.NoJitter {
		// #nosec G404
		factor *= 0.95 + rand.Float64()*0.1
	}

	return time.Duration(factor * float64(minInterval))
}

// Wait sleeps for the attempt's interval or until ctx is done.
func (b Backoff) Wait(ctx context.Context, attempt int) error {
	t := time.NewTimer(b.Interval(attempt))
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
