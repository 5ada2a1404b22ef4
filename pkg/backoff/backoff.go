// Package backoff provides bounded retry with exponential delays and
// rate limiting, used for reconnecting to external services.
//
// Example usage:
//
//	pol := backoff.New(3, 500*time.Millisecond, 5*time.Second)
//	err := pol.Do(ctx, func() error {
//	    return reconnect()
//	})
package backoff

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Fatal wraps errors that should stop retries immediately.
type Fatal struct {
	Err error
}

func (f *Fatal) Error() string { return f.Err.Error() }
func (f *Fatal) Unwrap() error { return f.Err }

// Policy describes a bounded retry sequence. A Policy is safe for
// concurrent use; each Do call tracks its own attempt state.
type Policy struct {
	Attempts int           // maximum attempts, at least 1
	Initial  time.Duration // delay before the second attempt
	Max      time.Duration // cap for the growing delay
	Jitter   bool          // add up to 25% random jitter to each delay

	// OnRetry is called after each failed attempt that will be retried.
	OnRetry func(attempt int, err error)

	mu      sync.Mutex
	limiter *rate.Limiter
}

// New returns a Policy with jitter enabled and a shared limiter of one
// attempt per Initial interval, so concurrent callers cannot hammer the
// same endpoint during an outage.
func New(attempts int, initial, max time.Duration) *Policy {
	if attempts < 1 {
		attempts = 1
	}
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	if max < initial {
		max = initial
	}
	return &Policy{
		Attempts: attempts,
		Initial:  initial,
		Max:      max,
		Jitter:   true,
		limiter:  rate.NewLimiter(rate.Every(initial), attempts),
	}
}

// Do runs op until it succeeds, returns a Fatal error, the context is
// cancelled, or Attempts is exhausted.
func (p *Policy) Do(ctx context.Context, op func() error) error {
	delay := p.Initial

	var lastErr error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if err := p.wait(ctx); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if _, fatal := lastErr.(*Fatal); fatal {
			return lastErr
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, lastErr)
		}
		if attempt == p.Attempts {
			break
		}

		next := delay
		if p.Jitter {
			next = addJitter(delay)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(next):
		}

		delay *= 2
		if delay > p.Max {
			delay = p.Max
		}
	}

	return fmt.Errorf("retries exhausted after %d attempts: %w", p.Attempts, lastErr)
}

func (p *Policy) wait(ctx context.Context) error {
	p.mu.Lock()
	lim := p.limiter
	p.mu.Unlock()
	if lim == nil {
		return nil
	}
	return lim.Wait(ctx)
}

// addJitter adds random jitter (0-25% of delay) to avoid synchronized retries.
func addJitter(delay time.Duration) time.Duration {
	span := int64(delay / 4)
	if span <= 0 {
		// Int63n panics on a non-positive bound; sub-4ns delays get no jitter.
		return delay
	}
	return delay + time.Duration(rand.Int63n(span))
}
