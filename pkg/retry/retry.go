// Package retry runs fallible calls under a bounded attempt budget with
// jittered exponential backoff.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// Policy bounds a retry loop. Attempts counts the first call.
type Policy struct {
	Attempts  int
	Base      time.Duration
	Cap       time.Duration
	JitterPct int
}

// Delay returns the wait before the given retry (1-based): Base doubled per
// prior retry, spread by ±JitterPct and clamped to Cap.
func (p Policy) Delay(retry int) time.Duration {
	base := p.Base
	for i := 1; i < retry && base < p.Cap; i++ {
		base *= 2
	}
	return Jittered(base, p.Cap, p.JitterPct)
}

// Jittered spreads base by ±jitterPct percent (25 when unset) and clamps the
// result to limit.
func Jittered(base, limit time.Duration, jitterPct int) time.Duration {
	if jitterPct <= 0 {
		jitterPct = 25
	}
	delta := (rand.Float64()*2 - 1) * float64(jitterPct) / 100.0
	wait := time.Duration(float64(base) * (1 + delta))
	if wait < 0 {
		wait = base
	}
	if limit > 0 && wait > limit {
		wait = limit
	}
	return wait
}

// Do calls fn until it succeeds, returns an error retryable rejects, or the
// attempt budget runs out. Context cancellation is never retried and stops the
// loop before the next attempt. The last error is returned.
func Do(ctx context.Context, p Policy, retryable func(error) bool, fn func(ctx context.Context, attempt int) error) error {
	attempts := max(p.Attempts, 1)

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			if err != nil {
				return errors.Join(err, cerr)
			}
			return cerr
		}

		err = fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if IsCancellation(err) || (retryable != nil && !retryable(err)) {
			return err
		}
		if attempt == attempts {
			break
		}
		if serr := Sleep(ctx, p.Delay(attempt)); serr != nil {
			return errors.Join(err, serr)
		}
	}
	return err
}

// IsCancellation reports whether err stems from context cancellation.
// Deadline expiry is a timeout, not a cancellation, and stays retryable.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
