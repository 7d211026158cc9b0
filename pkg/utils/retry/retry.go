package retry

import (
	"context"
	"math/rand"
	"time"
)

// Policy controls retries around a single provider call. The zero value
// performs no retries at all, which is the default: the engine does not
// retry provider calls unless explicitly configured to.
type Policy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	Jitter        time.Duration
}

// None is a policy that never retries
func None() Policy {
	return Policy{}
}

// Do runs op, retrying per the policy. The last error is returned when all
// attempts fail. Context cancellation interrupts the backoff sleep.
func (p Policy) Do(ctx context.Context, op func() error) error {
	delay := p.InitialDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	factor := p.BackoffFactor
	if factor < 1 {
		factor = 2
	}

	var err error
	for attempt := 0; ; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if attempt >= p.MaxRetries {
			return err
		}

		next := delay
		if p.Jitter > 0 {
			next += time.Duration(rand.Float64() * float64(p.Jitter))
		}
		if p.MaxDelay > 0 && next > p.MaxDelay {
			next = p.MaxDelay
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(next):
		}

		delay = time.Duration(float64(delay) * factor)
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
}
