package batch

import (
	"context"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
)

// RetryPolicy bounds the retries WithRetry performs. Delays grow from
// BaseDelay by Multiplier after every failed attempt and never exceed
// MaxDelay. There is no jitter.
type RetryPolicy struct {
	// MaxAttempts is the total number of calls, including the first one.
	MaxAttempts int `json:"maxAttempts"`

	// BaseDelay is the wait after the first failed attempt.
	BaseDelay time.Duration `json:"baseDelay"`

	// Multiplier scales the delay after every failed attempt. Zero means 2.
	Multiplier float64 `json:"multiplier"`

	// MaxDelay caps a single wait. Zero means no cap.
	MaxDelay time.Duration `json:"maxDelay"`
}

// DefaultRetryPolicy returns 5 attempts starting at 100ms, doubling each
// time, capped at 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   100 * time.Millisecond,
		Multiplier:  2,
		MaxDelay:    2 * time.Second,
	}
}

// Validate checks if the retry policy is valid.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return invalidArgf("RetryPolicy.MaxAttempts must be at least 1 (got %d)", p.MaxAttempts)
	}
	if p.BaseDelay < 0 {
		return invalidArgf("RetryPolicy.BaseDelay cannot be negative (got %v)", p.BaseDelay)
	}
	if p.Multiplier != 0 && p.Multiplier < 1 {
		return invalidArgf("RetryPolicy.Multiplier must be at least 1 (got %v)", p.Multiplier)
	}
	if p.MaxDelay < 0 {
		return invalidArgf("RetryPolicy.MaxDelay cannot be negative (got %v)", p.MaxDelay)
	}
	if p.MaxDelay > 0 && p.BaseDelay > p.MaxDelay {
		return invalidArgf("RetryPolicy.BaseDelay (%v) cannot exceed MaxDelay (%v)", p.BaseDelay, p.MaxDelay)
	}
	return nil
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.Multiplier == 0 {
		p.Multiplier = 2
	}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	return p
}

// backOff builds the backoff.BackOff for one accessor call.
func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	p = p.withDefaults()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.MaxInterval = p.MaxDelay
	if b.MaxInterval == 0 {
		b.MaxInterval = time.Duration(math.MaxInt64)
	}
	b.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1)), ctx)
}

// WithRetry wraps an accessor so that failed calls are retried according to
// policy. A call that returns a nil or empty payload counts as failed. Retries
// stop when the context is done. The returned error wraps the last failure.
//
// name is only used for logging and statistics. logger and stats may be nil.
// An invalid policy yields an accessor that fails every call with the
// validation error without calling acc.
func WithRetry(name string, acc Accessor, policy RetryPolicy, logger Logger, stats StatsCollector) Accessor {
	if err := policy.Validate(); err != nil {
		err = errors.Wrapf(err, "accessor %q", name)
		return func(context.Context, int) (map[string]interface{}, error) {
			return nil, err
		}
	}
	if logger == nil {
		logger = &NoOpLogger{}
	}
	if stats == nil {
		stats = &NoOpStatsCollector{}
	}

	return func(ctx context.Context, index int) (map[string]interface{}, error) {
		var (
			out     map[string]interface{}
			attempt int
		)

		op := func() error {
			attempt++
			v, err := acc(ctx, index)
			if err != nil {
				if ctx.Err() != nil {
					return backoff.Permanent(err)
				}
				return err
			}
			if len(v) == 0 {
				return ErrEmptyAccessorResult
			}
			out = v
			return nil
		}

		notify := func(err error, next time.Duration) {
			stats.RecordAccessorRetry(name)
			logger.Debugw("Retrying accessor",
				"accessor", name,
				"index", index,
				"attempt", attempt,
				"next_delay", next,
				"error", err,
			)
		}

		if err := backoff.RetryNotify(op, policy.backOff(ctx), notify); err != nil {
			return nil, errors.Wrapf(err, "accessor %q gave up after %d attempt(s)", name, attempt)
		}
		return out, nil
	}
}
