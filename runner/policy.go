package runner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/farmledger/inventory-sheets/gsheets"
)

// Policy is the bounded retry schedule for transient Sheets API errors. Zero
// fields take the corresponding DefaultPolicy value.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	Jitter          float64
}

var DefaultPolicy = Policy{
	MaxAttempts:     5,
	InitialInterval: 2 * time.Second,
	MaxInterval:     60 * time.Second,
	Multiplier:      2.0,
	Jitter:          0.5,
}

func (p Policy) backoff(ctx context.Context) backoff.BackOff {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = DefaultPolicy.MaxAttempts
	}

	if p.InitialInterval <= 0 {
		p.InitialInterval = DefaultPolicy.InitialInterval
	}

	if p.MaxInterval <= 0 {
		p.MaxInterval = DefaultPolicy.MaxInterval
	}

	if p.Multiplier < 1 {
		p.Multiplier = DefaultPolicy.Multiplier
	}

	if p.Jitter < 0 || p.Jitter >= 1 {
		p.Jitter = DefaultPolicy.Jitter
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = p.Jitter
	b.MaxElapsedTime = 0
	b.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1)), ctx)
}

// retry invokes f until it succeeds, fails with a non-transient error or the
// policy is exhausted. The last error is returned.
func (c *Controller) retry(ctx context.Context, log *slog.Logger, op string, retries *int, f func() error) error {
	operation := func() error {
		err := f()

		var transient *gsheets.TransientAPIError
		if err != nil && !errors.As(err, &transient) {
			return backoff.Permanent(err)
		}

		return err
	}

	notify := func(err error, delay time.Duration) {
		*retries++
		log.Warn("transient error, retrying", "op", op, "delay", delay, "error", err)
	}

	return backoff.RetryNotify(operation, c.Policy.backoff(ctx), notify)
}
