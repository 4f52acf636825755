// ABOUTME: Stream acquisition with exponential backoff
// ABOUTME: Retries temporary provider failures, gives up on permanent ones
package provider

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/Resonate-Protocol/resonate-studio/pkg/studioerr"
)

// Policy controls how stream acquisition is retried
type Policy struct {
	Attempts  int
	BaseDelay time.Duration

	// OnRetry is called before each wait
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultPolicy retries three times waiting 1s then 2s
func DefaultPolicy() Policy {
	return Policy{Attempts: 3, BaseDelay: time.Second}
}

// OpenWithRetry opens a stream, retrying temporary failures
func OpenWithRetry(ctx context.Context, p Provider, req Request, policy Policy) (Stream, error) {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = time.Second
	}

	b := &backoff.ExponentialBackOff{
		InitialInterval:     policy.BaseDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         policy.BaseDelay << policy.Attempts,
	}
	b.Reset()

	attempt := 0
	open := func() (Stream, error) {
		attempt++
		s, err := p.Open(ctx, req)
		if err == nil {
			return s, nil
		}
		if ctx.Err() != nil || !studioerr.IsRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	notify := func(err error, wait time.Duration) {
		slog.Warn("provider open failed, retrying", "attempt", attempt, "wait", wait, "error", err)
		if policy.OnRetry != nil {
			policy.OnRetry(attempt, err, wait)
		}
	}

	s, err := backoff.Retry(ctx, open,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(policy.Attempts)),
		backoff.WithNotify(notify),
	)
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
		return nil, err
	}
	return s, nil
}
