package shared

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Transient is implemented by errors that know whether retrying can help.
//
// [services.APIError] reports 429 and 5xx responses as transient and carries
// the server's Retry-After hint when one was sent.
type Transient interface {
	Transient() bool
	RetryAfterHint() time.Duration
}

// RetryPolicy controls the exponential backoff applied to transient failures.
type RetryPolicy struct {
	InitialInterval time.Duration
	Multiplier      float64
	MaxAttempts     int
}

// DefaultRetryPolicy matches the documented defaults: base 1s, factor 2, 3 attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: time.Second,
		Multiplier:      2,
		MaxAttempts:     3,
	}
}

// Retry runs op up to policy.MaxAttempts times, sleeping a jittered
// exponential backoff between attempts. Only transient errors are retried;
// anything else is returned immediately. A Retry-After hint on the error
// overrides the computed delay.
func Retry(ctx context.Context, policy RetryPolicy, op func() error) error {
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = policy.InitialInterval
	bo.Multiplier = policy.Multiplier
	bo.MaxElapsedTime = 0
	bo.Reset()

	var err error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}

		if !IsTransient(err) {
			return err
		}

		if attempt == policy.MaxAttempts-1 {
			break
		}

		wait := bo.NextBackOff()
		if hint := retryAfter(err); hint > 0 {
			wait = hint
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return err
}

// IsTransient reports whether err (or anything it wraps) is a retryable failure.
func IsTransient(err error) bool {
	var t Transient
	if errors.As(err, &t) {
		return t.Transient()
	}
	return errors.Is(err, ErrAuthTransient)
}

func retryAfter(err error) time.Duration {
	var t Transient
	if errors.As(err, &t) {
		return t.RetryAfterHint()
	}
	return 0
}
