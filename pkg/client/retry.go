package client

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// RetryConfig controls how a failed request is retried.
// Nil fields take their value from DefaultRetryConfig.
type RetryConfig struct {
	// Count is the number of retries after the first failure. Zero makes
	// a single attempt.
	Count *int

	// Delay before the first retry. Zero retries immediately.
	Delay *time.Duration

	// Backoff doubles the delay on every retry (default true).
	Backoff *bool

	// ExcludeStatuses are never retried. A non-nil empty slice retries
	// every status.
	ExcludeStatuses []int
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Count:           Int(2),
		Delay:           Duration(1 * time.Second),
		Backoff:         Bool(true),
		ExcludeStatuses: []int{400, 401, 403, 404, 422},
	}
}

// Bool returns a pointer to b, for RetryConfig.Backoff.
func Bool(b bool) *bool {
	return &b
}

// Int returns a pointer to n, for RetryConfig.Count.
func Int(n int) *int {
	return &n
}

// Duration returns a pointer to d, for RetryConfig.Delay.
func Duration(d time.Duration) *time.Duration {
	return &d
}

// retryPolicy is a RetryConfig with every field resolved.
type retryPolicy struct {
	count   int
	delay   time.Duration
	backoff bool
	exclude []int
}

// withDefaults fills unset fields from DefaultRetryConfig. Negative
// values are clamped to zero.
func (c RetryConfig) withDefaults() retryPolicy {
	def := DefaultRetryConfig()
	if c.Count == nil {
		c.Count = def.Count
	}
	if c.Delay == nil {
		c.Delay = def.Delay
	}
	if c.Backoff == nil {
		c.Backoff = def.Backoff
	}
	if c.ExcludeStatuses == nil {
		c.ExcludeStatuses = def.ExcludeStatuses
	}
	return retryPolicy{
		count:   max(*c.Count, 0),
		delay:   max(*c.Delay, 0),
		backoff: *c.Backoff,
		exclude: c.ExcludeStatuses,
	}
}

// wait returns the delay before retry n (1-based).
func (p retryPolicy) wait(n int) time.Duration {
	if !p.backoff || n <= 1 {
		return p.delay
	}
	return p.delay << (n - 1)
}

// excluded reports whether status must not be retried.
func (p retryPolicy) excluded(status int) bool {
	return slices.Contains(p.exclude, status)
}

// scheduleBackOff yields exactly policy.wait(1..count) and then stops.
type scheduleBackOff struct {
	policy  retryPolicy
	attempt int
}

func (b *scheduleBackOff) NextBackOff() time.Duration {
	if b.attempt >= b.policy.count {
		return backoff.Stop
	}
	b.attempt++
	return b.policy.wait(b.attempt)
}

func (b *scheduleBackOff) Reset() {
	b.attempt = 0
}

// retryWithBackoff runs fn until it succeeds, fails with an excluded status
// or runs out of retries. The last error is returned unchanged. A context
// ending during a wait yields ErrRetryCancelled.
func retryWithBackoff(ctx context.Context, cfg RetryConfig, timer backoff.Timer, logger zerolog.Logger, fn func() error) error {
	policy := cfg.withDefaults()

	var (
		permanent bool
		lastClass ErrorClass
	)

	operation := func() error {
		err := fn()
		if err == nil {
			return nil
		}

		status := StatusCode(err)
		lastClass = classifyStatus(status)

		var httpErr *HTTPError
		if !errors.As(err, &httpErr) || policy.excluded(status) {
			permanent = true
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		retriesTotal.WithLabelValues(string(lastClass)).Inc()
		retryBackoffSeconds.WithLabelValues(string(lastClass)).Observe(wait.Seconds())

		logger.Warn().
			Err(err).
			Str("error_class", string(lastClass)).
			Dur("backoff", wait).
			Msg("Retrying request after backoff")
	}

	b := backoff.WithContext(&scheduleBackOff{policy: policy}, ctx)
	err := backoff.RetryNotifyWithTimer(operation, b, notify, timer)
	if err == nil || permanent {
		return err
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		logger.Warn().
			Str("error_class", string(lastClass)).
			Msg("Context cancelled during retry backoff")
		return fmt.Errorf("%w: %w", ErrRetryCancelled, ctxErr)
	}

	retryExhaustedTotal.WithLabelValues(string(lastClass)).Inc()
	logger.Warn().
		Err(err).
		Str("error_class", string(lastClass)).
		Int("retries", policy.count).
		Msg("Retry attempts exhausted")

	return err
}
