// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package retry runs an operation until it succeeds, a non-retryable error
// is returned, or the attempt budget is spent.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

type RetryIf func(error) bool

// Backoff builds a fresh backoff.BackOff per call.
type Backoff func() backoff.BackOff

func Fixed(interval time.Duration) Backoff {
	return func() backoff.BackOff {
		return backoff.NewConstantBackOff(interval)
	}
}

func Exponential(base, max time.Duration) Backoff {
	return func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = base
		b.MaxInterval = max
		return b
	}
}

type config struct {
	maxAttempts    uint
	maxElapsedTime time.Duration
	backoff        Backoff
	retryIf        RetryIf
	notify         backoff.Notify
}

type Option func(*config)

// WithMaxAttempts sets the total number of attempts, the first one included.
func WithMaxAttempts(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxAttempts = uint(n)
		}
	}
}

func WithMaxElapsedTime(d time.Duration) Option {
	return func(c *config) {
		c.maxElapsedTime = d
	}
}

func WithBackoff(b Backoff) Option {
	return func(c *config) {
		if b != nil {
			c.backoff = b
		}
	}
}

func WithRetryIf(fn RetryIf) Option {
	return func(c *config) {
		if fn != nil {
			c.retryIf = fn
		}
	}
}

// WithNotify is called before each wait with the failed attempt's error.
func WithNotify(fn func(err error, wait time.Duration)) Option {
	return func(c *config) {
		c.notify = fn
	}
}

func Do(ctx context.Context, fn func(ctx context.Context) error, opts ...Option) error {
	_, err := DoValue(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, opts...)
	return err
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, fn func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := &config{
		maxAttempts: 3,
		backoff:     Fixed(time.Second),
		retryIf:     IsRetryableError,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}

	operation := func() (T, error) {
		v, err := fn(ctx)
		if err != nil && !cfg.retryIf(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	retryOpts := []backoff.RetryOption{
		backoff.WithBackOff(cfg.backoff()),
		backoff.WithMaxTries(cfg.maxAttempts),
		backoff.WithMaxElapsedTime(cfg.maxElapsedTime),
	}
	if cfg.notify != nil {
		retryOpts = append(retryOpts, backoff.WithNotify(cfg.notify))
	}

	v, err := backoff.Retry(ctx, operation, retryOpts...)
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return v, permanent.Unwrap()
	}
	return v, err
}

// IsRetryableError retries everything except context cancellation and expiry.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
