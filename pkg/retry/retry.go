// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package retry runs operations with exponential backoff.
//
// The executor knows nothing about workflows. Callers observe retries through
// the OnRetry hook, which is the only side effect of Do besides the operation
// itself.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"
)

// Policy configures retry behaviour. A Policy is a value and is never
// mutated by the executor.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration `yaml:"initial_delay,omitempty" json:"initial_delay,omitempty"`

	// MaxDelay caps every computed delay.
	MaxDelay time.Duration `yaml:"max_delay,omitempty" json:"max_delay,omitempty"`

	// ExponentialBase is the growth factor between attempts.
	ExponentialBase float64 `yaml:"exponential_base,omitempty" json:"exponential_base,omitempty"`

	// Jitter replaces each delay with a uniform sample from [0, delay].
	Jitter bool `yaml:"jitter,omitempty" json:"jitter,omitempty"`
}

// DefaultPolicy returns the policy used for agent steps.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:      3,
		InitialDelay:    time.Second,
		MaxDelay:        30 * time.Second,
		ExponentialBase: 2,
		Jitter:          true,
	}
}

// Validate checks the policy.
func (p Policy) Validate() error {
	if p.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	if p.InitialDelay < 0 || p.MaxDelay < 0 {
		return fmt.Errorf("delays must be non-negative")
	}
	if p.MaxDelay > 0 && p.InitialDelay > p.MaxDelay {
		return fmt.Errorf("initial_delay (%s) exceeds max_delay (%s)", p.InitialDelay, p.MaxDelay)
	}
	if p.ExponentialBase != 0 && p.ExponentialBase < 1 {
		return fmt.Errorf("exponential_base must be >= 1, got %g", p.ExponentialBase)
	}
	return nil
}

// WithMaxRetries returns a copy of p with MaxRetries replaced.
func (p Policy) WithMaxRetries(n int) Policy {
	p.MaxRetries = n
	return p
}

// Delay returns the un-jittered delay before retry number attempt (0-based):
// min(MaxDelay, InitialDelay * ExponentialBase^attempt).
func (p Policy) Delay(attempt int) time.Duration {
	base := p.ExponentialBase
	if base == 0 {
		base = 2
	}
	d := float64(p.InitialDelay) * math.Pow(base, float64(attempt))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	if d > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

func (p Policy) nextDelay(attempt int) time.Duration {
	d := p.Delay(attempt)
	if p.Jitter && d > 0 {
		d = time.Duration(rand.Int64N(int64(d) + 1))
	}
	return d
}

// Retryable is implemented by errors that know whether a retry may succeed.
// Errors that do not implement it are never retried.
type Retryable interface {
	IsRetryable() bool
}

// IsRetryable reports whether err (or an error it wraps) is marked retryable.
// Context cancellation is never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var r Retryable
	if errors.As(err, &r) {
		return r.IsRetryable()
	}
	return false
}

// OnRetry is invoked before each wait. attempt is 1 for the first retry.
type OnRetry func(attempt int, err error, delay time.Duration)

// Do calls op until it succeeds, fails with a non-retryable error, or
// policy.MaxRetries retries have been spent. The last error is returned
// unchanged so callers keep their own error taxonomy.
func Do[T any](ctx context.Context, policy Policy, op func(ctx context.Context) (T, error), onRetry OnRetry) (T, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		if !IsRetryable(err) {
			return zero, err
		}

		if attempt >= policy.MaxRetries {
			slog.Debug("Retries exhausted", "attempts", attempt+1, "error", err)
			return zero, err
		}

		delay := policy.nextDelay(attempt)
		if onRetry != nil {
			onRetry(attempt+1, err, delay)
		}

		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
