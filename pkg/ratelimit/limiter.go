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

package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Limiter enforces a set of limits per caller identifier.
type Limiter struct {
	limits []Limit
	store  Store
	now    func() time.Time

	// Check and record must not interleave across callers sharing a key.
	mu sync.Mutex
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func New(limits []Limit, store Store, opts ...Option) (*Limiter, error) {
	if len(limits) == 0 {
		return nil, fmt.Errorf("at least one limit is required")
	}
	for _, lim := range limits {
		if lim.Window.Duration() == 0 {
			return nil, fmt.Errorf("unknown window %q", lim.Window)
		}
		if lim.Max <= 0 {
			return nil, fmt.Errorf("limit for %s window must be positive, got %d", lim.Window, lim.Max)
		}
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	l := &Limiter{limits: limits, store: store, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Allow records one request for identifier if every limit has room. A
// denied request is not counted.
func (l *Limiter) Allow(ctx context.Context, identifier string) (*Result, error) {
	if identifier == "" {
		return nil, fmt.Errorf("identifier cannot be empty")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	res := &Result{Allowed: true, Usages: make([]Usage, 0, len(l.limits))}
	for _, lim := range l.limits {
		current, end, err := l.store.Get(ctx, identifier, lim.Window, now)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s counter: %w", lim.Window, err)
		}
		if current >= lim.Max {
			res.Allowed = false
			if res.Reason == "" {
				res.Reason = fmt.Sprintf("%d workflows per %s exceeded", lim.Max, lim.Window)
			}
			if wait := end.Sub(now); wait > res.RetryAfter {
				res.RetryAfter = wait
			}
		}
		res.Usages = append(res.Usages, usage(lim, current, end))
	}
	if !res.Allowed {
		return res, nil
	}

	for i, lim := range l.limits {
		current, end, err := l.store.Add(ctx, identifier, lim.Window, 1, now)
		if err != nil {
			return nil, fmt.Errorf("failed to record %s counter: %w", lim.Window, err)
		}
		res.Usages[i] = usage(lim, current, end)
	}
	return res, nil
}

func usage(lim Limit, current int64, end time.Time) Usage {
	return Usage{
		Window:    lim.Window,
		Current:   current,
		Limit:     lim.Max,
		Remaining: max(lim.Max-current, 0),
		WindowEnd: end,
	}
}

// RunCleanup drops expired counters every interval until ctx is done.
func (l *Limiter) RunCleanup(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := l.store.DeleteExpired(ctx, l.now())
			if err != nil {
				slog.Warn("Rate limit cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Debug("Rate limit counters expired", "count", n)
			}
		}
	}
}
