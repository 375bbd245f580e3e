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
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestLimiter(t *testing.T, limits ...Limit) (*Limiter, *MemoryStore, *clock) {
	t.Helper()
	clk := &clock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	l, err := New(limits, store, WithClock(clk.now))
	require.NoError(t, err)
	return l, store, clk
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("hour")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, w.Duration())

	_, err = ParseWindow("fortnight")
	assert.Error(t, err)
}

func TestNew_Validates(t *testing.T) {
	_, err := New(nil, NewMemoryStore())
	assert.Error(t, err)
	_, err = New([]Limit{{Window: WindowMinute, Max: 0}}, NewMemoryStore())
	assert.Error(t, err)
	_, err = New([]Limit{{Window: "year", Max: 1}}, NewMemoryStore())
	assert.Error(t, err)
	_, err = New([]Limit{{Window: WindowMinute, Max: 1}}, nil)
	assert.Error(t, err)
}

func TestAllow_DeniesAtLimitAndResetsWithWindow(t *testing.T) {
	ctx := context.Background()
	l, _, clk := newTestLimiter(t, Limit{Window: WindowMinute, Max: 2})

	for i := 0; i < 2; i++ {
		res, err := l.Allow(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}

	res, err := l.Allow(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, "2 workflows per minute exceeded", res.Reason)
	assert.Equal(t, time.Minute, res.RetryAfter)
	assert.Equal(t, int64(2), res.Usages[0].Current)

	other, err := l.Allow(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, other.Allowed)

	clk.advance(time.Minute)
	res, err = l.Allow(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, int64(1), res.Usages[0].Current)
}

func TestAllow_DeniedRequestsAreNotCounted(t *testing.T) {
	ctx := context.Background()
	l, _, clk := newTestLimiter(t,
		Limit{Window: WindowMinute, Max: 1},
		Limit{Window: WindowHour, Max: 3},
	)

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i)
		clk.advance(time.Minute)
	}

	// The minute window is free, the hour window is spent.
	res, err := l.Allow(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, "3 workflows per hour exceeded", res.Reason)
	assert.Equal(t, 57*time.Minute, res.RetryAfter)

	u, ok := res.Tightest()
	require.True(t, ok)
	assert.Equal(t, WindowHour, u.Window)
	assert.Equal(t, int64(0), u.Remaining)
	assert.Equal(t, int64(0), res.Usages[0].Current, "denied request must not be recorded")
}

func TestAllow_EmptyIdentifier(t *testing.T) {
	l, _, _ := newTestLimiter(t, Limit{Window: WindowMinute, Max: 1})
	_, err := l.Allow(context.Background(), "")
	assert.Error(t, err)
}

func TestAllow_Concurrent(t *testing.T) {
	l, _, _ := newTestLimiter(t, Limit{Window: WindowMinute, Max: 10})

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := l.Allow(context.Background(), "alice")
			if err == nil && res.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, allowed)
}

func TestMemoryStore_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()

	_, _, err := s.Add(ctx, "a", WindowMinute, 1, now)
	require.NoError(t, err)
	_, _, err = s.Add(ctx, "a", WindowDay, 1, now)
	require.NoError(t, err)

	n, err := s.DeleteExpired(ctx, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, s.Len())
}

func TestRunCleanup_StopsWithContext(t *testing.T) {
	l, store, clk := newTestLimiter(t, Limit{Window: WindowMinute, Max: 5})
	_, err := l.Allow(context.Background(), "alice")
	require.NoError(t, err)
	clk.advance(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.RunCleanup(ctx, time.Millisecond) }()

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("RunCleanup did not stop")
	}
}

func TestMiddleware(t *testing.T) {
	l, _, _ := newTestLimiter(t, Limit{Window: WindowMinute, Max: 1})
	handler := Middleware(l, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	call := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/workflows", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	rec := call("10.0.0.1:5000")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	// Same host, different port.
	rec = call("10.0.0.1:6000")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "1 workflows per minute exceeded")

	assert.Equal(t, http.StatusAccepted, call("10.0.0.2:5000").Code)
}

func TestMiddleware_EmptyKeySkips(t *testing.T) {
	l, _, _ := newTestLimiter(t, Limit{Window: WindowMinute, Max: 1})
	handler := Middleware(l, func(*http.Request) string { return "" })(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
