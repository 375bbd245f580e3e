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
	"sync"
	"time"
)

// Store keeps per-caller counters.
type Store interface {
	// Get returns the count and window end for key. An absent or expired
	// counter reads as zero with a window starting at now.
	Get(ctx context.Context, key string, window Window, now time.Time) (int64, time.Time, error)

	// Add increments the counter, starting a new window if the current
	// one has ended, and returns the new count and window end.
	Add(ctx context.Context, key string, window Window, amount int64, now time.Time) (int64, time.Time, error)

	// DeleteExpired drops counters whose window ended before t.
	DeleteExpired(ctx context.Context, t time.Time) (int, error)
}

type counterKey struct {
	key    string
	window Window
}

type counter struct {
	n         int64
	windowEnd time.Time
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu   sync.Mutex
	data map[counterKey]*counter
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[counterKey]*counter)}
}

func (s *MemoryStore) Get(_ context.Context, key string, window Window, now time.Time) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.data[counterKey{key, window}]
	if !ok || !c.windowEnd.After(now) {
		return 0, now.Add(window.Duration()), nil
	}
	return c.n, c.windowEnd, nil
}

func (s *MemoryStore) Add(_ context.Context, key string, window Window, amount int64, now time.Time) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := counterKey{key, window}
	c, ok := s.data[k]
	if !ok || !c.windowEnd.After(now) {
		c = &counter{windowEnd: now.Add(window.Duration())}
		s.data[k] = c
	}
	c.n += amount
	return c.n, c.windowEnd, nil
}

func (s *MemoryStore) DeleteExpired(_ context.Context, t time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k, c := range s.data {
		if c.windowEnd.Before(t) {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}

// Len returns the number of live counters.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
