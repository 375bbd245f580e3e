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

// Package registry provides a concurrency-safe, name-keyed table.
package registry

import (
	"fmt"
	"sort"
	"sync"
)

// Table is a mutex-guarded map keyed by name. Put overwrites; the most recent
// value stored under a name is the only one kept.
type Table[T any] struct {
	mu    sync.RWMutex
	items map[string]T
}

// NewTable creates an empty table.
func NewTable[T any]() *Table[T] {
	return &Table[T]{items: make(map[string]T)}
}

// Put stores item under name, replacing any previous entry. It reports
// whether an entry was replaced.
func (t *Table[T]) Put(name string, item T) (bool, error) {
	if name == "" {
		return false, fmt.Errorf("name cannot be empty")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	_, replaced := t.items[name]
	t.items[name] = item
	return replaced, nil
}

func (t *Table[T]) Get(name string) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	item, ok := t.items[name]
	return item, ok
}

// Delete removes name and reports whether it was present.
func (t *Table[T]) Delete(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.items[name]; !ok {
		return false
	}
	delete(t.items, name)
	return true
}

// Names returns the registered names in sorted order.
func (t *Table[T]) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.items))
	for name := range t.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a copy of the table contents.
func (t *Table[T]) Snapshot() map[string]T {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]T, len(t.items))
	for k, v := range t.items {
		out[k] = v
	}
	return out
}

func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.items)
}
