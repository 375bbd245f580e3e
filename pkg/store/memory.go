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

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/dhruv465/Website-Builder-sub000/pkg/workflow"
)

// MemoryStore keeps encoded snapshots in process memory. Snapshots are
// stored as JSON so readers never share memory with the writer.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, workflowID string, snap *workflow.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot is required")
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[workflowID] = raw
	return nil
}

func (s *MemoryStore) Get(_ context.Context, workflowID string) (*workflow.Snapshot, error) {
	s.mu.RLock()
	raw, ok := s.items[workflowID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decodeSnapshot(raw)
}

func (s *MemoryStore) List(_ context.Context, filter Filter) ([]*workflow.Snapshot, error) {
	s.mu.RLock()
	raws := make([][]byte, 0, len(s.items))
	for _, raw := range s.items {
		raws = append(raws, raw)
	}
	s.mu.RUnlock()

	out := make([]*workflow.Snapshot, 0, len(raws))
	for _, raw := range raws {
		snap, err := decodeSnapshot(raw)
		if err != nil {
			return nil, err
		}
		if filter.matches(snap) {
			out = append(out, snap)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, workflowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, workflowID)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func decodeSnapshot(raw []byte) (*workflow.Snapshot, error) {
	var snap workflow.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}

var _ Store = (*MemoryStore)(nil)
