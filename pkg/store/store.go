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

// Package store externalises workflow snapshots so other processes can read
// live progress. Each workflow is the only writer of its own key; writes are
// last-write-wins.
package store

import (
	"context"
	"errors"

	"github.com/dhruv465/Website-Builder-sub000/pkg/workflow"
)

// ErrNotFound is returned by Get for an unknown workflow ID.
var ErrNotFound = errors.New("workflow snapshot not found")

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Status    workflow.Status
	Type      workflow.Type
	SessionID string
	Limit     int
}

func (f Filter) matches(s *workflow.Snapshot) bool {
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.Type != "" && s.WorkflowType != f.Type {
		return false
	}
	if f.SessionID != "" && s.SessionID != f.SessionID {
		return false
	}
	return true
}

// Store persists workflow snapshots.
type Store interface {
	Put(ctx context.Context, workflowID string, snap *workflow.Snapshot) error
	Get(ctx context.Context, workflowID string) (*workflow.Snapshot, error)
	// List returns matching snapshots, most recently updated first.
	List(ctx context.Context, filter Filter) ([]*workflow.Snapshot, error)
	Delete(ctx context.Context, workflowID string) error
	Close() error
}
