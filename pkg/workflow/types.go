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

// Package workflow holds the execution record of one pipeline run: its
// status state machine, logs, metrics and the snapshot written to the state
// store.
package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// Type names a pipeline definition.
type Type string

const (
	TypeCreateSite  Type = "create_site"
	TypeUpdateSite  Type = "update_site"
	TypeAuditOnly   Type = "audit_only"
	TypeDeployOnly  Type = "deploy_only"
	TypeImproveSite Type = "improve_site"
)

// Types returns every known workflow type.
func Types() []Type {
	return []Type{TypeCreateSite, TypeUpdateSite, TypeAuditOnly, TypeDeployOnly, TypeImproveSite}
}

// ParseType accepts both snake_case and CamelCase names ("audit_only",
// "AuditOnly").
func ParseType(s string) (Type, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
	for _, t := range Types() {
		if strings.ReplaceAll(string(t), "_", "") == norm {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown workflow type %q", s)
}

// Status is the workflow state machine:
// Pending -> Running -> {Completed | Failed | Cancelled}.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// ErrInvalidTransition is returned for any transition the state machine does
// not allow, including every transition out of a terminal status.
var ErrInvalidTransition = errors.New("invalid workflow status transition")

// IsTerminal returns whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether s -> to is legal.
func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusPending:
		return to == StatusRunning
	case StatusRunning:
		return to == StatusCompleted || to == StatusFailed || to == StatusCancelled
	}
	return false
}
