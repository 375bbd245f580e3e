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

package workflow

import (
	"encoding/json"
	"log/slog"
	"maps"
	"slices"
	"time"
)

// Snapshot is the serialisable copy of a State written to the state store.
type Snapshot struct {
	WorkflowID         string            `json:"workflow_id"`
	WorkflowType       Type              `json:"workflow_type"`
	SessionID          string            `json:"session_id"`
	Status             Status            `json:"status"`
	CurrentAgent       string            `json:"current_agent,omitempty"`
	CompletedAgents    []string          `json:"completed_agents"`
	FailedAgent        string            `json:"failed_agent,omitempty"`
	Logs               []LogEntry        `json:"logs"`
	Metrics            Metrics           `json:"metrics"`
	Result             json.RawMessage   `json:"result,omitempty"`
	Error              string            `json:"error,omitempty"`
	ErrorKind          string            `json:"error_kind,omitempty"`
	ErrorDetails       map[string]any    `json:"error_details,omitempty"`
	ProgressPercentage float64           `json:"progress_percentage"`
	AgentStates        map[string]string `json:"agent_states"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// Snapshot copies the state. A result that cannot be encoded is dropped from
// the snapshot and logged; the live state keeps it.
func (s *State) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &Snapshot{
		WorkflowID:         s.id,
		WorkflowType:       s.typ,
		SessionID:          s.sessionID,
		Status:             s.status,
		CurrentAgent:       s.currentAgent,
		CompletedAgents:    slices.Clone(s.completedAgents),
		FailedAgent:        s.failedAgent,
		Logs:               slices.Clone(s.logs),
		Metrics:            s.metrics.clone(),
		Error:              s.errMsg,
		ErrorKind:          s.errorKind,
		ErrorDetails:       cloneMap(s.errorDetails),
		ProgressPercentage: s.progressLocked(),
		AgentStates:        maps.Clone(s.agentStates),
		CreatedAt:          s.createdAt,
		UpdatedAt:          s.updatedAt,
	}
	if snap.CompletedAgents == nil {
		snap.CompletedAgents = []string{}
	}
	if snap.Logs == nil {
		snap.Logs = []LogEntry{}
	}
	if s.result != nil {
		raw, err := json.Marshal(s.result)
		if err != nil {
			slog.Warn("Dropping unencodable workflow result from snapshot", "workflow_id", s.id, "error", err)
		} else {
			snap.Result = raw
		}
	}
	return snap
}
