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

// Package notify pushes workflow progress to subscribers. Delivery is best
// effort: a slow or absent subscriber loses events and never slows the
// workflow down.
package notify

import (
	"time"

	"github.com/dhruv465/Website-Builder-sub000/pkg/workflow"
)

// EventType tags an Event.
type EventType string

const (
	EventAgentStatus      EventType = "agent_status"
	EventLogEntry         EventType = "log_entry"
	EventWorkflowComplete EventType = "workflow_complete"
	EventWorkflowError    EventType = "workflow_error"
)

// Event is one progress update of a workflow.
type Event struct {
	Type       EventType      `json:"type"`
	WorkflowID string         `json:"workflow_id"`
	Time       time.Time      `json:"time"`
	Agent      string         `json:"agent,omitempty"`
	Status     string         `json:"status,omitempty"`
	Level      string         `json:"level,omitempty"`
	Message    string         `json:"message,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Result     any            `json:"result,omitempty"`
}

// Terminal reports whether no further events follow for the workflow.
func (e Event) Terminal() bool {
	return e.Type == EventWorkflowComplete || e.Type == EventWorkflowError
}

func AgentStatus(workflowID, agentName, status string, metadata map[string]any) Event {
	return Event{Type: EventAgentStatus, WorkflowID: workflowID, Time: time.Now(), Agent: agentName, Status: status, Metadata: metadata}
}

func LogEntry(workflowID string, entry workflow.LogEntry) Event {
	return Event{
		Type:       EventLogEntry,
		WorkflowID: workflowID,
		Time:       entry.Time,
		Agent:      entry.Agent,
		Level:      entry.Level,
		Message:    entry.Message,
		Metadata:   entry.Metadata,
	}
}

func WorkflowComplete(workflowID string, result any) Event {
	return Event{Type: EventWorkflowComplete, WorkflowID: workflowID, Time: time.Now(), Status: string(workflow.StatusCompleted), Result: result}
}

// WorkflowError reports a workflow that ended without completing. status is
// failed or cancelled.
func WorkflowError(workflowID string, status workflow.Status, msg string) Event {
	return Event{Type: EventWorkflowError, WorkflowID: workflowID, Time: time.Now(), Status: string(status), Message: msg}
}
