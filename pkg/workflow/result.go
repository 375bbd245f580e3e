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

// Result is what ExecuteWorkflow hands back. Failures are reported here
// rather than as a Go error.
type Result struct {
	WorkflowID         string         `json:"workflow_id"`
	Type               Type           `json:"workflow_type"`
	Status             Status         `json:"status"`
	Result             any            `json:"result,omitempty"`
	Error              string         `json:"error,omitempty"`
	FailedAgent        string         `json:"failed_agent,omitempty"`
	ErrorKind          string         `json:"error_kind,omitempty"`
	ErrorDetails       map[string]any `json:"error_details,omitempty"`
	Metrics            Metrics        `json:"metrics"`
	CompletedAgents    []string       `json:"completed_agents"`
	ProgressPercentage float64        `json:"progress_percentage"`
}

// Succeeded reports whether the workflow completed.
func (r *Result) Succeeded() bool {
	return r != nil && r.Status == StatusCompleted
}
