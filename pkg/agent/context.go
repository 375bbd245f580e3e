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

package agent

// RunContext is the per-workflow execution record handed to every step. It is
// owned by the goroutine driving one workflow and is not safe for concurrent
// use.
type RunContext struct {
	SessionID   string
	WorkflowID  string
	Preferences map[string]any
	MaxRetries  int

	outputs map[string]Output
}

// NewRunContext creates an empty context for one workflow.
func NewRunContext(sessionID, workflowID string, preferences map[string]any, maxRetries int) *RunContext {
	if preferences == nil {
		preferences = map[string]any{}
	}
	return &RunContext{
		SessionID:   sessionID,
		WorkflowID:  workflowID,
		Preferences: preferences,
		MaxRetries:  maxRetries,
		outputs:     make(map[string]Output),
	}
}

// SetOutput records the output of the named agent, replacing any earlier one.
func (rc *RunContext) SetOutput(name string, out Output) {
	rc.outputs[name] = out
}

// Output returns the latest output recorded for name.
func (rc *RunContext) Output(name string) (Output, bool) {
	out, ok := rc.outputs[name]
	return out, ok
}

// Outputs returns a copy of every recorded output keyed by agent name.
func (rc *RunContext) Outputs() map[string]Output {
	out := make(map[string]Output, len(rc.outputs))
	for k, v := range rc.outputs {
		out[k] = v
	}
	return out
}

// OutputOf returns the output recorded for name if it has type T.
func OutputOf[T Output](rc *RunContext, name string) (T, bool) {
	var zero T
	out, ok := rc.Output(name)
	if !ok {
		return zero, false
	}
	typed, ok := out.(T)
	return typed, ok
}
