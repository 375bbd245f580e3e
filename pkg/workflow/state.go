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
	"fmt"
	"slices"
	"sync"
	"time"
)

// Log levels used in LogEntry.Level.
const (
	LevelInfo  = "info"
	LevelWarn  = "warning"
	LevelError = "error"
)

// LogEntry is one line of a workflow's append-only log.
type LogEntry struct {
	Time     time.Time      `json:"time"`
	Level    string         `json:"level"`
	Message  string         `json:"message"`
	Agent    string         `json:"agent,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// State is the mutable record of one workflow run. It is written by the
// goroutine driving the workflow; the mutex lets cancellation, the retention
// sweeper and status readers observe it concurrently.
type State struct {
	mu sync.Mutex

	id        string
	typ       Type
	sessionID string
	createdAt time.Time
	updatedAt time.Time

	status          Status
	currentAgent    string
	completedAgents []string
	failedAgent     string
	logs            []LogEntry
	metrics         Metrics
	agentStates     map[string]string
	expectedSteps   int

	result       any
	errMsg       string
	errorKind    string
	errorDetails map[string]any
}

// NewState creates a Pending workflow. expectedSteps drives the progress
// percentage; zero means unknown.
func NewState(id string, typ Type, sessionID string, expectedSteps int, now time.Time) *State {
	return &State{
		id:            id,
		typ:           typ,
		sessionID:     sessionID,
		createdAt:     now,
		updatedAt:     now,
		status:        StatusPending,
		agentStates:   make(map[string]string),
		expectedSteps: expectedSteps,
		metrics:       Metrics{AgentDurations: make(map[string]time.Duration)},
	}
}

func (s *State) ID() string        { return s.id }
func (s *State) Type() Type        { return s.typ }
func (s *State) SessionID() string { return s.sessionID }

func (s *State) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Transition moves the workflow to status to. Entering Running starts the
// metrics clock; entering a terminal status stops it.
func (s *State) Transition(to Status, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(to, now)
}

func (s *State) transitionLocked(to Status, now time.Time) error {
	if !s.status.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.status, to)
	}
	s.status = to
	s.updatedAt = now
	switch {
	case to == StatusRunning:
		s.metrics.start(now)
	case to.IsTerminal():
		s.metrics.finish(now)
		s.currentAgent = ""
	}
	return nil
}

// Complete marks the workflow Completed with result.
func (s *State) Complete(result any, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transitionLocked(StatusCompleted, now); err != nil {
		return err
	}
	s.result = result
	return nil
}

// Fail marks the workflow Failed. details is the error's side-channel
// payload, if any.
func (s *State) Fail(msg, kind string, details map[string]any, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transitionLocked(StatusFailed, now); err != nil {
		return err
	}
	s.errMsg = msg
	s.errorKind = kind
	s.errorDetails = details
	return nil
}

// Cancel moves a Running workflow to Cancelled and reports whether it did.
func (s *State) Cancel(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusRunning {
		return false
	}
	return s.transitionLocked(StatusCancelled, now) == nil
}

func (s *State) SetExpectedSteps(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expectedSteps = n
}

func (s *State) SetCurrentAgent(name string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.IsTerminal() {
		return
	}
	s.currentAgent = name
	s.updatedAt = now
}

// SetAgentState records the lifecycle of an agent as seen by this workflow.
func (s *State) SetAgentState(name, lifecycle string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.IsTerminal() {
		return
	}
	s.agentStates[name] = lifecycle
}

// RecordSuccess appends name to the completed agents and folds its duration
// and LLM usage into the metrics.
//
// The step recorders (RecordSuccess, RecordFailure, MarkFailedAgent,
// IncRetry, SetCurrentAgent and SetAgentState) are no-ops once the workflow
// is terminal, so a step that returns after cancellation leaves the final
// record untouched.
func (s *State) RecordSuccess(name string, d time.Duration, llmCalls, llmTokens int, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.IsTerminal() {
		return
	}
	s.metrics.addAgentDuration(name, d)
	s.metrics.LLMCalls += llmCalls
	s.metrics.LLMTokensUsed += llmTokens
	s.completedAgents = append(s.completedAgents, name)
	s.updatedAt = now
}

// RecordFailure notes a failed step.
func (s *State) RecordFailure(name string, d time.Duration, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.IsTerminal() {
		return
	}
	s.metrics.addAgentDuration(name, d)
	s.metrics.ErrorCount++
	s.failedAgent = name
	s.updatedAt = now
}

// MarkFailedAgent blames name for a failure detected outside its own step,
// such as a missing upstream output. An agent already recorded as failed is
// kept.
func (s *State) MarkFailedAgent(name string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failedAgent != "" || name == "" || s.status.IsTerminal() {
		return
	}
	s.failedAgent = name
	s.metrics.ErrorCount++
	s.updatedAt = now
}

// IncRetry counts one retry and returns the new total.
func (s *State) IncRetry(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.IsTerminal() {
		return s.metrics.RetryCount
	}
	s.metrics.RetryCount++
	s.updatedAt = now
	return s.metrics.RetryCount
}

// AddLog appends a log entry and returns it.
func (s *State) AddLog(now time.Time, level, msg, agentName string, metadata map[string]any) LogEntry {
	entry := LogEntry{Time: now, Level: level, Message: msg, Agent: agentName, Metadata: metadata}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
	s.updatedAt = now
	return entry
}

// Metrics returns a copy of the current metrics.
func (s *State) Metrics() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics.clone()
}

func (s *State) CompletedAgents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.completedAgents)
}

func (s *State) FailedAgent() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failedAgent
}

func (s *State) Logs() []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.logs)
}

// FinishedAt returns when the workflow reached a terminal status.
func (s *State) FinishedAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.status.IsTerminal() {
		return time.Time{}, false
	}
	return s.metrics.EndTime, true
}

// Progress returns the completion percentage in [0, 100]. Only a Completed
// workflow reports 100.
func (s *State) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progressLocked()
}

func (s *State) progressLocked() float64 {
	if s.status == StatusCompleted {
		return 100
	}
	if s.expectedSteps <= 0 {
		return 0
	}
	p := float64(len(s.completedAgents)) / float64(s.expectedSteps) * 100
	if p > 99 {
		p = 99
	}
	return p
}

// Result builds the caller-facing envelope.
func (s *State) Result() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := &Result{
		WorkflowID:         s.id,
		Type:               s.typ,
		Status:             s.status,
		Result:             s.result,
		Error:              s.errMsg,
		ErrorKind:          s.errorKind,
		ErrorDetails:       cloneMap(s.errorDetails),
		Metrics:            s.metrics.clone(),
		CompletedAgents:    slices.Clone(s.completedAgents),
		ProgressPercentage: s.progressLocked(),
	}
	if s.status == StatusFailed {
		r.FailedAgent = s.failedAgent
	}
	return r
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
