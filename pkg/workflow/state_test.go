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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestStatus_Transitions(t *testing.T) {
	all := []Status{StatusPending, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled}
	legal := map[[2]Status]bool{
		{StatusPending, StatusRunning}:   true,
		{StatusRunning, StatusCompleted}: true,
		{StatusRunning, StatusFailed}:    true,
		{StatusRunning, StatusCancelled}: true,
	}

	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, legal[[2]Status{from, to}], from.CanTransition(to), "%s -> %s", from, to)
		}
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusRunning.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
}

func TestParseType(t *testing.T) {
	tests := map[string]Type{
		"audit_only":   TypeAuditOnly,
		"AuditOnly":    TypeAuditOnly,
		"create_site":  TypeCreateSite,
		"ImproveSite":  TypeImproveSite,
		" deploy_only": TypeDeployOnly,
	}
	for in, want := range tests {
		got, err := ParseType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseType("teleport")
	assert.Error(t, err)
}

func TestState_TerminalIsImmutable(t *testing.T) {
	for _, terminal := range []Status{StatusCompleted, StatusFailed, StatusCancelled} {
		s := NewState("wf", TypeAuditOnly, "s1", 1, t0)
		require.NoError(t, s.Transition(StatusRunning, t0))
		require.NoError(t, s.Transition(terminal, t0.Add(time.Second)))

		for _, next := range []Status{StatusPending, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled} {
			err := s.Transition(next, t0.Add(2*time.Second))
			assert.ErrorIs(t, err, ErrInvalidTransition)
		}
		assert.Equal(t, terminal, s.Status())
		assert.False(t, s.Cancel(t0.Add(3*time.Second)))
		assert.Equal(t, time.Second, s.Metrics().TotalDuration, "metrics are finalised once")
	}
}

func TestState_StepRecordersIgnoredAfterCancel(t *testing.T) {
	s := NewState("wf", TypeCreateSite, "s1", 4, t0)
	require.NoError(t, s.Transition(StatusRunning, t0))
	s.SetCurrentAgent("InputAgent", t0)
	s.SetAgentState("InputAgent", "executing")
	require.True(t, s.Cancel(t0.Add(time.Second)))

	late := t0.Add(5 * time.Second)
	s.SetCurrentAgent("CodeGenerationAgent", late)
	s.SetAgentState("InputAgent", "ready")
	s.RecordSuccess("InputAgent", 5*time.Second, 1, 100, late)
	s.RecordFailure("InputAgent", 5*time.Second, late)
	s.MarkFailedAgent("InputAgent", late)
	assert.Equal(t, 0, s.IncRetry(late))

	m := s.Metrics()
	assert.Equal(t, time.Second, m.TotalDuration)
	assert.Zero(t, m.AgentTotal())
	assert.Zero(t, m.ErrorCount)
	assert.Zero(t, m.LLMCalls)

	snap := s.Snapshot()
	assert.Equal(t, StatusCancelled, snap.Status)
	assert.Empty(t, snap.CompletedAgents)
	assert.Empty(t, snap.FailedAgent)
	assert.Empty(t, snap.CurrentAgent)
	assert.Equal(t, "executing", snap.AgentStates["InputAgent"])
	assert.Equal(t, t0.Add(time.Second), snap.UpdatedAt)
}

func TestState_PendingCannotSkipRunning(t *testing.T) {
	s := NewState("wf", TypeAuditOnly, "s1", 1, t0)
	assert.ErrorIs(t, s.Complete("x", t0), ErrInvalidTransition)
	assert.False(t, s.Cancel(t0))
	assert.Equal(t, StatusPending, s.Status())
}

func TestState_MetricsAndProgress(t *testing.T) {
	s := NewState("wf-1", TypeCreateSite, "s1", 4, t0)
	require.NoError(t, s.Transition(StatusRunning, t0))

	s.SetCurrentAgent("InputAgent", t0)
	s.RecordSuccess("InputAgent", 2*time.Second, 1, 120, t0.Add(2*time.Second))
	assert.InDelta(t, 25.0, s.Progress(), 0.001)

	s.RecordSuccess("CodeGenerationAgent", 3*time.Second, 2, 900, t0.Add(5*time.Second))
	assert.Equal(t, 1, s.IncRetry(t0.Add(5*time.Second)))

	s.RecordFailure("AuditAgent", time.Second, t0.Add(6*time.Second))
	require.NoError(t, s.Fail("audit exploded", "unknown", nil, t0.Add(7*time.Second)))

	m := s.Metrics()
	assert.Equal(t, 7*time.Second, m.TotalDuration)
	assert.Equal(t, 6*time.Second, m.AgentTotal())
	assert.LessOrEqual(t, m.AgentTotal(), m.TotalDuration)
	assert.Equal(t, 3, m.LLMCalls)
	assert.Equal(t, 1020, m.LLMTokensUsed)
	assert.Equal(t, 1, m.ErrorCount)

	res := s.Result()
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, "AuditAgent", res.FailedAgent)
	assert.Equal(t, "audit exploded", res.Error)
	assert.Equal(t, []string{"InputAgent", "CodeGenerationAgent"}, res.CompletedAgents)
	assert.InDelta(t, 50.0, res.ProgressPercentage, 0.001)
}

func TestState_CompletedProgressIs100(t *testing.T) {
	s := NewState("wf", TypeImproveSite, "s1", 0, t0)
	require.NoError(t, s.Transition(StatusRunning, t0))
	assert.Zero(t, s.Progress())
	require.NoError(t, s.Complete(map[string]any{"ok": true}, t0.Add(time.Second)))
	assert.Equal(t, 100.0, s.Progress())
	assert.True(t, s.Result().Succeeded())
}

func TestState_RepeatedAgentDurationsAccumulate(t *testing.T) {
	s := NewState("wf", TypeImproveSite, "s1", 0, t0)
	require.NoError(t, s.Transition(StatusRunning, t0))
	s.RecordSuccess("AuditAgent", time.Second, 0, 0, t0)
	s.RecordSuccess("AuditAgent", 2*time.Second, 0, 0, t0)
	assert.Equal(t, 3*time.Second, s.Metrics().AgentDurations["AuditAgent"])
}

func TestState_Snapshot(t *testing.T) {
	s := NewState("wf-9", TypeAuditOnly, "s1", 1, t0)
	require.NoError(t, s.Transition(StatusRunning, t0))
	s.SetAgentState("AuditAgent", "executing")
	s.AddLog(t0, LevelInfo, "Executing AuditAgent", "AuditAgent", nil)
	s.RecordSuccess("AuditAgent", time.Second, 0, 0, t0.Add(time.Second))
	require.NoError(t, s.Complete(map[string]int{"score": 82}, t0.Add(2*time.Second)))

	snap := s.Snapshot()
	assert.Equal(t, "wf-9", snap.WorkflowID)
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Empty(t, snap.CurrentAgent)
	assert.Equal(t, "executing", snap.AgentStates["AuditAgent"])
	assert.JSONEq(t, `{"score":82}`, string(snap.Result))
	require.Len(t, snap.Logs, 1)

	raw, err := json.Marshal(snap)
	require.NoError(t, err)
	var back Snapshot
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, snap.Metrics.TotalDuration, back.Metrics.TotalDuration)
	assert.Equal(t, []string{"AuditAgent"}, back.CompletedAgents)

	snap.Logs[0].Message = "mutated"
	assert.Equal(t, "Executing AuditAgent", s.Logs()[0].Message, "snapshot must not alias state")
}

func TestState_SnapshotDropsUnencodableResult(t *testing.T) {
	s := NewState("wf", TypeAuditOnly, "s1", 1, t0)
	require.NoError(t, s.Transition(StatusRunning, t0))
	require.NoError(t, s.Complete(map[string]any{"ch": make(chan int)}, t0))

	snap := s.Snapshot()
	assert.Nil(t, snap.Result)
	assert.NotNil(t, s.Result().Result)
}

func TestState_ConcurrentReaders(t *testing.T) {
	s := NewState("wf", TypeCreateSite, "s1", 5, t0)
	require.NoError(t, s.Transition(StatusRunning, t0))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.AddLog(t0, LevelInfo, "tick", "", nil)
			s.IncRetry(t0)
		}()
		go func() {
			defer wg.Done()
			_ = s.Snapshot()
			_ = s.Progress()
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, s.Metrics().RetryCount)
	assert.Len(t, s.Logs(), 20)
}
