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

import "time"

// Metrics are the counters of one workflow. Durations are accumulated per
// agent name; a name that runs more than once (improve cycles) sums.
type Metrics struct {
	StartTime      time.Time                `json:"start_time,omitzero"`
	EndTime        time.Time                `json:"end_time,omitzero"`
	TotalDuration  time.Duration            `json:"total_duration"`
	AgentDurations map[string]time.Duration `json:"agent_durations"`
	LLMCalls       int                      `json:"llm_calls"`
	LLMTokensUsed  int                      `json:"llm_tokens_used"`
	ErrorCount     int                      `json:"error_count"`
	RetryCount     int                      `json:"retry_count"`
}

func (m *Metrics) start(now time.Time) {
	m.StartTime = now
}

func (m *Metrics) finish(now time.Time) {
	if !m.EndTime.IsZero() {
		return
	}
	m.EndTime = now
	if !m.StartTime.IsZero() {
		m.TotalDuration = now.Sub(m.StartTime)
	}
}

func (m *Metrics) addAgentDuration(name string, d time.Duration) {
	if m.AgentDurations == nil {
		m.AgentDurations = make(map[string]time.Duration)
	}
	m.AgentDurations[name] += d
}

// AgentTotal is the sum of all per-agent durations.
func (m Metrics) AgentTotal() time.Duration {
	var total time.Duration
	for _, d := range m.AgentDurations {
		total += d
	}
	return total
}

func (m Metrics) clone() Metrics {
	out := m
	out.AgentDurations = make(map[string]time.Duration, len(m.AgentDurations))
	for k, v := range m.AgentDurations {
		out.AgentDurations[k] = v
	}
	return out
}
