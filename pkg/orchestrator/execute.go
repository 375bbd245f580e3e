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

package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dhruv465/Website-Builder-sub000/pkg/agent"
	"github.com/dhruv465/Website-Builder-sub000/pkg/notify"
	"github.com/dhruv465/Website-Builder-sub000/pkg/observability"
	"github.com/dhruv465/Website-Builder-sub000/pkg/retry"
	"github.com/dhruv465/Website-Builder-sub000/pkg/site"
	"github.com/dhruv465/Website-Builder-sub000/pkg/workflow"
)

// PreferenceMaxRetries overrides the retry budget of one workflow.
const PreferenceMaxRetries = "max_retries"

// Request asks for one workflow run.
type Request struct {
	// Type may be empty, in which case it is taken from Input.
	Type  workflow.Type
	Input site.Request

	SessionID   string
	Preferences map[string]any

	// WorkflowID is generated when empty.
	WorkflowID string
}

// ExecuteWorkflow runs req to completion and returns its result envelope.
// Failures are reported in the envelope, never as a Go error.
func (o *Orchestrator) ExecuteWorkflow(ctx context.Context, req Request) *workflow.Result {
	state, rc, err := o.start(ctx, req)
	if err != nil {
		return o.rejected(req, err)
	}
	return o.run(ctx, state, rc, req.Input)
}

// Submit starts req in the background and returns its workflow ID. The
// workflow outlives ctx's cancellation; use CancelWorkflow to stop it.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (string, error) {
	state, rc, err := o.start(ctx, req)
	if err != nil {
		return "", err
	}

	o.running.Add(1)
	go func() {
		defer o.running.Done()
		o.run(context.WithoutCancel(ctx), state, rc, req.Input)
	}()
	return state.ID(), nil
}

// start validates req, creates and tracks its state and moves it to
// Running.
func (o *Orchestrator) start(ctx context.Context, req Request) (*workflow.State, *agent.RunContext, error) {
	if req.Input == nil {
		return nil, nil, agent.NewValidationError("", "workflow input is required")
	}
	typ := req.Type
	if typ == "" {
		typ = req.Input.WorkflowType()
	}
	if typ != req.Input.WorkflowType() {
		return nil, nil, agent.NewValidationError("", fmt.Sprintf("input of type %s does not match workflow type %s", req.Input.WorkflowType(), typ))
	}

	id := req.WorkflowID
	if id == "" {
		id = uuid.NewString()
	}

	now := o.clock()
	state := workflow.NewState(id, typ, req.SessionID, o.expectedSteps(req.Input), now)
	if !o.track(state) {
		return nil, nil, fmt.Errorf("%w: %s", ErrDuplicateWorkflow, id)
	}
	if err := state.Transition(workflow.StatusRunning, now); err != nil {
		return nil, nil, err
	}

	rc := agent.NewRunContext(req.SessionID, id, req.Preferences, maxRetries(req.Preferences, o.policy.MaxRetries))

	o.log(ctx, state, workflow.LevelInfo, fmt.Sprintf("Workflow %s started", typ), "", map[string]any{"session_id": req.SessionID})
	o.persist(ctx, state)
	return state, rc, nil
}

func (o *Orchestrator) run(ctx context.Context, state *workflow.State, rc *agent.RunContext, in site.Request) *workflow.Result {
	ctx, span := o.tracer.Start(ctx, observability.SpanWorkflowExecute, trace.WithAttributes(
		attribute.String("workflow.id", state.ID()),
		attribute.String("workflow.type", string(state.Type())),
		attribute.String("session.id", state.SessionID()),
	))
	defer span.End()

	var (
		result any
		err    error
	)
	if verr := in.Validate(); verr != nil {
		err = agent.NewValidationError("", verr.Error())
	} else {
		result, err = o.dispatch(ctx, in, rc, state)
	}

	o.finish(ctx, state, result, err)

	res := state.Result()
	span.SetAttributes(attribute.String("workflow.status", string(res.Status)))
	if res.Status == workflow.StatusFailed {
		span.SetStatus(codes.Error, res.Error)
	}
	return res
}

func (o *Orchestrator) finish(ctx context.Context, state *workflow.State, result any, err error) {
	now := o.clock()

	if err == nil {
		if cerr := state.Complete(result, now); cerr != nil {
			// Cancelled while the last step ran.
			return
		}
		o.log(ctx, state, workflow.LevelInfo, "Workflow completed", "", nil)
		o.persist(ctx, state)
		o.notify(ctx, state.ID(), notify.WorkflowComplete(state.ID(), result))
		o.recorder.RecordWorkflow(ctx, string(state.Type()), string(workflow.StatusCompleted), state.Metrics().TotalDuration)
		return
	}

	if errors.Is(err, ErrWorkflowCancelled) || state.Status() == workflow.StatusCancelled {
		return
	}

	ae := agent.AsError(err, "")
	state.MarkFailedAgent(ae.Agent, now)
	if ferr := state.Fail(ae.Message, string(ae.Kind), ae.Context, now); ferr != nil {
		return
	}

	o.log(ctx, state, workflow.LevelError, "Workflow failed: "+ae.Message, ae.Agent, map[string]any{
		"error_kind":  string(ae.Kind),
		"recoverable": ae.Recoverable,
	})
	o.persist(ctx, state)
	o.notify(ctx, state.ID(), notify.WorkflowError(state.ID(), workflow.StatusFailed, ae.Message))
	o.recorder.RecordWorkflow(ctx, string(state.Type()), string(workflow.StatusFailed), state.Metrics().TotalDuration)
}

// rejected builds the envelope of a request that never started.
func (o *Orchestrator) rejected(req Request, err error) *workflow.Result {
	ae := agent.AsError(err, "")
	if errors.Is(err, ErrDuplicateWorkflow) {
		ae = agent.NewValidationError("", err.Error())
	}
	return &workflow.Result{
		WorkflowID:      req.WorkflowID,
		Type:            req.Type,
		Status:          workflow.StatusFailed,
		Error:           ae.Message,
		ErrorKind:       string(ae.Kind),
		CompletedAgents: []string{},
	}
}

// ExecuteAgent runs one step on the agent registered as name.
//
// The agent must be Registered or Ready; otherwise a Validation error naming
// it is returned without waiting. Only one step per agent name executes at a
// time; a second caller waits for the first to finish. With enableRetry
// retryable failures are retried with backoff up to rc.MaxRetries times.
// The agent's error is returned unchanged.
func (o *Orchestrator) ExecuteAgent(ctx context.Context, name string, in agent.Input, rc *agent.RunContext, state *workflow.State, enableRetry bool) (agent.Output, error) {
	if state.Status() != workflow.StatusRunning {
		return nil, ErrWorkflowCancelled
	}
	// A busy agent is waited for; anything else unselectable fails now.
	if _, err := o.readyAgent(name, true); err != nil {
		return nil, err
	}

	release, err := o.locks.acquire(ctx, name)
	if err != nil {
		return nil, agent.NewTimeoutError(name, "waiting for agent", err)
	}
	defer release()

	// Re-checked: the previous holder may have left the agent Failed.
	a, err := o.readyAgent(name, false)
	if err != nil {
		return nil, err
	}

	// The lock may have been held across a cancellation.
	if state.Status() != workflow.StatusRunning {
		return nil, ErrWorkflowCancelled
	}

	state.SetCurrentAgent(name, o.clock())
	o.setLifecycle(state, name, agent.Executing)
	o.log(ctx, state, workflow.LevelInfo, "Executing "+name, name, map[string]any{"input_kind": in.Kind()})
	o.persist(ctx, state)
	o.notify(ctx, state.ID(), notify.AgentStatus(state.ID(), name, string(agent.Executing), nil))

	ctx, span := o.tracer.Start(ctx, observability.SpanAgentExecute, trace.WithAttributes(
		attribute.String("agent.name", name),
		attribute.String("agent.input_kind", in.Kind()),
		attribute.String("workflow.id", state.ID()),
	))
	defer span.End()

	op := func(ctx context.Context) (agent.Output, error) {
		if state.Status() != workflow.StatusRunning {
			return nil, ErrWorkflowCancelled
		}
		return invoke(ctx, a, in, rc)
	}

	start := o.clock()
	var out agent.Output
	if enableRetry {
		policy := o.policy.WithMaxRetries(rc.MaxRetries)
		out, err = retry.Do(ctx, policy, op, func(attempt int, err error, delay time.Duration) {
			o.onRetry(ctx, state, name, policy.MaxRetries, attempt, err, delay)
		})
	} else {
		out, err = op(ctx)
	}
	elapsed := o.clock().Sub(start)

	if state.Status() != workflow.StatusRunning {
		// Cancelled while the step ran; the terminal record stays as it was.
		o.registry.SetLifecycle(name, agent.Ready)
		slog.InfoContext(ctx, "Agent returned after cancellation", "workflow_id", state.ID(), "agent", name, "duration_ms", elapsed.Milliseconds())
		span.SetStatus(codes.Error, ErrWorkflowCancelled.Error())
		return nil, ErrWorkflowCancelled
	}

	if err != nil {
		ae := agent.AsError(err, name)
		state.RecordFailure(name, elapsed, o.clock())
		o.setLifecycle(state, name, agent.Failed)
		o.log(ctx, state, workflow.LevelError, fmt.Sprintf("%s failed: %s", name, ae.Message), name, map[string]any{
			"error_kind":  string(ae.Kind),
			"recoverable": ae.Recoverable,
			"retryable":   ae.Retryable,
		})
		o.persist(ctx, state)
		o.notify(ctx, state.ID(), notify.AgentStatus(state.ID(), name, string(agent.Failed), map[string]any{
			"error":      ae.Message,
			"error_kind": string(ae.Kind),
		}))
		o.recorder.RecordAgentCall(ctx, name, elapsed, string(ae.Kind))
		span.RecordError(err)
		span.SetStatus(codes.Error, ae.Message)
		return nil, err
	}

	var usage agent.Usage
	if ur, ok := out.(agent.UsageReporter); ok {
		usage = ur.LLMUsage()
	}
	state.RecordSuccess(name, elapsed, usage.Calls, usage.Tokens, o.clock())
	o.setLifecycle(state, name, agent.Ready)
	rc.SetOutput(name, out)

	o.log(ctx, state, workflow.LevelInfo, name+" completed", name, map[string]any{"duration_ms": elapsed.Milliseconds()})
	o.persist(ctx, state)
	o.notify(ctx, state.ID(), notify.AgentStatus(state.ID(), name, string(agent.Completed), map[string]any{
		"duration_ms": elapsed.Milliseconds(),
	}))
	o.recorder.RecordAgentCall(ctx, name, elapsed, "")
	return out, nil
}

func (o *Orchestrator) onRetry(ctx context.Context, state *workflow.State, name string, budget, attempt int, err error, delay time.Duration) {
	if state.Status() != workflow.StatusRunning {
		return
	}
	ae := agent.AsError(err, name)
	state.IncRetry(o.clock())
	o.recorder.RecordRetry(ctx, name)
	o.log(ctx, state, workflow.LevelWarn,
		fmt.Sprintf("Retrying %s (attempt %d/%d) in %s: %s", name, attempt, budget, delay.Round(time.Millisecond), ae.Message),
		name, map[string]any{
			"attempt":    attempt,
			"delay_ms":   delay.Milliseconds(),
			"error_kind": string(ae.Kind),
		})
	o.persist(ctx, state)
}

// readyAgent returns the agent registered as name if it may take a step.
// With busy set an Executing agent is accepted too.
func (o *Orchestrator) readyAgent(name string, busy bool) (agent.Agent, error) {
	a, registered := o.registry.Get(name)
	lc, _ := o.registry.Lifecycle(name)
	if registered && (lc.Selectable() || busy && lc == agent.Executing) {
		return a, nil
	}
	if !registered {
		lc = "unregistered"
	}
	return nil, agent.NewValidationError(name, fmt.Sprintf("agent %s is not ready (lifecycle %s)", name, lc))
}

func (o *Orchestrator) setLifecycle(state *workflow.State, name string, lc agent.Lifecycle) {
	o.registry.SetLifecycle(name, lc)
	state.SetAgentState(name, lc.String())
}

// invoke calls the agent, turning a panic into an Unknown error.
func invoke(ctx context.Context, a agent.Agent, in agent.Input, rc *agent.RunContext) (out agent.Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Agent panicked", "agent", a.Name(), "panic", r, "stack", string(debug.Stack()))
			out = nil
			err = agent.NewUnknownError(a.Name(), fmt.Errorf("panic: %v", r))
		}
	}()
	return a.Execute(ctx, in, rc)
}

// maxRetries reads the retry budget preference, falling back to def.
func maxRetries(prefs map[string]any, def int) int {
	v, ok := prefs[PreferenceMaxRetries]
	if !ok {
		return def
	}
	var n float64
	switch x := v.(type) {
	case int:
		n = float64(x)
	case int64:
		n = float64(x)
	case float64:
		n = x
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return def
		}
		n = f
	default:
		return def
	}
	if n < 0 || n != math.Trunc(n) {
		return def
	}
	return int(n)
}
