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

// Package orchestrator sequences agents into workflows.
//
// An Orchestrator owns an agent registry and drives each workflow through its
// pipeline one step at a time. Every transition is written to the state store
// and published to the notifier. Cancellation is cooperative: it is observed
// before the next step starts and never interrupts a step in flight.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/dhruv465/Website-Builder-sub000/pkg/agent"
	"github.com/dhruv465/Website-Builder-sub000/pkg/notify"
	"github.com/dhruv465/Website-Builder-sub000/pkg/observability"
	"github.com/dhruv465/Website-Builder-sub000/pkg/retry"
	"github.com/dhruv465/Website-Builder-sub000/pkg/site"
	"github.com/dhruv465/Website-Builder-sub000/pkg/store"
	"github.com/dhruv465/Website-Builder-sub000/pkg/workflow"
)

var (
	// ErrWorkflowNotFound is returned for an ID that is neither live nor
	// stored.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrWorkflowCancelled stops a pipeline at the step boundary after
	// CancelWorkflow.
	ErrWorkflowCancelled = errors.New("workflow cancelled")

	// ErrDuplicateWorkflow is returned by Submit for an ID that is already
	// live.
	ErrDuplicateWorkflow = errors.New("workflow id already in use")
)

// Config contains the dependencies and settings of an Orchestrator.
type Config struct {
	// Registry holds the agents. Required.
	Registry *agent.Registry

	// Store receives a snapshot on every transition. Defaults to an
	// in-memory store.
	Store store.Store

	// Notifier receives progress events. Defaults to notify.Nop.
	Notifier notify.Notifier

	Recorder observability.Recorder
	Tracer   trace.Tracer

	// RetryPolicy is applied to every step. Its MaxRetries is the default
	// retry budget, which a workflow can override with the "max_retries"
	// preference. Zero means retry.DefaultPolicy().
	RetryPolicy retry.Policy

	// Retention is how long a finished workflow stays in memory. Zero keeps
	// it until the process exits.
	Retention time.Duration

	// Thresholds and MaxCycles are the improve-loop defaults for requests
	// that do not set their own. Nil Thresholds means DefaultThresholds.
	Thresholds *site.Thresholds
	MaxCycles  int

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Orchestrator runs workflows. It is safe for concurrent use.
type Orchestrator struct {
	registry   *agent.Registry
	store      store.Store
	notifier   notify.Notifier
	recorder   observability.Recorder
	tracer     trace.Tracer
	policy     retry.Policy
	retention  time.Duration
	thresholds site.Thresholds
	maxCycles  int
	clock      func() time.Time

	locks *agentLocks

	mu        sync.RWMutex
	workflows map[string]*workflow.State

	running sync.WaitGroup
}

// New creates an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("agent registry is required")
	}
	if cfg.RetryPolicy == (retry.Policy{}) {
		cfg.RetryPolicy = retry.DefaultPolicy()
	}
	if err := cfg.RetryPolicy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry policy: %w", err)
	}
	if cfg.Store == nil {
		cfg.Store = store.NewMemoryStore()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Nop
	}
	if cfg.Recorder == nil {
		cfg.Recorder = observability.NoopRecorder{}
	}
	if cfg.Tracer == nil {
		cfg.Tracer = observability.NoopTracer()
	}
	thresholds := site.DefaultThresholds()
	if cfg.Thresholds != nil {
		thresholds = *cfg.Thresholds
	}
	if err := thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid thresholds: %w", err)
	}
	if cfg.MaxCycles <= 0 {
		cfg.MaxCycles = site.DefaultMaxCycles
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &Orchestrator{
		registry:   cfg.Registry,
		store:      cfg.Store,
		notifier:   cfg.Notifier,
		recorder:   cfg.Recorder,
		tracer:     cfg.Tracer,
		policy:     cfg.RetryPolicy,
		retention:  cfg.Retention,
		thresholds: thresholds,
		maxCycles:  cfg.MaxCycles,
		clock:      cfg.Clock,
		locks:      newAgentLocks(),
		workflows:  make(map[string]*workflow.State),
	}, nil
}

// Registry returns the agent registry.
func (o *Orchestrator) Registry() *agent.Registry { return o.registry }

// Store returns the snapshot store.
func (o *Orchestrator) Store() store.Store { return o.store }

// CancelWorkflow cancels a Running workflow. The step in flight, if any,
// runs to completion; the pipeline stops before the next one.
func (o *Orchestrator) CancelWorkflow(ctx context.Context, workflowID string) bool {
	state, ok := o.lookup(workflowID)
	if !ok {
		return false
	}
	if !state.Cancel(o.clock()) {
		return false
	}

	o.log(ctx, state, workflow.LevelWarn, "Workflow cancelled", "", nil)
	o.persist(ctx, state)
	o.notify(ctx, state.ID(), notify.WorkflowError(state.ID(), workflow.StatusCancelled, ErrWorkflowCancelled.Error()))
	o.recorder.RecordWorkflow(ctx, string(state.Type()), string(workflow.StatusCancelled), state.Metrics().TotalDuration)
	return true
}

// GetWorkflow returns a snapshot of a live workflow.
func (o *Orchestrator) GetWorkflow(workflowID string) (*workflow.Snapshot, bool) {
	state, ok := o.lookup(workflowID)
	if !ok {
		return nil, false
	}
	return state.Snapshot(), true
}

// ListWorkflows returns snapshots of every live workflow, most recently
// updated first.
func (o *Orchestrator) ListWorkflows() []*workflow.Snapshot {
	o.mu.RLock()
	states := make([]*workflow.State, 0, len(o.workflows))
	for _, s := range o.workflows {
		states = append(states, s)
	}
	o.mu.RUnlock()

	out := make([]*workflow.Snapshot, 0, len(states))
	for _, s := range states {
		out = append(out, s.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].WorkflowID < out[j].WorkflowID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Status returns the live snapshot of a workflow, falling back to the store
// for workflows that finished in another process or were swept.
func (o *Orchestrator) Status(ctx context.Context, workflowID string) (*workflow.Snapshot, error) {
	if snap, ok := o.GetWorkflow(workflowID); ok {
		return snap, nil
	}
	snap, err := o.store.Get(ctx, workflowID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrWorkflowNotFound
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Wait blocks until every submitted workflow has finished or ctx is done.
func (o *Orchestrator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) lookup(workflowID string) (*workflow.State, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	s, ok := o.workflows[workflowID]
	return s, ok
}

// track registers state under its ID unless the ID is live.
func (o *Orchestrator) track(state *workflow.State) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, exists := o.workflows[state.ID()]; exists {
		return false
	}
	o.workflows[state.ID()] = state
	return true
}

// persist writes a snapshot. Store failures are logged and never fail the
// workflow.
func (o *Orchestrator) persist(ctx context.Context, state *workflow.State) {
	if err := o.store.Put(context.WithoutCancel(ctx), state.ID(), state.Snapshot()); err != nil {
		slog.Warn("Failed to persist workflow snapshot", "workflow_id", state.ID(), "error", err)
	}
}

func (o *Orchestrator) notify(ctx context.Context, workflowID string, ev notify.Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Notifier panicked", "workflow_id", workflowID, "panic", r)
		}
	}()
	o.notifier.Notify(ctx, workflowID, ev)
}

// log appends to the workflow log, mirrors the entry to slog and publishes
// it.
func (o *Orchestrator) log(ctx context.Context, state *workflow.State, level, msg, agentName string, metadata map[string]any) {
	entry := state.AddLog(o.clock(), level, msg, agentName, metadata)

	attrs := []any{"workflow_id", state.ID()}
	if agentName != "" {
		attrs = append(attrs, "agent", agentName)
	}
	for k, v := range metadata {
		attrs = append(attrs, k, v)
	}
	switch level {
	case workflow.LevelError:
		slog.ErrorContext(ctx, msg, attrs...)
	case workflow.LevelWarn:
		slog.WarnContext(ctx, msg, attrs...)
	default:
		slog.InfoContext(ctx, msg, attrs...)
	}

	o.notify(ctx, state.ID(), notify.LogEntry(state.ID(), entry))
}
