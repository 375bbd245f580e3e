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

// Package remoteagent runs pipeline steps on collaborators reached over
// HTTP. Each call is a single attempt; retries belong to the orchestrator.
package remoteagent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dhruv465/Website-Builder-sub000/pkg/agent"
	"github.com/dhruv465/Website-Builder-sub000/pkg/config"
	"github.com/dhruv465/Website-Builder-sub000/pkg/site"
)

const maxResponseBytes = 16 << 20

// Agent forwards Execute to a remote endpoint as a JSON POST.
type Agent struct {
	name       string
	url        string
	healthPath string
	headers    map[string]string
	client     *http.Client
}

// Option configures an Agent.
type Option func(*Agent)

// WithHTTPClient replaces the HTTP client. Its Timeout takes precedence over
// the configured one.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Agent) { a.client = c }
}

// New builds a remote agent named name from cfg.
func New(name string, cfg *config.AgentConfig, opts ...Option) (*Agent, error) {
	if name == "" {
		return nil, fmt.Errorf("agent name is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("agent %s: config is required", name)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("agent %s: %w", name, err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	a := &Agent{
		name:       name,
		url:        cfg.URL,
		healthPath: cfg.HealthPath,
		headers:    cfg.Headers,
		client:     &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Agent) Name() string { return a.name }

// URL returns the endpoint steps are posted to.
func (a *Agent) URL() string { return a.url }

// request is the body posted for every step.
type request struct {
	InputKind string         `json:"input_kind"`
	Input     agent.Input    `json:"input"`
	Context   requestContext `json:"context"`
}

type requestContext struct {
	SessionID   string                  `json:"session_id"`
	WorkflowID  string                  `json:"workflow_id"`
	Preferences map[string]any          `json:"preferences,omitempty"`
	Outputs     map[string]agent.Output `json:"outputs,omitempty"`
}

// response is the success body. OutputKind may be omitted when the step's
// output kind is implied by its input.
type response struct {
	OutputKind string          `json:"output_kind"`
	Output     json.RawMessage `json:"output"`
}

// Execute posts the step and decodes its output. Every failure is an
// *agent.Error.
func (a *Agent) Execute(ctx context.Context, in agent.Input, rc *agent.RunContext) (agent.Output, error) {
	body := request{InputKind: in.Kind(), Input: in}
	if rc != nil {
		body.Context = requestContext{
			SessionID:   rc.SessionID,
			WorkflowID:  rc.WorkflowID,
			Preferences: rc.Preferences,
			Outputs:     rc.Outputs(),
		}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, agent.NewValidationError(a.name, fmt.Sprintf("encode %s input: %v", in.Kind(), err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(payload))
	if err != nil {
		return nil, agent.NewValidationError(a.name, fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	a.setHeaders(req)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, a.transportError(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, a.transportError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, a.statusError(resp, data)
	}

	var out response
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, agent.NewUnknownError(a.name, fmt.Errorf("decode response: %w", err))
	}
	kind := out.OutputKind
	if kind == "" {
		var ok bool
		if kind, ok = site.OutputKindFor(in.Kind()); !ok {
			return nil, agent.NewValidationError(a.name, fmt.Sprintf("no output kind for input %q", in.Kind()))
		}
	}
	output, err := site.DecodeOutput(kind, out.Output)
	if err != nil {
		return nil, agent.NewUnknownError(a.name, err)
	}
	return output, nil
}

// Initialize checks the health endpoint when one is configured.
func (a *Agent) Initialize(ctx context.Context) error {
	if a.healthPath == "" {
		return nil
	}
	target := strings.TrimRight(a.url, "/") + "/" + strings.TrimLeft(a.healthPath, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return agent.NewValidationError(a.name, fmt.Sprintf("build health request: %v", err))
	}
	a.setHeaders(req)

	resp, err := a.client.Do(req)
	if err != nil {
		return a.transportError(ctx, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return agent.NewNetworkError(a.name, fmt.Sprintf("health check returned HTTP %d", resp.StatusCode), nil)
	}
	slog.Debug("Remote agent healthy", "agent", a.name, "url", target)
	return nil
}

func (a *Agent) setHeaders(req *http.Request) {
	for k, v := range a.headers {
		req.Header.Set(k, v)
	}
}

var (
	_ agent.Agent       = (*Agent)(nil)
	_ agent.Initializer = (*Agent)(nil)
)

// RegisterAll registers one remote agent per entry in cfg.Agents and
// initializes it. A failed initialization leaves the agent Failed in the
// registry and is reported after the remaining agents are registered.
func RegisterAll(ctx context.Context, reg *agent.Registry, cfg *config.Config, opts ...Option) error {
	var errs []error
	for _, name := range cfg.AgentNames() {
		a, err := New(name, cfg.Agents[name], opts...)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := reg.Register(ctx, a, true); err != nil {
			errs = append(errs, err)
			continue
		}
		slog.Info("Registered remote agent", "agent", name, "url", a.url)
	}
	return errors.Join(errs...)
}
