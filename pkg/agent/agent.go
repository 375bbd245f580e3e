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

// Package agent defines the contract between the orchestrator and the units
// of work it sequences, together with the registry that tracks their
// lifecycle.
package agent

import (
	"context"
)

// Input is the typed payload handed to an agent for one step.
type Input interface {
	Kind() string
}

// Output is the typed payload an agent returns for one step.
type Output interface {
	Kind() string
}

// Agent is a named unit of work. Execute must normalise its own failures into
// *Error; anything else is treated as Unknown and never retried.
type Agent interface {
	Name() string
	Execute(ctx context.Context, in Input, rc *RunContext) (Output, error)
}

// Initializer is implemented by agents that need setup before their first
// step, such as dialing a remote service.
type Initializer interface {
	Initialize(ctx context.Context) error
}

// Usage is LLM consumption reported by a single step.
type Usage struct {
	Calls  int `json:"calls"`
	Tokens int `json:"tokens"`
}

// UsageReporter is implemented by outputs that carry LLM usage.
type UsageReporter interface {
	LLMUsage() Usage
}

// Func adapts a plain function to the Agent interface.
type Func struct {
	name string
	fn   func(ctx context.Context, in Input, rc *RunContext) (Output, error)
}

// NewFunc returns an Agent named name that delegates to fn.
func NewFunc(name string, fn func(ctx context.Context, in Input, rc *RunContext) (Output, error)) *Func {
	return &Func{name: name, fn: fn}
}

func (f *Func) Name() string { return f.name }

func (f *Func) Execute(ctx context.Context, in Input, rc *RunContext) (Output, error) {
	return f.fn(ctx, in, rc)
}

var _ Agent = (*Func)(nil)
