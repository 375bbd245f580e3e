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

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dhruv465/Website-Builder-sub000/pkg/registry"
)

// Registry holds the runnable agents by name and their lifecycle table.
// Registration is the only transition the registry makes on its own; every
// other lifecycle change is written by the orchestrator through SetLifecycle.
type Registry struct {
	agents *registry.Table[Agent]

	mu         sync.RWMutex
	lifecycles map[string]Lifecycle
}

func NewRegistry() *Registry {
	return &Registry{
		agents:     registry.NewTable[Agent](),
		lifecycles: make(map[string]Lifecycle),
	}
}

// Register adds a under its name, replacing any earlier registration. With
// initialize the agent becomes Ready, running its Initializer first if it
// has one; otherwise it is left Registered.
func (r *Registry) Register(ctx context.Context, a Agent, initialize bool) error {
	if a == nil {
		return fmt.Errorf("agent cannot be nil")
	}
	name := a.Name()

	replaced, err := r.agents.Put(name, a)
	if err != nil {
		return fmt.Errorf("register agent: %w", err)
	}
	if replaced {
		slog.Debug("Replacing registered agent", "agent", name)
	}

	if !initialize {
		r.SetLifecycle(name, Registered)
		return nil
	}

	if init, ok := a.(Initializer); ok {
		r.SetLifecycle(name, Initializing)
		if err := init.Initialize(ctx); err != nil {
			r.SetLifecycle(name, Failed)
			return fmt.Errorf("initialize agent %s: %w", name, err)
		}
	}
	r.SetLifecycle(name, Ready)
	slog.Debug("Registered agent", "agent", name)
	return nil
}

// Deregister removes the agent. It returns false if name was unknown.
func (r *Registry) Deregister(name string) bool {
	if !r.agents.Delete(name) {
		return false
	}
	r.SetLifecycle(name, Deregistered)
	return true
}

func (r *Registry) Get(name string) (Agent, bool) {
	return r.agents.Get(name)
}

// IsReady is true iff the agent's lifecycle is exactly Ready.
func (r *Registry) IsReady(name string) bool {
	lc, ok := r.Lifecycle(name)
	return ok && lc == Ready
}

func (r *Registry) Lifecycle(name string) (Lifecycle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lc, ok := r.lifecycles[name]
	return lc, ok
}

// SetLifecycle records a lifecycle transition for name.
func (r *Registry) SetLifecycle(name string, lc Lifecycle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lifecycles[name] = lc
}

// Lifecycles returns a copy of the lifecycle table, including deregistered
// names.
func (r *Registry) Lifecycles() map[string]Lifecycle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Lifecycle, len(r.lifecycles))
	for k, v := range r.lifecycles {
		out[k] = v
	}
	return out
}

// Names returns the registered agent names in sorted order.
func (r *Registry) Names() []string {
	return r.agents.Names()
}

func (r *Registry) Len() int {
	return r.agents.Len()
}
