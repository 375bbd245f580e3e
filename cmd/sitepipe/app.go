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

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dhruv465/Website-Builder-sub000/pkg/agent"
	"github.com/dhruv465/Website-Builder-sub000/pkg/agent/remoteagent"
	"github.com/dhruv465/Website-Builder-sub000/pkg/config"
	"github.com/dhruv465/Website-Builder-sub000/pkg/notify"
	"github.com/dhruv465/Website-Builder-sub000/pkg/observability"
	"github.com/dhruv465/Website-Builder-sub000/pkg/orchestrator"
	"github.com/dhruv465/Website-Builder-sub000/pkg/store"
)

// app holds the components shared by serve and run.
type app struct {
	cfg      *config.Config
	registry *agent.Registry
	pool     *config.DBPool
	store    store.Store
	hub      *notify.Hub
	obs      *observability.Manager
	orch     *orchestrator.Orchestrator
}

func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{
		cfg:      cfg,
		registry: agent.NewRegistry(),
		pool:     config.NewDBPool(),
		hub:      notify.NewHub(cfg.Notifier.BufferSize),
		obs:      observability.NewManager(cfg.Observability),
	}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	if err := a.obs.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	a.store, err = store.NewFromConfig(ctx, cfg, a.pool)
	if err != nil {
		return nil, fmt.Errorf("failed to create state store: %w", err)
	}

	thresholds := cfg.Orchestrator.Improve.EffectiveThresholds()
	a.orch, err = orchestrator.New(orchestrator.Config{
		Registry:    a.registry,
		Store:       a.store,
		Notifier:    notify.Multi{a.hub, notify.LogNotifier{}},
		Recorder:    a.obs.Recorder(),
		Tracer:      a.obs.Tracer("sitepipe.orchestrator"),
		RetryPolicy: cfg.Orchestrator.RetryPolicy(),
		Retention:   cfg.Orchestrator.Retention,
		Thresholds:  &thresholds,
		MaxCycles:   cfg.Orchestrator.Improve.MaxCycles,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}
	return a, nil
}

// registerAgents registers the remote agents of cfg.
func (a *app) registerAgents(ctx context.Context, cfg *config.Config) error {
	if len(cfg.Agents) == 0 {
		slog.Warn("No agents configured")
		return nil
	}
	return remoteagent.RegisterAll(ctx, a.registry, cfg)
}

// reloadAgents applies a reloaded configuration: agents that disappeared are
// deregistered and every configured agent is registered again, which also
// revives agents left Failed.
func (a *app) reloadAgents(ctx context.Context, cfg *config.Config) {
	for _, name := range a.registry.Names() {
		if _, ok := cfg.Agents[name]; !ok {
			a.registry.Deregister(name)
			slog.Info("Deregistered agent", "agent", name)
		}
	}
	if err := a.registerAgents(ctx, cfg); err != nil {
		slog.Warn("Some agents failed to register after reload", "error", err)
	}
}

func (a *app) Close(ctx context.Context) error {
	var errs []error
	a.hub.Close()
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	errs = append(errs, a.pool.Close(), a.obs.Shutdown(ctx))
	return errors.Join(errs...)
}
