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
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dhruv465/Website-Builder-sub000/pkg/auth"
	"github.com/dhruv465/Website-Builder-sub000/pkg/config"
	"github.com/dhruv465/Website-Builder-sub000/pkg/ratelimit"
	"github.com/dhruv465/Website-Builder-sub000/pkg/server"
)

// ServeCmd starts the HTTP server.
type ServeCmd struct {
	Host  string `help:"Host to listen on (overrides config)."`
	Port  int    `help:"Port to listen on (overrides config)."`
	Watch bool   `help:"Watch the config file and re-register agents on change."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := cli.loadConfig(ctx)
	if err != nil {
		return err
	}
	if c.Host != "" {
		cfg.Server.Host = c.Host
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			slog.Warn("Shutdown finished with errors", "error", err)
		}
	}()

	if err := a.registerAgents(ctx, cfg); err != nil {
		slog.Warn("Some agents failed to register", "error", err)
	}

	srvCfg := server.Config{
		Orchestrator:   a.orch,
		Hub:            a.hub,
		Recorder:       a.obs.Recorder(),
		Tracer:         a.obs.Tracer("sitepipe.http"),
		MetricsHandler: a.obs.MetricsHandler(),
		MetricsPath:    a.obs.MetricsPath(),
		Server:         cfg.Server,
	}
	if authCfg := cfg.Server.Auth; authCfg.Enabled {
		validator, err := auth.NewValidator(ctx, authCfg.JWKSURL, authCfg.Issuer, authCfg.Audience, authCfg.RefreshInterval)
		if err != nil {
			return fmt.Errorf("auth: %w", err)
		}
		defer validator.Close()
		srvCfg.Auth = validator
	}

	var limiter *ratelimit.Limiter
	if rl := cfg.Server.RateLimit; rl.Enabled {
		limiter, err = ratelimit.New(rl.Rules(), ratelimit.NewMemoryStore())
		if err != nil {
			return fmt.Errorf("rate_limit: %w", err)
		}
		srvCfg.RateLimiter = limiter
	}

	srv, err := server.New(srvCfg)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(gctx) })
	g.Go(func() error { return a.orch.RunSweeper(gctx, cfg.Orchestrator.SweepInterval) })
	if limiter != nil {
		g.Go(func() error { return limiter.RunCleanup(gctx, cfg.Server.RateLimit.CleanupInterval) })
	}

	if c.Watch && cli.Config != "" {
		loader, err := config.NewLoader(cli.Config, config.WithOnChange(func(next *config.Config) {
			a.reloadAgents(gctx, next)
		}))
		if err != nil {
			return err
		}
		g.Go(func() error { return loader.Watch(gctx) })
	}

	fmt.Printf("\nsitepipe server ready\n")
	fmt.Printf("   Workflows: http://%s/api/workflows\n", srv.Address())
	fmt.Printf("   Agents:    http://%s/api/agents\n", srv.Address())
	fmt.Printf("   Health:    http://%s/health\n", srv.Address())
	if a.obs.MetricsHandler() != nil {
		fmt.Printf("   Metrics:   http://%s%s\n", srv.Address(), a.obs.MetricsPath())
	}
	if srvCfg.Auth != nil {
		fmt.Printf("   Auth:      JWT (%s)\n", cfg.Server.Auth.Issuer)
	}
	fmt.Printf("   Store:     %s\n\n", cfg.Store.Backend)

	err = g.Wait()

	waitCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if werr := a.orch.Wait(waitCtx); werr != nil {
		slog.Warn("Workflows still running at shutdown", "error", werr)
	}
	return err
}
