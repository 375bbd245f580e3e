// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package server exposes the orchestrator over HTTP.
//
// Routes:
//
//	POST /api/workflows               submit a workflow, 202 with its ID
//	GET  /api/workflows               list stored snapshots
//	GET  /api/workflows/{id}          snapshot of one workflow
//	POST /api/workflows/{id}/cancel   cancel a running workflow
//	GET  /api/workflows/{id}/events   server-sent progress events
//	GET  /api/agents                  agent lifecycles
//	GET  /health
//	GET  /metrics                     when metrics are enabled
//
// When Config.Auth is set every /api route needs a bearer token. When
// Config.RateLimiter is set submissions beyond the caller's quota get 429.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"

	"github.com/dhruv465/Website-Builder-sub000/pkg/auth"
	"github.com/dhruv465/Website-Builder-sub000/pkg/config"
	"github.com/dhruv465/Website-Builder-sub000/pkg/notify"
	"github.com/dhruv465/Website-Builder-sub000/pkg/observability"
	"github.com/dhruv465/Website-Builder-sub000/pkg/orchestrator"
	"github.com/dhruv465/Website-Builder-sub000/pkg/ratelimit"
)

// Config wires a Server.
type Config struct {
	// Orchestrator is required.
	Orchestrator *orchestrator.Orchestrator

	// Hub feeds the events stream. Without it the route answers 404.
	Hub *notify.Hub

	Recorder observability.Recorder
	Tracer   trace.Tracer

	// MetricsHandler is mounted at MetricsPath when non-nil.
	MetricsHandler http.Handler
	MetricsPath    string

	// Auth guards the /api routes when non-nil.
	Auth auth.TokenValidator

	// RateLimiter caps submissions per caller when non-nil.
	RateLimiter *ratelimit.Limiter

	Server config.ServerConfig
}

// Server is the HTTP front of an orchestrator.
type Server struct {
	orch     *orchestrator.Orchestrator
	hub      *notify.Hub
	recorder observability.Recorder
	tracer   trace.Tracer
	auth     auth.TokenValidator
	limiter  *ratelimit.Limiter
	cfg      config.ServerConfig

	handler http.Handler
	server  *http.Server
}

func New(cfg Config) (*Server, error) {
	if cfg.Orchestrator == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	if cfg.Recorder == nil {
		cfg.Recorder = observability.NoopRecorder{}
	}
	if cfg.Tracer == nil {
		cfg.Tracer = observability.NoopTracer()
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = observability.DefaultMetricsPath
	}
	cfg.Server.SetDefaults()

	s := &Server{
		orch:     cfg.Orchestrator,
		hub:      cfg.Hub,
		recorder: cfg.Recorder,
		tracer:   cfg.Tracer,
		auth:     cfg.Auth,
		limiter:  cfg.RateLimiter,
		cfg:      cfg.Server,
	}
	s.handler = s.routes(cfg.MetricsHandler, cfg.MetricsPath)
	return s, nil
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler { return s.handler }

// Address returns the listen address.
func (s *Server) Address() string { return s.cfg.Address() }

func (s *Server) routes(metrics http.Handler, metricsPath string) http.Handler {
	r := chi.NewRouter()

	// Order: logging -> metrics -> routes
	r.Use(loggingMiddleware)
	r.Use(s.metricsMiddleware)

	r.Get("/health", s.handleHealth)
	if metrics != nil {
		r.Method(http.MethodGet, metricsPath, metrics)
	}

	r.Route("/api", func(r chi.Router) {
		var submitGuard, cancelGuard []func(http.Handler) http.Handler
		if s.limiter != nil {
			submitGuard = append(submitGuard, ratelimit.Middleware(s.limiter, callerKey))
		}
		if s.auth != nil {
			r.Use(auth.Middleware(s.auth))
			if roles := s.cfg.Auth.CancelRoles; len(roles) > 0 {
				cancelGuard = append(cancelGuard, auth.RequireRole(roles...))
			}
		}

		r.Get("/agents", s.handleAgents)
		r.With(submitGuard...).Post("/workflows", s.handleSubmit)
		r.Get("/workflows", s.handleList)
		r.Get("/workflows/{id}", s.handleStatus)
		r.With(cancelGuard...).Post("/workflows/{id}/cancel", s.handleCancel)
		r.Get("/workflows/{id}/events", s.handleEvents)
	})

	return r
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Address(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
		IdleTimeout:       120 * time.Second,
	}

	slog.Info("HTTP server starting", "address", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown stops accepting requests and waits for in-flight ones up to the
// configured shutdown timeout. Event streams end when the hub closes.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	slog.Info("HTTP server shutting down")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP shutdown error: %w", err)
	}
	return nil
}
