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

package observability

import (
	"context"
	"errors"
	"net/http"
	"sync"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Manager owns the tracer provider and metrics recorder of a process.
type Manager struct {
	mu sync.RWMutex

	config         Config
	tracerProvider trace.TracerProvider
	sdkProvider    *sdktrace.TracerProvider
	recorder       Recorder
	prometheus     *PrometheusRecorder
}

func NewManager(cfg Config) *Manager {
	cfg.SetDefaults()
	return &Manager{
		config:         cfg,
		tracerProvider: noop.NewTracerProvider(),
		recorder:       NoopRecorder{},
	}
}

// Initialize starts the configured exporters. Disabled parts stay no-op.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.config.Tracing.Enabled {
		tp, err := NewTracerProvider(ctx, m.config.Tracing)
		if err != nil {
			return err
		}
		m.sdkProvider = tp
		m.tracerProvider = tp
	}

	if m.config.Metrics.Enabled {
		rec, err := NewPrometheusRecorder(m.config.Metrics)
		if err != nil {
			return err
		}
		m.prometheus = rec
		m.recorder = rec
	}
	return nil
}

func (m *Manager) Tracer(name string) trace.Tracer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tracerProvider.Tracer(name)
}

func (m *Manager) Recorder() Recorder {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.recorder
}

// MetricsHandler returns the Prometheus handler, or nil when metrics are
// disabled.
func (m *Manager) MetricsHandler() http.Handler {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.prometheus == nil {
		return nil
	}
	return m.prometheus.Handler()
}

// MetricsPath is the HTTP path metrics are served on.
func (m *Manager) MetricsPath() string {
	return m.config.Metrics.Endpoint
}

// Shutdown flushes and stops the exporters.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	if m.sdkProvider != nil {
		errs = append(errs, m.sdkProvider.Shutdown(ctx))
	}
	if m.prometheus != nil {
		errs = append(errs, m.prometheus.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
