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
	"fmt"
	"net/http"
	"strconv"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Recorder receives the measurements of the engine. Implementations must be
// safe for concurrent use and never fail the caller.
type Recorder interface {
	RecordWorkflow(ctx context.Context, workflowType, status string, duration time.Duration)
	// RecordAgentCall records one step. errKind is empty on success.
	RecordAgentCall(ctx context.Context, agentName string, duration time.Duration, errKind string)
	RecordRetry(ctx context.Context, agentName string)
	RecordHTTPRequest(ctx context.Context, method, route string, status int, duration time.Duration)
}

// PrometheusRecorder records through an OpenTelemetry meter exported to a
// private Prometheus registry.
type PrometheusRecorder struct {
	provider *sdkmetric.MeterProvider
	registry *promclient.Registry

	workflowsTotal   metric.Int64Counter
	workflowDuration metric.Float64Histogram
	agentCalls       metric.Int64Counter
	agentDuration    metric.Float64Histogram
	agentErrors      metric.Int64Counter
	agentRetries     metric.Int64Counter
	httpRequests     metric.Int64Counter
	httpDuration     metric.Float64Histogram
}

// NewPrometheusRecorder creates the instruments under cfg.Namespace.
func NewPrometheusRecorder(cfg MetricsConfig) (*PrometheusRecorder, error) {
	cfg.SetDefaults()
	ns := cfg.Namespace

	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(DefaultServiceName)

	r := &PrometheusRecorder{provider: provider, registry: registry}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&r.workflowsTotal, ns + "_workflows_total", "Workflows finished, by type and status"},
		{&r.agentCalls, ns + "_agent_calls_total", "Agent steps executed"},
		{&r.agentErrors, ns + "_agent_errors_total", "Agent steps that failed, by error kind"},
		{&r.agentRetries, ns + "_agent_retries_total", "Agent step retries"},
		{&r.httpRequests, ns + "_http_requests_total", "HTTP requests served"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
		*c.dst = counter
	}

	histograms := []struct {
		dst  *metric.Float64Histogram
		name string
		desc string
	}{
		{&r.workflowDuration, ns + "_workflow_duration_seconds", "Workflow wall-clock duration in seconds"},
		{&r.agentDuration, ns + "_agent_call_duration_seconds", "Agent step duration in seconds, retries included"},
		{&r.httpDuration, ns + "_http_request_duration_seconds", "HTTP request duration in seconds"},
	}
	for _, h := range histograms {
		hist, err := meter.Float64Histogram(h.name, metric.WithDescription(h.desc), metric.WithUnit("s"))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s histogram: %w", h.name, err)
		}
		*h.dst = hist
	}

	return r, nil
}

func (r *PrometheusRecorder) RecordWorkflow(ctx context.Context, workflowType, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("workflow_type", workflowType),
		attribute.String("status", status),
	)
	r.workflowsTotal.Add(ctx, 1, attrs)
	r.workflowDuration.Record(ctx, duration.Seconds(), attrs)
}

func (r *PrometheusRecorder) RecordAgentCall(ctx context.Context, agentName string, duration time.Duration, errKind string) {
	attrs := metric.WithAttributes(attribute.String("agent", agentName))
	r.agentCalls.Add(ctx, 1, attrs)
	r.agentDuration.Record(ctx, duration.Seconds(), attrs)
	if errKind != "" {
		r.agentErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("agent", agentName),
			attribute.String("kind", errKind),
		))
	}
}

func (r *PrometheusRecorder) RecordRetry(ctx context.Context, agentName string) {
	r.agentRetries.Add(ctx, 1, metric.WithAttributes(attribute.String("agent", agentName)))
}

func (r *PrometheusRecorder) RecordHTTPRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status", strconv.Itoa(status)),
	)
	r.httpRequests.Add(ctx, 1, attrs)
	r.httpDuration.Record(ctx, duration.Seconds(), attrs)
}

// Handler serves the registry in the Prometheus text format.
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *PrometheusRecorder) Shutdown(ctx context.Context) error {
	return r.provider.Shutdown(ctx)
}

var _ Recorder = (*PrometheusRecorder)(nil)
