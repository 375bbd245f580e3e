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
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()

	assert.Equal(t, DefaultServiceName, cfg.Tracing.ServiceName)
	assert.Equal(t, "otlp", cfg.Tracing.Exporter)
	assert.Equal(t, DefaultOTLPEndpoint, cfg.Tracing.Endpoint)
	assert.True(t, cfg.Tracing.IsInsecure())
	assert.Equal(t, DefaultMetricsPath, cfg.Metrics.Endpoint)
	assert.Equal(t, DefaultNamespace, cfg.Metrics.Namespace)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"disabled tracing ignores bad exporter", Config{Tracing: TracingConfig{Exporter: "carrier-pigeon"}}, false},
		{"bad exporter", Config{Tracing: TracingConfig{Enabled: true, Exporter: "carrier-pigeon", SamplingRate: 1}}, true},
		{"bad sampling", Config{Tracing: TracingConfig{Enabled: true, Exporter: "stdout", SamplingRate: 2}}, true},
		{"stdout", Config{Tracing: TracingConfig{Enabled: true, Exporter: "stdout", SamplingRate: 0.5}}, false},
		{"bad metrics path", Config{Metrics: MetricsConfig{Enabled: true, Endpoint: "metrics"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPrometheusRecorder_ServesMetrics(t *testing.T) {
	rec, err := NewPrometheusRecorder(MetricsConfig{Enabled: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rec.Shutdown(context.Background()) })

	ctx := context.Background()
	rec.RecordWorkflow(ctx, "audit_only", "completed", 2*time.Second)
	rec.RecordAgentCall(ctx, "AuditAgent", time.Second, "")
	rec.RecordAgentCall(ctx, "AuditAgent", time.Second, "network")
	rec.RecordRetry(ctx, "AuditAgent")
	rec.RecordHTTPRequest(ctx, "GET", "/health", 200, time.Millisecond)

	w := httptest.NewRecorder()
	rec.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(w.Result().Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, "sitepipe_workflows_total")
	assert.Contains(t, text, "sitepipe_agent_errors_total")
	assert.Contains(t, text, `agent="AuditAgent"`)
	assert.Contains(t, text, "sitepipe_agent_retries_total")
}

func TestManager_DisabledIsNoop(t *testing.T) {
	m := NewManager(Config{})
	require.NoError(t, m.Initialize(context.Background()))

	assert.Nil(t, m.MetricsHandler())
	assert.IsType(t, NoopRecorder{}, m.Recorder())

	_, span := m.Tracer("test").Start(context.Background(), SpanWorkflowExecute)
	span.End()
	assert.False(t, span.SpanContext().IsValid())
	require.NoError(t, m.Shutdown(context.Background()))
}

func TestManager_MetricsEnabled(t *testing.T) {
	m := NewManager(Config{Metrics: MetricsConfig{Enabled: true}})
	require.NoError(t, m.Initialize(context.Background()))
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	assert.NotNil(t, m.MetricsHandler())
	assert.Equal(t, "/metrics", m.MetricsPath())
}

func TestNoopManager(t *testing.T) {
	m := NoopManager()
	m.Recorder().RecordRetry(context.Background(), "A")
	_, span := NoopTracer().Start(context.Background(), SpanAgentExecute)
	span.End()
	require.NoError(t, m.Shutdown(context.Background()))
}
