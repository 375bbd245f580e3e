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

package remoteagent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhruv465/Website-Builder-sub000/pkg/agent"
	"github.com/dhruv465/Website-Builder-sub000/pkg/config"
	"github.com/dhruv465/Website-Builder-sub000/pkg/retry"
	"github.com/dhruv465/Website-Builder-sub000/pkg/site"
)

func newAgent(t *testing.T, url string, mutate ...func(*config.AgentConfig)) *Agent {
	t.Helper()
	cfg := &config.AgentConfig{URL: url, Headers: map[string]string{"Authorization": "Bearer secret"}}
	for _, m := range mutate {
		m(cfg)
	}
	cfg.SetDefaults()
	a, err := New(site.AuditAgent, cfg)
	require.NoError(t, err)
	return a
}

func TestExecute_PostsStepAndDecodesOutput(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"output":{"overall_score":82,"seo_score":90,"accessibility_score":80,"performance_score":76,"llm_usage":{"calls":1,"tokens":300}}}`))
	}))
	defer srv.Close()

	rc := agent.NewRunContext("sess-1", "wf-1", map[string]any{"tone": "formal"}, 3)
	rc.SetOutput(site.CodeGenerationAgent, &site.GeneratedCode{HTML: "<html></html>"})

	out, err := newAgent(t, srv.URL).Execute(context.Background(), site.AuditInput{HTML: "<html></html>", Framework: "react"}, rc)
	require.NoError(t, err)

	report, ok := out.(*site.AuditReport)
	require.True(t, ok)
	assert.Equal(t, 82.0, report.OverallScore)
	assert.Equal(t, agent.Usage{Calls: 1, Tokens: 300}, report.LLMUsage())

	assert.Equal(t, "audit", got["input_kind"])
	assert.Equal(t, "react", got["input"].(map[string]any)["framework"])
	ctxBody := got["context"].(map[string]any)
	assert.Equal(t, "wf-1", ctxBody["workflow_id"])
	assert.Equal(t, "sess-1", ctxBody["session_id"])
	assert.Contains(t, ctxBody["outputs"], site.CodeGenerationAgent)
}

func TestExecute_ExplicitOutputKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"output_kind":"deployment","output":{"url":"https://site.example"}}`))
	}))
	defer srv.Close()

	out, err := newAgent(t, srv.URL).Execute(context.Background(), site.DeployInput{HTML: "x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://site.example", out.(*site.Deployment).URL)
}

func TestExecute_StatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		body      string
		wantKind  agent.ErrorKind
		retryable bool
	}{
		{http.StatusTooManyRequests, "slow down", agent.KindNetwork, true},
		{http.StatusBadGateway, "", agent.KindNetwork, true},
		{http.StatusServiceUnavailable, "", agent.KindNetwork, true},
		{http.StatusGatewayTimeout, "", agent.KindNetwork, true},
		{http.StatusInternalServerError, "panic", agent.KindUnknown, false},
		{http.StatusBadRequest, "missing html", agent.KindValidation, false},
		{http.StatusNotFound, "", agent.KindValidation, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Retry-After", "7")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newAgent(t, srv.URL).Execute(context.Background(), site.AuditInput{HTML: "x"}, nil)
			require.Error(t, err)

			var ae *agent.Error
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, tt.wantKind, ae.Kind)
			assert.Equal(t, site.AuditAgent, ae.Agent)
			assert.Equal(t, tt.retryable, retry.IsRetryable(err))
			assert.Equal(t, tt.status, ae.Context["status_code"])
			assert.Equal(t, 7, ae.Context["retry_after_seconds"])
		})
	}
}

func TestExecute_ErrorBodyOverridesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"kind":"deployment","message":"provider rejected token","retryable":false,
			"context":{"manual_instructions":"upload index.html to your host"}}`))
	}))
	defer srv.Close()

	_, err := newAgent(t, srv.URL).Execute(context.Background(), site.DeployInput{HTML: "x"}, nil)

	var ae *agent.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, agent.KindDeployment, ae.Kind)
	assert.Equal(t, "provider rejected token", ae.Message)
	assert.False(t, ae.Retryable)
	assert.Equal(t, "upload index.html to your host", ae.Context["manual_instructions"])
}

func TestExecute_ErrorBodyRetryableOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"kind":"llm","message":"model overloaded"}`))
	}))
	defer srv.Close()

	_, err := newAgent(t, srv.URL).Execute(context.Background(), site.AuditInput{HTML: "x"}, nil)
	var ae *agent.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, agent.KindLLM, ae.Kind)
	assert.True(t, retry.IsRetryable(err))
}

func TestExecute_ClientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	a := newAgent(t, srv.URL, func(c *config.AgentConfig) { c.Timeout = 50 * time.Millisecond })
	_, err := a.Execute(context.Background(), site.AuditInput{HTML: "x"}, nil)

	var ae *agent.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, agent.KindTimeout, ae.Kind)
	assert.True(t, retry.IsRetryable(err))
}

func TestExecute_CallerCancellationIsNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := newAgent(t, srv.URL).Execute(ctx, site.AuditInput{HTML: "x"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.False(t, retry.IsRetryable(err))
}

func TestExecute_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newAgent(t, url).Execute(context.Background(), site.AuditInput{HTML: "x"}, nil)
	var ae *agent.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, agent.KindNetwork, ae.Kind)
	assert.True(t, ae.Retryable)
}

func TestExecute_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := newAgent(t, srv.URL).Execute(context.Background(), site.AuditInput{HTML: "x"}, nil)
	var ae *agent.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, agent.KindUnknown, ae.Kind)
	assert.False(t, retry.IsRetryable(err))
}

func TestInitialize_HealthCheck(t *testing.T) {
	var unhealthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/run/health", r.URL.Path)
		if unhealthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	a := newAgent(t, srv.URL+"/run", func(c *config.AgentConfig) { c.HealthPath = "/health" })
	require.NoError(t, a.Initialize(context.Background()))

	unhealthy.Store(true)
	assert.Error(t, a.Initialize(context.Background()))

	noHealthCheck := newAgent(t, "http://127.0.0.1:1/unused")
	assert.NoError(t, noHealthCheck.Initialize(context.Background()))
}

func TestRegisterAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad/health" {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Agents[site.AuditAgent] = &config.AgentConfig{URL: srv.URL + "/good"}
	cfg.Agents[site.DeploymentAgent] = &config.AgentConfig{URL: srv.URL + "/bad", HealthPath: "health"}
	cfg.SetDefaults()

	reg := agent.NewRegistry()
	err := RegisterAll(context.Background(), reg, cfg)
	require.Error(t, err)

	assert.True(t, reg.IsReady(site.AuditAgent))
	lc, ok := reg.Lifecycle(site.DeploymentAgent)
	require.True(t, ok)
	assert.Equal(t, agent.Failed, lc)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	_, err := New("", &config.AgentConfig{URL: "http://x"})
	assert.Error(t, err)
	_, err = New("A", nil)
	assert.Error(t, err)
	_, err = New("A", &config.AgentConfig{URL: "ftp://x"})
	assert.Error(t, err)
}
