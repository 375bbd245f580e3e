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

package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhruv465/Website-Builder-sub000/pkg/agent"
	"github.com/dhruv465/Website-Builder-sub000/pkg/auth"
	"github.com/dhruv465/Website-Builder-sub000/pkg/config"
	"github.com/dhruv465/Website-Builder-sub000/pkg/notify"
	"github.com/dhruv465/Website-Builder-sub000/pkg/observability"
	"github.com/dhruv465/Website-Builder-sub000/pkg/orchestrator"
	"github.com/dhruv465/Website-Builder-sub000/pkg/ratelimit"
	"github.com/dhruv465/Website-Builder-sub000/pkg/retry"
	"github.com/dhruv465/Website-Builder-sub000/pkg/site"
	"github.com/dhruv465/Website-Builder-sub000/pkg/workflow"
)

type routeRecorder struct {
	observability.NoopRecorder
	mu     sync.Mutex
	routes []string
}

func (r *routeRecorder) RecordHTTPRequest(_ context.Context, method, route string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, method+" "+route)
}

func (r *routeRecorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.routes...)
}

type fixture struct {
	orch     *orchestrator.Orchestrator
	registry *agent.Registry
	hub      *notify.Hub
	recorder *routeRecorder
	handler  http.Handler
}

func newFixture(t *testing.T, opts ...func(*Config)) *fixture {
	t.Helper()
	f := &fixture{
		registry: agent.NewRegistry(),
		hub:      notify.NewHub(256),
		recorder: &routeRecorder{},
	}
	orch, err := orchestrator.New(orchestrator.Config{
		Registry:    f.registry,
		Notifier:    f.hub,
		RetryPolicy: retry.Policy{MaxRetries: 1, InitialDelay: time.Microsecond, MaxDelay: time.Microsecond, ExponentialBase: 2},
	})
	require.NoError(t, err)
	f.orch = orch

	cfg := Config{
		Orchestrator: orch,
		Hub:          f.hub,
		Recorder:     f.recorder,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "sitepipe_workflows_total 0\n")
		}),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	srv, err := New(cfg)
	require.NoError(t, err)
	f.handler = srv.Handler()
	t.Cleanup(f.hub.Close)
	return f
}

func (f *fixture) audit(t *testing.T, score float64) {
	t.Helper()
	require.NoError(t, f.registry.Register(context.Background(), agent.NewFunc(site.AuditAgent,
		func(context.Context, agent.Input, *agent.RunContext) (agent.Output, error) {
			return &site.AuditReport{OverallScore: score}, nil
		}), true))
}

// blockingAudit registers an audit agent that signals entered and waits for
// release.
func (f *fixture) blockingAudit(t *testing.T) (entered, release chan struct{}) {
	t.Helper()
	entered, release = make(chan struct{}), make(chan struct{})
	var once sync.Once
	require.NoError(t, f.registry.Register(context.Background(), agent.NewFunc(site.AuditAgent,
		func(ctx context.Context, _ agent.Input, _ *agent.RunContext) (agent.Output, error) {
			once.Do(func() { close(entered) })
			<-release
			return &site.AuditReport{OverallScore: 70}, nil
		}), true))
	return entered, release
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return f.doAs(t, "", method, path, body)
}

func (f *fixture) doAs(t *testing.T, token, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func (f *fixture) submit(t *testing.T, body string) string {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/workflows", body)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var resp SubmitResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotEmpty(t, resp.WorkflowID)
	assert.Equal(t, "/api/workflows/"+resp.WorkflowID, w.Header().Get("Location"))
	return resp.WorkflowID
}

func (f *fixture) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.orch.Wait(ctx))
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMetricsMounted(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sitepipe_workflows_total")
}

func TestSubmitAndStatus(t *testing.T) {
	f := newFixture(t)
	f.audit(t, 82)

	id := f.submit(t, `{"workflow_type":"audit_only","input":{"html":"<html></html>"},"session_id":"s1"}`)
	f.wait(t)

	w := f.do(t, http.MethodGet, "/api/workflows/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	var snap workflow.Snapshot
	require.NoError(t, json.NewDecoder(w.Body).Decode(&snap))
	assert.Equal(t, workflow.StatusCompleted, snap.Status)
	assert.Equal(t, "s1", snap.SessionID)
	assert.JSONEq(t, `{"audit_result":{"overall_score":82,"seo_score":0,"accessibility_score":0,"performance_score":0}}`, string(snap.Result))

	w = f.do(t, http.MethodGet, "/api/workflows?status=completed&session_id=s1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Workflows []workflow.Snapshot `json:"workflows"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	require.Len(t, list.Workflows, 1)
	assert.Equal(t, id, list.Workflows[0].WorkflowID)

	w = f.do(t, http.MethodGet, "/api/workflows?session_id=other", "")
	assert.JSONEq(t, `{"workflows":[]}`, w.Body.String())

	assert.Contains(t, f.recorder.seen(), "GET /api/workflows/{id}")
	assert.Contains(t, f.recorder.seen(), "POST /api/workflows")
}

func TestSubmitRejects(t *testing.T) {
	f := newFixture(t)
	f.audit(t, 90)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed body", `{`, http.StatusBadRequest},
		{"unknown type", `{"workflow_type":"paint_site","input":{}}`, http.StatusBadRequest},
		{"missing input", `{"workflow_type":"audit_only"}`, http.StatusBadRequest},
		{"input of wrong shape", `{"workflow_type":"audit_only","input":{"html":42}}`, http.StatusBadRequest},
		{"invalid input", `{"workflow_type":"audit_only","input":{"html":"  "}}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/workflows", tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestSubmitDuplicateID(t *testing.T) {
	f := newFixture(t)
	entered, release := f.blockingAudit(t)

	body := `{"workflow_type":"audit_only","input":{"html":"x"},"workflow_id":"wf-dup"}`
	f.submit(t, body)
	<-entered

	w := f.do(t, http.MethodPost, "/api/workflows", body)
	assert.Equal(t, http.StatusConflict, w.Code)

	close(release)
	f.wait(t)
}

func TestStatusNotFound(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/api/workflows/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/api/workflows/nope/cancel", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	entered, release := f.blockingAudit(t)

	id := f.submit(t, `{"workflow_type":"audit_only","input":{"html":"x"}}`)
	<-entered

	w := f.do(t, http.MethodPost, "/api/workflows/"+id+"/cancel", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"workflow_id":"`+id+`","cancelled":true}`, w.Body.String())

	w = f.do(t, http.MethodPost, "/api/workflows/"+id+"/cancel", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	close(release)
	f.wait(t)

	snap, err := f.orch.Status(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusCancelled, snap.Status)
}

func TestAgents(t *testing.T) {
	f := newFixture(t)
	f.audit(t, 90)

	w := f.do(t, http.MethodGet, "/api/agents", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"agents":[{"name":"AuditAgent","lifecycle":"ready"}]}`, w.Body.String())
}

type sseEvent struct {
	name string
	data string
}

func readEvents(t *testing.T, body io.Reader, until func(sseEvent) bool) []sseEvent {
	t.Helper()
	var (
		out []sseEvent
		cur sseEvent
	)
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			cur.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			cur.data = strings.TrimPrefix(line, "data: ")
		case line == "" && cur.name != "":
			out = append(out, cur)
			if until(cur) {
				return out
			}
			cur = sseEvent{}
		}
	}
	return out
}

func TestEventsStream(t *testing.T) {
	f := newFixture(t)
	entered, release := f.blockingAudit(t)
	ts := httptest.NewServer(f.handler)
	defer ts.Close()

	id := f.submit(t, `{"workflow_type":"audit_only","input":{"html":"x"}}`)
	<-entered

	resp, err := http.Get(ts.URL + "/api/workflows/" + id + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	done := make(chan []sseEvent, 1)
	go func() {
		done <- readEvents(t, resp.Body, func(ev sseEvent) bool {
			return ev.name == string(notify.EventWorkflowComplete) || ev.name == string(notify.EventWorkflowError)
		})
	}()

	close(release)

	var events []sseEvent
	select {
	case events = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("event stream did not finish")
	}

	require.NotEmpty(t, events)
	assert.Equal(t, "snapshot", events[0].name)
	assert.Contains(t, events[0].data, `"status":"running"`)
	last := events[len(events)-1]
	assert.Equal(t, string(notify.EventWorkflowComplete), last.name)
	assert.Contains(t, last.data, `"overall_score":70`)
}

func TestEventsStreamFinishedWorkflow(t *testing.T) {
	f := newFixture(t)
	f.audit(t, 60)
	id := f.submit(t, `{"workflow_type":"audit_only","input":{"html":"x"}}`)
	f.wait(t)

	w := f.do(t, http.MethodGet, "/api/workflows/"+id+"/events", "")
	require.Equal(t, http.StatusOK, w.Code)
	events := readEvents(t, w.Body, func(sseEvent) bool { return false })
	require.Len(t, events, 1)
	assert.Equal(t, "snapshot", events[0].name)
	assert.Contains(t, events[0].data, `"status":"completed"`)
}

func TestServeAndShutdown(t *testing.T) {
	f := newFixture(t)
	srv, err := New(Config{Orchestrator: f.orch, Server: config.ServerConfig{ShutdownTimeout: time.Second}})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestNewRequiresOrchestrator(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

// tokenTable accepts a fixed set of tokens.
type tokenTable map[string]*auth.Claims

func (tt tokenTable) Validate(_ context.Context, token string) (*auth.Claims, error) {
	if c, ok := tt[token]; ok {
		return c, nil
	}
	return nil, auth.ErrInvalidToken
}

func TestAuthGuardsAPI(t *testing.T) {
	tokens := tokenTable{
		"viewer-token":   {Subject: "alice", Role: "viewer"},
		"operator-token": {Subject: "bob", Role: "operator"},
	}
	f := newFixture(t, func(c *Config) {
		c.Auth = tokens
		c.Server.Auth.CancelRoles = []string{"operator"}
	})
	entered, release := f.blockingAudit(t)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, observability.DefaultMetricsPath, "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/agents", "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.doAs(t, "forged", http.MethodGet, "/api/agents", "").Code)

	w := f.doAs(t, "viewer-token", http.MethodPost, "/api/workflows", `{"workflow_type":"audit_only","input":{"html":"x"}}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var resp SubmitResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	<-entered

	snap, err := f.orch.Status(context.Background(), resp.WorkflowID)
	require.NoError(t, err)
	assert.Equal(t, "alice", snap.SessionID)

	path := "/api/workflows/" + resp.WorkflowID + "/cancel"
	assert.Equal(t, http.StatusForbidden, f.doAs(t, "viewer-token", http.MethodPost, path, "").Code)
	assert.Equal(t, http.StatusOK, f.doAs(t, "operator-token", http.MethodPost, path, "").Code)

	close(release)
	f.wait(t)
	assert.Contains(t, f.recorder.seen(), "POST /api/workflows/{id}/cancel")
}

func TestSubmitRateLimited(t *testing.T) {
	limiter, err := ratelimit.New([]ratelimit.Limit{{Window: ratelimit.WindowMinute, Max: 1}}, ratelimit.NewMemoryStore())
	require.NoError(t, err)
	f := newFixture(t, func(c *Config) { c.RateLimiter = limiter })
	f.audit(t, 80)

	body := `{"workflow_type":"audit_only","input":{"html":"x"}}`
	submit := func(session string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/workflows", strings.NewReader(body))
		req.Header.Set("X-Session-ID", session)
		w := httptest.NewRecorder()
		f.handler.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusAccepted, submit("s1").Code)
	w := submit("s1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusAccepted, submit("s2").Code)

	// Reads are not limited.
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/workflows", "").Code)
	f.wait(t)
}

func TestCallerKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/workflows", nil)
	req.RemoteAddr = "192.0.2.7:4411"
	assert.Equal(t, "addr:192.0.2.7", callerKey(req))

	req.Header.Set("X-Session-ID", "s1")
	assert.Equal(t, "session:s1", callerKey(req))

	req = req.WithContext(auth.WithClaims(req.Context(), &auth.Claims{Subject: "alice"}))
	assert.Equal(t, "sub:alice", callerKey(req))
}
