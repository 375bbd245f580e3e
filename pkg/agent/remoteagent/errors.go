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
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/dhruv465/Website-Builder-sub000/pkg/agent"
)

// errorBody is the optional JSON body of a non-2xx response. When it names
// a kind, it replaces the status-code classification.
type errorBody struct {
	Kind        string         `json:"kind"`
	Message     string         `json:"message"`
	Retryable   *bool          `json:"retryable"`
	Recoverable *bool          `json:"recoverable"`
	Context     map[string]any `json:"context"`
}

func (a *Agent) transportError(ctx context.Context, err error) *agent.Error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		// Cancelled by the caller: never retried.
		return agent.NewTimeoutError(a.name, "request abandoned", ctxErr)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return agent.NewTimeoutError(a.name, fmt.Sprintf("no response from %s within %s", a.url, a.client.Timeout), err)
	}
	return agent.NewNetworkError(a.name, fmt.Sprintf("request to %s failed", a.url), err)
}

func (a *Agent) statusError(resp *http.Response, data []byte) *agent.Error {
	var eb errorBody
	if json.Unmarshal(data, &eb) == nil && eb.Kind != "" {
		return a.bodyError(resp.StatusCode, eb)
	}

	msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
	if text := strings.TrimSpace(string(data)); text != "" {
		msg += ": " + truncate(text, 200)
	}

	var e *agent.Error
	switch classify(resp.StatusCode) {
	case classRetryable:
		e = agent.NewNetworkError(a.name, msg, nil)
	case classServer:
		e = agent.NewUnknownError(a.name, errors.New(msg))
	default:
		e = agent.NewValidationError(a.name, msg)
	}
	e.WithContext(map[string]any{"status_code": resp.StatusCode})
	if secs, ok := retryAfter(resp.Header); ok {
		e.WithContext(map[string]any{"retry_after_seconds": secs})
	}
	return e
}

func (a *Agent) bodyError(status int, eb errorBody) *agent.Error {
	kind := agent.ParseErrorKind(eb.Kind)
	msg := eb.Message
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", status)
	}

	// Start from the kind's usual flags, then apply explicit overrides.
	var e *agent.Error
	switch kind {
	case agent.KindValidation:
		e = agent.NewValidationError(a.name, msg)
	case agent.KindLLM:
		e = agent.NewLLMError(a.name, msg, nil)
	case agent.KindTimeout:
		e = agent.NewTimeoutError(a.name, msg, nil)
	case agent.KindNetwork:
		e = agent.NewNetworkError(a.name, msg, nil)
	case agent.KindDeployment:
		e = agent.NewDeploymentError(a.name, msg, false, nil)
	case agent.KindStorage:
		e = agent.NewStorageError(a.name, msg, nil)
	default:
		e = &agent.Error{Kind: agent.KindUnknown, Agent: a.name, Message: msg}
	}
	if eb.Retryable != nil {
		e.Retryable = *eb.Retryable
	}
	if eb.Recoverable != nil {
		e.Recoverable = *eb.Recoverable
	}
	return e.WithContext(eb.Context)
}

type statusClass int

const (
	classClient statusClass = iota
	classRetryable
	classServer
)

func classify(status int) statusClass {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return classRetryable
	}
	if status >= 500 {
		return classServer
	}
	return classClient
}

func retryAfter(h http.Header) (int, bool) {
	v := h.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	return secs, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
