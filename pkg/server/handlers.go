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
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dhruv465/Website-Builder-sub000/pkg/auth"
	"github.com/dhruv465/Website-Builder-sub000/pkg/orchestrator"
	"github.com/dhruv465/Website-Builder-sub000/pkg/site"
	"github.com/dhruv465/Website-Builder-sub000/pkg/store"
	"github.com/dhruv465/Website-Builder-sub000/pkg/workflow"
)

const maxBodyBytes = 10 << 20

// SubmitRequest is the body of POST /api/workflows.
type SubmitRequest struct {
	WorkflowType string          `json:"workflow_type"`
	Input        json.RawMessage `json:"input"`
	SessionID    string          `json:"session_id,omitempty"`
	Preferences  map[string]any  `json:"preferences,omitempty"`
	WorkflowID   string          `json:"workflow_id,omitempty"`
}

// SubmitResponse is returned with 202 Accepted.
type SubmitResponse struct {
	WorkflowID string          `json:"workflow_id"`
	Status     workflow.Status `json:"status"`
}

type agentView struct {
	Name      string `json:"name"`
	Lifecycle string `json:"lifecycle"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAgents(w http.ResponseWriter, _ *http.Request) {
	reg := s.orch.Registry()
	lifecycles := reg.Lifecycles()

	agents := make([]agentView, 0, len(lifecycles))
	for _, name := range reg.Names() {
		agents = append(agents, agentView{Name: name, Lifecycle: lifecycles[name].String()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": agents})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var body SubmitRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	typ, err := workflow.ParseType(body.WorkflowType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(body.Input) == 0 {
		writeError(w, http.StatusBadRequest, "input is required")
		return
	}
	in, err := site.ParseRequest(typ, body.Input)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s input: %v", typ, err))
		return
	}

	// Authenticated callers without an explicit session get one per subject.
	if body.SessionID == "" {
		if claims := auth.ClaimsFromContext(r.Context()); claims != nil {
			body.SessionID = claims.Subject
		}
	}

	id, err := s.orch.Submit(r.Context(), orchestrator.Request{
		Type:        typ,
		Input:       in,
		SessionID:   body.SessionID,
		Preferences: body.Preferences,
		WorkflowID:  body.WorkflowID,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, orchestrator.ErrDuplicateWorkflow) {
			status = http.StatusConflict
		}
		writeError(w, status, err.Error())
		return
	}

	w.Header().Set("Location", "/api/workflows/"+id)
	writeJSON(w, http.StatusAccepted, SubmitResponse{WorkflowID: id, Status: workflow.StatusRunning})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.Filter{
		Status:    workflow.Status(q.Get("status")),
		SessionID: q.Get("session_id"),
	}
	if t := q.Get("workflow_type"); t != "" {
		typ, err := workflow.ParseType(t)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Type = typ
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}

	snaps, err := s.orch.Store().List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if snaps == nil {
		snaps = []*workflow.Snapshot{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"workflows": snaps})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.orch.CancelWorkflow(r.Context(), id) {
		writeJSON(w, http.StatusOK, map[string]any{"workflow_id": id, "cancelled": true})
		return
	}

	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	writeError(w, http.StatusConflict, fmt.Sprintf("workflow %s is already %s", id, snap.Status))
}

// snapshot writes 404 or 500 and returns false when the workflow cannot be
// read.
func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) (*workflow.Snapshot, bool) {
	id := chi.URLParam(r, "id")
	snap, err := s.orch.Status(r.Context(), id)
	switch {
	case errors.Is(err, orchestrator.ErrWorkflowNotFound):
		writeError(w, http.StatusNotFound, fmt.Sprintf("workflow %s not found", id))
		return nil, false
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return snap, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": map[string]any{"message": msg}})
}
