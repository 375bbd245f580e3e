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

package site

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dhruv465/Website-Builder-sub000/pkg/workflow"
)

// DefaultMaxCycles bounds the improve loop when the caller does not.
const DefaultMaxCycles = 2

// Request is the caller input of one workflow type.
type Request interface {
	WorkflowType() workflow.Type
	Validate() error
}

// CreateSiteRequest builds a new site from a prompt.
type CreateSiteRequest struct {
	Prompt    string `json:"prompt"`
	Framework string `json:"framework,omitempty"`
	SiteName  string `json:"site_name,omitempty"`
}

func (CreateSiteRequest) WorkflowType() workflow.Type { return workflow.TypeCreateSite }

func (r CreateSiteRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return fmt.Errorf("prompt is required")
	}
	return nil
}

// UpdateSiteRequest modifies a stored site.
type UpdateSiteRequest struct {
	SiteID        string   `json:"site_id"`
	Modifications []string `json:"modifications"`
}

func (UpdateSiteRequest) WorkflowType() workflow.Type { return workflow.TypeUpdateSite }

func (r UpdateSiteRequest) Validate() error {
	if r.SiteID == "" {
		return fmt.Errorf("site_id is required")
	}
	if len(r.Modifications) == 0 {
		return fmt.Errorf("modifications are required")
	}
	return nil
}

// AuditRequest audits an artifact.
type AuditRequest struct {
	HTML      string `json:"html"`
	Framework string `json:"framework,omitempty"`
}

func (AuditRequest) WorkflowType() workflow.Type { return workflow.TypeAuditOnly }

func (r AuditRequest) Validate() error {
	if strings.TrimSpace(r.HTML) == "" {
		return fmt.Errorf("html is required")
	}
	return nil
}

// DeployRequest deploys an artifact, or the stored artifact of SiteID when
// HTML is empty.
type DeployRequest struct {
	HTML     string `json:"html,omitempty"`
	SiteID   string `json:"site_id,omitempty"`
	SiteName string `json:"site_name,omitempty"`
}

func (DeployRequest) WorkflowType() workflow.Type { return workflow.TypeDeployOnly }

func (r DeployRequest) Validate() error {
	if strings.TrimSpace(r.HTML) == "" && r.SiteID == "" {
		return fmt.Errorf("html or site_id is required")
	}
	return nil
}

// ImproveRequest runs the audit and regenerate loop on an artifact.
type ImproveRequest struct {
	HTML       string              `json:"html"`
	Framework  string              `json:"framework,omitempty"`
	Thresholds *ThresholdOverrides `json:"thresholds,omitempty"`
	MaxCycles  int                 `json:"max_cycles,omitempty"`
}

func (ImproveRequest) WorkflowType() workflow.Type { return workflow.TypeImproveSite }

func (r ImproveRequest) Validate() error {
	if strings.TrimSpace(r.HTML) == "" {
		return fmt.Errorf("html is required")
	}
	if r.MaxCycles < 0 {
		return fmt.Errorf("max_cycles must be non-negative")
	}
	return r.Thresholds.Validate()
}

// EffectiveThresholds returns base with the thresholds the request sets
// replacing their counterparts.
func (r ImproveRequest) EffectiveThresholds(base Thresholds) Thresholds {
	return r.Thresholds.Apply(base)
}

// EffectiveMaxCycles returns MaxCycles or DefaultMaxCycles when unset.
func (r ImproveRequest) EffectiveMaxCycles() int {
	if r.MaxCycles <= 0 {
		return DefaultMaxCycles
	}
	return r.MaxCycles
}

// ParseRequest decodes the JSON input of a workflow of type typ.
func ParseRequest(typ workflow.Type, data []byte) (Request, error) {
	switch typ {
	case workflow.TypeCreateSite:
		return decode[CreateSiteRequest](typ, data)
	case workflow.TypeUpdateSite:
		return decode[UpdateSiteRequest](typ, data)
	case workflow.TypeAuditOnly:
		return decode[AuditRequest](typ, data)
	case workflow.TypeDeployOnly:
		return decode[DeployRequest](typ, data)
	case workflow.TypeImproveSite:
		return decode[ImproveRequest](typ, data)
	}
	return nil, fmt.Errorf("unknown workflow type %q", typ)
}

func decode[T Request](typ workflow.Type, data []byte) (Request, error) {
	var req T
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("decode %s input: %w", typ, err)
		}
	}
	return req, nil
}
