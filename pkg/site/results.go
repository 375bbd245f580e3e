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

// CreateSiteResult is the result of a CreateSite workflow.
type CreateSiteResult struct {
	Requirements  *Requirements `json:"requirements"`
	HTML          string        `json:"html"`
	Audit         *AuditReport  `json:"audit"`
	DeploymentURL string        `json:"deployment_url"`
	SiteID        string        `json:"site_id"`
}

type UpdateSiteResult struct {
	SiteID  string       `json:"site_id"`
	Version int          `json:"version,omitempty"`
	HTML    string       `json:"html"`
	Audit   *AuditReport `json:"audit"`
}

type AuditOnlyResult struct {
	AuditResult *AuditReport `json:"audit_result"`
}

type DeployOnlyResult struct {
	DeploymentURL string `json:"deployment_url"`
	DeploymentID  string `json:"deployment_id,omitempty"`
	SiteID        string `json:"site_id,omitempty"`
}

// Cycle records one pass of the improve loop.
type Cycle struct {
	Number       int          `json:"cycle"`
	Audit        *AuditReport `json:"audit"`
	Passed       bool         `json:"passed"`
	Failing      []string     `json:"failing,omitempty"`
	Instructions []string     `json:"instructions,omitempty"`
	Regenerated  bool         `json:"regenerated"`
}

// ImproveResult is the result of an ImproveSite workflow. BestHTML is the
// audited artifact with the highest overall score.
type ImproveResult struct {
	MeetsThresholds bool         `json:"meets_thresholds"`
	Cycles          []Cycle      `json:"cycles"`
	BestHTML        string       `json:"best_html"`
	BestScore       float64      `json:"best_score"`
	FinalAudit      *AuditReport `json:"final_audit"`
	Thresholds      Thresholds   `json:"thresholds"`
}
