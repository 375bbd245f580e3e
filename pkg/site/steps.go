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

// Package site defines the typed payloads exchanged between the pipeline
// steps of the website builder, and the request and result records of each
// workflow type.
package site

import (
	"github.com/dhruv465/Website-Builder-sub000/pkg/agent"
)

// Canonical agent names.
const (
	InputAgent          = "InputAgent"
	CodeGenerationAgent = "CodeGenerationAgent"
	AuditAgent          = "AuditAgent"
	DeploymentAgent     = "DeploymentAgent"
	PersistenceAgent    = "PersistenceAgent"
)

// Persistence operations.
const (
	OpSave = "save"
	OpLoad = "load"
)

// Payload kinds.
const (
	KindPrompt        = "prompt"
	KindGenerate      = "generate"
	KindAudit         = "audit"
	KindDeploy        = "deploy"
	KindPersist       = "persist"
	KindRequirements  = "requirements"
	KindGeneratedCode = "generated_code"
	KindAuditReport   = "audit_report"
	KindDeployment    = "deployment"
	KindPersistedSite = "persisted_site"
)

// PromptInput asks the InputAgent to turn a prompt into requirements.
type PromptInput struct {
	Prompt    string `json:"prompt"`
	Framework string `json:"framework,omitempty"`
	SiteName  string `json:"site_name,omitempty"`
}

func (PromptInput) Kind() string { return KindPrompt }

// GenerateInput asks the CodeGenerationAgent for a new artifact. With
// ExistingHTML set it is a modification of that artifact.
type GenerateInput struct {
	Requirements  *Requirements `json:"requirements,omitempty"`
	ExistingHTML  string        `json:"existing_html,omitempty"`
	Modifications []string      `json:"modifications,omitempty"`
	Framework     string        `json:"framework,omitempty"`
}

func (GenerateInput) Kind() string { return KindGenerate }

type AuditInput struct {
	HTML      string `json:"html"`
	Framework string `json:"framework,omitempty"`
}

func (AuditInput) Kind() string { return KindAudit }

type DeployInput struct {
	HTML      string `json:"html"`
	SiteID    string `json:"site_id,omitempty"`
	SiteName  string `json:"site_name,omitempty"`
	Framework string `json:"framework,omitempty"`
}

func (DeployInput) Kind() string { return KindDeploy }

// PersistInput saves or loads a site through the PersistenceAgent.
type PersistInput struct {
	Operation     string        `json:"operation"`
	SiteID        string        `json:"site_id,omitempty"`
	SessionID     string        `json:"session_id,omitempty"`
	SiteName      string        `json:"site_name,omitempty"`
	HTML          string        `json:"html,omitempty"`
	Framework     string        `json:"framework,omitempty"`
	DeploymentURL string        `json:"deployment_url,omitempty"`
	Requirements  *Requirements `json:"requirements,omitempty"`
	AuditScore    float64       `json:"audit_score,omitempty"`
}

func (PersistInput) Kind() string { return KindPersist }

// Requirements is the structured reading of a user's prompt.
type Requirements struct {
	SiteName    string      `json:"site_name"`
	SiteType    string      `json:"site_type,omitempty"`
	Description string      `json:"description,omitempty"`
	Pages       []string    `json:"pages,omitempty"`
	Features    []string    `json:"features,omitempty"`
	Framework   string      `json:"framework,omitempty"`
	ColorScheme string      `json:"color_scheme,omitempty"`
	Usage       agent.Usage `json:"llm_usage,omitzero"`
}

func (*Requirements) Kind() string            { return KindRequirements }
func (r *Requirements) LLMUsage() agent.Usage { return r.Usage }

// GeneratedCode is an artifact produced by the CodeGenerationAgent.
type GeneratedCode struct {
	HTML      string      `json:"html"`
	CSS       string      `json:"css,omitempty"`
	JS        string      `json:"js,omitempty"`
	Framework string      `json:"framework,omitempty"`
	Usage     agent.Usage `json:"llm_usage,omitzero"`
}

func (*GeneratedCode) Kind() string            { return KindGeneratedCode }
func (g *GeneratedCode) LLMUsage() agent.Usage { return g.Usage }

// Audit categories.
const (
	CategorySEO           = "seo"
	CategoryAccessibility = "accessibility"
	CategoryPerformance   = "performance"
	CategoryOverall       = "overall"
)

// Issue is one finding of an audit.
type Issue struct {
	Category string `json:"category"`
	Severity string `json:"severity,omitempty"`
	Message  string `json:"message"`
}

// AuditReport scores an artifact per category on a 0-100 scale.
type AuditReport struct {
	OverallScore       float64     `json:"overall_score"`
	SEOScore           float64     `json:"seo_score"`
	AccessibilityScore float64     `json:"accessibility_score"`
	PerformanceScore   float64     `json:"performance_score"`
	Issues             []Issue     `json:"issues,omitempty"`
	Usage              agent.Usage `json:"llm_usage,omitzero"`
}

func (*AuditReport) Kind() string            { return KindAuditReport }
func (a *AuditReport) LLMUsage() agent.Usage { return a.Usage }

// Score returns the score of category.
func (a *AuditReport) Score(category string) float64 {
	switch category {
	case CategorySEO:
		return a.SEOScore
	case CategoryAccessibility:
		return a.AccessibilityScore
	case CategoryPerformance:
		return a.PerformanceScore
	default:
		return a.OverallScore
	}
}

// Deployment is the outcome of a successful deploy.
type Deployment struct {
	URL          string `json:"url"`
	DeploymentID string `json:"deployment_id,omitempty"`
	Provider     string `json:"provider,omitempty"`
	Status       string `json:"status,omitempty"`
}

func (*Deployment) Kind() string { return KindDeployment }

// PersistedSite is a stored site version returned by save and load.
type PersistedSite struct {
	SiteID        string        `json:"site_id"`
	Version       int           `json:"version,omitempty"`
	SiteName      string        `json:"site_name,omitempty"`
	HTML          string        `json:"html,omitempty"`
	Framework     string        `json:"framework,omitempty"`
	DeploymentURL string        `json:"deployment_url,omitempty"`
	Requirements  *Requirements `json:"requirements,omitempty"`
}

func (*PersistedSite) Kind() string { return KindPersistedSite }

var (
	_ agent.Input         = PromptInput{}
	_ agent.Input         = GenerateInput{}
	_ agent.Input         = AuditInput{}
	_ agent.Input         = DeployInput{}
	_ agent.Input         = PersistInput{}
	_ agent.UsageReporter = (*Requirements)(nil)
	_ agent.UsageReporter = (*GeneratedCode)(nil)
	_ agent.UsageReporter = (*AuditReport)(nil)
	_ agent.Output        = (*Deployment)(nil)
	_ agent.Output        = (*PersistedSite)(nil)
)
