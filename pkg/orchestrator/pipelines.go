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

package orchestrator

import (
	"context"
	"fmt"

	"github.com/dhruv465/Website-Builder-sub000/pkg/agent"
	"github.com/dhruv465/Website-Builder-sub000/pkg/site"
	"github.com/dhruv465/Website-Builder-sub000/pkg/workflow"
)

// dispatch runs the pipeline of in's workflow type.
func (o *Orchestrator) dispatch(ctx context.Context, in site.Request, rc *agent.RunContext, state *workflow.State) (any, error) {
	switch req := in.(type) {
	case site.CreateSiteRequest:
		return o.createSite(ctx, req, rc, state)
	case site.UpdateSiteRequest:
		return o.updateSite(ctx, req, rc, state)
	case site.AuditRequest:
		return o.auditOnly(ctx, req, rc, state)
	case site.DeployRequest:
		return o.deployOnly(ctx, req, rc, state)
	case site.ImproveRequest:
		return o.improveSite(ctx, req, rc, state)
	default:
		return nil, agent.NewValidationError("", fmt.Sprintf("unsupported workflow input %T", in))
	}
}

// expectedSteps is the number of steps a successful run of in takes, used
// for the progress percentage.
func (o *Orchestrator) expectedSteps(in site.Request) int {
	switch req := in.(type) {
	case site.CreateSiteRequest:
		return 5
	case site.UpdateSiteRequest:
		return 4
	case site.AuditRequest:
		return 1
	case site.DeployRequest:
		if req.HTML == "" {
			return 2
		}
		return 1
	case site.ImproveRequest:
		// Every cycle audits; all but the last may regenerate.
		return 2*o.cyclesFor(req) - 1
	}
	return 0
}

// missing reports an upstream output or field that the next step needs.
func missing(field, from, next string) *agent.Error {
	return agent.NewValidationError(next, fmt.Sprintf("missing required field %q from %s", field, from)).
		WithContext(map[string]any{"field": field, "source_agent": from})
}

func requirementsFrom(rc *agent.RunContext, next string) (*site.Requirements, error) {
	r, ok := agent.OutputOf[*site.Requirements](rc, site.InputAgent)
	if !ok || r == nil {
		return nil, missing("requirements", site.InputAgent, next)
	}
	return r, nil
}

func generatedFrom(rc *agent.RunContext, next string) (*site.GeneratedCode, error) {
	g, ok := agent.OutputOf[*site.GeneratedCode](rc, site.CodeGenerationAgent)
	if !ok || g == nil || g.HTML == "" {
		return nil, missing("html", site.CodeGenerationAgent, next)
	}
	return g, nil
}

func auditFrom(rc *agent.RunContext, next string) (*site.AuditReport, error) {
	a, ok := agent.OutputOf[*site.AuditReport](rc, site.AuditAgent)
	if !ok || a == nil {
		return nil, missing("audit_report", site.AuditAgent, next)
	}
	return a, nil
}

func deploymentFrom(rc *agent.RunContext, next string) (*site.Deployment, error) {
	d, ok := agent.OutputOf[*site.Deployment](rc, site.DeploymentAgent)
	if !ok || d == nil || d.URL == "" {
		return nil, missing("url", site.DeploymentAgent, next)
	}
	return d, nil
}

func persistedFrom(rc *agent.RunContext, field, next string) (*site.PersistedSite, error) {
	p, ok := agent.OutputOf[*site.PersistedSite](rc, site.PersistenceAgent)
	if !ok || p == nil {
		return nil, missing(field, site.PersistenceAgent, next)
	}
	switch field {
	case "html":
		if p.HTML == "" {
			return nil, missing(field, site.PersistenceAgent, next)
		}
	case "site_id":
		if p.SiteID == "" {
			return nil, missing(field, site.PersistenceAgent, next)
		}
	}
	return p, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// createSite: Input -> CodeGeneration -> Audit -> Deployment -> Persistence(save).
func (o *Orchestrator) createSite(ctx context.Context, req site.CreateSiteRequest, rc *agent.RunContext, state *workflow.State) (any, error) {
	prompt := site.PromptInput{Prompt: req.Prompt, Framework: req.Framework, SiteName: req.SiteName}
	if _, err := o.ExecuteAgent(ctx, site.InputAgent, prompt, rc, state, true); err != nil {
		return nil, err
	}
	reqs, err := requirementsFrom(rc, site.CodeGenerationAgent)
	if err != nil {
		return nil, err
	}
	framework := firstNonEmpty(req.Framework, reqs.Framework)
	siteName := firstNonEmpty(req.SiteName, reqs.SiteName)

	gen := site.GenerateInput{Requirements: reqs, Framework: framework}
	if _, err := o.ExecuteAgent(ctx, site.CodeGenerationAgent, gen, rc, state, true); err != nil {
		return nil, err
	}
	code, err := generatedFrom(rc, site.AuditAgent)
	if err != nil {
		return nil, err
	}
	framework = firstNonEmpty(code.Framework, framework)

	if _, err := o.ExecuteAgent(ctx, site.AuditAgent, site.AuditInput{HTML: code.HTML, Framework: framework}, rc, state, true); err != nil {
		return nil, err
	}
	audit, err := auditFrom(rc, site.DeploymentAgent)
	if err != nil {
		return nil, err
	}

	deploy := site.DeployInput{HTML: code.HTML, SiteName: siteName, Framework: framework}
	if _, err := o.ExecuteAgent(ctx, site.DeploymentAgent, deploy, rc, state, true); err != nil {
		return nil, err
	}
	dep, err := deploymentFrom(rc, site.PersistenceAgent)
	if err != nil {
		return nil, err
	}

	save := site.PersistInput{
		Operation:     site.OpSave,
		SessionID:     rc.SessionID,
		SiteName:      siteName,
		HTML:          code.HTML,
		Framework:     framework,
		DeploymentURL: dep.URL,
		Requirements:  reqs,
		AuditScore:    audit.OverallScore,
	}
	if _, err := o.ExecuteAgent(ctx, site.PersistenceAgent, save, rc, state, true); err != nil {
		return nil, err
	}
	saved, err := persistedFrom(rc, "site_id", site.PersistenceAgent)
	if err != nil {
		return nil, err
	}

	return &site.CreateSiteResult{
		Requirements:  reqs,
		HTML:          code.HTML,
		Audit:         audit,
		DeploymentURL: dep.URL,
		SiteID:        saved.SiteID,
	}, nil
}

// updateSite: Persistence(load) -> CodeGeneration -> Audit -> Persistence(save).
func (o *Orchestrator) updateSite(ctx context.Context, req site.UpdateSiteRequest, rc *agent.RunContext, state *workflow.State) (any, error) {
	load := site.PersistInput{Operation: site.OpLoad, SiteID: req.SiteID, SessionID: rc.SessionID}
	if _, err := o.ExecuteAgent(ctx, site.PersistenceAgent, load, rc, state, true); err != nil {
		return nil, err
	}
	loaded, err := persistedFrom(rc, "html", site.CodeGenerationAgent)
	if err != nil {
		return nil, err
	}

	gen := site.GenerateInput{
		Requirements:  loaded.Requirements,
		ExistingHTML:  loaded.HTML,
		Modifications: req.Modifications,
		Framework:     loaded.Framework,
	}
	if _, err := o.ExecuteAgent(ctx, site.CodeGenerationAgent, gen, rc, state, true); err != nil {
		return nil, err
	}
	code, err := generatedFrom(rc, site.AuditAgent)
	if err != nil {
		return nil, err
	}
	framework := firstNonEmpty(code.Framework, loaded.Framework)

	if _, err := o.ExecuteAgent(ctx, site.AuditAgent, site.AuditInput{HTML: code.HTML, Framework: framework}, rc, state, true); err != nil {
		return nil, err
	}
	audit, err := auditFrom(rc, site.PersistenceAgent)
	if err != nil {
		return nil, err
	}

	save := site.PersistInput{
		Operation:     site.OpSave,
		SiteID:        req.SiteID,
		SessionID:     rc.SessionID,
		SiteName:      loaded.SiteName,
		HTML:          code.HTML,
		Framework:     framework,
		DeploymentURL: loaded.DeploymentURL,
		Requirements:  loaded.Requirements,
		AuditScore:    audit.OverallScore,
	}
	if _, err := o.ExecuteAgent(ctx, site.PersistenceAgent, save, rc, state, true); err != nil {
		return nil, err
	}
	saved, err := persistedFrom(rc, "site_id", site.PersistenceAgent)
	if err != nil {
		return nil, err
	}

	return &site.UpdateSiteResult{
		SiteID:  saved.SiteID,
		Version: saved.Version,
		HTML:    code.HTML,
		Audit:   audit,
	}, nil
}

// auditOnly: Audit.
func (o *Orchestrator) auditOnly(ctx context.Context, req site.AuditRequest, rc *agent.RunContext, state *workflow.State) (any, error) {
	if _, err := o.ExecuteAgent(ctx, site.AuditAgent, site.AuditInput{HTML: req.HTML, Framework: req.Framework}, rc, state, true); err != nil {
		return nil, err
	}
	audit, err := auditFrom(rc, site.AuditAgent)
	if err != nil {
		return nil, err
	}
	return &site.AuditOnlyResult{AuditResult: audit}, nil
}

// deployOnly: [Persistence(load)] -> Deployment.
func (o *Orchestrator) deployOnly(ctx context.Context, req site.DeployRequest, rc *agent.RunContext, state *workflow.State) (any, error) {
	html, siteName := req.HTML, req.SiteName
	var framework string

	if html == "" {
		load := site.PersistInput{Operation: site.OpLoad, SiteID: req.SiteID, SessionID: rc.SessionID}
		if _, err := o.ExecuteAgent(ctx, site.PersistenceAgent, load, rc, state, true); err != nil {
			return nil, err
		}
		loaded, err := persistedFrom(rc, "html", site.DeploymentAgent)
		if err != nil {
			return nil, err
		}
		html = loaded.HTML
		siteName = firstNonEmpty(siteName, loaded.SiteName)
		framework = loaded.Framework
	}

	deploy := site.DeployInput{HTML: html, SiteID: req.SiteID, SiteName: siteName, Framework: framework}
	if _, err := o.ExecuteAgent(ctx, site.DeploymentAgent, deploy, rc, state, true); err != nil {
		return nil, err
	}
	dep, err := deploymentFrom(rc, site.DeploymentAgent)
	if err != nil {
		return nil, err
	}
	return &site.DeployOnlyResult{
		DeploymentURL: dep.URL,
		DeploymentID:  dep.DeploymentID,
		SiteID:        req.SiteID,
	}, nil
}
