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
	"strings"

	"github.com/dhruv465/Website-Builder-sub000/pkg/agent"
	"github.com/dhruv465/Website-Builder-sub000/pkg/site"
	"github.com/dhruv465/Website-Builder-sub000/pkg/workflow"
)

func (o *Orchestrator) cyclesFor(req site.ImproveRequest) int {
	if req.MaxCycles > 0 {
		return req.MaxCycles
	}
	return o.maxCycles
}

func (o *Orchestrator) thresholdsFor(req site.ImproveRequest) site.Thresholds {
	return req.EffectiveThresholds(o.thresholds)
}

// improveSite audits the artifact and regenerates it from the failing
// categories until every threshold passes or the cycles run out. Running out
// is not a failure: the result reports meets_thresholds=false and the best
// audited artifact. The last cycle only audits, so the returned artifact
// always has a score.
func (o *Orchestrator) improveSite(ctx context.Context, req site.ImproveRequest, rc *agent.RunContext, state *workflow.State) (any, error) {
	thresholds := o.thresholdsFor(req)
	maxCycles := o.cyclesFor(req)

	res := &site.ImproveResult{Thresholds: thresholds, Cycles: []site.Cycle{}}
	html := req.HTML

	for n := 1; n <= maxCycles; n++ {
		audit := site.AuditInput{HTML: html, Framework: req.Framework}
		if _, err := o.ExecuteAgent(ctx, site.AuditAgent, audit, rc, state, true); err != nil {
			return nil, err
		}
		report, err := auditFrom(rc, site.CodeGenerationAgent)
		if err != nil {
			return nil, err
		}

		if res.FinalAudit == nil || report.OverallScore > res.BestScore {
			res.BestHTML = html
			res.BestScore = report.OverallScore
		}
		res.FinalAudit = report

		failing := thresholds.Failing(report)
		cycle := site.Cycle{Number: n, Audit: report, Passed: len(failing) == 0, Failing: failing}

		if cycle.Passed {
			res.MeetsThresholds = true
			res.Cycles = append(res.Cycles, cycle)
			o.log(ctx, state, workflow.LevelInfo, fmt.Sprintf("Cycle %d: all thresholds met (overall %.0f)", n, report.OverallScore), "", nil)
			break
		}
		if n == maxCycles {
			res.Cycles = append(res.Cycles, cycle)
			o.log(ctx, state, workflow.LevelWarn,
				fmt.Sprintf("Cycle %d: thresholds not met after %d cycles (failing: %s)", n, maxCycles, strings.Join(failing, ", ")),
				"", map[string]any{"best_score": res.BestScore})
			break
		}

		cycle.Instructions = thresholds.Instructions(report, failing)
		o.log(ctx, state, workflow.LevelInfo,
			fmt.Sprintf("Cycle %d: failing %s, regenerating", n, strings.Join(failing, ", ")),
			"", map[string]any{"instructions": len(cycle.Instructions)})

		gen := site.GenerateInput{ExistingHTML: html, Modifications: cycle.Instructions, Framework: req.Framework}
		if _, err := o.ExecuteAgent(ctx, site.CodeGenerationAgent, gen, rc, state, true); err != nil {
			return nil, err
		}
		code, err := generatedFrom(rc, site.AuditAgent)
		if err != nil {
			return nil, err
		}
		html = code.HTML
		cycle.Regenerated = true
		res.Cycles = append(res.Cycles, cycle)
	}

	return res, nil
}
