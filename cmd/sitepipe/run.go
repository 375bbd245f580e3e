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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/dhruv465/Website-Builder-sub000/pkg/config"
	"github.com/dhruv465/Website-Builder-sub000/pkg/orchestrator"
	"github.com/dhruv465/Website-Builder-sub000/pkg/site"
	"github.com/dhruv465/Website-Builder-sub000/pkg/workflow"
)

// RunCmd executes one workflow against the configured agents.
type RunCmd struct {
	Type       string `arg:"" help:"Workflow type (create_site, update_site, audit_only, deploy_only, improve_site)."`
	Input      string `arg:"" help:"JSON file with the workflow input, or - for stdin." placeholder:"FILE"`
	Session    string `help:"Session ID recorded with the workflow."`
	MaxRetries *int   `name:"max-retries" help:"Retry budget of every step."`
	Compact    bool   `help:"Compact JSON output."`
}

func (c *RunCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := cli.loadConfig(ctx)
	if err != nil {
		return err
	}
	data, err := readInput(c.Input, os.Stdin)
	if err != nil {
		return err
	}
	return c.execute(ctx, cfg, data, os.Stdout)
}

func (c *RunCmd) execute(ctx context.Context, cfg *config.Config, data []byte, out io.Writer) error {
	typ, err := workflow.ParseType(c.Type)
	if err != nil {
		return err
	}
	in, err := site.ParseRequest(typ, data)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if err := a.registerAgents(ctx, cfg); err != nil {
		return fmt.Errorf("failed to register agents: %w", err)
	}

	req := orchestrator.Request{
		Type:       typ,
		Input:      in,
		SessionID:  c.Session,
		WorkflowID: uuid.NewString(),
	}
	if c.MaxRetries != nil {
		req.Preferences = map[string]any{orchestrator.PreferenceMaxRetries: *c.MaxRetries}
	}

	// An interrupt cancels the workflow; the running step finishes first.
	stopCancel := context.AfterFunc(ctx, func() {
		a.orch.CancelWorkflow(context.Background(), req.WorkflowID)
	})
	defer stopCancel()

	res := a.orch.ExecuteWorkflow(context.WithoutCancel(ctx), req)

	enc := json.NewEncoder(out)
	if !c.Compact {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	if !res.Succeeded() {
		if res.FailedAgent != "" {
			return fmt.Errorf("workflow %s: %s at %s: %s", res.WorkflowID, res.Status, res.FailedAgent, res.Error)
		}
		return fmt.Errorf("workflow %s: %s", res.WorkflowID, res.Status)
	}
	return nil
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return data, nil
}
