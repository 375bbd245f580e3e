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
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dhruv465/Website-Builder-sub000/pkg/config"
	"github.com/dhruv465/Website-Builder-sub000/pkg/store"
)

// StatusCmd prints a workflow snapshot from the configured store.
type StatusCmd struct {
	ID string `arg:"" name:"workflow-id" help:"Workflow ID."`
}

func (c *StatusCmd) Run(cli *CLI) error {
	ctx := context.Background()
	cfg, err := cli.loadConfig(ctx)
	if err != nil {
		return err
	}
	return c.print(ctx, cfg, os.Stdout)
}

func (c *StatusCmd) print(ctx context.Context, cfg *config.Config, out io.Writer) error {
	if !cfg.Store.IsSQL() {
		return fmt.Errorf("status needs the sql store backend: the memory store only lives inside a running server")
	}

	pool := config.NewDBPool()
	defer pool.Close()

	st, err := store.NewFromConfig(ctx, cfg, pool)
	if err != nil {
		return err
	}
	defer st.Close()

	snap, err := st.Get(ctx, c.ID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("workflow %s not found", c.ID)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}
