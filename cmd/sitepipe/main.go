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

// Command sitepipe runs and serves website builder workflows.
//
// Usage:
//
//	sitepipe serve --config sitepipe.yaml
//	sitepipe run create_site request.json --config sitepipe.yaml
//	sitepipe status 6f1c0e0a-... --config sitepipe.yaml
//	sitepipe validate sitepipe.yaml
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/dhruv465/Website-Builder-sub000/pkg/config"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Serve    ServeCmd    `cmd:"" help:"Start the workflow server."`
	Run      RunCmd      `cmd:"" help:"Run one workflow and print its result."`
	Status   StatusCmd   `cmd:"" help:"Show the stored snapshot of a workflow."`
	Validate ValidateCmd `cmd:"" help:"Validate configuration file."`
	Schema   SchemaCmd   `cmd:"" help:"Generate JSON Schema for the configuration file."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)."`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple, verbose, json)."`
}

// loadConfig reads the --config file, or returns the defaults when none is
// given.
func (cli *CLI) loadConfig(ctx context.Context) (*config.Config, error) {
	if cli.Config == "" {
		return config.Default(), nil
	}
	_ = config.LoadDotEnvForConfig(cli.Config)
	cfg, err := config.LoadFile(ctx, cli.Config)
	if err != nil {
		return nil, err
	}
	if err := applyConfigLogger(cli, &cfg.Logger); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	_ = config.LoadDotEnv()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("sitepipe"),
		kong.Description("Workflow engine for the multi-agent website builder"),
		kong.UsageOnError(),
	)

	if err := initLogger(resolveLogSettings(cli.LogLevel, cli.LogFile, cli.LogFormat, nil)); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer closeLogFile()

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
