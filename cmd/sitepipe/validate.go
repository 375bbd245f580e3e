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

	"gopkg.in/yaml.v3"

	"github.com/dhruv465/Website-Builder-sub000/pkg/config"
)

// ValidateCmd validates a configuration file.
type ValidateCmd struct {
	// Config is the configuration file path (positional argument)
	Config string `arg:"" name:"config" help:"Configuration file path." placeholder:"PATH"`

	Format string `short:"f" help:"Output format: compact, verbose, json." default:"compact" enum:"compact,verbose,json"`

	// PrintConfig prints the expanded configuration
	PrintConfig bool `short:"p" name:"print-config" help:"Print the expanded configuration (with defaults applied and env vars resolved)."`
}

func (c *ValidateCmd) Run(cli *CLI) error {
	return c.validate(context.Background(), os.Stdout, os.Stderr)
}

func (c *ValidateCmd) validate(ctx context.Context, out, errOut io.Writer) error {
	_ = config.LoadDotEnvForConfig(c.Config)

	cfg, err := config.LoadFile(ctx, c.Config)
	if err != nil {
		return printLoadError(out, errOut, c.Format, c.Config, err)
	}
	if c.PrintConfig {
		return printExpandedConfig(out, c.Format, c.Config, cfg)
	}
	printSuccess(out, c.Format, c.Config)
	return nil
}

// ValidationError represents a single validation error.
type ValidationError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func printLoadError(out, errOut io.Writer, format, file string, err error) error {
	switch format {
	case "json":
		printJSONResult(out, false, file, []ValidationError{{Type: "load", Message: err.Error()}})
	case "verbose":
		fmt.Fprintf(errOut, "Configuration Load Error\n")
		fmt.Fprintf(errOut, "========================\n\n")
		fmt.Fprintf(errOut, "File:    %s\n", file)
		fmt.Fprintf(errOut, "Error:   %s\n", err.Error())
	default: // compact
		fmt.Fprintf(errOut, "%s: load error: %s\n", file, err.Error())
	}
	return fmt.Errorf("config load failed")
}

func printSuccess(out io.Writer, format, file string) {
	switch format {
	case "json":
		printJSONResult(out, true, file, nil)
	case "verbose":
		fmt.Fprintf(out, "Configuration Validation Successful\n")
		fmt.Fprintf(out, "===================================\n\n")
		fmt.Fprintf(out, "File:   %s\n", file)
		fmt.Fprintf(out, "Status: OK Valid\n")
	default: // compact
		fmt.Fprintf(out, "%s: valid\n", file)
	}
}

func printExpandedConfig(out io.Writer, format, file string, cfg *config.Config) error {
	if format == "json" {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config as JSON: %w", err)
		}
		return nil
	}

	fmt.Fprintf(out, "# Expanded Configuration from: %s\n", file)
	fmt.Fprintf(out, "# (defaults applied, env vars resolved)\n\n")

	encoder := yaml.NewEncoder(out)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config as YAML: %w", err)
	}
	return encoder.Close()
}

type jsonOutput struct {
	Valid  bool              `json:"valid"`
	File   string            `json:"file"`
	Errors []ValidationError `json:"errors,omitempty"`
}

func printJSONResult(out io.Writer, valid bool, file string, errors []ValidationError) {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(jsonOutput{Valid: valid, File: file, Errors: errors}); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
	}
}
