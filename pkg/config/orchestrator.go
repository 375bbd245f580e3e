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

package config

import (
	"fmt"
	"time"

	"github.com/dhruv465/Website-Builder-sub000/pkg/retry"
	"github.com/dhruv465/Website-Builder-sub000/pkg/site"
)

// OrchestratorConfig holds the engine-wide execution settings.
type OrchestratorConfig struct {
	// MaxRetries is the retry budget of every step unless a workflow's
	// preferences override it.
	MaxRetries int `yaml:"max_retries,omitempty" json:"max_retries,omitempty" jsonschema:"minimum=0,default=3"`

	Retry RetryConfig `yaml:"retry,omitempty" json:"retry,omitempty"`

	// Retention is how long a finished workflow stays queryable in memory.
	Retention time.Duration `yaml:"retention,omitempty" json:"retention,omitempty"`

	// SweepInterval is how often expired workflows are evicted.
	SweepInterval time.Duration `yaml:"sweep_interval,omitempty" json:"sweep_interval,omitempty"`

	Improve ImproveConfig `yaml:"improve,omitempty" json:"improve,omitempty"`
}

// RetryConfig shapes the backoff of agent steps.
type RetryConfig struct {
	InitialDelay    time.Duration `yaml:"initial_delay,omitempty" json:"initial_delay,omitempty"`
	MaxDelay        time.Duration `yaml:"max_delay,omitempty" json:"max_delay,omitempty"`
	ExponentialBase float64       `yaml:"exponential_base,omitempty" json:"exponential_base,omitempty"`
	Jitter          *bool         `yaml:"jitter,omitempty" json:"jitter,omitempty"`
}

// ImproveConfig holds the defaults of the improve loop.
type ImproveConfig struct {
	MaxCycles  int                     `yaml:"max_cycles,omitempty" json:"max_cycles,omitempty" jsonschema:"minimum=1,default=2"`
	Thresholds site.ThresholdOverrides `yaml:"thresholds,omitempty" json:"thresholds,omitempty"`
}

// EffectiveThresholds returns the default thresholds with the configured
// ones replacing them.
func (c *ImproveConfig) EffectiveThresholds() site.Thresholds {
	return c.Thresholds.Apply(site.DefaultThresholds())
}

func (c *OrchestratorConfig) SetDefaults() {
	def := retry.DefaultPolicy()
	if c.MaxRetries == 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.Retry.InitialDelay == 0 {
		c.Retry.InitialDelay = def.InitialDelay
	}
	if c.Retry.MaxDelay == 0 {
		c.Retry.MaxDelay = def.MaxDelay
	}
	if c.Retry.ExponentialBase == 0 {
		c.Retry.ExponentialBase = def.ExponentialBase
	}
	if c.Retry.Jitter == nil {
		jitter := def.Jitter
		c.Retry.Jitter = &jitter
	}
	if c.Retention == 0 {
		c.Retention = time.Hour
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = time.Minute
	}
	if c.Improve.MaxCycles == 0 {
		c.Improve.MaxCycles = site.DefaultMaxCycles
	}
}

func (c *OrchestratorConfig) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	if err := c.RetryPolicy().Validate(); err != nil {
		return fmt.Errorf("retry: %w", err)
	}
	if c.Retention < 0 || c.SweepInterval < 0 {
		return fmt.Errorf("retention and sweep_interval must be non-negative")
	}
	if c.Improve.MaxCycles < 1 {
		return fmt.Errorf("improve.max_cycles must be at least 1")
	}
	if err := c.Improve.Thresholds.Validate(); err != nil {
		return fmt.Errorf("improve.thresholds: %w", err)
	}
	return nil
}

// RetryPolicy returns the backoff policy with the configured retry budget.
func (c *OrchestratorConfig) RetryPolicy() retry.Policy {
	jitter := true
	if c.Retry.Jitter != nil {
		jitter = *c.Retry.Jitter
	}
	return retry.Policy{
		MaxRetries:      c.MaxRetries,
		InitialDelay:    c.Retry.InitialDelay,
		MaxDelay:        c.Retry.MaxDelay,
		ExponentialBase: c.Retry.ExponentialBase,
		Jitter:          jitter,
	}
}
