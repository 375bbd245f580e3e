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

// Package observability wires OpenTelemetry tracing and Prometheus metrics
// for workflows, agent steps and the HTTP surface.
package observability

import (
	"fmt"
	"time"
)

const (
	DefaultServiceName  = "sitepipe"
	DefaultNamespace    = "sitepipe"
	DefaultMetricsPath  = "/metrics"
	DefaultOTLPEndpoint = "localhost:4317"
	DefaultSamplingRate = 1.0
)

// Span names.
const (
	SpanWorkflowExecute = "workflow.execute"
	SpanAgentExecute    = "agent.execute"
	SpanHTTPRequest     = "http.request"
)

// Config configures the observability system.
type Config struct {
	Tracing TracingConfig `yaml:"tracing,omitempty" json:"tracing,omitempty"`
	Metrics MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`

	// Exporter is "otlp" (gRPC) or "stdout".
	Exporter string `yaml:"exporter,omitempty" json:"exporter,omitempty" jsonschema:"enum=otlp,enum=stdout,default=otlp"`

	Endpoint       string            `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	SamplingRate   float64           `yaml:"sampling_rate,omitempty" json:"sampling_rate,omitempty" jsonschema:"minimum=0,maximum=1"`
	ServiceName    string            `yaml:"service_name,omitempty" json:"service_name,omitempty"`
	ServiceVersion string            `yaml:"service_version,omitempty" json:"service_version,omitempty"`
	Insecure       *bool             `yaml:"insecure,omitempty" json:"insecure,omitempty"`
	Headers        map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	Timeout        time.Duration     `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`

	// Endpoint is the HTTP path metrics are served on.
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`

	// Namespace prefixes every metric name.
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`
}

func (c *Config) SetDefaults() {
	c.Tracing.SetDefaults()
	c.Metrics.SetDefaults()
}

func (c *Config) Validate() error {
	if err := c.Tracing.Validate(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	return nil
}

func (c *TracingConfig) SetDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = DefaultServiceName
	}
	if c.SamplingRate == 0 {
		c.SamplingRate = DefaultSamplingRate
	}
	if c.Exporter == "" {
		c.Exporter = "otlp"
	}
	if c.Endpoint == "" && c.Exporter == "otlp" {
		c.Endpoint = DefaultOTLPEndpoint
	}
	if c.Insecure == nil {
		insecure := true
		c.Insecure = &insecure
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
}

func (c *TracingConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.SamplingRate < 0 || c.SamplingRate > 1 {
		return fmt.Errorf("sampling_rate must be between 0 and 1, got %f", c.SamplingRate)
	}
	switch c.Exporter {
	case "otlp":
		if c.Endpoint == "" {
			return fmt.Errorf("endpoint is required for the otlp exporter")
		}
	case "stdout":
	default:
		return fmt.Errorf("invalid exporter %q (valid: otlp, stdout)", c.Exporter)
	}
	return nil
}

// IsInsecure returns whether the exporter connection skips TLS.
func (c *TracingConfig) IsInsecure() bool {
	if c.Insecure == nil {
		return true
	}
	return *c.Insecure
}

func (c *MetricsConfig) SetDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = DefaultMetricsPath
	}
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
}

func (c *MetricsConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if len(c.Endpoint) == 0 || c.Endpoint[0] != '/' {
		return fmt.Errorf("endpoint must start with '/', got %q", c.Endpoint)
	}
	return nil
}
