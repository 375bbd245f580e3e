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
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/dhruv465/Website-Builder-sub000/pkg/ratelimit"
)

// ServerConfig configures the HTTP status API.
type ServerConfig struct {
	Host            string          `yaml:"host,omitempty" json:"host,omitempty" jsonschema:"default=0.0.0.0"`
	Port            int             `yaml:"port,omitempty" json:"port,omitempty" jsonschema:"minimum=1,maximum=65535,default=8080"`
	ReadTimeout     time.Duration   `yaml:"read_timeout,omitempty" json:"read_timeout,omitempty"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout,omitempty" json:"shutdown_timeout,omitempty"`
	Auth            AuthConfig      `yaml:"auth,omitempty" json:"auth,omitempty"`
	RateLimit       RateLimitConfig `yaml:"rate_limit,omitempty" json:"rate_limit,omitempty"`
}

func (c *ServerConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	c.Auth.SetDefaults()
	c.RateLimit.SetDefaults()
}

func (c *ServerConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate_limit: %w", err)
	}
	return nil
}

// Address returns host:port.
func (c *ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// AuthConfig enables JWT bearer authentication on /api routes. /health and
// the metrics endpoint stay open.
type AuthConfig struct {
	Enabled  bool   `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	JWKSURL  string `yaml:"jwks_url,omitempty" json:"jwks_url,omitempty"`
	Issuer   string `yaml:"issuer,omitempty" json:"issuer,omitempty"`
	Audience string `yaml:"audience,omitempty" json:"audience,omitempty"`

	// RefreshInterval is the minimum time between JWKS fetches.
	RefreshInterval time.Duration `yaml:"refresh_interval,omitempty" json:"refresh_interval,omitempty"`

	// CancelRoles restricts workflow cancellation to tokens whose role
	// claim is listed. Empty allows any authenticated caller.
	CancelRoles []string `yaml:"cancel_roles,omitempty" json:"cancel_roles,omitempty"`
}

func (c *AuthConfig) SetDefaults() {
	if c.Enabled && c.RefreshInterval == 0 {
		c.RefreshInterval = 15 * time.Minute
	}
}

func (c *AuthConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.JWKSURL == "" {
		return fmt.Errorf("jwks_url is required when auth is enabled")
	}
	u, err := url.Parse(c.JWKSURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("jwks_url must be an http(s) URL, got %q", c.JWKSURL)
	}
	if c.Issuer == "" {
		return fmt.Errorf("issuer is required when auth is enabled")
	}
	if c.Audience == "" {
		return fmt.Errorf("audience is required when auth is enabled")
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("refresh_interval must be non-negative")
	}
	return nil
}

// RateLimitConfig caps workflow submissions per caller. The caller is the
// token subject when auth is enabled, else the X-Session-ID header, else
// the client address.
type RateLimitConfig struct {
	Enabled bool            `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Limits  []RateLimitRule `yaml:"limits,omitempty" json:"limits,omitempty"`

	// CleanupInterval is how often expired counters are dropped.
	CleanupInterval time.Duration `yaml:"cleanup_interval,omitempty" json:"cleanup_interval,omitempty"`
}

// RateLimitRule allows Limit submissions per Window.
type RateLimitRule struct {
	Window string `yaml:"window" json:"window" jsonschema:"enum=minute,enum=hour,enum=day,enum=week"`
	Limit  int64  `yaml:"limit" json:"limit" jsonschema:"minimum=1"`
}

func (c *RateLimitConfig) SetDefaults() {
	if c.Enabled && c.CleanupInterval == 0 {
		c.CleanupInterval = 5 * time.Minute
	}
}

func (c *RateLimitConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if len(c.Limits) == 0 {
		return fmt.Errorf("at least one limit is required when enabled")
	}
	for i, rule := range c.Limits {
		if _, err := ratelimit.ParseWindow(rule.Window); err != nil {
			return fmt.Errorf("limits[%d]: %w", i, err)
		}
		if rule.Limit <= 0 {
			return fmt.Errorf("limits[%d]: limit must be positive, got %d", i, rule.Limit)
		}
	}
	return nil
}

// Rules converts the configured rules for ratelimit.New.
func (c *RateLimitConfig) Rules() []ratelimit.Limit {
	out := make([]ratelimit.Limit, 0, len(c.Limits))
	for _, rule := range c.Limits {
		out = append(out, ratelimit.Limit{Window: ratelimit.Window(rule.Window), Max: rule.Limit})
	}
	return out
}

// LoggerConfig configures logging when no flag or environment variable
// overrides it.
type LoggerConfig struct {
	Level  string `yaml:"level,omitempty" json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,default=info"`
	Format string `yaml:"format,omitempty" json:"format,omitempty" jsonschema:"enum=simple,enum=verbose,enum=json,default=simple"`
	File   string `yaml:"file,omitempty" json:"file,omitempty"`
}

func (c *LoggerConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "simple"
	}
}

func (c *LoggerConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid level %q", c.Level)
	}
	switch c.Format {
	case "simple", "verbose", "json":
	default:
		return fmt.Errorf("invalid format %q (valid: simple, verbose, json)", c.Format)
	}
	return nil
}
