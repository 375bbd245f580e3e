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

// Package config loads and validates the sitepipe configuration file.
package config

import (
	"fmt"
	"sort"

	"github.com/dhruv465/Website-Builder-sub000/pkg/observability"
)

// Config is the root of the configuration file.
type Config struct {
	Orchestrator  OrchestratorConfig           `yaml:"orchestrator,omitempty" json:"orchestrator,omitempty"`
	Agents        map[string]*AgentConfig      `yaml:"agents,omitempty" json:"agents,omitempty"`
	Store         StoreConfig                  `yaml:"store,omitempty" json:"store,omitempty"`
	Databases     map[string]*DatabaseConfig   `yaml:"databases,omitempty" json:"databases,omitempty"`
	Server        ServerConfig                 `yaml:"server,omitempty" json:"server,omitempty"`
	Notifier      NotifierConfig               `yaml:"notifier,omitempty" json:"notifier,omitempty"`
	Observability observability.Config         `yaml:"observability,omitempty" json:"observability,omitempty"`
	Logger        LoggerConfig                 `yaml:"logger,omitempty" json:"logger,omitempty"`
}

// Default returns a configuration with every default applied: in-memory
// store, no remote agents.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

func (c *Config) SetDefaults() {
	if c.Agents == nil {
		c.Agents = make(map[string]*AgentConfig)
	}
	if c.Databases == nil {
		c.Databases = make(map[string]*DatabaseConfig)
	}

	c.Orchestrator.SetDefaults()
	for name, a := range c.Agents {
		if a == nil {
			a = &AgentConfig{}
			c.Agents[name] = a
		}
		a.SetDefaults()
	}
	c.Store.SetDefaults()
	for _, db := range c.Databases {
		if db != nil {
			db.SetDefaults()
		}
	}
	c.Server.SetDefaults()
	c.Notifier.SetDefaults()
	c.Observability.SetDefaults()
	c.Logger.SetDefaults()
}

func (c *Config) Validate() error {
	if err := c.Orchestrator.Validate(); err != nil {
		return fmt.Errorf("orchestrator: %w", err)
	}
	for _, name := range sortedKeys(c.Agents) {
		if err := c.Agents[name].Validate(); err != nil {
			return fmt.Errorf("agents.%s: %w", name, err)
		}
	}
	for _, name := range sortedKeys(c.Databases) {
		db := c.Databases[name]
		if db == nil {
			return fmt.Errorf("databases.%s: empty definition", name)
		}
		if err := db.Validate(); err != nil {
			return fmt.Errorf("databases.%s: %w", name, err)
		}
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if c.Store.IsSQL() {
		if _, ok := c.Databases[c.Store.Database]; !ok {
			return fmt.Errorf("store: database %q not found (available: %v)", c.Store.Database, sortedKeys(c.Databases))
		}
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Notifier.Validate(); err != nil {
		return fmt.Errorf("notifier: %w", err)
	}
	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	return nil
}

// GetDatabase returns the named database definition.
func (c *Config) GetDatabase(name string) (*DatabaseConfig, bool) {
	db, ok := c.Databases[name]
	return db, ok && db != nil
}

// AgentNames returns the configured agent names in sorted order.
func (c *Config) AgentNames() []string {
	return sortedKeys(c.Agents)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
