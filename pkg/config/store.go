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

import "fmt"

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQL    = "sql"
)

// StoreConfig selects where workflow snapshots are written.
//
//	store:
//	  backend: sql
//	  database: default
type StoreConfig struct {
	Backend  string `yaml:"backend,omitempty" json:"backend,omitempty" jsonschema:"enum=memory,enum=sql,default=memory"`
	Database string `yaml:"database,omitempty" json:"database,omitempty"`
}

func (c *StoreConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = StoreMemory
	}
}

func (c *StoreConfig) Validate() error {
	switch c.Backend {
	case StoreMemory:
		return nil
	case StoreSQL:
		if c.Database == "" {
			return fmt.Errorf("database is required for the sql backend")
		}
		return nil
	default:
		return fmt.Errorf("invalid backend %q (valid: memory, sql)", c.Backend)
	}
}

func (c *StoreConfig) IsSQL() bool { return c.Backend == StoreSQL }

// NotifierConfig sizes the progress event hub.
type NotifierConfig struct {
	// BufferSize is the per-subscriber event buffer.
	BufferSize int `yaml:"buffer_size,omitempty" json:"buffer_size,omitempty" jsonschema:"minimum=1,default=64"`
}

func (c *NotifierConfig) SetDefaults() {
	if c.BufferSize == 0 {
		c.BufferSize = 64
	}
}

func (c *NotifierConfig) Validate() error {
	if c.BufferSize < 1 {
		return fmt.Errorf("buffer_size must be positive")
	}
	return nil
}
