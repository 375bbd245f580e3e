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

package store

import (
	"context"
	"fmt"

	"github.com/dhruv465/Website-Builder-sub000/pkg/config"
)

// NewFromConfig builds the store selected by cfg.Store. SQL stores borrow a
// connection from pool, which stays responsible for closing it.
func NewFromConfig(ctx context.Context, cfg *config.Config, pool *config.DBPool) (Store, error) {
	if !cfg.Store.IsSQL() {
		return NewMemoryStore(), nil
	}

	dbCfg, ok := cfg.GetDatabase(cfg.Store.Database)
	if !ok {
		return nil, fmt.Errorf("database %q not found", cfg.Store.Database)
	}
	if pool == nil {
		return nil, fmt.Errorf("database pool is required for the sql backend")
	}
	db, err := pool.Get(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %q: %w", cfg.Store.Database, err)
	}
	return NewSQLStore(db, dbCfg.Dialect())
}
