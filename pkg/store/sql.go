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
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dhruv465/Website-Builder-sub000/pkg/workflow"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SQLStore keeps snapshots in a workflow_snapshots table. The indexed
// columns duplicate fields of the JSON document so List can filter in SQL.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

const (
	createSnapshotTableSQL = `
CREATE TABLE IF NOT EXISTS workflow_snapshots (
    id VARCHAR(64) PRIMARY KEY,
    session_id VARCHAR(255) NOT NULL,
    workflow_type VARCHAR(64) NOT NULL,
    status VARCHAR(32) NOT NULL,
    snapshot_json TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
)`

	createSnapshotSessionIndexSQL = `
CREATE INDEX IF NOT EXISTS idx_workflow_snapshots_session ON workflow_snapshots(session_id)`

	createSnapshotStatusIndexSQL = `
CREATE INDEX IF NOT EXISTS idx_workflow_snapshots_status ON workflow_snapshots(status)`
)

// NewSQLStore creates the store and its schema. db should come from a shared
// pool so SQLite keeps a single writer.
func NewSQLStore(db *sql.DB, dialect string) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	normalized := dialect
	if dialect == "sqlite3" {
		normalized = "sqlite"
	}
	switch normalized {
	case "postgres", "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported dialect: %s (supported: postgres, mysql, sqlite)", dialect)
	}

	s := &SQLStore{db: db, dialect: normalized}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLStore) initSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, createSnapshotTableSQL); err != nil {
		return fmt.Errorf("failed to create workflow_snapshots table: %w", err)
	}

	// MySQL has no CREATE INDEX IF NOT EXISTS; the primary key covers Get.
	if s.dialect == "mysql" {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, createSnapshotSessionIndexSQL); err != nil {
		return fmt.Errorf("failed to create session index: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, createSnapshotStatusIndexSQL); err != nil {
		return fmt.Errorf("failed to create status index: %w", err)
	}
	return nil
}

func (s *SQLStore) placeholder(n int) string {
	if s.dialect == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (s *SQLStore) Put(ctx context.Context, workflowID string, snap *workflow.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot is required")
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	var query string
	switch s.dialect {
	case "postgres":
		query = `
INSERT INTO workflow_snapshots (id, session_id, workflow_type, status, snapshot_json, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
    status = EXCLUDED.status,
    snapshot_json = EXCLUDED.snapshot_json,
    updated_at = EXCLUDED.updated_at
`
	case "sqlite":
		query = `
INSERT INTO workflow_snapshots (id, session_id, workflow_type, status, snapshot_json, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    status = excluded.status,
    snapshot_json = excluded.snapshot_json,
    updated_at = excluded.updated_at
`
	default:
		query = `
INSERT INTO workflow_snapshots (id, session_id, workflow_type, status, snapshot_json, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    status = VALUES(status),
    snapshot_json = VALUES(snapshot_json),
    updated_at = VALUES(updated_at)
`
	}

	createdAt := snap.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	updatedAt := snap.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, query,
		workflowID, snap.SessionID, string(snap.WorkflowType), string(snap.Status),
		string(raw), createdAt.UTC(), updatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, workflowID string) (*workflow.Snapshot, error) {
	query := "SELECT snapshot_json FROM workflow_snapshots WHERE id = " + s.placeholder(1)

	var raw string
	err := s.db.QueryRowContext(ctx, query, workflowID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		slog.Error("Snapshot query failed", "workflow_id", workflowID, "error", err)
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}
	return decodeSnapshot([]byte(raw))
}

func (s *SQLStore) List(ctx context.Context, filter Filter) ([]*workflow.Snapshot, error) {
	var (
		where []string
		args  []any
	)
	add := func(column, value string) {
		args = append(args, value)
		where = append(where, column+" = "+s.placeholder(len(args)))
	}
	if filter.Status != "" {
		add("status", string(filter.Status))
	}
	if filter.Type != "" {
		add("workflow_type", string(filter.Type))
	}
	if filter.SessionID != "" {
		add("session_id", filter.SessionID)
	}

	query := "SELECT snapshot_json FROM workflow_snapshots"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []*workflow.Snapshot
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snap, err := decodeSnapshot([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func (s *SQLStore) Delete(ctx context.Context, workflowID string) error {
	query := "DELETE FROM workflow_snapshots WHERE id = " + s.placeholder(1)
	if _, err := s.db.ExecContext(ctx, query, workflowID); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// Close is a no-op: the connection belongs to the pool that opened it.
func (s *SQLStore) Close() error { return nil }

var _ Store = (*SQLStore)(nil)
