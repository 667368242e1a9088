// Package postgres provides the PostgreSQL-backed persistence collaborator:
// it mirrors the workspace tree and the terminal history so a workspace
// survives server restarts. The in-memory core never depends on it.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/codebench/codebench/internal/metrics"
	"github.com/codebench/codebench/pkg/models"
)

// ErrNoSnapshot is returned by LoadTree when nothing has been persisted yet.
var ErrNoSnapshot = errors.New("no workspace snapshot stored")

// Store is a PostgreSQL metadata store.
type Store struct {
	db *sql.DB
}

// New opens the database and verifies connectivity.
func New(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpdateConnectionMetrics refreshes the database connection gauge.
func (s *Store) UpdateConnectionMetrics() {
	metrics.SetDBConnectionsOpen(s.db.Stats().OpenConnections)
}

const schema = `
CREATE TABLE IF NOT EXISTS workspace_tree (
	id INTEGER PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	tree JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS terminal_history (
	id UUID PRIMARY KEY,
	command TEXT NOT NULL,
	output TEXT NOT NULL,
	exit_status TEXT NOT NULL,
	working_directory TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS terminal_history_started_at_idx
	ON terminal_history (started_at);
`

// InitSchema creates the tables if they do not exist.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// SaveTree upserts the full workspace tree as one JSON document.
func (s *Store) SaveTree(ctx context.Context, root *models.Node) error {
	doc, err := json.Marshal(root)
	if err != nil {
		return fmt.Errorf("marshal tree: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workspace_tree (id, tree, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET tree = EXCLUDED.tree, updated_at = now()`,
		doc)
	if err != nil {
		return fmt.Errorf("save tree: %w", err)
	}
	s.UpdateConnectionMetrics()
	return nil
}

// LoadTree returns the last persisted workspace tree.
func (s *Store) LoadTree(ctx context.Context) (*models.Node, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT tree FROM workspace_tree WHERE id = 1`).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("load tree: %w", err)
	}
	var root models.Node
	if err := json.Unmarshal(doc, &root); err != nil {
		return nil, fmt.Errorf("unmarshal tree: %w", err)
	}
	return &root, nil
}

// AppendCommand persists one finished terminal command.
func (s *Store) AppendCommand(ctx context.Context, rec *models.CommandRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO terminal_history
			(id, command, output, exit_status, working_directory, started_at, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.Command, rec.Output, string(rec.ExitStatus),
		rec.WorkingDirectory, rec.StartedAt, rec.DurationMs)
	if err != nil {
		return fmt.Errorf("append command: %w", err)
	}
	return nil
}

// LoadHistory returns up to limit most recent commands, oldest first.
func (s *Store) LoadHistory(ctx context.Context, limit int) ([]models.CommandRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, command, output, exit_status, working_directory, started_at, duration_ms
		FROM (
			SELECT * FROM terminal_history ORDER BY started_at DESC LIMIT $1
		) recent
		ORDER BY started_at ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var out []models.CommandRecord
	for rows.Next() {
		var rec models.CommandRecord
		var status string
		if err := rows.Scan(&rec.ID, &rec.Command, &rec.Output, &status,
			&rec.WorkingDirectory, &rec.StartedAt, &rec.DurationMs); err != nil {
			return nil, fmt.Errorf("scan command: %w", err)
		}
		rec.ExitStatus = models.ExitStatus(status)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ClearHistory deletes all persisted commands.
func (s *Store) ClearHistory(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM terminal_history`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}
