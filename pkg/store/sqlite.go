package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/rmax-ai/pathlord/pkg/engine"
	"github.com/rmax-ai/pathlord/pkg/graph"
)

// Store manages the SQLite connection and schema. It implements
// engine.Repository.
type Store struct {
	db *sql.DB
}

var _ engine.Repository = (*Store)(nil)

// NewStore initializes the SQLite database connection.
// It enables WAL mode for concurrency and durability.
func NewStore(dbPath string) (*Store, error) {
	// Per-connection settings go in the DSN so every pooled connection gets them.
	db, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	// Enable WAL mode (Write-Ahead Logging)
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{db: db}

	// Initialize schema
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}

	return s, nil
}

func dsn(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_foreign_keys=on&_busy_timeout=5000"
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return graph.NewStorageError("ping", fmt.Errorf("failed to ping sqlite db: %w", err))
	}
	return nil
}

// migrate creates the necessary tables if they don't exist.
func (s *Store) migrate() error {
	// Timestamps are unix nanoseconds. Creation order is rowid order for
	// nodes and edges and seq order for results.
	query := `
	CREATE TABLE IF NOT EXISTS nodes (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS edges (
		id TEXT PRIMARY KEY,
		from_node TEXT NOT NULL REFERENCES nodes(id),
		to_node TEXT NOT NULL REFERENCES nodes(id),
		weight REAL NOT NULL CHECK (weight > 0),
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_edges_from_node ON edges(from_node);

	CREATE TABLE IF NOT EXISTS results (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		start_node TEXT NOT NULL,
		end_node TEXT NOT NULL,
		path JSON NOT NULL,
		total_weight REAL NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_results_created_at ON results(created_at);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create graph tables: %w", err)
	}

	return nil
}

// ClearAll deletes results, edges and nodes in one transaction.
func (s *Store) ClearAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return graph.NewStorageError("clear", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	for _, table := range []string{"results", "edges", "nodes"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return graph.NewStorageError("clear", fmt.Errorf("failed to delete from %s: %w", table, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return graph.NewStorageError("clear", fmt.Errorf("failed to commit clear: %w", err))
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
