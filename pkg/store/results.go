package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rmax-ai/pathlord/pkg/graph"
)

// Record appends a computed path to the results ledger.
func (s *Store) Record(ctx context.Context, r graph.PathResult) error {
	path, err := json.Marshal(r.Path)
	if err != nil {
		return graph.NewStorageError("record result", fmt.Errorf("failed to marshal path: %w", err))
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO results (id, start_node, end_node, path, total_weight, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartNode, r.EndNode, string(path), r.TotalWeight, r.Timestamp.UnixNano(),
	)
	if err != nil {
		return graph.NewStorageError("record result", fmt.Errorf("failed to insert result: %w", err))
	}
	return nil
}

// ListRecent returns results newest first. limit <= 0 returns all.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]graph.PathResult, error) {
	query := `SELECT id, start_node, end_node, path, total_weight, created_at
		FROM results ORDER BY created_at DESC, seq DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, graph.NewStorageError("list results", fmt.Errorf("failed to query results: %w", err))
	}
	defer rows.Close()

	results := []graph.PathResult{}
	for rows.Next() {
		var r graph.PathResult
		var pathJSON string
		var created int64
		if err := rows.Scan(&r.ID, &r.StartNode, &r.EndNode, &pathJSON, &r.TotalWeight, &created); err != nil {
			return nil, graph.NewStorageError("list results", fmt.Errorf("failed to scan result: %w", err))
		}
		if err := json.Unmarshal([]byte(pathJSON), &r.Path); err != nil {
			return nil, graph.NewStorageError("list results", fmt.Errorf("failed to unmarshal path: %w", err))
		}
		r.Timestamp = fromNanos(created)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, graph.NewStorageError("list results", fmt.Errorf("failed to iterate results: %w", err))
	}
	return results, nil
}
