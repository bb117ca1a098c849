package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rmax-ai/pathlord/pkg/engine"
	"github.com/rmax-ai/pathlord/pkg/graph"
)

// InsertNode persists a node. A taken name yields a conflict error.
func (s *Store) InsertNode(ctx context.Context, node graph.Node) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO nodes (id, name, created_at) VALUES (?, ?, ?)`,
		node.ID, node.Name, node.CreatedAt.UnixNano(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return graph.NewConflictError(node.Name)
		}
		return graph.NewStorageError("insert node", fmt.Errorf("failed to insert node: %w", err))
	}
	return nil
}

// InsertEdge resolves the endpoint names and inserts the edge in a single
// transaction.
func (s *Store) InsertEdge(ctx context.Context, in engine.EdgeInsert) (graph.EdgeView, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return graph.EdgeView{}, graph.NewStorageError("insert edge", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	from, err := nodeByName(ctx, tx, in.FromName)
	if err != nil {
		return graph.EdgeView{}, err
	}
	to, err := nodeByName(ctx, tx, in.ToName)
	if err != nil {
		return graph.EdgeView{}, err
	}

	edge, err := graph.NewEdge(in.ID, from, to, in.Weight, in.CreatedAt)
	if err != nil {
		return graph.EdgeView{}, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO edges (id, from_node, to_node, weight, created_at) VALUES (?, ?, ?, ?, ?)`,
		edge.ID, edge.FromNode, edge.ToNode, edge.Weight, edge.CreatedAt.UnixNano(),
	)
	if err != nil {
		return graph.EdgeView{}, graph.NewStorageError("insert edge", fmt.Errorf("failed to insert edge: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return graph.EdgeView{}, graph.NewStorageError("insert edge", fmt.Errorf("failed to commit edge: %w", err))
	}
	return graph.EdgeView{Edge: edge, FromName: from.Name, ToName: to.Name}, nil
}

// ListNodes returns nodes in creation order.
func (s *Store) ListNodes(ctx context.Context) ([]graph.Node, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM nodes ORDER BY rowid`)
	if err != nil {
		return nil, graph.NewStorageError("list nodes", fmt.Errorf("failed to query nodes: %w", err))
	}
	defer rows.Close()

	nodes, err := scanNodes(rows)
	if err != nil {
		return nil, graph.NewStorageError("list nodes", err)
	}
	return nodes, nil
}

// ListEdges returns edges in creation order with endpoint names resolved.
func (s *Store) ListEdges(ctx context.Context) ([]graph.EdgeView, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.from_node, e.to_node, e.weight, e.created_at, f.name, t.name
		FROM edges e
		JOIN nodes f ON f.id = e.from_node
		JOIN nodes t ON t.id = e.to_node
		ORDER BY e.rowid`)
	if err != nil {
		return nil, graph.NewStorageError("list edges", fmt.Errorf("failed to query edges: %w", err))
	}
	defer rows.Close()

	views := []graph.EdgeView{}
	for rows.Next() {
		var v graph.EdgeView
		var created int64
		if err := rows.Scan(&v.ID, &v.FromNode, &v.ToNode, &v.Weight, &created, &v.FromName, &v.ToName); err != nil {
			return nil, graph.NewStorageError("list edges", fmt.Errorf("failed to scan edge: %w", err))
		}
		v.CreatedAt = fromNanos(created)
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, graph.NewStorageError("list edges", fmt.Errorf("failed to iterate edges: %w", err))
	}
	return views, nil
}

// Snapshot reads nodes and edges inside one transaction.
func (s *Store) Snapshot(ctx context.Context) (graph.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return graph.Snapshot{}, graph.NewStorageError("snapshot", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	nodeRows, err := tx.QueryContext(ctx, `SELECT id, name, created_at FROM nodes ORDER BY rowid`)
	if err != nil {
		return graph.Snapshot{}, graph.NewStorageError("snapshot", fmt.Errorf("failed to query nodes: %w", err))
	}
	nodes, err := scanNodes(nodeRows)
	nodeRows.Close()
	if err != nil {
		return graph.Snapshot{}, graph.NewStorageError("snapshot", err)
	}

	edgeRows, err := tx.QueryContext(ctx, `SELECT id, from_node, to_node, weight, created_at FROM edges ORDER BY rowid`)
	if err != nil {
		return graph.Snapshot{}, graph.NewStorageError("snapshot", fmt.Errorf("failed to query edges: %w", err))
	}
	defer edgeRows.Close()

	edges := []graph.Edge{}
	for edgeRows.Next() {
		var e graph.Edge
		var created int64
		if err := edgeRows.Scan(&e.ID, &e.FromNode, &e.ToNode, &e.Weight, &created); err != nil {
			return graph.Snapshot{}, graph.NewStorageError("snapshot", fmt.Errorf("failed to scan edge: %w", err))
		}
		e.CreatedAt = fromNanos(created)
		edges = append(edges, e)
	}
	if err := edgeRows.Err(); err != nil {
		return graph.Snapshot{}, graph.NewStorageError("snapshot", fmt.Errorf("failed to iterate edges: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return graph.Snapshot{}, graph.NewStorageError("snapshot", fmt.Errorf("failed to commit snapshot: %w", err))
	}
	return graph.Snapshot{Nodes: nodes, Edges: edges}, nil
}

func nodeByName(ctx context.Context, tx *sql.Tx, name string) (graph.Node, error) {
	var n graph.Node
	var created int64
	err := tx.QueryRowContext(ctx, `SELECT id, name, created_at FROM nodes WHERE name = ?`, name).
		Scan(&n.ID, &n.Name, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return graph.Node{}, graph.NewNotFoundError(name)
	}
	if err != nil {
		return graph.Node{}, graph.NewStorageError("lookup node", fmt.Errorf("failed to query node %q: %w", name, err))
	}
	n.CreatedAt = fromNanos(created)
	return n, nil
}

func scanNodes(rows *sql.Rows) ([]graph.Node, error) {
	nodes := []graph.Node{}
	for rows.Next() {
		var n graph.Node
		var created int64
		if err := rows.Scan(&n.ID, &n.Name, &created); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		n.CreatedAt = fromNanos(created)
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate nodes: %w", err)
	}
	return nodes, nil
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
