// Package memory provides a non-persistent repository, used for tests and
// for running the daemon with -store memory.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/rmax-ai/pathlord/pkg/engine"
	"github.com/rmax-ai/pathlord/pkg/graph"
)

// Store keeps nodes, edges and results in process memory.
type Store struct {
	mu      sync.RWMutex
	nodes   []graph.Node
	byName  map[string]graph.Node
	byID    map[string]graph.Node
	edges   []graph.Edge
	results []graph.PathResult
	closed  bool
}

var _ engine.Repository = (*Store)(nil)

var errClosed = errors.New("memory store is closed")

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		byName: make(map[string]graph.Node),
		byID:   make(map[string]graph.Node),
	}
}

func (s *Store) InsertNode(ctx context.Context, node graph.Node) error {
	if err := ctx.Err(); err != nil {
		return graph.NewStorageError("insert node", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return graph.NewStorageError("insert node", errClosed)
	}
	if _, ok := s.byName[node.Name]; ok {
		return graph.NewConflictError(node.Name)
	}
	s.nodes = append(s.nodes, node)
	s.byName[node.Name] = node
	s.byID[node.ID] = node
	return nil
}

func (s *Store) InsertEdge(ctx context.Context, in engine.EdgeInsert) (graph.EdgeView, error) {
	if err := ctx.Err(); err != nil {
		return graph.EdgeView{}, graph.NewStorageError("insert edge", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return graph.EdgeView{}, graph.NewStorageError("insert edge", errClosed)
	}
	from, ok := s.byName[in.FromName]
	if !ok {
		return graph.EdgeView{}, graph.NewNotFoundError(in.FromName)
	}
	to, ok := s.byName[in.ToName]
	if !ok {
		return graph.EdgeView{}, graph.NewNotFoundError(in.ToName)
	}
	edge, err := graph.NewEdge(in.ID, from, to, in.Weight, in.CreatedAt)
	if err != nil {
		return graph.EdgeView{}, err
	}
	s.edges = append(s.edges, edge)
	return graph.EdgeView{Edge: edge, FromName: from.Name, ToName: to.Name}, nil
}

func (s *Store) ListNodes(ctx context.Context) ([]graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]graph.Node{}, s.nodes...), nil
}

func (s *Store) ListEdges(ctx context.Context) ([]graph.EdgeView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	views := make([]graph.EdgeView, 0, len(s.edges))
	for _, e := range s.edges {
		views = append(views, graph.EdgeView{
			Edge:     e,
			FromName: s.byID[e.FromNode].Name,
			ToName:   s.byID[e.ToNode].Name,
		})
	}
	return views, nil
}

func (s *Store) Snapshot(ctx context.Context) (graph.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return graph.Snapshot{}, graph.NewStorageError("snapshot", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return graph.Snapshot{
		Nodes: append([]graph.Node{}, s.nodes...),
		Edges: append([]graph.Edge{}, s.edges...),
	}, nil
}

func (s *Store) Record(ctx context.Context, result graph.PathResult) error {
	if err := ctx.Err(); err != nil {
		return graph.NewStorageError("record result", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	result.Path = append([]string(nil), result.Path...)
	s.results = append(s.results, result)
	return nil
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]graph.PathResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]graph.PathResult, len(s.results))
	// Reverse insertion order, then a stable sort on timestamp keeps later
	// inserts first among equal timestamps.
	for i, r := range s.results {
		out[len(s.results)-1-i] = r
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ClearAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return graph.NewStorageError("clear", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = nil
	s.edges = nil
	s.results = nil
	s.byName = make(map[string]graph.Node)
	s.byID = make(map[string]graph.Node)
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return graph.NewStorageError("ping", errClosed)
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
