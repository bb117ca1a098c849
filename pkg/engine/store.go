package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rmax-ai/pathlord/pkg/graph"
)

// GraphStore owns the authoritative set of nodes and edges.
type GraphStore interface {
	// InsertNode persists a validated node. Returns a conflict error when the
	// name is already taken.
	InsertNode(ctx context.Context, node graph.Node) error
	// InsertEdge resolves both endpoint names and inserts the edge in one
	// transaction. Returns a not-found error, leaving the store unmodified,
	// when either name does not resolve.
	InsertEdge(ctx context.Context, e EdgeInsert) (graph.EdgeView, error)
	// ListNodes returns nodes in creation order.
	ListNodes(ctx context.Context) ([]graph.Node, error)
	// ListEdges returns edges in creation order with endpoint names resolved.
	ListEdges(ctx context.Context) ([]graph.EdgeView, error)
	// Snapshot reads every node and edge as of a single point in time.
	Snapshot(ctx context.Context) (graph.Snapshot, error)
	Ping(ctx context.Context) error
	Close() error
}

// Ledger records computed paths.
type Ledger interface {
	Record(ctx context.Context, result graph.PathResult) error
	// ListRecent returns results most recent first. limit <= 0 returns all.
	ListRecent(ctx context.Context, limit int) ([]graph.PathResult, error)
}

// Repository is a GraphStore and Ledger backed by the same storage, so both
// can be cleared atomically.
type Repository interface {
	GraphStore
	Ledger
	// ClearAll removes results, edges and nodes in one transaction.
	ClearAll(ctx context.Context) error
}

// EdgeInsert carries a new edge addressed by endpoint names.
type EdgeInsert struct {
	ID        string
	FromName  string
	ToName    string
	Weight    float64
	CreatedAt time.Time
}

// PathCache memoises computed paths for a given graph revision.
type PathCache interface {
	Get(ctx context.Context, key CacheKey) (graph.Path, bool, error)
	Put(ctx context.Context, key CacheKey, path graph.Path) error
	Purge(ctx context.Context) error
}

// CacheKey identifies a path query against one exact graph state. Epoch is
// unique per process and Revision increases on every successful mutation.
type CacheKey struct {
	Epoch    string
	Revision uint64
	Start    string
	End      string
}

func (k CacheKey) String() string {
	return fmt.Sprintf("%s:%d:%q:%q", k.Epoch, k.Revision, k.Start, k.End)
}
