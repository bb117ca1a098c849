// Package neo4j stores the graph and the results ledger in Neo4j. Nodes are
// :PathNode vertices, edges are :LINK relationships and results are
// :PathResult vertices.
package neo4j

import (
	"context"
	"errors"
)

// Client is the minimal contract the repository needs from a graph database.
type Client interface {
	ExecuteWrite(ctx context.Context, cypher string, params map[string]any) (Result, error)
	ExecuteRead(ctx context.Context, cypher string, params map[string]any) (Result, error)
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// Result is a simplified query response.
type Result struct {
	Records []Record
}

// Record groups key-value pairs returned from one row.
type Record map[string]any

// Options configures a Client.
type Options struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

// ErrMissingURI indicates the graph URI is not provided.
var ErrMissingURI = errors.New("neo4j URI is required")
