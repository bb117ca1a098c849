package neo4j

import (
	"context"
	"errors"
	"fmt"
	"time"

	driver "github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/rmax-ai/pathlord/pkg/engine"
	"github.com/rmax-ai/pathlord/pkg/graph"
)

// Every insert takes a value from a single counter vertex so listings can
// return creation order independently of wall-clock timestamps.
const (
	schemaNodeName = `CREATE CONSTRAINT pathnode_name IF NOT EXISTS FOR (n:PathNode) REQUIRE n.name IS UNIQUE`
	schemaResultID = `CREATE CONSTRAINT pathresult_id IF NOT EXISTS FOR (r:PathResult) REQUIRE r.id IS UNIQUE`

	cypherInsertNode = `
OPTIONAL MATCH (existing:PathNode {name: $name})
WITH existing WHERE existing IS NULL
MERGE (c:PathlordSeq {name: 'seq'})
SET c.value = coalesce(c.value, 0) + 1
CREATE (n:PathNode {id: $id, name: $name, created_at: $created_at, seq: c.value})
RETURN n.id AS id`

	cypherInsertEdge = `
OPTIONAL MATCH (a:PathNode {name: $from})
OPTIONAL MATCH (b:PathNode {name: $to})
CALL {
  WITH a, b
  WITH a, b WHERE a IS NOT NULL AND b IS NOT NULL
  MERGE (c:PathlordSeq {name: 'seq'})
  SET c.value = coalesce(c.value, 0) + 1
  CREATE (a)-[r:LINK {id: $id, weight: $weight, created_at: $created_at, seq: c.value}]->(b)
  RETURN count(r) AS created
}
RETURN a.id AS from_id, b.id AS to_id, created`

	cypherListNodes = `
MATCH (n:PathNode)
RETURN n.id AS id, n.name AS name, n.created_at AS created_at
ORDER BY n.seq`

	cypherListEdges = `
MATCH (a:PathNode)-[r:LINK]->(b:PathNode)
RETURN r.id AS id, a.id AS from_id, b.id AS to_id, a.name AS from_name, b.name AS to_name,
       r.weight AS weight, r.created_at AS created_at
ORDER BY r.seq`

	cypherSnapshot = `
OPTIONAL MATCH (n:PathNode)
WITH n ORDER BY n.seq
WITH collect(n {.id, .name, .created_at}) AS nodes
OPTIONAL MATCH (a:PathNode)-[r:LINK]->(b:PathNode)
WITH nodes, a, b, r ORDER BY r.seq
RETURN nodes, collect(r {.id, .weight, .created_at, from_id: a.id, to_id: b.id}) AS edges`

	cypherRecord = `
MERGE (c:PathlordSeq {name: 'seq'})
SET c.value = coalesce(c.value, 0) + 1
CREATE (r:PathResult {id: $id, start_node: $start, end_node: $end, path: $path,
                      total_weight: $total_weight, created_at: $created_at, seq: c.value})`

	cypherListResults = `
MATCH (r:PathResult)
RETURN r.id AS id, r.start_node AS start_node, r.end_node AS end_node, r.path AS path,
       r.total_weight AS total_weight, r.created_at AS created_at
ORDER BY r.created_at DESC, r.seq DESC`

	cypherClear = `
MATCH (n) WHERE n:PathNode OR n:PathResult
DETACH DELETE n`
)

// Store implements engine.Repository over a Client. Each operation is one
// auto-commit statement, so inserts, snapshots and clears are atomic.
type Store struct {
	client Client
}

var _ engine.Repository = (*Store)(nil)

// NewStore wraps client without touching the database.
func NewStore(client Client) *Store {
	return &Store{client: client}
}

// EnsureSchema creates the uniqueness constraints.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{schemaNodeName, schemaResultID} {
		if _, err := s.client.ExecuteWrite(ctx, stmt, nil); err != nil {
			return fmt.Errorf("failed to create neo4j constraint: %w", err)
		}
	}
	return nil
}

func (s *Store) InsertNode(ctx context.Context, node graph.Node) error {
	res, err := s.client.ExecuteWrite(ctx, cypherInsertNode, map[string]any{
		"id":         node.ID,
		"name":       node.Name,
		"created_at": node.CreatedAt.UnixNano(),
	})
	if err != nil {
		if isConstraintViolation(err) {
			return graph.NewConflictError(node.Name)
		}
		return graph.NewStorageError("insert node", fmt.Errorf("failed to create node: %w", err))
	}
	if len(res.Records) == 0 {
		return graph.NewConflictError(node.Name)
	}
	return nil
}

func (s *Store) InsertEdge(ctx context.Context, in engine.EdgeInsert) (graph.EdgeView, error) {
	res, err := s.client.ExecuteWrite(ctx, cypherInsertEdge, map[string]any{
		"id":         in.ID,
		"from":       in.FromName,
		"to":         in.ToName,
		"weight":     in.Weight,
		"created_at": in.CreatedAt.UnixNano(),
	})
	if err != nil {
		return graph.EdgeView{}, graph.NewStorageError("insert edge", fmt.Errorf("failed to create edge: %w", err))
	}
	if len(res.Records) == 0 {
		return graph.EdgeView{}, graph.NewStorageError("insert edge", errors.New("edge insert returned no rows"))
	}
	rec := res.Records[0]
	fromID, _ := rec["from_id"].(string)
	toID, _ := rec["to_id"].(string)
	if fromID == "" {
		return graph.EdgeView{}, graph.NewNotFoundError(in.FromName)
	}
	if toID == "" {
		return graph.EdgeView{}, graph.NewNotFoundError(in.ToName)
	}

	edge, err := graph.NewEdge(in.ID, graph.Node{ID: fromID, Name: in.FromName}, graph.Node{ID: toID, Name: in.ToName}, in.Weight, in.CreatedAt)
	if err != nil {
		return graph.EdgeView{}, err
	}
	return graph.EdgeView{Edge: edge, FromName: in.FromName, ToName: in.ToName}, nil
}

func (s *Store) ListNodes(ctx context.Context) ([]graph.Node, error) {
	res, err := s.client.ExecuteRead(ctx, cypherListNodes, nil)
	if err != nil {
		return nil, graph.NewStorageError("list nodes", fmt.Errorf("failed to query nodes: %w", err))
	}
	nodes := make([]graph.Node, 0, len(res.Records))
	for _, rec := range res.Records {
		nodes = append(nodes, nodeFromMap(rec))
	}
	return nodes, nil
}

func (s *Store) ListEdges(ctx context.Context) ([]graph.EdgeView, error) {
	res, err := s.client.ExecuteRead(ctx, cypherListEdges, nil)
	if err != nil {
		return nil, graph.NewStorageError("list edges", fmt.Errorf("failed to query edges: %w", err))
	}
	views := make([]graph.EdgeView, 0, len(res.Records))
	for _, rec := range res.Records {
		views = append(views, graph.EdgeView{
			Edge:     edgeFromMap(rec),
			FromName: asString(rec["from_name"]),
			ToName:   asString(rec["to_name"]),
		})
	}
	return views, nil
}

func (s *Store) Snapshot(ctx context.Context) (graph.Snapshot, error) {
	res, err := s.client.ExecuteRead(ctx, cypherSnapshot, nil)
	if err != nil {
		return graph.Snapshot{}, graph.NewStorageError("snapshot", fmt.Errorf("failed to query snapshot: %w", err))
	}
	snap := graph.Snapshot{Nodes: []graph.Node{}, Edges: []graph.Edge{}}
	if len(res.Records) == 0 {
		return snap, nil
	}
	rec := res.Records[0]
	for _, v := range asSlice(rec["nodes"]) {
		if m, ok := v.(map[string]any); ok {
			snap.Nodes = append(snap.Nodes, nodeFromMap(m))
		}
	}
	for _, v := range asSlice(rec["edges"]) {
		if m, ok := v.(map[string]any); ok {
			snap.Edges = append(snap.Edges, edgeFromMap(m))
		}
	}
	return snap, nil
}

func (s *Store) Record(ctx context.Context, r graph.PathResult) error {
	_, err := s.client.ExecuteWrite(ctx, cypherRecord, map[string]any{
		"id":           r.ID,
		"start":        r.StartNode,
		"end":          r.EndNode,
		"path":         r.Path,
		"total_weight": r.TotalWeight,
		"created_at":   r.Timestamp.UnixNano(),
	})
	if err != nil {
		return graph.NewStorageError("record result", fmt.Errorf("failed to create result: %w", err))
	}
	return nil
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]graph.PathResult, error) {
	query := cypherListResults
	var params map[string]any
	if limit > 0 {
		query += "\nLIMIT $limit"
		params = map[string]any{"limit": int64(limit)}
	}
	res, err := s.client.ExecuteRead(ctx, query, params)
	if err != nil {
		return nil, graph.NewStorageError("list results", fmt.Errorf("failed to query results: %w", err))
	}
	results := make([]graph.PathResult, 0, len(res.Records))
	for _, rec := range res.Records {
		results = append(results, graph.PathResult{
			ID:          asString(rec["id"]),
			StartNode:   asString(rec["start_node"]),
			EndNode:     asString(rec["end_node"]),
			Path:        asStrings(rec["path"]),
			TotalWeight: asFloat64(rec["total_weight"]),
			Timestamp:   asTime(rec["created_at"]),
		})
	}
	return results, nil
}

func (s *Store) ClearAll(ctx context.Context) error {
	if _, err := s.client.ExecuteWrite(ctx, cypherClear, nil); err != nil {
		return graph.NewStorageError("clear", fmt.Errorf("failed to delete graph: %w", err))
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.VerifyConnectivity(ctx); err != nil {
		return graph.NewStorageError("ping", err)
	}
	return nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Close(ctx)
}

func isConstraintViolation(err error) bool {
	var nerr *driver.Neo4jError
	return errors.As(err, &nerr) && nerr.Code == "Neo.ClientError.Schema.ConstraintValidationFailed"
}

func nodeFromMap(m map[string]any) graph.Node {
	return graph.Node{
		ID:        asString(m["id"]),
		Name:      asString(m["name"]),
		CreatedAt: asTime(m["created_at"]),
	}
}

func edgeFromMap(m map[string]any) graph.Edge {
	return graph.Edge{
		ID:        asString(m["id"]),
		FromNode:  asString(m["from_id"]),
		ToNode:    asString(m["to_id"]),
		Weight:    asFloat64(m["weight"]),
		CreatedAt: asTime(m["created_at"]),
	}
}
