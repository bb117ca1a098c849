package graph

import (
	"math"
	"strings"
	"time"
)

// MaxNameLength bounds node names in bytes.
const MaxNameLength = 255

// Node represents a named vertex in the graph.
type Node struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Edge represents a directed, weighted connection between two nodes.
// FromNode and ToNode hold node IDs.
type Edge struct {
	ID        string    `json:"id"`
	FromNode  string    `json:"fromNode"`
	ToNode    string    `json:"toNode"`
	Weight    float64   `json:"weight"`
	CreatedAt time.Time `json:"createdAt"`
}

// EdgeView is an Edge with its endpoint names resolved.
type EdgeView struct {
	Edge
	FromName string `json:"fromNodeName"`
	ToName   string `json:"toNodeName"`
}

// Path is the outcome of a successful shortest-path computation.
type Path struct {
	Nodes       []string `json:"path"`
	TotalWeight float64  `json:"totalWeight"`
}

// PathResult is the persisted record of one shortest-path query.
type PathResult struct {
	ID          string    `json:"id"`
	StartNode   string    `json:"startNode"`
	EndNode     string    `json:"endNode"`
	Path        []string  `json:"path"`
	TotalWeight float64   `json:"totalWeight"`
	Timestamp   time.Time `json:"timestamp"`
}

// NormalizeName trims surrounding whitespace and validates a node name.
func NormalizeName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", NewValidationError("node name is required")
	}
	if len(trimmed) > MaxNameLength {
		return "", NewValidationErrorf("node name exceeds %d bytes", MaxNameLength)
	}
	return trimmed, nil
}

// ValidateWeight rejects zero, negative and non-finite weights.
func ValidateWeight(weight float64) error {
	if math.IsNaN(weight) || math.IsInf(weight, 0) {
		return NewValidationError("edge weight must be a finite number")
	}
	if weight <= 0 {
		return NewValidationErrorf("edge weight must be positive, got %v", weight)
	}
	return nil
}

// NewNode builds a validated Node.
func NewNode(id, name string, createdAt time.Time) (Node, error) {
	if id == "" {
		return Node{}, NewValidationError("node id is required")
	}
	normalized, err := NormalizeName(name)
	if err != nil {
		return Node{}, err
	}
	return Node{ID: id, Name: normalized, CreatedAt: createdAt}, nil
}

// NewEdge builds a validated Edge between two existing nodes.
func NewEdge(id string, from, to Node, weight float64, createdAt time.Time) (Edge, error) {
	if id == "" {
		return Edge{}, NewValidationError("edge id is required")
	}
	if from.ID == "" || to.ID == "" {
		return Edge{}, NewValidationError("edge endpoints must reference existing nodes")
	}
	if err := ValidateWeight(weight); err != nil {
		return Edge{}, err
	}
	return Edge{
		ID:        id,
		FromNode:  from.ID,
		ToNode:    to.ID,
		Weight:    weight,
		CreatedAt: createdAt,
	}, nil
}

// NewPathResult builds the ledger entry for a computed path.
func NewPathResult(id, start, end string, path Path, ts time.Time) (PathResult, error) {
	if id == "" {
		return PathResult{}, NewValidationError("result id is required")
	}
	if len(path.Nodes) == 0 {
		return PathResult{}, NewValidationError("result path is empty")
	}
	if path.Nodes[0] != start || path.Nodes[len(path.Nodes)-1] != end {
		return PathResult{}, NewValidationErrorf("result path does not run from %q to %q", start, end)
	}
	nodes := make([]string, len(path.Nodes))
	copy(nodes, path.Nodes)
	return PathResult{
		ID:          id,
		StartNode:   start,
		EndNode:     end,
		Path:        nodes,
		TotalWeight: path.TotalWeight,
		Timestamp:   ts,
	}, nil
}
