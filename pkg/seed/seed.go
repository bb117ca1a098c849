// Package seed loads graphs from YAML documents of the form
//
//	nodes: [A, B, C]
//	edges:
//	  - {from: A, to: B, weight: 3}
//
// and applies them through any Target, such as the engine Service or the
// HTTP client.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rmax-ai/pathlord/pkg/graph"
)

// Graph is a parsed seed document.
type Graph struct {
	Nodes []string `yaml:"nodes"`
	Edges []Edge   `yaml:"edges"`
}

// Edge is a directed weighted edge between two named nodes.
type Edge struct {
	From   string  `yaml:"from"`
	To     string  `yaml:"to"`
	Weight float64 `yaml:"weight"`
}

// Target receives seeded nodes and edges.
type Target interface {
	AddNode(ctx context.Context, name string) (graph.Node, error)
	AddEdge(ctx context.Context, fromName, toName string, weight float64) (graph.EdgeView, error)
}

// Report summarizes an Apply run.
type Report struct {
	NodesCreated int
	NodesSkipped int
	EdgesCreated int
}

// Parse decodes and validates a seed document. Unknown fields are rejected.
func Parse(r io.Reader) (Graph, error) {
	var g Graph
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&g); err != nil {
		if errors.Is(err, io.EOF) {
			return Graph{}, graph.NewValidationError("seed document is empty")
		}
		return Graph{}, graph.NewValidationErrorf("invalid seed document: %v", err)
	}
	if err := g.Validate(); err != nil {
		return Graph{}, err
	}
	return g, nil
}

// ParseFile reads and parses the seed document at path.
func ParseFile(path string) (Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return Graph{}, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Validate checks names and weights and that every edge endpoint is declared
// in nodes.
func (g Graph) Validate() error {
	declared := make(map[string]struct{}, len(g.Nodes))
	for i, raw := range g.Nodes {
		name, err := graph.NormalizeName(raw)
		if err != nil {
			return graph.NewValidationErrorf("nodes[%d]: %s", i, message(err))
		}
		declared[name] = struct{}{}
	}
	for i, e := range g.Edges {
		for _, end := range []string{e.From, e.To} {
			name, err := graph.NormalizeName(end)
			if err != nil {
				return graph.NewValidationErrorf("edges[%d]: %s", i, message(err))
			}
			if _, ok := declared[name]; !ok {
				return graph.NewValidationErrorf("edges[%d]: node %q is not declared", i, name)
			}
		}
		if err := graph.ValidateWeight(e.Weight); err != nil {
			return graph.NewValidationErrorf("edges[%d]: %s", i, message(err))
		}
	}
	return nil
}

// Apply creates every node and edge of g in document order. Nodes that already
// exist are skipped; every other failure stops the run and is returned with
// the partial report.
func Apply(ctx context.Context, target Target, g Graph) (Report, error) {
	var report Report
	for _, name := range g.Nodes {
		if _, err := target.AddNode(ctx, name); err != nil {
			if graph.IsConflict(err) {
				report.NodesSkipped++
				continue
			}
			return report, fmt.Errorf("failed to add node %q: %w", name, err)
		}
		report.NodesCreated++
	}
	for _, e := range g.Edges {
		if _, err := target.AddEdge(ctx, e.From, e.To, e.Weight); err != nil {
			return report, fmt.Errorf("failed to add edge %s -> %s: %w", e.From, e.To, err)
		}
		report.EdgesCreated++
	}
	return report, nil
}

func message(err error) string {
	if gErr, ok := graph.AsError(err); ok {
		return gErr.Message
	}
	return err.Error()
}
