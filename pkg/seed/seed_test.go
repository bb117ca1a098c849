package seed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmax-ai/pathlord/pkg/engine"
	"github.com/rmax-ai/pathlord/pkg/graph"
	"github.com/rmax-ai/pathlord/pkg/store/memory"
)

const abc = `
nodes: [A, B, C]
edges:
  - {from: A, to: B, weight: 3}
  - {from: B, to: C, weight: 4}
  - {from: A, to: C, weight: 10}
`

func TestParse(t *testing.T) {
	g, err := Parse(strings.NewReader(abc))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, g.Nodes)
	require.Len(t, g.Edges, 3)
	assert.Equal(t, Edge{From: "B", To: "C", Weight: 4}, g.Edges[1])
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"empty", "", "empty"},
		{"unknown field", "nodes: [A]\nvertices: [B]\n", "invalid seed document"},
		{"blank node", "nodes: [A, '  ']\n", "nodes[1]"},
		{"undeclared endpoint", "nodes: [A]\nedges:\n  - {from: A, to: B, weight: 1}\n", `node "B" is not declared`},
		{"zero weight", "nodes: [A, B]\nedges:\n  - {from: A, to: B, weight: 0}\n", "edges[0]"},
		{"negative weight", "nodes: [A, B]\nedges:\n  - {from: A, to: B, weight: -2}\n", "positive"},
		{"not yaml", "nodes: [A\n", "invalid seed document"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.True(t, graph.IsValidation(err), "got %v", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(abc), 0o600))

	g, err := ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 3)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	svc := engine.NewService(memory.NewStore())

	g, err := Parse(strings.NewReader(abc))
	require.NoError(t, err)

	report, err := Apply(ctx, svc, g)
	require.NoError(t, err)
	assert.Equal(t, Report{NodesCreated: 3, EdgesCreated: 3}, report)

	res, err := svc.ComputeShortestPath(ctx, "A", "C")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, res.Path)
	assert.Equal(t, 7.0, res.TotalWeight)
}

func TestApply_SkipsExistingNodes(t *testing.T) {
	ctx := context.Background()
	svc := engine.NewService(memory.NewStore())
	_, err := svc.AddNode(ctx, "B")
	require.NoError(t, err)

	g, err := Parse(strings.NewReader(abc))
	require.NoError(t, err)

	report, err := Apply(ctx, svc, g)
	require.NoError(t, err)
	assert.Equal(t, 2, report.NodesCreated)
	assert.Equal(t, 1, report.NodesSkipped)
	assert.Equal(t, 3, report.EdgesCreated)

	nodes, err := svc.ListNodes(ctx)
	require.NoError(t, err)
	assert.Len(t, nodes, 3)
}

func TestApply_StopsOnEdgeFailure(t *testing.T) {
	ctx := context.Background()
	svc := engine.NewService(memory.NewStore())

	g := Graph{
		Nodes: []string{"A", "B"},
		Edges: []Edge{{From: "A", To: "B", Weight: 1}, {From: "A", To: "Z", Weight: 1}},
	}

	report, err := Apply(ctx, svc, g)
	require.Error(t, err)
	assert.True(t, graph.IsNotFound(err))
	assert.Equal(t, Report{NodesCreated: 2, EdgesCreated: 1}, report)
}
