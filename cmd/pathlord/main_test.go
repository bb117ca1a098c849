package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmax-ai/pathlord/pkg/api"
	"github.com/rmax-ai/pathlord/pkg/engine"
	"github.com/rmax-ai/pathlord/pkg/graph"
	"github.com/rmax-ai/pathlord/pkg/store/memory"
)

func newDaemon(t *testing.T) string {
	t.Helper()
	srv := api.NewServer(engine.NewService(memory.NewStore()), api.Config{})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func runCLI(t *testing.T, endpoint string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), append([]string{"-endpoint", endpoint}, args...), &stdout, &stderr)
	return stdout.String(), err
}

func TestCLI_Workflow(t *testing.T) {
	endpoint := newDaemon(t)

	for _, n := range []string{"A", "B", "C"} {
		out, err := runCLI(t, endpoint, "node", "add", n)
		require.NoError(t, err)
		assert.Contains(t, out, "Node created: "+n)
	}
	for _, e := range [][]string{{"A", "B", "3"}, {"B", "C", "4"}, {"A", "C", "10"}} {
		_, err := runCLI(t, endpoint, append([]string{"edge", "add"}, e...)...)
		require.NoError(t, err)
	}

	out, err := runCLI(t, endpoint, "node", "list")
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(out, "\n"))

	out, err = runCLI(t, endpoint, "edge", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "10")

	out, err = runCLI(t, endpoint, "path", "A", "C")
	require.NoError(t, err)
	assert.Contains(t, out, "A -> B -> C")
	assert.Contains(t, out, "Total weight: 7")

	out, err = runCLI(t, endpoint, "results", "-limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "A -> B -> C")

	out, err = runCLI(t, endpoint, "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Graph cleared")

	out, err = runCLI(t, endpoint, "node", "list")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestCLI_NoPath(t *testing.T) {
	endpoint := newDaemon(t)
	_, err := runCLI(t, endpoint, "node", "add", "A")
	require.NoError(t, err)
	_, err = runCLI(t, endpoint, "node", "add", "B")
	require.NoError(t, err)

	out, err := runCLI(t, endpoint, "path", "B", "A")
	assert.True(t, graph.IsNoPath(err))
	assert.Contains(t, out, "No path from B to A")
}

func TestCLI_Load(t *testing.T) {
	endpoint := newDaemon(t)
	path := filepath.Join(t.TempDir(), "graph.yaml")
	doc := "nodes: [A, B]\nedges:\n  - {from: A, to: B, weight: 1.5}\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	out, err := runCLI(t, endpoint, "load", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Nodes created: 2")

	out, err = runCLI(t, endpoint, "load", path)
	require.NoError(t, err)
	assert.Contains(t, out, "skipped 2 existing")
}

func TestCLI_UsageErrors(t *testing.T) {
	endpoint := newDaemon(t)
	for _, args := range [][]string{
		{},
		{"bogus"},
		{"node"},
		{"node", "add"},
		{"edge", "add", "A", "B"},
		{"path", "A"},
		{"load"},
	} {
		_, err := runCLI(t, endpoint, args...)
		assert.ErrorIs(t, err, errUsage, "args %v", args)
	}
}

func TestCLI_InvalidInput(t *testing.T) {
	endpoint := newDaemon(t)

	_, err := runCLI(t, endpoint, "edge", "add", "A", "B", "heavy")
	assert.True(t, graph.IsValidation(err))

	_, err = runCLI(t, endpoint, "results", "-limit", "-1")
	assert.True(t, graph.IsValidation(err))
}

func TestCLI_Report(t *testing.T) {
	endpoint := newDaemon(t)
	for _, args := range [][]string{
		{"node", "add", "A"}, {"node", "add", "B"},
		{"edge", "add", "A", "B", "2"},
		{"path", "A", "B"},
	} {
		_, err := runCLI(t, endpoint, args...)
		require.NoError(t, err)
	}

	out, err := runCLI(t, endpoint, "report", "results")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "timestamp,result_id"))

	out, err = runCLI(t, endpoint, "report", "edges", "-format", "json", "-from", "B")
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(out))

	dir := t.TempDir()
	out, err = runCLI(t, endpoint, "report", "edges", "-archive", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Report archived: edges/")

	_, err = runCLI(t, endpoint, "report", "usage")
	assert.Error(t, err)
}
