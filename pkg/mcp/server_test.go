package mcp

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmax-ai/pathlord/pkg/api"
	"github.com/rmax-ai/pathlord/pkg/engine"
	"github.com/rmax-ai/pathlord/pkg/store/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv := api.NewServer(engine.NewService(memory.NewStore()), api.Config{})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return NewServer(ts.URL)
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), name string, args map[string]any) (*mcp.CallToolResult, string) {
	t.Helper()
	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return result, text.Text
}

func TestMCPServer_BuildAndQuery(t *testing.T) {
	s := newTestServer(t)

	for _, n := range []string{"A", "B", "C"} {
		result, text := callTool(t, s.handleAddNode, "add_node", map[string]any{"name": n})
		require.False(t, result.IsError, text)
	}
	for _, e := range []struct {
		from, to string
		weight   float64
	}{{"A", "B", 3}, {"B", "C", 4}, {"A", "C", 10}} {
		result, text := callTool(t, s.handleAddEdge, "add_edge", map[string]any{"from": e.from, "to": e.to, "weight": e.weight})
		require.False(t, result.IsError, text)
	}

	result, text := callTool(t, s.handleShortestPath, "shortest_path", map[string]any{"start": "A", "end": "C"})
	require.False(t, result.IsError, text)
	assert.Contains(t, text, "A -> B -> C")
	assert.Contains(t, text, "Total weight: 7")
}

func TestMCPServer_DomainErrorsAreToolErrors(t *testing.T) {
	s := newTestServer(t)

	callTool(t, s.handleAddNode, "add_node", map[string]any{"name": "A"})
	callTool(t, s.handleAddNode, "add_node", map[string]any{"name": "B"})

	result, text := callTool(t, s.handleAddNode, "add_node", map[string]any{"name": "A"})
	assert.True(t, result.IsError)
	assert.Contains(t, text, "CONFLICT")

	result, text = callTool(t, s.handleAddEdge, "add_edge", map[string]any{"from": "A", "to": "B", "weight": 0})
	assert.True(t, result.IsError)
	assert.Contains(t, text, "VALIDATION")

	result, text = callTool(t, s.handleShortestPath, "shortest_path", map[string]any{"start": "A", "end": "B"})
	assert.True(t, result.IsError)
	assert.Contains(t, text, "NO_PATH")

	result, text = callTool(t, s.handleShortestPath, "shortest_path", map[string]any{"start": "A", "end": "Z"})
	assert.True(t, result.IsError)
	assert.Contains(t, text, "NOT_FOUND")
}

func TestMCPServer_ReadResources(t *testing.T) {
	s := newTestServer(t)

	callTool(t, s.handleAddNode, "add_node", map[string]any{"name": "A"})
	callTool(t, s.handleAddNode, "add_node", map[string]any{"name": "B"})
	callTool(t, s.handleAddEdge, "add_edge", map[string]any{"from": "A", "to": "B", "weight": 2.5})
	callTool(t, s.handleShortestPath, "shortest_path", map[string]any{"start": "A", "end": "B"})

	contents, err := s.handleReadGraph(context.Background(), mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{URI: graphURI},
	})
	require.NoError(t, err)
	require.Len(t, contents, 1)
	content, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, "application/json", content.MIMEType)

	var view struct {
		Nodes []map[string]any `json:"nodes"`
		Edges []map[string]any `json:"edges"`
	}
	require.NoError(t, json.Unmarshal([]byte(content.Text), &view))
	assert.Len(t, view.Nodes, 2)
	require.Len(t, view.Edges, 1)
	assert.Equal(t, "A", view.Edges[0]["fromNodeName"])

	contents, err = s.handleReadResults(context.Background(), mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{URI: resultsURI},
	})
	require.NoError(t, err)
	content = contents[0].(mcp.TextResourceContents)
	var results []map[string]any
	require.NoError(t, json.Unmarshal([]byte(content.Text), &results))
	require.Len(t, results, 1)
	assert.Equal(t, 2.5, results[0]["totalWeight"])
}

func TestMCPServer_ClearGraph(t *testing.T) {
	s := newTestServer(t)
	callTool(t, s.handleAddNode, "add_node", map[string]any{"name": "A"})

	result, text := callTool(t, s.handleClearGraph, "clear_graph", nil)
	require.False(t, result.IsError, text)

	nodes, err := s.apiClient.ListNodes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestMCPServer_Prompt(t *testing.T) {
	s := newTestServer(t)

	res, err := s.handleGetPrompt(context.Background(), mcp.GetPromptRequest{
		Params: mcp.GetPromptParams{Name: promptName},
	})
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)

	_, err = s.handleGetPrompt(context.Background(), mcp.GetPromptRequest{
		Params: mcp.GetPromptParams{Name: "other"},
	})
	assert.Error(t, err)
}
