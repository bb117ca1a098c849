package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rmax-ai/pathlord/pkg/client"
	"github.com/rmax-ai/pathlord/pkg/graph"
)

const (
	graphURI   = "pathlord://graph"
	resultsURI = "pathlord://results"

	promptName = "pathlord-aware"

	// recentResults bounds the results resource.
	recentResults = 50
)

// Server adapts pathlord-d to the Model Context Protocol.
type Server struct {
	mcpServer *server.MCPServer
	apiClient *client.Client
}

// NewServer creates a new MCP server instance.
func NewServer(apiURL string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"pathlord",
			"1.0.0",
		),
		apiClient: client.NewClient(apiURL),
	}
	s.registerResources()
	s.registerTools()
	s.registerPrompts()
	return s
}

// Serve starts the MCP server on stdio.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

// --- Resources ---

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(
		graphURI,
		"Pathlord Graph",
		mcp.WithResourceDescription("All nodes and directed weighted edges currently stored"),
		mcp.WithMIMEType("application/json"),
	), s.handleReadGraph)

	s.mcpServer.AddResource(mcp.NewResource(
		resultsURI,
		"Recent Shortest Paths",
		mcp.WithResourceDescription("Recorded shortest-path results, most recent first"),
		mcp.WithMIMEType("application/json"),
	), s.handleReadResults)
}

// --- Tools ---

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"add_node",
		mcp.WithDescription("Create a node with a unique name."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Node name, unique after trimming whitespace")),
	), s.handleAddNode)

	s.mcpServer.AddTool(mcp.NewTool(
		"add_edge",
		mcp.WithDescription("Create a directed edge between two existing nodes."),
		mcp.WithString("from", mcp.Required(), mcp.Description("Source node name")),
		mcp.WithString("to", mcp.Required(), mcp.Description("Target node name")),
		mcp.WithNumber("weight", mcp.Required(), mcp.Description("Positive finite edge weight")),
	), s.handleAddEdge)

	s.mcpServer.AddTool(mcp.NewTool(
		"shortest_path",
		mcp.WithDescription("Compute the minimum-weight directed path between two nodes. Successful results are recorded."),
		mcp.WithString("start", mcp.Required(), mcp.Description("Start node name")),
		mcp.WithString("end", mcp.Required(), mcp.Description("End node name")),
	), s.handleShortestPath)

	s.mcpServer.AddTool(mcp.NewTool(
		"clear_graph",
		mcp.WithDescription("Delete every node, edge and recorded result."),
	), s.handleClearGraph)
}

// --- Prompts ---

func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(mcp.NewPrompt(
		promptName,
		mcp.WithPromptDescription("Provides context about Pathlord concepts (Nodes, Edges, Results)"),
	), s.handleGetPrompt)
}

// --- Handlers ---

func (s *Server) handleReadGraph(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	nodes, err := s.apiClient.ListNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch nodes: %w", err)
	}
	edges, err := s.apiClient.ListEdges(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch edges: %w", err)
	}

	view := struct {
		Nodes []graph.Node     `json:"nodes"`
		Edges []graph.EdgeView `json:"edges"`
	}{Nodes: nodes, Edges: edges}

	return jsonResource(request.Params.URI, view)
}

func (s *Server) handleReadResults(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	results, err := s.apiClient.ListResults(ctx, recentResults)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch results: %w", err)
	}
	return jsonResource(request.Params.URI, results)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleAddNode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := mcp.ParseString(request, "name", "")

	node, err := s.apiClient.AddNode(ctx, name)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Created node %q (id %s)", node.Name, node.ID)), nil
}

func (s *Server) handleAddEdge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from := mcp.ParseString(request, "from", "")
	to := mcp.ParseString(request, "to", "")
	weight := mcp.ParseFloat64(request, "weight", 0)

	edge, err := s.apiClient.AddEdge(ctx, from, to, weight)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Created edge %s -> %s (weight %g, id %s)", edge.FromName, edge.ToName, edge.Weight, edge.ID)), nil
}

func (s *Server) handleShortestPath(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := mcp.ParseString(request, "start", "")
	end := mcp.ParseString(request, "end", "")

	res, err := s.apiClient.ShortestPath(ctx, start, end)
	if err != nil {
		return toolError(err), nil
	}

	resultMsg := fmt.Sprintf("Path: %s\nTotal weight: %g\nResult: %s",
		strings.Join(res.Path, " -> "), res.TotalWeight, res.ID)
	return mcp.NewToolResultText(resultMsg), nil
}

func (s *Server) handleClearGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.apiClient.ClearGraph(ctx); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("Graph cleared"), nil
}

// toolError reports domain failures as tool results so the agent can react
// to them, e.g. pick another target on a no-path outcome.
func toolError(err error) *mcp.CallToolResult {
	if gErr, ok := graph.AsError(err); ok {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s", gErr.Kind, gErr.Message))
	}
	return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err))
}

func (s *Server) handleGetPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := request.Params.Name
	if name != promptName {
		return nil, fmt.Errorf("prompt not found: %s", name)
	}

	promptText := `You are interacting with Pathlord, a directed weighted graph service.

Concepts:
- Node: a uniquely named vertex (e.g., 'warehouse', 'A').
- Edge: a directed connection between two nodes with a positive weight. Several edges may join the same pair.
- Result: every successful shortest-path computation is recorded with its path and total weight.

Use 'add_node' and 'add_edge' to build the graph and 'shortest_path' to query it.
A NO_PATH error means the end node is unreachable from the start node; it is not a failure of the service.
Read 'pathlord://graph' before asking for paths between nodes you have not created yourself.
`

	return mcp.NewGetPromptResult(
		promptName,
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(promptText)),
		},
	), nil
}
