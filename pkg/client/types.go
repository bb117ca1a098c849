package client

// Status represents the health check response.
type Status struct {
	// Status is "ok" or "degraded".
	Status string `json:"status"`
	// Error describes why the daemon is degraded.
	Error string `json:"error,omitempty"`
}

type createNodeRequest struct {
	Name string `json:"name"`
}

type createEdgeRequest struct {
	FromNode string  `json:"fromNode"`
	ToNode   string  `json:"toNode"`
	Weight   float64 `json:"weight"`
}

type shortestPathRequest struct {
	StartNode string `json:"startNode"`
	EndNode   string `json:"endNode"`
}

// errorBody is the daemon's error envelope.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
