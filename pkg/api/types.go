package api

import (
	"io/fs"
	"mime"
	"path"
)

// CreateNodeRequest matches the POST /api/nodes body schema
type CreateNodeRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// CreateEdgeRequest matches the POST /api/edges body schema. Weight is a
// pointer so a missing field is distinguishable from zero.
type CreateEdgeRequest struct {
	FromNode string   `json:"fromNode" validate:"required,max=255"`
	ToNode   string   `json:"toNode" validate:"required,max=255"`
	Weight   *float64 `json:"weight" validate:"required"`
}

// ShortestPathRequest matches the POST /api/dijkstra body schema
type ShortestPathRequest struct {
	StartNode string `json:"startNode" validate:"required,max=255"`
	EndNode   string `json:"endNode" validate:"required,max=255"`
}

// ErrorResponse is the body of every non-2xx API response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// StatusResponse is returned by /health and DELETE /api/graph
type StatusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func readFile(fsys fs.FS, name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, fs.ErrInvalid
	}
	return fs.ReadFile(fsys, name)
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
