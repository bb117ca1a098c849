package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/rmax-ai/pathlord/pkg/graph"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleCreateNode(w http.ResponseWriter, r *http.Request) {
	var req CreateNodeRequest
	if !s.decode(w, r, &req) {
		return
	}

	node, err := s.svc.AddNode(r.Context(), req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusCreated, node)
}

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.svc.ListNodes(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, nodes)
}

func (s *Server) handleCreateEdge(w http.ResponseWriter, r *http.Request) {
	var req CreateEdgeRequest
	if !s.decode(w, r, &req) {
		return
	}

	edge, err := s.svc.AddEdge(r.Context(), req.FromNode, req.ToNode, *req.Weight)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusCreated, edge)
}

func (s *Server) handleListEdges(w http.ResponseWriter, r *http.Request) {
	edges, err := s.svc.ListEdges(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, edges)
}

func (s *Server) handleShortestPath(w http.ResponseWriter, r *http.Request) {
	var req ShortestPathRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.svc.ComputeShortestPath(r.Context(), req.StartNode, req.EndNode)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, result)
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, r, graph.NewValidationError("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	results, err := s.svc.ListResults(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, results)
}

func (s *Server) handleClearGraph(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ClearGraph(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, StatusResponse{Status: "cleared"})
}

// handleHealth reports 503 when the store is unreachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ping(r.Context()); err != nil {
		s.logger.Warn("health_check_failed", zap.Error(err))
		writeJSON(w, s.logger, http.StatusServiceUnavailable, StatusResponse{Status: "degraded", Error: err.Error()})
		return
	}
	writeJSON(w, s.logger, http.StatusOK, StatusResponse{Status: "ok"})
}

// decode reads and validates a JSON body, writing a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, r, graph.NewValidationError("invalid JSON body"))
		return false
	}
	if err := ValidateStruct(dst); err != nil {
		s.writeError(w, r, err)
		return false
	}
	return true
}

// statusFor maps an error kind to its HTTP status and wire name.
func statusFor(err error) (int, string) {
	gErr, ok := graph.AsError(err)
	if !ok {
		return http.StatusInternalServerError, "internal"
	}
	switch gErr.Kind {
	case graph.KindValidation:
		return http.StatusBadRequest, "validation"
	case graph.KindNotFound:
		return http.StatusNotFound, "not_found"
	case graph.KindNoPath:
		return http.StatusNotFound, "no_path"
	case graph.KindConflict:
		return http.StatusConflict, "conflict"
	case graph.KindStorage:
		return http.StatusInternalServerError, "storage"
	}
	return http.StatusInternalServerError, "internal"
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := statusFor(err)

	message := "internal server error"
	if gErr, ok := graph.AsError(err); ok {
		message = gErr.Message
	}

	if status >= http.StatusInternalServerError {
		// Don't expose internal error details, but log them
		s.logger.Error("request_failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, s.logger, status, ErrorResponse{Error: kind, Message: message})
}

// writeJSON encodes v before sending any header, so a value that cannot be
// encoded becomes a 500 instead of an empty success.
func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Error("response_encode_failed", zap.Int("status", status), zap.Error(err))
		status = http.StatusInternalServerError
		data, _ = json.Marshal(ErrorResponse{Error: "internal", Message: "failed to encode response"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		logger.Debug("response_write_failed", zap.Error(err))
	}
}
