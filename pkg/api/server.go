package api

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rmax-ai/pathlord/pkg/graph"
)

// GraphService is the core the handlers drive. *engine.Service implements it.
type GraphService interface {
	AddNode(ctx context.Context, name string) (graph.Node, error)
	AddEdge(ctx context.Context, fromName, toName string, weight float64) (graph.EdgeView, error)
	ListNodes(ctx context.Context) ([]graph.Node, error)
	ListEdges(ctx context.Context) ([]graph.EdgeView, error)
	ComputeShortestPath(ctx context.Context, start, end string) (graph.PathResult, error)
	ListResults(ctx context.Context, limit int) ([]graph.PathResult, error)
	ClearGraph(ctx context.Context) error
	Ping(ctx context.Context) error
}

// Config holds the transport settings.
type Config struct {
	Addr           string
	AllowedOrigins []string
	Logger         *zap.Logger
}

// Server encapsulates the HTTP API server
type Server struct {
	svc      GraphService
	logger   *zap.Logger
	server   *http.Server
	staticFS fs.FS

	// TLS Config
	tlsCertFile string
	tlsKeyFile  string
}

// NewServer creates a new API server instance
func NewServer(svc GraphService, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{svc: svc, logger: logger}

	// Use default port if addr is empty
	addr := cfg.Addr
	if addr == "" {
		addr = ":8090"
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.routes(cfg.AllowedOrigins),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) routes(allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()

	// Middleware: Request ID, Logging, Panic Recovery, Security Headers, CORS
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(withLogging(s.logger))
	r.Use(withRecovery(s.logger))
	r.Use(withSecureHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/nodes", s.handleCreateNode)
		r.Get("/nodes", s.handleListNodes)
		r.Post("/edges", s.handleCreateEdge)
		r.Get("/edges", s.handleListEdges)
		r.Post("/dijkstra", s.handleShortestPath)
		r.Get("/results", s.handleListResults)
		r.Delete("/graph", s.handleClearGraph)

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, s.logger, http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "no such endpoint"})
		})
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, s.logger, http.StatusMethodNotAllowed, ErrorResponse{Error: "method_not_allowed", Message: r.Method + " not allowed"})
	})

	// Static file handler (catch-all for SPA)
	r.NotFound(s.handleStatic().ServeHTTP)

	return r
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// SetStaticFS sets the filesystem for serving static web assets
func (s *Server) SetStaticFS(fsys fs.FS) {
	s.staticFS = fsys
}

// SetTLS configures the server to use TLS
func (s *Server) SetTLS(certFile, keyFile string) {
	s.tlsCertFile = certFile
	s.tlsKeyFile = keyFile
}

// Start runs the HTTP server (blocking)
func (s *Server) Start() error {
	var err error
	if s.tlsCertFile != "" && s.tlsKeyFile != "" {
		s.logger.Info("server_starting_tls", zap.String("addr", s.server.Addr))
		err = s.server.ListenAndServeTLS(s.tlsCertFile, s.tlsKeyFile)
	} else {
		s.logger.Info("server_starting", zap.String("addr", s.server.Addr))
		err = s.server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("server_stopping")
	return s.server.Shutdown(ctx)
}
