package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rmax-ai/pathlord/pkg/graph"
)

const tracerName = "github.com/rmax-ai/pathlord/pkg/engine"

// Service is the façade transports talk to. Mutations take the write lock;
// a path computation holds the read lock from snapshot through ledger write,
// so a clear can never land between computing a path and recording it.
type Service struct {
	repo   Repository
	cache  PathCache
	logger *zap.Logger
	tracer trace.Tracer
	now    func() time.Time
	newID  func() string

	mu       sync.RWMutex
	epoch    string
	revision uint64
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCache enables the path cache.
func WithCache(c PathCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// NewService creates a Service over repo.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		logger: zap.NewNop(),
		tracer: otel.Tracer(tracerName),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
		epoch:  uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddNode creates a node with a unique name.
func (s *Service) AddNode(ctx context.Context, name string) (graph.Node, error) {
	ctx, span := s.tracer.Start(ctx, "Service.AddNode")
	defer span.End()

	node, err := graph.NewNode(s.newID(), name, s.now())
	if err != nil {
		return graph.Node{}, s.mutationFailed(span, "add_node", err)
	}
	span.SetAttributes(attribute.String("node.name", node.Name))

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.InsertNode(ctx, node); err != nil {
		return graph.Node{}, s.mutationFailed(span, "add_node", err)
	}
	s.revision++
	GraphMutationsTotal.WithLabelValues("add_node", "ok").Inc()
	s.logger.Debug("node_added", zap.String("id", node.ID), zap.String("name", node.Name))
	return node, nil
}

// AddEdge creates a directed edge between two existing nodes.
func (s *Service) AddEdge(ctx context.Context, fromName, toName string, weight float64) (graph.EdgeView, error) {
	ctx, span := s.tracer.Start(ctx, "Service.AddEdge")
	defer span.End()

	from, err := graph.NormalizeName(fromName)
	if err != nil {
		return graph.EdgeView{}, s.mutationFailed(span, "add_edge", err)
	}
	to, err := graph.NormalizeName(toName)
	if err != nil {
		return graph.EdgeView{}, s.mutationFailed(span, "add_edge", err)
	}
	if err := graph.ValidateWeight(weight); err != nil {
		return graph.EdgeView{}, s.mutationFailed(span, "add_edge", err)
	}
	span.SetAttributes(
		attribute.String("edge.from", from),
		attribute.String("edge.to", to),
		attribute.Float64("edge.weight", weight),
	)

	s.mu.Lock()
	defer s.mu.Unlock()

	view, err := s.repo.InsertEdge(ctx, EdgeInsert{
		ID:        s.newID(),
		FromName:  from,
		ToName:    to,
		Weight:    weight,
		CreatedAt: s.now(),
	})
	if err != nil {
		return graph.EdgeView{}, s.mutationFailed(span, "add_edge", err)
	}
	s.revision++
	GraphMutationsTotal.WithLabelValues("add_edge", "ok").Inc()
	s.logger.Debug("edge_added",
		zap.String("id", view.ID),
		zap.String("from", from),
		zap.String("to", to),
		zap.Float64("weight", weight),
	)
	return view, nil
}

// ListNodes returns every node in creation order.
func (s *Service) ListNodes(ctx context.Context) ([]graph.Node, error) {
	ctx, span := s.tracer.Start(ctx, "Service.ListNodes")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes, err := s.repo.ListNodes(ctx)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return nodes, nil
}

// ListEdges returns every edge in creation order with endpoint names.
func (s *Service) ListEdges(ctx context.Context) ([]graph.EdgeView, error) {
	ctx, span := s.tracer.Start(ctx, "Service.ListEdges")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	edges, err := s.repo.ListEdges(ctx)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return edges, nil
}

// ComputeShortestPath finds the minimum-weight path from start to end and
// records it in the ledger. Unreachable targets return a no-path error and
// are not recorded.
func (s *Service) ComputeShortestPath(ctx context.Context, startName, endName string) (graph.PathResult, error) {
	ctx, span := s.tracer.Start(ctx, "Service.ComputeShortestPath")
	defer span.End()

	start, err := graph.NormalizeName(startName)
	if err != nil {
		return graph.PathResult{}, s.pathFailed(span, err)
	}
	end, err := graph.NormalizeName(endName)
	if err != nil {
		return graph.PathResult{}, s.pathFailed(span, err)
	}
	span.SetAttributes(attribute.String("path.start", start), attribute.String("path.end", end))

	s.mu.RLock()
	defer s.mu.RUnlock()

	key := CacheKey{Epoch: s.epoch, Revision: s.revision, Start: start, End: end}
	path, hit := s.cachedPath(ctx, key)
	span.SetAttributes(attribute.Bool("path.cache_hit", hit))

	if !hit {
		snap, err := s.repo.Snapshot(ctx)
		if err != nil {
			return graph.PathResult{}, s.pathFailed(span, err)
		}
		GraphSize.WithLabelValues("nodes").Set(float64(len(snap.Nodes)))
		GraphSize.WithLabelValues("edges").Set(float64(len(snap.Edges)))

		adj, err := snap.Adjacency()
		if err != nil {
			return graph.PathResult{}, s.pathFailed(span, err)
		}

		timer := time.Now()
		path, err = ShortestPath(adj, start, end)
		PathComputeSeconds.Observe(time.Since(timer).Seconds())
		if err != nil {
			return graph.PathResult{}, s.pathFailed(span, err)
		}
		s.storePath(ctx, key, path)
	}

	result, err := graph.NewPathResult(s.newID(), start, end, path, s.now())
	if err != nil {
		return graph.PathResult{}, s.pathFailed(span, err)
	}
	if err := s.repo.Record(ctx, result); err != nil {
		return graph.PathResult{}, s.pathFailed(span, err)
	}

	PathRequestsTotal.WithLabelValues("ok").Inc()
	span.SetAttributes(attribute.Float64("path.total_weight", result.TotalWeight))
	s.logger.Debug("path_computed",
		zap.String("start", start),
		zap.String("end", end),
		zap.Strings("path", result.Path),
		zap.Float64("total_weight", result.TotalWeight),
		zap.Bool("cache_hit", hit),
	)
	return result, nil
}

// ListResults returns recorded results most recent first. limit <= 0 returns all.
func (s *Service) ListResults(ctx context.Context, limit int) ([]graph.PathResult, error) {
	ctx, span := s.tracer.Start(ctx, "Service.ListResults")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	results, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return results, nil
}

// ClearGraph removes every node, edge and result.
func (s *Service) ClearGraph(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "Service.ClearGraph")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.ClearAll(ctx); err != nil {
		return s.mutationFailed(span, "clear", err)
	}
	s.revision++
	if s.cache != nil {
		if err := s.cache.Purge(ctx); err != nil {
			s.logger.Warn("path_cache_purge_failed", zap.Error(err))
		}
	}
	GraphMutationsTotal.WithLabelValues("clear", "ok").Inc()
	s.logger.Info("graph_cleared")
	return nil
}

// Ping checks the backing store.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Service) cachedPath(ctx context.Context, key CacheKey) (graph.Path, bool) {
	if s.cache == nil {
		return graph.Path{}, false
	}
	path, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		PathCacheTotal.WithLabelValues("error").Inc()
		s.logger.Warn("path_cache_get_failed", zap.String("key", key.String()), zap.Error(err))
		return graph.Path{}, false
	case !ok:
		PathCacheTotal.WithLabelValues("miss").Inc()
		return graph.Path{}, false
	}
	PathCacheTotal.WithLabelValues("hit").Inc()
	return path, true
}

func (s *Service) storePath(ctx context.Context, key CacheKey, path graph.Path) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Put(ctx, key, path); err != nil {
		s.logger.Warn("path_cache_put_failed", zap.String("key", key.String()), zap.Error(err))
	}
}

func (s *Service) mutationFailed(span trace.Span, op string, err error) error {
	GraphMutationsTotal.WithLabelValues(op, outcome(err)).Inc()
	recordSpanError(span, err)
	if graph.IsStorage(err) {
		s.logger.Error("graph_mutation_failed", zap.String("op", op), zap.Error(err))
	}
	return err
}

func (s *Service) pathFailed(span trace.Span, err error) error {
	PathRequestsTotal.WithLabelValues(outcome(err)).Inc()
	recordSpanError(span, err)
	if graph.IsStorage(err) {
		s.logger.Error("path_request_failed", zap.Error(err))
	}
	return err
}

func outcome(err error) string {
	gErr, ok := graph.AsError(err)
	if !ok {
		return "error"
	}
	switch gErr.Kind {
	case graph.KindValidation:
		return "validation"
	case graph.KindNotFound:
		return "not_found"
	case graph.KindNoPath:
		return "no_path"
	case graph.KindConflict:
		return "conflict"
	default:
		return "error"
	}
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
