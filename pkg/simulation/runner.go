package simulation

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rmax-ai/pathlord/pkg/client"
	"github.com/rmax-ai/pathlord/pkg/graph"
)

const (
	defaultNodes     = 20
	defaultMaxWeight = 10
)

// RunScenario builds the scenario topology on the daemon at apiURL, runs the
// agents for s.Duration and evaluates the invariants.
func RunScenario(ctx context.Context, s Scenario, apiURL string, logger *zap.Logger) (SimulationResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if s.Seed == 0 {
		s.Seed = time.Now().UnixNano()
	}
	logger.Info("scenario_started", zap.String("name", s.Name), zap.Int64("seed", s.Seed))

	// Every failure counts exactly once.
	api := client.NewClient(apiURL).WithRetry(1, client.DefaultBackoff())

	res := SimulationResult{
		ScenarioName: s.Name,
		Duration:     s.Duration,
		AgentStats:   make(map[string]*AgentStats),
	}

	rng := rand.New(rand.NewSource(s.Seed))
	names, edges, err := buildTopology(ctx, api, s.Topology, rng)
	if err != nil {
		return res, err
	}
	res.Nodes, res.Edges = len(names), edges
	logger.Info("topology_built", zap.Int("nodes", len(names)), zap.Int("edges", edges))

	runCtx, cancel := context.WithTimeout(ctx, s.Duration)
	defer cancel()

	var wg sync.WaitGroup

	if s.Mutator != nil && s.Mutator.Enabled && s.Mutator.Interval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mutate(runCtx, api, s.Mutator.Interval, names, maxWeight(s.Topology), rand.New(rand.NewSource(s.Seed+9999)), &res, logger)
		}()
	}

	for agentIdx, agentCfg := range s.Agents {
		stats := &AgentStats{}
		res.AgentStats[agentCfg.Name] = stats // Group stats by Agent Config Name
		for i := 0; i < agentCfg.Count; i++ {
			wg.Add(1)
			agentSeed := s.Seed + int64(agentIdx*1000) + int64(i)

			go func(cfg AgentConfig, seed int64, st *AgentStats) {
				defer wg.Done()
				runAgent(runCtx, api, cfg, names, seed, &res, st)
			}(agentCfg, agentSeed, stats)
		}
	}

	wg.Wait()

	evaluateInvariants(&res, s.Invariants)

	res.Success = true
	for _, inv := range res.Invariants {
		if !inv.Passed {
			res.Success = false
			break
		}
	}
	logger.Info("scenario_finished",
		zap.String("name", s.Name),
		zap.Uint64("requests", res.TotalRequests),
		zap.Bool("success", res.Success),
	)
	return res, nil
}

func maxWeight(t Topology) float64 {
	if t.MaxWeight > 0 {
		return t.MaxWeight
	}
	return defaultMaxWeight
}

// buildTopology creates the nodes, tolerating names left over from earlier
// runs, and t.EdgesPerNode random out-edges per node.
func buildTopology(ctx context.Context, api *client.Client, t Topology, rng *rand.Rand) ([]string, int, error) {
	n := t.Nodes
	if n <= 0 {
		n = defaultNodes
	}
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("%sn%03d", t.Prefix, i)
		if _, err := api.AddNode(ctx, names[i]); err != nil && !graph.IsConflict(err) {
			return nil, 0, fmt.Errorf("failed to create node %s: %w", names[i], err)
		}
	}

	edges := 0
	for _, from := range names {
		for k := 0; k < t.EdgesPerNode; k++ {
			to := names[rng.Intn(n)]
			if _, err := api.AddEdge(ctx, from, to, randomWeight(rng, maxWeight(t))); err != nil {
				return nil, 0, fmt.Errorf("failed to create edge %s -> %s: %w", from, to, err)
			}
			edges++
		}
	}
	return names, edges, nil
}

func randomWeight(rng *rand.Rand, max float64) float64 {
	return 1 + math.Floor(rng.Float64()*max*100)/100
}

func mutate(ctx context.Context, api *client.Client, interval time.Duration, names []string, max float64, rng *rand.Rand, res *SimulationResult, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			from, to := names[rng.Intn(len(names))], names[rng.Intn(len(names))]
			if _, err := api.AddEdge(ctx, from, to, randomWeight(rng, max)); err != nil {
				if ctx.Err() == nil {
					logger.Warn("mutation_failed", zap.Error(err))
				}
				continue
			}
			atomic.AddUint64(&res.TotalMutations, 1)
		}
	}
}

func runAgent(ctx context.Context, api *client.Client, cfg AgentConfig, names []string, seed int64, global *SimulationResult, stats *AgentStats) {
	rng := rand.New(rand.NewSource(seed))

	track := func(counter func(*SimulationResult) *uint64, local *uint64) {
		atomic.AddUint64(&global.TotalRequests, 1)
		atomic.AddUint64(&stats.Requests, 1)
		atomic.AddUint64(counter(global), 1)
		atomic.AddUint64(local, 1)
	}

	action := func() {
		start, end := names[rng.Intn(len(names))], names[rng.Intn(len(names))]
		res, err := api.ShortestPath(ctx, start, end)
		if ctx.Err() != nil {
			// The run ended mid-request.
			return
		}
		switch {
		case err == nil && consistent(res, start, end):
			track(func(r *SimulationResult) *uint64 { return &r.TotalFound }, &stats.Found)
		case err == nil:
			track(func(r *SimulationResult) *uint64 { return &r.TotalInconsistent }, &stats.Inconsistent)
		case graph.IsNoPath(err):
			track(func(r *SimulationResult) *uint64 { return &r.TotalNoPath }, &stats.NoPath)
		default:
			track(func(r *SimulationResult) *uint64 { return &r.TotalErrors }, &stats.Errors)
		}
	}

	switch cfg.Behavior {
	case BehaviorGreedy:
		for {
			select {
			case <-ctx.Done():
				return
			default:
				action()
			}
		}
	case BehaviorPoisson:
		lambda := float64(cfg.Rate)
		if lambda <= 0 {
			lambda = 1
		}
		for {
			interval := -math.Log(1-rng.Float64()) / lambda
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(interval * float64(time.Second))):
				action()
			}
		}
	case BehaviorBursty:
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for k := 0; k < cfg.Burst && ctx.Err() == nil; k++ {
					action()
				}
			}
		}
	case BehaviorPeriodic:
		fallthrough
	default:
		interval := 10 * time.Millisecond
		if cfg.Rate > 0 {
			interval = time.Second / time.Duration(cfg.Rate)
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if cfg.Jitter > 0 {
					time.Sleep(time.Duration(rng.Int63n(int64(cfg.Jitter))))
				}
				action()
			}
		}
	}
}

// consistent checks the shape of a returned path: it runs from start to end
// and a non-trivial path has positive weight.
func consistent(res graph.PathResult, start, end string) bool {
	if len(res.Path) == 0 || res.Path[0] != start || res.Path[len(res.Path)-1] != end {
		return false
	}
	if len(res.Path) == 1 {
		return res.TotalWeight == 0
	}
	return res.TotalWeight > 0
}

func evaluateInvariants(res *SimulationResult, invariants []Invariant) {
	for _, inv := range invariants {
		var actual float64
		var passed bool

		var stats *AgentStats
		if inv.Scope == "global" || inv.Scope == "" {
			stats = &AgentStats{
				Requests:     atomic.LoadUint64(&res.TotalRequests),
				Found:        atomic.LoadUint64(&res.TotalFound),
				NoPath:       atomic.LoadUint64(&res.TotalNoPath),
				Errors:       atomic.LoadUint64(&res.TotalErrors),
				Inconsistent: atomic.LoadUint64(&res.TotalInconsistent),
			}
		} else {
			s, ok := res.AgentStats[inv.Scope]
			if !ok {
				res.Invariants = append(res.Invariants, InvariantResult{
					Metric: inv.Metric, Scope: inv.Scope, Expected: fmt.Sprintf("%s %.2f", inv.Condition, inv.Value), Actual: "N/A", Passed: false,
				})
				continue
			}
			stats = &AgentStats{
				Requests:     atomic.LoadUint64(&s.Requests),
				Found:        atomic.LoadUint64(&s.Found),
				NoPath:       atomic.LoadUint64(&s.NoPath),
				Errors:       atomic.LoadUint64(&s.Errors),
				Inconsistent: atomic.LoadUint64(&s.Inconsistent),
			}
		}

		if stats.Requests > 0 {
			switch inv.Metric {
			case "found_rate":
				actual = float64(stats.Found) / float64(stats.Requests)
			case "no_path_rate":
				actual = float64(stats.NoPath) / float64(stats.Requests)
			case "error_rate":
				actual = float64(stats.Errors) / float64(stats.Requests)
			case "inconsistent_rate":
				actual = float64(stats.Inconsistent) / float64(stats.Requests)
			}
		}

		switch inv.Condition {
		case ">":
			passed = actual > inv.Value
		case ">=":
			passed = actual >= inv.Value
		case "<":
			passed = actual < inv.Value
		case "<=":
			passed = actual <= inv.Value
		case "==":
			passed = math.Abs(actual-inv.Value) < 0.0001
		}

		res.Invariants = append(res.Invariants, InvariantResult{
			Metric:   inv.Metric,
			Scope:    inv.Scope,
			Expected: fmt.Sprintf("%s %.2f", inv.Condition, inv.Value),
			Actual:   fmt.Sprintf("%.4f", actual),
			Passed:   passed,
		})
	}
}
