package simulation

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmax-ai/pathlord/pkg/api"
	"github.com/rmax-ai/pathlord/pkg/engine"
	"github.com/rmax-ai/pathlord/pkg/graph"
	"github.com/rmax-ai/pathlord/pkg/store/memory"
)

func newDaemon(t *testing.T) (string, *engine.Service) {
	t.Helper()
	svc := engine.NewService(memory.NewStore())
	ts := httptest.NewServer(api.NewServer(svc, api.Config{}).Handler())
	t.Cleanup(ts.Close)
	return ts.URL, svc
}

func TestRunScenario(t *testing.T) {
	url, svc := newDaemon(t)

	s := Scenario{
		Name:     "smoke",
		Duration: 300 * time.Millisecond,
		Seed:     42,
		Topology: Topology{Nodes: 6, EdgesPerNode: 2, MaxWeight: 5},
		Agents: []AgentConfig{
			{Name: "steady", Count: 2, Behavior: BehaviorPeriodic, Rate: 50},
			{Name: "greedy", Count: 1, Behavior: BehaviorGreedy},
		},
		Mutator: &MutatorConfig{Enabled: true, Interval: 20 * time.Millisecond},
		Invariants: []Invariant{
			{Metric: "error_rate", Condition: "==", Value: 0},
			{Metric: "inconsistent_rate", Condition: "==", Value: 0, Scope: "greedy"},
			{Metric: "found_rate", Condition: ">", Value: 0},
		},
	}

	res, err := RunScenario(context.Background(), s, url, nil)
	require.NoError(t, err)
	assert.True(t, res.Success, "invariants: %+v", res.Invariants)
	assert.Equal(t, 6, res.Nodes)
	assert.Equal(t, 12, res.Edges)
	assert.Positive(t, res.TotalRequests)
	assert.Equal(t, res.TotalRequests, res.TotalFound+res.TotalNoPath+res.TotalErrors+res.TotalInconsistent)
	assert.Len(t, res.Invariants, 3)

	nodes, err := svc.ListNodes(context.Background())
	require.NoError(t, err)
	assert.Len(t, nodes, 6)

	recorded, err := svc.ListResults(context.Background(), 0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(recorded), int(res.TotalFound))
}

func TestRunScenario_ReusesExistingNodes(t *testing.T) {
	url, _ := newDaemon(t)
	s := Scenario{Name: "twice", Duration: 50 * time.Millisecond, Seed: 1, Topology: Topology{Nodes: 3, Prefix: "x-"}}

	_, err := RunScenario(context.Background(), s, url, nil)
	require.NoError(t, err)
	res, err := RunScenario(context.Background(), s, url, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestRunScenario_UnreachableDaemon(t *testing.T) {
	ts := httptest.NewServer(nil)
	url := ts.URL
	ts.Close()

	_, err := RunScenario(context.Background(), Scenario{Duration: time.Millisecond, Topology: Topology{Nodes: 1}}, url, nil)
	assert.Error(t, err)
}

func TestEvaluateInvariants(t *testing.T) {
	res := &SimulationResult{
		TotalRequests: 10,
		TotalFound:    8,
		TotalNoPath:   2,
		AgentStats:    map[string]*AgentStats{"a": {Requests: 4, Errors: 1, Found: 3}},
	}
	evaluateInvariants(res, []Invariant{
		{Metric: "found_rate", Condition: ">=", Value: 0.8},
		{Metric: "no_path_rate", Condition: "<", Value: 0.1},
		{Metric: "error_rate", Condition: "<=", Value: 0.25, Scope: "a"},
		{Metric: "error_rate", Condition: "<=", Value: 0.25, Scope: "missing"},
	})
	require.Len(t, res.Invariants, 4)
	assert.True(t, res.Invariants[0].Passed)
	assert.False(t, res.Invariants[1].Passed)
	assert.Equal(t, "0.2000", res.Invariants[1].Actual)
	assert.True(t, res.Invariants[2].Passed)
	assert.False(t, res.Invariants[3].Passed)
	assert.Equal(t, "N/A", res.Invariants[3].Actual)
}

func TestConsistent(t *testing.T) {
	assert.True(t, consistent(graph.PathResult{Path: []string{"A"}, TotalWeight: 0}, "A", "A"))
	assert.True(t, consistent(graph.PathResult{Path: []string{"A", "B"}, TotalWeight: 2}, "A", "B"))
	assert.False(t, consistent(graph.PathResult{Path: []string{"A", "B"}, TotalWeight: 2}, "A", "C"))
	assert.False(t, consistent(graph.PathResult{}, "A", "B"))
}
