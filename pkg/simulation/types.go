package simulation

import (
	"time"
)

// SimulationResult captures the final state of the simulation for reporting
type SimulationResult struct {
	ScenarioName      string                 `json:"scenario_name"`
	Duration          time.Duration          `json:"duration"`
	Nodes             int                    `json:"nodes"`
	Edges             int                    `json:"edges"`
	TotalRequests     uint64                 `json:"total_requests"`
	TotalFound        uint64                 `json:"total_found"`
	TotalNoPath       uint64                 `json:"total_no_path"`
	TotalErrors       uint64                 `json:"total_errors"`
	TotalInconsistent uint64                 `json:"total_inconsistent"`
	TotalMutations    uint64                 `json:"total_mutations"`
	AgentStats        map[string]*AgentStats `json:"agent_stats"`
	Invariants        []InvariantResult      `json:"invariants"`
	Success           bool                   `json:"success"`
}

type AgentStats struct {
	Requests     uint64 `json:"requests"`
	Found        uint64 `json:"found"`
	NoPath       uint64 `json:"no_path"`
	Errors       uint64 `json:"errors"`
	Inconsistent uint64 `json:"inconsistent"`
}

type InvariantResult struct {
	Metric   string `json:"metric"`
	Scope    string `json:"scope"`
	Expected string `json:"expected"` // e.g. "> 0.95"
	Actual   string `json:"actual"`   // e.g. "0.98"
	Passed   bool   `json:"passed"`
}

type Scenario struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	Duration    time.Duration  `json:"duration" yaml:"duration"`
	Seed        int64          `json:"seed" yaml:"seed"` // Deterministic seed
	Topology    Topology       `json:"topology" yaml:"topology"`
	Agents      []AgentConfig  `json:"agents" yaml:"agents"`
	Mutator     *MutatorConfig `json:"mutator,omitempty" yaml:"mutator,omitempty"`
	Invariants  []Invariant    `json:"invariants,omitempty" yaml:"invariants,omitempty"`
}

type Invariant struct {
	Metric    string  `json:"metric" yaml:"metric"`       // found_rate, no_path_rate, error_rate, inconsistent_rate
	Condition string  `json:"condition" yaml:"condition"` // e.g., ">", "<", ">=", "<="
	Value     float64 `json:"value" yaml:"value"`
	Scope     string  `json:"scope" yaml:"scope"` // "global" or specific agent name
}

// Topology describes the random graph built before agents start.
type Topology struct {
	Nodes        int     `json:"nodes" yaml:"nodes"`
	EdgesPerNode int     `json:"edges_per_node" yaml:"edges_per_node"`
	MaxWeight    float64 `json:"max_weight" yaml:"max_weight"`
	// Prefix namespaces node names so scenarios can share a daemon.
	Prefix string `json:"prefix" yaml:"prefix"`
}

type AgentConfig struct {
	Name     string        `json:"name" yaml:"name"`
	Count    int           `json:"count" yaml:"count"`
	Behavior BehaviorType  `json:"behavior" yaml:"behavior"`
	Rate     int           `json:"rate" yaml:"rate"` // Requests per second
	Burst    int           `json:"burst" yaml:"burst"`
	Jitter   time.Duration `json:"jitter" yaml:"jitter"`
}

type BehaviorType string

const (
	BehaviorPeriodic BehaviorType = "periodic"
	BehaviorGreedy   BehaviorType = "greedy"
	BehaviorPoisson  BehaviorType = "poisson"
	BehaviorBursty   BehaviorType = "bursty"
)

// MutatorConfig adds random edges while agents query, so reads race with
// writes and cached paths get invalidated.
type MutatorConfig struct {
	Enabled  bool          `json:"enabled" yaml:"enabled"`
	Interval time.Duration `json:"interval" yaml:"interval"`
}
