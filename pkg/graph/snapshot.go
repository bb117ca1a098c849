package graph

import (
	"fmt"
	"sort"
)

// Snapshot is a consistent, point-in-time copy of all nodes and edges.
type Snapshot struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Arc is one outgoing edge in an adjacency list, keyed by node name.
type Arc struct {
	EdgeID string
	To     string
	Weight float64
}

// Adjacency is the name-keyed, read-only representation the path engine
// runs on. Parallel edges are kept as separate arcs.
type Adjacency struct {
	names []string
	out   map[string][]Arc
}

// Adjacency builds the name-keyed adjacency lists for the snapshot.
// It fails if an edge references a node id missing from the snapshot.
func (s Snapshot) Adjacency() (*Adjacency, error) {
	byID := make(map[string]string, len(s.Nodes))
	adj := &Adjacency{
		names: make([]string, 0, len(s.Nodes)),
		out:   make(map[string][]Arc, len(s.Nodes)),
	}
	for _, n := range s.Nodes {
		byID[n.ID] = n.Name
		if _, seen := adj.out[n.Name]; seen {
			return nil, NewStorageError("snapshot", fmt.Errorf("duplicate node name %q", n.Name))
		}
		adj.out[n.Name] = nil
		adj.names = append(adj.names, n.Name)
	}
	sort.Strings(adj.names)

	for _, e := range s.Edges {
		from, ok := byID[e.FromNode]
		if !ok {
			return nil, NewStorageError("snapshot", fmt.Errorf("edge %s references unknown node %s", e.ID, e.FromNode))
		}
		to, ok := byID[e.ToNode]
		if !ok {
			return nil, NewStorageError("snapshot", fmt.Errorf("edge %s references unknown node %s", e.ID, e.ToNode))
		}
		adj.out[from] = append(adj.out[from], Arc{EdgeID: e.ID, To: to, Weight: e.Weight})
	}
	return adj, nil
}

// NewAdjacency builds an adjacency directly from names and arcs, without a
// stored Snapshot. It is the entry point for running engine.ShortestPath on
// graphs that are not held by a Repository. Nodes referenced only by arcs are
// added implicitly; names are kept in sorted order.
func NewAdjacency(names []string, arcs map[string][]Arc) *Adjacency {
	adj := &Adjacency{
		names: make([]string, 0, len(names)),
		out:   make(map[string][]Arc, len(names)),
	}
	for _, n := range names {
		if _, seen := adj.out[n]; seen {
			continue
		}
		adj.out[n] = nil
		adj.names = append(adj.names, n)
	}
	for from, list := range arcs {
		if _, ok := adj.out[from]; !ok {
			adj.out[from] = nil
			adj.names = append(adj.names, from)
		}
		for _, a := range list {
			if _, ok := adj.out[a.To]; !ok {
				adj.out[a.To] = nil
				adj.names = append(adj.names, a.To)
			}
		}
		adj.out[from] = append(adj.out[from], list...)
	}
	sort.Strings(adj.names)
	return adj
}

// Has reports whether name is a known node.
func (a *Adjacency) Has(name string) bool {
	_, ok := a.out[name]
	return ok
}

// Names returns all node names in ascending order.
func (a *Adjacency) Names() []string {
	return append([]string(nil), a.names...)
}

// Arcs returns the outgoing arcs of name in insertion order.
func (a *Adjacency) Arcs(name string) []Arc {
	return a.out[name]
}

// Len returns the number of nodes.
func (a *Adjacency) Len() int {
	return len(a.names)
}
