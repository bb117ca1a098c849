package engine

import (
	"container/heap"
	"math"

	"github.com/rmax-ai/pathlord/pkg/graph"
)

// ShortestPath runs Dijkstra's algorithm from start to end over adj.
//
// Weights are assumed strictly positive and finite. Routes whose total
// overflows float64 are treated as unreachable. Among nodes with equal tentative
// distance the one with the lexicographically smaller name is settled first,
// so results are deterministic for a given graph. Parallel edges are relaxed
// independently.
func ShortestPath(adj *graph.Adjacency, start, end string) (graph.Path, error) {
	if start == "" || end == "" {
		return graph.Path{}, graph.NewValidationError("start and end nodes are required")
	}
	if !adj.Has(start) {
		return graph.Path{}, graph.NewNotFoundError(start)
	}
	if !adj.Has(end) {
		return graph.Path{}, graph.NewNotFoundError(end)
	}
	if start == end {
		return graph.Path{Nodes: []string{start}, TotalWeight: 0}, nil
	}

	dist := map[string]float64{start: 0}
	prev := make(map[string]string, adj.Len())
	settled := make(map[string]bool, adj.Len())

	pq := &nodeHeap{{name: start, dist: 0}}
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(nodeItem)
		if settled[cur.name] {
			continue
		}
		settled[cur.name] = true

		if cur.name == end {
			return graph.Path{Nodes: walkBack(prev, start, end), TotalWeight: cur.dist}, nil
		}

		for _, arc := range adj.Arcs(cur.name) {
			if settled[arc.To] {
				continue
			}
			cand := cur.dist + arc.Weight
			// A sum that overflows float64 is not a reachable distance.
			if math.IsInf(cand, 1) {
				continue
			}
			if d, ok := dist[arc.To]; !ok || cand < d {
				dist[arc.To] = cand
				prev[arc.To] = cur.name
				heap.Push(pq, nodeItem{name: arc.To, dist: cand})
			}
		}
	}

	return graph.Path{TotalWeight: math.Inf(1)}, graph.NewNoPathError(start, end)
}

func walkBack(prev map[string]string, start, end string) []string {
	var rev []string
	for at := end; ; at = prev[at] {
		rev = append(rev, at)
		if at == start {
			break
		}
	}
	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return rev
}

type nodeItem struct {
	name string
	dist float64
}

// nodeHeap is a min-heap on (dist, name).
type nodeHeap []nodeItem

func (h nodeHeap) Len() int { return len(h) }
func (h nodeHeap) Less(i, j int) bool {
	if h[i].dist != h[j].dist {
		return h[i].dist < h[j].dist
	}
	return h[i].name < h[j].name
}
func (h nodeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x any)   { *h = append(*h, x.(nodeItem)) }
func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}
