package reports

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rmax-ai/pathlord/pkg/graph"
)

// EdgesReport exports the edge list in creation order.
type EdgesReport struct {
	store ReportStore
}

// NewEdgesReport creates a new EdgesReport generator.
func NewEdgesReport(s ReportStore) *EdgesReport {
	return &EdgesReport{store: s}
}

// Generate renders every edge created inside the time window.
func (r *EdgesReport) Generate(ctx context.Context, params ReportParams) (io.Reader, error) {
	edges, err := r.store.ListEdges(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}

	selected := make([]graph.EdgeView, 0, len(edges))
	for _, e := range edges {
		if !params.inWindow(e.CreatedAt) ||
			!params.matches("from_node", e.FromName) ||
			!params.matches("to_node", e.ToName) {
			continue
		}
		selected = append(selected, e)
	}

	headers := []string{"created_at", "edge_id", "from_node", "to_node", "weight"}
	return render(params.Format, headers, selected, func(e graph.EdgeView) []string {
		return []string{
			e.CreatedAt.Format(time.RFC3339Nano),
			e.ID,
			e.FromName,
			e.ToName,
			strconv.FormatFloat(e.Weight, 'g', -1, 64),
		}
	})
}
