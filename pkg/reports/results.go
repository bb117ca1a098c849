package reports

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rmax-ai/pathlord/pkg/graph"
)

// ResultsReport exports the results ledger, newest first.
type ResultsReport struct {
	store ReportStore
}

// NewResultsReport creates a new ResultsReport generator.
func NewResultsReport(s ReportStore) *ResultsReport {
	return &ResultsReport{store: s}
}

// Generate renders every recorded result inside the time window.
func (r *ResultsReport) Generate(ctx context.Context, params ReportParams) (io.Reader, error) {
	results, err := r.store.ListResults(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}

	selected := make([]graph.PathResult, 0, len(results))
	for _, res := range results {
		if !params.inWindow(res.Timestamp) ||
			!params.matches("start_node", res.StartNode) ||
			!params.matches("end_node", res.EndNode) {
			continue
		}
		selected = append(selected, res)
	}

	headers := []string{"timestamp", "result_id", "start_node", "end_node", "total_weight", "hops", "path"}
	return render(params.Format, headers, selected, func(res graph.PathResult) []string {
		return []string{
			res.Timestamp.Format(time.RFC3339Nano),
			res.ID,
			res.StartNode,
			res.EndNode,
			strconv.FormatFloat(res.TotalWeight, 'g', -1, 64),
			strconv.Itoa(len(res.Path) - 1),
			strings.Join(res.Path, " > "),
		}
	})
}
