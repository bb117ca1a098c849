// Package reports renders the results ledger and the edge list as CSV or
// JSON exports.
package reports

import (
	"context"
	"io"
	"time"

	"github.com/rmax-ai/pathlord/pkg/graph"
)

type ReportType string

const (
	ReportTypeResults ReportType = "results"
	ReportTypeEdges   ReportType = "edges"
)

type ReportFormat string

const (
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatJSON ReportFormat = "json"
)

// ReportParams narrows a report. Zero times are unbounded. Recognized
// filters are "start_node" and "end_node" for results and "from_node" and
// "to_node" for edges.
type ReportParams struct {
	Start   time.Time
	End     time.Time
	Format  ReportFormat
	Filters map[string]string
}

// ReportStore defines the data access reports need. Both *engine.Service and
// *client.Client satisfy it.
type ReportStore interface {
	ListEdges(ctx context.Context) ([]graph.EdgeView, error)
	ListResults(ctx context.Context, limit int) ([]graph.PathResult, error)
}

type Generator interface {
	Generate(ctx context.Context, params ReportParams) (io.Reader, error)
}

func (p ReportParams) inWindow(ts time.Time) bool {
	if !p.Start.IsZero() && ts.Before(p.Start) {
		return false
	}
	if !p.End.IsZero() && ts.After(p.End) {
		return false
	}
	return true
}

func (p ReportParams) matches(key, value string) bool {
	want, ok := p.Filters[key]
	return !ok || want == "" || want == value
}
