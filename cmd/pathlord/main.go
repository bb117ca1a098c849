package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rmax-ai/pathlord/pkg/blob"
	"github.com/rmax-ai/pathlord/pkg/client"
	"github.com/rmax-ai/pathlord/pkg/graph"
	"github.com/rmax-ai/pathlord/pkg/mcp"
	"github.com/rmax-ai/pathlord/pkg/reports"
	"github.com/rmax-ai/pathlord/pkg/seed"
)

var (
	Version   = "v1.0.0"
	Commit    = "unknown"
	BuildTime = "unknown"
)

const usage = `Usage: pathlord [-endpoint URL] <command> [args]

Commands:
  node add <name>              create a node
  node list                    list nodes in creation order
  edge add <from> <to> <w>     create a directed edge with weight w
  edge list                    list edges
  path <start> <end>           compute and record the shortest path
  results [-limit N]           list recorded results, newest first
  clear                        delete every node, edge and result
  load <file.yaml>             apply a seed document
  report <results|edges>       export as CSV or JSON [-format F] [-since D]
                               [-from NODE] [-to NODE] [-archive DIR] [-keep N]
  mcp                          serve the Model Context Protocol on stdio
  version                      print build information
`

// errUsage marks invocation errors; main exits 2 for them.
var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if strings.Contains(err.Error(), "daemon unreachable") {
			fmt.Fprintln(os.Stderr, "Is pathlord-d running?")
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flagSet := flag.NewFlagSet("pathlord", flag.ContinueOnError)
	flagSet.SetOutput(stderr)
	endpoint := flagSet.String("endpoint", envOrDefault("PATHLORD_ENDPOINT", client.DefaultEndpoint), "pathlord-d base URL")
	if err := flagSet.Parse(args); err != nil {
		return errUsage
	}
	rest := flagSet.Args()
	if len(rest) == 0 {
		return errUsage
	}

	c := client.NewClient(*endpoint)
	cmd, rest := rest[0], rest[1:]
	switch cmd {
	case "node":
		return runNode(ctx, c, rest, stdout)
	case "edge":
		return runEdge(ctx, c, rest, stdout)
	case "path":
		if len(rest) != 2 {
			return errUsage
		}
		res, err := c.ShortestPath(ctx, rest[0], rest[1])
		if graph.IsNoPath(err) {
			fmt.Fprintf(stdout, "No path from %s to %s\n", rest[0], rest[1])
			return err
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s\nTotal weight: %g\n", strings.Join(res.Path, " -> "), res.TotalWeight)
		return nil
	case "results":
		return runResults(ctx, c, rest, stdout, stderr)
	case "clear":
		if err := c.ClearGraph(ctx); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "Graph cleared")
		return nil
	case "load":
		if len(rest) != 1 {
			return errUsage
		}
		g, err := seed.ParseFile(rest[0])
		if err != nil {
			return err
		}
		report, err := seed.Apply(ctx, c, g)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Nodes created: %d (skipped %d existing)\nEdges created: %d\n",
			report.NodesCreated, report.NodesSkipped, report.EdgesCreated)
		return nil
	case "report":
		return runReport(ctx, c, rest, stdout, stderr)
	case "mcp":
		return mcp.NewServer(*endpoint).Serve()
	case "version":
		fmt.Fprintf(stdout, "pathlord %s (commit %s, built %s)\n", Version, Commit, BuildTime)
		return nil
	}
	return errUsage
}

func runNode(ctx context.Context, c *client.Client, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "add":
		if len(args) != 2 {
			return errUsage
		}
		node, err := c.AddNode(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Node created: %s (%s)\n", node.Name, node.ID)
		return nil
	case "list":
		nodes, err := c.ListNodes(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tID\tCREATED")
		for _, n := range nodes {
			fmt.Fprintf(w, "%s\t%s\t%s\n", n.Name, n.ID, n.CreatedAt.Format(time.RFC3339))
		}
		return w.Flush()
	}
	return errUsage
}

func runEdge(ctx context.Context, c *client.Client, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "add":
		if len(args) != 4 {
			return errUsage
		}
		weight, err := strconv.ParseFloat(args[3], 64)
		if err != nil {
			return graph.NewValidationErrorf("weight %q is not a number", args[3])
		}
		edge, err := c.AddEdge(ctx, args[1], args[2], weight)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Edge created: %s -> %s (%g) %s\n", edge.FromName, edge.ToName, edge.Weight, edge.ID)
		return nil
	case "list":
		edges, err := c.ListEdges(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "FROM\tTO\tWEIGHT\tID")
		for _, e := range edges {
			fmt.Fprintf(w, "%s\t%s\t%g\t%s\n", e.FromName, e.ToName, e.Weight, e.ID)
		}
		return w.Flush()
	}
	return errUsage
}

func runResults(ctx context.Context, c *client.Client, args []string, stdout, stderr io.Writer) error {
	flagSet := flag.NewFlagSet("results", flag.ContinueOnError)
	flagSet.SetOutput(stderr)
	limit := flagSet.Int("limit", 20, "maximum number of results; 0 lists all")
	if err := flagSet.Parse(args); err != nil {
		return errUsage
	}
	if *limit < 0 {
		return graph.NewValidationError("limit must be a non-negative integer")
	}

	results, err := c.ListResults(ctx, *limit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSTART\tEND\tWEIGHT\tPATH")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%s\n",
			r.Timestamp.Format(time.RFC3339), r.StartNode, r.EndNode, r.TotalWeight, strings.Join(r.Path, " -> "))
	}
	return w.Flush()
}

func runReport(ctx context.Context, c *client.Client, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	reportType := reports.ReportType(args[0])

	flagSet := flag.NewFlagSet("report", flag.ContinueOnError)
	flagSet.SetOutput(stderr)
	format := flagSet.String("format", string(reports.ReportFormatCSV), "csv|json")
	since := flagSet.Duration("since", 0, "only include entries newer than this")
	from := flagSet.String("from", "", "start node (results) or source node (edges)")
	to := flagSet.String("to", "", "end node (results) or target node (edges)")
	archiveDir := flagSet.String("archive", "", "store the report under this directory instead of printing it")
	keep := flagSet.Int("keep", 0, "archives of this type to retain; 0 keeps all")
	if err := flagSet.Parse(args[1:]); err != nil {
		return errUsage
	}

	gen, err := reports.NewReportGenerator(reportType, c)
	if err != nil {
		return err
	}

	params := reports.ReportParams{Format: reports.ReportFormat(*format), Filters: map[string]string{}}
	if *since > 0 {
		params.Start = time.Now().Add(-*since)
	}
	if reportType == reports.ReportTypeResults {
		params.Filters["start_node"], params.Filters["end_node"] = *from, *to
	} else {
		params.Filters["from_node"], params.Filters["to_node"] = *from, *to
	}

	report, err := gen.Generate(ctx, params)
	if err != nil {
		return err
	}
	if *archiveDir == "" {
		_, err := io.Copy(stdout, report)
		return err
	}

	key, err := reports.Archive(ctx, blob.NewLocalBlobStore(*archiveDir), reportType, params.Format, report, time.Now(), *keep)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Report archived: %s\n", key)
	return nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
