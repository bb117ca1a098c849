package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/rmax-ai/pathlord/pkg/logging"
	"github.com/rmax-ai/pathlord/pkg/simulation"
)

func main() {
	var (
		scenarioFile string
		apiURL       string
		jsonOutput   bool
		outputFile   string
		logLevel     string
	)

	flag.StringVar(&scenarioFile, "scenario", "", "Path to scenario YAML or JSON file")
	flag.StringVar(&apiURL, "api", "http://127.0.0.1:8090", "Base URL of pathlord-d API")
	flag.BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	flag.StringVar(&outputFile, "out", "", "Write output to file instead of stdout")
	flag.StringVar(&logLevel, "log-level", "info", "log level: debug|info|warn|error")
	flag.Parse()

	logger, err := logging.New(logging.Config{Level: logLevel, Format: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "pathlord-sim: %v\n", err)
		os.Exit(2)
	}
	defer logger.Sync()

	scenario, err := loadScenario(scenarioFile)
	if err != nil {
		logger.Fatal("scenario_load_failed", zap.Error(err))
	}
	if scenarioFile == "" {
		logger.Info("no scenario file provided, running default demo scenario")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := simulation.RunScenario(ctx, scenario, apiURL, logger)
	if err != nil {
		logger.Fatal("scenario_failed", zap.Error(err))
	}

	if err := writeReport(result, jsonOutput, outputFile); err != nil {
		logger.Fatal("report_failed", zap.Error(err))
	}

	if !result.Success {
		logger.Sync()
		os.Exit(1)
	}
}

func loadScenario(path string) (simulation.Scenario, error) {
	if path == "" {
		return simulation.Scenario{
			Name:        "Default Demo",
			Duration:    10 * time.Second,
			Description: "Periodic queries over a random graph with concurrent edge inserts",
			Topology:    simulation.Topology{Nodes: 20, EdgesPerNode: 3, MaxWeight: 10, Prefix: "sim-"},
			Agents: []simulation.AgentConfig{
				{Name: "agent-default", Count: 5, Behavior: simulation.BehaviorPeriodic, Rate: 2},
			},
			Mutator: &simulation.MutatorConfig{Enabled: true, Interval: time.Second},
			Invariants: []simulation.Invariant{
				{Metric: "error_rate", Condition: "==", Value: 0},
				{Metric: "inconsistent_rate", Condition: "==", Value: 0},
			},
		}, nil
	}

	var scenario simulation.Scenario
	data, err := os.ReadFile(path)
	if err != nil {
		return scenario, fmt.Errorf("failed to read scenario file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &scenario)
	default:
		err = json.Unmarshal(data, &scenario)
	}
	if err != nil {
		return scenario, fmt.Errorf("failed to parse scenario file: %w", err)
	}
	if scenario.Duration <= 0 {
		return scenario, fmt.Errorf("scenario duration must be positive")
	}
	return scenario, nil
}

func writeReport(res simulation.SimulationResult, jsonFmt bool, filePath string) error {
	var output []byte

	if jsonFmt {
		var err error
		output, err = json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
	} else {
		var buf bytes.Buffer
		buf.WriteString(fmt.Sprintf("\n--- Simulation Report: %s ---\n", res.ScenarioName))
		buf.WriteString(fmt.Sprintf("Duration: %s | Graph: %d nodes, %d edges (+%d mutations)\n",
			res.Duration, res.Nodes, res.Edges, res.TotalMutations))
		buf.WriteString(fmt.Sprintf("Requests: %d | Found: %d | No path: %d | Errors: %d | Inconsistent: %d\n",
			res.TotalRequests, res.TotalFound, res.TotalNoPath, res.TotalErrors, res.TotalInconsistent))

		if len(res.Invariants) > 0 {
			buf.WriteString("\nInvariants:\n")
			for _, inv := range res.Invariants {
				status := "FAIL"
				if inv.Passed {
					status = "PASS"
				}
				buf.WriteString(fmt.Sprintf("[%s] %s (%s): Expected %s, Got %s\n", status, inv.Metric, inv.Scope, inv.Expected, inv.Actual))
			}
		}
		output = buf.Bytes()
	}

	if filePath != "" {
		if err := os.WriteFile(filePath, output, 0o644); err != nil {
			return fmt.Errorf("failed to write report to %s: %w", filePath, err)
		}
		fmt.Printf("Report written to %s\n", filePath)
		return nil
	}
	fmt.Println(string(output))
	return nil
}
