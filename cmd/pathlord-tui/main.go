package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rmax-ai/pathlord/pkg/client"
	"github.com/rmax-ai/pathlord/pkg/graph"
)

// Config
const (
	pollRate       = time.Second
	fetchTimeout   = 500 * time.Millisecond
	maxResults     = 20
	viewportHeight = 20
)

// Styles
var (
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

	// Layout styles
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			Width(100)

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1).
			Width(48)

	// Result styles
	resultTimeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(10)
	resultRouteStyle = lipgloss.NewStyle().Width(20).Bold(true)
	resultPathStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("99")) // Purple
	weightStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39")) // Blue
)

type tickMsg time.Time

type dataMsg struct {
	nodes   []graph.Node
	edges   []graph.EdgeView
	results []graph.PathResult
	err     error
}

type model struct {
	api      *client.Client
	spinner  spinner.Model
	viewport viewport.Model
	nodes    []graph.Node
	edges    []graph.EdgeView
	results  []graph.PathResult
	err      error
	ready    bool
}

func initialModel(api *client.Client) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return model{
		api:      api,
		spinner:  s,
		viewport: newViewport(100),
	}
}

func newViewport(width int) viewport.Model {
	vp := viewport.New(width, viewportHeight)
	vp.Style = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		PaddingRight(2)
	return vp
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		fetchData(m.api),
		tick(),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tickMsg:
		cmds = append(cmds, fetchData(m.api), tick())

	case dataMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.nodes = msg.nodes
			m.edges = msg.edges
			m.results = msg.results
			m.updateViewportContent()
		}
		m.ready = true

	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = viewportHeight
		m.ready = true
	}

	return m, tea.Batch(cmds...)
}

// updateViewportContent renders the ledger newest first, as the daemon
// returns it.
func (m *model) updateViewportContent() {
	var sb strings.Builder
	for _, r := range m.results {
		line := fmt.Sprintf("%s %s %s %s\n",
			resultTimeStyle.Render(r.Timestamp.Local().Format("15:04:05")),
			resultRouteStyle.Render(fmt.Sprintf("%s → %s", r.StartNode, r.EndNode)),
			weightStyle.Render(fmt.Sprintf("%-8g", r.TotalWeight)),
			resultPathStyle.Render(strings.Join(r.Path, " → ")),
		)
		sb.WriteString(line)
	}
	if len(m.results) == 0 {
		sb.WriteString(subtleStyle.Render("No paths computed yet."))
	}
	m.viewport.SetContent(sb.String())
}

func (m model) View() string {
	if !m.ready {
		return fmt.Sprintf("\n%s Initializing...", m.spinner.View())
	}

	var nodeList strings.Builder
	nodeList.WriteString(lipgloss.NewStyle().Bold(true).Underline(true).Render("Nodes") + "\n\n")
	if len(m.nodes) == 0 {
		nodeList.WriteString(subtleStyle.Render("No nodes."))
	}
	for _, n := range m.nodes {
		nodeList.WriteString(fmt.Sprintf("• %s\n", n.Name))
	}

	var edgeList strings.Builder
	edgeList.WriteString(lipgloss.NewStyle().Bold(true).Underline(true).Render("Edges") + "\n\n")
	if len(m.edges) == 0 {
		edgeList.WriteString(subtleStyle.Render("No edges."))
	}
	for _, e := range m.edges {
		edgeList.WriteString(fmt.Sprintf("%s → %s %s\n", e.FromName, e.ToName, weightStyle.Render(fmt.Sprintf("(%g)", e.Weight))))
	}

	topPane := lipgloss.JoinHorizontal(lipgloss.Top,
		paneStyle.Render(nodeList.String()),
		paneStyle.Render(edgeList.String()),
	)

	header := headerStyle.Render(fmt.Sprintf("%s Recent Shortest Paths", m.spinner.View()))
	bottomPane := m.viewport.View()

	var status string
	if m.err != nil {
		status = errorStyle.Render(fmt.Sprintf("Offline: %v", m.err))
	} else {
		status = okStyle.Render(fmt.Sprintf("Online • %d Nodes • %d Edges • %d Results", len(m.nodes), len(m.edges), len(m.results)))
	}
	footer := subtleStyle.Render(fmt.Sprintf("\n%s\nPress q to quit", status))

	return lipgloss.JoinVertical(lipgloss.Left, topPane, header, bottomPane, footer)
}

// Commands

func fetchData(api *client.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		nodes, err := api.ListNodes(ctx)
		if err != nil {
			return dataMsg{err: err}
		}
		edges, err := api.ListEdges(ctx)
		if err != nil {
			return dataMsg{err: err}
		}
		results, err := api.ListResults(ctx, maxResults)
		if err != nil {
			return dataMsg{err: err}
		}

		return dataMsg{nodes: nodes, edges: edges, results: results}
	}
}

func tick() tea.Cmd {
	return tea.Tick(pollRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func main() {
	defaultEndpoint := client.DefaultEndpoint
	if env := os.Getenv("PATHLORD_ENDPOINT"); env != "" {
		defaultEndpoint = env
	}
	endpoint := flag.String("endpoint", defaultEndpoint, "pathlord-d base URL")
	flag.Parse()

	// The poll loop already retries every second.
	api := client.NewClient(*endpoint).WithRetry(1, client.DefaultBackoff())

	p := tea.NewProgram(initialModel(api), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Alas, there's been an error: %v", err)
		os.Exit(1)
	}
}
