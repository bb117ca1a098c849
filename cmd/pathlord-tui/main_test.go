package main

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmax-ai/pathlord/pkg/api"
	"github.com/rmax-ai/pathlord/pkg/client"
	"github.com/rmax-ai/pathlord/pkg/engine"
	"github.com/rmax-ai/pathlord/pkg/store/memory"
)

func TestFetchData(t *testing.T) {
	ctx := context.Background()
	svc := engine.NewService(memory.NewStore())
	for _, n := range []string{"A", "B"} {
		_, err := svc.AddNode(ctx, n)
		require.NoError(t, err)
	}
	_, err := svc.AddEdge(ctx, "A", "B", 2)
	require.NoError(t, err)
	_, err = svc.ComputeShortestPath(ctx, "A", "B")
	require.NoError(t, err)

	ts := httptest.NewServer(api.NewServer(svc, api.Config{}).Handler())
	defer ts.Close()

	msg := fetchData(client.NewClient(ts.URL))()
	data, ok := msg.(dataMsg)
	require.True(t, ok)
	require.NoError(t, data.err)
	assert.Len(t, data.nodes, 2)
	assert.Len(t, data.edges, 1)
	assert.Len(t, data.results, 1)

	updated, _ := initialModel(nil).Update(data)
	view := updated.(model).View()
	assert.Contains(t, view, "Online • 2 Nodes • 1 Edges • 1 Results")
	assert.Contains(t, view, "A → B")
}

func TestModel_Offline(t *testing.T) {
	m := initialModel(nil)
	assert.Contains(t, m.View(), "Initializing")

	updated, _ := m.Update(dataMsg{err: errors.New("connection refused")})
	assert.Contains(t, updated.(model).View(), "Offline: connection refused")
}

func TestModel_Quit(t *testing.T) {
	_, cmd := initialModel(nil).Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
