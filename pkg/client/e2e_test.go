package client_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmax-ai/pathlord/pkg/client"
	"github.com/rmax-ai/pathlord/pkg/graph"
)

// TestEndToEnd runs against a live pathlord-d. Node names are unique per run
// so an existing graph is left alone.
func TestEndToEnd(t *testing.T) {
	if os.Getenv("E2E") != "true" {
		t.Skip("Skipping e2e test")
	}

	endpoint := os.Getenv("PATHLORD_ENDPOINT")
	c := client.NewClient(endpoint)
	ctx := context.Background()

	// Poll Ping until success
	var err error
	for i := 0; i < 30; i++ {
		_, err = c.Ping(ctx)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, err, "daemon did not become healthy")

	prefix := uuid.NewString()[:8] + "-"
	a, b, z := prefix+"a", prefix+"b", prefix+"z"
	for _, n := range []string{a, b, z} {
		_, err := c.AddNode(ctx, n)
		require.NoError(t, err)
	}
	_, err = c.AddEdge(ctx, a, b, 1.25)
	require.NoError(t, err)

	res, err := c.ShortestPath(ctx, a, b)
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, res.Path)
	assert.Equal(t, 1.25, res.TotalWeight)

	_, err = c.ShortestPath(ctx, b, z)
	assert.True(t, graph.IsNoPath(err))

	results, err := c.ListResults(ctx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, res.ID, results[0].ID)
}
