// Package storetest holds the behaviour suite every engine.Repository
// implementation must pass.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmax-ai/pathlord/pkg/engine"
	"github.com/rmax-ai/pathlord/pkg/graph"
)

// RunRepositoryTests runs the suite. newRepo must return an empty repository
// on every call; it is called once per subtest.
func RunRepositoryTests(t *testing.T, newRepo func(t *testing.T) engine.Repository) {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	addNode := func(t *testing.T, repo engine.Repository, id, name string) graph.Node {
		t.Helper()
		n, err := graph.NewNode(id, name, base)
		require.NoError(t, err)
		require.NoError(t, repo.InsertNode(ctx, n))
		return n
	}

	t.Run("nodes keep creation order", func(t *testing.T) {
		repo := newRepo(t)
		addNode(t, repo, "n2", "Zed")
		addNode(t, repo, "n1", "Alpha")
		addNode(t, repo, "n3", "Mid")

		nodes, err := repo.ListNodes(ctx)
		require.NoError(t, err)
		require.Len(t, nodes, 3)
		assert.Equal(t, []string{"Zed", "Alpha", "Mid"}, []string{nodes[0].Name, nodes[1].Name, nodes[2].Name})
		assert.Equal(t, "n2", nodes[0].ID)
		assert.True(t, nodes[0].CreatedAt.Equal(base))
	})

	t.Run("empty lists are empty not nil", func(t *testing.T) {
		repo := newRepo(t)
		nodes, err := repo.ListNodes(ctx)
		require.NoError(t, err)
		assert.NotNil(t, nodes)
		assert.Empty(t, nodes)

		edges, err := repo.ListEdges(ctx)
		require.NoError(t, err)
		assert.NotNil(t, edges)

		results, err := repo.ListRecent(ctx, 0)
		require.NoError(t, err)
		assert.NotNil(t, results)
	})

	t.Run("duplicate names are rejected", func(t *testing.T) {
		repo := newRepo(t)
		addNode(t, repo, "n1", "A")
		dup, err := graph.NewNode("n2", "A", base)
		require.NoError(t, err)

		err = repo.InsertNode(ctx, dup)
		require.Error(t, err)
		assert.True(t, graph.IsConflict(err), "got %v", err)

		nodes, err := repo.ListNodes(ctx)
		require.NoError(t, err)
		assert.Len(t, nodes, 1)
	})

	t.Run("edges resolve names and keep parallels", func(t *testing.T) {
		repo := newRepo(t)
		a := addNode(t, repo, "na", "A")
		b := addNode(t, repo, "nb", "B")

		v1, err := repo.InsertEdge(ctx, engine.EdgeInsert{ID: "e1", FromName: "A", ToName: "B", Weight: 5, CreatedAt: base})
		require.NoError(t, err)
		assert.Equal(t, a.ID, v1.FromNode)
		assert.Equal(t, b.ID, v1.ToNode)
		assert.Equal(t, "A", v1.FromName)
		assert.Equal(t, "B", v1.ToName)

		_, err = repo.InsertEdge(ctx, engine.EdgeInsert{ID: "e2", FromName: "A", ToName: "B", Weight: 3, CreatedAt: base})
		require.NoError(t, err)
		_, err = repo.InsertEdge(ctx, engine.EdgeInsert{ID: "e3", FromName: "B", ToName: "B", Weight: 1, CreatedAt: base})
		require.NoError(t, err)

		edges, err := repo.ListEdges(ctx)
		require.NoError(t, err)
		require.Len(t, edges, 3)
		assert.Equal(t, "e1", edges[0].ID)
		assert.Equal(t, 5.0, edges[0].Weight)
		assert.Equal(t, "e2", edges[1].ID)
		assert.Equal(t, 3.0, edges[1].Weight)
		assert.Equal(t, "B", edges[2].FromName)
		assert.Equal(t, "B", edges[2].ToName)
	})

	t.Run("edge to unknown node leaves store unmodified", func(t *testing.T) {
		repo := newRepo(t)
		addNode(t, repo, "na", "A")

		_, err := repo.InsertEdge(ctx, engine.EdgeInsert{ID: "e1", FromName: "A", ToName: "X", Weight: 1, CreatedAt: base})
		require.Error(t, err)
		assert.True(t, graph.IsNotFound(err), "got %v", err)

		_, err = repo.InsertEdge(ctx, engine.EdgeInsert{ID: "e2", FromName: "X", ToName: "A", Weight: 1, CreatedAt: base})
		assert.True(t, graph.IsNotFound(err), "got %v", err)

		edges, err := repo.ListEdges(ctx)
		require.NoError(t, err)
		assert.Empty(t, edges)
	})

	t.Run("snapshot builds adjacency", func(t *testing.T) {
		repo := newRepo(t)
		addNode(t, repo, "na", "A")
		addNode(t, repo, "nb", "B")
		addNode(t, repo, "nc", "C")
		for i, e := range []engine.EdgeInsert{
			{FromName: "A", ToName: "B", Weight: 3},
			{FromName: "B", ToName: "C", Weight: 4},
			{FromName: "A", ToName: "C", Weight: 10},
		} {
			e.ID = fmt.Sprintf("e%d", i)
			e.CreatedAt = base
			_, err := repo.InsertEdge(ctx, e)
			require.NoError(t, err)
		}

		snap, err := repo.Snapshot(ctx)
		require.NoError(t, err)
		assert.Len(t, snap.Nodes, 3)
		assert.Len(t, snap.Edges, 3)

		adj, err := snap.Adjacency()
		require.NoError(t, err)
		path, err := engine.ShortestPath(adj, "A", "C")
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B", "C"}, path.Nodes)
		assert.Equal(t, 7.0, path.TotalWeight)
	})

	t.Run("results most recent first", func(t *testing.T) {
		repo := newRepo(t)
		for i := 0; i < 4; i++ {
			r, err := graph.NewPathResult(
				fmt.Sprintf("r%d", i), "A", "B",
				graph.Path{Nodes: []string{"A", "B"}, TotalWeight: float64(i + 1)},
				base.Add(time.Duration(i)*time.Second),
			)
			require.NoError(t, err)
			require.NoError(t, repo.Record(ctx, r))
		}
		// Same timestamp as r3: insertion order breaks the tie.
		tie, err := graph.NewPathResult("r4", "A", "B", graph.Path{Nodes: []string{"A", "B"}, TotalWeight: 9}, base.Add(3*time.Second))
		require.NoError(t, err)
		require.NoError(t, repo.Record(ctx, tie))

		all, err := repo.ListRecent(ctx, 0)
		require.NoError(t, err)
		require.Len(t, all, 5)
		ids := make([]string, len(all))
		for i, r := range all {
			ids[i] = r.ID
		}
		assert.Equal(t, []string{"r4", "r3", "r2", "r1", "r0"}, ids)
		assert.Equal(t, []string{"A", "B"}, all[0].Path)
		assert.True(t, all[1].Timestamp.Equal(base.Add(3*time.Second)))

		limited, err := repo.ListRecent(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, limited, 2)
		assert.Equal(t, "r4", limited[0].ID)

		again, err := repo.ListRecent(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, all, again)
	})

	t.Run("clear removes everything", func(t *testing.T) {
		repo := newRepo(t)
		addNode(t, repo, "na", "A")
		addNode(t, repo, "nb", "B")
		_, err := repo.InsertEdge(ctx, engine.EdgeInsert{ID: "e1", FromName: "A", ToName: "B", Weight: 1, CreatedAt: base})
		require.NoError(t, err)
		r, err := graph.NewPathResult("r1", "A", "B", graph.Path{Nodes: []string{"A", "B"}, TotalWeight: 1}, base)
		require.NoError(t, err)
		require.NoError(t, repo.Record(ctx, r))

		require.NoError(t, repo.ClearAll(ctx))

		nodes, err := repo.ListNodes(ctx)
		require.NoError(t, err)
		assert.Empty(t, nodes)
		edges, err := repo.ListEdges(ctx)
		require.NoError(t, err)
		assert.Empty(t, edges)
		results, err := repo.ListRecent(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, results)

		// Names are free again after a clear.
		addNode(t, repo, "na2", "A")
	})

	t.Run("ping", func(t *testing.T) {
		repo := newRepo(t)
		assert.NoError(t, repo.Ping(ctx))
	})
}
