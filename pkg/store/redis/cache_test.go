package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmax-ai/pathlord/pkg/engine"
	"github.com/rmax-ai/pathlord/pkg/graph"
	"github.com/rmax-ai/pathlord/pkg/store/memory"
)

func newTestCache(t *testing.T, ttl time.Duration) (*PathCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewPathCache(client, ttl, nil), mr
}

func TestPathCache_PutGet(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t, time.Minute)
	key := engine.CacheKey{Epoch: "ep", Revision: 3, Start: "A", End: "C"}

	_, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	want := graph.Path{Nodes: []string{"A", "B", "C"}, TotalWeight: 7}
	require.NoError(t, cache.Put(ctx, key, want))

	got, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	// Another revision is a different entry.
	_, ok, err = cache.Get(ctx, engine.CacheKey{Epoch: "ep", Revision: 4, Start: "A", End: "C"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPathCache_TTL(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t, time.Minute)
	key := engine.CacheKey{Epoch: "ep", Revision: 1, Start: "A", End: "B"}
	require.NoError(t, cache.Put(ctx, key, graph.Path{Nodes: []string{"A", "B"}, TotalWeight: 1}))

	mr.FastForward(2 * time.Minute)

	_, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPathCache_Purge(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t, 0)
	for i, end := range []string{"B", "C", "D"} {
		key := engine.CacheKey{Epoch: "ep", Revision: uint64(i), Start: "A", End: end}
		require.NoError(t, cache.Put(ctx, key, graph.Path{Nodes: []string{"A", end}, TotalWeight: 1}))
	}
	members, err := mr.SMembers(pathsSet)
	require.NoError(t, err)
	assert.Len(t, members, 3)

	require.NoError(t, cache.Purge(ctx))

	assert.False(t, mr.Exists(pathsSet))
	for _, m := range members {
		assert.False(t, mr.Exists(m), "key %s should be gone", m)
	}

	// Purging an empty cache is fine.
	require.NoError(t, cache.Purge(ctx))
}

func TestPathCache_UnavailableServer(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t, time.Minute)
	mr.Close()

	key := engine.CacheKey{Epoch: "ep", Start: "A", End: "B"}
	_, ok, err := cache.Get(ctx, key)
	assert.Error(t, err)
	assert.False(t, ok)

	assert.Error(t, cache.Put(ctx, key, graph.Path{Nodes: []string{"A", "B"}}))
}

func TestPathCache_BreakerOpensAfterFailures(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t, time.Minute)
	mr.Close()

	key := engine.CacheKey{Epoch: "ep", Start: "A", End: "B"}
	for i := 0; i < 5; i++ {
		_, _, _ = cache.Get(ctx, key)
	}
	_, _, err := cache.Get(ctx, key)
	require.Error(t, err)
	assert.ErrorContains(t, err, "circuit breaker is open")
}

func TestPathCache_WithService(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t, time.Minute)
	svc := engine.NewService(memory.NewStore(), engine.WithCache(cache))

	for _, n := range []string{"A", "B"} {
		_, err := svc.AddNode(ctx, n)
		require.NoError(t, err)
	}
	_, err := svc.AddEdge(ctx, "A", "B", 2)
	require.NoError(t, err)

	_, err = svc.ComputeShortestPath(ctx, "A", "B")
	require.NoError(t, err)
	members, err := mr.SMembers(pathsSet)
	require.NoError(t, err)
	assert.Len(t, members, 1)

	require.NoError(t, svc.ClearGraph(ctx))
	assert.False(t, mr.Exists(pathsSet))
}
