package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rmax-ai/pathlord/pkg/engine"
	"github.com/rmax-ai/pathlord/pkg/graph"
	"github.com/rmax-ai/pathlord/pkg/store/storetest"
)

func TestMemoryStore(t *testing.T) {
	storetest.RunRepositoryTests(t, func(t *testing.T) engine.Repository {
		return NewStore()
	})
}

func TestMemoryStore_Closed(t *testing.T) {
	s := NewStore()
	assert.NoError(t, s.Close())

	err := s.Ping(context.Background())
	assert.True(t, graph.IsStorage(err))

	n, _ := graph.NewNode("n1", "A", time.Now())
	assert.True(t, graph.IsStorage(s.InsertNode(context.Background(), n)))
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Snapshot(ctx)
	assert.True(t, graph.IsStorage(err))
}
