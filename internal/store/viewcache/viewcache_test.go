package viewcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/beehive-org/beehive/internal/beehive/domain"
	"github.com/beehive-org/beehive/internal/store"
)

type countingStore struct {
	store.Store
	activeTasksCalls int
}

func (s *countingStore) ActiveTasks(ctx context.Context) ([]store.ActiveTaskRow, error) {
	s.activeTasksCalls++
	return []store.ActiveTaskRow{{ID: "t1"}}, nil
}

func (s *countingStore) PendingMessages(ctx context.Context) ([]*domain.Message, error) {
	return nil, nil
}

func (s *countingStore) AgentWorkload(ctx context.Context) ([]store.AgentWorkloadRow, error) {
	return nil, nil
}

func TestCache_ActiveTasks_HitsWithinTTL(t *testing.T) {
	inner := &countingStore{}
	c := New(inner, 50*time.Millisecond)

	_, err := c.ActiveTasks(context.Background())
	require.NoError(t, err)
	_, err = c.ActiveTasks(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, inner.activeTasksCalls, "second call within TTL should hit cache")

	time.Sleep(60 * time.Millisecond)
	_, err = c.ActiveTasks(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, inner.activeTasksCalls, "call after TTL should miss cache")
}

func TestCache_Invalidate_ForcesMiss(t *testing.T) {
	inner := &countingStore{}
	c := New(inner, time.Minute)

	_, err := c.ActiveTasks(context.Background())
	require.NoError(t, err)
	c.Invalidate()
	_, err = c.ActiveTasks(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, inner.activeTasksCalls)
}
