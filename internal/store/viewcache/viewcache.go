// Package viewcache caches the Store's read-only view queries
// (active_tasks, pending_messages, agent_workload) for a few hundred
// milliseconds, since `status`, `status --watch` and `task stats` read
// them repeatedly and identical SQL reads that close together add no value.
package viewcache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/beehive-org/beehive/internal/beehive/domain"
	"github.com/beehive-org/beehive/internal/log"
	"github.com/beehive-org/beehive/internal/store"
)

const (
	// DefaultTTL is short by design: long enough to absorb a burst of
	// reads within one Supervisor tick, short enough that a stale view is
	// never visible beyond a single cycle.
	DefaultTTL             = 500 * time.Millisecond
	defaultCleanupInterval = 5 * time.Minute
)

const (
	keyActiveTasks   = "active_tasks"
	keyPendingMsgs   = "pending_messages"
	keyAgentWorkload = "agent_workload"
)

// Cache wraps a store.Store, serving ActiveTasks/PendingMessages/
// AgentWorkload from an in-memory TTL cache and delegating everything else
// straight through. It satisfies store.Store so callers can swap it in
// without changing call sites.
type Cache struct {
	store.Store
	cache *gocache.Cache
	ttl   time.Duration
}

// New wraps inner with a view cache using the given ttl (DefaultTTL if zero).
func New(inner store.Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		Store: inner,
		cache: gocache.New(ttl, defaultCleanupInterval),
		ttl:   ttl,
	}
}

func (c *Cache) ActiveTasks(ctx context.Context) ([]store.ActiveTaskRow, error) {
	if v, ok := c.cache.Get(keyActiveTasks); ok {
		log.Debug(log.CatCache, "view cache hit", "view", keyActiveTasks)
		return v.([]store.ActiveTaskRow), nil
	}
	rows, err := c.Store.ActiveTasks(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Set(keyActiveTasks, rows, c.ttl)
	return rows, nil
}

func (c *Cache) PendingMessages(ctx context.Context) ([]*domain.Message, error) {
	if v, ok := c.cache.Get(keyPendingMsgs); ok {
		log.Debug(log.CatCache, "view cache hit", "view", keyPendingMsgs)
		return v.([]*domain.Message), nil
	}
	msgs, err := c.Store.PendingMessages(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Set(keyPendingMsgs, msgs, c.ttl)
	return msgs, nil
}

func (c *Cache) AgentWorkload(ctx context.Context) ([]store.AgentWorkloadRow, error) {
	if v, ok := c.cache.Get(keyAgentWorkload); ok {
		log.Debug(log.CatCache, "view cache hit", "view", keyAgentWorkload)
		return v.([]store.AgentWorkloadRow), nil
	}
	rows, err := c.Store.AgentWorkload(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Set(keyAgentWorkload, rows, c.ttl)
	return rows, nil
}

// Invalidate drops all cached view rows, called by components that just
// wrote a mutation the Supervisor should see on its very next tick instead
// of waiting out the TTL.
func (c *Cache) Invalidate() {
	c.cache.Flush()
}
