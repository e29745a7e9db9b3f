package cache

import (
	"context"
	gosync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/pim/backend/internal/domain/store"
	"github.com/pim/backend/internal/domain/sync"
)

// treeEntry is a cached category tree with expiration
type treeEntry struct {
	roots     []*sync.RemoteCategoryNode
	expiresAt time.Time
}

// InMemoryTreeCache implements RemoteTreeProvider with a per-store
// in-process cache in front of the remote gateway. Suitable for
// single-instance deployments and testing; instances do not share
// invalidation.
type InMemoryTreeCache struct {
	gateway sync.RemoteStoreGateway
	ttl     time.Duration

	mu      gosync.RWMutex
	entries map[uuid.UUID]treeEntry
}

// NewInMemoryTreeCache creates a new in-memory tree cache
func NewInMemoryTreeCache(gateway sync.RemoteStoreGateway, ttl time.Duration) *InMemoryTreeCache {
	return &InMemoryTreeCache{
		gateway: gateway,
		ttl:     ttl,
		entries: make(map[uuid.UUID]treeEntry),
	}
}

// CategoryTree returns the store's category tree, fetching it from the
// remote gateway on a miss or after expiry.
func (c *InMemoryTreeCache) CategoryTree(ctx context.Context, st *store.Store) ([]*sync.RemoteCategoryNode, error) {
	c.mu.RLock()
	if e, ok := c.entries[st.ID]; ok && time.Now().Before(e.expiresAt) {
		c.mu.RUnlock()
		return e.roots, nil
	}
	c.mu.RUnlock()

	roots, err := c.gateway.FetchCategoryTree(ctx, st)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[st.ID] = treeEntry{
		roots:     roots,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()

	return roots, nil
}

// Invalidate drops the cached tree for a store
func (c *InMemoryTreeCache) Invalidate(ctx context.Context, storeID uuid.UUID) {
	c.mu.Lock()
	delete(c.entries, storeID)
	c.mu.Unlock()
}

// Ensure InMemoryTreeCache implements RemoteTreeProvider
var _ sync.RemoteTreeProvider = (*InMemoryTreeCache)(nil)
