package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pim/backend/internal/domain/store"
	"github.com/pim/backend/internal/domain/sync"
)

const treeKeyPrefix = "catalog:remote_tree:"

// RedisTreeCache implements RemoteTreeProvider with a Redis cache in front
// of the remote gateway so tree fetches and invalidations are shared across
// instances. Cache failures degrade to a direct gateway fetch.
type RedisTreeCache struct {
	client  *redis.Client
	gateway sync.RemoteStoreGateway
	ttl     time.Duration
	logger  *zap.Logger
}

// NewRedisTreeCache creates a new Redis-backed tree cache
func NewRedisTreeCache(client *redis.Client, gateway sync.RemoteStoreGateway, ttl time.Duration, logger *zap.Logger) *RedisTreeCache {
	return &RedisTreeCache{
		client:  client,
		gateway: gateway,
		ttl:     ttl,
		logger:  logger,
	}
}

// CategoryTree returns the store's category tree, fetching it from the
// remote gateway on a miss.
func (c *RedisTreeCache) CategoryTree(ctx context.Context, st *store.Store) ([]*sync.RemoteCategoryNode, error) {
	key := treeKeyPrefix + st.ID.String()

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var roots []*sync.RemoteCategoryNode
		if err := json.Unmarshal(data, &roots); err == nil {
			return roots, nil
		}
		// Corrupt entry, fall through to a fresh fetch
		c.logger.Warn("discarding corrupt cached category tree",
			zap.String("store", st.Code))
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("tree cache read failed, fetching directly",
			zap.String("store", st.Code),
			zap.Error(err))
	}

	roots, err := c.gateway.FetchCategoryTree(ctx, st)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(roots); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("tree cache write failed",
				zap.String("store", st.Code),
				zap.Error(err))
		}
	}

	return roots, nil
}

// Invalidate drops the cached tree for a store
func (c *RedisTreeCache) Invalidate(ctx context.Context, storeID uuid.UUID) {
	if err := c.client.Del(ctx, treeKeyPrefix+storeID.String()).Err(); err != nil {
		c.logger.Warn("tree cache invalidation failed",
			zap.String("store_id", storeID.String()),
			zap.Error(err))
	}
}

// Ensure RedisTreeCache implements RemoteTreeProvider
var _ sync.RemoteTreeProvider = (*RedisTreeCache)(nil)
