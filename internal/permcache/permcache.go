// Package permcache provides an optional memoizing wrapper around the
// permission engine. The engine itself defines no cache and makes no
// staleness promises; callers with read-heavy traffic can front it with this
// wrapper, keyed on (resource, actor), and accept results as stale as the
// configured TTL. It is an optimization, never a correctness requirement.
package permcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/guildhall-io/guildhall/internal/cache"
	"github.com/guildhall-io/guildhall/internal/permissions"
	"github.com/guildhall-io/guildhall/pkg/logger"
)

const defaultTTL = 10 * time.Second

// Computer is the single-resource computation surface being wrapped.
type Computer interface {
	Compute(ctx context.Context, resourceID string, t permissions.ResourceType, actorID string) (permissions.FlagMap, error)
}

// Cache memoizes flag-map computations in a cache.Store.
type Cache struct {
	inner Computer
	store cache.Store
	ttl   time.Duration
	log   *zap.Logger
}

// New wraps a computer with a TTL cache. A nil store disables caching and
// passes every call through.
func New(inner Computer, store cache.Store, ttl time.Duration) (*Cache, error) {
	if inner == nil {
		return nil, errors.New("permcache: computer is required")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{
		inner: inner,
		store: store,
		ttl:   ttl,
		log:   logger.WithModule("permcache"),
	}, nil
}

// Compute returns the cached flag map when fresh, recomputing otherwise.
// Cache failures degrade to a direct computation, never to an error.
func (c *Cache) Compute(ctx context.Context, resourceID string, t permissions.ResourceType, actorID string) (permissions.FlagMap, error) {
	if c.store == nil {
		return c.inner.Compute(ctx, resourceID, t, actorID)
	}

	key := cacheKey(resourceID, t, actorID)
	if raw, ok, err := c.store.Get(ctx, key); err == nil && ok {
		var flags permissions.FlagMap
		if err := json.Unmarshal(raw, &flags); err == nil {
			return flags, nil
		}
	}

	flags, err := c.inner.Compute(ctx, resourceID, t, actorID)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(flags); err == nil {
		if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
			c.log.Debug("cache set failed", zap.String("key", key), zap.Error(err))
		}
	}
	return flags, nil
}

// Invalidate drops the cached entries for a resource/actor pair. Callers
// invoke it after assignment or resource-state writes.
func (c *Cache) Invalidate(ctx context.Context, resourceID string, t permissions.ResourceType, actorIDs ...string) error {
	if c.store == nil {
		return nil
	}
	keys := make([]string, 0, len(actorIDs)+1)
	keys = append(keys, cacheKey(resourceID, t, ""))
	for _, actorID := range actorIDs {
		keys = append(keys, cacheKey(resourceID, t, actorID))
	}
	return c.store.Delete(ctx, keys...)
}

func cacheKey(resourceID string, t permissions.ResourceType, actorID string) string {
	if actorID == "" {
		actorID = "anonymous"
	}
	return fmt.Sprintf("perm:%s:%s:%s", t, resourceID, actorID)
}
