// Package tenantcache puts a short-lived read cache in front of the tenant
// store. Every request resolves its caller's tenant (active flag, tier), so
// the hot path is a cache hit; writes go through here and evict the key.
package tenantcache

import (
	"context"
	"time"

	tenantstore "github.com/dalemusser/perfhub/internal/app/store/tenants"
	"github.com/dalemusser/perfhub/internal/domain/models"
	"github.com/viccon/sturdyc"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultTTL bounds how stale a tier or active flag can be on another node.
const DefaultTTL = 5 * time.Minute

const (
	capacity           = 10000
	numShards          = 10
	evictionPercentage = 10
)

// Cache wraps a tenant store.
type Cache struct {
	store *tenantstore.Store
	c     *sturdyc.Client[models.Tenant]
}

// New creates a Cache. ttl <= 0 uses DefaultTTL.
func New(store *tenantstore.Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		store: store,
		c:     sturdyc.New[models.Tenant](capacity, numShards, ttl, evictionPercentage),
	}
}

// Store exposes the underlying store for uncached reads (lists, counts).
func (c *Cache) Store() *tenantstore.Store { return c.store }

// Get returns the tenant, fetching it on a miss. Concurrent misses for the
// same id share one fetch.
func (c *Cache) Get(ctx context.Context, id primitive.ObjectID) (models.Tenant, error) {
	return c.c.GetOrFetch(ctx, id.Hex(), func(ctx context.Context) (models.Tenant, error) {
		return c.store.GetByID(ctx, id)
	})
}

// Invalidate drops id from the cache.
func (c *Cache) Invalidate(id primitive.ObjectID) {
	c.c.Delete(id.Hex())
}

func (c *Cache) put(t models.Tenant, err error) (models.Tenant, error) {
	if err != nil {
		return t, err
	}
	c.c.Set(t.ID.Hex(), t)
	return t, nil
}

// Update writes through to the store and refreshes the entry.
func (c *Cache) Update(ctx context.Context, id primitive.ObjectID, u tenantstore.Update) (models.Tenant, error) {
	c.Invalidate(id)
	return c.put(c.store.Update(ctx, id, u))
}

// SetActive writes through to the store and refreshes the entry.
func (c *Cache) SetActive(ctx context.Context, id primitive.ObjectID, active bool) (models.Tenant, error) {
	c.Invalidate(id)
	return c.put(c.store.SetActive(ctx, id, active))
}

// SetSubscription writes through to the store and refreshes the entry.
func (c *Cache) SetSubscription(ctx context.Context, id primitive.ObjectID, tier string, max int) (models.Tenant, error) {
	c.Invalidate(id)
	return c.put(c.store.SetSubscription(ctx, id, tier, max))
}
