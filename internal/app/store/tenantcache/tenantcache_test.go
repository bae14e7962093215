package tenantcache_test

import (
	"errors"
	"testing"

	"github.com/dalemusser/perfhub/internal/app/store/tenantcache"
	tenantstore "github.com/dalemusser/perfhub/internal/app/store/tenants"
	"github.com/dalemusser/perfhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCache_GetServesFromCache(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	cache := tenantcache.New(tenantstore.New(db), 0)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tenant := fx.CreateTenant(ctx, "Cached Co", "forming", 25)

	first, err := cache.Get(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	// Change the row behind the cache's back.
	_, _ = db.Collection("tenants").UpdateByID(ctx, tenant.ID, bson.M{"$set": bson.M{"subscription_tier": "norming"}})

	second, err := cache.Get(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if second.SubscriptionTier != first.SubscriptionTier {
		t.Error("expected the cached tier to be served")
	}

	cache.Invalidate(tenant.ID)
	third, _ := cache.Get(ctx, tenant.ID)
	if third.SubscriptionTier != "norming" {
		t.Errorf("after Invalidate expected norming, got %q", third.SubscriptionTier)
	}
}

func TestCache_WriteThrough(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	cache := tenantcache.New(tenantstore.New(db), 0)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tenant := fx.CreateTenant(ctx, "Write Co", "forming", 25)
	_, _ = cache.Get(ctx, tenant.ID)

	if _, err := cache.SetActive(ctx, tenant.ID, false); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}
	got, _ := cache.Get(ctx, tenant.ID)
	if got.IsActive {
		t.Error("expected cached tenant to reflect deactivation")
	}
}

func TestCache_GetMissing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cache := tenantcache.New(tenantstore.New(db), 0)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := cache.Get(ctx, primitive.NewObjectID()); !errors.Is(err, tenantstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
