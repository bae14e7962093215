package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/perfhub/internal/app/store/audit"
	"github.com/dalemusser/perfhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_LogAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tenantA, tenantB := primitive.NewObjectID(), primitive.NewObjectID()
	events := []audit.Event{
		{TenantID: &tenantA, Category: audit.CategorySecurity, EventType: audit.EventAccessDenied, FailureReason: "TENANT_ACCESS_DENIED"},
		{TenantID: &tenantA, Category: audit.CategoryAdmin, EventType: audit.EventEmployeeCreated, Success: true},
		{TenantID: &tenantB, Category: audit.CategoryAdmin, EventType: audit.EventEmployeeCreated, Success: true},
	}
	for _, e := range events {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	got, err := store.Query(ctx, audit.QueryFilter{TenantID: &tenantA})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 events for tenant A, got %d", len(got))
	}

	got, err = store.Query(ctx, audit.QueryFilter{Category: audit.CategorySecurity})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 1 || got[0].FailureReason != "TENANT_ACCESS_DENIED" {
		t.Errorf("expected the access denial, got %+v", got)
	}
}

func TestStore_QuerySinceAndLimit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	old := time.Now().Add(-48 * time.Hour).UTC()
	_ = store.Log(ctx, audit.Event{CreatedAt: old, Category: audit.CategoryAuth, EventType: audit.EventLogout})
	for i := 0; i < 3; i++ {
		_ = store.Log(ctx, audit.Event{Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess})
	}

	since := time.Now().Add(-time.Hour)
	got, err := store.Query(ctx, audit.QueryFilter{Since: &since, Limit: 2})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected limit of 2, got %d", len(got))
	}
	for _, e := range got {
		if e.EventType == audit.EventLogout {
			t.Error("old event should be filtered by Since")
		}
	}
}
