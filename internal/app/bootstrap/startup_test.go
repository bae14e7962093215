package bootstrap

import (
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/perfhub/internal/app/system/authz"
	"github.com/dalemusser/perfhub/internal/domain/models"
	"github.com/dalemusser/perfhub/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func validConfig() AppConfig {
	return AppConfig{
		MongoURI:         "mongodb://localhost:27017",
		MongoDatabase:    "perfhub_test",
		SessionKey:       strings.Repeat("k", 48),
		FeedbackPerToken: 5,
		FeedbackPerIP:    20,
		FeedbackWindow:   time.Hour,
		OTelSamplePct:    100,
	}
}

func TestEnsureSchema_CreatesPlatformAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cfg := validConfig()
	cfg.PlatformAdminEmail = "Root@Example.com"
	if err := EnsureSchema(ctx, nil, cfg, DBDeps{MongoDatabase: db}, testLogger()); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	var user models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"email": "root@example.com"}).Decode(&user); err != nil {
		t.Fatalf("failed to find created user: %v", err)
	}
	if user.Role != authz.PlatformAdmin.String() {
		t.Errorf("expected role %q, got %q", authz.PlatformAdmin, user.Role)
	}
	if user.TenantID != nil {
		t.Error("expected platform admin to have no tenant")
	}
	if user.Status != "active" {
		t.Errorf("expected status 'active', got %q", user.Status)
	}

	// Running it again is a no-op.
	if err := EnsureSchema(ctx, nil, cfg, DBDeps{MongoDatabase: db}, testLogger()); err != nil {
		t.Fatalf("second EnsureSchema failed: %v", err)
	}
	n, err := db.Collection("users").CountDocuments(ctx, bson.M{"email": "root@example.com"})
	if err != nil {
		t.Fatalf("count users: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 user, got %d", n)
	}
}

func TestEnsureSchema_PromotesExistingUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	tenant := fx.CreateTenant(ctx, "Acme", "storming", 100)
	existing := fx.CreateUser(ctx, "Existing User", "existing@example.com", authz.TenantAdmin.String(), &tenant.ID)

	cfg := validConfig()
	cfg.PlatformAdminEmail = "existing@example.com"
	if err := EnsureSchema(ctx, nil, cfg, DBDeps{MongoDatabase: db}, testLogger()); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	var user models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"_id": existing.ID}).Decode(&user); err != nil {
		t.Fatalf("failed to load user: %v", err)
	}
	if user.Role != authz.PlatformAdmin.String() {
		t.Errorf("expected role %q, got %q", authz.PlatformAdmin, user.Role)
	}
	if user.TenantID != nil {
		t.Error("expected tenant to be cleared on promotion")
	}
	if user.FullName != "Existing User" {
		t.Errorf("expected name to be kept, got %q", user.FullName)
	}
}

func TestEnsureSchema_ReconcilesEmployeeCounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	staffed := fx.CreateTenant(ctx, "Staffed", "storming", 100)
	empty := fx.CreateTenant(ctx, "Empty", "forming", 25)
	fx.CreateEmployee(ctx, staffed.ID, "Ann", "ann@example.com", authz.Employee.String())
	fx.CreateEmployee(ctx, staffed.ID, "Bob", "bob@example.com", authz.Manager.String())

	// Simulate drift left behind by a crash.
	for _, id := range []any{staffed.ID, empty.ID} {
		if _, err := db.Collection("tenants").UpdateByID(ctx, id, bson.M{"$set": bson.M{"employee_count": 17}}); err != nil {
			t.Fatalf("seed drift: %v", err)
		}
	}

	if err := EnsureSchema(ctx, nil, validConfig(), DBDeps{MongoDatabase: db}, testLogger()); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	want := map[string]int{"Staffed": 2, "Empty": 0}
	for name, n := range want {
		var tn models.Tenant
		if err := db.Collection("tenants").FindOne(ctx, bson.M{"name": name}).Decode(&tn); err != nil {
			t.Fatalf("load tenant %s: %v", name, err)
		}
		if tn.EmployeeCount != n {
			t.Errorf("%s: expected employee_count %d, got %d", name, n, tn.EmployeeCount)
		}
	}
}

func TestValidateConfig(t *testing.T) {
	prod := &config.CoreConfig{Env: "prod"}
	dev := &config.CoreConfig{Env: "dev"}

	tests := []struct {
		name    string
		core    *config.CoreConfig
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{"valid", prod, func(*AppConfig) {}, false},
		{"bad mongo uri", dev, func(c *AppConfig) { c.MongoURI = "postgres://nope" }, true},
		{"short session key in prod", prod, func(c *AppConfig) { c.SessionKey = "short" }, true},
		{"short session key in dev", dev, func(c *AppConfig) { c.SessionKey = "short" }, false},
		{"dev login in prod", prod, func(c *AppConfig) { c.DevLogin = true }, true},
		{"zero per-token limit", dev, func(c *AppConfig) { c.FeedbackPerToken = 0 }, true},
		{"negative per-ip limit", dev, func(c *AppConfig) { c.FeedbackPerIP = -1 }, true},
		{"zero window", dev, func(c *AppConfig) { c.FeedbackWindow = 0 }, true},
		{"sample above 100", dev, func(c *AppConfig) { c.OTelSamplePct = 150 }, true},
		{"google without state key", dev, func(c *AppConfig) { c.GoogleClientID = "id"; c.OAuthStateKey = "x" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(tt.core, cfg, testLogger())
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" app.example.com, ,*.example.org ")
	if len(got) != 2 || got[0] != "app.example.com" || got[1] != "*.example.org" {
		t.Errorf("splitList() = %q", got)
	}
	if splitList("") != nil {
		t.Error("expected nil for empty input")
	}
}
