package employees_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/perfhub/internal/app/features/employees"
	employeestore "github.com/dalemusser/perfhub/internal/app/store/employees"
	goalstore "github.com/dalemusser/perfhub/internal/app/store/goals"
	"github.com/dalemusser/perfhub/internal/app/store/tenantcache"
	tenantstore "github.com/dalemusser/perfhub/internal/app/store/tenants"
	userstore "github.com/dalemusser/perfhub/internal/app/store/users"
	"github.com/dalemusser/perfhub/internal/app/system/gates"
	"github.com/dalemusser/perfhub/internal/app/system/paging"
	"github.com/dalemusser/perfhub/internal/domain/models"
	"github.com/dalemusser/perfhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type env struct {
	db    *mongo.Database
	h     *employees.Handler
	cache *tenantcache.Cache
	fx    *testutil.Fixtures
}

func newEnv(t *testing.T, db *mongo.Database) *env {
	t.Helper()
	logger := zap.NewNop()
	cache := tenantcache.New(tenantstore.New(db), time.Minute)
	return &env{
		db:    db,
		h:     employees.NewHandler(db, cache, gates.New(cache, nil, logger), nil, logger),
		cache: cache,
		fx:    testutil.NewFixtures(t, db),
	}
}

func (e *env) create(t *testing.T, user testutil.TestUser, target string, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.h.HandleCreate(rec, testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPost, target, body), user))
	return rec
}

func newHire(email string) map[string]any {
	return map[string]any{"fullName": "New Hire", "email": email, "jobTitle": "Analyst"}
}

func TestHandleCreate_LimitThenUpgrade(t *testing.T) {
	db := testutil.SetupTestDBWithIndexes(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := newEnv(t, db)

	tenant := e.fx.CreateTenant(ctx, "Acme", "forming", 25)
	admin := e.fx.CreateUser(ctx, "Ada", "ada@acme.test", "tenant_admin", &tenant.ID)
	if err := e.cache.Store().SetEmployeeCount(ctx, tenant.ID, 25); err != nil {
		t.Fatalf("SetEmployeeCount: %v", err)
	}

	rec := e.create(t, testutil.FromModel(admin), "/employees", newHire("n26@acme.test"))
	testutil.AssertStatus(t, rec, http.StatusForbidden)
	if code := testutil.ErrorCode(t, rec); code != "LIMIT_EXCEEDED" {
		t.Fatalf("error = %q, want LIMIT_EXCEEDED", code)
	}
	// The rejected attempt must not leave a user behind.
	if _, err := userstore.New(db).GetByEmail(ctx, "n26@acme.test"); err != userstore.ErrNotFound {
		t.Errorf("user after rejected create: %v", err)
	}

	if _, err := e.cache.SetSubscription(ctx, tenant.ID, "storming", 100); err != nil {
		t.Fatalf("SetSubscription: %v", err)
	}
	rec = e.create(t, testutil.FromModel(admin), "/employees", newHire("n26@acme.test"))
	testutil.AssertStatus(t, rec, http.StatusCreated)

	var got struct {
		ID            string `json:"id"`
		TenantID      string `json:"tenantId"`
		FeedbackToken string `json:"feedbackToken"`
		Role          string `json:"role"`
	}
	testutil.DecodeJSON(t, rec, &got)
	if got.TenantID != tenant.ID.Hex() || got.Role != "employee" || got.FeedbackToken == "" {
		t.Errorf("unexpected employee: %+v", got)
	}

	after, _ := e.cache.Store().GetByID(ctx, tenant.ID)
	if after.EmployeeCount != 26 {
		t.Errorf("employee_count = %d, want 26", after.EmployeeCount)
	}
}

func TestHandleCreate_UpToLimitThenRejects(t *testing.T) {
	db := testutil.SetupTestDBWithIndexes(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := newEnv(t, db)

	tenant := e.fx.CreateTenant(ctx, "Tiny", "forming", 2)
	admin := testutil.FromModel(e.fx.CreateUser(ctx, "Ada", "ada@tiny.test", "tenant_admin", &tenant.ID))

	for i, email := range []string{"a@tiny.test", "b@tiny.test"} {
		if rec := e.create(t, admin, "/employees", newHire(email)); rec.Code != http.StatusCreated {
			t.Fatalf("create #%d: status %d body %s", i+1, rec.Code, rec.Body.String())
		}
	}
	rec := e.create(t, admin, "/employees", newHire("c@tiny.test"))
	testutil.AssertStatus(t, rec, http.StatusForbidden)
}

func TestHandleCreate_UnlimitedNeverExceeds(t *testing.T) {
	db := testutil.SetupTestDBWithIndexes(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := newEnv(t, db)

	tenant := e.fx.CreateTenant(ctx, "Big", "performing", models.UnlimitedEmployees)
	if err := e.cache.Store().SetEmployeeCount(ctx, tenant.ID, 100000); err != nil {
		t.Fatalf("SetEmployeeCount: %v", err)
	}
	rec := e.create(t, testutil.PlatformAdmin(), "/employees?tenant_id="+tenant.ID.Hex(), newHire("x@big.test"))
	testutil.AssertStatus(t, rec, http.StatusCreated)
}

func TestHandleCreate_DuplicateEmailReleasesSeat(t *testing.T) {
	db := testutil.SetupTestDBWithIndexes(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := newEnv(t, db)

	tenant := e.fx.CreateTenant(ctx, "Acme", "forming", 25)
	admin := testutil.FromModel(e.fx.CreateUser(ctx, "Ada", "ada@acme.test", "tenant_admin", &tenant.ID))

	rec := e.create(t, admin, "/employees", newHire("ada@acme.test"))
	testutil.AssertStatus(t, rec, http.StatusConflict)

	after, _ := e.cache.Store().GetByID(ctx, tenant.ID)
	if after.EmployeeCount != 0 {
		t.Errorf("employee_count = %d, want 0", after.EmployeeCount)
	}
}

func TestHandleCreate_RejectsForeignManager(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := newEnv(t, db)

	tenant := e.fx.CreateTenant(ctx, "Acme", "forming", 25)
	other := e.fx.CreateTenant(ctx, "Other", "forming", 25)
	_, foreign := e.fx.CreateEmployee(ctx, other.ID, "Fo", "fo@other.test", "manager")
	admin := testutil.FromModel(e.fx.CreateUser(ctx, "Ada", "ada@acme.test", "tenant_admin", &tenant.ID))

	body := newHire("n@acme.test")
	body["managerId"] = foreign.ID.Hex()
	rec := e.create(t, admin, "/employees", body)
	testutil.AssertStatus(t, rec, http.StatusBadRequest)
}

func TestHandleCreate_EmployeeCannotCreate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := newEnv(t, db)

	tenant := e.fx.CreateTenant(ctx, "Acme", "forming", 25)
	user, _ := e.fx.CreateEmployee(ctx, tenant.ID, "Eve", "eve@acme.test", "employee")

	rec := e.create(t, testutil.FromModel(user), "/employees", newHire("n@acme.test"))
	testutil.AssertStatus(t, rec, http.StatusForbidden)
	if code := testutil.ErrorCode(t, rec); code != "INSUFFICIENT_ROLE" {
		t.Errorf("error = %q", code)
	}
}

func TestServeList_TenantScoping(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := newEnv(t, db)

	t1 := e.fx.CreateTenant(ctx, "T1", "forming", 25)
	t9 := e.fx.CreateTenant(ctx, "T9", "forming", 25)
	u1, _ := e.fx.CreateEmployee(ctx, t1.ID, "One", "one@t1.test", "employee")
	e.fx.CreateEmployee(ctx, t9.ID, "Nine A", "a@t9.test", "employee")
	e.fx.CreateEmployee(ctx, t9.ID, "Nine B", "b@t9.test", "manager")

	t.Run("employee asking for another tenant", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.h.ServeList(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/employees?tenant_id="+t9.ID.Hex(), testutil.FromModel(u1)))
		testutil.AssertStatus(t, rec, http.StatusForbidden)
		if code := testutil.ErrorCode(t, rec); code != "TENANT_ACCESS_DENIED" {
			t.Errorf("error = %q", code)
		}
	})

	t.Run("platform admin filtered to T9", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.h.ServeList(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/employees?tenant_id="+t9.ID.Hex(), testutil.PlatformAdmin()))
		testutil.AssertStatus(t, rec, http.StatusOK)
		var page paging.Page[models.Employee]
		testutil.DecodeJSON(t, rec, &page)
		if len(page.Items) != 2 {
			t.Fatalf("got %d employees, want 2", len(page.Items))
		}
		for _, emp := range page.Items {
			if emp.TenantID != t9.ID {
				t.Errorf("employee %s from tenant %s", emp.ID.Hex(), emp.TenantID.Hex())
			}
		}
	})

	t.Run("employee sees own tenant without tokens of others", func(t *testing.T) {
		e.fx.CreateEmployee(ctx, t1.ID, "Two", "two@t1.test", "employee")
		rec := httptest.NewRecorder()
		e.h.ServeList(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/employees", testutil.FromModel(u1)))
		testutil.AssertStatus(t, rec, http.StatusOK)
		var page paging.Page[models.Employee]
		testutil.DecodeJSON(t, rec, &page)
		if len(page.Items) != 2 {
			t.Fatalf("got %d employees, want 2", len(page.Items))
		}
		for _, emp := range page.Items {
			own := emp.UserID == u1.ID
			if own == (emp.FeedbackToken == "") {
				t.Errorf("feedback token visibility wrong for %s (own=%v)", emp.FullName, own)
			}
		}
	})
}

func TestServeGet_CrossTenantDenied(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := newEnv(t, db)

	t1 := e.fx.CreateTenant(ctx, "T1", "forming", 25)
	t2 := e.fx.CreateTenant(ctx, "T2", "forming", 25)
	admin := e.fx.CreateUser(ctx, "Ada", "ada@t1.test", "tenant_admin", &t1.ID)
	_, foreign := e.fx.CreateEmployee(ctx, t2.ID, "Fo", "fo@t2.test", "employee")

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/employees/"+foreign.ID.Hex(), testutil.FromModel(admin))
	req = testutil.WithChiURLParam(req, "id", foreign.ID.Hex())
	rec := httptest.NewRecorder()
	e.h.ServeGet(rec, req)
	testutil.AssertStatus(t, rec, http.StatusForbidden)

	req = testutil.NewAuthenticatedRequest(http.MethodGet, "/employees/bad", testutil.FromModel(admin))
	req = testutil.WithChiURLParam(req, "id", "bad")
	rec = httptest.NewRecorder()
	e.h.ServeGet(rec, req)
	testutil.AssertStatus(t, rec, http.StatusBadRequest)
}

func TestHandleUpdate_ManagerCycleAndClear(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := newEnv(t, db)

	tenant := e.fx.CreateTenant(ctx, "Acme", "forming", 25)
	admin := testutil.FromModel(e.fx.CreateUser(ctx, "Ada", "ada@acme.test", "tenant_admin", &tenant.ID))
	_, boss := e.fx.CreateEmployee(ctx, tenant.ID, "Boss", "boss@acme.test", "manager")
	_, report := e.fx.CreateEmployee(ctx, tenant.ID, "Report", "report@acme.test", "employee")
	e.fx.SetManager(ctx, report.ID, boss.ID)

	patch := func(id primitive.ObjectID, body map[string]any) *httptest.ResponseRecorder {
		req := testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPatch, "/employees/"+id.Hex(), body), admin)
		req = testutil.WithChiURLParam(req, "id", id.Hex())
		rec := httptest.NewRecorder()
		e.h.HandleUpdate(rec, req)
		return rec
	}

	rec := patch(boss.ID, map[string]any{"managerId": report.ID.Hex()})
	testutil.AssertStatus(t, rec, http.StatusConflict)

	rec = patch(report.ID, map[string]any{"managerId": nil, "jobTitle": "Lead"})
	testutil.AssertStatus(t, rec, http.StatusOK)
	got, _ := employeestore.New(db).GetByID(ctx, report.ID)
	if got.ManagerID != nil || got.JobTitle != "Lead" {
		t.Errorf("after clear: manager=%v title=%q", got.ManagerID, got.JobTitle)
	}
}

func TestHandleDelete_CascadesAndReleasesSeat(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := newEnv(t, db)

	tenant := e.fx.CreateTenant(ctx, "Acme", "forming", 25)
	if err := e.cache.Store().SetEmployeeCount(ctx, tenant.ID, 1); err != nil {
		t.Fatalf("SetEmployeeCount: %v", err)
	}
	admin := testutil.FromModel(e.fx.CreateUser(ctx, "Ada", "ada@acme.test", "tenant_admin", &tenant.ID))
	user, emp := e.fx.CreateEmployee(ctx, tenant.ID, "Gone", "gone@acme.test", "employee")
	e.fx.CreateGoal(ctx, emp, "Ship it", user.ID)
	e.fx.CreateFeedback(ctx, emp, "Great work")
	e.fx.CreateNotification(ctx, user.ID, models.NotificationGoalAssigned, "New goal")

	req := testutil.NewAuthenticatedRequest(http.MethodDelete, "/employees/"+emp.ID.Hex(), admin)
	req = testutil.WithChiURLParam(req, "id", emp.ID.Hex())
	rec := httptest.NewRecorder()
	e.h.HandleDelete(rec, req)
	testutil.AssertStatus(t, rec, http.StatusNoContent)

	if _, err := employeestore.New(db).GetByID(ctx, emp.ID); err != employeestore.ErrNotFound {
		t.Errorf("employee still present: %v", err)
	}
	if _, err := userstore.New(db).GetByID(ctx, user.ID); err != userstore.ErrNotFound {
		t.Errorf("user still present: %v", err)
	}
	goals, _ := goalstore.New(db).ListByEmployee(ctx, emp.ID, "", paging.Params{Limit: 10})
	if len(goals.Items) != 0 {
		t.Errorf("goals left: %d", len(goals.Items))
	}
	if n, _ := db.Collection("feedback").CountDocuments(ctx, map[string]any{"employee_id": emp.ID}); n != 0 {
		t.Errorf("feedback left: %d", n)
	}
	if n, _ := db.Collection("notifications").CountDocuments(ctx, map[string]any{"user_id": user.ID}); n != 0 {
		t.Errorf("notifications left: %d", n)
	}
	after, _ := e.cache.Store().GetByID(ctx, tenant.ID)
	if after.EmployeeCount != 0 {
		t.Errorf("employee_count = %d, want 0", after.EmployeeCount)
	}
}

func TestHandleBulkStatus_FeatureGate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := newEnv(t, db)

	basic := e.fx.CreateTenant(ctx, "Basic", "storming", 100)
	pro := e.fx.CreateTenant(ctx, "Pro", "norming", 250)
	_, proEmp := e.fx.CreateEmployee(ctx, pro.ID, "P", "p@pro.test", "employee")
	_, basicEmp := e.fx.CreateEmployee(ctx, basic.ID, "B", "b@basic.test", "employee")

	bulk := func(user testutil.TestUser, ids ...primitive.ObjectID) *httptest.ResponseRecorder {
		hex := make([]string, len(ids))
		for i, id := range ids {
			hex[i] = id.Hex()
		}
		req := testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPost, "/employees/bulk-status",
			map[string]any{"employeeIds": hex, "status": "inactive"}), user)
		rec := httptest.NewRecorder()
		e.h.HandleBulkStatus(rec, req)
		return rec
	}

	rec := bulk(testutil.TenantUser("tenant_admin", basic.ID), basicEmp.ID)
	testutil.AssertStatus(t, rec, http.StatusForbidden)
	if code := testutil.ErrorCode(t, rec); code != "FEATURE_NOT_AVAILABLE" {
		t.Errorf("error = %q", code)
	}

	// The foreign id is ignored, not updated.
	rec = bulk(testutil.TenantUser("tenant_admin", pro.ID), proEmp.ID, basicEmp.ID)
	testutil.AssertStatus(t, rec, http.StatusOK)
	var body struct {
		Updated int `json:"updated"`
	}
	testutil.DecodeJSON(t, rec, &body)
	if body.Updated != 1 {
		t.Errorf("updated = %d, want 1", body.Updated)
	}
	got, _ := employeestore.New(db).GetByID(ctx, basicEmp.ID)
	if got.Status != models.EmployeeActive {
		t.Errorf("foreign employee status changed to %q", got.Status)
	}
}
