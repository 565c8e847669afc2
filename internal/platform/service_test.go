package platform

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/school-erp/superadmin/internal/query"
	"github.com/school-erp/superadmin/pkg/api"
	"github.com/school-erp/superadmin/pkg/models"
)

// fakeBackend serves a tiny mutable platform and counts GETs per path.
type fakeBackend struct {
	mu       sync.Mutex
	status   map[string]string
	hits     map[string]int
	bodies   map[string]string
	failNext int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		status: map[string]string{"t-1": "active", "t-2": "active"},
		hits:   map[string]int{},
		bodies: map[string]string{},
	}
}

func (f *fakeBackend) count(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits[r.Method+" "+r.URL.RequestURI()]++
}

func (f *fakeBackend) hitsFor(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[key]
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (f *fakeBackend) server(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/platform/tenants", func(w http.ResponseWriter, r *http.Request) {
		f.count(r)
		f.mu.Lock()
		items := []map[string]any{
			{"id": "t-1", "name": "Alpha", "status": f.status["t-1"]},
			{"id": "t-2", "name": "Beta", "status": f.status["t-2"]},
		}
		f.mu.Unlock()
		writeJSON(w, map[string]any{"data": map[string]any{
			"items":      items,
			"pagination": map[string]any{"page": r.URL.Query().Get("page"), "per_page": 10, "total": 2, "pages": 1},
		}})
	})

	mux.HandleFunc("GET /api/platform/dashboard", func(w http.ResponseWriter, r *http.Request) {
		f.count(r)
		f.mu.Lock()
		suspended := 0
		for _, s := range f.status {
			if s == "suspended" {
				suspended++
			}
		}
		f.mu.Unlock()
		writeJSON(w, map[string]any{"data": map[string]any{"total_tenants": 2, "suspended_tenants": suspended}})
	})

	mux.HandleFunc("GET /api/platform/tenants/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.count(r)
		f.mu.Lock()
		st := f.status[r.PathValue("id")]
		f.mu.Unlock()
		writeJSON(w, map[string]any{"data": map[string]any{"id": r.PathValue("id"), "status": st}})
	})

	mux.HandleFunc("PATCH /api/platform/tenants/{id}/suspend", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failNext > 0 {
			f.failNext--
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"message":"tenant already suspended"}`))
			return
		}
		f.status[r.PathValue("id")] = "suspended"
		writeJSON(w, map[string]any{"success": true})
	})

	mux.HandleFunc("PATCH /api/platform/plans/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"success": true})
	})

	mux.HandleFunc("PATCH /api/platform/settings", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.bodies["settings"] = string(body)
		f.mu.Unlock()
		writeJSON(w, map[string]any{"success": true})
	})

	mux.HandleFunc("GET /api/platform/audit-logs", func(w http.ResponseWriter, r *http.Request) {
		f.count(r)
		writeJSON(w, map[string]any{"data": map[string]any{"items": []any{}}})
	})

	mux.HandleFunc("GET /api/platform/plans", func(w http.ResponseWriter, r *http.Request) {
		f.count(r)
		w.WriteHeader(http.StatusUnauthorized)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestService(t *testing.T, f *fakeBackend) (*Service, *query.Cache) {
	srv := f.server(t)
	cache := query.New(slog.Default(), query.NewMemory(), 2*time.Minute)
	return NewService(slog.Default(), api.NewClient(srv.URL), cache), cache
}

func TestTenantsCachedPerParams(t *testing.T) {
	f := newFakeBackend()
	svc, _ := newTestService(t, f)
	op := svc.As("tok")
	ctx := context.Background()

	_, err := op.Tenants(ctx, 1, 10)
	require.NoError(t, err)
	_, err = op.Tenants(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, f.hitsFor("GET /api/platform/tenants?page=1&per_page=10"))

	_, err = op.Tenants(ctx, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, f.hitsFor("GET /api/platform/tenants?page=2&per_page=10"))
}

func TestAuditLogFiltersAreDistinctEntries(t *testing.T) {
	f := newFakeBackend()
	svc, _ := newTestService(t, f)
	op := svc.As("tok")
	ctx := context.Background()

	_, err := op.AuditLogs(ctx, 1, AuditLogsPerPage, models.AuditFilter{Action: "tenant.created"})
	require.NoError(t, err)
	_, err = op.AuditLogs(ctx, 1, AuditLogsPerPage, models.AuditFilter{Action: "plan.created"})
	require.NoError(t, err)
	_, err = op.AuditLogs(ctx, 1, AuditLogsPerPage, models.AuditFilter{Action: "tenant.created"})
	require.NoError(t, err)

	assert.Equal(t, 1, f.hitsFor("GET /api/platform/audit-logs?action=tenant.created&page=1&per_page=20"))
	assert.Equal(t, 1, f.hitsFor("GET /api/platform/audit-logs?action=plan.created&page=1&per_page=20"))
}

func TestSuspendInvalidatesListDetailAndDashboard(t *testing.T) {
	f := newFakeBackend()
	svc, _ := newTestService(t, f)
	op := svc.As("tok")
	ctx := context.Background()

	page, err := op.Tenants(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, models.TenantStatusActive, page.Items[0].Status)
	dash, err := op.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, dash.Metrics.SuspendedTenants)
	_, err = op.Tenant(ctx, "t-1")
	require.NoError(t, err)

	require.NoError(t, op.SuspendTenant(ctx, "t-1"))

	page, err = op.Tenants(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, models.TenantStatusSuspended, page.Items[0].Status)
	dash, err = op.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, dash.Metrics.SuspendedTenants)
	tn, err := op.Tenant(ctx, "t-1")
	require.NoError(t, err)
	assert.True(t, tn.Suspended())

	assert.Equal(t, 2, f.hitsFor("GET /api/platform/tenants?page=1&per_page=10"))
	assert.Equal(t, 2, f.hitsFor("GET /api/platform/dashboard"))
	assert.Equal(t, 2, f.hitsFor("GET /api/platform/tenants/t-1"))
}

func TestUpdatePlanRefreshesTenantViews(t *testing.T) {
	f := newFakeBackend()
	svc, cache := newTestService(t, f)
	op := svc.As("tok")
	ctx := context.Background()

	_, err := op.Tenants(ctx, 1, 10)
	require.NoError(t, err)
	_, err = op.Tenant(ctx, "t-2")
	require.NoError(t, err)
	_, err = op.Dashboard(ctx)
	require.NoError(t, err)

	require.NoError(t, op.UpdatePlan(ctx, "p-1", models.PlanRequest{Name: "Basic+"}))

	for _, key := range []query.Key{keyTenants(1, 10), keyTenant("t-2"), keyDashboard()} {
		e, ok := cache.Peek(ctx, query.Scope("tok"), key)
		require.True(t, ok, key.String())
		assert.True(t, e.Invalidated, key.String())
	}
}

func TestSuspendByOneOperatorInvalidatesOthers(t *testing.T) {
	f := newFakeBackend()
	svc, _ := newTestService(t, f)
	ctx := context.Background()

	_, err := svc.As("tok-b").Dashboard(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.As("tok-a").SuspendTenant(ctx, "t-2"))

	dash, err := svc.As("tok-b").Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, dash.Metrics.SuspendedTenants)
}

func TestFailedMutationKeepsCache(t *testing.T) {
	f := newFakeBackend()
	f.failNext = 1
	svc, cache := newTestService(t, f)
	op := svc.As("tok")
	ctx := context.Background()

	_, err := op.Tenants(ctx, 1, 10)
	require.NoError(t, err)

	err = op.SuspendTenant(ctx, "t-1")
	var apiErr *api.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "tenant already suspended", apiErr.Message)

	e, ok := cache.Peek(ctx, query.Scope("tok"), keyTenants(1, 10))
	require.True(t, ok)
	assert.False(t, e.Invalidated)

	_, err = op.Tenants(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, f.hitsFor("GET /api/platform/tenants?page=1&per_page=10"))
}

func TestUnauthorizedIsDistinctOutcome(t *testing.T) {
	f := newFakeBackend()
	svc, _ := newTestService(t, f)

	_, err := svc.As("expired").Plans(context.Background())
	assert.True(t, api.IsUnauthorized(err))
}

func TestUpdateSettingsSendsNulls(t *testing.T) {
	f := newFakeBackend()
	svc, _ := newTestService(t, f)
	name := "EduCloud"

	err := svc.As("tok").UpdateSettings(context.Background(), models.SettingsPayload{
		models.SettingPlatformName:     &name,
		models.SettingMaxLoginAttempts: nil,
	})
	require.NoError(t, err)

	f.mu.Lock()
	body := f.bodies["settings"]
	f.mu.Unlock()
	assert.JSONEq(t, `{"platform_name":"EduCloud","max_login_attempts":null}`, body)
}

func TestMissingID(t *testing.T) {
	f := newFakeBackend()
	svc, _ := newTestService(t, f)
	op := svc.As("tok")

	_, err := op.Tenant(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingID)
	assert.ErrorIs(t, op.DeleteTenant(context.Background(), ""), ErrMissingID)
}

func TestInvalidatesTable(t *testing.T) {
	cases := map[Mutation][]string{
		MutCreateTenant:   {"platform/tenants/", "platform/dashboard/", "platform/audit-logs/"},
		MutUpdateTenant:   {"platform/tenant/t-1/", "platform/tenants/", "platform/audit-logs/"},
		MutSuspendTenant:  {"platform/tenant/t-1/", "platform/tenants/", "platform/dashboard/", "platform/audit-logs/"},
		MutActivateTenant: {"platform/tenant/t-1/", "platform/tenants/", "platform/dashboard/", "platform/audit-logs/"},
		MutChangePlan:     {"platform/tenant/t-1/", "platform/tenants/", "platform/dashboard/", "platform/audit-logs/"},
		MutResetAdmin:     {"platform/tenant/t-1/", "platform/tenants/", "platform/audit-logs/"},
		MutDeleteTenant:   {"platform/tenant/t-1/", "platform/tenants/", "platform/dashboard/", "platform/audit-logs/"},
		MutAddTenantAdmin: {"platform/tenant/t-1/admins/", "platform/audit-logs/"},
		MutCreatePlan:     {"platform/plans/", "platform/audit-logs/"},
		MutUpdatePlan:     {"platform/plans/", "platform/tenants/", "platform/tenant/", "platform/dashboard/", "platform/audit-logs/"},
		MutDeletePlan:     {"platform/plans/", "platform/audit-logs/"},
		MutUpdateSettings: {"platform/settings/", "platform/audit-logs/"},
	}

	for m, want := range cases {
		var got []string
		for _, k := range Invalidates(m, "t-1") {
			got = append(got, k.String())
		}
		assert.Equal(t, want, got, string(m))
	}
}
