// Package platform reads and writes the backend's platform resources on
// behalf of one operator, caching reads and invalidating them after writes.
package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/school-erp/superadmin/internal/query"
	"github.com/school-erp/superadmin/pkg/api"
	"github.com/school-erp/superadmin/pkg/models"
)

// Page sizes used by the panel's listings.
const (
	TenantsPerPage   = 10
	AuditLogsPerPage = 20
)

// ErrMissingID is returned when an operation needs an id and none was given.
var ErrMissingID = errors.New("id is required")

// Service is shared by all requests.
type Service struct {
	logger *slog.Logger
	api    *api.Client
	cache  *query.Cache
}

// NewService creates a new Service.
func NewService(logger *slog.Logger, client *api.Client, cache *query.Cache) *Service {
	return &Service{logger: logger, api: client, cache: cache}
}

// As binds the service to one operator credential.
func (s *Service) As(token string) *Operator {
	return &Operator{
		svc:   s,
		api:   s.api.WithToken(token),
		scope: query.Scope(token),
	}
}

// Forget drops every cached read of token.
func (s *Service) Forget(ctx context.Context, token string) error {
	return s.cache.Clear(ctx, query.Scope(token))
}

// Operator performs reads and writes with one credential. Its reads are
// cached in the credential's own partition.
type Operator struct {
	svc   *Service
	api   *api.Client
	scope string
}

// Forget drops every cached read of this operator.
func (o *Operator) Forget(ctx context.Context) error {
	return o.svc.cache.Clear(ctx, o.scope)
}

func (o *Operator) get(ctx context.Context, path string) ([]byte, error) {
	resp, err := o.api.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if !resp.IsJSON() {
		return nil, fmt.Errorf("decode response: %s returned %q", path, resp.ContentType)
	}
	return resp.Body, nil
}

func tenantPath(id string, action ...string) string {
	p := "/api/platform/tenants/" + url.PathEscape(id)
	for _, a := range action {
		p += "/" + a
	}
	return p
}

// Dashboard returns aggregate platform metrics.
func (o *Operator) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	return query.Fetch(ctx, o.svc.cache, o.scope, keyDashboard(), func(ctx context.Context) (*models.Dashboard, error) {
		body, err := o.get(ctx, "/api/platform/dashboard")
		if err != nil {
			return nil, err
		}
		return decodeDashboard(body)
	})
}

// Tenants returns one page of tenants.
func (o *Operator) Tenants(ctx context.Context, page, perPage int) (*models.TenantPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = TenantsPerPage
	}
	return query.Fetch(ctx, o.svc.cache, o.scope, keyTenants(page, perPage), func(ctx context.Context) (*models.TenantPage, error) {
		path := "/api/platform/tenants?page=" + strconv.Itoa(page) + "&per_page=" + strconv.Itoa(perPage)
		body, err := o.get(ctx, path)
		if err != nil {
			return nil, err
		}
		return decodeTenantPage(body, perPage)
	})
}

// Tenant returns a single tenant.
func (o *Operator) Tenant(ctx context.Context, id string) (*models.Tenant, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	return query.Fetch(ctx, o.svc.cache, o.scope, keyTenant(id), func(ctx context.Context) (*models.Tenant, error) {
		body, err := o.get(ctx, tenantPath(id))
		if err != nil {
			return nil, err
		}
		return decodeTenant(body)
	})
}

// TenantAdmins lists the school admins of a tenant.
func (o *Operator) TenantAdmins(ctx context.Context, id string) ([]models.TenantAdmin, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	return query.Fetch(ctx, o.svc.cache, o.scope, keyTenantAdmins(id), func(ctx context.Context) ([]models.TenantAdmin, error) {
		body, err := o.get(ctx, tenantPath(id, "admins"))
		if err != nil {
			return nil, err
		}
		return decodeTenantAdmins(body)
	})
}

// Plans lists all subscription plans.
func (o *Operator) Plans(ctx context.Context) ([]models.Plan, error) {
	return query.Fetch(ctx, o.svc.cache, o.scope, keyPlans(), func(ctx context.Context) ([]models.Plan, error) {
		body, err := o.get(ctx, "/api/platform/plans")
		if err != nil {
			return nil, err
		}
		return decodePlans(body)
	})
}

// PlanFeatures lists the feature toggles a plan can carry.
func (o *Operator) PlanFeatures(ctx context.Context) ([]models.PlanFeature, error) {
	return query.Fetch(ctx, o.svc.cache, o.scope, keyPlanFeatures(), func(ctx context.Context) ([]models.PlanFeature, error) {
		body, err := o.get(ctx, "/api/platform/plan-features")
		if err != nil {
			return nil, err
		}
		return decodePlanFeatures(body)
	})
}

// Settings returns the platform settings.
func (o *Operator) Settings(ctx context.Context) (models.PlatformSettings, error) {
	return query.Fetch(ctx, o.svc.cache, o.scope, keySettings(), func(ctx context.Context) (models.PlatformSettings, error) {
		body, err := o.get(ctx, "/api/platform/settings")
		if err != nil {
			return nil, err
		}
		return decodeSettings(body)
	})
}

// AuditLogs returns one filtered page of the audit trail.
func (o *Operator) AuditLogs(ctx context.Context, page, perPage int, f models.AuditFilter) (*models.AuditLogPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = AuditLogsPerPage
	}
	return query.Fetch(ctx, o.svc.cache, o.scope, keyAuditLogs(page, perPage, f), func(ctx context.Context) (*models.AuditLogPage, error) {
		body, err := o.get(ctx, "/api/platform/audit-logs?"+auditQuery(page, perPage, f))
		if err != nil {
			return nil, err
		}
		return decodeAuditLogs(body, perPage)
	})
}

// mutate runs call and, only when it succeeds, invalidates the families
// listed for m. Invalidation failures are logged; the write already happened.
func (o *Operator) mutate(ctx context.Context, m Mutation, tenantID string, call func(ctx context.Context) error) error {
	if err := call(ctx); err != nil {
		o.svc.logger.Debug("mutation failed", "mutation", m, "error", err)
		return err
	}
	if err := o.svc.cache.Invalidate(ctx, Invalidates(m, tenantID)...); err != nil {
		o.svc.logger.Error("cache invalidation failed", "mutation", m, "error", err)
	}
	o.svc.logger.Info("mutation applied", "mutation", m, "tenant_id", tenantID)
	return nil
}

func (o *Operator) send(method, path string, body any) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := o.api.Do(ctx, method, path, body)
		return err
	}
}

// CreateTenant provisions a new tenant with its first admin.
func (o *Operator) CreateTenant(ctx context.Context, req models.CreateTenantRequest) error {
	return o.mutate(ctx, MutCreateTenant, "", o.send(http.MethodPost, "/api/platform/tenants", req))
}

// UpdateTenant edits a tenant's contact details.
func (o *Operator) UpdateTenant(ctx context.Context, id string, req models.UpdateTenantRequest) error {
	if id == "" {
		return ErrMissingID
	}
	return o.mutate(ctx, MutUpdateTenant, id, o.send(http.MethodPatch, tenantPath(id), req))
}

// SuspendTenant suspends a tenant.
func (o *Operator) SuspendTenant(ctx context.Context, id string) error {
	if id == "" {
		return ErrMissingID
	}
	return o.mutate(ctx, MutSuspendTenant, id, o.send(http.MethodPatch, tenantPath(id, "suspend"), nil))
}

// ActivateTenant reactivates a suspended tenant.
func (o *Operator) ActivateTenant(ctx context.Context, id string) error {
	if id == "" {
		return ErrMissingID
	}
	return o.mutate(ctx, MutActivateTenant, id, o.send(http.MethodPatch, tenantPath(id, "activate"), nil))
}

// SetTenantStatus suspends or activates depending on suspend.
func (o *Operator) SetTenantStatus(ctx context.Context, id string, suspend bool) error {
	if suspend {
		return o.SuspendTenant(ctx, id)
	}
	return o.ActivateTenant(ctx, id)
}

// ChangePlan moves a tenant to another plan.
func (o *Operator) ChangePlan(ctx context.Context, id, planID string) error {
	if id == "" || planID == "" {
		return ErrMissingID
	}
	return o.mutate(ctx, MutChangePlan, id, o.send(http.MethodPatch, tenantPath(id, "change-plan"), models.ChangePlanRequest{PlanID: planID}))
}

// ResetAdmin asks the backend to reset the tenant's primary admin password.
func (o *Operator) ResetAdmin(ctx context.Context, id string) error {
	if id == "" {
		return ErrMissingID
	}
	return o.mutate(ctx, MutResetAdmin, id, o.send(http.MethodPost, tenantPath(id, "reset-admin"), nil))
}

// DeleteTenant soft-deletes a tenant.
func (o *Operator) DeleteTenant(ctx context.Context, id string) error {
	if id == "" {
		return ErrMissingID
	}
	return o.mutate(ctx, MutDeleteTenant, id, o.send(http.MethodDelete, tenantPath(id), nil))
}

// AddTenantAdmin creates an additional school admin for a tenant.
func (o *Operator) AddTenantAdmin(ctx context.Context, id string, req models.AddTenantAdminRequest) error {
	if id == "" {
		return ErrMissingID
	}
	return o.mutate(ctx, MutAddTenantAdmin, id, o.send(http.MethodPost, tenantPath(id, "admins"), req))
}

// CreatePlan creates a subscription plan.
func (o *Operator) CreatePlan(ctx context.Context, req models.PlanRequest) error {
	return o.mutate(ctx, MutCreatePlan, "", o.send(http.MethodPost, "/api/platform/plans", req))
}

// UpdatePlan edits a subscription plan.
func (o *Operator) UpdatePlan(ctx context.Context, id string, req models.PlanRequest) error {
	if id == "" {
		return ErrMissingID
	}
	return o.mutate(ctx, MutUpdatePlan, "", o.send(http.MethodPatch, "/api/platform/plans/"+url.PathEscape(id), req))
}

// DeletePlan deletes a plan. The backend rejects plans still in use.
func (o *Operator) DeletePlan(ctx context.Context, id string) error {
	if id == "" {
		return ErrMissingID
	}
	return o.mutate(ctx, MutDeletePlan, "", o.send(http.MethodDelete, "/api/platform/plans/"+url.PathEscape(id), nil))
}

// UpdateSettings writes the platform settings. Nil values are sent as null.
func (o *Operator) UpdateSettings(ctx context.Context, payload models.SettingsPayload) error {
	return o.mutate(ctx, MutUpdateSettings, "", o.send(http.MethodPatch, "/api/platform/settings", payload))
}
