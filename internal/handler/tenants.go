package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/school-erp/superadmin/internal/auth"
	"github.com/school-erp/superadmin/internal/form"
	"github.com/school-erp/superadmin/internal/platform"
	"github.com/school-erp/superadmin/pkg/models"
)

const tenantsPath = "/dashboard/tenants"

func tenantURL(id string) string {
	return tenantsPath + "/" + url.PathEscape(id)
}

// Tenants lists tenants, ten per page.
func (h *Handler) Tenants(w http.ResponseWriter, r *http.Request) {
	h.renderTenants(w, r, http.StatusOK, pageParam(r), TenantsPage{})
}

// renderTenants fills in the list and plan data around the form state in p.
func (h *Handler) renderTenants(w http.ResponseWriter, r *http.Request, status, page int, p TenantsPage) {
	op := h.operator(r)
	list, listErr := op.Tenants(r.Context(), page, platform.TenantsPerPage)
	plans, plansErr := op.Plans(r.Context())
	if h.expired(w, r, listErr, plansErr) {
		return
	}

	p.List, p.ListErr = list, loadErr("tenants", listErr)
	p.Plans, p.PlansErr = plans, loadErr("plans", plansErr)
	if !p.Creating && p.Form.PlanID == "" {
		p.Form.PlanID = h.defaultPlan(r, plans)
	}

	p.Return = pageURL(tenantsPath, r.URL.Query(), page)
	if page > 1 {
		p.PrevURL = pageURL(tenantsPath, r.URL.Query(), page-1)
	}
	if list != nil && page < list.TotalPages {
		p.NextURL = pageURL(tenantsPath, r.URL.Query(), page+1)
	}
	h.render(w, r, status, "tenants", "Tenants", p)
}

// defaultPlan returns the configured default plan if it still exists.
func (h *Handler) defaultPlan(r *http.Request, plans []models.Plan) string {
	settings, err := h.operator(r).Settings(r.Context())
	if err != nil {
		h.logger.Debug("default plan unavailable", "error", err)
		return ""
	}
	id := settings.Get(models.SettingDefaultPlanID)
	for _, p := range plans {
		if p.ID == id {
			return id
		}
	}
	return ""
}

// CreateTenant provisions a tenant from the create form.
func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var f form.CreateTenant
	if errs := form.Bind(r, &f); !errs.Empty() {
		h.renderTenants(w, r, http.StatusUnprocessableEntity, 1, TenantsPage{Form: f, Errors: errs, Creating: true})
		return
	}

	err := h.operator(r).CreateTenant(r.Context(), f.Request())
	if h.expired(w, r, err) {
		return
	}
	if err != nil {
		h.renderTenants(w, r, http.StatusUnprocessableEntity, 1, TenantsPage{Form: f, FormErr: saveErr(err), Creating: true})
		return
	}
	h.logger.Info("tenant created", "subdomain", f.Subdomain)
	done(w, r, tenantsPath, "tenant-created")
}

// Tenant shows one tenant with its admins and actions.
func (h *Handler) Tenant(w http.ResponseWriter, r *http.Request) {
	h.renderTenant(w, r, http.StatusOK, TenantPage{ID: chi.URLParam(r, "id")})
}

func (h *Handler) renderTenant(w http.ResponseWriter, r *http.Request, status int, p TenantPage) {
	op := h.operator(r)
	tenant, err := op.Tenant(r.Context(), p.ID)
	admins, adminsErr := op.TenantAdmins(r.Context(), p.ID)
	plans, plansErr := op.Plans(r.Context())
	if h.expired(w, r, err, adminsErr, plansErr) {
		return
	}

	p.Tenant, p.Err = tenant, loadErr("tenant", err)
	p.Admins, p.AdminsErr = admins, loadErr("school admins", adminsErr)
	p.Plans, p.PlansErr = plans, loadErr("plans", plansErr)
	if tenant != nil {
		if !p.Editing {
			p.Edit = form.EditTenantFrom(tenant)
		}
		if p.PlanForm.PlanID == "" {
			p.PlanForm.PlanID = tenant.PlanID
		}
	}

	title := "Tenant"
	if tenant != nil && tenant.Name != "" {
		title = tenant.Name
	}
	h.render(w, r, status, "tenant", title, p)
}

// UpdateTenant saves the edit form.
func (h *Handler) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var f form.EditTenant
	if errs := form.Bind(r, &f); !errs.Empty() {
		h.renderTenant(w, r, http.StatusUnprocessableEntity, TenantPage{ID: id, Edit: f, EditErrors: errs, Editing: true})
		return
	}

	err := h.operator(r).UpdateTenant(r.Context(), id, f.Request())
	if h.expired(w, r, err) {
		return
	}
	if err != nil {
		h.renderTenant(w, r, http.StatusUnprocessableEntity, TenantPage{ID: id, Edit: f, EditErr: saveErr(err), Editing: true})
		return
	}
	done(w, r, tenantURL(id), "tenant-updated")
}

// ChangePlan moves the tenant to the submitted plan.
func (h *Handler) ChangePlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var f form.ChangePlan
	if errs := form.Bind(r, &f); !errs.Empty() {
		h.renderTenant(w, r, http.StatusUnprocessableEntity, TenantPage{ID: id, PlanForm: f, PlanErrors: errs})
		return
	}

	err := h.operator(r).ChangePlan(r.Context(), id, f.PlanID)
	if h.expired(w, r, err) {
		return
	}
	if err != nil {
		h.renderTenant(w, r, http.StatusUnprocessableEntity, TenantPage{ID: id, PlanForm: f, PlanErr: saveErr(err)})
		return
	}
	done(w, r, tenantURL(id), "plan-changed")
}

// AddTenantAdmin creates an additional school admin.
func (h *Handler) AddTenantAdmin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var f form.AddTenantAdmin
	if errs := form.Bind(r, &f); !errs.Empty() {
		h.renderTenant(w, r, http.StatusUnprocessableEntity, TenantPage{ID: id, Admin: f, AdminErrors: errs, AddingAdmin: true})
		return
	}

	err := h.operator(r).AddTenantAdmin(r.Context(), id, f.Request())
	if h.expired(w, r, err) {
		return
	}
	if err != nil {
		h.renderTenant(w, r, http.StatusUnprocessableEntity, TenantPage{ID: id, Admin: f, AdminErr: saveErr(err), AddingAdmin: true})
		return
	}
	done(w, r, tenantURL(id), "admin-added")
}

// tenantAction runs one of the button actions (suspend, activate,
// reset-admin, delete). The form may carry a "return" path so list rows come
// back to the same page.
func (h *Handler) tenantAction(action func(*platform.Operator, *http.Request, string) error, notice string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		back := r.PostForm.Get("return")

		err := action(h.operator(r), r, id)
		if h.expired(w, r, err) {
			return
		}

		fromList := back != "" && auth.SafeReturn(back) == back && isTenantList(back)
		if err != nil {
			h.logger.Warn("tenant action failed", "id", id, "action", notice, "error", err)
			if fromList {
				h.renderTenants(w, r, http.StatusUnprocessableEntity, listPage(back), TenantsPage{ActionErr: saveErr(err)})
				return
			}
			h.renderTenant(w, r, http.StatusUnprocessableEntity, TenantPage{ID: id, ActionErr: saveErr(err)})
			return
		}

		switch {
		case fromList:
			done(w, r, back, notice)
		case notice == "tenant-deleted":
			done(w, r, tenantsPath, notice)
		default:
			done(w, r, tenantURL(id), notice)
		}
	}
}

// SuspendTenant suspends the tenant.
func (h *Handler) SuspendTenant(w http.ResponseWriter, r *http.Request) {
	h.tenantAction(func(op *platform.Operator, r *http.Request, id string) error {
		return op.SuspendTenant(r.Context(), id)
	}, "tenant-suspended")(w, r)
}

// ActivateTenant reactivates the tenant.
func (h *Handler) ActivateTenant(w http.ResponseWriter, r *http.Request) {
	h.tenantAction(func(op *platform.Operator, r *http.Request, id string) error {
		return op.ActivateTenant(r.Context(), id)
	}, "tenant-activated")(w, r)
}

// ResetAdmin resets the primary admin's password.
func (h *Handler) ResetAdmin(w http.ResponseWriter, r *http.Request) {
	h.tenantAction(func(op *platform.Operator, r *http.Request, id string) error {
		return op.ResetAdmin(r.Context(), id)
	}, "admin-reset")(w, r)
}

// DeleteTenant soft-deletes the tenant.
func (h *Handler) DeleteTenant(w http.ResponseWriter, r *http.Request) {
	h.tenantAction(func(op *platform.Operator, r *http.Request, id string) error {
		return op.DeleteTenant(r.Context(), id)
	}, "tenant-deleted")(w, r)
}

func isTenantList(target string) bool {
	u, err := url.Parse(target)
	return err == nil && u.Path == tenantsPath
}

func listPage(target string) int {
	u, err := url.Parse(target)
	if err != nil {
		return 1
	}
	n, err := strconv.Atoi(u.Query().Get("page"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
