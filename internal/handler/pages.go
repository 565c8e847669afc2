package handler

import (
	"sort"

	"github.com/school-erp/superadmin/internal/form"
	"github.com/school-erp/superadmin/pkg/models"
)

// LoginPage is the content of the sign-in page.
type LoginPage struct {
	Form   form.Login
	Errors form.Errors
	Err    string
}

// DashboardPage is the content of the metrics overview.
type DashboardPage struct {
	Dashboard *models.Dashboard
	Err       string
}

// Bar returns count as a percentage of the largest month, for the growth chart.
func (p DashboardPage) Bar(count int) int {
	if p.Dashboard == nil {
		return 0
	}
	peak := 0
	for _, m := range p.Dashboard.Growth {
		peak = max(peak, m.Count)
	}
	if peak == 0 {
		return 0
	}
	return count * 100 / peak
}

// TenantsPage is the tenant list with its create form.
type TenantsPage struct {
	List    *models.TenantPage
	ListErr string

	Plans    []models.Plan
	PlansErr string

	Form     form.CreateTenant
	Errors   form.Errors
	FormErr  string
	Creating bool

	ActionErr string
	Return    string
	PrevURL   string
	NextURL   string
}

// TenantPage is the tenant detail view with its forms.
type TenantPage struct {
	ID     string
	Tenant *models.Tenant
	Err    string

	Admins    []models.TenantAdmin
	AdminsErr string

	Plans    []models.Plan
	PlansErr string

	Edit       form.EditTenant
	EditErrors form.Errors
	EditErr    string
	Editing    bool

	PlanForm   form.ChangePlan
	PlanErrors form.Errors
	PlanErr    string

	Admin       form.AddTenantAdmin
	AdminErrors form.Errors
	AdminErr    string
	AddingAdmin bool

	ActionErr string
}

// PlansPage lists plans with inline create and edit forms.
type PlansPage struct {
	Plans []models.Plan
	Err   string

	Features    []models.PlanFeature
	FeaturesErr string

	Create       form.Plan
	CreateErrors form.Errors
	CreateErr    string
	Creating     bool

	EditID     string
	Edit       form.Plan
	EditErrors form.Errors
	EditErr    string

	ActionErr string
}

// EditFor returns the edit form state for p: the submitted values if p was
// the plan being edited, else p's current values.
func (p PlansPage) EditFor(plan models.Plan) form.Plan {
	if plan.ID == p.EditID {
		return p.Edit
	}
	return form.PlanFrom(plan)
}

// EditErrorsFor returns the validation errors for the plan being edited.
func (p PlansPage) EditErrorsFor(id string) form.Errors {
	if id == p.EditID {
		return p.EditErrors
	}
	return nil
}

// Label returns the display label of a feature key.
func (p PlansPage) Label(key string) string {
	for _, f := range p.Features {
		if f.Key == key {
			return f.Label
		}
	}
	return key
}

// FeatureKeys lists every feature shown as a toggle: known features first,
// then keys only present on plans.
func (p PlansPage) FeatureKeys() []models.PlanFeature {
	seen := make(map[string]bool, len(p.Features))
	for _, f := range p.Features {
		seen[f.Key] = true
	}
	var extra []string
	for _, plan := range p.Plans {
		for k := range plan.Features {
			if !seen[k] {
				seen[k] = true
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)

	out := append([]models.PlanFeature(nil), p.Features...)
	for _, k := range extra {
		out = append(out, models.PlanFeature{Key: k, Label: k})
	}
	return out
}

// SettingsPage is the platform settings form.
type SettingsPage struct {
	Form    form.Settings
	Errors  form.Errors
	Err     string
	SaveErr string

	Plans    []models.Plan
	PlansErr string
	NoPlan   string
}

// AuditPage is the filtered audit log listing.
type AuditPage struct {
	Logs *models.AuditLogPage
	Err  string

	Filter  form.AuditFilter
	Errors  form.Errors
	Actions []models.AuditAction

	PrevURL string
	NextURL string
}
