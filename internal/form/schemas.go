package form

import (
	"github.com/school-erp/superadmin/pkg/models"
)

// NoPlan is the select value for "no default plan".
const NoPlan = "__none__"

// Login is the sign-in form.
type Login struct {
	Email    string `form:"email" validate:"required,email" msg:"Invalid email"`
	Password string `form:"password,raw" validate:"required" msg:"Password is required"`
	From     string `form:"from"`
}

// CreateTenant is the new-tenant form.
type CreateTenant struct {
	Name         string `form:"name" validate:"required" msg:"Name is required"`
	Subdomain    string `form:"subdomain" validate:"required,subdomain" msg:"Subdomain is required" msg_subdomain:"Only lowercase letters, numbers, and hyphens"`
	ContactEmail string `form:"contact_email" validate:"required,email" msg:"Invalid email"`
	Phone        string `form:"phone"`
	Address      string `form:"address"`
	PlanID       string `form:"plan_id" validate:"required" msg:"Plan is required"`
	AdminName    string `form:"admin_name" validate:"required" msg:"Admin name is required"`
	AdminEmail   string `form:"admin_email" validate:"required,email" msg:"Invalid admin email"`
}

// Request builds the backend payload. Empty optional fields are omitted.
func (f CreateTenant) Request() models.CreateTenantRequest {
	return models.CreateTenantRequest{
		Name:         f.Name,
		Subdomain:    f.Subdomain,
		ContactEmail: f.ContactEmail,
		Phone:        f.Phone,
		Address:      f.Address,
		PlanID:       f.PlanID,
		AdminName:    f.AdminName,
		AdminEmail:   f.AdminEmail,
	}
}

// EditTenant is the tenant edit form.
type EditTenant struct {
	Name         string `form:"name" validate:"required" msg:"Name is required"`
	ContactEmail string `form:"contact_email" validate:"required,email" msg:"Invalid email"`
	Phone        string `form:"phone"`
	Address      string `form:"address"`
}

// EditTenantFrom pre-fills the edit form.
func EditTenantFrom(t *models.Tenant) EditTenant {
	return EditTenant{Name: t.Name, ContactEmail: t.ContactEmail, Phone: t.Phone, Address: t.Address}
}

// Request builds the backend payload. Empty optional fields are sent as null.
func (f EditTenant) Request() models.UpdateTenantRequest {
	return models.UpdateTenantRequest{
		Name:         f.Name,
		ContactEmail: f.ContactEmail,
		Phone:        nullable(f.Phone),
		Address:      nullable(f.Address),
	}
}

// ChangePlan moves a tenant to another plan.
type ChangePlan struct {
	PlanID string `form:"plan_id" validate:"required" msg:"Plan is required"`
}

// AddTenantAdmin is the additional school admin form.
type AddTenantAdmin struct {
	Email string `form:"email" validate:"required,email" msg:"Invalid email"`
	Name  string `form:"name" validate:"required" msg:"Name is required"`
}

// Request builds the backend payload.
func (f AddTenantAdmin) Request() models.AddTenantAdminRequest {
	return models.AddTenantAdminRequest{Email: f.Email, Name: f.Name}
}

// Plan is the create and edit form for plans.
type Plan struct {
	Name         string          `form:"name" validate:"required" msg:"Name is required"`
	PriceMonthly float64         `form:"price_monthly" validate:"gte=0" msg:"Price must be ≥ 0"`
	MaxStudents  int             `form:"max_students" validate:"gte=0" msg:"Must be ≥ 0"`
	MaxTeachers  int             `form:"max_teachers" validate:"gte=0" msg:"Must be ≥ 0"`
	Features     map[string]bool `form:"features"`
}

// NewPlan returns the defaults of the create form: every known feature on.
func NewPlan(features []models.PlanFeature) Plan {
	p := Plan{MaxStudents: 100, MaxTeachers: 20, Features: map[string]bool{}}
	for _, f := range features {
		p.Features[f.Key] = true
	}
	return p
}

// PlanFrom pre-fills the edit form.
func PlanFrom(p models.Plan) Plan {
	features := make(map[string]bool, len(p.Features))
	for k, v := range p.Features {
		features[k] = v
	}
	return Plan{
		Name:         p.Name,
		PriceMonthly: p.Price,
		MaxStudents:  p.MaxStudents,
		MaxTeachers:  p.MaxTeachers,
		Features:     features,
	}
}

// Request builds the backend payload. Known features missing from the
// submission are sent as disabled.
func (f Plan) Request(known []models.PlanFeature) models.PlanRequest {
	features := make(map[string]bool, len(known)+len(f.Features))
	for _, k := range known {
		features[k.Key] = false
	}
	for k, v := range f.Features {
		features[k] = v
	}
	if len(features) == 0 {
		features = nil
	}
	return models.PlanRequest{
		Name:         f.Name,
		PriceMonthly: f.PriceMonthly,
		MaxStudents:  f.MaxStudents,
		MaxTeachers:  f.MaxTeachers,
		FeaturesJSON: features,
	}
}

// Settings is the platform settings form. Every field is optional.
type Settings struct {
	PlatformName     string `form:"platform_name"`
	DefaultPlanID    string `form:"default_plan_id"`
	MaintenanceMode  string `form:"maintenance_mode" validate:"omitempty,oneof=true false" msg:"Choose on or off"`
	SessionTimeout   string `form:"session_timeout_minutes" validate:"omitempty,between=5:10080" msg:"Must be a whole number between 5 and 10080"`
	MaxLoginAttempts string `form:"max_login_attempts" validate:"omitempty,between=3:20" msg:"Must be a whole number between 3 and 20"`
	EmailFromName    string `form:"email_from_name"`
	SupportEmail     string `form:"support_email" validate:"omitempty,email" msg:"Invalid email"`
}

// SettingsFrom pre-fills the settings form.
func SettingsFrom(s models.PlatformSettings) Settings {
	return Settings{
		PlatformName:     s.Get(models.SettingPlatformName),
		DefaultPlanID:    s.Get(models.SettingDefaultPlanID),
		MaintenanceMode:  s.Get(models.SettingMaintenanceMode),
		SessionTimeout:   s.Get(models.SettingSessionTimeout),
		MaxLoginAttempts: s.Get(models.SettingMaxLoginAttempts),
		EmailFromName:    s.Get(models.SettingEmailFromName),
		SupportEmail:     s.Get(models.SettingSupportEmail),
	}
}

// Payload builds the PATCH body. Empty values become null, and so does the
// "no default plan" choice.
func (f Settings) Payload() models.SettingsPayload {
	plan := f.DefaultPlanID
	if plan == NoPlan {
		plan = ""
	}
	return models.SettingsPayload{
		models.SettingPlatformName:     nullable(f.PlatformName),
		models.SettingDefaultPlanID:    nullable(plan),
		models.SettingMaintenanceMode:  nullable(f.MaintenanceMode),
		models.SettingSessionTimeout:   nullable(f.SessionTimeout),
		models.SettingMaxLoginAttempts: nullable(f.MaxLoginAttempts),
		models.SettingEmailFromName:    nullable(f.EmailFromName),
		models.SettingSupportEmail:     nullable(f.SupportEmail),
	}
}

// AuditFilter is the audit log filter bar, submitted as a GET query.
type AuditFilter struct {
	Action   string `form:"action" validate:"omitempty,audit_action" msg:"Unknown action"`
	TenantID string `form:"tenant_id" validate:"omitempty,max=100,tenant_id" msg:"Invalid tenant ID"`
	DateFrom string `form:"date_from" validate:"omitempty,datetime=2006-01-02" msg:"Use the format YYYY-MM-DD"`
	DateTo   string `form:"date_to" validate:"omitempty,datetime=2006-01-02" msg:"Use the format YYYY-MM-DD"`
	Page     int    `form:"page" validate:"gte=0" msg:"Invalid page"`
}

// Filter returns the backend filter.
func (f AuditFilter) Filter() models.AuditFilter {
	return models.AuditFilter{Action: f.Action, TenantID: f.TenantID, DateFrom: f.DateFrom, DateTo: f.DateTo}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
