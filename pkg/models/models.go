package models

// TenantStatus is the lifecycle state of a tenant as reported by the backend.
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended"
)

// Tenant repräsentiert eine Schule (Mandant) auf der Plattform.
type Tenant struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Subdomain     string       `json:"subdomain"`
	Plan          string       `json:"plan"`
	PlanID        string       `json:"plan_id"`
	Status        TenantStatus `json:"status"`
	StudentsCount int          `json:"students_count"`
	TeachersCount int          `json:"teachers_count"`
	ContactEmail  string       `json:"contact_email"`
	Phone         string       `json:"phone,omitempty"`
	Address       string       `json:"address,omitempty"`
	CreatedAt     string       `json:"created_at"`
}

// Suspended reports whether the tenant is currently suspended.
func (t Tenant) Suspended() bool {
	return t.Status == TenantStatusSuspended
}

// TenantPage is one page of the tenant list.
type TenantPage struct {
	Items      []Tenant `json:"items"`
	Total      int      `json:"total"`
	Page       int      `json:"page"`
	PerPage    int      `json:"per_page"`
	TotalPages int      `json:"total_pages"`
}

// TenantAdmin is a school administrator account scoped under a tenant.
type TenantAdmin struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Plan is a subscription tier.
type Plan struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       float64         `json:"price"`
	MaxStudents int             `json:"max_students"`
	MaxTeachers int             `json:"max_teachers"`
	Features    map[string]bool `json:"features,omitempty"`
}

// PlanFeature describes a toggleable plan feature.
type PlanFeature struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// DashboardMetrics aggregates platform-wide counts.
type DashboardMetrics struct {
	TotalTenants     int     `json:"total_tenants"`
	ActiveTenants    int     `json:"active_tenants"`
	SuspendedTenants int     `json:"suspended_tenants"`
	TotalStudents    int     `json:"total_students"`
	TotalTeachers    int     `json:"total_teachers"`
	MonthlyRevenue   float64 `json:"monthly_revenue"`
}

// MonthCount is one point of the tenant growth series.
type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// Dashboard is the decoded dashboard response.
type Dashboard struct {
	Metrics DashboardMetrics `json:"metrics"`
	Growth  []MonthCount     `json:"growth"`
}

// AuditAction is one of the closed set of audit log action tags.
type AuditAction string

const (
	AuditTenantCreated      AuditAction = "tenant.created"
	AuditTenantUpdated      AuditAction = "tenant.updated"
	AuditTenantSuspended    AuditAction = "tenant.suspended"
	AuditTenantActivated    AuditAction = "tenant.activated"
	AuditTenantDeleted      AuditAction = "tenant.deleted"
	AuditPlanChanged        AuditAction = "plan.changed"
	AuditPlanCreated        AuditAction = "plan.created"
	AuditPlanUpdated        AuditAction = "plan.updated"
	AuditPlanDeleted        AuditAction = "plan.deleted"
	AuditSchoolAdminReset   AuditAction = "school_admin.reset"
	AuditSchoolAdminCreated AuditAction = "school_admin.created"
	AuditSettingsUpdated    AuditAction = "settings.updated"
)

// AuditActions lists every action in display order.
var AuditActions = []AuditAction{
	AuditTenantCreated,
	AuditTenantUpdated,
	AuditTenantSuspended,
	AuditTenantActivated,
	AuditTenantDeleted,
	AuditPlanChanged,
	AuditPlanCreated,
	AuditPlanUpdated,
	AuditPlanDeleted,
	AuditSchoolAdminReset,
	AuditSchoolAdminCreated,
	AuditSettingsUpdated,
}

// Valid reports whether a is a known action.
func (a AuditAction) Valid() bool {
	for _, known := range AuditActions {
		if a == known {
			return true
		}
	}
	return false
}

// AuditLogEntry is a single read-only audit trail record.
type AuditLogEntry struct {
	ID              string         `json:"id"`
	Action          string         `json:"action"`
	TenantID        string         `json:"tenant_id,omitempty"`
	PlatformAdminID string         `json:"platform_admin_id,omitempty"`
	ExtraData       map[string]any `json:"extra_data,omitempty"`
	CreatedAt       string         `json:"created_at"`
}

// AuditLogPage is one page of audit log entries.
type AuditLogPage struct {
	Items   []AuditLogEntry `json:"items"`
	Page    int             `json:"page"`
	PerPage int             `json:"per_page"`
	Total   int             `json:"total"`
	Pages   int             `json:"pages"`
}

// AuditFilter narrows the audit log listing. Empty fields are not sent.
type AuditFilter struct {
	Action   string
	TenantID string
	DateFrom string
	DateTo   string
}

// Settings keys in display order.
const (
	SettingPlatformName     = "platform_name"
	SettingDefaultPlanID    = "default_plan_id"
	SettingMaintenanceMode  = "maintenance_mode"
	SettingSessionTimeout   = "session_timeout_minutes"
	SettingMaxLoginAttempts = "max_login_attempts"
	SettingEmailFromName    = "email_from_name"
	SettingSupportEmail     = "support_email"
)

// SettingKeys is the fixed set of platform settings the panel edits.
var SettingKeys = []string{
	SettingPlatformName,
	SettingDefaultPlanID,
	SettingMaintenanceMode,
	SettingSessionTimeout,
	SettingMaxLoginAttempts,
	SettingEmailFromName,
	SettingSupportEmail,
}

// PlatformSettings maps each known setting key to its value; null values
// from the backend are represented as "".
type PlatformSettings map[string]string

// Get returns the value for key or "".
func (s PlatformSettings) Get(key string) string {
	return s[key]
}

// SettingsPayload is the PATCH body for settings. Nil means null.
type SettingsPayload map[string]*string

// CreateTenantRequest is the payload for creating a tenant.
type CreateTenantRequest struct {
	Name         string `json:"name"`
	Subdomain    string `json:"subdomain"`
	ContactEmail string `json:"contact_email"`
	Phone        string `json:"phone,omitempty"`
	Address      string `json:"address,omitempty"`
	PlanID       string `json:"plan_id"`
	AdminName    string `json:"admin_name"`
	AdminEmail   string `json:"admin_email"`
}

// UpdateTenantRequest is the payload for editing a tenant. Empty optional
// fields are sent as null.
type UpdateTenantRequest struct {
	Name         string  `json:"name"`
	ContactEmail string  `json:"contact_email"`
	Phone        *string `json:"phone"`
	Address      *string `json:"address"`
}

// ChangePlanRequest moves a tenant to another plan.
type ChangePlanRequest struct {
	PlanID string `json:"plan_id"`
}

// AddTenantAdminRequest creates an additional school admin.
type AddTenantAdminRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// PlanRequest is the payload for creating or editing a plan.
type PlanRequest struct {
	Name         string          `json:"name"`
	PriceMonthly float64         `json:"price_monthly"`
	MaxStudents  int             `json:"max_students"`
	MaxTeachers  int             `json:"max_teachers"`
	FeaturesJSON map[string]bool `json:"features_json,omitempty"`
}
