package platform

import (
	"net/url"
	"strconv"

	"github.com/school-erp/superadmin/internal/query"
	"github.com/school-erp/superadmin/pkg/models"
)

const root = "platform"

func keyDashboard() query.Key { return query.K(root, "dashboard") }
func keyTenantsAll() query.Key { return query.K(root, "tenants") }
func keyTenants(page, perPage int) query.Key { return query.K(root, "tenants", page, perPage) }
func keyTenantAll() query.Key { return query.K(root, "tenant") }
func keyTenant(id string) query.Key { return query.K(root, "tenant", id) }
func keyTenantAdmins(id string) query.Key { return query.K(root, "tenant", id, "admins") }
func keyPlans() query.Key { return query.K(root, "plans") }
func keyPlanFeatures() query.Key { return query.K(root, "plan-features") }
func keySettings() query.Key { return query.K(root, "settings") }
func keyAuditLogsAll() query.Key { return query.K(root, "audit-logs") }

func keyAuditLogs(page, perPage int, f models.AuditFilter) query.Key {
	return query.K(root, "audit-logs", page, perPage, query.Params(auditValues(f)))
}

func auditValues(f models.AuditFilter) url.Values {
	return url.Values{
		"action":    {f.Action},
		"tenant_id": {f.TenantID},
		"date_from": {f.DateFrom},
		"date_to":   {f.DateTo},
	}
}

func auditQuery(page, perPage int, f models.AuditFilter) string {
	v := auditValues(f)
	v.Set("page", strconv.Itoa(page))
	v.Set("per_page", strconv.Itoa(perPage))
	return query.Params(v)
}

// Mutation names a write operation against the backend.
type Mutation string

const (
	MutCreateTenant   Mutation = "create-tenant"
	MutUpdateTenant   Mutation = "update-tenant"
	MutSuspendTenant  Mutation = "suspend-tenant"
	MutActivateTenant Mutation = "activate-tenant"
	MutChangePlan     Mutation = "change-plan"
	MutResetAdmin     Mutation = "reset-admin"
	MutDeleteTenant   Mutation = "delete-tenant"
	MutAddTenantAdmin Mutation = "add-tenant-admin"
	MutCreatePlan     Mutation = "create-plan"
	MutUpdatePlan     Mutation = "update-plan"
	MutDeletePlan     Mutation = "delete-plan"
	MutUpdateSettings Mutation = "update-settings"
)

type family int

const (
	famDashboard family = iota
	famTenants
	famTenant
	famTenantDetails
	famTenantAdmins
	famPlans
	famSettings
	famAuditLogs
)

// Every mutation writes an audit log entry on the backend, so audit-logs is
// part of every row. Tenant rows and details show the plan name and the
// dashboard revenue is priced from plans, so plan changes reach those too.
var invalidates = map[Mutation][]family{
	MutCreateTenant:   {famTenants, famDashboard, famAuditLogs},
	MutUpdateTenant:   {famTenant, famTenants, famAuditLogs},
	MutSuspendTenant:  {famTenant, famTenants, famDashboard, famAuditLogs},
	MutActivateTenant: {famTenant, famTenants, famDashboard, famAuditLogs},
	MutChangePlan:     {famTenant, famTenants, famDashboard, famAuditLogs},
	MutResetAdmin:     {famTenant, famTenants, famAuditLogs},
	MutDeleteTenant:   {famTenant, famTenants, famDashboard, famAuditLogs},
	MutAddTenantAdmin: {famTenantAdmins, famAuditLogs},
	MutCreatePlan:     {famPlans, famAuditLogs},
	MutUpdatePlan:     {famPlans, famTenants, famTenantDetails, famDashboard, famAuditLogs},
	MutDeletePlan:     {famPlans, famAuditLogs},
	MutUpdateSettings: {famSettings, famAuditLogs},
}

// Invalidates returns the cache key prefixes a successful m invalidates.
// tenantID is used by tenant-scoped families.
func Invalidates(m Mutation, tenantID string) []query.Key {
	fams := invalidates[m]
	keys := make([]query.Key, 0, len(fams))
	for _, f := range fams {
		switch f {
		case famDashboard:
			keys = append(keys, keyDashboard())
		case famTenants:
			keys = append(keys, keyTenantsAll())
		case famTenant:
			keys = append(keys, keyTenant(tenantID))
		case famTenantDetails:
			keys = append(keys, keyTenantAll())
		case famTenantAdmins:
			keys = append(keys, keyTenantAdmins(tenantID))
		case famPlans:
			keys = append(keys, keyPlans())
		case famSettings:
			keys = append(keys, keySettings())
		case famAuditLogs:
			keys = append(keys, keyAuditLogsAll())
		}
	}
	return keys
}
