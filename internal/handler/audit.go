package handler

import (
	"net/http"

	"github.com/school-erp/superadmin/internal/form"
	"github.com/school-erp/superadmin/internal/platform"
	"github.com/school-erp/superadmin/pkg/models"
)

const auditPath = "/dashboard/audit"

// AuditLogs lists the audit trail, twenty entries per page. Invalid filters
// are reported inline and no query is made.
func (h *Handler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	var f form.AuditFilter
	errs := form.BindValues(r.URL.Query(), &f)
	p := AuditPage{Filter: f, Errors: errs, Actions: models.AuditActions}
	if !errs.Empty() {
		h.render(w, r, http.StatusUnprocessableEntity, "audit", "Audit logs", p)
		return
	}

	page := max(f.Page, 1)
	logs, err := h.operator(r).AuditLogs(r.Context(), page, platform.AuditLogsPerPage, f.Filter())
	if h.expired(w, r, err) {
		return
	}
	p.Logs, p.Err = logs, loadErr("audit logs", err)

	if page > 1 {
		p.PrevURL = pageURL(auditPath, r.URL.Query(), page-1)
	}
	if logs != nil && page < logs.Pages {
		p.NextURL = pageURL(auditPath, r.URL.Query(), page+1)
	}
	h.render(w, r, http.StatusOK, "audit", "Audit logs", p)
}
