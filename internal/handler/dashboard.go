package handler

import "net/http"

// Dashboard shows platform metrics and tenant growth.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.operator(r).Dashboard(r.Context())
	if h.expired(w, r, err) {
		return
	}
	h.render(w, r, http.StatusOK, "dashboard", "Dashboard", DashboardPage{
		Dashboard: d,
		Err:       loadErr("dashboard", err),
	})
}
