package handler

import (
	"net/http"

	"github.com/school-erp/superadmin/internal/form"
)

const settingsPath = "/dashboard/settings"

// Settings shows the platform settings form.
func (h *Handler) Settings(w http.ResponseWriter, r *http.Request) {
	op := h.operator(r)
	settings, err := op.Settings(r.Context())
	if h.expired(w, r, err) {
		return
	}
	p := SettingsPage{Err: loadErr("settings", err)}
	if settings != nil {
		p.Form = form.SettingsFrom(settings)
	}
	h.renderSettings(w, r, http.StatusOK, p)
}

func (h *Handler) renderSettings(w http.ResponseWriter, r *http.Request, status int, p SettingsPage) {
	plans, err := h.operator(r).Plans(r.Context())
	if h.expired(w, r, err) {
		return
	}
	p.Plans, p.PlansErr = plans, loadErr("plans", err)
	p.NoPlan = form.NoPlan
	h.render(w, r, status, "settings", "Settings", p)
}

// SaveSettings writes the settings form. Empty fields are stored as null.
func (h *Handler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	var f form.Settings
	if errs := form.Bind(r, &f); !errs.Empty() {
		h.renderSettings(w, r, http.StatusUnprocessableEntity, SettingsPage{Form: f, Errors: errs})
		return
	}

	err := h.operator(r).UpdateSettings(r.Context(), f.Payload())
	if h.expired(w, r, err) {
		return
	}
	if err != nil {
		h.renderSettings(w, r, http.StatusUnprocessableEntity, SettingsPage{Form: f, SaveErr: saveErr(err)})
		return
	}
	h.logger.Info("platform settings updated")
	done(w, r, settingsPath, "settings-saved")
}
