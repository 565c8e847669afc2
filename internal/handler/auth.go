package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/school-erp/superadmin/internal/auth"
	"github.com/school-erp/superadmin/internal/form"
	"github.com/school-erp/superadmin/pkg/api"
)

// LoginForm shows the sign-in form.
func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "login", "Sign in", LoginPage{
		Form: form.Login{From: r.URL.Query().Get("from")},
	})
}

// Login authenticates against the backend and relays the access token into
// the panel's cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var f form.Login
	errs := form.Bind(r, &f)
	password := f.Password
	f.Password = ""

	if !h.throttle.Allow(clientIP(r)) {
		h.logger.Warn("login throttled", "ip", clientIP(r))
		h.render(w, r, http.StatusTooManyRequests, "login", "Sign in", LoginPage{
			Form: f,
			Err:  "Too many login attempts. Try again in a minute.",
		})
		return
	}
	if !errs.Empty() {
		h.render(w, r, http.StatusUnprocessableEntity, "login", "Sign in", LoginPage{Form: f, Errors: errs})
		return
	}

	res, err := h.client.Login(r.Context(), f.Email, password)
	if err != nil {
		status, msg := http.StatusBadGateway, "Login failed: "+err.Error()
		var apiErr *api.APIError
		if errors.As(err, &apiErr) {
			status, msg = apiErr.StatusCode, apiErr.Message
			if apiErr.StatusCode == http.StatusUnauthorized {
				msg = "Invalid email or password"
			}
		}
		h.logger.Info("login rejected", "email", f.Email, "status", status)
		h.render(w, r, status, "login", "Sign in", LoginPage{Form: f, Err: msg})
		return
	}
	if res.AccessToken == "" {
		h.logger.Error("login response without access token", "email", f.Email)
		h.render(w, r, http.StatusBadGateway, "login", "Sign in", LoginPage{Form: f, Err: "Login response did not include an access token"})
		return
	}
	if !h.gate.Relay().Set(w, res.AccessToken) {
		h.render(w, r, http.StatusBadGateway, "login", "Sign in", LoginPage{Form: f, Err: "The issued session has already expired"})
		return
	}

	h.logger.Info("operator signed in", "email", f.Email)
	http.Redirect(w, r, auth.SafeReturn(f.From), http.StatusSeeOther)
}

// Logout ends the backend session, then clears the relay cookie and every
// cached read of the credential.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := h.gate.Relay().Token(r); ok {
		if err := h.client.WithToken(token).Logout(r.Context()); err != nil {
			h.logger.Warn("backend logout failed", "error", err)
		}
	}
	h.gate.SignOut(w, r)
	http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
}

// SetCookie stores a token obtained elsewhere in the relay cookie.
func (h *Handler) SetCookie(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.AccessToken == "" {
		http.Error(w, `{"error":"Missing access_token"}`, http.StatusBadRequest)
		return
	}
	if !h.gate.Relay().Set(w, req.AccessToken) {
		http.Error(w, `{"error":"access_token has expired"}`, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// ClearCookie expires the relay cookie.
func (h *Handler) ClearCookie(w http.ResponseWriter, r *http.Request) {
	h.gate.SignOut(w, r)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}
