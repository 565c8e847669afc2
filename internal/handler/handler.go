package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/school-erp/superadmin/internal/auth"
	"github.com/school-erp/superadmin/internal/platform"
	"github.com/school-erp/superadmin/internal/query"
	"github.com/school-erp/superadmin/internal/view"
	"github.com/school-erp/superadmin/pkg/api"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	logger   *slog.Logger
	views    *view.Renderer
	gate     *auth.Gate
	client   *api.Client
	platform *platform.Service
	cache    *query.Cache
	throttle *auth.Throttle
}

// New creates a new Handler.
func New(logger *slog.Logger, views *view.Renderer, gate *auth.Gate, client *api.Client, svc *platform.Service, cache *query.Cache, throttle *auth.Throttle) *Handler {
	return &Handler{
		logger:   logger,
		views:    views,
		gate:     gate,
		client:   client,
		platform: svc,
		cache:    cache,
		throttle: throttle,
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Health responds with the server health status. A shared cache that cannot
// be reached makes the panel unhealthy.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "ok", "cache": "memory"}
	status := http.StatusOK

	if p, ok := h.cache.Store().(pinger); ok {
		body["cache"] = "redis"
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			h.logger.Warn("health check: cache unreachable", "error", err)
			body["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// operator binds the platform service to the request's credential.
func (h *Handler) operator(r *http.Request) *platform.Operator {
	token, _ := auth.CredentialFromContext(r.Context())
	return h.platform.As(token)
}

var notices = map[string]string{
	"tenant-created":   "Tenant created.",
	"tenant-updated":   "Tenant updated.",
	"tenant-suspended": "Tenant suspended.",
	"tenant-activated": "Tenant activated.",
	"tenant-deleted":   "Tenant deleted.",
	"plan-changed":     "Plan changed.",
	"admin-reset":      "Admin password reset requested.",
	"admin-added":      "School admin added.",
	"plan-created":     "Plan created.",
	"plan-updated":     "Plan updated.",
	"plan-deleted":     "Plan deleted.",
	"settings-saved":   "Settings saved.",
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page, title string, content any) {
	h.views.Render(w, status, page, view.Page{
		Title:   title,
		Path:    r.URL.Path,
		User:    auth.UserFromContext(r.Context()),
		Notice:  notices[r.URL.Query().Get("ok")],
		Content: content,
	})
}

// done finishes a successful mutation with a redirect so a reload does not
// resubmit the form.
func done(w http.ResponseWriter, r *http.Request, target, notice string) {
	u, err := url.Parse(target)
	if err != nil {
		u = &url.URL{Path: auth.DashboardPath}
	}
	q := u.Query()
	q.Set("ok", notice)
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusSeeOther)
}

// expired signs the operator out when err says the credential was rejected.
// It reports whether the response has been written.
func (h *Handler) expired(w http.ResponseWriter, r *http.Request, errs ...error) bool {
	for _, err := range errs {
		if api.IsUnauthorized(err) {
			h.logger.Info("credential rejected by backend, signing out", "path", r.URL.Path)
			h.gate.Expire(w, r)
			return true
		}
	}
	return false
}

// loadErr is the inline message for a failed read.
func loadErr(what string, err error) string {
	if err == nil {
		return ""
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusNotFound {
			return strings.ToUpper(what[:1]) + what[1:] + " not found"
		}
		return "Failed to load " + what + ": " + apiErr.Message
	}
	return "Failed to load " + what + ": " + err.Error()
}

// saveErr is the message shown next to a form whose submission failed.
func saveErr(err error) string {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if errors.Is(err, platform.ErrMissingID) {
		return "Nothing selected"
	}
	return "Failed to save: " + err.Error()
}

func pageParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// pageURL links to another page of the current listing, keeping filters.
func pageURL(path string, q url.Values, page int) string {
	v := url.Values{}
	for k, vals := range q {
		if k != "ok" && k != "page" {
			v[k] = vals
		}
	}
	v.Set("page", strconv.Itoa(page))
	return path + "?" + v.Encode()
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
