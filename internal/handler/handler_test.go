package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/school-erp/superadmin/internal/auth"
	"github.com/school-erp/superadmin/internal/platform"
	"github.com/school-erp/superadmin/internal/query"
	"github.com/school-erp/superadmin/internal/relay"
	"github.com/school-erp/superadmin/internal/session"
	"github.com/school-erp/superadmin/internal/view"
	"github.com/school-erp/superadmin/pkg/api"
)

func newTestHandler(t *testing.T) *Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := api.NewClient("http://127.0.0.1:1")
	cache := query.New(logger, query.NewMemory(), time.Minute)
	svc := platform.NewService(logger, client, cache)
	gate := auth.NewGate(logger, relay.New("", 15*time.Minute, false), session.NewResolver(logger, client, cache), svc)
	views, err := view.New(logger)
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	return New(logger, views, gate, client, svc, cache, auth.NewThrottle(60, 5))
}

func signed(t *testing.T, exp time.Time) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test"))
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func TestHealthMemoryStore(t *testing.T) {
	h := newTestHandler(t)
	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest("GET", "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	json.NewDecoder(w.Body).Decode(&body)
	if body["status"] != "ok" || body["cache"] != "memory" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestSetCookie(t *testing.T) {
	h := newTestHandler(t)
	token := signed(t, time.Now().Add(5*time.Minute))

	cases := []struct {
		name   string
		body   string
		status int
		cookie bool
	}{
		{"valid token", `{"access_token":"` + token + `"}`, http.StatusOK, true},
		{"missing token", `{}`, http.StatusBadRequest, false},
		{"invalid json", `{`, http.StatusBadRequest, false},
		{"expired token", `{"access_token":"` + signed(t, time.Now().Add(-time.Minute)) + `"}`, http.StatusBadRequest, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.SetCookie(w, httptest.NewRequest("POST", "/api/auth/set-cookie", strings.NewReader(tc.body)))

			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, w.Code)
			}
			cookies := w.Result().Cookies()
			if got := len(cookies) == 1; got != tc.cookie {
				t.Fatalf("expected cookie=%v, got %v", tc.cookie, cookies)
			}
			if tc.cookie {
				c := cookies[0]
				if c.Name != relay.DefaultCookieName || c.Value != token {
					t.Fatalf("unexpected cookie %+v", c)
				}
				if c.MaxAge <= 0 || c.MaxAge > 300 {
					t.Fatalf("max-age should follow exp, got %d", c.MaxAge)
				}
			}
		})
	}
}

func TestClearCookie(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest("POST", "/api/auth/clear-cookie", nil)
	req.AddCookie(&http.Cookie{Name: relay.DefaultCookieName, Value: "tok"})
	w := httptest.NewRecorder()
	h.ClearCookie(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected expired cookie, got %v", cookies)
	}
}

func TestLoginThrottled(t *testing.T) {
	h := newTestHandler(t)
	h.throttle = auth.NewThrottle(1, 1)

	post := func() int {
		req := httptest.NewRequest("POST", "/login", strings.NewReader("email=x"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.RemoteAddr = "10.0.0.1:4000"
		w := httptest.NewRecorder()
		h.Login(w, req)
		return w.Code
	}

	if code := post(); code != http.StatusUnprocessableEntity {
		t.Fatalf("first attempt: expected 422, got %d", code)
	}
	if code := post(); code != http.StatusTooManyRequests {
		t.Fatalf("second attempt: expected 429, got %d", code)
	}
}

func TestDone(t *testing.T) {
	w := httptest.NewRecorder()
	done(w, httptest.NewRequest("POST", "/x", nil), "/dashboard/tenants?page=3", "tenant-deleted")

	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/dashboard/tenants?ok=tenant-deleted&page=3" {
		t.Fatalf("unexpected location %s", loc)
	}
}

func TestPageURLKeepsFilters(t *testing.T) {
	q := url.Values{"action": {"tenant.created"}, "page": {"2"}, "ok": {"settings-saved"}}
	got := pageURL("/dashboard/audit", q, 3)
	if got != "/dashboard/audit?action=tenant.created&page=3" {
		t.Fatalf("unexpected url %s", got)
	}
}

func TestLoadErr(t *testing.T) {
	if got := loadErr("tenant", nil); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	notFound := &api.APIError{StatusCode: http.StatusNotFound, Message: "no such tenant"}
	if got := loadErr("tenant", notFound); got != "Tenant not found" {
		t.Fatalf("unexpected %q", got)
	}
	failed := &api.APIError{StatusCode: http.StatusInternalServerError, Message: "boom"}
	if got := loadErr("plans", failed); got != "Failed to load plans: boom" {
		t.Fatalf("unexpected %q", got)
	}
	if got := loadErr("plans", errors.New("dial tcp: refused")); got != "Failed to load plans: dial tcp: refused" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestSaveErr(t *testing.T) {
	if got := saveErr(&api.APIError{StatusCode: 409, Message: "plan in use"}); got != "plan in use" {
		t.Fatalf("unexpected %q", got)
	}
	if got := saveErr(platform.ErrMissingID); got != "Nothing selected" {
		t.Fatalf("unexpected %q", got)
	}
}
