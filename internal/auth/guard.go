// Package auth gates panel routes on the relay cookie and resolves the
// signed-in operator for protected pages.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/school-erp/superadmin/internal/relay"
	"github.com/school-erp/superadmin/internal/session"
	"github.com/school-erp/superadmin/pkg/api"
)

// Panel routes the gate knows about.
const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

// Forgetter drops everything cached for a credential.
type Forgetter interface {
	Forget(ctx context.Context, token string) error
}

// Gate bundles the relay cookie with the session lookup.
type Gate struct {
	logger   *slog.Logger
	relay    *relay.Relay
	sessions *session.Resolver
	forget   []Forgetter
}

// NewGate creates a new Gate. forget is called with the credential whenever
// it is found to be rejected or the operator signs out.
func NewGate(logger *slog.Logger, rl *relay.Relay, sessions *session.Resolver, forget ...Forgetter) *Gate {
	return &Gate{logger: logger, relay: rl, sessions: sessions, forget: forget}
}

// Relay returns the cookie relay.
func (g *Gate) Relay() *relay.Relay {
	return g.relay
}

// Protected reports whether path lies under the dashboard.
func Protected(path string) bool {
	return path == DashboardPath || strings.HasPrefix(path, DashboardPath+"/")
}

// LoginURL returns the login route with from as return hint. Slashes stay
// literal so the hint reads like a path.
func LoginURL(from string) string {
	if from == "" {
		return LoginPath
	}
	return LoginPath + "?from=" + strings.ReplaceAll(url.QueryEscape(from), "%2F", "/")
}

// SafeReturn returns from if it is a local dashboard path, else the dashboard.
func SafeReturn(from string) string {
	if !Protected(from) || strings.Contains(from, "//") || strings.Contains(from, `\`) {
		return DashboardPath
	}
	return from
}

// Guard redirects on cookie presence alone. Validity is checked later by
// the first backend call.
func (g *Gate) Guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		switch {
		case p == "/":
			http.Redirect(w, r, DashboardPath, http.StatusTemporaryRedirect)
			return
		case Protected(p) && !g.relay.Present(r):
			http.Redirect(w, r, LoginURL(p), http.StatusTemporaryRedirect)
			return
		case p == LoginPath && g.relay.Present(r):
			http.Redirect(w, r, DashboardPath, http.StatusTemporaryRedirect)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSession resolves the operator for protected pages. A rejected
// credential signs the operator out; other lookup failures leave the user
// unset and let the page render its own errors.
func (g *Gate) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := g.relay.Token(r)
		if !ok {
			http.Redirect(w, r, LoginURL(r.URL.Path), http.StatusSeeOther)
			return
		}

		ctx := WithCredential(r.Context(), token)
		u, err := g.sessions.Lookup(ctx, token)
		switch {
		case api.IsUnauthorized(err):
			g.Expire(w, r.WithContext(ctx))
			return
		case err != nil:
			g.logger.Warn("session lookup failed", "error", err)
		default:
			ctx = WithUser(ctx, u)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Expire clears the relay cookie and every cache entry of the request's
// credential, then sends the browser to the login page.
func (g *Gate) Expire(w http.ResponseWriter, r *http.Request) {
	g.SignOut(w, r)
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}

// SignOut clears the relay cookie and cached data without redirecting.
func (g *Gate) SignOut(w http.ResponseWriter, r *http.Request) {
	token, ok := CredentialFromContext(r.Context())
	if !ok {
		token, ok = g.relay.Token(r)
	}
	g.relay.Clear(w)
	if !ok {
		return
	}
	if err := g.sessions.Forget(r.Context(), token); err != nil {
		g.logger.Warn("failed to forget session", "error", err)
	}
	for _, f := range g.forget {
		if err := f.Forget(r.Context(), token); err != nil {
			g.logger.Warn("failed to clear cached data", "error", err)
		}
	}
}
