// Package relay stores the operator's backend access token in a cookie on the
// panel's own origin. Panel and backend live on different origins, so the
// backend's session cookie is never visible here.
package relay

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultCookieName is the only cookie name the panel recognizes.
const DefaultCookieName = "auth-token"

// Relay sets, reads and clears the relay cookie.
type Relay struct {
	Name   string
	MaxAge time.Duration
	Secure bool

	now func() time.Time
}

// New creates a Relay. maxAge bounds the cookie lifetime; secure should be
// true in production.
func New(name string, maxAge time.Duration, secure bool) *Relay {
	if name == "" {
		name = DefaultCookieName
	}
	return &Relay{Name: name, MaxAge: maxAge, Secure: secure, now: time.Now}
}

// Token returns the relayed credential, if any.
func (rl *Relay) Token(r *http.Request) (string, bool) {
	c, err := r.Cookie(rl.Name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// Present reports whether the request carries a non-empty relay cookie.
func (rl *Relay) Present(r *http.Request) bool {
	_, ok := rl.Token(r)
	return ok
}

// Set stores token. It returns false without writing when the token has
// already expired.
func (rl *Relay) Set(w http.ResponseWriter, token string) bool {
	ttl := rl.Lifetime(token)
	if ttl <= 0 {
		return false
	}
	http.SetCookie(w, rl.cookie(token, int(ttl/time.Second)))
	return true
}

// Clear expires the cookie immediately.
func (rl *Relay) Clear(w http.ResponseWriter) {
	http.SetCookie(w, rl.cookie("", -1))
}

// Lifetime returns how long the cookie for token should live: the time until
// the JWT exp claim, capped at MaxAge. Tokens without a readable exp get MaxAge.
func (rl *Relay) Lifetime(token string) time.Duration {
	claims := jwt.RegisteredClaims{}
	// The backend verifies the signature; only exp is read here.
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil || claims.ExpiresAt == nil {
		return rl.MaxAge
	}
	ttl := claims.ExpiresAt.Time.Sub(rl.now())
	if ttl > rl.MaxAge {
		return rl.MaxAge
	}
	if ttl < time.Second {
		return 0
	}
	return ttl
}

// MaxAge -1 renders as Max-Age=0.
func (rl *Relay) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     rl.Name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   rl.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
