package auth

import (
	"context"

	"github.com/school-erp/superadmin/pkg/models"
)

type contextKey int

const (
	credentialKey contextKey = iota
	userKey
)

// WithCredential legt das weitergereichte Token im Context ab.
func WithCredential(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, credentialKey, token)
}

// CredentialFromContext gibt das Token aus dem Context zurück.
// Gibt "", false zurück wenn keins gesetzt ist (z.B. /login).
func CredentialFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(credentialKey).(string)
	return v, ok && v != ""
}

// WithUser legt den angemeldeten Operator im Context ab.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext gibt den Operator zurück oder nil.
func UserFromContext(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}
