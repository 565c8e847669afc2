// Package session answers "who is signed in" for a relayed credential.
package session

import (
	"context"
	"log/slog"

	"github.com/school-erp/superadmin/internal/query"
	"github.com/school-erp/superadmin/pkg/api"
	"github.com/school-erp/superadmin/pkg/models"
)

var sessionKey = query.K("auth", "session")

// Resolver looks up the operator behind a credential. Results are cached per
// credential with the cache's freshness window.
type Resolver struct {
	logger *slog.Logger
	client *api.Client
	cache  *query.Cache
}

// NewResolver creates a new Resolver. cache is usually a view with the
// session freshness window (see query.Cache.WithStaleTime).
func NewResolver(logger *slog.Logger, client *api.Client, cache *query.Cache) *Resolver {
	return &Resolver{logger: logger, client: client, cache: cache}
}

// Lookup returns the operator for token. Errors are returned unchanged so
// callers can tell a rejected credential (api.ErrUnauthorized) from an outage.
func (s *Resolver) Lookup(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, api.ErrUnauthorized
	}
	return query.Fetch(ctx, s.cache, query.Scope(token), sessionKey, func(ctx context.Context) (*models.User, error) {
		return s.client.WithToken(token).Profile(ctx)
	})
}

// Current is Lookup for display purposes: any failure means no session.
func (s *Resolver) Current(ctx context.Context, token string) *models.User {
	u, err := s.Lookup(ctx, token)
	if err != nil {
		s.logger.Debug("no session", "error", err)
		return nil
	}
	return u
}

// Forget drops the cached session of token.
func (s *Resolver) Forget(ctx context.Context, token string) error {
	return s.cache.Clear(ctx, query.Scope(token))
}
