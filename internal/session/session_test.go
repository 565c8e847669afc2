package session

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/school-erp/superadmin/internal/query"
	"github.com/school-erp/superadmin/pkg/api"
)

func profileServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"user":{"email":"root@platform.io","name":"Root"}}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newResolver(srv *httptest.Server) *Resolver {
	cache := query.New(slog.Default(), query.NewMemory(), 5*time.Minute)
	return NewResolver(slog.Default(), api.NewClient(srv.URL), cache)
}

func TestLookupCachesPerCredential(t *testing.T) {
	var calls atomic.Int32
	r := newResolver(profileServer(t, &calls))
	ctx := context.Background()

	u, err := r.Lookup(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, "root@platform.io", u.Email)

	_, err = r.Lookup(ctx, "good")
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestLookupPreservesUnauthorized(t *testing.T) {
	var calls atomic.Int32
	r := newResolver(profileServer(t, &calls))

	_, err := r.Lookup(context.Background(), "stale")
	assert.True(t, api.IsUnauthorized(err))
}

func TestLookupWithoutTokenSkipsBackend(t *testing.T) {
	var calls atomic.Int32
	r := newResolver(profileServer(t, &calls))

	_, err := r.Lookup(context.Background(), "")
	assert.True(t, api.IsUnauthorized(err))
	assert.EqualValues(t, 0, calls.Load())
}

func TestCurrentIsNilOnFailure(t *testing.T) {
	var calls atomic.Int32
	r := newResolver(profileServer(t, &calls))

	assert.Nil(t, r.Current(context.Background(), "stale"))
	assert.NotNil(t, r.Current(context.Background(), "good"))
}

func TestForgetRefetches(t *testing.T) {
	var calls atomic.Int32
	r := newResolver(profileServer(t, &calls))
	ctx := context.Background()

	_, err := r.Lookup(ctx, "good")
	require.NoError(t, err)
	require.NoError(t, r.Forget(ctx, "good"))
	_, err = r.Lookup(ctx, "good")
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
}
