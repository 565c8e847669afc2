package query

import (
	"context"
	"time"
)

// Entry is one cached query result. Data holds the JSON encoding of the
// decoded value.
type Entry struct {
	Data        []byte    `json:"data,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
	Err         string    `json:"error,omitempty"`
	Invalidated bool      `json:"invalidated,omitempty"`
}

// Fresh reports whether e can be served without refetching.
func (e Entry) Fresh(now time.Time, staleTime time.Duration) bool {
	return len(e.Data) > 0 && !e.Invalidated && e.Err == "" && now.Sub(e.FetchedAt) < staleTime
}

// Store persists cache entries under scoped keys ("<scope>|<key>").
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, e Entry) error
	// Invalidate marks every entry whose key part starts with prefix, in
	// every scope, and returns how many were affected.
	Invalidate(ctx context.Context, prefix string) (int, error)
	// DeleteScope removes all entries of one scope.
	DeleteScope(ctx context.Context, scope string) error
	// Prune removes entries fetched before cutoff.
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}
