//go:build container

package query

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T, ctx context.Context) string {
	t.Helper()

	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "6379")
	require.NoError(t, err)
	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func TestRedisStoreSharedInvalidation(t *testing.T) {
	ctx := context.Background()
	url := startRedis(t, ctx)

	st, err := NewRedis(ctx, url, time.Hour)
	require.NoError(t, err)
	defer st.Close()

	c := New(slog.Default(), st, time.Minute)
	calls := 0
	fetch := func(context.Context) (map[string]int, error) {
		calls++
		return map[string]int{"total_tenants": calls}, nil
	}

	v, err := Fetch(ctx, c, "s1", K("platform", "dashboard"), fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, v["total_tenants"])

	v, err = Fetch(ctx, c, "s1", K("platform", "dashboard"), fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, v["total_tenants"], "second read served from redis")

	_, _ = Fetch(ctx, c, "s2", K("platform", "tenants", 1, 10), func(context.Context) (string, error) { return "x", nil })
	require.NoError(t, c.Invalidate(ctx, K("platform", "dashboard")))

	_, ok := c.Peek(ctx, "s1", K("platform", "dashboard"))
	assert.False(t, ok)
	_, ok = c.Peek(ctx, "s2", K("platform", "tenants", 1, 10))
	assert.True(t, ok)

	require.NoError(t, c.Clear(ctx, "s2"))
	_, ok = c.Peek(ctx, "s2", K("platform", "tenants", 1, 10))
	assert.False(t, ok)
}
