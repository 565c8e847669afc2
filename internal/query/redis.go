package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares cache entries between panel replicas. Invalidation
// deletes the matching keys, so every replica refetches on the next read.
type RedisStore struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

// NewRedis connects to redisURL and verifies the connection. Entries expire
// after ttl.
func NewRedis(ctx context.Context, redisURL string, ttl time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client, namespace: "panel:query", ttl: ttl}, nil
}

func (s *RedisStore) redisKey(key string) string {
	return s.namespace + ":" + key
}

func (s *RedisStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	raw, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("redis get: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, fmt.Errorf("decode entry: %w", err)
	}
	return e, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	if err := s.client.Set(ctx, s.redisKey(key), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate deletes entries of every scope whose key starts with prefix.
// Encoded keys contain no glob metacharacters.
func (s *RedisStore) Invalidate(ctx context.Context, prefix string) (int, error) {
	return s.deleteMatching(ctx, s.namespace+":*|"+prefix+"*")
}

func (s *RedisStore) DeleteScope(ctx context.Context, scope string) error {
	_, err := s.deleteMatching(ctx, s.namespace+":"+scope+"|*")
	return err
}

// Prune is a no-op: Redis expires entries on its own.
func (s *RedisStore) Prune(context.Context, time.Time) (int, error) {
	return 0, nil
}

func (s *RedisStore) deleteMatching(ctx context.Context, pattern string) (int, error) {
	n := 0
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				return n, fmt.Errorf("redis del: %w", err)
			}
			n += len(batch)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return n, fmt.Errorf("redis scan: %w", err)
	}
	if len(batch) > 0 {
		if err := s.client.Del(ctx, batch...).Err(); err != nil {
			return n, fmt.Errorf("redis del: %w", err)
		}
		n += len(batch)
	}
	return n, nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
