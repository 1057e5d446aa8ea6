// Package autosave keeps volatile work-in-progress snapshots of articles.
// Snapshots live in redis with a TTL; the relational autosave table is the
// durable fallback when redis is not configured.
package autosave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no snapshot exists for the article.
var ErrNotFound = errors.New("autosave snapshot not found")

// RedisStore keeps autosave snapshots in redis.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to redis and verifies the connection.
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, ttl), nil
}

// NewRedisStoreWithClient wraps an existing redis client.
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{
		client: client,
		prefix: "autosave:",
		ttl:    ttl,
	}
}

func (s *RedisStore) key(articleID string) string {
	return s.prefix + articleID
}

// Save stores the latest snapshot of an article, resetting the TTL.
func (s *RedisStore) Save(ctx context.Context, articleID string, doc json.RawMessage) error {
	if err := s.client.Set(ctx, s.key(articleID), []byte(doc), s.ttl).Err(); err != nil {
		return fmt.Errorf("save autosave snapshot: %w", err)
	}
	return nil
}

// Get returns the current snapshot of an article.
func (s *RedisStore) Get(ctx context.Context, articleID string) (json.RawMessage, error) {
	raw, err := s.client.Get(ctx, s.key(articleID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get autosave snapshot: %w", err)
	}
	return json.RawMessage(raw), nil
}

// Delete drops the snapshot of an article. Deleting a missing snapshot is
// not an error.
func (s *RedisStore) Delete(ctx context.Context, articleID string) error {
	if err := s.client.Del(ctx, s.key(articleID)).Err(); err != nil {
		return fmt.Errorf("delete autosave snapshot: %w", err)
	}
	return nil
}

// Close closes the redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
