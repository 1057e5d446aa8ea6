// Package lock implements the editing lock of an article: one user session
// at a time may hold the lock. Locks live in redis with a TTL so that a
// crashed client releases its article eventually.
package lock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrLocked is returned when another session holds the lock.
	ErrLocked = errors.New("article locked by another session")
	// ErrNotHeld is returned when releasing a lock the session does not hold.
	ErrNotHeld = errors.New("lock not held by this session")
)

// Info identifies the current lock holder.
type Info struct {
	User     string    `json:"user"`
	Session  string    `json:"session"`
	LockedAt time.Time `json:"locked_at"`
}

// RedisStore keeps editing locks in redis.
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
		ttl = 2 * time.Hour
	}
	return &RedisStore{
		client: client,
		prefix: "lock:",
		ttl:    ttl,
	}
}

func (s *RedisStore) key(articleID string) string {
	return s.prefix + articleID
}

// Acquire takes the lock for the given session. Re-acquiring a lock the same
// session already holds refreshes its TTL. Another session's lock yields
// ErrLocked.
func (s *RedisStore) Acquire(ctx context.Context, articleID, user, session string) (Info, error) {
	info := Info{User: user, Session: session, LockedAt: time.Now().UTC()}
	raw, err := json.Marshal(info)
	if err != nil {
		return Info{}, fmt.Errorf("marshal lock info: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.key(articleID), raw, s.ttl).Result()
	if err != nil {
		return Info{}, fmt.Errorf("acquire lock: %w", err)
	}
	if ok {
		return info, nil
	}

	holder, err := s.Holder(ctx, articleID)
	if err != nil {
		return Info{}, err
	}
	if holder == nil || holder.Session != session {
		return Info{}, ErrLocked
	}
	// Same session: refresh.
	if err := s.client.Set(ctx, s.key(articleID), raw, s.ttl).Err(); err != nil {
		return Info{}, fmt.Errorf("refresh lock: %w", err)
	}
	return info, nil
}

// Release drops the lock if the session holds it.
func (s *RedisStore) Release(ctx context.Context, articleID, session string) error {
	holder, err := s.Holder(ctx, articleID)
	if err != nil {
		return err
	}
	if holder == nil {
		return nil
	}
	if holder.Session != session {
		return ErrNotHeld
	}
	if err := s.client.Del(ctx, s.key(articleID)).Err(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

// ForceRelease drops the lock regardless of holder. Used by the unlock
// operation of privileged users.
func (s *RedisStore) ForceRelease(ctx context.Context, articleID string) error {
	if err := s.client.Del(ctx, s.key(articleID)).Err(); err != nil {
		return fmt.Errorf("force release lock: %w", err)
	}
	return nil
}

// Holder returns the current lock holder, or nil when unlocked.
func (s *RedisStore) Holder(ctx context.Context, articleID string) (*Info, error) {
	raw, err := s.client.Get(ctx, s.key(articleID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lock holder: %w", err)
	}
	var info Info
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("unmarshal lock info: %w", err)
	}
	return &info, nil
}

// Close closes the redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
