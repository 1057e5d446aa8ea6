package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestLocks(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://"+s.Addr(), time.Minute)
	if err != nil {
		t.Fatalf("failed to create lock store: %v", err)
	}
	return store, s
}

func TestAcquireAndHolder(t *testing.T) {
	store, s := setupTestLocks(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	info, err := store.Acquire(ctx, "article-1", "user-1", "session-1")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if info.User != "user-1" || info.Session != "session-1" {
		t.Errorf("info = %+v", info)
	}

	holder, err := store.Holder(ctx, "article-1")
	if err != nil {
		t.Fatalf("Holder failed: %v", err)
	}
	if holder == nil || holder.Session != "session-1" {
		t.Errorf("holder = %+v", holder)
	}
}

func TestAcquireContested(t *testing.T) {
	store, s := setupTestLocks(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if _, err := store.Acquire(ctx, "article-1", "user-1", "session-1"); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	if _, err := store.Acquire(ctx, "article-1", "user-2", "session-2"); !errors.Is(err, ErrLocked) {
		t.Errorf("second Acquire err = %v, want ErrLocked", err)
	}
}

func TestAcquireSameSessionRefreshes(t *testing.T) {
	store, s := setupTestLocks(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if _, err := store.Acquire(ctx, "article-1", "user-1", "session-1"); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	if _, err := store.Acquire(ctx, "article-1", "user-1", "session-1"); err != nil {
		t.Errorf("re-Acquire by holder failed: %v", err)
	}
}

func TestReleaseByHolder(t *testing.T) {
	store, s := setupTestLocks(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if _, err := store.Acquire(ctx, "article-1", "user-1", "session-1"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := store.Release(ctx, "article-1", "session-1"); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	holder, err := store.Holder(ctx, "article-1")
	if err != nil {
		t.Fatalf("Holder failed: %v", err)
	}
	if holder != nil {
		t.Errorf("holder after release = %+v, want nil", holder)
	}
}

func TestReleaseByOtherSession(t *testing.T) {
	store, s := setupTestLocks(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if _, err := store.Acquire(ctx, "article-1", "user-1", "session-1"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := store.Release(ctx, "article-1", "session-2"); !errors.Is(err, ErrNotHeld) {
		t.Errorf("Release err = %v, want ErrNotHeld", err)
	}
}

func TestForceRelease(t *testing.T) {
	store, s := setupTestLocks(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if _, err := store.Acquire(ctx, "article-1", "user-1", "session-1"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := store.ForceRelease(ctx, "article-1"); err != nil {
		t.Fatalf("ForceRelease failed: %v", err)
	}
	if _, err := store.Acquire(ctx, "article-1", "user-2", "session-2"); err != nil {
		t.Errorf("Acquire after force release failed: %v", err)
	}
}

func TestLockExpires(t *testing.T) {
	store, s := setupTestLocks(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if _, err := store.Acquire(ctx, "article-1", "user-1", "session-1"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	s.FastForward(2 * time.Minute)

	if _, err := store.Acquire(ctx, "article-1", "user-2", "session-2"); err != nil {
		t.Errorf("Acquire after expiry failed: %v", err)
	}
}
