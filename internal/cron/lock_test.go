package cron

import (
	"context"
	"testing"
	"time"
)

type memStore struct {
	values map[string]string
	ttl    time.Duration
}

func (m *memStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	m.ttl = ttl
	return true, nil
}

func (m *memStore) DeleteIfValue(_ context.Context, key, value string) (bool, error) {
	if m.values[key] != value {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func TestRedisLockAcquireRelease(t *testing.T) {
	store := &memStore{values: map[string]string{}}
	lock, err := NewRedisLock(store, "newsapi:lock:cron", 0)
	if err != nil {
		t.Fatalf("construct lock: %v", err)
	}
	ctx := context.Background()

	ok, err := lock.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("acquire = %v, %v", ok, err)
	}
	if store.ttl != defaultLockTTL {
		t.Fatalf("expected default ttl, got %v", store.ttl)
	}

	other, _ := NewRedisLock(store, "newsapi:lock:cron", time.Minute)
	if ok, _ := other.Acquire(ctx); ok {
		t.Fatal("second holder must not acquire")
	}
	if err := other.Release(ctx); err != nil {
		t.Fatalf("release by non owner: %v", err)
	}
	if _, held := store.values["newsapi:lock:cron"]; !held {
		t.Fatal("non owner released the lock")
	}

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, held := store.values["newsapi:lock:cron"]; held {
		t.Fatal("owner release left the key behind")
	}
}

func TestRedisLockLeavesForeignValue(t *testing.T) {
	store := &memStore{values: map[string]string{}}
	lock, _ := NewRedisLock(store, "k", time.Minute)
	ctx := context.Background()
	if ok, _ := lock.Acquire(ctx); !ok {
		t.Fatal("expected acquire")
	}
	// simulate ttl expiry followed by another worker taking over
	store.values["k"] = "someone-else"
	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if store.values["k"] != "someone-else" {
		t.Fatal("release removed a lock owned by another worker")
	}
}

func TestNewRedisLockValidates(t *testing.T) {
	if _, err := NewRedisLock(nil, "k", time.Minute); err == nil {
		t.Fatal("expected client error")
	}
	if _, err := NewRedisLock(&memStore{}, "", time.Minute); err == nil {
		t.Fatal("expected key error")
	}
}

func TestLocalLock(t *testing.T) {
	lock := NewLocalLock()
	ctx := context.Background()
	if ok, _ := lock.Acquire(ctx); !ok {
		t.Fatal("expected first acquire")
	}
	if ok, _ := lock.Acquire(ctx); ok {
		t.Fatal("expected second acquire to fail")
	}
	_ = lock.Release(ctx)
	if ok, _ := lock.Acquire(ctx); !ok {
		t.Fatal("expected acquire after release")
	}
}
