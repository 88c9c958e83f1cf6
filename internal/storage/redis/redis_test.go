package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/goodtune/studytime/internal/config"
	"github.com/goodtune/studytime/internal/storage"
)

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	// Create miniredis instance
	mr := miniredis.RunT(t)

	// miniredis.Addr() returns "host:port", so Port stays 0
	cfg := config.RedisConfig{
		Host:         mr.Addr(),
		Port:         0,
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 1,
		DialTimeout:  "5s",
		ReadTimeout:  "3s",
		WriteTimeout: "3s",
	}

	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("Failed to open Redis store: %v", err)
	}

	return store, mr
}

func TestStore_SetGet(t *testing.T) {
	store, mr := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()

	if err := store.Set(ctx, "studyTimeData_u1", `{"weekStart":"2024-01-15"}`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, err := store.Get(ctx, "studyTimeData_u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if value != `{"weekStart":"2024-01-15"}` {
		t.Errorf("Unexpected value %q", value)
	}

	// Keys are namespaced in Redis
	raw, err := mr.Get("studytime:kv:studyTimeData_u1")
	if err != nil {
		t.Fatalf("miniredis Get failed: %v", err)
	}
	if raw != value {
		t.Errorf("Expected raw value %q, got %q", value, raw)
	}
	if mr.TTL("studytime:kv:studyTimeData_u1") != 0 {
		t.Error("Expected no TTL on stored key")
	}
}

func TestStore_GetMissing(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestStore_Delete(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if err := store.Set(ctx, "userToken", "abc"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Delete(ctx, "userToken"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, "userToken"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestStore_ServerDown(t *testing.T) {
	store, mr := setupTestStore(t)
	defer func() { _ = store.Close() }()

	mr.Close()

	_, err := store.Get(context.Background(), "anything")
	if err == nil {
		t.Fatal("Expected error when server is down")
	}
	if errors.Is(err, storage.ErrNotFound) {
		t.Fatal("Connection failure must not look like a missing key")
	}
}

func TestOpen_InvalidTimeout(t *testing.T) {
	_, err := Open(config.RedisConfig{Host: "localhost", DialTimeout: "bogus", ReadTimeout: "1s", WriteTimeout: "1s"})
	if err == nil {
		t.Fatal("Expected error for invalid dial timeout")
	}
}
