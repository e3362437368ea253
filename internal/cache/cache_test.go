// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// testValkeyClient returns a Redis client for tests.
// Skips if Valkey is unavailable.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")
	password := os.Getenv("VALKEY_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       15, // Use DB 15 for tests.
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping integration test: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, saveLockPrefix+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})

	return client
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestConnectValkey(t *testing.T) {
	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")

	client, err := ConnectValkey(host, port, "")
	if err != nil {
		t.Skipf("skipping: Valkey not available: %v", err)
	}
	defer client.Close()

	pong, err := client.Ping(context.Background()).Result()
	if err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if pong != "PONG" {
		t.Errorf("expected PONG, got %q", pong)
	}
}

func TestSaveLockExclusive(t *testing.T) {
	client := testValkeyClient(t)
	lock := NewSaveLock(client, time.Minute)
	ctx := context.Background()
	page := uuid.New()

	release, err := lock.Acquire(ctx, page)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := lock.Acquire(ctx, page); !errors.Is(err, ErrLocked) {
		t.Errorf("second Acquire: got %v, want ErrLocked", err)
	}

	// Other pages are independent.
	other, err := lock.Acquire(ctx, uuid.New())
	if err != nil {
		t.Fatalf("Acquire other page: %v", err)
	}
	other()

	release()
	release()
	again, err := lock.Acquire(ctx, page)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	again()
}

func TestSaveLockReleaseKeepsForeignLock(t *testing.T) {
	client := testValkeyClient(t)
	lock := NewSaveLock(client, time.Minute)
	ctx := context.Background()
	page := uuid.New()

	release, err := lock.Acquire(ctx, page)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	// Simulate expiry followed by another saver taking the lock.
	key := saveLockPrefix + page.String()
	client.Set(ctx, key, "someone-else", time.Minute)

	release()
	if v, _ := client.Get(ctx, key).Result(); v != "someone-else" {
		t.Errorf("release removed a lock it did not own: %q", v)
	}
}

func TestSaveLockDo(t *testing.T) {
	client := testValkeyClient(t)
	lock := NewSaveLock(client, 0)
	ctx := context.Background()
	page := uuid.New()

	if lock.ttl != DefaultSaveLockTTL {
		t.Errorf("ttl = %v, want default", lock.ttl)
	}

	var nested error
	err := lock.Do(ctx, page, func(ctx context.Context) error {
		nested = lock.Do(ctx, page, func(context.Context) error { return nil })
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if !errors.Is(nested, ErrLocked) {
		t.Errorf("nested Do: got %v, want ErrLocked", nested)
	}

	boom := errors.New("boom")
	if err := lock.Do(ctx, page, func(context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("Do should return fn error, got %v", err)
	}
}
