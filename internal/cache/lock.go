// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// saveLockPrefix is the Valkey key prefix for page save locks.
	saveLockPrefix = "save:page:"

	// DefaultSaveLockTTL bounds how long a crashed saver can hold a lock.
	DefaultSaveLockTTL = 30 * time.Second
)

// ErrLocked is returned when another save of the same page is in flight.
var ErrLocked = errors.New("save already in progress")

// releaseScript deletes the lock only if it still holds our token, so an
// expired lock taken over by another saver is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SaveLock allows one document save per page at a time across all server
// processes sharing the Valkey instance.
type SaveLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSaveLock creates a save lock backed by the given Valkey client.
func NewSaveLock(client *redis.Client, ttl time.Duration) *SaveLock {
	if ttl <= 0 {
		ttl = DefaultSaveLockTTL
	}
	return &SaveLock{client: client, ttl: ttl}
}

// Acquire takes the lock for pageID. It returns ErrLocked when the lock is
// held. The returned release function is safe to call more than once.
func (l *SaveLock) Acquire(ctx context.Context, pageID uuid.UUID) (func(), error) {
	key := saveLockPrefix + pageID.String()
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire save lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	slog.Debug("save lock acquired", "page_id", pageID)

	released := false
	return func() {
		if released {
			return
		}
		released = true
		// The request context may already be cancelled.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			slog.Warn("save lock release failed", "page_id", pageID, "error", err)
		}
	}, nil
}

// Do runs fn while holding the lock for pageID.
func (l *SaveLock) Do(ctx context.Context, pageID uuid.UUID, fn func(context.Context) error) error {
	release, err := l.Acquire(ctx, pageID)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx)
}
