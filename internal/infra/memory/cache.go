package memory

import (
	"context"
	"sync"
	"time"

	"live-trivia-service/internal/app"
	"live-trivia-service/internal/domain"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// ttlCache is a process-local map whose entries expire after their ttl.
type ttlCache[T any] struct {
	clock func() time.Time
	mu    sync.RWMutex
	items map[string]entry[T]
}

func newTTLCache[T any](clock func() time.Time) *ttlCache[T] {
	if clock == nil {
		clock = time.Now
	}
	return &ttlCache[T]{clock: clock, items: make(map[string]entry[T])}
}

func (c *ttlCache[T]) get(key string) (T, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || !e.expiresAt.After(c.clock()) {
		var zero T
		return zero, false
	}
	return e.value, true
}

func (c *ttlCache[T]) set(key string, value T, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	now := c.clock()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.items {
		if !e.expiresAt.After(now) {
			delete(c.items, k)
		}
	}
	c.items[key] = entry[T]{value: value, expiresAt: now.Add(ttl)}
}

func (c *ttlCache[T]) delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// LeaderboardCache implements app.LeaderboardCache in memory.
type LeaderboardCache struct {
	c *ttlCache[[]domain.LeaderboardRow]
}

func NewLeaderboardCache() *LeaderboardCache {
	return NewLeaderboardCacheWithClock(time.Now)
}

// NewLeaderboardCacheWithClock is test-only for deterministic expiry.
func NewLeaderboardCacheWithClock(clock func() time.Time) *LeaderboardCache {
	return &LeaderboardCache{c: newTTLCache[[]domain.LeaderboardRow](clock)}
}

func (l *LeaderboardCache) Get(_ context.Context, quizID string) ([]domain.LeaderboardRow, bool) {
	return l.c.get(quizID)
}

func (l *LeaderboardCache) Set(_ context.Context, quizID string, rows []domain.LeaderboardRow, ttl time.Duration) {
	l.c.set(quizID, rows, ttl)
}

func (l *LeaderboardCache) Invalidate(_ context.Context, quizID string) {
	l.c.delete(quizID)
}

// MediaCache implements app.MediaCache in memory.
type MediaCache struct {
	c *ttlCache[app.MediaObject]
}

func NewMediaCache() *MediaCache {
	return &MediaCache{c: newTTLCache[app.MediaObject](time.Now)}
}

func (m *MediaCache) Get(_ context.Context, key string) (app.MediaObject, bool) {
	return m.c.get(key)
}

func (m *MediaCache) Set(_ context.Context, key string, obj app.MediaObject, ttl time.Duration) {
	m.c.set(key, obj, ttl)
}
