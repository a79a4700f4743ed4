package memory

import (
	"context"
	"testing"
	"time"

	"live-trivia-service/internal/domain"
)

func TestLeaderboardCacheExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cache := NewLeaderboardCacheWithClock(func() time.Time { return now })

	cache.Set(ctx, "quiz-1", []domain.LeaderboardRow{{UserID: "u1", TotalScore: 10}}, time.Second)
	rows, ok := cache.Get(ctx, "quiz-1")
	if !ok || len(rows) != 1 {
		t.Fatalf("expected cache hit, got %v %v", rows, ok)
	}

	now = now.Add(time.Second)
	if _, ok := cache.Get(ctx, "quiz-1"); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestLeaderboardCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	cache := NewLeaderboardCache()
	cache.Set(ctx, "quiz-1", nil, time.Minute)
	cache.Invalidate(ctx, "quiz-1")
	if _, ok := cache.Get(ctx, "quiz-1"); ok {
		t.Fatalf("expected invalidated entry to be gone")
	}
}
