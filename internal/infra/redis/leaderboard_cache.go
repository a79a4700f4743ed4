package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"live-trivia-service/internal/app"
	"live-trivia-service/internal/domain"
	"live-trivia-service/internal/logger"
)

var _ app.LeaderboardCache = (*LeaderboardCache)(nil)

// LeaderboardCache keeps aggregated rows as JSON under quiz:{id}:leaderboard
// so every instance reuses one aggregation per TTL.
type LeaderboardCache struct {
	client *redis.Client
	log    *logger.Logger
}

func NewLeaderboardCache(client *redis.Client, log *logger.Logger) *LeaderboardCache {
	return &LeaderboardCache{client: client, log: logger.OrNop(log).With("component", "redis_leaderboard")}
}

func (c *LeaderboardCache) Get(ctx context.Context, quizID string) ([]domain.LeaderboardRow, bool) {
	raw, err := c.client.Get(ctx, leaderboardKey(quizID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("leaderboard cache read failed", "quiz_id", quizID, "error", err)
		}
		return nil, false
	}
	var rows []domain.LeaderboardRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		c.log.Warn("leaderboard cache entry is corrupt", "quiz_id", quizID, "error", err)
		return nil, false
	}
	return rows, true
}

func (c *LeaderboardCache) Set(ctx context.Context, quizID string, rows []domain.LeaderboardRow, ttl time.Duration) {
	raw, err := json.Marshal(rows)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, leaderboardKey(quizID), raw, ttl).Err(); err != nil {
		c.log.Warn("leaderboard cache write failed", "quiz_id", quizID, "error", err)
	}
}

func (c *LeaderboardCache) Invalidate(ctx context.Context, quizID string) {
	if err := c.client.Del(ctx, leaderboardKey(quizID)).Err(); err != nil {
		c.log.Warn("leaderboard cache invalidate failed", "quiz_id", quizID, "error", err)
	}
}

func leaderboardKey(quizID string) string {
	return "quiz:" + quizID + ":leaderboard"
}
