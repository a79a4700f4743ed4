package redis

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"live-trivia-service/internal/app"
	"live-trivia-service/internal/logger"
)

var _ app.MediaCache = (*MediaCache)(nil)

// MediaCache stores proxied media as a hash: HSET media:{key} type {ct} body {bytes}.
type MediaCache struct {
	client *redis.Client
	log    *logger.Logger
	mu     sync.Mutex
	rnd    *rand.Rand
}

func NewMediaCache(client *redis.Client, log *logger.Logger) *MediaCache {
	return &MediaCache{
		client: client,
		log:    logger.OrNop(log).With("component", "redis_media"),
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *MediaCache) Get(ctx context.Context, key string) (app.MediaObject, bool) {
	fields, err := c.client.HGetAll(ctx, mediaKey(key)).Result()
	if err != nil {
		c.log.Warn("media cache read failed", "key", key, "error", err)
		return app.MediaObject{}, false
	}
	body, ok := fields["body"]
	if !ok {
		return app.MediaObject{}, false
	}
	return app.MediaObject{ContentType: fields["type"], Body: []byte(body)}, true
}

func (c *MediaCache) Set(ctx context.Context, key string, obj app.MediaObject, ttl time.Duration) {
	k := mediaKey(key)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, k, "type", obj.ContentType, "body", obj.Body)
	if ttl > 0 {
		pipe.Expire(ctx, k, c.jitter(ttl))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn("media cache write failed", "key", key, "error", err)
	}
}

// jitter spreads expiry by up to 10% so entries written together do not
// expire together.
func (c *MediaCache) jitter(ttl time.Duration) time.Duration {
	spread := int64(ttl / 10)
	if spread <= 0 {
		return ttl
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return ttl + time.Duration(c.rnd.Int63n(spread))
}

func mediaKey(key string) string {
	return "media:" + key
}
