package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"live-trivia-service/internal/gateway"
	"live-trivia-service/internal/logger"
)

// DefaultChannel is the pub/sub channel gateway events travel on.
const DefaultChannel = "trivia:events"

var _ gateway.Bus = (*Bus)(nil)

// Bus fans gateway events out to every instance subscribed to one channel.
// Publishers do not deliver locally; their own subscription does.
type Bus struct {
	client  *redis.Client
	channel string
	log     *logger.Logger

	mu  sync.Mutex
	sub *redis.PubSub
}

func NewBus(client *redis.Client, channel string, log *logger.Logger) *Bus {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Bus{client: client, channel: channel, log: logger.OrNop(log).With("component", "redis_bus")}
}

func (b *Bus) Publish(ctx context.Context, ev gateway.Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, raw).Err()
}

func (b *Bus) Start(ctx context.Context, deliver func(gateway.Event)) error {
	if deliver == nil {
		return errors.New("deliver callback required")
	}
	sub := b.client.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}
	b.mu.Lock()
	b.sub = sub
	b.mu.Unlock()

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				var ev gateway.Event
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					b.log.Warn("bad event payload", "error", err)
					continue
				}
				deliver(ev)
			}
		}
	}()
	return nil
}

// Close stops the subscription. The client is owned by the caller.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sub == nil {
		return nil
	}
	err := b.sub.Close()
	b.sub = nil
	return err
}
