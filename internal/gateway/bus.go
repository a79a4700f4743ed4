package gateway

import (
	"context"
	"encoding/json"
	"sync"
)

// Event is one outbound message addressed to a room, to every connection,
// or both. Global events reach each connection once.
type Event struct {
	Room    string          `json:"room,omitempty"`
	Global  bool            `json:"global,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Bus carries events between gateway instances. Start hands every received
// event to deliver until ctx is cancelled or Close is called.
type Bus interface {
	Publish(ctx context.Context, ev Event) error
	Start(ctx context.Context, deliver func(Event)) error
	Close() error
}

// LocalBus delivers events in-process. It is the bus of a single instance.
type LocalBus struct {
	mu      sync.RWMutex
	deliver func(Event)
}

func NewLocalBus() *LocalBus {
	return &LocalBus{}
}

func (b *LocalBus) Publish(_ context.Context, ev Event) error {
	b.mu.RLock()
	deliver := b.deliver
	b.mu.RUnlock()
	if deliver != nil {
		deliver(ev)
	}
	return nil
}

func (b *LocalBus) Start(_ context.Context, deliver func(Event)) error {
	b.mu.Lock()
	b.deliver = deliver
	b.mu.Unlock()
	return nil
}

func (b *LocalBus) Close() error {
	b.mu.Lock()
	b.deliver = nil
	b.mu.Unlock()
	return nil
}
