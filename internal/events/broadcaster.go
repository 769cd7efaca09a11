// internal/events/broadcaster.go
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/emojihunt/emojihunt/internal/models"
)

// Broadcaster delivers events to every subscriber of a lobby. Delivery is
// fire-and-forget and at-least-once; the game core never waits on receipt.
type Broadcaster interface {
	Publish(ctx context.Context, lobbyID string, ev Event) error
}

// catchupListMax bounds the per-lobby catch-up list; reconnecting clients only
// need recent history, everything else is reconciled from a state fetch.
const catchupListMax = 100

// catchupListTTL keeps the event list alive as long as the lobby record.
const catchupListTTL = 3600 * time.Second

// RedisBroadcaster publishes each event on the lobby's pub/sub channel and
// mirrors it onto the lobby's capped event list so reconnecting clients can
// catch up.
type RedisBroadcaster struct {
	rdb *redis.Client
}

// NewRedisBroadcaster wraps a Redis client, typically the same one backing the
// store.
func NewRedisBroadcaster(rdb *redis.Client) *RedisBroadcaster {
	return &RedisBroadcaster{rdb: rdb}
}

// Channel returns the pub/sub channel name for a lobby. Subscribers (the
// WebSocket relay) listen here.
func Channel(lobbyID string) string {
	return models.EventsKey(lobbyID)
}

func (b *RedisBroadcaster) Publish(ctx context.Context, lobbyID string, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", ev.Name, err)
	}

	ch := Channel(lobbyID)
	if err := b.rdb.Publish(ctx, ch, data).Err(); err != nil {
		return fmt.Errorf("publish %s to %s: %w", ev.Name, ch, err)
	}

	// Mirror onto the capped catch-up list. Best effort: a failure here does
	// not invalidate the pub/sub delivery above.
	pipe := b.rdb.Pipeline()
	pipe.RPush(ctx, ch, data)
	pipe.LTrim(ctx, ch, -catchupListMax, -1)
	pipe.Expire(ctx, ch, catchupListTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append %s to event list %s: %w", ev.Name, ch, err)
	}
	return nil
}

// Subscribe opens a pub/sub subscription for one lobby. The caller owns the
// returned PubSub and must Close it.
func (b *RedisBroadcaster) Subscribe(ctx context.Context, lobbyID string) *redis.PubSub {
	return b.rdb.Subscribe(ctx, Channel(lobbyID))
}

// MemoryBroadcaster collects events in memory. Used by tests and by local
// single-process runs.
type MemoryBroadcaster struct {
	mu     sync.Mutex
	events map[string][]Event // lobbyID -> events in publish order
}

func NewMemoryBroadcaster() *MemoryBroadcaster {
	return &MemoryBroadcaster{events: make(map[string][]Event)}
}

func (b *MemoryBroadcaster) Publish(_ context.Context, lobbyID string, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[lobbyID] = append(b.events[lobbyID], ev)
	return nil
}

// Events returns a copy of everything published for a lobby.
func (b *MemoryBroadcaster) Events(lobbyID string) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.events[lobbyID]))
	copy(out, b.events[lobbyID])
	return out
}

// Named returns the published events carrying the given name, in order.
func (b *MemoryBroadcaster) Named(lobbyID string, name Name) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Event
	for _, ev := range b.events[lobbyID] {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

// Clear drops all collected events.
func (b *MemoryBroadcaster) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = make(map[string][]Event)
}
