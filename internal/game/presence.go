// internal/game/presence.go
package game

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/emojihunt/emojihunt/internal/models"
	"github.com/emojihunt/emojihunt/internal/store"
)

// PresenceTracker maintains the per-player heartbeat and join-time records.
// Clients refresh their heartbeat periodically; liveness is judged from the
// recorded timestamp, with the key TTLs acting as a backstop when a client
// vanishes entirely.
type PresenceTracker struct {
	store store.Store
	// Now is the clock; swapped out in tests.
	Now func() time.Time
}

// NewPresenceTracker builds a tracker on the shared store.
func NewPresenceTracker(st store.Store) *PresenceTracker {
	return &PresenceTracker{store: st, Now: time.Now}
}

// Heartbeat records the player as alive right now.
func (p *PresenceTracker) Heartbeat(ctx context.Context, lobbyID, playerID string) error {
	ts := strconv.FormatInt(p.Now().UnixMilli(), 10)
	key := models.HeartbeatKey(lobbyID, playerID)
	if err := p.store.Set(ctx, key, ts, HeartbeatTTL); err != nil {
		return fmt.Errorf("write heartbeat for %s: %w", playerID, err)
	}
	return nil
}

// MarkJoined stamps the player's join time. Written on join and rejoin; its
// TTL is the grace window before the first heartbeat is expected.
func (p *PresenceTracker) MarkJoined(ctx context.Context, lobbyID, playerID string) error {
	ts := strconv.FormatInt(p.Now().UnixMilli(), 10)
	key := models.JoinTimeKey(lobbyID, playerID)
	if err := p.store.Set(ctx, key, ts, JoinTimeTTL); err != nil {
		return fmt.Errorf("write join time for %s: %w", playerID, err)
	}
	return nil
}

// Clear removes a player's presence records, e.g. on explicit leave.
func (p *PresenceTracker) Clear(ctx context.Context, lobbyID, playerID string) error {
	_, err := p.store.Del(ctx,
		models.HeartbeatKey(lobbyID, playerID),
		models.JoinTimeKey(lobbyID, playerID),
	)
	return err
}

// IsAlive reports whether the player should still be considered present.
//
// A heartbeat age of exactly HeartbeatTimeoutMS is alive; only strictly
// greater ages disconnect. With no heartbeat yet, a join time within the
// grace window keeps the player alive. A timestamp that fails to parse never
// exceeds a threshold, so malformed data fails open and the player is kept.
func (p *PresenceTracker) IsAlive(ctx context.Context, lobbyID, playerID string) (bool, error) {
	nowMS := p.Now().UnixMilli()

	hb, ok, err := p.store.Get(ctx, models.HeartbeatKey(lobbyID, playerID))
	if err != nil {
		return false, err
	}
	if ok {
		ts, err := strconv.ParseInt(hb, 10, 64)
		if err != nil {
			return true, nil
		}
		return nowMS-ts <= HeartbeatTimeoutMS, nil
	}

	join, ok, err := p.store.Get(ctx, models.JoinTimeKey(lobbyID, playerID))
	if err != nil {
		return false, err
	}
	if ok {
		ts, err := strconv.ParseInt(join, 10, 64)
		if err != nil {
			return true, nil
		}
		return nowMS-ts <= JoinGraceMS, nil
	}

	return false, nil
}
