// internal/game/sweep_test.go
package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emojihunt/emojihunt/internal/events"
	"github.com/emojihunt/emojihunt/internal/models"
)

func TestSweepRemovesTimedOutPlayer(t *testing.T) {
	e, _, bc, clk := newTestEngine(t)
	ctx := context.Background()
	l := setupLobby(t, e, bc, 3)

	// Everyone heartbeats, then one player goes quiet past the timeout.
	for _, p := range l.Players {
		require.NoError(t, e.Presence().Heartbeat(ctx, l.ID, p.ID))
	}
	quiet := l.Players[2].ID
	clk.Advance(3 * time.Second)
	for _, p := range l.Players[:2] {
		require.NoError(t, e.Presence().Heartbeat(ctx, l.ID, p.ID))
	}
	clk.Advance(3 * time.Second)

	removed, err := e.SweepPresence(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{quiet}, removed)

	got, err := e.LoadLobby(ctx, l.ID)
	require.NoError(t, err)
	assert.Len(t, got.Players, 2)
	assert.False(t, got.HasPlayer(quiet))
	assert.Len(t, bc.Named(l.ID, events.EventPlayerLeft), 1)
}

func TestSweepReassignsHost(t *testing.T) {
	e, _, bc, _ := newTestEngine(t)
	ctx := context.Background()
	l := setupLobby(t, e, bc, 3)
	second := l.Players[1].ID

	removed, err := e.SweepPresence(ctx, l.ID, l.HostID)
	require.NoError(t, err)
	require.Len(t, removed, 1)

	got, err := e.LoadLobby(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, second, got.HostID, "first remaining player in join order becomes host")
	require.Len(t, got.Players, 2)
	assert.True(t, got.Players[0].IsHost)
	assert.False(t, got.Players[1].IsHost)

	left := bc.Named(l.ID, events.EventPlayerLeft)
	require.Len(t, left, 1)
	payload, ok := left[0].Payload.(events.PlayerLeftPayload)
	require.True(t, ok)
	assert.Equal(t, second, payload.NewHostID)
}

func TestSweepDeletesEmptyLobby(t *testing.T) {
	e, st, bc, _ := newTestEngine(t)
	ctx := context.Background()
	l := setupLobby(t, e, bc, 1)

	// Leave some auxiliary keys behind to verify the cleanup.
	_, err := st.TryAcquire(ctx, models.LockKey(l.ID, "start"), LockTTL)
	require.NoError(t, err)
	require.NoError(t, st.Set(ctx, models.EventsKey(l.ID), "[]", time.Hour))

	removed, err := e.SweepPresence(ctx, l.ID, l.HostID)
	require.NoError(t, err)
	require.Len(t, removed, 1)

	_, err = e.LoadLobby(ctx, l.ID)
	assert.ErrorIs(t, err, ErrLobbyNotFound)

	for _, key := range []string{
		models.LockKey(l.ID, "start"),
		models.EventsKey(l.ID),
		models.HeartbeatKey(l.ID, removed[0]),
		models.JoinTimeKey(l.ID, removed[0]),
	} {
		exists, err := st.Exists(ctx, key)
		require.NoError(t, err)
		assert.False(t, exists, "key %s should be deleted", key)
	}
	assert.Len(t, bc.Named(l.ID, events.EventPlayerLeft), 1)
}

func TestSweepDeduplicatesForcedAndTimedOut(t *testing.T) {
	e, _, bc, clk := newTestEngine(t)
	ctx := context.Background()
	l := setupLobby(t, e, bc, 2)

	// The second player is both past grace (no heartbeat ever written) and
	// force-removed in the same pass.
	stale := l.Players[1].ID
	require.NoError(t, e.Presence().Heartbeat(ctx, l.ID, l.Players[0].ID))
	clk.Advance(11 * time.Second)
	require.NoError(t, e.Presence().Heartbeat(ctx, l.ID, l.Players[0].ID))

	removed, err := e.SweepPresence(ctx, l.ID, stale)
	require.NoError(t, err)
	assert.Equal(t, []string{stale}, removed)
	assert.Len(t, bc.Named(l.ID, events.EventPlayerLeft), 1, "one event per removed player")
}

func TestSweepAllAliveIsNoOp(t *testing.T) {
	e, _, bc, _ := newTestEngine(t)
	ctx := context.Background()
	l := setupLobby(t, e, bc, 2)

	removed, err := e.SweepPresence(ctx, l.ID)
	require.NoError(t, err)
	assert.Empty(t, removed, "players within join grace stay seated")
	assert.Empty(t, bc.Named(l.ID, events.EventPlayerLeft))
}
