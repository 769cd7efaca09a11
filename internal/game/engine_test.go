// internal/game/engine_test.go
package game

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emojihunt/emojihunt/internal/events"
	"github.com/emojihunt/emojihunt/internal/models"
	"github.com/emojihunt/emojihunt/internal/store"
)

// fakeClock lets tests step wall-clock time across guard boundaries.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// newTestEngine wires an engine onto an in-memory store and broadcaster with
// a controllable clock.
func newTestEngine(t *testing.T) (*Engine, *store.MemoryStore, *events.MemoryBroadcaster, *fakeClock) {
	t.Helper()
	st := store.NewMemoryStore()
	bc := events.NewMemoryBroadcaster()
	clk := newFakeClock()

	e := NewEngine(st, bc, testLogger())
	st.Now = clk.Now
	e.Now = clk.Now
	e.Presence().Now = clk.Now
	return e, st, bc, clk
}

// setupLobby creates a lobby with the given number of seated players and
// clears setup noise from the broadcaster.
func setupLobby(t *testing.T, e *Engine, bc *events.MemoryBroadcaster, players int) *models.Lobby {
	t.Helper()
	ctx := context.Background()

	l, err := e.CreateLobby(ctx, "host", "🦊")
	require.NoError(t, err)
	for i := 1; i < players; i++ {
		var err error
		l, _, err = e.JoinLobby(ctx, l.ID, "player", "🐼")
		require.NoError(t, err)
	}
	bc.Clear()
	return l
}

// targetCellID finds a cell holding the round's target emoji.
func targetCellID(t *testing.T, r *models.Round) string {
	t.Helper()
	for _, c := range r.Cells {
		if c.Emoji == r.TargetEmoji {
			return c.ID
		}
	}
	t.Fatal("round has no target cell")
	return ""
}

// wrongCellID finds a cell not holding the target emoji.
func wrongCellID(t *testing.T, r *models.Round) string {
	t.Helper()
	for _, c := range r.Cells {
		if c.Emoji != r.TargetEmoji {
			return c.ID
		}
	}
	t.Fatal("round is all target cells")
	return ""
}

func TestStartGameHostOnly(t *testing.T) {
	e, _, bc, _ := newTestEngine(t)
	ctx := context.Background()
	l := setupLobby(t, e, bc, 2)
	nonHost := l.Players[1].ID

	ok, err := e.StartGame(ctx, l.ID, nonHost)
	require.NoError(t, err)
	assert.False(t, ok, "non-host must not start the game")

	ok, err = e.StartGame(ctx, l.ID, l.HostID)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := e.LoadLobby(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateCountdown, got.GameState)
	assert.Equal(t, 1, got.CurrentRound)
	assert.NotZero(t, got.CountdownStartMS)
	assert.Len(t, bc.Named(l.ID, events.EventGameStarted), 1)

	// A second attempt sees countdown and fails its guard.
	ok, err = e.StartGame(ctx, l.ID, l.HostID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, bc.Named(l.ID, events.EventGameStarted), 1)
}

func TestStartGameNotEnoughPlayers(t *testing.T) {
	e, _, bc, _ := newTestEngine(t)
	ctx := context.Background()
	l := setupLobby(t, e, bc, 1)

	ok, err := e.StartGame(ctx, l.ID, l.HostID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, bc.Named(l.ID, events.EventNotEnoughPlayers), 1)

	got, err := e.LoadLobby(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateWaiting, got.GameState)
}

func TestConcurrentRoundStartExactlyOnce(t *testing.T) {
	e, _, bc, clk := newTestEngine(t)
	ctx := context.Background()
	l := setupLobby(t, e, bc, 2)

	ok, err := e.StartGame(ctx, l.ID, l.HostID)
	require.NoError(t, err)
	require.True(t, ok)
	clk.Advance(CountdownMS * time.Millisecond)

	const racers = 8
	results := make(chan bool, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := e.StartRound(ctx, l.ID, 1)
			assert.NoError(t, err)
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for ok := range results {
		if ok {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one racer may perform the transition")
	assert.Len(t, bc.Named(l.ID, events.EventRoundStarted), 1)

	got, err := e.LoadLobby(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatePlaying, got.GameState)
	require.Len(t, got.Rounds, 1)
}

func TestPreloadDoesNotBlockRoundStart(t *testing.T) {
	e, _, bc, clk := newTestEngine(t)
	ctx := context.Background()
	l := setupLobby(t, e, bc, 2)

	_, err := e.StartGame(ctx, l.ID, l.HostID)
	require.NoError(t, err)

	// Mid-countdown tick preloads round content without changing phase.
	ok, err := e.Tick(ctx, l.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := e.LoadLobby(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateCountdown, got.GameState)
	require.Len(t, got.Rounds, 1)
	preloadedStart := got.Rounds[0].StartMS
	assert.Len(t, bc.Named(l.ID, events.EventRoundPreloaded), 1)

	// A second preload attempt is a no-op: the round already exists.
	ok, err = e.PreloadRound(ctx, l.ID, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	// The authoritative start still fires and restamps the clock so the
	// preloaded round gets its full playable window.
	clk.Advance(CountdownMS * time.Millisecond)
	ok, err = e.Tick(ctx, l.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = e.LoadLobby(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatePlaying, got.GameState)
	assert.Greater(t, got.Rounds[0].StartMS, preloadedStart)
	assert.Equal(t, got.Rounds[0].StartMS+int64(RoundDurationMS), got.Rounds[0].EndMS)
}

func TestRoundEndsEarlyWhenAllFound(t *testing.T) {
	e, _, bc, clk := newTestEngine(t)
	ctx := context.Background()
	l := setupLobby(t, e, bc, 2)

	_, err := e.StartGame(ctx, l.ID, l.HostID)
	require.NoError(t, err)
	clk.Advance(CountdownMS * time.Millisecond)
	_, err = e.StartRound(ctx, l.ID, 1)
	require.NoError(t, err)

	got, err := e.LoadLobby(ctx, l.ID)
	require.NoError(t, err)
	cell := targetCellID(t, &got.Rounds[0])

	clk.Advance(2 * time.Second)
	res, err := e.HandleClick(ctx, l.ID, got.Players[0].ID, cell)
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Positive(t, res.Points)

	res, err = e.HandleClick(ctx, l.ID, got.Players[1].ID, cell)
	require.NoError(t, err)
	assert.True(t, res.Found)

	// Second find completed the field: the round closed without its timer.
	got, err = e.LoadLobby(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateRoundEnd, got.GameState)
	assert.Len(t, bc.Named(l.ID, events.EventRoundEnded), 1)
	assert.Len(t, got.Rounds[0].FoundBy, 2)
}

func TestFullGameFlow(t *testing.T) {
	e, _, bc, clk := newTestEngine(t)
	ctx := context.Background()
	l := setupLobby(t, e, bc, 2)

	ok, err := e.StartGame(ctx, l.ID, l.HostID)
	require.NoError(t, err)
	require.True(t, ok)

	for round := 1; round <= l.MaxRounds; round++ {
		clk.Advance(CountdownMS * time.Millisecond)
		ok, err = e.Tick(ctx, l.ID)
		require.NoError(t, err)
		require.True(t, ok, "round %d should start", round)

		got, err := e.LoadLobby(ctx, l.ID)
		require.NoError(t, err)
		require.Equal(t, models.StatePlaying, got.GameState)
		require.Equal(t, round, got.CurrentRound)
		require.Len(t, got.Rounds, round)

		cell := targetCellID(t, &got.Rounds[round-1])
		clk.Advance(time.Second)
		for _, p := range got.Players {
			res, err := e.HandleClick(ctx, l.ID, p.ID, cell)
			require.NoError(t, err)
			require.True(t, res.Found)
		}

		got, err = e.LoadLobby(ctx, l.ID)
		require.NoError(t, err)
		require.Equal(t, models.StateRoundEnd, got.GameState)

		pause := InterRoundMS
		if round == got.MaxRounds {
			pause = FinalRoundMS
		}
		clk.Advance(time.Duration(pause) * time.Millisecond)
		ok, err = e.Tick(ctx, l.ID)
		require.NoError(t, err)
		require.True(t, ok)
	}

	got, err := e.LoadLobby(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateFinished, got.GameState)
	assert.Len(t, bc.Named(l.ID, events.EventGameEnded), 1)
	for _, p := range got.Players {
		assert.Positive(t, p.Score)
		assert.Len(t, p.RoundScores, got.MaxRounds)
	}

	ok, err = e.ResetGame(ctx, l.ID, got.HostID)
	require.NoError(t, err)
	require.True(t, ok)

	got, err = e.LoadLobby(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateWaiting, got.GameState)
	assert.Equal(t, 0, got.CurrentRound)
	assert.Empty(t, got.Rounds)
	for _, p := range got.Players {
		assert.Zero(t, p.Score)
		assert.Empty(t, p.RoundScores)
	}
	assert.Len(t, bc.Named(l.ID, events.EventGameReset), 1)
}

func TestRoundEndsOnTimer(t *testing.T) {
	e, _, bc, clk := newTestEngine(t)
	ctx := context.Background()
	l := setupLobby(t, e, bc, 2)

	_, err := e.StartGame(ctx, l.ID, l.HostID)
	require.NoError(t, err)
	clk.Advance(CountdownMS * time.Millisecond)
	_, err = e.StartRound(ctx, l.ID, 1)
	require.NoError(t, err)

	// Nobody finds anything; nothing is due until the timer runs out.
	ok, err := e.Tick(ctx, l.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	clk.Advance(RoundDurationMS * time.Millisecond)
	ok, err = e.Tick(ctx, l.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := e.LoadLobby(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateRoundEnd, got.GameState)
	for _, p := range got.Players {
		require.Len(t, p.RoundScores, 1)
		assert.False(t, p.RoundScores[0].Found)
		assert.Zero(t, p.RoundScores[0].Points)
	}
}

func TestResetOnlyFromFinished(t *testing.T) {
	e, _, bc, _ := newTestEngine(t)
	ctx := context.Background()
	l := setupLobby(t, e, bc, 2)

	ok, err := e.ResetGame(ctx, l.ID, l.HostID)
	require.NoError(t, err)
	assert.False(t, ok, "reset from waiting is a no-op")
	assert.Empty(t, bc.Named(l.ID, events.EventGameReset))
}
