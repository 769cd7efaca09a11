// internal/game/engine.go
package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/emojihunt/emojihunt/internal/events"
	"github.com/emojihunt/emojihunt/internal/models"
	"github.com/emojihunt/emojihunt/internal/store"
)

// ErrLobbyNotFound is returned when the lobby record is absent (expired or
// deleted).
var ErrLobbyNotFound = errors.New("lobby not found")

// OnGameEndFunc receives the final lobby once a game reaches finished, e.g.
// to enqueue the result for the historian.
type OnGameEndFunc func(ctx context.Context, l *models.Lobby)

// Engine drives every lobby phase transition. It owns no lobby state: each
// call loads the record from the shared store, evaluates a guard, and only
// mutates after winning the transition's lock. Guard-false and lock-miss are
// ordinary outcomes (callers poll), reported as (false, nil).
//
// Protocol per transition: read lobby -> check guard -> TryAcquire lock ->
// mutate -> single write -> publish. The lock key encodes the target phase
// (and round where applicable), so holding it is itself the idempotency
// token; a losing racer either misses the lock or re-reads the advanced state
// and fails its guard.
type Engine struct {
	store    store.Store
	bc       events.Broadcaster
	log      *logrus.Logger
	presence *PresenceTracker

	// Now is the clock; swapped out in tests.
	Now func() time.Time

	// OnGameEnd, when set, is invoked after a lobby transitions to finished.
	OnGameEnd OnGameEndFunc

	// generate builds round content; replaced in tests for determinism.
	generate func(number int, now time.Time) models.Round
}

// NewEngine wires an engine onto the shared store and broadcaster.
func NewEngine(st store.Store, bc events.Broadcaster, log *logrus.Logger) *Engine {
	return &Engine{
		store:    st,
		bc:       bc,
		log:      log,
		presence: NewPresenceTracker(st),
		Now:      time.Now,
		generate: GenerateRound,
	}
}

// Presence exposes the engine's presence tracker for handlers (heartbeat
// writes) and tests.
func (e *Engine) Presence() *PresenceTracker {
	return e.presence
}

// LoadLobby fetches and decodes the lobby record.
func (e *Engine) LoadLobby(ctx context.Context, lobbyID string) (*models.Lobby, error) {
	raw, ok, err := e.store.Get(ctx, models.LobbyKey(lobbyID))
	if err != nil {
		return nil, fmt.Errorf("load lobby %s: %w", lobbyID, err)
	}
	if !ok {
		return nil, ErrLobbyNotFound
	}
	var l models.Lobby
	if err := json.Unmarshal([]byte(raw), &l); err != nil {
		return nil, fmt.Errorf("decode lobby %s: %w", lobbyID, err)
	}
	return &l, nil
}

// saveLobby persists the whole record in one write, refreshing its TTL.
func (e *Engine) saveLobby(ctx context.Context, l *models.Lobby) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("encode lobby %s: %w", l.ID, err)
	}
	if err := e.store.Set(ctx, models.LobbyKey(l.ID), string(data), LobbyTTL); err != nil {
		return fmt.Errorf("save lobby %s: %w", l.ID, err)
	}
	return nil
}

func (e *Engine) publish(ctx context.Context, lobbyID string, ev events.Event) error {
	if err := e.bc.Publish(ctx, lobbyID, ev); err != nil {
		return fmt.Errorf("broadcast %s: %w", ev.Name, err)
	}
	return nil
}

// tryLock attempts the transition lock for the given phase.
func (e *Engine) tryLock(ctx context.Context, lobbyID, phase string) (bool, error) {
	return e.store.TryAcquire(ctx, models.LockKey(lobbyID, phase), LockTTL)
}

// step names the single transition applicable to an observed lobby state.
type step int

const (
	stepNone step = iota
	stepPreloadRound
	stepStartRound
	stepEndRound
	stepAdvanceRound
	stepFinishGame
)

// nextStep is the pure guard evaluation: given an observed lobby and the
// current instant it names the transition that should fire, without touching
// I/O. The waiting->countdown and finished->waiting edges are host actions
// and never fire from a timer.
func nextStep(l *models.Lobby, nowMS int64) step {
	switch l.GameState {
	case models.StateCountdown:
		if nowMS-l.CountdownStartMS >= CountdownMS {
			return stepStartRound
		}
		if l.Round(l.CurrentRound) == nil {
			return stepPreloadRound
		}
	case models.StatePlaying:
		r := l.CurrentRoundData()
		if r == nil {
			return stepNone
		}
		if nowMS >= r.EndMS || (len(l.Players) > 0 && len(r.FoundBy) == len(l.Players)) {
			return stepEndRound
		}
	case models.StateRoundEnd:
		if l.CurrentRound >= l.MaxRounds {
			if nowMS-l.RoundEndMS >= FinalRoundMS {
				return stepFinishGame
			}
		} else if nowMS-l.RoundEndMS >= InterRoundMS {
			return stepAdvanceRound
		}
	}
	return stepNone
}

// Tick evaluates the lobby once and attempts whichever transition is due.
// It is safe to call from any number of uncoordinated callers; at most one
// of them performs the mutation. Returns true if this call transitioned the
// lobby.
func (e *Engine) Tick(ctx context.Context, lobbyID string) (bool, error) {
	l, err := e.LoadLobby(ctx, lobbyID)
	if err != nil {
		if errors.Is(err, ErrLobbyNotFound) {
			return false, nil
		}
		return false, err
	}

	switch nextStep(l, e.Now().UnixMilli()) {
	case stepPreloadRound:
		return e.PreloadRound(ctx, lobbyID, l.CurrentRound)
	case stepStartRound:
		return e.StartRound(ctx, lobbyID, l.CurrentRound)
	case stepEndRound:
		return e.EndRound(ctx, lobbyID, l.CurrentRound)
	case stepAdvanceRound, stepFinishGame:
		return e.AdvanceRound(ctx, lobbyID, l.CurrentRound)
	}
	return false, nil
}

// StartGame moves waiting -> countdown for round 1. Host only; with fewer
// than MinPlayers seated it publishes notEnoughPlayers and declines.
func (e *Engine) StartGame(ctx context.Context, lobbyID, callerID string) (bool, error) {
	l, err := e.LoadLobby(ctx, lobbyID)
	if err != nil {
		return false, err
	}
	if l.GameState != models.StateWaiting || callerID != l.HostID {
		return false, nil
	}
	if len(l.Players) < MinPlayers {
		if err := e.publish(ctx, lobbyID, events.NotEnoughPlayers(MinPlayers, len(l.Players))); err != nil {
			return false, err
		}
		return false, nil
	}

	ok, err := e.tryLock(ctx, lobbyID, "start")
	if err != nil || !ok {
		return false, err
	}

	for i := range l.Players {
		l.Players[i].Score = 0
		l.Players[i].RoundScores = nil
	}
	l.GameState = models.StateCountdown
	l.CurrentRound = 1
	l.Rounds = []models.Round{}
	l.CountdownStartMS = e.Now().UnixMilli()
	l.RoundEndMS = 0

	if err := e.saveLobby(ctx, l); err != nil {
		return false, err
	}
	e.log.WithFields(logrus.Fields{"lobby": lobbyID, "host": callerID}).Info("game started")
	return true, e.publish(ctx, lobbyID, events.GameStarted(l))
}

// PreloadRound generates the upcoming round's content ahead of the
// authoritative round start, purely to mask generation latency while the
// countdown runs. Separate lock key per round, so it cannot suppress the
// round-start transition.
func (e *Engine) PreloadRound(ctx context.Context, lobbyID string, round int) (bool, error) {
	l, err := e.LoadLobby(ctx, lobbyID)
	if err != nil {
		return false, err
	}
	if l.GameState != models.StateCountdown || l.CurrentRound != round || l.Round(round) != nil {
		return false, nil
	}

	ok, err := e.tryLock(ctx, lobbyID, fmt.Sprintf("preload-%d", round))
	if err != nil || !ok {
		return false, err
	}

	l.Rounds = append(l.Rounds, e.generate(round, e.Now()))

	if err := e.saveLobby(ctx, l); err != nil {
		return false, err
	}
	e.log.WithFields(logrus.Fields{"lobby": lobbyID, "round": round}).Debug("round preloaded")
	return true, e.publish(ctx, lobbyID, events.RoundPreloaded(round))
}

// StartRound moves countdown -> playing once the countdown has elapsed.
// The round is generated here if no preload got to it first; either way its
// start/end times are restamped at this instant so the playable window is
// always the full round duration.
func (e *Engine) StartRound(ctx context.Context, lobbyID string, round int) (bool, error) {
	l, err := e.LoadLobby(ctx, lobbyID)
	if err != nil {
		return false, err
	}
	now := e.Now()
	if l.GameState != models.StateCountdown || l.CurrentRound != round ||
		now.UnixMilli()-l.CountdownStartMS < CountdownMS {
		return false, nil
	}

	ok, err := e.tryLock(ctx, lobbyID, fmt.Sprintf("round-%d-start", round))
	if err != nil || !ok {
		return false, err
	}

	r := l.Round(round)
	if r == nil {
		l.Rounds = append(l.Rounds, e.generate(round, now))
		r = l.Round(round)
	}
	r.StartMS = now.UnixMilli()
	r.EndMS = r.StartMS + RoundDurationMS
	l.GameState = models.StatePlaying
	l.CountdownStartMS = 0

	if err := e.saveLobby(ctx, l); err != nil {
		return false, err
	}
	e.log.WithFields(logrus.Fields{"lobby": lobbyID, "round": round}).Info("round started")
	return true, e.publish(ctx, lobbyID, events.RoundStarted(r))
}

// EndRound moves playing -> roundEnd when the round's timer has run out or
// every seated player has found the target. Players who never found it get
// their zero-point round score appended here.
func (e *Engine) EndRound(ctx context.Context, lobbyID string, round int) (bool, error) {
	l, err := e.LoadLobby(ctx, lobbyID)
	if err != nil {
		return false, err
	}
	nowMS := e.Now().UnixMilli()
	r := l.Round(round)
	if l.GameState != models.StatePlaying || l.CurrentRound != round || r == nil {
		return false, nil
	}
	if nowMS < r.EndMS && len(r.FoundBy) < len(l.Players) {
		return false, nil
	}

	ok, err := e.tryLock(ctx, lobbyID, fmt.Sprintf("round-%d-end", round))
	if err != nil || !ok {
		return false, err
	}

	for i := range l.Players {
		if !r.HasFound(l.Players[i].ID) && !hasRoundScore(&l.Players[i], round) {
			l.Players[i].RoundScores = append(l.Players[i].RoundScores,
				models.RoundScore{Round: round, Points: 0, Found: false})
		}
	}
	l.GameState = models.StateRoundEnd
	l.RoundEndMS = nowMS

	if err := e.saveLobby(ctx, l); err != nil {
		return false, err
	}
	e.log.WithFields(logrus.Fields{
		"lobby": lobbyID, "round": round, "found": len(r.FoundBy),
	}).Info("round ended")
	return true, e.publish(ctx, lobbyID, events.RoundEnded(r, l))
}

// AdvanceRound leaves roundEnd after the inter-round pause: into countdown
// for the next round, or into finished after the last one.
func (e *Engine) AdvanceRound(ctx context.Context, lobbyID string, round int) (bool, error) {
	l, err := e.LoadLobby(ctx, lobbyID)
	if err != nil {
		return false, err
	}
	nowMS := e.Now().UnixMilli()
	if l.GameState != models.StateRoundEnd || l.CurrentRound != round {
		return false, nil
	}
	final := round >= l.MaxRounds
	pause := int64(InterRoundMS)
	if final {
		pause = FinalRoundMS
	}
	if nowMS-l.RoundEndMS < pause {
		return false, nil
	}

	ok, err := e.tryLock(ctx, lobbyID, fmt.Sprintf("round-%d-advance", round))
	if err != nil || !ok {
		return false, err
	}

	if final {
		l.GameState = models.StateFinished
		l.RoundEndMS = 0
		if err := e.saveLobby(ctx, l); err != nil {
			return false, err
		}
		e.log.WithField("lobby", lobbyID).Info("game ended")
		if e.OnGameEnd != nil {
			e.OnGameEnd(ctx, l)
		}
		return true, e.publish(ctx, lobbyID, events.GameEnded(l))
	}

	l.CurrentRound++
	l.GameState = models.StateCountdown
	l.CountdownStartMS = nowMS
	l.RoundEndMS = 0

	if err := e.saveLobby(ctx, l); err != nil {
		return false, err
	}
	e.log.WithFields(logrus.Fields{"lobby": lobbyID, "round": l.CurrentRound}).Info("advanced to next round")
	return true, e.publish(ctx, lobbyID, events.LobbyUpdated(l))
}

// ResetGame moves finished -> waiting. Host only. Scores and rounds are
// cleared so the lobby can host a fresh game.
func (e *Engine) ResetGame(ctx context.Context, lobbyID, callerID string) (bool, error) {
	l, err := e.LoadLobby(ctx, lobbyID)
	if err != nil {
		return false, err
	}
	if l.GameState != models.StateFinished || callerID != l.HostID {
		return false, nil
	}

	ok, err := e.tryLock(ctx, lobbyID, "reset")
	if err != nil || !ok {
		return false, err
	}

	for i := range l.Players {
		l.Players[i].Score = 0
		l.Players[i].RoundScores = nil
	}
	l.GameState = models.StateWaiting
	l.CurrentRound = 0
	l.Rounds = []models.Round{}
	l.CountdownStartMS = 0
	l.RoundEndMS = 0

	if err := e.saveLobby(ctx, l); err != nil {
		return false, err
	}
	e.log.WithField("lobby", lobbyID).Info("game reset")
	return true, e.publish(ctx, lobbyID, events.GameReset(l))
}

func hasRoundScore(p *models.Player, round int) bool {
	for _, rs := range p.RoundScores {
		if rs.Round == round {
			return true
		}
	}
	return false
}
