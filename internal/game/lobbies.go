// internal/game/lobbies.go
package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/emojihunt/emojihunt/internal/events"
	"github.com/emojihunt/emojihunt/internal/models"
)

var (
	// ErrLobbyFull is returned when a join would exceed MaxPlayers.
	ErrLobbyFull = errors.New("lobby is full")
	// ErrGameInProgress is returned when joining a lobby that already left
	// the waiting state.
	ErrGameInProgress = errors.New("game already in progress")
)

// lobby codes use uppercase alphanumerics. 0/O and 1/I are skipped since
// players read these off someone else's screen.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func newLobbyCode() string {
	var b strings.Builder
	for i := 0; i < 4; i++ {
		b.WriteByte(codeAlphabet[rand.Intn(len(codeAlphabet))])
	}
	return b.String()
}

// CreateLobby allocates a fresh lobby code, seats the creator as host, and
// persists the record.
func (e *Engine) CreateLobby(ctx context.Context, nickname, avatar string) (*models.Lobby, error) {
	var code string
	for attempt := 0; ; attempt++ {
		code = newLobbyCode()
		exists, err := e.store.Exists(ctx, models.LobbyKey(code))
		if err != nil {
			return nil, err
		}
		if !exists {
			break
		}
		if attempt >= 10 {
			return nil, fmt.Errorf("could not allocate a free lobby code")
		}
	}

	host := models.Player{
		ID:       uuid.NewString(),
		Nickname: nickname,
		Avatar:   avatar,
		IsHost:   true,
	}
	l := &models.Lobby{
		ID:        code,
		HostID:    host.ID,
		Players:   []models.Player{host},
		GameState: models.StateWaiting,
		MaxRounds: DefaultMaxRounds,
		Rounds:    []models.Round{},
	}

	if err := e.saveLobby(ctx, l); err != nil {
		return nil, err
	}
	if err := e.presence.MarkJoined(ctx, code, host.ID); err != nil {
		return nil, err
	}
	e.log.WithFields(logrus.Fields{"lobby": code, "host": host.ID}).Info("lobby created")
	return l, nil
}

// JoinLobby seats a new player in a waiting lobby and announces the updated
// roster.
func (e *Engine) JoinLobby(ctx context.Context, lobbyID, nickname, avatar string) (*models.Lobby, *models.Player, error) {
	l, err := e.LoadLobby(ctx, lobbyID)
	if err != nil {
		return nil, nil, err
	}
	if l.GameState != models.StateWaiting {
		return nil, nil, ErrGameInProgress
	}
	if len(l.Players) >= MaxPlayers {
		return nil, nil, ErrLobbyFull
	}

	p := models.Player{
		ID:       uuid.NewString(),
		Nickname: nickname,
		Avatar:   avatar,
	}
	l.Players = append(l.Players, p)

	if err := e.saveLobby(ctx, l); err != nil {
		return nil, nil, err
	}
	if err := e.presence.MarkJoined(ctx, lobbyID, p.ID); err != nil {
		return nil, nil, err
	}
	e.log.WithFields(logrus.Fields{"lobby": lobbyID, "player": p.ID}).Info("player joined")
	return l, &p, e.publish(ctx, lobbyID, events.LobbyUpdated(l))
}

// RejoinLobby refreshes the join-time grace window for a seated player whose
// client reconnected, and returns the current lobby for reconciliation.
func (e *Engine) RejoinLobby(ctx context.Context, lobbyID, playerID string) (*models.Lobby, error) {
	l, err := e.LoadLobby(ctx, lobbyID)
	if err != nil {
		return nil, err
	}
	if !l.HasPlayer(playerID) {
		return nil, ErrLobbyNotFound
	}
	if err := e.presence.MarkJoined(ctx, lobbyID, playerID); err != nil {
		return nil, err
	}
	return l, nil
}

// LeaveLobby removes a player immediately, regardless of heartbeat state.
func (e *Engine) LeaveLobby(ctx context.Context, lobbyID, playerID string) error {
	_, err := e.SweepPresence(ctx, lobbyID, playerID)
	return err
}
