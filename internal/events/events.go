// internal/events/events.go
package events

import "github.com/emojihunt/emojihunt/internal/models"

// Name identifies a broadcast event. The strings are part of the client
// protocol and must not change.
type Name string

const (
	EventGameStarted      Name = "game-started"
	EventRoundPreloaded   Name = "roundPreloaded"
	EventRoundStarted     Name = "round-started"
	EventRoundEnded       Name = "round-ended"
	EventEmojiFound       Name = "emoji-found"
	EventWrongEmoji       Name = "wrong-emoji"
	EventGameEnded        Name = "game-ended"
	EventGameReset        Name = "game-reset"
	EventPlayerLeft       Name = "player-left"
	EventLobbyUpdated     Name = "lobby-updated"
	EventNotEnoughPlayers Name = "notEnoughPlayers"
)

// Event is one broadcast message: a name plus the payload variant belonging to
// that name. Payload is always one of the structs below; consumers switch on
// Name.
type Event struct {
	Name    Name `json:"event"`
	Payload any  `json:"payload,omitempty"`
}

// LobbyPayload carries a full lobby snapshot. Delivery is at-least-once, so
// state-bearing events always ship the whole record and clients reconcile from
// it rather than applying deltas.
type LobbyPayload struct {
	Lobby *models.Lobby `json:"lobby"`
}

// RoundPayload carries the full content of one round.
type RoundPayload struct {
	Round *models.Round `json:"round"`
}

// RoundPreloadedPayload announces that an upcoming round's content exists;
// the content itself is withheld until the round starts.
type RoundPreloadedPayload struct {
	Round int `json:"round"`
}

// RoundEndedPayload carries the finished round plus the lobby with updated
// scores.
type RoundEndedPayload struct {
	Round *models.Round `json:"round"`
	Lobby *models.Lobby `json:"lobby"`
}

// FindPayload reports one player's click result for the current round.
type FindPayload struct {
	PlayerID   string `json:"playerId"`
	Nickname   string `json:"nickname"`
	Round      int    `json:"round"`
	Points     int    `json:"points,omitempty"`
	FoundCount int    `json:"foundCount,omitempty"`
}

// PlayerLeftPayload reports a departure and, when the host left, who was
// promoted.
type PlayerLeftPayload struct {
	PlayerID  string `json:"playerId"`
	Nickname  string `json:"nickname"`
	NewHostID string `json:"newHostId,omitempty"`
}

// NotEnoughPlayersPayload explains a declined game start.
type NotEnoughPlayersPayload struct {
	Required int `json:"required"`
	Current  int `json:"current"`
}

func GameStarted(l *models.Lobby) Event {
	return Event{Name: EventGameStarted, Payload: LobbyPayload{Lobby: l}}
}

func RoundPreloaded(round int) Event {
	return Event{Name: EventRoundPreloaded, Payload: RoundPreloadedPayload{Round: round}}
}

func RoundStarted(r *models.Round) Event {
	return Event{Name: EventRoundStarted, Payload: RoundPayload{Round: r}}
}

func RoundEnded(r *models.Round, l *models.Lobby) Event {
	return Event{Name: EventRoundEnded, Payload: RoundEndedPayload{Round: r, Lobby: l}}
}

func EmojiFound(playerID, nickname string, round, points, foundCount int) Event {
	return Event{Name: EventEmojiFound, Payload: FindPayload{
		PlayerID: playerID, Nickname: nickname, Round: round,
		Points: points, FoundCount: foundCount,
	}}
}

func WrongEmoji(playerID, nickname string, round int) Event {
	return Event{Name: EventWrongEmoji, Payload: FindPayload{
		PlayerID: playerID, Nickname: nickname, Round: round,
	}}
}

func GameEnded(l *models.Lobby) Event {
	return Event{Name: EventGameEnded, Payload: LobbyPayload{Lobby: l}}
}

func GameReset(l *models.Lobby) Event {
	return Event{Name: EventGameReset, Payload: LobbyPayload{Lobby: l}}
}

func PlayerLeft(playerID, nickname, newHostID string) Event {
	return Event{Name: EventPlayerLeft, Payload: PlayerLeftPayload{
		PlayerID: playerID, Nickname: nickname, NewHostID: newHostID,
	}}
}

func LobbyUpdated(l *models.Lobby) Event {
	return Event{Name: EventLobbyUpdated, Payload: LobbyPayload{Lobby: l}}
}

func NotEnoughPlayers(required, current int) Event {
	return Event{Name: EventNotEnoughPlayers, Payload: NotEnoughPlayersPayload{
		Required: required, Current: current,
	}}
}
