// internal/models/lobby.go
package models

// GameState is the lobby lifecycle phase. Lobbies only move forward through
// these states; the single backward edge is an explicit host reset from
// StateFinished to StateWaiting.
type GameState string

const (
	StateWaiting   GameState = "waiting"
	StateCountdown GameState = "countdown"
	StatePlaying   GameState = "playing"
	StateRoundEnd  GameState = "roundEnd"
	StateFinished  GameState = "finished"
)

// Lobby is the single shared record for one game session. It is serialized to
// JSON and stored under LobbyKey(id); every mutation is a whole-record rewrite
// guarded by a transition lock.
type Lobby struct {
	ID               string    `json:"id"` // 4-char uppercase alnum code
	HostID           string    `json:"hostId"`
	Players          []Player  `json:"players"` // insertion order == join order
	GameState        GameState `json:"gameState"`
	CurrentRound     int       `json:"currentRound"`
	MaxRounds        int       `json:"maxRounds"`
	Rounds           []Round   `json:"rounds"`
	CountdownStartMS int64     `json:"countdownStartTime,omitempty"` // epoch ms, countdown only
	RoundEndMS       int64     `json:"roundEndTime,omitempty"`       // epoch ms, roundEnd only
}

// Player is one seated participant. Exactly one player has IsHost set and it
// always mirrors Lobby.HostID.
type Player struct {
	ID          string       `json:"id"`
	Nickname    string       `json:"nickname"`
	Avatar      string       `json:"avatar"`
	Score       int          `json:"score"`
	RoundScores []RoundScore `json:"roundScores"`
	IsHost      bool         `json:"isHost"`
}

// RoundScore records one player's result for one round; at most one entry per
// round per player.
type RoundScore struct {
	Round  int  `json:"round"`
	Points int  `json:"points"`
	Found  bool `json:"found"`
}

// Round is one timed find-the-target sub-game. Rounds[i] holds round i+1.
// Once a later round starts a Round is frozen, except that FoundBy entries are
// appended to the current round while it is being played.
type Round struct {
	Number      int         `json:"number"` // 1-based
	TargetEmoji string      `json:"targetEmoji"`
	Cells       []EmojiCell `json:"emojiPositions"`
	StartMS     int64       `json:"startTime"` // epoch ms
	EndMS       int64       `json:"endTime"`   // StartMS + round duration
	FoundBy     []Find      `json:"foundBy"`   // discovery order, one entry per player
}

// EmojiCell is one slot of the round's virtual grid.
type EmojiCell struct {
	ID    string `json:"id"`
	Emoji string `json:"emoji"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
}

// Find marks one player locating the target emoji.
type Find struct {
	PlayerID  string `json:"playerId"`
	Timestamp int64  `json:"timestamp"` // epoch ms
}

// PlayerIndex returns the index of the player with the given id, or -1.
func (l *Lobby) PlayerIndex(playerID string) int {
	for i := range l.Players {
		if l.Players[i].ID == playerID {
			return i
		}
	}
	return -1
}

// HasPlayer reports whether the given id is currently seated.
func (l *Lobby) HasPlayer(playerID string) bool {
	return l.PlayerIndex(playerID) != -1
}

// Round returns the round with the given 1-based number, or nil if it has not
// been generated yet.
func (l *Lobby) Round(number int) *Round {
	if number < 1 || number > len(l.Rounds) {
		return nil
	}
	return &l.Rounds[number-1]
}

// CurrentRoundData returns the round indicated by CurrentRound, or nil if it
// has not been generated yet.
func (l *Lobby) CurrentRoundData() *Round {
	return l.Round(l.CurrentRound)
}

// HasFound reports whether the player already appears in the round's FoundBy
// list. Duplicate finds are silent no-ops, so callers check this before
// scoring.
func (r *Round) HasFound(playerID string) bool {
	for _, f := range r.FoundBy {
		if f.PlayerID == playerID {
			return true
		}
	}
	return false
}
