// internal/game/clicks.go
package game

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/emojihunt/emojihunt/internal/events"
	"github.com/emojihunt/emojihunt/internal/models"
)

// ClickResult is what a player's click was worth. Found=false with zero
// points covers every no-op case: wrong cell, closed round, duplicate find,
// unknown player.
type ClickResult struct {
	Found  bool `json:"found"`
	Points int  `json:"points"`
}

// HandleClick scores one player's click on a grid cell. A correct first find
// appends to the round's foundBy list, credits the player, and broadcasts
// emoji-found; a wrong cell broadcasts wrong-emoji; clicks on a completed
// round and duplicate finds mutate nothing. When the find completes the
// field, the round is ended immediately rather than waiting for its timer.
//
// The duplicate-find check against foundBy is what keeps retried requests
// from double-scoring; the whole-record rewrite happens only after it passes.
func (e *Engine) HandleClick(ctx context.Context, lobbyID, playerID, cellID string) (ClickResult, error) {
	miss := ClickResult{}

	l, err := e.LoadLobby(ctx, lobbyID)
	if err != nil {
		return miss, err
	}
	if l.GameState != models.StatePlaying {
		return miss, nil
	}
	pi := l.PlayerIndex(playerID)
	if pi == -1 {
		return miss, nil
	}
	r := l.CurrentRoundData()
	if r == nil {
		return miss, nil
	}

	nowMS := e.Now().UnixMilli()
	if nowMS >= r.EndMS {
		// Round is over; the end transition just hasn't fired yet.
		return miss, nil
	}
	if r.HasFound(playerID) {
		return miss, nil
	}

	var cell *models.EmojiCell
	for i := range r.Cells {
		if r.Cells[i].ID == cellID {
			cell = &r.Cells[i]
			break
		}
	}
	if cell == nil || cell.Emoji != r.TargetEmoji {
		if err := e.publish(ctx, lobbyID, events.WrongEmoji(playerID, l.Players[pi].Nickname, r.Number)); err != nil {
			return miss, err
		}
		return miss, nil
	}

	points := ScoreFind(r.StartMS, nowMS, len(r.FoundBy))
	r.FoundBy = append(r.FoundBy, models.Find{PlayerID: playerID, Timestamp: nowMS})
	l.Players[pi].Score += points
	l.Players[pi].RoundScores = append(l.Players[pi].RoundScores,
		models.RoundScore{Round: r.Number, Points: points, Found: true})

	if err := e.saveLobby(ctx, l); err != nil {
		return miss, err
	}
	e.log.WithFields(logrus.Fields{
		"lobby": lobbyID, "player": playerID, "round": r.Number, "points": points,
	}).Debug("emoji found")

	if err := e.publish(ctx, lobbyID,
		events.EmojiFound(playerID, l.Players[pi].Nickname, r.Number, points, len(r.FoundBy))); err != nil {
		return ClickResult{Found: true, Points: points}, err
	}

	// Everyone found it: close the round now instead of waiting out the timer.
	if len(r.FoundBy) == len(l.Players) {
		if _, err := e.EndRound(ctx, lobbyID, r.Number); err != nil {
			return ClickResult{Found: true, Points: points}, err
		}
	}
	return ClickResult{Found: true, Points: points}, nil
}
