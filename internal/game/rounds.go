// internal/game/rounds.go
package game

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/emojihunt/emojihunt/internal/models"
)

// The virtual grid is derived from fixed canvas geometry so every client lays
// the round out identically. Capacity = floor(available width / pitch) *
// floor(available height / pitch).
const (
	canvasWidth  = 960
	canvasHeight = 540
	cellSize     = 48
	canvasMargin = 16
	cellSpacing  = 8

	gridPitch = cellSize + cellSpacing
	gridCols  = (canvasWidth - 2*canvasMargin) / gridPitch
	gridRows  = (canvasHeight - 2*canvasMargin) / gridPitch

	// GridCapacity is the number of cells every round fills.
	GridCapacity = gridCols * gridRows
)

// emojiPool is the candidate content for grid cells. It is intentionally
// smaller than GridCapacity, so rounds repeat values and the generator has to
// spread the repeats out.
var emojiPool = []string{
	"😀", "😁", "😂", "🤣", "😃", "😄", "😅", "😆", "😉", "😊",
	"😋", "😎", "😍", "😘", "🥰", "😗", "🙂", "🤗", "🤩", "🤔",
	"🤨", "😐", "😑", "😶", "🙄", "😏", "😣", "😥", "😮", "🤐",
	"😯", "😪", "😫", "🥱", "😴", "😌", "😛", "😜", "😝", "🤤",
	"😒", "😓", "😔", "😕", "🙃", "🤑", "😲", "🙁", "😖", "😞",
	"😟", "😤", "😢", "😭", "😦", "😧", "😨", "😩", "🤯", "😬",
	"😰", "😱", "🥵", "🥶", "😳", "🤪", "😵", "🥴", "😠", "😡",
	"🤬", "😷", "🤒", "🤕", "🤢", "🤮", "🤧", "😇", "🥳", "🥺",
	"🤠", "🤡", "🤥", "🤫", "🤭", "🧐", "🤓", "👻", "💀", "👽",
	"🤖", "🎃", "😺", "😸", "😹", "😻", "😼", "😽", "🙀", "😿",
	"🐶", "🐱", "🐭", "🐹", "🐰", "🦊", "🐻", "🐼", "🐨", "🐯",
	"🦁", "🐮", "🐷", "🐸", "🐵", "🐔", "🐧", "🐦", "🦆", "🦉",
}

// GenerateRound builds the content for one round: a fully filled grid with
// the target emoji guaranteed present, a unique id per cell, and timestamps
// anchored at now. The authoritative round-start transition restamps the
// times when play actually begins, so preloading a round early never shortens
// its playable window.
func GenerateRound(number int, now time.Time) models.Round {
	target := emojiPool[rand.Intn(len(emojiPool))]

	cells := make([]models.EmojiCell, 0, GridCapacity)
	prev := ""
	for row := 0; row < gridRows; row++ {
		for col := 0; col < gridCols; col++ {
			emoji := drawEmoji(prev)
			cells = append(cells, models.EmojiCell{
				ID:    uuid.NewString(),
				Emoji: emoji,
				X:     canvasMargin + col*gridPitch,
				Y:     canvasMargin + row*gridPitch,
			})
			prev = emoji
		}
	}

	// Guarantee at least one target cell.
	cells[rand.Intn(len(cells))].Emoji = target

	startMS := now.UnixMilli()
	return models.Round{
		Number:      number,
		TargetEmoji: target,
		Cells:       cells,
		StartMS:     startMS,
		EndMS:       startMS + RoundDurationMS,
		FoundBy:     []models.Find{},
	}
}

// drawEmoji picks a random pool value, re-drawing a few times to avoid
// repeating the immediately preceding cell. Best effort only; with a pool
// smaller than the grid repeats are unavoidable.
func drawEmoji(prev string) string {
	emoji := emojiPool[rand.Intn(len(emojiPool))]
	for i := 0; i < 3 && emoji == prev; i++ {
		emoji = emojiPool[rand.Intn(len(emojiPool))]
	}
	return emoji
}
