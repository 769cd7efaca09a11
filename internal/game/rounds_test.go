// internal/game/rounds_test.go
package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRoundFillsGrid(t *testing.T) {
	now := time.Unix(1700000000, 0)
	r := GenerateRound(3, now)

	assert.Equal(t, 3, r.Number)
	require.Len(t, r.Cells, GridCapacity)

	ids := make(map[string]bool, len(r.Cells))
	targetSeen := false
	for _, c := range r.Cells {
		assert.False(t, ids[c.ID], "duplicate cell id %s", c.ID)
		ids[c.ID] = true
		assert.NotEmpty(t, c.Emoji)
		if c.Emoji == r.TargetEmoji {
			targetSeen = true
		}
	}
	assert.True(t, targetSeen, "target emoji must appear in the grid")
}

func TestGenerateRoundTimestamps(t *testing.T) {
	now := time.Unix(1700000000, 0)
	r := GenerateRound(1, now)

	assert.Equal(t, now.UnixMilli(), r.StartMS)
	assert.Equal(t, now.UnixMilli()+int64(RoundDurationMS), r.EndMS)
	assert.NotNil(t, r.FoundBy)
	assert.Empty(t, r.FoundBy)
}

func TestGenerateRoundCellsStayOnCanvas(t *testing.T) {
	r := GenerateRound(1, time.Now())
	for _, c := range r.Cells {
		assert.GreaterOrEqual(t, c.X, canvasMargin)
		assert.GreaterOrEqual(t, c.Y, canvasMargin)
		assert.LessOrEqual(t, c.X+cellSize, canvasWidth)
		assert.LessOrEqual(t, c.Y+cellSize, canvasHeight)
	}
}
