// internal/game/scoring.go
package game

// Scoring is a pure function of when the click landed and how many players
// found the target first. Finding the target is worth a flat base, a time
// bonus that decays linearly to zero across the round, and an order bonus
// that shrinks in fixed steps for each earlier finder.
const (
	basePoints = 100

	maxTimeBonus    = 150
	timeBonusPerMS  = 200 // 1 point lost per 200ms elapsed

	firstFinderBonus = 50
	orderBonusStep   = 25
)

// ScoreFind returns the points awarded for locating the target emoji.
// elapsed is measured from the round's start; priorFinders is how many
// players were already in the round's foundBy list.
func ScoreFind(roundStartMS, clickMS int64, priorFinders int) int {
	elapsed := clickMS - roundStartMS
	if elapsed < 0 {
		elapsed = 0
	}

	timeBonus := maxTimeBonus - int(elapsed/timeBonusPerMS)
	if timeBonus < 0 {
		timeBonus = 0
	}

	orderBonus := firstFinderBonus - orderBonusStep*priorFinders
	if orderBonus < 0 {
		orderBonus = 0
	}

	return basePoints + timeBonus + orderBonus
}
