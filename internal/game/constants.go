// internal/game/constants.go
package game

import "time"

// Game pacing. All wall-clock comparisons are done in epoch milliseconds
// because every worker evaluates them independently against the shared record.
const (
	CountdownMS      = 3000  // countdown before each round
	RoundDurationMS  = 30000 // playable window per round
	InterRoundMS     = 7000  // pause between rounds on the results screen
	FinalRoundMS     = 3000  // shorter pause after the last round
	DefaultMaxRounds = 5

	MinPlayers = 2
	MaxPlayers = 12
)

// Presence thresholds. A heartbeat age of exactly HeartbeatTimeoutMS is still
// alive; the comparison is strictly greater. The join grace covers the window
// between joining and the client's first heartbeat write.
const (
	HeartbeatTimeoutMS = 5000
	JoinGraceMS        = 10000
)

// Store TTLs.
const (
	// Presence key TTLs sit above their logical thresholds (5s timeout, 10s
	// grace) so the age comparison governs the boundary and expiry only
	// backstops fully vanished clients.
	LobbyTTL     = 3600 * time.Second
	HeartbeatTTL = 8 * time.Second
	JoinTimeTTL  = 12 * time.Second

	// LockTTL bounds how long a crashed transition holder can wedge a lobby.
	// Locks are never explicitly released; expiry is the recovery path.
	LockTTL = 10 * time.Second

	// SweepLockTTL serializes concurrent presence sweeps. Short, since a
	// sweep is a single read-modify-write.
	SweepLockTTL = 2 * time.Second
)
