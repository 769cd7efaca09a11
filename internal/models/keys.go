// internal/models/keys.go
package models

import "fmt"

// Key builders for the shared store. The layout is fixed: external tooling
// (dashboards, the cleanup cron) scans these prefixes directly.

// LobbyKey is the key holding the serialized Lobby record.
func LobbyKey(lobbyID string) string {
	return fmt.Sprintf("lobby:%s", lobbyID)
}

// LobbyAuxPrefix matches every per-lobby auxiliary key (locks, event queue)
// but not the lobby record itself.
func LobbyAuxPrefix(lobbyID string) string {
	return fmt.Sprintf("lobby:%s:*", lobbyID)
}

// LockKey is the mutual-exclusion key for one lobby phase transition.
func LockKey(lobbyID, phase string) string {
	return fmt.Sprintf("lobby:%s:lock:%s", lobbyID, phase)
}

// EventsKey is the per-lobby event catch-up list.
func EventsKey(lobbyID string) string {
	return fmt.Sprintf("lobby:%s:events", lobbyID)
}

// HeartbeatKey holds a player's last heartbeat timestamp (epoch ms).
func HeartbeatKey(lobbyID, playerID string) string {
	return fmt.Sprintf("player:%s:%s:heartbeat", lobbyID, playerID)
}

// JoinTimeKey holds a player's join timestamp (epoch ms), covering the
// post-join grace window before the first heartbeat is expected.
func JoinTimeKey(lobbyID, playerID string) string {
	return fmt.Sprintf("player:%s:%s:joinTime", lobbyID, playerID)
}

// PlayerKeyPrefix matches all presence keys for a lobby.
func PlayerKeyPrefix(lobbyID string) string {
	return fmt.Sprintf("player:%s:*", lobbyID)
}
