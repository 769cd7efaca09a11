// internal/game/sweep.go
package game

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/emojihunt/emojihunt/internal/events"
	"github.com/emojihunt/emojihunt/internal/models"
)

// SweepPresence checks every seated player's liveness and removes the dead
// ones, plus any ids passed in force (explicit leaves), in a single lobby
// mutation. The removed set is deduplicated, so a player who both left
// explicitly and timed out produces one player-left event.
//
// If the host is removed, the first remaining player in join order is
// promoted. If nobody remains, the lobby record and every auxiliary key
// (presence records, locks, event queue) are deleted.
//
// Concurrent sweeps for the same lobby are serialized by a short-TTL lock;
// the losers return an empty result.
func (e *Engine) SweepPresence(ctx context.Context, lobbyID string, force ...string) ([]string, error) {
	l, err := e.LoadLobby(ctx, lobbyID)
	if err != nil {
		if err == ErrLobbyNotFound {
			return nil, nil
		}
		return nil, err
	}

	forced := make(map[string]bool, len(force))
	for _, id := range force {
		forced[id] = true
	}

	var removed []models.Player
	var kept []models.Player
	for _, p := range l.Players {
		if forced[p.ID] {
			removed = append(removed, p)
			continue
		}
		alive, err := e.presence.IsAlive(ctx, lobbyID, p.ID)
		if err != nil {
			return nil, err
		}
		if alive {
			kept = append(kept, p)
		} else {
			removed = append(removed, p)
		}
	}
	if len(removed) == 0 {
		return nil, nil
	}

	ok, err := e.store.TryAcquire(ctx, models.LockKey(lobbyID, "sweep"), SweepLockTTL)
	if err != nil || !ok {
		return nil, err
	}

	hostLeft := false
	for _, p := range removed {
		if p.ID == l.HostID {
			hostLeft = true
		}
	}

	l.Players = kept
	newHostID := ""
	if hostLeft && len(kept) > 0 {
		newHostID = kept[0].ID
		l.HostID = newHostID
		for i := range l.Players {
			l.Players[i].IsHost = l.Players[i].ID == newHostID
		}
	}

	removedIDs := make([]string, 0, len(removed))
	for _, p := range removed {
		removedIDs = append(removedIDs, p.ID)
		if err := e.presence.Clear(ctx, lobbyID, p.ID); err != nil {
			return nil, err
		}
	}

	if len(kept) == 0 {
		for _, p := range removed {
			if err := e.publish(ctx, lobbyID, events.PlayerLeft(p.ID, p.Nickname, "")); err != nil {
				return nil, err
			}
		}
		if err := e.deleteLobby(ctx, lobbyID); err != nil {
			return nil, err
		}
		e.log.WithField("lobby", lobbyID).Info("lobby emptied and deleted")
		return removedIDs, nil
	}

	if err := e.saveLobby(ctx, l); err != nil {
		return nil, err
	}
	for _, p := range removed {
		if err := e.publish(ctx, lobbyID, events.PlayerLeft(p.ID, p.Nickname, newHostID)); err != nil {
			return nil, err
		}
	}
	if err := e.publish(ctx, lobbyID, events.LobbyUpdated(l)); err != nil {
		return nil, err
	}
	e.log.WithFields(logrus.Fields{
		"lobby": lobbyID, "removed": len(removed), "remaining": len(kept),
	}).Info("players removed")
	return removedIDs, nil
}

// deleteLobby removes the lobby record and everything keyed under it.
func (e *Engine) deleteLobby(ctx context.Context, lobbyID string) error {
	keys := []string{models.LobbyKey(lobbyID)}

	aux, err := e.store.ScanKeys(ctx, models.LobbyAuxPrefix(lobbyID))
	if err != nil {
		return err
	}
	keys = append(keys, aux...)

	presence, err := e.store.ScanKeys(ctx, models.PlayerKeyPrefix(lobbyID))
	if err != nil {
		return err
	}
	keys = append(keys, presence...)

	_, err = e.store.Del(ctx, keys...)
	return err
}
