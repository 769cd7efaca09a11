// internal/game/poller.go
package game

import (
	"context"
	"strings"
	"time"

	"github.com/emojihunt/emojihunt/internal/store"
)

// Poller is the thin driver loop: on an interval it finds every live lobby
// record and runs a presence sweep plus a transition tick. The engine's
// guards and locks make this safe to run on every server process at once;
// the poller only supplies the clock edge, it decides nothing itself.
type Poller struct {
	engine   *Engine
	store    store.Store
	interval time.Duration
}

// NewPoller builds a driver ticking at the given interval.
func NewPoller(e *Engine, st store.Store, interval time.Duration) *Poller {
	return &Poller{engine: e, store: st, interval: interval}
}

// Run blocks until the context is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	keys, err := p.store.ScanKeys(ctx, "lobby:*")
	if err != nil {
		p.engine.log.WithError(err).Warn("poller scan failed")
		return
	}
	for _, key := range keys {
		// Lobby records are exactly "lobby:<ID>"; everything deeper is an
		// auxiliary key.
		parts := strings.Split(key, ":")
		if len(parts) != 2 {
			continue
		}
		lobbyID := parts[1]

		if _, err := p.engine.SweepPresence(ctx, lobbyID); err != nil {
			p.engine.log.WithError(err).WithField("lobby", lobbyID).Warn("presence sweep failed")
		}
		if _, err := p.engine.Tick(ctx, lobbyID); err != nil {
			p.engine.log.WithError(err).WithField("lobby", lobbyID).Warn("transition tick failed")
		}
	}
}
