// internal/handlers/ws.go
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/coder/websocket"
)

// EventRelay upgrades the connection and streams the lobby's broadcast events
// to the browser. The relay is one-way and dumb: whatever the broadcaster
// publishes on the lobby's channel is forwarded verbatim. Delivery is
// at-least-once at best; clients reconcile through the state endpoint.
func (s *Server) EventRelay(w http.ResponseWriter, r *http.Request) {
	if s.Relay == nil {
		http.Error(w, "event relay unavailable", http.StatusServiceUnavailable)
		return
	}

	lobbyID := strings.TrimPrefix(r.URL.Path, "/lobby/ws/")
	if lobbyID == "" || strings.Contains(lobbyID, "/") {
		http.Error(w, "missing lobby id", http.StatusBadRequest)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.Log.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "relay finished")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub := s.Relay.Subscribe(ctx, lobbyID)
	defer sub.Close()

	// Drain client frames so pings are answered and a client close ends the
	// subscription.
	go func() {
		defer cancel()
		for {
			if _, _, err := c.Read(ctx); err != nil {
				return
			}
		}
	}()

	s.Log.WithField("lobby", lobbyID).Debug("event relay connected")
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			c.Close(websocket.StatusNormalClosure, "")
			return
		case msg, ok := <-ch:
			if !ok {
				c.Close(websocket.StatusNormalClosure, "")
				return
			}
			if err := c.Write(ctx, websocket.MessageText, []byte(msg.Payload)); err != nil {
				return
			}
		}
	}
}
