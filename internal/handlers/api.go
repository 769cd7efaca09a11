// internal/handlers/api.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/emojihunt/emojihunt/internal/events"
	"github.com/emojihunt/emojihunt/internal/game"
)

// Server bundles the transition engine with the HTTP surface. Every endpoint
// is stateless: all game state lives in the shared store, so any number of
// server processes can serve the same lobbies.
type Server struct {
	Engine *game.Engine
	Log    *logrus.Logger

	// Relay provides pub/sub subscriptions for the WebSocket event relay.
	// Optional; without it the ws endpoint reports unavailable.
	Relay *events.RedisBroadcaster
}

// NewServer wires the handler set.
func NewServer(e *game.Engine, log *logrus.Logger) *Server {
	return &Server{Engine: e, Log: log}
}

// Routes registers every endpoint on a fresh mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /lobby/create", s.CreateLobby)
	mux.HandleFunc("POST /lobby/join", s.JoinLobby)
	mux.HandleFunc("POST /lobby/rejoin", s.RejoinLobby)
	mux.HandleFunc("POST /lobby/leave", s.LeaveLobby)
	mux.HandleFunc("POST /lobby/heartbeat", s.Heartbeat)
	mux.HandleFunc("GET /lobby/state", s.LobbyState)
	mux.HandleFunc("POST /game/start", s.StartGame)
	mux.HandleFunc("POST /game/reset", s.ResetGame)
	mux.HandleFunc("POST /game/click", s.Click)
	mux.HandleFunc("/lobby/ws/", s.EventRelay)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeErr maps engine errors onto HTTP statuses. Anything unexpected is a
// generic "operation failed"; details stay in the server log.
func (s *Server) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrLobbyNotFound):
		http.Error(w, "lobby not found", http.StatusNotFound)
	case errors.Is(err, game.ErrLobbyFull), errors.Is(err, game.ErrGameInProgress):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		s.Log.WithError(err).Error("request failed")
		http.Error(w, "operation failed", http.StatusInternalServerError)
	}
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
