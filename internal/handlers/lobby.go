// internal/handlers/lobby.go
package handlers

import (
	"net/http"

	"github.com/emojihunt/emojihunt/internal/models"
)

type createLobbyRequest struct {
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
}

type joinLobbyRequest struct {
	LobbyID  string `json:"lobbyId"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
}

type playerRequest struct {
	LobbyID  string `json:"lobbyId"`
	PlayerID string `json:"playerId"`
}

type lobbyResponse struct {
	Lobby    *models.Lobby `json:"lobby"`
	PlayerID string        `json:"playerId,omitempty"`
}

// CreateLobby allocates a lobby and seats the caller as host.
func (s *Server) CreateLobby(w http.ResponseWriter, r *http.Request) {
	var req createLobbyRequest
	if err := decode(r, &req); err != nil || req.Nickname == "" {
		http.Error(w, "nickname is required", http.StatusBadRequest)
		return
	}

	l, err := s.Engine.CreateLobby(r.Context(), req.Nickname, req.Avatar)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, lobbyResponse{Lobby: l, PlayerID: l.HostID})
}

// JoinLobby seats a new player in a waiting lobby.
func (s *Server) JoinLobby(w http.ResponseWriter, r *http.Request) {
	var req joinLobbyRequest
	if err := decode(r, &req); err != nil || req.LobbyID == "" || req.Nickname == "" {
		http.Error(w, "lobbyId and nickname are required", http.StatusBadRequest)
		return
	}

	l, p, err := s.Engine.JoinLobby(r.Context(), req.LobbyID, req.Nickname, req.Avatar)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lobbyResponse{Lobby: l, PlayerID: p.ID})
}

// RejoinLobby restamps a reconnecting player's grace window and hands back
// the current state for reconciliation.
func (s *Server) RejoinLobby(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if err := decode(r, &req); err != nil || req.LobbyID == "" || req.PlayerID == "" {
		http.Error(w, "lobbyId and playerId are required", http.StatusBadRequest)
		return
	}

	l, err := s.Engine.RejoinLobby(r.Context(), req.LobbyID, req.PlayerID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lobbyResponse{Lobby: l, PlayerID: req.PlayerID})
}

// LeaveLobby removes the player immediately.
func (s *Server) LeaveLobby(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if err := decode(r, &req); err != nil || req.LobbyID == "" || req.PlayerID == "" {
		http.Error(w, "lobbyId and playerId are required", http.StatusBadRequest)
		return
	}

	if err := s.Engine.LeaveLobby(r.Context(), req.LobbyID, req.PlayerID); err != nil {
		s.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Heartbeat records the player as alive, then runs a presence sweep and a
// transition tick. Clients calling this on an interval are what keeps a
// lobby advancing even when nobody is clicking.
func (s *Server) Heartbeat(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if err := decode(r, &req); err != nil || req.LobbyID == "" || req.PlayerID == "" {
		http.Error(w, "lobbyId and playerId are required", http.StatusBadRequest)
		return
	}
	ctx := r.Context()

	if err := s.Engine.Presence().Heartbeat(ctx, req.LobbyID, req.PlayerID); err != nil {
		s.writeErr(w, err)
		return
	}
	if _, err := s.Engine.SweepPresence(ctx, req.LobbyID); err != nil {
		s.writeErr(w, err)
		return
	}
	if _, err := s.Engine.Tick(ctx, req.LobbyID); err != nil {
		s.writeErr(w, err)
		return
	}

	l, err := s.Engine.LoadLobby(ctx, req.LobbyID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lobbyResponse{Lobby: l})
}

// LobbyState returns the current lobby, ticking it first so a poll-only
// client still observes progress.
func (s *Server) LobbyState(w http.ResponseWriter, r *http.Request) {
	lobbyID := r.URL.Query().Get("lobby")
	if lobbyID == "" {
		http.Error(w, "lobby query parameter is required", http.StatusBadRequest)
		return
	}
	ctx := r.Context()

	if _, err := s.Engine.Tick(ctx, lobbyID); err != nil {
		s.writeErr(w, err)
		return
	}
	l, err := s.Engine.LoadLobby(ctx, lobbyID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lobbyResponse{Lobby: l})
}
