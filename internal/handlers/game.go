// internal/handlers/game.go
package handlers

import (
	"net/http"
)

type clickRequest struct {
	LobbyID  string `json:"lobbyId"`
	PlayerID string `json:"playerId"`
	CellID   string `json:"cellId"`
}

// StartGame attempts the waiting->countdown transition. A false result is
// normal: wrong caller, wrong phase, too few players, or somebody else got
// there first.
func (s *Server) StartGame(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if err := decode(r, &req); err != nil || req.LobbyID == "" || req.PlayerID == "" {
		http.Error(w, "lobbyId and playerId are required", http.StatusBadRequest)
		return
	}

	started, err := s.Engine.StartGame(r.Context(), req.LobbyID, req.PlayerID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"started": started})
}

// ResetGame attempts the finished->waiting transition.
func (s *Server) ResetGame(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if err := decode(r, &req); err != nil || req.LobbyID == "" || req.PlayerID == "" {
		http.Error(w, "lobbyId and playerId are required", http.StatusBadRequest)
		return
	}

	reset, err := s.Engine.ResetGame(r.Context(), req.LobbyID, req.PlayerID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"reset": reset})
}

// Click scores a grid-cell click for the current round.
func (s *Server) Click(w http.ResponseWriter, r *http.Request) {
	var req clickRequest
	if err := decode(r, &req); err != nil || req.LobbyID == "" || req.PlayerID == "" || req.CellID == "" {
		http.Error(w, "lobbyId, playerId and cellId are required", http.StatusBadRequest)
		return
	}

	res, err := s.Engine.HandleClick(r.Context(), req.LobbyID, req.PlayerID, req.CellID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
