// internal/handlers/lobby.go
package handlers

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/duel/internal/game"
	"github.com/jason-s-yu/duel/internal/lobby"
)

type createLobbyRequest struct {
	GameType    string  `json:"gameType"`
	Wager       float64 `json:"wager"`
	PlayerClass string  `json:"playerClass"`
	Identity    string  `json:"identity"`
	Nickname    string  `json:"nickname"`
}

type lobbyRequest struct {
	LobbyID     string `json:"lobbyId"`
	Identity    string `json:"identity"`
	Nickname    string `json:"nickname"`
	PlayerClass string `json:"playerClass"`
}

func parseLobbyID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed lobbyId %q", lobby.ErrInvalidRequest, s)
	}
	return id, nil
}

// CreateLobbyHandler opens a named lobby and returns its id.
func (s *Server) CreateLobbyHandler(w http.ResponseWriter, r *http.Request) {
	var req createLobbyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	identity, err := s.resolveIdentity(r, req.Identity)
	if err != nil {
		writeError(w, err)
		return
	}
	class, err := lobby.ParsePlayerClass(req.PlayerClass, identity)
	if err != nil {
		writeError(w, err)
		return
	}

	l, err := s.Lobbies.Create(gameTypeOf(req.GameType), req.Wager, class, identity, cleanNickname(req.Nickname))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lobbyId": l.ID, "lobby": l})
}

// ListLobbiesHandler returns open lobbies filtered by gameType, playerClass and exclude.
func (s *Server) ListLobbiesHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var gt game.GameType
	if v := q.Get("gameType"); v != "" {
		gt = gameTypeOf(v)
	}
	var class lobby.PlayerClass
	if c := q.Get("playerClass"); c != "" {
		var err error
		if class, err = lobby.ParsePlayerClass(c, ""); err != nil {
			writeError(w, err)
			return
		}
	}

	lobbies := s.Lobbies.List(gt, class, q.Get("exclude"))
	if lobbies == nil {
		lobbies = []lobby.Lobby{}
	}
	writeJSON(w, http.StatusOK, lobbies)
}

// JoinLobbyHandler pairs the caller with the lobby creator and returns the new session id.
func (s *Server) JoinLobbyHandler(w http.ResponseWriter, r *http.Request) {
	var req lobbyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	identity, err := s.resolveIdentity(r, req.Identity)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := parseLobbyID(req.LobbyID)
	if err != nil {
		writeError(w, err)
		return
	}
	class, err := lobby.ParsePlayerClass(req.PlayerClass, identity)
	if err != nil {
		writeError(w, err)
		return
	}

	sessionID, err := s.Lobbies.Join(id, identity, cleanNickname(req.Nickname), class)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessionId": sessionID})
}

// CancelLobbyHandler withdraws a lobby; only its creator may do so.
func (s *Server) CancelLobbyHandler(w http.ResponseWriter, r *http.Request) {
	var req lobbyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	identity, err := s.resolveIdentity(r, req.Identity)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := parseLobbyID(req.LobbyID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.Lobbies.Cancel(id, identity); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
