package handlers

import (
	"net/http"

	"github.com/jason-s-yu/duel/internal/lobby"
)

type poolRequest struct {
	GameType    string  `json:"gameType"`
	Wager       float64 `json:"wager"`
	PlayerClass string  `json:"playerClass"`
	Identity    string  `json:"identity"`
}

func (s *Server) decodePoolRequest(r *http.Request) (poolRequest, lobby.PlayerClass, string, error) {
	var req poolRequest
	if err := decodeBody(r, &req); err != nil {
		return req, "", "", err
	}
	identity, err := s.resolveIdentity(r, req.Identity)
	if err != nil {
		return req, "", "", err
	}
	class, err := lobby.ParsePlayerClass(req.PlayerClass, identity)
	if err != nil {
		return req, "", "", err
	}
	return req, class, identity, nil
}

// PoolJoinHandler enters the anonymous pool, or returns the match formed by this request.
func (s *Server) PoolJoinHandler(w http.ResponseWriter, r *http.Request) {
	req, class, identity, err := s.decodePoolRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	status, err := s.Pool.Request(gameTypeOf(req.GameType), req.Wager, class, identity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// PoolStatusHandler lets a waiting party poll for its match.
func (s *Server) PoolStatusHandler(w http.ResponseWriter, r *http.Request) {
	identity, err := s.resolveIdentity(r, r.PathValue("identity"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Pool.Poll(identity))
}

// PoolCancelHandler withdraws a waiting entry. Cancelling after a match formed is a conflict.
func (s *Server) PoolCancelHandler(w http.ResponseWriter, r *http.Request) {
	req, class, identity, err := s.decodePoolRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.Pool.Cancel(gameTypeOf(req.GameType), req.Wager, class, identity); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) PoolStatsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Pool.Stats())
}
