// internal/handlers/server.go
package handlers

import (
	"net/http"

	"github.com/jason-s-yu/duel/internal/auth"
	"github.com/jason-s-yu/duel/internal/lobby"
	"github.com/jason-s-yu/duel/internal/match"
	"github.com/jason-s-yu/duel/internal/middleware"
	"github.com/sirupsen/logrus"
)

// Server holds the shared registries behind the HTTP pairing surface and the match channel.
type Server struct {
	Lobbies  *lobby.LobbyStore
	Pool     *lobby.Pool
	Sessions *match.SessionStore
	Issuer   *auth.Issuer
	// RequireAuth makes every identity-bearing request prove its identity with a token.
	RequireAuth bool

	logger logrus.FieldLogger
}

func NewServer(lobbies *lobby.LobbyStore, pool *lobby.Pool, sessions *match.SessionStore, issuer *auth.Issuer, requireAuth bool, logger logrus.FieldLogger) *Server {
	return &Server{
		Lobbies:     lobbies,
		Pool:        pool,
		Sessions:    sessions,
		Issuer:      issuer,
		RequireAuth: requireAuth,
		logger:      logger,
	}
}

// Routes builds the mux with every endpoint wrapped in the request logger.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.HealthHandler)
	mux.HandleFunc("POST /auth/guest", s.GuestHandler)

	mux.HandleFunc("POST /lobby/create", s.CreateLobbyHandler)
	mux.HandleFunc("GET /lobby/list", s.ListLobbiesHandler)
	mux.HandleFunc("POST /lobby/join", s.JoinLobbyHandler)
	mux.HandleFunc("POST /lobby/cancel", s.CancelLobbyHandler)

	mux.HandleFunc("POST /matchmaking/join", s.PoolJoinHandler)
	mux.HandleFunc("GET /matchmaking/status/{identity}", s.PoolStatusHandler)
	mux.HandleFunc("POST /matchmaking/cancel", s.PoolCancelHandler)
	mux.HandleFunc("GET /matchmaking/pool-stats", s.PoolStatsHandler)

	mux.HandleFunc("GET /game/ws", s.GameWSHandler)

	return middleware.LogMiddleware(s.logger)(mux)
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"sessions": s.Sessions.Len(),
		"waiting":  s.Pool.Stats().WaitingCount,
	})
}
