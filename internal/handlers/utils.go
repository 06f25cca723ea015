package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jason-s-yu/duel/internal/auth"
	"github.com/jason-s-yu/duel/internal/game"
	"github.com/jason-s-yu/duel/internal/lobby"
)

var (
	errUnauthorized = errors.New("missing auth token")
	errForbidden    = errors.New("token does not match identity")
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status and the stable error code.
func writeError(w http.ResponseWriter, err error) {
	code := lobby.Code(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errUnauthorized):
		code, status = "unauthorized", http.StatusUnauthorized
	case errors.Is(err, errForbidden):
		code, status = "forbidden", http.StatusForbidden
	case errors.Is(err, lobby.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, lobby.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, lobby.ErrConflict):
		status = http.StatusConflict
	}
	writeJSON(w, status, errorResponse{Error: code, Message: err.Error()})
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: bad request payload: %v", lobby.ErrInvalidRequest, err)
	}
	return nil
}

// tokenFromRequest reads the auth_token cookie, falling back to a bearer header.
func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(auth.CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// resolveIdentity returns the acting identity. Without RequireAuth the claimed
// identity is trusted and a token only fills it in when absent. With RequireAuth
// a valid token is mandatory and must agree with the claim.
func (s *Server) resolveIdentity(r *http.Request, claimed string) (string, error) {
	return s.resolveToken(tokenFromRequest(r), claimed)
}

func (s *Server) resolveToken(token, claimed string) (string, error) {
	if !s.RequireAuth {
		if claimed == "" && token != "" && s.Issuer != nil {
			if subject, err := s.Issuer.AuthenticateJWT(token); err == nil {
				return subject, nil
			}
		}
		return claimed, nil
	}

	if token == "" || s.Issuer == nil {
		return "", errUnauthorized
	}
	subject, err := s.Issuer.AuthenticateJWT(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errForbidden, err)
	}
	if claimed != "" && claimed != subject {
		return "", errForbidden
	}
	return subject, nil
}

// gameTypeOf canonicalizes aliases; unknown names pass through for validation to reject.
func gameTypeOf(s string) game.GameType {
	if gt, err := game.ParseGameType(s); err == nil {
		return gt
	}
	return game.GameType(s)
}

const maxNicknameLen = 32

// cleanNickname trims a display name and caps it at maxNicknameLen runes.
func cleanNickname(s string) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > maxNicknameLen {
		s = string(r[:maxNicknameLen])
	}
	return s
}
