package handlers

import (
	"net/http"

	"github.com/jason-s-yu/duel/internal/auth"
)

type guestRequest struct {
	Nickname string `json:"nickname"`
}

// GuestHandler mints a guest identity and its token, and sets the auth cookie.
func (s *Server) GuestHandler(w http.ResponseWriter, r *http.Request) {
	var req guestRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	nick := cleanNickname(req.Nickname)

	identity := auth.NewGuestIdentity()
	token, err := s.Issuer.CreateJWT(identity, nick)
	if err != nil {
		s.logger.WithError(err).Error("failed to sign guest token")
		writeError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{"identity": identity, "token": token, "nickname": nick})
}
