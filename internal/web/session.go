package web

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const sessionCookie = "career_chat_session"

// sessionID returns the id carried by a valid signed cookie.
func (s *Server) sessionID(r *http.Request) (string, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return "", false
	}
	var id string
	if err := s.cookies.Decode(sessionCookie, c.Value, &id); err != nil || id == "" {
		return "", false
	}
	return id, true
}

// ensureSession returns the request's session id, issuing a new cookie if there is none.
func (s *Server) ensureSession(w http.ResponseWriter, r *http.Request) (string, error) {
	if id, ok := s.sessionID(r); ok {
		return id, nil
	}

	id := uuid.NewString()
	encoded, err := s.cookies.Encode(sessionCookie, id)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.log.Debug("new session", zap.String("session", id))
	return id, nil
}
