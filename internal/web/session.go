package web

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
)

const sessionName = "tablebot_session"

// SessionManager ties a browser to a conversation id via a signed,
// encrypted cookie.
type SessionManager struct{ sc *securecookie.SecureCookie }

func NewSessionManager(hashKey, blockKey []byte) *SessionManager {
	return &SessionManager{sc: securecookie.New(hashKey, blockKey)}
}

func (s *SessionManager) ConversationID(r *http.Request) (string, bool) {
	c, err := r.Cookie(sessionName)
	if err != nil {
		return "", false
	}
	value := map[string]string{}
	if err := s.sc.Decode(sessionName, c.Value, &value); err != nil {
		return "", false
	}
	cid := value["cid"]
	if cid == "" {
		return "", false
	}
	return cid, true
}

// Ensure returns the caller's conversation id, issuing a new one when the
// cookie is missing or does not verify.
func (s *SessionManager) Ensure(w http.ResponseWriter, r *http.Request) (string, error) {
	if cid, ok := s.ConversationID(r); ok {
		return cid, nil
	}
	return s.Issue(w)
}

// Issue sets a cookie carrying a new conversation id.
func (s *SessionManager) Issue(w http.ResponseWriter) (string, error) {
	cid := uuid.NewString()
	encoded, err := s.sc.Encode(sessionName, map[string]string{"cid": cid})
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name: sessionName, Value: encoded, Path: "/",
		HttpOnly: true, SameSite: http.SameSiteLaxMode,
	})
	return cid, nil
}

func (s *SessionManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name: sessionName, Value: "", Path: "/", MaxAge: -1,
		HttpOnly: true, SameSite: http.SameSiteLaxMode,
	})
}
