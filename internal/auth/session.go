package auth

import (
	"errors"
	"net/http"

	"agency-portal/internal/config"

	"github.com/gorilla/sessions"
)

const userIDKey = "user_id"

// SessionManager stores the authenticated account id in a signed cookie
type SessionManager struct {
	store *sessions.CookieStore
	name  string
}

func NewSessionManager(cfg *config.Config) *SessionManager {
	store := sessions.NewCookieStore(cfg.SessionSecret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionManager{store: store, name: cfg.SessionName}
}

// UserID returns the account id bound to the request's session cookie, or
// "" for anonymous requests and cookies that fail verification.
func (m *SessionManager) UserID(r *http.Request) string {
	session, err := m.store.Get(r, m.name)
	if err != nil {
		return ""
	}
	userID, _ := session.Values[userIDKey].(string)
	return userID
}

// Start binds userID to a fresh session cookie
func (m *SessionManager) Start(w http.ResponseWriter, r *http.Request, userID string) error {
	// A cookie that fails verification still yields a usable new session.
	session, err := m.store.Get(r, m.name)
	if session == nil {
		return err
	}
	session.Values = map[interface{}]interface{}{userIDKey: userID}
	return session.Save(r, w)
}

// End expires the session cookie
func (m *SessionManager) End(w http.ResponseWriter, r *http.Request) error {
	session, err := m.store.Get(r, m.name)
	if session == nil {
		return errors.Join(errors.New("no session"), err)
	}
	session.Values = make(map[interface{}]interface{})
	session.Options.MaxAge = -1
	return session.Save(r, w)
}
