package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"agency-portal/internal/auth"
	"agency-portal/internal/user"
	"agency-portal/models"

	"go.uber.org/zap"
)

type contextKey struct{}

// UserFromContext returns the account attached by RequireSession
func UserFromContext(ctx context.Context) *models.User {
	u, _ := ctx.Value(contextKey{}).(*models.User)
	return u
}

func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

type Middleware struct {
	Sessions *auth.SessionManager
	Users    *user.UserService
	Logger   *zap.Logger
}

func NewMiddleware(sessions *auth.SessionManager, users *user.UserService, logger *zap.Logger) *Middleware {
	return &Middleware{Sessions: sessions, Users: users, Logger: logger}
}

// RequireSession rejects requests without a valid session cookie and puts
// the session's account in the request context.
func (m *Middleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := m.Sessions.UserID(r)
		if userID == "" {
			deny(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		u, err := m.Users.FindByID(r.Context(), userID)
		if err != nil {
			m.Logger.Error("loading session user failed", zap.String("user_id", userID), zap.Error(err))
			deny(w, http.StatusInternalServerError, "Failed to load user")
			return
		}
		if u == nil {
			deny(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// RequireAdmin must run inside RequireSession
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !UserFromContext(r.Context()).IsAdmin() {
			deny(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
