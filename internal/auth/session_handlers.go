package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"agency-portal/internal/eventlog"
	"agency-portal/internal/user"
	"agency-portal/models"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	User  *models.User `json:"user"`
	Error string       `json:"error,omitempty"`
}

// AuthHandlers serves the /api/auth endpoints backing the session facade
type AuthHandlers struct {
	users    *user.UserService
	events   *eventlog.EventLogService
	sessions *SessionManager
	logger   *zap.Logger
}

func NewAuthHandlers(users *user.UserService, events *eventlog.EventLogService, sessions *SessionManager, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{
		users:    users,
		events:   events,
		sessions: sessions,
		logger:   logger,
	}
}

// CurrentUser answers GET /api/auth/user
func (h *AuthHandlers) CurrentUser(w http.ResponseWriter, r *http.Request) {
	userID := h.sessions.UserID(r)
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, userResponse{Error: "Not authenticated"})
		return
	}

	u, err := h.users.FindByID(r.Context(), userID)
	if err != nil {
		h.logger.Error("loading session user failed", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load user")
		return
	}
	if u == nil {
		writeJSON(w, http.StatusUnauthorized, userResponse{Error: "Not authenticated"})
		return
	}

	writeJSON(w, http.StatusOK, userResponse{User: u})
}

// Login answers POST /api/auth/login
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := decodeBody(w, r, &creds); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	u, err := h.users.Authenticate(r.Context(), creds.Email, creds.Password)
	if err != nil {
		if errors.Is(err, user.ErrBadCredentials) {
			h.events.Record(r.Context(), models.LoginFailed, nil, strings.TrimSpace(creds.Email))
			writeError(w, http.StatusBadRequest, "Invalid credentials")
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	if err := h.sessions.Start(w, r, u.ID); err != nil {
		h.logger.Error("saving session failed", zap.String("user_id", u.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	h.events.Record(r.Context(), models.LoginSucceeded, u, "")
	writeJSON(w, http.StatusOK, userResponse{User: u})
}

// Register answers POST /api/auth/register. The new account is logged in.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var in user.RegisterInput
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	u, err := h.users.Register(r.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, strings.TrimPrefix(err.Error(), user.ErrInvalidInput.Error()+": "))
		case errors.Is(err, user.ErrEmailTaken):
			writeError(w, http.StatusConflict, "An account with this email already exists")
		default:
			h.logger.Error("register failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Failed to create account")
		}
		return
	}

	if err := h.sessions.Start(w, r, u.ID); err != nil {
		h.logger.Error("saving session failed", zap.String("user_id", u.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	h.events.Record(r.Context(), models.UserRegistered, u, "")
	writeJSON(w, http.StatusCreated, userResponse{User: u})
}

// Logout answers POST /api/auth/logout
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	userID := h.sessions.UserID(r)

	if err := h.sessions.End(w, r); err != nil {
		h.logger.Error("ending session failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to log out")
		return
	}

	if userID != "" {
		if u, err := h.users.FindByID(r.Context(), userID); err == nil && u != nil {
			h.events.Record(r.Context(), models.LoggedOut, u, "")
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
