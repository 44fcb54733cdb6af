package web

import (
	"encoding/json"
	"net/http"

	"agency-portal/internal/auth"
	"agency-portal/internal/eventlog"
	"agency-portal/internal/retention"
	"agency-portal/internal/settings"
	"agency-portal/internal/systemstatus"
	"agency-portal/middleware"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type WebHandler struct {
	Auth           *auth.AuthHandlers
	Settings       *settings.SettingsHandlers
	EventLogs      *eventlog.EventLogHandlers
	Retention      *retention.RetentionHandlers
	SystemStatus   *systemstatus.SystemStatusHandlers
	Middleware     *middleware.Middleware
	AllowedOrigins []string
	Logger         *zap.Logger
}

func (h *WebHandler) SetupRoutes() http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", h.SystemStatus.GetLatestSystemStatus).Methods("GET")

	// Session auth
	api.HandleFunc("/auth/user", h.Auth.CurrentUser).Methods("GET")
	api.HandleFunc("/auth/login", h.Auth.Login).Methods("POST")
	api.HandleFunc("/auth/register", h.Auth.Register).Methods("POST")
	api.HandleFunc("/auth/logout", h.Auth.Logout).Methods("POST")

	// Public site settings
	api.HandleFunc("/settings", h.Settings.GetAll).Methods("GET")
	api.HandleFunc("/settings/{key}", h.Settings.Get).Methods("GET")

	// Admin portal
	admin := api.NewRoute().Subrouter()
	admin.Use(h.Middleware.RequireSession, h.Middleware.RequireAdmin)
	admin.HandleFunc("/settings/{key}", h.Settings.Update).Methods("PUT")
	admin.HandleFunc("/event-logs", h.EventLogs.FindLatest).Methods("GET")
	admin.HandleFunc("/event-logs/retention", h.Retention.GetState).Methods("GET")
	admin.HandleFunc("/users/{id}/event-logs", h.EventLogs.FindAllByUserID).Methods("GET")

	r.NotFoundHandler = http.HandlerFunc(h.NotFound)

	return middleware.LoggingMiddleware(h.Logger)(middleware.SetupCORS(h.AllowedOrigins)(r))
}

func (h *WebHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]string{"error": "Not found"})
}
