package settings

import (
	"encoding/json"
	"errors"
	"net/http"

	"agency-portal/db"
	"agency-portal/internal/eventlog"
	"agency-portal/middleware"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type SettingsHandlers struct {
	Service *SettingsService
	Events  *eventlog.EventLogService
	Logger  *zap.Logger
}

func NewSettingsHandlers(service *SettingsService, events *eventlog.EventLogService, logger *zap.Logger) *SettingsHandlers {
	return &SettingsHandlers{Service: service, Events: events, Logger: logger}
}

// GetAll answers GET /api/settings
func (h *SettingsHandlers) GetAll(w http.ResponseWriter, r *http.Request) {
	all, err := h.Service.GetAll(r.Context())
	if err != nil {
		h.Logger.Error("loading site settings failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to load settings"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": all})
}

// Get answers GET /api/settings/{key}
func (h *SettingsHandlers) Get(w http.ResponseWriter, r *http.Request) {
	setting, err := h.Service.Get(r.Context(), mux.Vars(r)["key"])
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Setting not found"})
			return
		}
		h.Logger.Error("loading site setting failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to load setting"})
		return
	}
	writeJSON(w, http.StatusOK, setting)
}

// Update answers PUT /api/settings/{key} with body {"value": "..."}
func (h *SettingsHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Value *string `json:"value"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&body); err != nil || body.Value == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
		return
	}

	key := mux.Vars(r)["key"]
	setting, err := h.Service.Update(r.Context(), key, *body.Value)
	if err != nil {
		if errors.Is(err, ErrInvalidKey) || errors.Is(err, ErrValueTooLong) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		h.Logger.Error("updating site setting failed", zap.String("key", key), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to update setting"})
		return
	}

	h.Events.RecordSettingUpdate(r.Context(), middleware.UserFromContext(r.Context()), key)
	writeJSON(w, http.StatusOK, setting)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
