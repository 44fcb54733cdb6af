package eventlog

import (
	"encoding/json"
	"net/http"
	"strconv"

	"agency-portal/models"

	"github.com/gorilla/mux"
)

type EventLogHandlers struct {
	Service *EventLogService
}

func NewEventLogHandlers(service *EventLogService) *EventLogHandlers {
	return &EventLogHandlers{Service: service}
}

func limitParam(r *http.Request) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return limit
}

func (h *EventLogHandlers) FindLatest(w http.ResponseWriter, r *http.Request) {
	eventLogs, err := h.Service.GetLatest(r.Context(), limitParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load event logs")
		return
	}
	writeEventLogs(w, eventLogs)
}

func (h *EventLogHandlers) FindAllByUserID(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	eventLogs, err := h.Service.GetAllByUserID(r.Context(), userID, limitParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load event logs")
		return
	}
	writeEventLogs(w, eventLogs)
}

func writeEventLogs(w http.ResponseWriter, eventLogs []*models.EventLog) {
	if eventLogs == nil {
		eventLogs = []*models.EventLog{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"eventLogs": eventLogs})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
