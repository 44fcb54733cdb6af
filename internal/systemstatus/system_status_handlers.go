package systemstatus

import (
	"encoding/json"
	"net/http"

	"agency-portal/models"
)

// SystemStatusHandlers struct holds the system status service
type SystemStatusHandlers struct {
	Service *SystemStatusService
}

// NewSystemStatusHandlers creates new system status HTTP handlers
func NewSystemStatusHandlers(service *SystemStatusService) *SystemStatusHandlers {
	return &SystemStatusHandlers{Service: service}
}

// GetLatestSystemStatus answers GET /api/health, with 503 when degraded
func (h *SystemStatusHandlers) GetLatestSystemStatus(w http.ResponseWriter, r *http.Request) {
	systemStatus := h.Service.GetLatest(r.Context())

	code := http.StatusOK
	if systemStatus.Status != models.StatusOK {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(systemStatus)
}
