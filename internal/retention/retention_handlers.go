package retention

import (
	"encoding/json"
	"net/http"
)

type RetentionHandlers struct {
	Manager *RetentionManager
}

func NewRetentionHandlers(manager *RetentionManager) *RetentionHandlers {
	return &RetentionHandlers{Manager: manager}
}

// GetState answers GET /api/event-logs/retention
func (h *RetentionHandlers) GetState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.Manager.GetState())
}
