package models

import (
	"time"
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

// SystemStatus is the health report served by /api/health
type SystemStatus struct {
	Status        string    `json:"status"`
	Database      string    `json:"database"`
	StartedAt     time.Time `json:"startedAt"`
	CheckedAt     time.Time `json:"checkedAt"`
	UptimeSeconds int64     `json:"uptimeSeconds"`
}
