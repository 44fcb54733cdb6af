package systemstatus

import (
	"context"
	"database/sql"
	"time"

	"agency-portal/models"

	"github.com/jonboulle/clockwork"
)

const pingTimeout = 2 * time.Second

type SystemStatusService struct {
	db        *sql.DB
	clock     clockwork.Clock
	startedAt time.Time
}

func NewSystemStatusService(db *sql.DB, clock clockwork.Clock) *SystemStatusService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SystemStatusService{
		db:        db,
		clock:     clock,
		startedAt: clock.Now().UTC(),
	}
}

// GetLatest checks the database and reports uptime. A failed ping marks the
// status degraded rather than returning an error.
func (s *SystemStatusService) GetLatest(ctx context.Context) *models.SystemStatus {
	now := s.clock.Now().UTC()
	status := &models.SystemStatus{
		Status:        models.StatusOK,
		Database:      models.StatusOK,
		StartedAt:     s.startedAt,
		CheckedAt:     now,
		UptimeSeconds: int64(now.Sub(s.startedAt) / time.Second),
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		status.Status = models.StatusDegraded
		status.Database = err.Error()
	}
	return status
}
