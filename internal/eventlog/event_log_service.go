package eventlog

import (
	"context"
	"fmt"
	"time"

	"agency-portal/db"
	"agency-portal/models"

	"go.uber.org/zap"
)

const (
	DefaultLimit = 20
	MaxLimit     = 200
)

type EventLogService struct {
	repo      db.EventLogRepository
	dbManager *db.DBManager
	logger    *zap.Logger
}

func NewEventLogService(repo db.EventLogRepository, dbManager *db.DBManager, logger *zap.Logger) *EventLogService {
	return &EventLogService{
		repo:      repo,
		dbManager: dbManager,
		logger:    logger,
	}
}

// Record stores an event. Failures are logged, never returned: the audit
// trail must not block the auth operation being audited.
func (s *EventLogService) Record(ctx context.Context, eventType models.EEventLogType, user *models.User, email string) {
	eventLog := &models.EventLog{Type: eventType}
	if user != nil {
		eventLog.UserID = &user.ID
		if email == "" {
			email = user.Email
		}
	}
	if email != "" {
		eventLog.Email = &email
	}
	eventLog.Description = generateDescription(eventType, email)

	if err := s.dbManager.CreateEventLog(ctx, s.repo, eventLog); err != nil {
		s.logger.Error("failed to record event", zap.String("type", string(eventType)), zap.Error(err))
	}
}

// RecordSettingUpdate stores a settings change made by user
func (s *EventLogService) RecordSettingUpdate(ctx context.Context, user *models.User, key string) {
	eventLog := &models.EventLog{
		Type:        models.SettingUpdated,
		Description: fmt.Sprintf("Setting [%s] updated", key),
	}
	if user != nil {
		eventLog.UserID = &user.ID
		eventLog.Email = &user.Email
	}
	if err := s.dbManager.CreateEventLog(ctx, s.repo, eventLog); err != nil {
		s.logger.Error("failed to record event", zap.String("type", string(eventLog.Type)), zap.Error(err))
	}
}

func generateDescription(eventType models.EEventLogType, email string) string {
	who := email
	if who == "" {
		who = "unknown account"
	}

	switch eventType {
	case models.UserRegistered:
		return fmt.Sprintf("Account [%s] registered", who)
	case models.LoginSucceeded:
		return fmt.Sprintf("Account [%s] logged in", who)
	case models.LoginFailed:
		return fmt.Sprintf("Failed login attempt for [%s]", who)
	case models.LoggedOut:
		return fmt.Sprintf("Account [%s] logged out", who)
	case models.AdminSeeded:
		return fmt.Sprintf("Admin account [%s] created from configuration", who)
	default:
		return "Event occurred"
	}
}

// GetLatest returns up to limit events, newest first
func (s *EventLogService) GetLatest(ctx context.Context, limit int) ([]*models.EventLog, error) {
	return s.repo.FindLatest(ctx, clampLimit(limit))
}

// GetAllByUserID returns up to limit events of one account, newest first
func (s *EventLogService) GetAllByUserID(ctx context.Context, userID string, limit int) ([]*models.EventLog, error) {
	return s.repo.FindAllByUserID(ctx, userID, clampLimit(limit))
}

// PruneOlderThan deletes events created before cutoff
func (s *EventLogService) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.dbManager.PruneEventLogs(ctx, s.repo, cutoff)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
