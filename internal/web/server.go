package web

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"agency-portal/db"
	"agency-portal/internal/auth"
	"agency-portal/internal/config"
	"agency-portal/internal/eventlog"
	"agency-portal/internal/retention"
	"agency-portal/internal/settings"
	"agency-portal/internal/systemstatus"
	"agency-portal/internal/user"
	"agency-portal/middleware"
	"agency-portal/models"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Server is the backend wired over one SQLite database
type Server struct {
	Handler   http.Handler
	Users     *user.UserService
	Events    *eventlog.EventLogService
	Retention *retention.RetentionManager

	dbManager *db.DBManager
	logger    *zap.Logger
}

// NewServer builds repositories, services and routes. The caller owns
// sqliteDB and must call Close before closing it.
func NewServer(cfg *config.Config, sqliteDB *sql.DB, clock clockwork.Clock, logger *zap.Logger) *Server {
	repoFactory := db.NewRepositoryFactory(sqliteDB, cfg.DatabaseName)

	userRepo := repoFactory.NewUserRepository()
	siteSettingRepo := repoFactory.NewSiteSettingRepository()
	eventLogRepo := repoFactory.NewEventLogRepository()

	// Create database manager for concurrent access control
	dbManager := db.NewDBManager()

	userService := user.NewUserService(userRepo, dbManager, cfg.BcryptCost, logger.Named("user"))
	eventLogService := eventlog.NewEventLogService(eventLogRepo, dbManager, logger.Named("eventlog"))
	settingsService := settings.NewSettingsService(siteSettingRepo, dbManager)
	systemStatusService := systemstatus.NewSystemStatusService(sqliteDB, clock)
	retentionManager := retention.NewRetentionManager(eventLogService, cfg.EventLogRetention, cfg.PruneInterval, clock, logger.Named("retention"))

	sessions := auth.NewSessionManager(cfg)
	webHandler := &WebHandler{
		Auth:           auth.NewAuthHandlers(userService, eventLogService, sessions, logger.Named("auth")),
		Settings:       settings.NewSettingsHandlers(settingsService, eventLogService, logger.Named("settings")),
		EventLogs:      eventlog.NewEventLogHandlers(eventLogService),
		Retention:      retention.NewRetentionHandlers(retentionManager),
		SystemStatus:   systemstatus.NewSystemStatusHandlers(systemStatusService),
		Middleware:     middleware.NewMiddleware(sessions, userService, logger.Named("middleware")),
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger.Named("http"),
	}

	return &Server{
		Handler:   webHandler.SetupRoutes(),
		Users:     userService,
		Events:    eventLogService,
		Retention: retentionManager,
		dbManager: dbManager,
		logger:    logger,
	}
}

// SeedAdmin creates the configured admin account on first start
func (s *Server) SeedAdmin(ctx context.Context, email, password string) error {
	if email == "" {
		return nil
	}
	created, err := s.Users.EnsureAdmin(ctx, email, password)
	if err != nil {
		return fmt.Errorf("seeding admin account: %w", err)
	}
	if created {
		s.Events.Record(ctx, models.AdminSeeded, nil, email)
		s.logger.Info("admin account created", zap.String("email", email))
	}
	return nil
}

// Close stops background work and the write queue
func (s *Server) Close() {
	s.Retention.Stop()
	s.dbManager.Stop()
}
