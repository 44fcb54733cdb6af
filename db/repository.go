package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"agency-portal/models"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// UserRepository defines the interface for user account operations
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// SiteSettingRepository defines the interface for site setting operations
type SiteSettingRepository interface {
	FindAll(ctx context.Context) ([]*models.SiteSetting, error)
	FindByKey(ctx context.Context, key string) (*models.SiteSetting, error)
	Upsert(ctx context.Context, setting *models.SiteSetting) error
}

// EventLogRepository defines the interface for event log operations
type EventLogRepository interface {
	Create(ctx context.Context, eventLog *models.EventLog) error
	FindLatest(ctx context.Context, limit int) ([]*models.EventLog, error)
	FindAllByUserID(ctx context.Context, userID string, limit int) ([]*models.EventLog, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RepositoryFactory creates repositories bound to one database
type RepositoryFactory struct {
	SQLiteDB *sql.DB
	DBName   string
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(sqliteDB *sql.DB, dbName string) *RepositoryFactory {
	return &RepositoryFactory{
		SQLiteDB: sqliteDB,
		DBName:   dbName,
	}
}

func (f *RepositoryFactory) NewUserRepository() UserRepository {
	return NewSQLiteUserRepository(f.SQLiteDB)
}

func (f *RepositoryFactory) NewSiteSettingRepository() SiteSettingRepository {
	return NewSQLiteSiteSettingRepository(f.SQLiteDB)
}

func (f *RepositoryFactory) NewEventLogRepository() EventLogRepository {
	return NewSQLiteEventLogRepository(f.SQLiteDB)
}

// Close closes the shared database handle
func (f *RepositoryFactory) Close() error {
	return f.SQLiteDB.Close()
}

// GenerateID generates a unique ID for a record
func GenerateID() string {
	return uuid.New().String()
}
