package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"agency-portal/models"

	"github.com/mattn/go-sqlite3"
)

// SQLiteUserRepository implements the UserRepository interface for SQLite
type SQLiteUserRepository struct {
	db *sql.DB
}

// NewSQLiteUserRepository creates a new SQLiteUserRepository
func NewSQLiteUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

const userColumns = `id, email, first_name, last_name, phone, role, password_hash, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var user models.User
	var firstName, lastName, phone sql.NullString
	var role string
	var createdAt, updatedAt sql.NullTime

	err := row.Scan(&user.ID, &user.Email, &firstName, &lastName, &phone, &role, &user.Password, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error scanning user: %w", err)
	}

	user.FirstName = firstName.String
	user.LastName = lastName.String
	user.Phone = phone.String
	user.Role = models.UserRole(role)
	if createdAt.Valid {
		user.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		user.UpdatedAt = updatedAt.Time
	}

	return &user, nil
}

// FindByID finds a user by ID
func (r *SQLiteUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// FindByEmail finds a user by email, ignoring case
func (r *SQLiteUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, normalizeEmail(email))
	return scanUser(row)
}

// Create inserts a new user. Email is stored lower-cased; a second account
// with the same email fails with ErrDuplicate.
func (r *SQLiteUserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	if user.ID == "" {
		user.ID = GenerateID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	user.Email = normalizeEmail(user.Email)
	if user.Role == "" {
		user.Role = models.RoleAgent
	}

	query := `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, nullableString(user.FirstName), nullableString(user.LastName),
		nullableString(user.Phone), string(user.Role), user.Password,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("error inserting user: %w", err)
	}

	return nil
}

// UpdatePassword replaces the stored password hash
func (r *SQLiteUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("error updating user password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SQLiteSiteSettingRepository implements the SiteSettingRepository interface for SQLite
type SQLiteSiteSettingRepository struct {
	db *sql.DB
}

// NewSQLiteSiteSettingRepository creates a new SQLiteSiteSettingRepository
func NewSQLiteSiteSettingRepository(db *sql.DB) *SQLiteSiteSettingRepository {
	return &SQLiteSiteSettingRepository{db: db}
}

// FindAll returns every stored setting ordered by key
func (r *SQLiteSiteSettingRepository) FindAll(ctx context.Context) ([]*models.SiteSetting, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value, updated_at FROM site_settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("error querying site settings: %w", err)
	}
	defer rows.Close()

	var settings []*models.SiteSetting
	for rows.Next() {
		var setting models.SiteSetting
		var updatedAt sql.NullTime
		if err := rows.Scan(&setting.Key, &setting.Value, &updatedAt); err != nil {
			return nil, fmt.Errorf("error scanning site setting: %w", err)
		}
		if updatedAt.Valid {
			setting.UpdatedAt = &updatedAt.Time
		}
		settings = append(settings, &setting)
	}

	return settings, rows.Err()
}

// FindByKey finds a single stored setting
func (r *SQLiteSiteSettingRepository) FindByKey(ctx context.Context, key string) (*models.SiteSetting, error) {
	row := r.db.QueryRowContext(ctx, `SELECT key, value, updated_at FROM site_settings WHERE key = ?`, key)

	var setting models.SiteSetting
	var updatedAt sql.NullTime
	if err := row.Scan(&setting.Key, &setting.Value, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error scanning site setting: %w", err)
	}
	if updatedAt.Valid {
		setting.UpdatedAt = &updatedAt.Time
	}
	return &setting, nil
}

// Upsert inserts or replaces the value stored under setting.Key
func (r *SQLiteSiteSettingRepository) Upsert(ctx context.Context, setting *models.SiteSetting) error {
	now := time.Now().UTC()
	setting.UpdatedAt = &now

	query := `INSERT INTO site_settings (key, value, updated_at) VALUES (?, ?, ?)
			  ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := r.db.ExecContext(ctx, query, setting.Key, setting.Value, now); err != nil {
		return fmt.Errorf("error upserting site setting: %w", err)
	}
	return nil
}

// SQLiteEventLogRepository implements the EventLogRepository interface for SQLite
type SQLiteEventLogRepository struct {
	db *sql.DB
}

// NewSQLiteEventLogRepository creates a new SQLiteEventLogRepository
func NewSQLiteEventLogRepository(db *sql.DB) *SQLiteEventLogRepository {
	return &SQLiteEventLogRepository{db: db}
}

// Create creates a new event log
func (r *SQLiteEventLogRepository) Create(ctx context.Context, eventLog *models.EventLog) error {
	if eventLog.CreatedAt == nil {
		now := time.Now().UTC()
		eventLog.CreatedAt = &now
	}

	query := `INSERT INTO event_logs (type, description, user_id, email, created_at)
			  VALUES (?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query,
		eventLog.Type, eventLog.Description, nullableStringPtr(eventLog.UserID),
		nullableStringPtr(eventLog.Email), eventLog.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting event log: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		eventLog.ID = id
	}

	return nil
}

// FindLatest finds the latest event logs
func (r *SQLiteEventLogRepository) FindLatest(ctx context.Context, limit int) ([]*models.EventLog, error) {
	query := `SELECT id, type, description, user_id, email, created_at
			  FROM event_logs ORDER BY created_at DESC, id DESC LIMIT ?`
	return r.query(ctx, query, limit)
}

// FindAllByUserID finds the latest event logs for a user
func (r *SQLiteEventLogRepository) FindAllByUserID(ctx context.Context, userID string, limit int) ([]*models.EventLog, error) {
	query := `SELECT id, type, description, user_id, email, created_at
			  FROM event_logs WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`
	return r.query(ctx, query, userID, limit)
}

// DeleteOlderThan removes events created before cutoff and reports how many
func (r *SQLiteEventLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM event_logs WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("error deleting event logs: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteEventLogRepository) query(ctx context.Context, query string, args ...any) ([]*models.EventLog, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying event logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.EventLog
	for rows.Next() {
		var log models.EventLog
		var userID, email sql.NullString
		var createdAt sql.NullTime

		if err := rows.Scan(&log.ID, &log.Type, &log.Description, &userID, &email, &createdAt); err != nil {
			return nil, fmt.Errorf("error scanning event log: %w", err)
		}

		if userID.Valid {
			log.UserID = &userID.String
		}
		if email.Valid {
			log.Email = &email.String
		}
		if createdAt.Valid {
			log.CreatedAt = &createdAt.Time
		}

		logs = append(logs, &log)
	}

	return logs, rows.Err()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullableStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
