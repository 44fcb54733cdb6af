package settings

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"agency-portal/db"
	"agency-portal/models"
)

const maxValueLength = 4096

var (
	ErrInvalidKey   = errors.New("setting key must match [a-z0-9_]{1,64}")
	ErrValueTooLong = fmt.Errorf("setting value exceeds %d bytes", maxValueLength)
)

var keyPattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// SettingsService serves public site settings, falling back to built-in
// defaults for keys that were never stored.
type SettingsService struct {
	repo      db.SiteSettingRepository
	dbManager *db.DBManager
	defaults  map[string]string
}

func NewSettingsService(repo db.SiteSettingRepository, dbManager *db.DBManager) *SettingsService {
	return &SettingsService{
		repo:      repo,
		dbManager: dbManager,
		defaults:  models.DefaultSiteSettings(),
	}
}

// GetAll returns defaults overlaid with every stored value
func (s *SettingsService) GetAll(ctx context.Context) (map[string]string, error) {
	stored, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]string, len(s.defaults)+len(stored))
	for k, v := range s.defaults {
		merged[k] = v
	}
	for _, setting := range stored {
		merged[setting.Key] = setting.Value
	}
	return merged, nil
}

// Get returns the stored value for key, or its default. Keys with neither
// yield db.ErrNotFound.
func (s *SettingsService) Get(ctx context.Context, key string) (*models.SiteSetting, error) {
	setting, err := s.repo.FindByKey(ctx, key)
	if err == nil {
		return setting, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}
	if v, ok := s.defaults[key]; ok {
		return &models.SiteSetting{Key: key, Value: v}, nil
	}
	return nil, db.ErrNotFound
}

// Update stores value under key
func (s *SettingsService) Update(ctx context.Context, key, value string) (*models.SiteSetting, error) {
	if !keyPattern.MatchString(key) {
		return nil, ErrInvalidKey
	}
	if len(value) > maxValueLength {
		return nil, ErrValueTooLong
	}

	setting := &models.SiteSetting{Key: key, Value: value}
	if err := s.dbManager.UpsertSiteSetting(ctx, s.repo, setting); err != nil {
		return nil, err
	}
	return setting, nil
}
