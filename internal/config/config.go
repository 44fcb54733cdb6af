package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort          = "3000"
	defaultDatabaseName  = "agency"
	defaultSessionName   = "agency-session"
	defaultSessionMaxAge = 7 * 24 * time.Hour
	defaultBcryptCost    = 12
	defaultRetention     = 90 * 24 * time.Hour
	defaultPruneInterval = time.Hour
	minSessionSecretLen  = 32
)

type Config struct {
	Port string
	// SQLite config
	SQLitePath   string
	DatabaseName string
	// Session cookie config
	SessionSecret  []byte
	SessionName    string
	SessionMaxAge  time.Duration
	CookieSecure   bool
	AllowedOrigins []string
	// Admin account seeded at startup, optional
	AdminEmail    string
	AdminPassword string
	BcryptCost    int
	// Event logs older than EventLogRetention are pruned every
	// PruneInterval; zero retention keeps everything.
	EventLogRetention time.Duration
	PruneInterval     time.Duration
	LogLevel          string
	LogDev            bool
}

// LoadConfig reads an optional .env file and then the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from the given lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	secret := getenv("SESSION_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is not set")
	}
	if len(secret) < minSessionSecretLen {
		return nil, fmt.Errorf("SESSION_SECRET must be at least %d characters", minSessionSecretLen)
	}

	databaseName := getenv("DATABASE_NAME")
	if databaseName == "" {
		databaseName = defaultDatabaseName
	}

	config := &Config{
		Port:              valueOr(getenv("PORT"), defaultPort),
		DatabaseName:      databaseName,
		SessionSecret:     []byte(secret),
		SessionName:       valueOr(getenv("SESSION_NAME"), defaultSessionName),
		SessionMaxAge:     defaultSessionMaxAge,
		BcryptCost:        defaultBcryptCost,
		EventLogRetention: defaultRetention,
		PruneInterval:     defaultPruneInterval,
		AdminEmail:        strings.TrimSpace(getenv("ADMIN_EMAIL")),
		AdminPassword:     getenv("ADMIN_PASSWORD"),
		LogLevel:          getenv("LOG_LEVEL"),
		LogDev:            getenv("LOG_DEV") == "1",
	}

	sqlitePath := getenv("SQLITE_PATH")
	if sqlitePath == "" {
		// Default to a data directory in the current directory
		sqlitePath = filepath.Join("data", fmt.Sprintf("%s.db", databaseName))
	}
	config.SQLitePath = sqlitePath

	if v := getenv("SESSION_MAX_AGE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid SESSION_MAX_AGE %q", v)
		}
		config.SessionMaxAge = d
	}

	if v := getenv("COOKIE_SECURE"); v != "" {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid COOKIE_SECURE %q", v)
		}
		config.CookieSecure = secure
	}

	if v := getenv("BCRYPT_COST"); v != "" {
		cost, err := strconv.Atoi(v)
		if err != nil || cost < 4 || cost > 31 {
			return nil, fmt.Errorf("invalid BCRYPT_COST %q", v)
		}
		config.BcryptCost = cost
	}

	if v := getenv("EVENT_LOG_RETENTION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("invalid EVENT_LOG_RETENTION %q", v)
		}
		config.EventLogRetention = d
	}

	if v := getenv("EVENT_LOG_PRUNE_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid EVENT_LOG_PRUNE_INTERVAL %q", v)
		}
		config.PruneInterval = d
	}

	for _, origin := range strings.Split(getenv("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			config.AllowedOrigins = append(config.AllowedOrigins, origin)
		}
	}

	if (config.AdminEmail == "") != (config.AdminPassword == "") {
		return nil, fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}

	return config, nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
