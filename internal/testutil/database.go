// Package testutil holds shared fixtures for package tests.
package testutil

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"agency-portal/db"
	"agency-portal/internal/config"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// SetupTestDatabase opens a schema-initialized SQLite file in a temp dir.
// The handle is closed when the test ends.
func SetupTestDatabase(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	testDB, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=10000&_foreign_keys=on")
	require.NoError(t, err)
	require.NoError(t, db.InitializeSchema(testDB))

	t.Cleanup(func() { testDB.Close() })
	return testDB
}

func SetupTestRepositoryFactory(t *testing.T) *db.RepositoryFactory {
	return db.NewRepositoryFactory(SetupTestDatabase(t), "agency_test")
}

// SetupTestDBManager starts a DBManager stopped at test cleanup.
func SetupTestDBManager(t *testing.T) *db.DBManager {
	m := db.NewDBManager()
	t.Cleanup(m.Stop)
	return m
}

func GetTestConfig() *config.Config {
	return &config.Config{
		Port:          "0",
		SQLitePath:    ":memory:",
		DatabaseName:  "agency_test",
		SessionSecret: []byte(strings.Repeat("k", 32)),
		SessionName:   "agency-session",
		SessionMaxAge: time.Hour,
		BcryptCost:    4,
	}
}
