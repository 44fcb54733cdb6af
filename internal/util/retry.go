package util

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

const (
	maxLockRetries = 3
	baseLockDelay  = 100 * time.Millisecond
)

// IsLockError reports whether err is SQLite refusing the write because
// another connection holds the database.
func IsLockError(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return strings.Contains(err.Error(), "database is locked")
}

// RetryOnLock runs operation up to three times, waiting 100ms then 200ms
// between attempts while it fails with a lock error. Other errors are
// returned immediately.
func RetryOnLock(ctx context.Context, operation func() error) error {
	var err error
	for i := 0; i < maxLockRetries; i++ {
		err = operation()
		if !IsLockError(err) {
			return err
		}
		if i == maxLockRetries-1 {
			break
		}

		timer := time.NewTimer(baseLockDelay * time.Duration(1<<i))
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}

	return err
}
