package db

import (
	"context"
	"errors"
	"time"

	"agency-portal/internal/util"
	"agency-portal/models"
)

var ErrManagerStopped = errors.New("database manager stopped")

// Operation represents a database write that needs to be executed
type Operation struct {
	Ctx     context.Context
	Execute func() error
	Result  chan error
}

// DBManager serializes writes so concurrent requests never race SQLite's
// single writer lock.
type DBManager struct {
	opQueue  chan Operation
	stopping chan struct{}
	stopped  chan struct{}
}

// NewDBManager creates a new database manager and starts its worker
func NewDBManager() *DBManager {
	m := &DBManager{
		opQueue:  make(chan Operation, 100),
		stopping: make(chan struct{}),
		stopped:  make(chan struct{}),
	}

	go m.worker()
	return m
}

// worker processes operations one at a time
func (m *DBManager) worker() {
	defer close(m.stopped)
	for {
		select {
		case op := <-m.opQueue:
			if err := op.Ctx.Err(); err != nil {
				op.Result <- err
				continue
			}
			op.Result <- util.RetryOnLock(op.Ctx, op.Execute)
		case <-m.stopping:
			return
		}
	}
}

// ExecuteOperation queues execute and waits for its result
func (m *DBManager) ExecuteOperation(ctx context.Context, execute func() error) error {
	resultChan := make(chan error, 1)
	select {
	case m.opQueue <- Operation{Ctx: ctx, Execute: execute, Result: resultChan}:
	case <-m.stopping:
		return ErrManagerStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-resultChan:
		return err
	case <-m.stopped:
		return ErrManagerStopped
	}
}

// Stop stops the worker. Queued but unstarted operations fail with
// ErrManagerStopped.
func (m *DBManager) Stop() {
	select {
	case <-m.stopping:
	default:
		close(m.stopping)
	}
	<-m.stopped
}

// CreateUser serializes user creation
func (m *DBManager) CreateUser(ctx context.Context, repo UserRepository, user *models.User) error {
	return m.ExecuteOperation(ctx, func() error {
		return repo.Create(ctx, user)
	})
}

// UpdateUserPassword serializes password updates
func (m *DBManager) UpdateUserPassword(ctx context.Context, repo UserRepository, id, passwordHash string) error {
	return m.ExecuteOperation(ctx, func() error {
		return repo.UpdatePassword(ctx, id, passwordHash)
	})
}

// UpsertSiteSetting serializes site setting writes
func (m *DBManager) UpsertSiteSetting(ctx context.Context, repo SiteSettingRepository, setting *models.SiteSetting) error {
	return m.ExecuteOperation(ctx, func() error {
		return repo.Upsert(ctx, setting)
	})
}

// CreateEventLog serializes event log creation
func (m *DBManager) CreateEventLog(ctx context.Context, repo EventLogRepository, eventLog *models.EventLog) error {
	return m.ExecuteOperation(ctx, func() error {
		return repo.Create(ctx, eventLog)
	})
}

// PruneEventLogs serializes event log retention deletes
func (m *DBManager) PruneEventLogs(ctx context.Context, repo EventLogRepository, cutoff time.Time) (int64, error) {
	var deleted int64
	err := m.ExecuteOperation(ctx, func() error {
		n, err := repo.DeleteOlderThan(ctx, cutoff)
		deleted = n
		return err
	})
	return deleted, err
}
