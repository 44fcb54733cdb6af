package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"agency-portal/db"
	"agency-portal/internal/config"
	"agency-portal/internal/logging"
	"agency-portal/internal/web"

	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		// no logger yet
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		return err
	}

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Dev: cfg.LogDev})
	if err != nil {
		os.Stderr.WriteString("failed to build logger: " + err.Error() + "\n")
		return err
	}
	defer logger.Sync()

	logger.Info("starting agency portal backend",
		zap.Int("pid", os.Getpid()),
		zap.String("runtime", runtime.GOOS+"/"+runtime.GOARCH),
		zap.String("go", runtime.Version()))

	sqliteDB, err := db.ConnectToSQLite(cfg.SQLitePath)
	if err != nil {
		logger.Error("failed to connect to SQLite", zap.String("path", cfg.SQLitePath), zap.Error(err))
		return err
	}
	defer sqliteDB.Close()

	// Initialize database schema
	if err := db.InitializeSchema(sqliteDB); err != nil {
		logger.Error("failed to initialize database schema", zap.Error(err))
		return err
	}

	srv := web.NewServer(cfg, sqliteDB, nil, logger)
	defer srv.Close()

	seedCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = srv.SeedAdmin(seedCtx, cfg.AdminEmail, cfg.AdminPassword)
	cancel()
	if err != nil {
		logger.Error("failed to seed admin account", zap.Error(err))
		return err
	}

	srv.Retention.Start()

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server is starting", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	return waitForShutdown(server, serverErr, logger)
}

func waitForShutdown(server *http.Server, serverErr <-chan error, logger *zap.Logger) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err, ok := <-serverErr:
		if ok {
			logger.Error("server ListenAndServe error", zap.Error(err))
			return err
		}
		return nil
	case sig := <-stop:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("shutting down the server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return err
	}
	logger.Info("services stopped")
	return nil
}
