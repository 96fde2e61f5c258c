package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Dan9191/aromastream/internal/config"
	"github.com/Dan9191/aromastream/internal/integrations/device"
	"github.com/Dan9191/aromastream/internal/repository"
	"github.com/Dan9191/aromastream/internal/service"
	"github.com/Dan9191/aromastream/internal/storage"
	"github.com/Dan9191/aromastream/internal/utils/email"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// app bundles the long-lived dependencies shared by every command.
type app struct {
	cfg    *config.Config
	logger *logrus.Logger
	db     *sql.DB
	store  repository.Store
}

func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	return logger
}

// newApp loads the configuration and opens the store. The caller must defer
// app.Close().
func newApp(ctx context.Context, configPath string) (*app, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.NewConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	a := &app{cfg: cfg, logger: newLogger(cfg.LogLevel)}

	switch cfg.DBDriver {
	case config.DriverMemory:
		a.logger.Warn("Using the in-memory store, data will be lost on exit")
		a.store = repository.NewMemory()
	default:
		db, err := sql.Open("postgres", cfg.DBConn)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)

		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		a.db = db
		a.store = repository.NewRepository(db)
	}
	return a, nil
}

// migrate applies pending schema migrations. The in-memory store has none.
func (a *app) migrate(ctx context.Context) error {
	if a.db == nil {
		return nil
	}
	if err := repository.Migrate(ctx, a.db); err != nil {
		return err
	}
	a.logger.Info("Database migrations applied")
	return nil
}

// newService wires the service layer with every configured integration
func (a *app) newService(ctx context.Context) (*service.Service, error) {
	st, err := storage.NewFromConfig(ctx, a.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var notifier service.Notifier
	if a.cfg.SMTPHost != "" {
		notifier = email.NewSender(a.cfg, a.logger)
	} else {
		a.logger.Info("SMTP_HOST is not set, confirmation codes will only be logged")
		notifier = email.NewLogSender(a.logger)
	}

	return service.NewService(a.store, a.logger, a.cfg,
		service.WithStorage(st),
		service.WithNotifier(notifier),
		service.WithDevice(device.NewClient(a.cfg, a.logger)),
	), nil
}

func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Errorf("Failed to close database: %v", err)
		}
	}
}
