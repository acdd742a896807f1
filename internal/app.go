// Package internal contains core application functionality
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"trafficlens/internal/config"
	"trafficlens/internal/dashboard"
	"trafficlens/internal/database"
	"trafficlens/internal/http"
	"trafficlens/internal/jobs"
	"trafficlens/internal/logging"
	"trafficlens/internal/records"
	"trafficlens/internal/sessions"
)

// Application wires the loaded data, the session store, the background
// jobs and the HTTP server.
type Application struct {
	Config    *config.Config
	Logger    *slog.Logger
	DBManager *database.DBManager // nil unless DataSource is sqlite
	Dashboard *dashboard.Context
	Sessions  *sessions.Store
	Scheduler *jobs.Scheduler
	Server    *http.Server
}

// NewApp creates a new application instance with default settings
func NewApp() (*Application, error) {
	cfg := config.GetConfig()
	return NewAppWithConfig(cfg)
}

// NewAppWithConfig loads the records named by cfg and builds the application.
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	logger := logging.New(cfg)

	source, dbManager, err := OpenSource(cfg, logger)
	if err != nil {
		return nil, err
	}

	events, devices, err := records.Load(context.Background(), source)
	if err != nil {
		if dbManager != nil {
			_ = dbManager.Close()
		}
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	app, err := NewAppWithData(cfg, logger, events, devices)
	if err != nil {
		if dbManager != nil {
			_ = dbManager.Close()
		}
		return nil, err
	}
	app.DBManager = dbManager
	return app, nil
}

// OpenSource returns the record source for cfg.DataSource. For sqlite it
// also returns the open database manager, which the caller closes.
func OpenSource(cfg *config.Config, logger *slog.Logger) (records.Source, *database.DBManager, error) {
	switch cfg.DataSource {
	case config.SQLiteSource:
		dm := database.NewDBManager(cfg, logger)
		if err := dm.Init(); err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return &records.SQLiteSource{DB: dm.GetConnection()}, dm, nil
	case config.CSVSource:
		return &records.CSVSource{
			EventsPath:  cfg.EventsPath,
			DevicesPath: cfg.DevicesPath,
			Logger:      logger,
		}, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown data source %q", cfg.DataSource)
	}
}

// NewAppWithData builds the application over already loaded tables.
func NewAppWithData(cfg *config.Config, logger *slog.Logger, events records.EventTable, devices records.DeviceTable) (*Application, error) {
	dc, err := dashboard.NewContext(events, devices, dashboard.OptionsFromConfig(cfg))
	if err != nil {
		logger.Error("Failed to build dashboard data", slog.Any("error", err))
		return nil, err
	}

	d := dc.Domains()
	logger.Info("Dashboard data ready",
		slog.Int("events", len(events.Rows)),
		slog.Int("devices", dc.DeviceCount()),
		slog.Int("fact_rows", dc.Facts().Len()),
		slog.Int64("unmatched_events", dc.Facts().UnmatchedTotal()),
		slog.Int("sites", d.Sites.Len()),
		slog.Int("os_types", d.OSTypes.Len()),
		slog.Int("browsers", d.Browsers.Len()))

	store := sessions.NewStore(dc, time.Duration(cfg.GetSessionTimeout())*time.Second, logger)

	scheduler := jobs.NewScheduler(logger)
	scheduler.Register("session_cleanup",
		jobs.NewSessionCleanupJob(store, logger),
		time.Duration(cfg.JobIntervalSeconds)*time.Second)

	srv := http.NewServer(http.ServerConfig{
		AppName:  cfg.AppName,
		Logger:   logger,
		Sessions: store,
	})
	MountAppRoutes(srv, cfg)

	return &Application{
		Config:    cfg,
		Logger:    logger,
		Dashboard: dc,
		Sessions:  store,
		Scheduler: scheduler,
		Server:    srv,
	}, nil
}

// StartAsync starts the background jobs and serves HTTP in a goroutine.
func (a *Application) StartAsync() error {
	if err := a.Scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start background jobs: %w", err)
	}

	addr := ":" + a.Config.AppPort
	go func() {
		a.Logger.Info("HTTP server listening", slog.String("addr", addr))
		if err := a.Server.Listen(addr); err != nil {
			a.Logger.Error("HTTP server stopped", slog.Any("error", err))
		}
	}()
	return nil
}

// Shutdown stops the server, the background jobs and the database.
func (a *Application) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}
	a.Scheduler.Stop()
	if a.DBManager != nil {
		if err := a.DBManager.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	return errors.Join(errs...)
}
