// main.go - trafficlens dashboard server
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trafficlens/internal"
	"trafficlens/internal/config"
)

const (
	defaultShutdownTimeout = 30 * time.Second
)

func main() {
	cfg := config.GetConfig()

	log.Printf("Loading %s records...", cfg.DataSource)
	app, err := internal.NewAppWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to build dashboard from %s source: %v", cfg.DataSource, err)
	}

	if err := app.StartAsync(); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
	app.Logger.Info("Dashboard server started",
		slog.String("datasource", cfg.DataSource),
		slog.String("port", cfg.AppPort),
		slog.Int64("domain_threshold", cfg.DomainThreshold),
		slog.Duration("session_timeout", time.Duration(cfg.GetSessionTimeout())*time.Second),
		slog.Duration("cleanup_interval", time.Duration(cfg.JobIntervalSeconds)*time.Second))

	waitForShutdownSignal(app)
}

// waitForShutdownSignal blocks until a termination signal, then drops the
// live sessions and stops the server.
func waitForShutdownSignal(app *internal.Application) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigChan
	app.Logger.Info("Shutting down dashboard server",
		slog.String("signal", sig.String()),
		slog.Int("live_sessions", app.Sessions.Len()))

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	if err := app.Shutdown(ctx); err != nil {
		app.Logger.Error("Shutdown failed", slog.Any("error", err))
		os.Exit(1)
	}
	app.Logger.Info("Dashboard server stopped")
}
