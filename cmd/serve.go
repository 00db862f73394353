package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/medley/internal/repositories"
	"github.com/desertthunder/medley/internal/server"
	"github.com/desertthunder/medley/internal/services"
	"github.com/desertthunder/medley/internal/shared"
	"github.com/desertthunder/medley/internal/tasks"
	"github.com/desertthunder/medley/internal/watcher"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v3"
)

// Serve runs the API server together with the processing queue, the
// filesystem watcher and the periodic scan schedule. Blocks until
// SIGINT/SIGTERM, then drains in-flight work.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if host := cmd.String("host"); host != "" {
		r.config.Server.Host = host
	}
	if port := cmd.Int("port"); port != 0 {
		r.config.Server.Port = int(port)
	}

	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prober := services.NewFFProbe(r.config.Scanner.FFProbePath, r.logger)
	remuxer := services.NewFFMpeg(r.config.Processor.FFMpegPath, r.logger)

	scanner := tasks.NewScanEngine(db, prober, r.config.Scanner, r.logger)
	processor := tasks.NewProcessEngine(db, remuxer, r.config.Processor, r.logger)
	processor.Start(ctx)
	defer processor.Stop()

	var watches *watcher.Watcher
	if r.config.Watcher.Enabled && !cmd.Bool("no-watcher") {
		watches = watcher.NewWatcher(db, scanner, *r.config, r.logger)
		if err := watches.Start(ctx); err != nil {
			r.logger.Warn("file watcher failed to start", "error", err)
			watches = nil
		} else {
			defer watches.Stop()
		}
	}

	scheduler, err := r.startScheduler(ctx, db, scanner)
	if err != nil {
		r.logger.Warn("scan scheduler not started", "error", err)
	} else if scheduler != nil {
		defer scheduler.Stop()
	}

	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger), server.Recover(r.logger))
	deps := server.APIDeps{
		DB:        db,
		Scanner:   scanner,
		Previewer: remuxer,
		Logger:    r.logger,
	}
	if watches != nil {
		deps.Watcher = watches
	}
	router.Handler(server.NewAPIHandler(deps))

	srv := server.NewServer(r.config.Server.Addr(), router, r.logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		r.logger.Info("shutting down", "signal", sig)
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	return nil
}

// startScheduler arms the periodic full-library scan. The cadence
// comes from the scan_interval setting; 0 disables the schedule.
func (r *Runner) startScheduler(ctx context.Context, db *sql.DB, scanner *tasks.ScanEngine) (*cron.Cron, error) {
	settings := repositories.NewSettingsRepository(db)
	interval := settings.GetInt(repositories.SettingScanInterval, 3600)
	if interval <= 0 {
		r.logger.Info("periodic scanning disabled")
		return nil, nil
	}

	scheduler := cron.New()
	spec := fmt.Sprintf("@every %ds", interval)
	_, err := scheduler.AddFunc(spec, func() {
		if scanner.Scanning() {
			r.logger.Info("skipping scheduled scan, one is already running")
			return
		}
		if err := scanner.Scan(ctx, nil); err != nil && !errors.Is(err, shared.ErrScanActive) {
			r.logger.Error("scheduled scan failed", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule scans: %w", err)
	}

	scheduler.Start()
	r.logger.Info("scan scheduler armed", "interval", interval)
	return scheduler, nil
}
