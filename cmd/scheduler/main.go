package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"github.com/fizanakara/membership-engine/internal/config"
	"github.com/fizanakara/membership-engine/internal/repository"
	"github.com/fizanakara/membership-engine/internal/service"
	"github.com/fizanakara/membership-engine/pkg/logger"
)

const jobTimeout = 5 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting membership scheduler")

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	contributionRepo := repository.NewContributionRepository(db)
	contributionService := service.NewContributionService(
		contributionRepo,
		repository.NewPaymentRepository(db),
		repository.NewPersonRepository(db),
		repository.NewSequenceRepository(db),
		cfg.GetContributionPolicy(),
	)
	maintenance := service.NewMaintenanceService(repository.NewTokenRepository(db), contributionRepo, contributionService)

	// Initialize cron scheduler
	c := cron.New(cron.WithSeconds(), cron.WithLocation(cfg.GetSchedulerLocation()))

	if err := setupCronJobs(c, cfg, maintenance); err != nil {
		slog.Error("failed to schedule jobs", "error", err)
		os.Exit(1)
	}

	// Start the scheduler
	c.Start()
	slog.Info("scheduler started", "timezone", cfg.Scheduler.Timezone)

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down scheduler")
	<-c.Stop().Done()
	slog.Info("scheduler stopped")
}

func setupCronJobs(c *cron.Cron, cfg *config.Config, maintenance *service.MaintenanceService) error {
	// Expired refresh and reset tokens
	if _, err := c.AddFunc(cfg.Scheduler.TokenCleanupSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		purged, err := maintenance.PurgeExpiredTokens(ctx)
		if err != nil {
			slog.Error("token cleanup failed", "error", err)
			return
		}
		slog.Info("token cleanup finished", "purged", purged)
	}); err != nil {
		return err
	}

	// Contributions whose due date passed while unpaid
	if _, err := c.AddFunc(cfg.Scheduler.OverdueRefreshSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		updated, err := maintenance.RefreshOverdueContributions(ctx)
		if err != nil {
			slog.Error("overdue refresh failed", "error", err)
			return
		}
		slog.Info("overdue refresh finished", "updated", updated)
	}); err != nil {
		return err
	}

	slog.Info("cron jobs scheduled",
		"token_cleanup", cfg.Scheduler.TokenCleanupSpec,
		"overdue_refresh", cfg.Scheduler.OverdueRefreshSpec,
	)
	return nil
}
