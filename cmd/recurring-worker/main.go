package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"finanzas/internal/config"
	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/services"
	"finanzas/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	logger := log.New(log.Config{Level: log.ParseLevel(cfg.LogLevel)}).
		WithComponent(log.ComponentWorker)
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.DatabasePath)
	if err != nil {
		logger.Error("Failed to open database", log.FieldError, err, "path", cfg.DatabasePath)
		os.Exit(1)
	}
	defer repo.Close()

	ledger := services.NewLedgerSynchronizer()
	expander := services.NewRecurrenceExpander(repo, ledger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scan := func() {
		today := core.DateOf(time.Now())
		report, err := expander.ExpandDue(ctx, today)
		if err != nil {
			logger.Error("Recurrence scan failed", log.FieldError, err)
			return
		}
		logger.Info("Recurrence scan complete",
			"scanned", report.Scanned,
			"expanded", report.Expanded,
			"ended", report.Ended,
			"failed", report.Failed,
			"invalid", len(report.Invalid))
		for _, inv := range report.Invalid {
			logger.Warn("Skipped invalid template",
				log.FieldTransactionID, inv.TemplateID,
				"reason", inv.Reason)
		}
	}

	// Catch up immediately, then on schedule.
	logger.Info("Running startup recurrence scan")
	scan()

	scheduler := cron.New(cron.WithSeconds())
	if _, err := scheduler.AddFunc(cfg.RecurringCronSpec, scan); err != nil {
		logger.Error("Invalid cron spec", log.FieldError, err, "spec", cfg.RecurringCronSpec)
		os.Exit(1)
	}
	scheduler.Start()
	logger.Info("Recurrence scheduler started", "spec", cfg.RecurringCronSpec)

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	// Let an in-flight scan finish before exiting.
	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		logger.Warn("Shutdown timeout reached with scan still running")
	}
	logger.Info("Recurring worker stopped")
}
