package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"finanzas/internal/amqp"
	"finanzas/internal/config"
	"finanzas/internal/log"
	gsheet "finanzas/internal/sheets/google"
	"finanzas/internal/storage"
	"finanzas/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	logger := log.New(log.Config{Level: log.ParseLevel(cfg.LogLevel)}).
		WithComponent(log.ComponentExport)
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	if err := cfg.ValidateSheets(); err != nil {
		logger.Error("Sheets configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the export worker")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.DatabasePath)
	if err != nil {
		logger.Error("Failed to open database", log.FieldError, err, "path", cfg.DatabasePath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	writer, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.SheetsSpreadsheetID,
		SheetName:       cfg.SheetsSheetName,
		OAuthClientFile: cfg.GoogleOAuthClientFile,
		OAuthClientJSON: cfg.GoogleOAuthClientJSON,
		OAuthTokenFile:  cfg.GoogleOAuthTokenFile,
		OAuthTokenJSON:  cfg.GoogleOAuthTokenJSON,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to connect to AMQP", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exporter := worker.NewExportWorker(repo, writer, cfg.ExportBatchSize, cfg.ExportFlushInterval)

	// Prime the dedupe set so redeliveries after a restart don't produce
	// duplicate statement rows.
	if err := exporter.LoadExported(ctx); err != nil {
		logger.Warn("Could not load exported event ids, duplicates possible", log.FieldError, err)
	}

	logger.Info("Export worker started",
		"spreadsheet", cfg.SheetsSpreadsheetID,
		"sheet", cfg.SheetsSheetName,
		"batch_size", cfg.ExportBatchSize,
		"flush_interval", cfg.ExportFlushInterval)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeTransactionEvents(ctx, func(ev *amqp.TransactionEvent) error {
			return exporter.HandleEvent(ctx, ev)
		})
	})
	g.Go(func() error {
		return exporter.Run(ctx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("Export worker error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Export worker stopped")
}
