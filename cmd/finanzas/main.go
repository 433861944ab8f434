package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"finanzas/internal/amqp"
	"finanzas/internal/cache"
	"finanzas/internal/config"
	apphttp "finanzas/internal/http"
	"finanzas/internal/log"
	"finanzas/internal/services"
	"finanzas/internal/storage"
)

func main() {
	// .env is for local development; absent in containers.
	_ = godotenv.Load()

	cfg := config.Load()

	logger := log.New(log.Config{Level: log.ParseLevel(cfg.LogLevel)}).
		WithComponent(log.ComponentApp)
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

	// AMQP is optional: without it transactions are recorded but no
	// events reach the export worker.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without event publishing", log.FieldError, err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange)
		}
	} else {
		logger.Info("AMQP disabled, transaction events will not be published")
	}

	ledger := services.NewLedgerSynchronizer()
	expander := services.NewRecurrenceExpander(repo, ledger)
	budgets := services.NewBudgetService(repo)
	dashboard := services.NewDashboardService(repo, budgets, cfg.DashboardCacheTTL)

	// Sweep expired summaries of inactive users out of the cache.
	cacheManager := cache.NewManager()
	cacheManager.Register(dashboard.Cache())
	cacheManager.StartCleanup(cfg.DashboardCacheTTL)
	defer cacheManager.Stop()

	svc := apphttp.Services{
		Accounts:     services.NewAccountService(repo, ledger),
		Transactions: services.NewTransactionService(repo, ledger, amqpClient, cfg.EditWindow),
		Recurrence:   expander,
		Categories:   services.NewCategoryService(repo),
		Budgets:      budgets,
		Goals:        services.NewGoalService(repo),
		Dashboard:    dashboard,
	}

	srv := apphttp.New(apphttp.Config{
		Addr:              ":" + cfg.Port,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		RequestsPerMinute: 120,
		Logger:            logger.WithComponent(log.ComponentHTTP),
	}, svc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	logger.Info("Server started", "port", cfg.Port)
	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
