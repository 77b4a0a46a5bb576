package main

import (
	"context"
	"os"
	"time"

	"fintrack/internal/cli"
	"fintrack/internal/log"
	"fintrack/internal/scheduler"
	"fintrack/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Stdout, os.Getenv("LOG_LEVEL"))
	logger.Info("Starting recurring-worker", log.FieldOperation, log.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	publisher, closePublisher := cli.InitPublisher(logger, cfg)
	defer closePublisher()

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	catalog := services.NewCurrencyCatalog(repo, cli.FallbackRates(logger, cfg))
	if _, err := catalog.Initialize(ctx); err != nil {
		logger.Error("Failed to initialize currency catalog", log.FieldError, err)
		os.Exit(1)
	}
	transactions := services.NewTransactionService(repo, publisher, catalog)
	processor := services.NewRecurringProcessor(repo, transactions, cli.Engine(cfg))

	sched := scheduler.New(ctx, processor, 5*time.Minute)
	if err := sched.Register(cfg.RecurringSchedule); err != nil {
		logger.Error("Failed to schedule recurring generation", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Recurring processor configured",
		"schedule", cfg.RecurringSchedule,
		"month_end_policy", cfg.MonthEndPolicy,
		"sqlite_db", cfg.SQLiteDBPath)

	if cfg.RecurringRunOnStart {
		logger.Info("Running initial recurring generation...")
		if _, err := sched.RunNow(); err != nil {
			logger.Error("Initial generation failed", log.FieldError, err)
		}
	}
	sched.Start()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	logger.Info("Shutting down recurring-worker...")
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Warn("Shutdown timeout reached", log.FieldError, err)
		return
	}
	logger.Info("Recurring-worker shutdown complete")
}
