package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/cache"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/scheduler"
	"fintrack/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Stdout, os.Getenv("LOG_LEVEL"))
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

	limiter := ratelimit.New(cfg.RateLimitPerMinute, time.Minute)

	caches := cache.NewManager()
	caches.Register(catalog.RateCache())
	caches.Register(limiter)
	caches.StartCleanup(ctx, time.Minute)
	defer caches.Stop()

	transactions := services.NewTransactionService(repo, publisher, catalog)
	processor := services.NewRecurringProcessor(repo, transactions, cli.Engine(cfg))

	sched := scheduler.New(ctx, processor, 5*time.Minute)
	if err := sched.Register(cfg.RecurringSchedule); err != nil {
		logger.Error("Failed to schedule recurring generation", log.FieldError, err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Catalog:      catalog,
		Transactions: transactions,
		Recurring:    services.NewRecurringService(repo, catalog),
		Budgets:      services.NewBudgetService(repo, repo, catalog),
		Goals:        services.NewGoalService(repo, catalog),
		Generator:    processor,
		Ping:         repo.Ping,
		Limiter:      limiter,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting fintrack server", "port", cfg.Port, log.FieldOperation, log.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if cfg.RecurringRunOnStart {
			_, _ = sched.RunNow()
		}
		sched.Start()
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return sched.Stop(shutdownCtx)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		logger.Info("Shutting down HTTP server", log.FieldOperation, log.OpShutdown)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
