// Package cli holds the start-up steps shared by the binaries under cmd/.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"fintrack/internal/amqp"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/currency"
	"fintrack/internal/log"
	"fintrack/internal/recurrence"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

// SetupLogger installs a text handler on w at level as the process default.
func SetupLogger(w io.Writer, level string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(level),
		Component: log.ComponentApp,
		Handler:   slog.NewTextHandler(w, &slog.HandlerOptions{Level: log.ParseLevel(level)}),
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and exits on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite opens the repository at dbPath and exits on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return repo.WithLogger(log.Default(log.ComponentStorage))
}

// InitPublisher connects to the broker when one is configured. It returns a
// nil publisher and a no-op close when AMQP is disabled or unreachable, so
// callers can pass the result straight to services.NewTransactionService.
func InitPublisher(logger *log.Logger, cfg *config.Config) (services.EventPublisher, func()) {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled - transaction events will not be published")
		return nil, func() {}
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		return nil, func() {}
	}
	logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client, func() { client.Close() }
}

// FallbackRates returns the operator-supplied rate table, or nil for the
// shipped one.
func FallbackRates(logger *log.Logger, cfg *config.Config) core.RateTable {
	if cfg.FallbackRatesFile == "" {
		return nil
	}
	rates, err := currency.LoadRateTable(cfg.FallbackRatesFile)
	if err != nil {
		logger.Error("Failed to load fallback rates", log.FieldError, err, "path", cfg.FallbackRatesFile)
		os.Exit(1)
	}
	return rates
}

// Engine builds the recurrence engine for the configured month-end policy.
func Engine(cfg *config.Config) *recurrence.Engine {
	policy, _ := recurrence.PolicyByName(cfg.MonthEndPolicy)
	return recurrence.NewEngine(policy)
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM.
func ShutdownContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received")
	}()
	return ctx, stop
}
