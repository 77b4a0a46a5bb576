package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type Config struct {
	// HTTP Server
	Port string

	// RateLimitPerMinute caps write requests per client; 0 disables it.
	RateLimitPerMinute int

	// Database
	SQLiteDBPath string
	// CacheDBPath holds the client-side conversion cache used by fxconvert.
	CacheDBPath string

	// AMQP; an empty URL disables event publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Recurring generation
	RecurringSchedule   string
	RecurringRunOnStart bool
	MonthEndPolicy      string

	// Remote currency service
	CurrencyAPIURL      string
	HealthTimeout       time.Duration
	RequestTimeout      time.Duration
	RemoteRetryAttempts int
	FallbackRatesFile   string

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/fintrack.db"),
		CacheDBPath:  getEnv("CACHE_DB_PATH", "./data/fxcache.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fintrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "transactions_created"),

		RecurringSchedule:   getEnv("RECURRING_SCHEDULE", "0 6 * * *"),
		RecurringRunOnStart: getEnvBool("RECURRING_RUN_ON_START", true),
		MonthEndPolicy:      getEnv("MONTH_END_POLICY", "clamp"),

		CurrencyAPIURL:      getEnv("CURRENCY_API_URL", "http://localhost:8081"),
		HealthTimeout:       getEnvDuration("HEALTH_TIMEOUT", 2*time.Second),
		RequestTimeout:      getEnvDuration("REQUEST_TIMEOUT", 10*time.Second),
		RemoteRetryAttempts: getEnvInt("REMOTE_RETRY_ATTEMPTS", 3),
		FallbackRatesFile:   getEnv("FALLBACK_RATES_FILE", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: cannot be negative", c.RateLimitPerMinute))
	}

	for name, path := range map[string]string{"SQLite database": c.SQLiteDBPath, "cache database": c.CacheDBPath} {
		if path == "" {
			errors = append(errors, fmt.Sprintf("%s path cannot be empty", name))
			continue
		}
		dir := filepath.Dir(path)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create %s directory '%s': %v", name, dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := cron.ParseStandard(c.RecurringSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid recurring schedule '%s': %v", c.RecurringSchedule, err))
	}
	if c.MonthEndPolicy != "clamp" && c.MonthEndPolicy != "strict" {
		errors = append(errors, fmt.Sprintf("invalid month end policy '%s': must be 'clamp' or 'strict'", c.MonthEndPolicy))
	}

	if parsedURL, err := url.Parse(c.CurrencyAPIURL); err != nil || parsedURL.Host == "" ||
		(parsedURL.Scheme != "http" && parsedURL.Scheme != "https") {
		errors = append(errors, fmt.Sprintf("invalid currency API URL '%s': must be an absolute http(s) URL", c.CurrencyAPIURL))
	}
	if c.HealthTimeout <= 0 || c.HealthTimeout > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid health timeout %v: must be between 0 and 1 minute", c.HealthTimeout))
	}
	if c.RequestTimeout <= 0 || c.RequestTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid request timeout %v: must be between 0 and 5 minutes", c.RequestTimeout))
	}
	if c.RemoteRetryAttempts < 1 || c.RemoteRetryAttempts > 10 {
		errors = append(errors, fmt.Sprintf("invalid remote retry attempts %d: must be between 1 and 10", c.RemoteRetryAttempts))
	}
	if c.FallbackRatesFile != "" {
		if _, err := os.Stat(c.FallbackRatesFile); err != nil {
			errors = append(errors, fmt.Sprintf("fallback rates file not readable: %s", c.FallbackRatesFile))
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
