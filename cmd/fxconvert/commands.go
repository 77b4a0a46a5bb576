package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/currency"
	"fintrack/internal/currency/remote"
	"fintrack/internal/storage"
)

type app struct {
	stdout, stderr io.Writer

	apiURL    string
	cachePath string
	logLevel  string

	repo *storage.SQLiteRepository
	svc  *currency.Service
}

func (a *app) rootCmd() *cobra.Command {
	cfg := config.Load()

	root := &cobra.Command{
		Use:           "fxconvert",
		Short:         "Convert amounts between currencies, online or from the local rate cache",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context(), cfg)
		},
	}
	root.PersistentFlags().StringVar(&a.apiURL, "api", cfg.CurrencyAPIURL, "base URL of the currency API")
	root.PersistentFlags().StringVar(&a.cachePath, "cache", cfg.CacheDBPath, "path of the local cache database")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level written to stderr")

	root.AddCommand(
		a.convertCmd(),
		a.defaultCmd(),
		a.currenciesCmd(),
		a.ratesCmd(),
		a.retryCmd(),
		a.offlineCmd(),
		a.statusCmd(),
	)
	return root
}

func (a *app) open(ctx context.Context, cfg *config.Config) error {
	logger := cli.SetupLogger(a.stderr, a.logLevel)

	repo, err := storage.NewSQLiteRepository(a.cachePath)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	a.repo = repo.WithLogger(logger)

	client := remote.New(a.apiURL,
		remote.WithHealthTimeout(cfg.HealthTimeout),
		remote.WithRequestTimeout(cfg.RequestTimeout),
		remote.WithRetry(uint(max(cfg.RemoteRetryAttempts, 1)), 200*time.Millisecond),
		remote.WithLogger(logger),
	)

	opts := []currency.Option{currency.WithLogger(logger)}
	if cfg.FallbackRatesFile != "" {
		rates, err := currency.LoadRateTable(cfg.FallbackRatesFile)
		if err != nil {
			return err
		}
		opts = append(opts, currency.WithFallbackRates(rates))
	}

	a.svc = currency.NewService(client, currency.NewKVCacheStore(a.repo.KV()), opts...)
	return a.svc.Load(ctx)
}

func (a *app) close() error {
	if a.svc != nil {
		a.svc.Wait()
	}
	if a.repo != nil {
		return a.repo.Close()
	}
	return nil
}

func (a *app) convertCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "convert AMOUNT FROM TO",
		Short:   "Convert AMOUNT from one currency to another",
		Example: "  fxconvert convert 100 EUR MKD",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := core.ParseAmount(args[0])
			if err != nil {
				return err
			}
			res, err := a.svc.Convert(cmd.Context(), amount, args[1], args[2])
			if err != nil {
				if errors.Is(err, core.ErrNoRoute) {
					return fmt.Errorf("conversion unavailable: no rate from %s to %s", args[1], args[2])
				}
				return err
			}
			fmt.Fprintf(a.stdout, "%s %s = %s %s (rate %s, %s)\n",
				res.OriginalAmount, res.OriginalCurrency,
				res.ConvertedAmount.Round(4), res.ConvertedCurrency,
				res.ExchangeRate, a.svc.Mode())
			return nil
		},
	}
}

func (a *app) defaultCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "default [CODE]",
		Short: "Show or change the default currency",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if err := a.svc.SetDefaultCurrency(cmd.Context(), args[0]); err != nil {
					return err
				}
			}
			fmt.Fprintln(a.stdout, a.svc.DefaultCurrency())
			return nil
		},
	}
}

func (a *app) currenciesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "currencies",
		Short: "List known currencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, c := range a.svc.Currencies(cmd.Context()) {
				marker := " "
				if c.IsDefault {
					marker = "*"
				}
				fmt.Fprintf(a.stdout, "%s %s %-4s %s\n", marker, c.Code, c.Symbol, c.Name)
			}
			return nil
		},
	}
}

func (a *app) ratesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rates",
		Short: "Print the rate table in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table := a.svc.Rates(cmd.Context())
			bases := make([]string, 0, len(table))
			for base := range table {
				bases = append(bases, string(base))
			}
			sort.Strings(bases)
			for _, base := range bases {
				targets := table[core.CurrencyCode(base)]
				codes := make([]string, 0, len(targets))
				for to := range targets {
					codes = append(codes, string(to))
				}
				sort.Strings(codes)
				for _, to := range codes {
					fmt.Fprintf(a.stdout, "%s -> %s %s\n", base, to, targets[core.CurrencyCode(to)])
				}
			}
			return nil
		},
	}
}

func (a *app) retryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Try to reconnect to the currency API and refresh the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := a.svc.Refresh(cmd.Context())
			fmt.Fprintln(a.stdout, a.svc.Mode())
			if errors.Is(err, currency.ErrForcedOffline) {
				return errors.New("offline mode is forced; run 'fxconvert offline off' first")
			}
			return err
		},
	}
}

func (a *app) offlineCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "offline on|off",
		Short:     "Force offline mode on or off",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var on bool
			switch args[0] {
			case "on":
				on = true
			case "off":
			default:
				return fmt.Errorf("expected 'on' or 'off', got %q", args[0])
			}
			err := a.svc.ForceOffline(cmd.Context(), on)
			fmt.Fprintln(a.stdout, a.svc.Mode())
			var unavailable *core.RemoteUnavailableError
			if errors.As(err, &unavailable) {
				// still usable from the cache
				return nil
			}
			return err
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the connection mode and default currency",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			state := a.svc.State()
			fmt.Fprintf(a.stdout, "mode: %s\ndefault: %s\nforced offline: %t\npending default: %t\n",
				a.svc.Mode(), state.DefaultCurrency, state.ForceOffline, state.PendingDefault)
			return nil
		},
	}
}

