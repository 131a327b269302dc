/*
main.go - Application entry point

PURPOSE:
  Starts swapd, the token ledger and swap pool HTTP service.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load config (flags > SWAPD_* env > swapd.yaml)
  2. Build the zap logger
  3. Open the state store (memory, sqlite or postgres)
  4. Create API handler and router
  5. Optionally load a demo scenario
  6. Start the periodic auditor
  7. Serve until SIGINT/SIGTERM, then drain within shutdown-timeout

EXAMPLES:
  # In-memory store with a seeded pool
  swapd serve --scenario=seeded-pool

  # SQLite file store
  swapd serve --store=sqlite --db=./data/swapd.db

  # Postgres
  SWAPD_PG_DSN=postgres://localhost/swapd swapd serve --store=postgres

SEE ALSO:
  - config/config.go: Keys and defaults
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/warp/swap-engine/api"
	"github.com/warp/swap-engine/bank"
	"github.com/warp/swap-engine/config"
	"github.com/warp/swap-engine/state/store"
	"github.com/warp/swap-engine/store/postgres"
	"github.com/warp/swap-engine/store/sqlite"
	"github.com/warp/swap-engine/swap"
)

func main() {
	root := &cobra.Command{
		Use:          "swapd",
		Short:        "Token ledger and constant-product swap service",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE:  runServe,
	}

	serveCmd.Flags().Int("port", 8080, "HTTP server port")
	serveCmd.Flags().String("store", config.StoreMemory, "state store (memory, sqlite, postgres)")
	serveCmd.Flags().String("db", "./data/swapd.db", "SQLite database path")
	serveCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	serveCmd.Flags().Uint64("existential-deposit", 1, "minimum currency balance an account may hold")
	serveCmd.Flags().StringSlice("allowed-origins", nil, "CORS origins (comma-separated)")
	serveCmd.Flags().Int("event-buffer", 1024, "events kept for /api/events")
	serveCmd.Flags().Duration("shutdown-timeout", 30*time.Second, "time allowed to drain requests")
	serveCmd.Flags().Duration("audit-interval", time.Minute, "bookkeeping audit interval, 0 disables")
	serveCmd.Flags().String("scenario", "", "demo scenario to load at startup")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(serveCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store, err)
	}
	defer closeStore()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	handler, err := api.NewHandler(st, api.Options{
		ExistentialDeposit: bank.Amount(cfg.ExistentialDeposit),
		Clock:              swap.WallClock{},
		Logger:             logger,
		Registry:           registry,
		EventBuffer:        cfg.EventBuffer,
	})
	if err != nil {
		return err
	}

	if cfg.LoadScenario != "" {
		if err := handler.Load(ctx, cfg.LoadScenario); err != nil {
			return fmt.Errorf("load scenario: %w", err)
		}
		logger.Info("scenario loaded", zap.String("scenario", cfg.LoadScenario))
	}

	auditor := api.NewAuditor(handler, cfg.AuditInterval)
	auditor.Start()
	defer auditor.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.NewRouter(handler, cfg.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("swapd start",
		zap.Int("port", cfg.Port),
		zap.String("store", cfg.Store),
		zap.Uint64("existential_deposit", cfg.ExistentialDeposit),
		zap.Strings("allowed_origins", cfg.AllowedOrigins),
	)

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("swapd stopped")
	return nil
}

func openStore(ctx context.Context, cfg config.Config) (api.Store, func(), error) {
	switch cfg.Store {
	case config.StoreSQLite:
		if dir := filepath.Dir(cfg.DBPath); dir != "." && cfg.DBPath != ":memory:" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, err
			}
		}
		st, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { st.Close() }, nil
	case config.StorePostgres:
		st, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	default:
		return store.NewTxMemory(), func() {}, nil
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
