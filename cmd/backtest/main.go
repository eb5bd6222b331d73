package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/apobacktest/internal/config"
	"github.com/eddiefleurent/apobacktest/internal/dashboard"
	"github.com/eddiefleurent/apobacktest/internal/storage"
)

func main() {
	var (
		configPath string
		symbols    string
		serve      bool
	)
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.StringVar(&symbols, "symbols", "", "Comma separated symbols, overrides run.symbols")
	flag.BoolVar(&serve, "serve", false, "Serve the results dashboard after the runs finish")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	if symbols != "" {
		cfg.Run.Symbols = config.ParseSymbols(symbols)
	}

	logger := newLogger(cfg.Environment.LogLevel)
	if len(cfg.Run.Symbols) == 0 {
		logger.Fatal("No symbols to backtest: set run.symbols or pass -symbols")
	}
	from, _ := cfg.StartDate()
	to, _ := cfg.EndDate()

	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		logger.Fatalf("Failed to open storage: %v", err)
	}
	source, err := buildSource(cfg, store, logger)
	if err != nil {
		logger.Fatalf("Failed to build data source: %v", err)
	}

	// Set up signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, stopping after the current bar...")
		cancel()
	}()

	logger.WithFields(logrus.Fields{
		"symbols":     cfg.Run.Symbols,
		"start":       cfg.Run.Start,
		"end":         cfg.Run.End,
		"parallelism": cfg.Run.Parallelism,
		"provider":    cfg.Data.Provider,
	}).Info("Starting backtests")

	runner := NewRunner(source, store, cfg.Strategy, cfg.Run.OutputDir, logger)
	runs, runErr := runner.RunAll(ctx, cfg.Run.Symbols, from, to, cfg.Run.Parallelism)
	logger.Infof("Finished %d of %d runs", len(runs), len(cfg.Run.Symbols))

	if (serve || cfg.Dashboard.Enabled) && ctx.Err() == nil {
		serveDashboard(ctx, cfg, store, logger)
	}

	if runErr != nil {
		logger.WithError(runErr).Error("Some backtests failed")
		os.Exit(1)
	}
}

func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// serveDashboard blocks until ctx is canceled or the server fails.
func serveDashboard(ctx context.Context, cfg *config.Config, store storage.Interface, logger *logrus.Logger) {
	server := dashboard.NewServer(dashboard.Config{
		Port:      cfg.Dashboard.Port,
		AuthToken: cfg.Dashboard.AuthToken,
	}, store, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Dashboard server failed")
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Dashboard shutdown failed")
		}
	}
}
