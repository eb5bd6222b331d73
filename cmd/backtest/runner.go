package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/eddiefleurent/apobacktest/internal/config"
	"github.com/eddiefleurent/apobacktest/internal/engine"
	"github.com/eddiefleurent/apobacktest/internal/marketdata"
	"github.com/eddiefleurent/apobacktest/internal/mock"
	"github.com/eddiefleurent/apobacktest/internal/report"
	"github.com/eddiefleurent/apobacktest/internal/retry"
	"github.com/eddiefleurent/apobacktest/internal/storage"
)

// Runner backtests symbols one engine per symbol and persists every run.
type Runner struct {
	source    marketdata.Source
	store     storage.Interface
	strategy  engine.Config
	outputDir string
	logger    logrus.FieldLogger

	newID func() string
	now   func() time.Time
}

// NewRunner creates a Runner writing CSV files under outputDir.
func NewRunner(source marketdata.Source, store storage.Interface, strategy engine.Config, outputDir string, logger logrus.FieldLogger) *Runner {
	return &Runner{
		source:    source,
		store:     store,
		strategy:  strategy,
		outputDir: outputDir,
		logger:    logger,
		newID:     func() string { return uuid.New().String() },
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RunSymbol fetches bars for symbol, runs the engine and stores the result.
// A run that stops early is still stored, flagged partial, and its error returned.
func (r *Runner) RunSymbol(ctx context.Context, symbol string, from, to time.Time) (*storage.Run, error) {
	id := r.newID()
	log := r.logger.WithFields(logrus.Fields{"symbol": symbol, "run_id": id})

	bars, err := r.source.FetchBars(ctx, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: fetching bars: %w", symbol, err)
	}
	log.WithField("bars", len(bars)).Info("Loaded price series")

	results, runErr := engine.Run(ctx, r.strategy, bars, engine.WithLogger(log))
	run := &storage.Run{
		ID:        id,
		Symbol:    symbol,
		From:      from,
		To:        to,
		CreatedAt: r.now(),
		Config:    r.strategy,
		Results:   results,
		Summary:   report.Summarize(results),
	}
	if runErr != nil {
		run.Partial = true
		run.Error = runErr.Error()
		log.WithError(runErr).Warnf("Run stopped after %d of %d bars", len(results), len(bars))
	}

	if err := r.store.SaveRun(run); err != nil {
		return run, fmt.Errorf("%s: saving run: %w", symbol, err)
	}

	path := filepath.Join(r.outputDir, fmt.Sprintf("%s_%s.csv", symbol, shortID(id)))
	if err := report.WriteCSVFile(path, results); err != nil {
		return run, fmt.Errorf("%s: writing results: %w", symbol, err)
	}

	s := run.Summary
	log.WithFields(logrus.Fields{
		"round_trips":  s.RoundTrips,
		"win_rate":     s.WinRate,
		"realized_pnl": s.RealizedPnL,
		"open_pnl":     s.OpenPnL,
		"max_drawdown": s.MaxDrawdown,
		"position":     s.FinalPosition,
		"csv":          path,
	}).Info("Run complete")

	if runErr != nil {
		return run, fmt.Errorf("%s: %w", symbol, runErr)
	}
	return run, nil
}

// RunAll backtests symbols with at most parallelism concurrent runs. One failing
// symbol does not stop the others; every failure is joined into the returned error.
func (r *Runner) RunAll(ctx context.Context, symbols []string, from, to time.Time, parallelism int) ([]*storage.Run, error) {
	if parallelism < 1 {
		parallelism = 1
	}

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(parallelism)

	runs := make([]*storage.Run, len(symbols))
	for i, symbol := range symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			run, err := r.RunSymbol(ctx, symbol, from, to)
			runs[i] = run
			if err != nil {
				r.logger.WithError(err).WithField("symbol", symbol).Error("Backtest failed")
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	done := runs[:0]
	for _, run := range runs {
		if run != nil {
			done = append(done, run)
		}
	}
	return done, errors.Join(errs...)
}

// buildSource assembles provider -> circuit breaker -> cache.
func buildSource(cfg *config.Config, store storage.Interface, logger logrus.FieldLogger) (marketdata.Source, error) {
	var base marketdata.Source
	switch cfg.Data.Provider {
	case "file":
		base = marketdata.NewFileSource(cfg.Data.Dir, cfg.Data.AdjustedClose)
	case "http":
		retrier := retry.NewClient(logger, retry.Config{
			MaxRetries:     cfg.Data.MaxRetries,
			InitialBackoff: retry.DefaultConfig.InitialBackoff,
			MaxBackoff:     retry.DefaultConfig.MaxBackoff,
			Timeout:        retry.DefaultConfig.Timeout,
		})
		src := marketdata.NewHTTPSource(cfg.Data.Endpoint, &http.Client{Timeout: cfg.GetDataTimeout()}, retrier)
		src.AdjustedClose = cfg.Data.AdjustedClose
		base = src
	case "mock":
		m := cfg.Data.Mock
		base = mock.NewDataSource(m.Seed, m.StartPrice, m.Volatility)
	default:
		return nil, fmt.Errorf("unsupported data provider %q", cfg.Data.Provider)
	}

	breaker := marketdata.NewCircuitBreakerSource(base, logger)
	return marketdata.NewCachedSource(breaker, store, logger), nil
}

// shortID returns the first block of a uuid for file names.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
