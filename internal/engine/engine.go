// Package engine implements the volatility-adaptive APO mean-reversion simulator:
// a single streaming pass over a price series that derives a volatility factor,
// updates an adaptive EMA pair, decides BUY/SELL/HOLD and tracks P&L bar by bar.
package engine

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/apobacktest/internal/models"
)

// Engine processes bars strictly in order. It is not safe for concurrent use;
// every run owns its own Engine.
type Engine struct {
	cfg    Config
	stats  *RollingStats
	ema    *AdaptiveEMA
	ledger *Ledger
	sides  *models.SideMachine
	logger logrus.FieldLogger

	bars   int
	lastTS time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for trade events. Nil keeps the discard logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New validates cfg and returns a cold engine.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:    cfg,
		stats:  NewRollingStats(cfg.StdWindow),
		ema:    NewAdaptiveEMA(cfg),
		ledger: NewLedger(cfg),
		sides:  models.NewSideMachine(),
		logger: discardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Step processes one bar and returns its result. A bar rejected by input validation
// leaves the engine state untouched; a rejected side change leaves the ledger untouched.
func (e *Engine) Step(bar models.Bar) (models.BarResult, error) {
	if !isFinite(bar.Close) {
		return models.BarResult{}, &InputError{Index: e.bars, Reason: fmt.Sprintf("non-finite close %v", bar.Close)}
	}
	if e.bars > 0 && bar.Timestamp.Before(e.lastTS) {
		return models.BarResult{}, &InputError{
			Index:  e.bars,
			Reason: fmt.Sprintf("timestamp %s before previous %s", bar.Timestamp.Format(time.RFC3339), e.lastTS.Format(time.RFC3339)),
		}
	}

	price := bar.Close
	_, stdev := e.stats.Update(price)
	factor := VolatilityFactor(stdev, e.cfg.StdReference, e.stats.Observations())
	fast, slow, apo := e.ema.Update(price, factor)

	decision := Decide(e.cfg, Inputs{
		Price:         price,
		APO:           apo,
		Factor:        factor,
		Position:      e.ledger.Position,
		LastBuyPrice:  e.ledger.LastBuyPrice,
		LastSellPrice: e.ledger.LastSellPrice,
		OpenPnL:       e.ledger.OpenPnL,
	})
	next := e.ledger.Position + e.cfg.TradeSize*orderSign(decision.Order)
	if err := e.sides.Transition(next, decision.Order); err != nil {
		// Unreachable while every order moves exactly one unit.
		return models.BarResult{}, fmt.Errorf("bar %d: %w", e.bars, err)
	}
	e.ledger.Fill(decision.Order, price)
	realized, open := e.ledger.Mark(price)

	if decision.Order != models.OrderHold {
		e.logger.WithFields(logrus.Fields{
			"bar":      e.bars,
			"order":    decision.Order,
			"reason":   decision.Reason,
			"price":    price,
			"apo":      apo,
			"factor":   factor,
			"position": e.ledger.Position,
		}).Debug("order filled")
	}

	e.bars++
	e.lastTS = bar.Timestamp

	return models.BarResult{
		Timestamp:        bar.Timestamp,
		Price:            price,
		FastEMA:          fast,
		SlowEMA:          slow,
		APO:              apo,
		VolatilityFactor: factor,
		Order:            decision.Order,
		Reason:           decision.Reason,
		Position:         e.ledger.Position,
		Side:             e.ledger.Side(),
		RealizedPnL:      realized,
		OpenPnL:          open,
	}, nil
}

// State is a point-in-time copy of the engine's mutable state.
type State struct {
	Bars          int       `json:"bars"`
	Observations  int       `json:"observations"`
	Cold          bool      `json:"cold"`
	FastEMA       float64   `json:"fast_ema"`
	SlowEMA       float64   `json:"slow_ema"`
	Window        []float64 `json:"window"`
	Position      int       `json:"position"`
	LastBuyPrice  float64   `json:"last_buy_price"`
	LastSellPrice float64   `json:"last_sell_price"`
	BuyNotional   float64   `json:"buy_notional_since_flat"`
	SellNotional  float64   `json:"sell_notional_since_flat"`
	RealizedPnL   float64   `json:"realized_pnl"`
	OpenPnL       float64   `json:"open_pnl"`
	Flattenings   int       `json:"flattenings"`
}

// State returns a snapshot that shares no memory with the engine.
func (e *Engine) State() State {
	fast, slow := e.ema.Values()
	return State{
		Bars:          e.bars,
		Observations:  e.stats.Observations(),
		Cold:          e.ema.Cold(),
		FastEMA:       fast,
		SlowEMA:       slow,
		Window:        e.stats.Values(),
		Position:      e.ledger.Position,
		LastBuyPrice:  e.ledger.LastBuyPrice,
		LastSellPrice: e.ledger.LastSellPrice,
		BuyNotional:   e.ledger.BuyNotional,
		SellNotional:  e.ledger.SellNotional,
		RealizedPnL:   e.ledger.RealizedPnL,
		OpenPnL:       e.ledger.OpenPnL,
		Flattenings:   e.sides.Flattenings(),
	}
}

// Run processes bars with a fresh engine. Cancellation is checked between bars;
// on cancellation or an invalid bar the results produced so far are returned with the error.
func Run(ctx context.Context, cfg Config, bars []models.Bar, opts ...Option) ([]models.BarResult, error) {
	e, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, &InputError{Index: -1, Reason: "empty price series"}
	}

	results := make([]models.BarResult, 0, len(bars))
	for _, bar := range bars {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("run canceled after %d bars: %w", len(results), err)
		}
		res, err := e.Step(bar)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func orderSign(o models.Order) int {
	switch o {
	case models.OrderBuy:
		return 1
	case models.OrderSell:
		return -1
	default:
		return 0
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
