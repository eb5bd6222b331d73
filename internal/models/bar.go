// Package models provides the data structures shared by the engine, storage and reporting layers.
package models

import "time"

// Bar is a single OHLC observation of a price series.
// The engine only reads Timestamp and Close; the remaining fields are kept for reporting.
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	AdjClose  float64   `json:"adj_close,omitempty"`
	Volume    float64   `json:"volume,omitempty"`
}

// Order is the discrete trade decision emitted for every bar.
type Order string

const (
	OrderBuy  Order = "BUY"
	OrderSell Order = "SELL"
	OrderHold Order = "HOLD"
)

// Reason explains which rule produced an Order.
type Reason string

const (
	ReasonSellEntry  Reason = "sell_entry"  // apo overextended upward, distance guard passed
	ReasonCloseLong  Reason = "close_long"  // long and apo reversed or profit locked
	ReasonBuyEntry   Reason = "buy_entry"   // apo overextended downward, distance guard passed
	ReasonCloseShort Reason = "close_short" // short and apo reversed or profit locked
	ReasonNone       Reason = "none"
)

// IsExit reports whether the reason closes existing inventory rather than opening new inventory.
func (r Reason) IsExit() bool {
	return r == ReasonCloseLong || r == ReasonCloseShort
}

// BarResult is the engine output for one input bar. It is never mutated after emission.
type BarResult struct {
	Timestamp        time.Time `json:"timestamp"`
	Price            float64   `json:"price"`
	FastEMA          float64   `json:"fast_ema"`
	SlowEMA          float64   `json:"slow_ema"`
	APO              float64   `json:"apo"`
	VolatilityFactor float64   `json:"volatility_factor"`
	Order            Order     `json:"order"`
	Reason           Reason    `json:"reason"`
	Position         int       `json:"position"`
	Side             Side      `json:"side"`
	RealizedPnL      float64   `json:"realized_pnl"`
	OpenPnL          float64   `json:"open_pnl"`
}
