package engine

import "github.com/eddiefleurent/apobacktest/internal/models"

// Ledger tracks inventory, the notional traded since the last flat, and P&L.
type Ledger struct {
	Position      int
	LastBuyPrice  float64
	LastSellPrice float64
	BuyNotional   float64 // value bought since the position was last flat
	SellNotional  float64 // value sold since the position was last flat
	RealizedPnL   float64
	OpenPnL       float64

	tradeSize       int
	legacyShortMark bool
}

// NewLedger creates a flat ledger trading tradeSize units per order.
func NewLedger(cfg Config) *Ledger {
	return &Ledger{
		tradeSize:       cfg.TradeSize,
		legacyShortMark: cfg.LegacyShortMark,
	}
}

// Fill applies an order at price. HOLD is a no-op.
func (l *Ledger) Fill(order models.Order, price float64) {
	qty := float64(l.tradeSize)
	switch order {
	case models.OrderSell:
		l.LastSellPrice = price
		l.Position -= l.tradeSize
		l.SellNotional += price * qty
	case models.OrderBuy:
		l.LastBuyPrice = price
		l.Position += l.tradeSize
		l.BuyNotional += price * qty
	}
}

// Mark settles or marks the position at price after the bar's fill.
//
// Returning to flat realizes sell minus buy notional and resets the accumulators.
// Exactly one unit long or short is marked against the last trade price on that side.
// Larger inventories keep the previous open P&L.
func (l *Ledger) Mark(price float64) (realized, open float64) {
	qty := float64(l.tradeSize)
	switch l.Position {
	case 0:
		l.RealizedPnL += l.SellNotional - l.BuyNotional
		l.SellNotional = 0
		l.BuyNotional = 0
		l.OpenPnL = 0
	case l.tradeSize:
		l.OpenPnL = qty * (price - l.LastBuyPrice)
	case -l.tradeSize:
		if !l.legacyShortMark {
			l.OpenPnL = qty * (l.LastSellPrice - price)
		}
	}
	return l.RealizedPnL, l.OpenPnL
}

// Side returns the inventory direction.
func (l *Ledger) Side() models.Side {
	return models.SideOf(l.Position)
}
