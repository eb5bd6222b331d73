package engine

import (
	"math"

	"github.com/eddiefleurent/apobacktest/internal/models"
)

// Inputs is everything the decision rules read for one bar.
// OpenPnL is the mark carried over from the previous bar.
type Inputs struct {
	Price         float64
	APO           float64
	Factor        float64
	Position      int
	LastBuyPrice  float64
	LastSellPrice float64
	OpenPnL       float64
}

// Decision is the outcome of the rule evaluation for one bar.
type Decision struct {
	Order  models.Order
	Reason models.Reason
}

var holdDecision = Decision{Order: models.OrderHold, Reason: models.ReasonNone}

// Decide evaluates the trading rules in priority order; the first match wins.
//
//  1. SELL when apo >= sell_threshold*factor and price moved more than min_price_move
//     from the last sell, or when long and (apo >= 0 or open P&L beats the profit lock).
//  2. BUY when apo < buy_threshold*factor and price moved more than min_price_move
//     from the last buy, or when short and (apo <= 0 or open P&L beats the profit lock).
//  3. HOLD otherwise.
//
// The profit lock is min_profit_to_close/factor; factor must be > 0.
func Decide(cfg Config, in Inputs) Decision {
	profitLock := cfg.MinProfitToClose / in.Factor

	if in.APO >= cfg.SellAPOThreshold*in.Factor && math.Abs(in.Price-in.LastSellPrice) > cfg.MinPriceMove {
		return Decision{Order: models.OrderSell, Reason: models.ReasonSellEntry}
	}
	if in.Position > 0 && (in.APO >= 0 || in.OpenPnL > profitLock) {
		return Decision{Order: models.OrderSell, Reason: models.ReasonCloseLong}
	}

	if in.APO < cfg.BuyAPOThreshold*in.Factor && math.Abs(in.Price-in.LastBuyPrice) > cfg.MinPriceMove {
		return Decision{Order: models.OrderBuy, Reason: models.ReasonBuyEntry}
	}
	if in.Position < 0 && (in.APO <= 0 || in.OpenPnL > profitLock) {
		return Decision{Order: models.OrderBuy, Reason: models.ReasonCloseShort}
	}

	return holdDecision
}
