package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eddiefleurent/apobacktest/internal/models"
)

func TestDecide(t *testing.T) {
	cfg := defaultConfig()

	tests := []struct {
		name string
		in   Inputs
		want Decision
	}{
		{
			name: "sell entry when apo overextended",
			in:   Inputs{Price: 150, APO: 12, Factor: 1},
			want: Decision{models.OrderSell, models.ReasonSellEntry},
		},
		{
			name: "sell threshold is inclusive",
			in:   Inputs{Price: 150, APO: 10, Factor: 1},
			want: Decision{models.OrderSell, models.ReasonSellEntry},
		},
		{
			name: "sell threshold tightens with volatility",
			in:   Inputs{Price: 150, APO: 12, Factor: 1.5},
			want: Decision{models.OrderHold, models.ReasonNone},
		},
		{
			name: "sell threshold relaxes in calm markets",
			in:   Inputs{Price: 150, APO: 6, Factor: 0.5},
			want: Decision{models.OrderSell, models.ReasonSellEntry},
		},
		{
			name: "anti-overtrading guard blocks repeated sell entry",
			in:   Inputs{Price: 105, APO: 12, Factor: 1, Position: -10, LastSellPrice: 100, OpenPnL: -50},
			want: Decision{models.OrderHold, models.ReasonNone},
		},
		{
			name: "guard distance equal to min move still blocks",
			in:   Inputs{Price: 110, APO: 12, Factor: 1, LastSellPrice: 100},
			want: Decision{models.OrderHold, models.ReasonNone},
		},
		{
			name: "guard blocks entry but long exit still fires",
			in:   Inputs{Price: 105, APO: 12, Factor: 1, Position: 10, LastSellPrice: 100, LastBuyPrice: 100},
			want: Decision{models.OrderSell, models.ReasonCloseLong},
		},
		{
			name: "close long when apo crosses zero",
			in:   Inputs{Price: 100, APO: 0, Factor: 1, Position: 10, LastSellPrice: 95},
			want: Decision{models.OrderSell, models.ReasonCloseLong},
		},
		{
			name: "close long on profit lock",
			in:   Inputs{Price: 100, APO: -3, Factor: 1, Position: 10, OpenPnL: 15},
			want: Decision{models.OrderSell, models.ReasonCloseLong},
		},
		{
			name: "profit lock loosens with volatility",
			in:   Inputs{Price: 100, APO: -3, Factor: 2, Position: 10, OpenPnL: 6},
			want: Decision{models.OrderSell, models.ReasonCloseLong},
		},
		{
			name: "profit lock tightens in calm markets",
			in:   Inputs{Price: 100, APO: -3, Factor: 0.5, Position: 10, OpenPnL: 15},
			want: Decision{models.OrderHold, models.ReasonNone},
		},
		{
			name: "buy entry when apo overextended downward",
			in:   Inputs{Price: 80, APO: -12, Factor: 1},
			want: Decision{models.OrderBuy, models.ReasonBuyEntry},
		},
		{
			name: "buy threshold is exclusive",
			in:   Inputs{Price: 80, APO: -10, Factor: 1},
			want: Decision{models.OrderHold, models.ReasonNone},
		},
		{
			name: "anti-overtrading guard blocks repeated buy entry",
			in:   Inputs{Price: 80, APO: -12, Factor: 1, LastBuyPrice: 85},
			want: Decision{models.OrderHold, models.ReasonNone},
		},
		{
			name: "close short when apo crosses zero",
			in:   Inputs{Price: 100, APO: -2, Factor: 1, Position: -10, LastBuyPrice: 98},
			want: Decision{models.OrderBuy, models.ReasonCloseShort},
		},
		{
			name: "close short on profit lock while apo still positive",
			in:   Inputs{Price: 90, APO: 3, Factor: 1, Position: -10, LastSellPrice: 95, OpenPnL: 15},
			want: Decision{models.OrderBuy, models.ReasonCloseShort},
		},
		{
			name: "short without reversal or profit holds",
			in:   Inputs{Price: 90, APO: 3, Factor: 1, Position: -10, LastSellPrice: 95, OpenPnL: 5},
			want: Decision{models.OrderHold, models.ReasonNone},
		},
		{
			name: "sell entry takes precedence over long exit",
			in:   Inputs{Price: 150, APO: 12, Factor: 1, Position: 10},
			want: Decision{models.OrderSell, models.ReasonSellEntry},
		},
		{
			name: "long exit takes precedence over buy entry",
			in:   Inputs{Price: 80, APO: -12, Factor: 1, Position: 10, OpenPnL: 20},
			want: Decision{models.OrderSell, models.ReasonCloseLong},
		},
		{
			name: "long position accumulates via buy entry",
			in:   Inputs{Price: 60, APO: -12, Factor: 1, Position: 10, LastBuyPrice: 80},
			want: Decision{models.OrderBuy, models.ReasonBuyEntry},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(cfg, tt.in))
		})
	}
}

// Profit lock while short fires even when the entry condition is unmet.
func TestDecide_ShortProfitLockIgnoresEntryThreshold(t *testing.T) {
	cfg := defaultConfig()
	in := Inputs{Price: 90, APO: -1, Factor: 1, Position: -10, LastSellPrice: 95, LastBuyPrice: 92, OpenPnL: 50}

	got := Decide(cfg, in)
	assert.Equal(t, models.OrderBuy, got.Order)
	assert.Equal(t, models.ReasonCloseShort, got.Reason)
	assert.True(t, got.Reason.IsExit())
}
