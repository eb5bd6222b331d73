package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eddiefleurent/apobacktest/internal/models"
)

func TestLedger_ShortRoundTrip(t *testing.T) {
	l := NewLedger(defaultConfig())

	l.Fill(models.OrderSell, 100)
	assert.Equal(t, -10, l.Position)
	assert.Equal(t, 100.0, l.LastSellPrice)
	assert.Equal(t, 1000.0, l.SellNotional)

	realized, open := l.Mark(95)
	assert.Equal(t, 0.0, realized)
	assert.Equal(t, 50.0, open, "one unit short marks against the last sell")

	l.Fill(models.OrderBuy, 90)
	realized, open = l.Mark(90)
	assert.Equal(t, 0, l.Position)
	assert.Equal(t, 100.0, realized)
	assert.Equal(t, 0.0, open)
	assert.Zero(t, l.BuyNotional)
	assert.Zero(t, l.SellNotional)
	assert.Equal(t, models.SideFlat, l.Side())
}

func TestLedger_LongRoundTripAtLoss(t *testing.T) {
	l := NewLedger(defaultConfig())

	l.Fill(models.OrderBuy, 100)
	_, open := l.Mark(97)
	assert.Equal(t, -30.0, open)
	assert.Equal(t, models.SideLong, l.Side())

	l.Fill(models.OrderSell, 96)
	realized, open := l.Mark(96)
	assert.Equal(t, -40.0, realized)
	assert.Equal(t, 0.0, open)
}

func TestLedger_LegacyShortMarkLeavesOpenPnL(t *testing.T) {
	cfg := defaultConfig()
	cfg.LegacyShortMark = true
	l := NewLedger(cfg)

	l.Fill(models.OrderSell, 100)
	_, open := l.Mark(80)
	assert.Equal(t, 0.0, open)
}

func TestLedger_MultiUnitKeepsPreviousMark(t *testing.T) {
	l := NewLedger(defaultConfig())

	l.Fill(models.OrderBuy, 100)
	_, open := l.Mark(103)
	assert.Equal(t, 30.0, open)

	l.Fill(models.OrderBuy, 110)
	_, open = l.Mark(120)
	assert.Equal(t, 20, l.Position)
	assert.Equal(t, 30.0, open, "two units leave the prior open P&L in place")

	l.Fill(models.OrderSell, 115)
	_, open = l.Mark(115)
	assert.Equal(t, 10, l.Position)
	assert.Equal(t, 50.0, open, "back to one unit marks against the last buy (110)")

	l.Fill(models.OrderSell, 118)
	realized, _ := l.Mark(118)
	// bought 100+110, sold 115+118, ten shares each
	assert.InDelta(t, 230.0, realized, 1e-9)
}

func TestLedger_HoldDoesNotTrade(t *testing.T) {
	l := NewLedger(defaultConfig())
	l.Fill(models.OrderHold, 100)
	realized, open := l.Mark(100)

	assert.Equal(t, 0, l.Position)
	assert.Zero(t, l.LastBuyPrice)
	assert.Zero(t, l.LastSellPrice)
	assert.Zero(t, realized)
	assert.Zero(t, open)
}
