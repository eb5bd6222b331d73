package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/eddiefleurent/apobacktest/internal/models"
)

func row(order models.Order, reason models.Reason, pos int, realized, open float64) models.BarResult {
	return models.BarResult{Order: order, Reason: reason, Position: pos, Side: models.SideOf(pos), RealizedPnL: realized, OpenPnL: open}
}

func hold(pos int, realized, open float64) models.BarResult {
	return row(models.OrderHold, models.ReasonNone, pos, realized, open)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, models.Summary{}, s)
}

func TestSummarize_RoundTrips(t *testing.T) {
	results := []models.BarResult{
		hold(0, 0, 0),
		row(models.OrderSell, models.ReasonSellEntry, -10, 0, 0),
		hold(-10, 0, 50),
		row(models.OrderBuy, models.ReasonCloseShort, 0, 100, 0),
		row(models.OrderBuy, models.ReasonBuyEntry, 10, 100, 0),
		row(models.OrderBuy, models.ReasonBuyEntry, 20, 100, 0),
		hold(20, 100, 0),
		row(models.OrderSell, models.ReasonCloseLong, 10, 100, -30),
		row(models.OrderSell, models.ReasonCloseLong, 0, 60, 0),
		row(models.OrderSell, models.ReasonSellEntry, -10, 60, 0),
		row(models.OrderBuy, models.ReasonCloseShort, 0, 60, 0),
	}

	s := Summarize(results)
	assert.Equal(t, 11, s.Bars)
	assert.Equal(t, 4, s.Buys)
	assert.Equal(t, 4, s.Sells)
	assert.Equal(t, 3, s.Holds)
	assert.Equal(t, 4, s.Entries)
	assert.Equal(t, 4, s.Exits)
	assert.Equal(t, 3, s.RoundTrips)
	assert.Equal(t, 1, s.WinningRoundTrips)
	assert.Equal(t, 1, s.LosingRoundTrips)
	assert.Equal(t, 50.0, s.WinRate)
	assert.Equal(t, 20, s.MaxLong)
	assert.Equal(t, -10, s.MaxShort)
	assert.Equal(t, 0, s.FinalPosition)
	assert.Equal(t, 60.0, s.RealizedPnL)
	assert.Equal(t, 0.0, s.OpenPnL)
	assert.Equal(t, 60.0, s.TotalPnL())
	// Peak equity 100, trough 60 at the losing long close.
	assert.Equal(t, 40.0, s.MaxDrawdown)
}

func TestSummarize_OpenPositionAtEnd(t *testing.T) {
	results := []models.BarResult{
		hold(0, 0, 0),
		row(models.OrderBuy, models.ReasonBuyEntry, 10, 0, 0),
		hold(10, 0, 25),
		hold(10, 0, -15),
	}

	s := Summarize(results)
	assert.Equal(t, 0, s.RoundTrips)
	assert.Zero(t, s.WinRate)
	assert.Equal(t, 10, s.FinalPosition)
	assert.Equal(t, -15.0, s.OpenPnL)
	assert.Equal(t, -15.0, s.TotalPnL())
	assert.Equal(t, 40.0, s.MaxDrawdown)
}

func TestSummarize_DrawdownFromFirstBar(t *testing.T) {
	results := []models.BarResult{
		hold(-10, 0, -20),
		hold(-10, 0, -50),
		hold(-10, 0, -10),
	}
	s := Summarize(results)
	assert.Equal(t, 30.0, s.MaxDrawdown)
}

func TestSummarize_TimestampsIgnored(t *testing.T) {
	a := hold(0, 0, 0)
	b := hold(0, 0, 0)
	b.Timestamp = time.Unix(0, 0)
	assert.Equal(t, Summarize([]models.BarResult{a}), Summarize([]models.BarResult{b}))
}
