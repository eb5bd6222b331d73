// Package report turns engine output into run summaries and tabular files.
package report

import "github.com/eddiefleurent/apobacktest/internal/models"

// Summarize aggregates a run. A round trip ends at every bar where the position returns
// to flat; its P&L is the realized change at that bar. Max drawdown is the largest
// peak-to-trough decline of realized plus open P&L.
func Summarize(results []models.BarResult) models.Summary {
	s := models.Summary{Bars: len(results)}
	if len(results) == 0 {
		return s
	}

	var prevRealized, peak float64
	prevPosition := 0
	for i, r := range results {
		switch r.Order {
		case models.OrderBuy:
			s.Buys++
		case models.OrderSell:
			s.Sells++
		default:
			s.Holds++
		}
		if r.Order != models.OrderHold {
			if r.Reason.IsExit() {
				s.Exits++
			} else {
				s.Entries++
			}
		}

		if r.Position == 0 && prevPosition != 0 {
			s.RoundTrips++
			switch pnl := r.RealizedPnL - prevRealized; {
			case pnl > 0:
				s.WinningRoundTrips++
			case pnl < 0:
				s.LosingRoundTrips++
			}
		}
		if r.Position > s.MaxLong {
			s.MaxLong = r.Position
		}
		if r.Position < s.MaxShort {
			s.MaxShort = r.Position
		}

		equity := r.RealizedPnL + r.OpenPnL
		if i == 0 || equity > peak {
			peak = equity
		}
		if dd := peak - equity; dd > s.MaxDrawdown {
			s.MaxDrawdown = dd
		}

		prevRealized = r.RealizedPnL
		prevPosition = r.Position
	}

	// Breakeven round trips count toward neither side of the win rate.
	if decided := s.WinningRoundTrips + s.LosingRoundTrips; decided > 0 {
		s.WinRate = float64(s.WinningRoundTrips) / float64(decided) * 100
	}

	last := results[len(results)-1]
	s.FinalPosition = last.Position
	s.RealizedPnL = last.RealizedPnL
	s.OpenPnL = last.OpenPnL
	return s
}
