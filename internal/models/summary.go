package models

// Summary aggregates the BarResults of a single run.
type Summary struct {
	Bars              int     `json:"bars"`
	Buys              int     `json:"buys"`
	Sells             int     `json:"sells"`
	Holds             int     `json:"holds"`
	Entries           int     `json:"entries"`
	Exits             int     `json:"exits"`
	RoundTrips        int     `json:"round_trips"`
	WinningRoundTrips int     `json:"winning_round_trips"`
	LosingRoundTrips  int     `json:"losing_round_trips"`
	WinRate           float64 `json:"win_rate"` // percent of decided round trips
	FinalPosition     int     `json:"final_position"`
	MaxLong           int     `json:"max_long"`
	MaxShort          int     `json:"max_short"`
	RealizedPnL       float64 `json:"realized_pnl"`
	OpenPnL           float64 `json:"open_pnl"`
	MaxDrawdown       float64 `json:"max_drawdown"`
}

// TotalPnL returns realized plus open P&L at the end of the run.
func (s Summary) TotalPnL() float64 {
	return s.RealizedPnL + s.OpenPnL
}
