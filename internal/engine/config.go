package engine

import "math"

// Config holds the strategy parameters for one run. It is read-only once a run starts
// and no field has an implied default.
type Config struct {
	FastPeriods      int     `yaml:"fast_periods" json:"fast_periods"`
	SlowPeriods      int     `yaml:"slow_periods" json:"slow_periods"`
	StdWindow        int     `yaml:"std_window" json:"std_window"`
	StdReference     float64 `yaml:"std_reference" json:"std_reference"`
	BuyAPOThreshold  float64 `yaml:"buy_apo_threshold" json:"buy_apo_threshold"`
	SellAPOThreshold float64 `yaml:"sell_apo_threshold" json:"sell_apo_threshold"`
	MinPriceMove     float64 `yaml:"min_price_move" json:"min_price_move"`
	MinProfitToClose float64 `yaml:"min_profit_to_close" json:"min_profit_to_close"`
	TradeSize        int     `yaml:"trade_size" json:"trade_size"`

	// LegacyShortMark leaves open P&L untouched while exactly one unit short,
	// matching the historical scripts where the short mark never took effect.
	LegacyShortMark bool `yaml:"legacy_short_mark" json:"legacy_short_mark"`
}

// Validate checks the config and returns a *ConfigError for the first violation.
func (c Config) Validate() error {
	switch {
	case c.FastPeriods <= 0:
		return &ConfigError{Field: "fast_periods", Reason: "must be > 0"}
	case c.SlowPeriods <= 0:
		return &ConfigError{Field: "slow_periods", Reason: "must be > 0"}
	case c.FastPeriods >= c.SlowPeriods:
		return &ConfigError{Field: "fast_periods", Reason: "must be < slow_periods"}
	case c.StdWindow <= 0:
		return &ConfigError{Field: "std_window", Reason: "must be > 0"}
	case !(c.StdReference > 0) || math.IsInf(c.StdReference, 1):
		return &ConfigError{Field: "std_reference", Reason: "must be a finite value > 0"}
	case c.TradeSize <= 0:
		return &ConfigError{Field: "trade_size", Reason: "must be > 0"}
	}

	finite := []struct {
		field string
		value float64
	}{
		{"buy_apo_threshold", c.BuyAPOThreshold},
		{"sell_apo_threshold", c.SellAPOThreshold},
		{"min_price_move", c.MinPriceMove},
		{"min_profit_to_close", c.MinProfitToClose},
	}
	for _, f := range finite {
		if !isFinite(f.value) {
			return &ConfigError{Field: f.field, Reason: "must be finite"}
		}
	}
	return nil
}

// FastSmoothing returns 2/(fast_periods+1).
func (c Config) FastSmoothing() float64 {
	return 2.0 / float64(c.FastPeriods+1)
}

// SlowSmoothing returns 2/(slow_periods+1).
func (c Config) SlowSmoothing() float64 {
	return 2.0 / float64(c.SlowPeriods+1)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
