package engine

// AdaptiveEMA is a fast/slow EMA pair whose fast leg reacts to volatility.
// The fast smoothing rate is divided by the volatility factor on every update;
// the slow leg is a plain EMA.
type AdaptiveEMA struct {
	fastK float64
	slowK float64
	fast  float64
	slow  float64
	cold  bool
}

// NewAdaptiveEMA creates a cold pair from the config smoothing constants.
func NewAdaptiveEMA(cfg Config) *AdaptiveEMA {
	return &AdaptiveEMA{
		fastK: cfg.FastSmoothing(),
		slowK: cfg.SlowSmoothing(),
		cold:  true,
	}
}

// Update folds price into both averages and returns them with their difference (the APO).
// The first call seeds both averages to price. factor must be > 0.
func (a *AdaptiveEMA) Update(price, factor float64) (fast, slow, apo float64) {
	if a.cold {
		a.fast = price
		a.slow = price
		a.cold = false
		return a.fast, a.slow, 0
	}
	a.fast += (price - a.fast) * a.fastK / factor
	a.slow += (price - a.slow) * a.slowK
	return a.fast, a.slow, a.fast - a.slow
}

// Cold reports whether the pair has not seen a price yet.
func (a *AdaptiveEMA) Cold() bool {
	return a.cold
}

// Values returns the current fast and slow averages.
func (a *AdaptiveEMA) Values() (fast, slow float64) {
	return a.fast, a.slow
}
