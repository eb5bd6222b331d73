package engine

// VolatilityFactor converts a trailing standard deviation into a dimensionless factor:
// 1.0 is historically normal volatility, below 1 is calmer and above 1 is more volatile.
//
// The first observation always yields 1.0. A zero deviation on a later observation also
// yields 1.0, which covers the two-observation cold start of RollingStats and perfectly
// flat windows, so the factor stays strictly positive for any valid reference.
func VolatilityFactor(stdev, reference float64, observation int) float64 {
	if observation <= 1 || stdev <= 0 {
		return 1.0
	}
	return stdev / reference
}
