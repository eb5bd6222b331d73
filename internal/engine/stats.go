package engine

import "math"

// RollingStats keeps a bounded window of recent prices and reports its mean and
// sample standard deviation after every update.
type RollingStats struct {
	window       int
	values       []float64
	observations int
}

// NewRollingStats creates a RollingStats holding at most window prices.
func NewRollingStats(window int) *RollingStats {
	if window < 1 {
		window = 1
	}
	return &RollingStats{
		window: window,
		values: make([]float64, 0, window),
	}
}

// Update appends price, evicting the oldest value once the window is full.
// The standard deviation is reported as 0 for the first two observations ever supplied.
func (r *RollingStats) Update(price float64) (mean, stdev float64) {
	r.values = append(r.values, price)
	if len(r.values) > r.window {
		// Shift in place so the backing array never grows past the window.
		copy(r.values, r.values[1:])
		r.values = r.values[:r.window]
	}
	r.observations++

	mean = r.Mean()
	if r.observations <= 2 {
		return mean, 0
	}
	return mean, sampleStdDev(r.values, mean)
}

// Mean returns the arithmetic mean of the current window, or 0 when empty.
func (r *RollingStats) Mean() float64 {
	if len(r.values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range r.values {
		sum += v
	}
	return sum / float64(len(r.values))
}

// Len returns the number of prices currently held.
func (r *RollingStats) Len() int {
	return len(r.values)
}

// Observations returns how many prices have been supplied in total.
func (r *RollingStats) Observations() int {
	return r.observations
}

// Values returns a copy of the window, oldest first.
func (r *RollingStats) Values() []float64 {
	out := make([]float64, len(r.values))
	copy(out, r.values)
	return out
}

// sampleStdDev is the unbiased (n-1) standard deviation; fewer than two values yield 0.
func sampleStdDev(data []float64, mean float64) float64 {
	if len(data) < 2 {
		return 0
	}
	var sumSquaredDiff float64
	for _, v := range data {
		diff := v - mean
		sumSquaredDiff += diff * diff
	}
	return math.Sqrt(sumSquaredDiff / float64(len(data)-1))
}
