// Package mock generates synthetic daily price series for demos and tests.
package mock

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/eddiefleurent/apobacktest/internal/marketdata"
	"github.com/eddiefleurent/apobacktest/internal/models"
)

const (
	defaultStartPrice = 450.0
	defaultVolatility = 0.01
)

// defaultFrom starts open ranges at the first trading day of 2014.
var defaultFrom = time.Date(2014, 1, 2, 0, 0, 0, 0, time.UTC)

// DataSource produces a geometric random walk of weekday bars. The same seed and
// symbol always yield the same series.
type DataSource struct {
	startPrice float64
	volatility float64 // daily stdev of log returns
	seed       int64
}

var (
	_ marketdata.Source  = (*DataSource)(nil)
	_ marketdata.Variant = (*DataSource)(nil)
)

// NewDataSource returns a DataSource. Non-positive price or volatility fall back to
// 450 and 1% respectively.
func NewDataSource(seed int64, startPrice, volatility float64) *DataSource {
	if startPrice <= 0 {
		startPrice = defaultStartPrice
	}
	if volatility <= 0 {
		volatility = defaultVolatility
	}
	return &DataSource{startPrice: startPrice, volatility: volatility, seed: seed}
}

func (m *DataSource) symbolSeed(symbol string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.ToUpper(symbol)))
	return m.seed ^ int64(h.Sum64()&math.MaxInt64)
}

// CacheVariant implements marketdata.Variant.
func (m *DataSource) CacheVariant() string {
	return fmt.Sprintf("mock:seed=%d:start=%g:volatility=%g", m.seed, m.startPrice, m.volatility)
}

// FetchBars implements marketdata.Source. A zero from starts at 2014-01-02 and a
// zero to ends one year after from.
func (m *DataSource) FetchBars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if from.IsZero() {
		from = defaultFrom
	}
	if to.IsZero() {
		to = from.AddDate(1, 0, 0)
	}

	rng := rand.New(rand.NewSource(m.symbolSeed(symbol))) // #nosec G404 -- reproducible synthetic data
	price := m.startPrice
	var bars []models.Bar
	for day := from.UTC().Truncate(24 * time.Hour); !day.After(to); day = day.AddDate(0, 0, 1) {
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}

		open := price
		price *= math.Exp(rng.NormFloat64() * m.volatility)
		wick := math.Abs(rng.NormFloat64()) * m.volatility / 2
		bars = append(bars, models.Bar{
			Timestamp: day,
			Open:      roundCents(open),
			High:      roundCents(math.Max(open, price) * (1 + wick)),
			Low:       roundCents(math.Min(open, price) * (1 - wick)),
			Close:     roundCents(price),
			AdjClose:  roundCents(price),
			Volume:    float64(50_000_000 + rng.Int63n(100_000_000)),
		})
	}

	if len(bars) == 0 {
		return nil, marketdata.ErrNoData
	}
	return bars, nil
}

func roundCents(x float64) float64 {
	return math.Round(x*100) / 100
}
