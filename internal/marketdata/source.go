// Package marketdata loads daily price bars from local CSV files or an HTTP
// endpoint, with optional circuit breaking and storage-backed caching.
package marketdata

import (
	"context"
	"errors"
	"time"

	"github.com/eddiefleurent/apobacktest/internal/models"
)

// ErrNoData is returned when a source has no bars for the requested range.
var ErrNoData = errors.New("no price data")

// Source fetches bars for symbol between from and to inclusive, sorted ascending.
type Source interface {
	FetchBars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error)
}

// Variant is implemented by sources whose output depends on their settings, such as
// the provider location or adjusted closes. Caches key on it.
type Variant interface {
	CacheVariant() string
}

func sourceVariant(s Source) string {
	if v, ok := s.(Variant); ok {
		return v.CacheVariant()
	}
	return ""
}

// filterRange keeps bars inside [from, to]. A zero bound is open.
func filterRange(bars []models.Bar, from, to time.Time) []models.Bar {
	out := make([]models.Bar, 0, len(bars))
	for _, b := range bars {
		if !from.IsZero() && b.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && b.Timestamp.After(to) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// UseAdjustedClose replaces Close with AdjClose wherever an adjusted value is present.
func UseAdjustedClose(bars []models.Bar) []models.Bar {
	for i := range bars {
		if bars[i].AdjClose != 0 {
			bars[i].Close = bars[i].AdjClose
		}
	}
	return bars
}

func finish(bars []models.Bar, from, to time.Time, adjusted bool) ([]models.Bar, error) {
	bars = filterRange(bars, from, to)
	if len(bars) == 0 {
		return nil, ErrNoData
	}
	if adjusted {
		bars = UseAdjustedClose(bars)
	}
	return bars, nil
}
