package marketdata

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/apobacktest/internal/models"
	"github.com/eddiefleurent/apobacktest/internal/storage"
)

// CachedSource serves repeated requests for the same symbol and range from storage.
// Entries are keyed by the wrapped source's Variant, so sources with different
// settings never share cached bars.
type CachedSource struct {
	source Source
	store  storage.Interface
	logger logrus.FieldLogger
}

var _ Source = (*CachedSource)(nil)

// NewCachedSource wraps source with store. A nil logger discards output.
func NewCachedSource(source Source, store storage.Interface, logger logrus.FieldLogger) *CachedSource {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &CachedSource{source: source, store: store, logger: logger}
}

// FetchBars implements Source. Failed cache writes are logged, not returned.
func (c *CachedSource) FetchBars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error) {
	key := storage.SeriesKey(sourceVariant(c.source), symbol, from, to)
	log := c.logger.WithField("key", key)

	if bars, ok := c.store.GetSeries(key); ok {
		log.Debug("series cache hit")
		return bars, nil
	}

	bars, err := c.source.FetchBars(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}
	if err := c.store.PutSeries(key, bars); err != nil {
		log.WithError(err).Warn("failed to cache series")
	} else {
		log.WithField("bars", len(bars)).Debug("series cached")
	}
	return bars, nil
}
