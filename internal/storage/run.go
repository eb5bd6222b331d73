package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/eddiefleurent/apobacktest/internal/engine"
	"github.com/eddiefleurent/apobacktest/internal/models"
)

// Run is one persisted backtest: the strategy parameters, every bar result and the summary.
type Run struct {
	ID        string             `json:"id"`
	Symbol    string             `json:"symbol"`
	From      time.Time          `json:"from"`
	To        time.Time          `json:"to"`
	CreatedAt time.Time          `json:"created_at"`
	Config    engine.Config      `json:"config"`
	Results   []models.BarResult `json:"results"`
	Summary   models.Summary     `json:"summary"`

	// Partial is set when the run stopped early on cancellation or bad input.
	Partial bool   `json:"partial,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RunInfo is the listing view of a Run without its bar results.
type RunInfo struct {
	ID        string         `json:"id"`
	Symbol    string         `json:"symbol"`
	From      time.Time      `json:"from"`
	To        time.Time      `json:"to"`
	CreatedAt time.Time      `json:"created_at"`
	Summary   models.Summary `json:"summary"`
	Partial   bool           `json:"partial,omitempty"`
}

// Info returns the listing view of r.
func (r *Run) Info() RunInfo {
	return RunInfo{
		ID:        r.ID,
		Symbol:    r.Symbol,
		From:      r.From,
		To:        r.To,
		CreatedAt: r.CreatedAt,
		Summary:   r.Summary,
		Partial:   r.Partial,
	}
}

// Copy returns a deep copy of r.
func (r *Run) Copy() *Run {
	if r == nil {
		return nil
	}
	c := *r
	c.Results = append([]models.BarResult(nil), r.Results...)
	return &c
}

// SeriesKey builds the cache key for a symbol and date range. variant names the
// provider settings that produced the bars; an empty variant is omitted.
func SeriesKey(variant, symbol string, from, to time.Time) string {
	key := fmt.Sprintf("%s|%s|%s", strings.ToUpper(symbol), from.Format("2006-01-02"), to.Format("2006-01-02"))
	if variant == "" {
		return key
	}
	return variant + "|" + key
}
