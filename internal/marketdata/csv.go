package marketdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/eddiefleurent/apobacktest/internal/models"
)

var dateLayouts = []string{"2006-01-02", time.RFC3339}

// normalizeHeader folds "Adj Close", "adj_close" and "AdjClose" to "adjclose".
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	h = strings.ReplaceAll(h, " ", "")
	return strings.ReplaceAll(h, "_", "")
}

// ParseCSV reads Yahoo-style daily bars (Date,Open,High,Low,Close,Adj Close,Volume).
// Date and Close are required. Rows whose close is "null" or empty are skipped.
// The result is sorted by timestamp.
func ParseCSV(r io.Reader) ([]models.Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing csv: missing header")
		}
		return nil, fmt.Errorf("parsing csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := normalizeHeader(h)
		if name == "timestamp" {
			name = "date"
		}
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	for _, required := range []string{"date", "close"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("parsing csv: missing %s column", required)
		}
	}

	var bars []models.Bar
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing csv line %d: %w", line, err)
		}

		closeStr := field(rec, cols, "close")
		if closeStr == "" || strings.EqualFold(closeStr, "null") {
			continue
		}

		ts, err := parseDate(field(rec, cols, "date"))
		if err != nil {
			return nil, fmt.Errorf("parsing csv line %d: %w", line, err)
		}
		bar := models.Bar{Timestamp: ts}
		if bar.Close, err = strconv.ParseFloat(closeStr, 64); err != nil {
			return nil, fmt.Errorf("parsing csv line %d close: %w", line, err)
		}
		for name, dst := range map[string]*float64{
			"open":     &bar.Open,
			"high":     &bar.High,
			"low":      &bar.Low,
			"adjclose": &bar.AdjClose,
			"volume":   &bar.Volume,
		} {
			if *dst, err = optionalFloat(field(rec, cols, name)); err != nil {
				return nil, fmt.Errorf("parsing csv line %d %s: %w", line, name, err)
			}
		}
		bars = append(bars, bar)
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	return bars, nil
}

func field(rec []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func optionalFloat(s string) (float64, error) {
	if s == "" || strings.EqualFold(s, "null") {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
