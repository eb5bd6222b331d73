package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/eddiefleurent/apobacktest/internal/models"
)

// Header is the column order written by WriteCSV.
var Header = []string{
	"timestamp", "price", "fast_ema", "slow_ema", "apo", "volatility_factor",
	"order", "reason", "position", "realized_pnl", "open_pnl",
}

// WriteCSV writes one row per BarResult after the header.
func WriteCSV(w io.Writer, results []models.BarResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for i, r := range results {
		row := []string{
			r.Timestamp.Format(time.RFC3339),
			formatF(r.Price), formatF(r.FastEMA), formatF(r.SlowEMA), formatF(r.APO),
			formatF(r.VolatilityFactor),
			string(r.Order), string(r.Reason),
			strconv.Itoa(r.Position),
			formatF(r.RealizedPnL), formatF(r.OpenPnL),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes results to path, creating parent directories as needed.
func WriteCSVFile(path string, results []models.BarResult) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	f, err := os.Create(path) // #nosec G304 -- path comes from operator configuration
	if err != nil {
		return fmt.Errorf("creating csv file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return WriteCSV(f, results)
}

func formatF(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
