package marketdata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/eddiefleurent/apobacktest/internal/models"
)

// FileSource reads <Dir>/<SYMBOL>.csv.
type FileSource struct {
	Dir           string
	AdjustedClose bool
}

var _ Source = (*FileSource)(nil)

// NewFileSource returns a FileSource rooted at dir.
func NewFileSource(dir string, adjustedClose bool) *FileSource {
	return &FileSource{Dir: dir, AdjustedClose: adjustedClose}
}

// CacheVariant implements Variant.
func (f *FileSource) CacheVariant() string {
	return fmt.Sprintf("file:%s:adjusted=%t", filepath.Clean(f.Dir), f.AdjustedClose)
}

// FetchBars implements Source.
func (f *FileSource) FetchBars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(f.Dir, strings.ToUpper(symbol)+".csv")
	fh, err := os.Open(path) // #nosec G304 -- directory comes from operator configuration
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s not found", ErrNoData, path)
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = fh.Close() }()

	bars, err := ParseCSV(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return finish(bars, from, to, f.AdjustedClose)
}
