package storage

import (
	"github.com/eddiefleurent/apobacktest/internal/models"
)

// Interface defines the contract for price-series caching and run history persistence.
//
// Implementations must be safe for concurrent use - callers can assume all methods
// are goroutine-safe and can safely call these methods from multiple goroutines.
//
// The provided JSONStorage implementation uses sync.RWMutex to serialize access,
// ensuring all Interface methods are protected for concurrent readers and writers.
type Interface interface {
	// Price series cache
	GetSeries(key string) ([]models.Bar, bool)
	PutSeries(key string, bars []models.Bar) error

	// Run history
	SaveRun(run *Run) error
	GetRun(id string) (*Run, error)
	ListRuns() []RunInfo

	// Data persistence
	Save() error
	Load() error
}

// NewStorage creates a new storage implementation (currently JSON-based)
func NewStorage(filepath string) (Interface, error) {
	return NewJSONStorage(filepath)
}

// Ensure JSONStorage implements Interface
var _ Interface = (*JSONStorage)(nil)
