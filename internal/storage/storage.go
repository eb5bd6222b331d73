package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/eddiefleurent/apobacktest/internal/models"
)

// JSONStorage keeps the series cache and run history in memory and persists
// them to a single JSON file.
type JSONStorage struct {
	mu       sync.RWMutex
	filepath string
	data     *Data
}

// Data is the on-disk document.
type Data struct {
	Series      map[string][]models.Bar `json:"series"`
	Runs        map[string]*Run         `json:"runs"`
	LastUpdated time.Time               `json:"last_updated"`
}

func newData() *Data {
	return &Data{
		Series: make(map[string][]models.Bar),
		Runs:   make(map[string]*Run),
	}
}

// NewJSONStorage opens the store at path, loading it when the file exists.
func NewJSONStorage(path string) (*JSONStorage, error) {
	s := &JSONStorage{
		filepath: path,
		data:     newData(),
	}

	// Load existing data if file exists
	if _, err := os.Stat(path); err == nil {
		if err := s.Load(); err != nil {
			return nil, fmt.Errorf("loading storage: %w", err)
		}
	}

	return s, nil
}

// Load replaces the in-memory state with the file contents.
func (s *JSONStorage) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.filepath) // #nosec G304 -- path comes from operator configuration
	if err != nil {
		return err
	}

	data := newData()
	if err := json.Unmarshal(raw, data); err != nil {
		return fmt.Errorf("decoding %s: %w", s.filepath, err)
	}
	if data.Series == nil {
		data.Series = make(map[string][]models.Bar)
	}
	if data.Runs == nil {
		data.Runs = make(map[string]*Run)
	}
	s.data = data
	return nil
}

// Save writes the current state to disk.
func (s *JSONStorage) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *JSONStorage) saveLocked() error {
	s.data.LastUpdated = time.Now().UTC()

	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding storage: %w", err)
	}

	if dir := filepath.Dir(s.filepath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating storage dir: %w", err)
		}
	}

	// Write to temp file first
	tmpFile := s.filepath + ".tmp"
	if err := os.WriteFile(tmpFile, raw, 0o600); err != nil {
		return err
	}

	// Atomic rename
	return os.Rename(tmpFile, s.filepath)
}

// GetSeries returns a copy of the cached bars for key.
func (s *JSONStorage) GetSeries(key string) ([]models.Bar, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bars, ok := s.data.Series[key]
	if !ok {
		return nil, false
	}
	return append([]models.Bar(nil), bars...), true
}

// PutSeries caches bars under key and persists the store.
func (s *JSONStorage) PutSeries(key string, bars []models.Bar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.Series[key] = append([]models.Bar(nil), bars...)
	return s.saveLocked()
}

// SaveRun stores run under its ID, replacing any previous run with the same ID.
func (s *JSONStorage) SaveRun(run *Run) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("run must have an id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.Runs[run.ID] = run.Copy()
	return s.saveLocked()
}

// GetRun returns a copy of the run stored under id.
func (s *JSONStorage) GetRun(id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.data.Runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run.Copy(), nil
}

// ListRuns returns every stored run, newest first.
func (s *JSONStorage) ListRuns() []RunInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]RunInfo, 0, len(s.data.Runs))
	for _, run := range s.data.Runs {
		infos = append(infos, run.Info())
	}
	sortRunInfos(infos)
	return infos
}

func sortRunInfos(infos []RunInfo) {
	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].CreatedAt.After(infos[j].CreatedAt)
		}
		return infos[i].ID < infos[j].ID
	})
}
