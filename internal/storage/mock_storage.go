package storage

import (
	"fmt"
	"sync"

	"github.com/eddiefleurent/apobacktest/internal/models"
)

// MockStorage implements Interface in memory for testing
type MockStorage struct {
	mu             sync.Mutex
	saveError      error
	loadError      error
	putSeriesError error
	saveRunError   error
	series         map[string][]models.Bar
	runs           map[string]*Run
	saveCallCount  int
	loadCallCount  int
	getSeriesCalls int
	putSeriesCalls int
}

// NewMockStorage creates a new mock storage for testing
func NewMockStorage() *MockStorage {
	return &MockStorage{
		series: make(map[string][]models.Bar),
		runs:   make(map[string]*Run),
	}
}

// Price series cache methods
func (m *MockStorage) GetSeries(key string) ([]models.Bar, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getSeriesCalls++

	bars, ok := m.series[key]
	if !ok {
		return nil, false
	}
	return append([]models.Bar(nil), bars...), true
}

func (m *MockStorage) PutSeries(key string, bars []models.Bar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putSeriesCalls++

	if m.putSeriesError != nil {
		return m.putSeriesError
	}
	m.series[key] = append([]models.Bar(nil), bars...)
	return nil
}

// Run history methods
func (m *MockStorage) SaveRun(run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveRunError != nil {
		return m.saveRunError
	}
	if run == nil || run.ID == "" {
		return fmt.Errorf("run must have an id")
	}
	m.runs[run.ID] = run.Copy()
	return nil
}

func (m *MockStorage) GetRun(id string) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run.Copy(), nil
}

func (m *MockStorage) ListRuns() []RunInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos := make([]RunInfo, 0, len(m.runs))
	for _, run := range m.runs {
		infos = append(infos, run.Info())
	}
	sortRunInfos(infos)
	return infos
}

// Data persistence methods (mocked)
func (m *MockStorage) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCallCount++
	return m.saveError
}

func (m *MockStorage) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadCallCount++
	return m.loadError
}

// Mock control methods for testing
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

func (m *MockStorage) SetLoadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadError = err
}

func (m *MockStorage) SetPutSeriesError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putSeriesError = err
}

func (m *MockStorage) SetSaveRunError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveRunError = err
}

func (m *MockStorage) GetSaveCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveCallCount
}

func (m *MockStorage) GetLoadCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadCallCount
}

func (m *MockStorage) GetSeriesCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getSeriesCalls
}

func (m *MockStorage) PutSeriesCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putSeriesCalls
}

// Ensure MockStorage implements Interface
var _ Interface = (*MockStorage)(nil)
