package dashboard

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddiefleurent/apobacktest/internal/models"
	"github.com/eddiefleurent/apobacktest/internal/storage"
)

var created = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func seededStore(t *testing.T) *storage.MockStorage {
	t.Helper()
	store := storage.NewMockStorage()
	ts := time.Date(2014, 1, 2, 0, 0, 0, 0, time.UTC)

	runs := []*storage.Run{
		{
			ID: "run-spy", Symbol: "SPY", CreatedAt: created,
			Results: []models.BarResult{
				{Timestamp: ts, Price: 100, Order: models.OrderHold, Reason: models.ReasonNone, Side: models.SideFlat, VolatilityFactor: 1},
				{Timestamp: ts.AddDate(0, 0, 1), Price: 101, Order: models.OrderSell, Reason: models.ReasonSellEntry, Position: -10, Side: models.SideShort},
			},
			Summary: models.Summary{Bars: 2, RoundTrips: 2, WinningRoundTrips: 1, LosingRoundTrips: 1, RealizedPnL: 40, OpenPnL: -10, MaxDrawdown: 25},
		},
		{
			ID: "run-qqq", Symbol: "QQQ", CreatedAt: created.Add(-time.Hour), Partial: true, Error: "run canceled after 1 bars",
			Summary: models.Summary{Bars: 1, RoundTrips: 1, WinningRoundTrips: 1, RealizedPnL: 20, MaxDrawdown: 5},
		},
	}
	for _, run := range runs {
		require.NoError(t, store.SaveRun(run))
	}
	return store
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func do(t *testing.T, s *Server, path string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := NewServer(Config{Port: 8080}, storage.NewMockStorage(), quietLogger())
	rec := do(t, s, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestListRuns(t *testing.T) {
	s := NewServer(Config{}, seededStore(t), quietLogger())

	rec := do(t, s, "/api/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var runs []storage.RunInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 2)
	assert.Equal(t, "run-spy", runs[0].ID)
	assert.True(t, runs[1].Partial)

	rec = do(t, s, "/api/runs?symbol=qqq", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "QQQ", runs[0].Symbol)
}

func TestGetRunOmitsResults(t *testing.T) {
	s := NewServer(Config{}, seededStore(t), quietLogger())

	rec := do(t, s, "/api/runs/run-qqq", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "run-qqq", body["id"])
	assert.Equal(t, "run canceled after 1 bars", body["error"])
	assert.Contains(t, body, "config")
	assert.NotContains(t, body, "results")
}

func TestGetResults(t *testing.T) {
	s := NewServer(Config{}, seededStore(t), quietLogger())

	rec := do(t, s, "/api/runs/run-spy/results", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var results []models.BarResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 2)
	assert.Equal(t, models.ReasonSellEntry, results[1].Reason)
	assert.Equal(t, -10, results[1].Position)
}

func TestGetResultsCSV(t *testing.T) {
	s := NewServer(Config{}, seededStore(t), quietLogger())

	rec := do(t, s, "/api/runs/run-spy/results.csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "timestamp,price,fast_ema"))
	assert.Contains(t, lines[2], "SELL,sell_entry,-10")
}

func TestUnknownRun(t *testing.T) {
	s := NewServer(Config{}, seededStore(t), quietLogger())
	for _, path := range []string{"/api/runs/nope", "/api/runs/nope/results", "/api/runs/nope/results.csv"} {
		assert.Equal(t, http.StatusNotFound, do(t, s, path, nil).Code, path)
	}
}

func TestStats(t *testing.T) {
	s := NewServer(Config{}, seededStore(t), quietLogger())

	rec := do(t, s, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats Statistics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Runs)
	assert.Equal(t, 1, stats.PartialRuns)
	assert.Equal(t, 3, stats.Bars)
	assert.Equal(t, 3, stats.RoundTrips)
	assert.InDelta(t, 200.0/3.0, stats.WinRate, 1e-9)
	assert.Equal(t, 50.0, stats.TotalPnL)
	assert.Equal(t, 25.0, stats.AveragePnL)
	assert.Equal(t, 25.0, stats.WorstDrawdown)
}

func TestIndexPage(t *testing.T) {
	s := NewServer(Config{}, seededStore(t), quietLogger())

	rec := do(t, s, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "run-spy")
	assert.Contains(t, rec.Body.String(), "2 runs")
}

func TestAuthMiddleware(t *testing.T) {
	s := NewServer(Config{AuthToken: "s3cret"}, seededStore(t), quietLogger())

	assert.Equal(t, http.StatusOK, do(t, s, "/health", nil).Code, "health is exempt")
	assert.Equal(t, http.StatusUnauthorized, do(t, s, "/api/runs", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, s, "/api/runs", http.Header{"X-Auth-Token": {"wrong"}}).Code)
	assert.Equal(t, http.StatusOK, do(t, s, "/api/runs", http.Header{"X-Auth-Token": {"s3cret"}}).Code)
	assert.Equal(t, http.StatusOK, do(t, s, "/api/runs?token=s3cret", nil).Code)
}
