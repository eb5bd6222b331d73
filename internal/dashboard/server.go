// Package dashboard serves stored backtest runs over HTTP.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/apobacktest/internal/engine"
	"github.com/eddiefleurent/apobacktest/internal/report"
	"github.com/eddiefleurent/apobacktest/internal/storage"
)

type Server struct {
	router    *chi.Mux
	server    *http.Server
	storage   storage.Interface
	logger    *logrus.Logger
	port      int
	authToken string
}

type Config struct {
	Port      int
	AuthToken string
}

// Statistics aggregates every stored run.
type Statistics struct {
	Runs              int     `json:"runs"`
	PartialRuns       int     `json:"partial_runs"`
	Bars              int     `json:"bars"`
	RoundTrips        int     `json:"round_trips"`
	WinningRoundTrips int     `json:"winning_round_trips"`
	LosingRoundTrips  int     `json:"losing_round_trips"`
	WinRate           float64 `json:"win_rate"`
	TotalPnL          float64 `json:"total_pnl"`
	AveragePnL        float64 `json:"average_pnl"` // per run
	WorstDrawdown     float64 `json:"worst_drawdown"`
}

// DashboardData feeds the index page.
type DashboardData struct {
	Runs       []storage.RunInfo
	Stats      Statistics
	LastUpdate time.Time
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><title>APO backtests</title></head>
<body>
<h1>APO backtests</h1>
<p>{{.Stats.Runs}} runs, total P&amp;L {{printf "%.2f" .Stats.TotalPnL}}, win rate {{printf "%.1f" .Stats.WinRate}}%</p>
<table>
<tr><th>ID</th><th>Symbol</th><th>Bars</th><th>Round trips</th><th>Realized</th><th>Open</th><th>Max drawdown</th></tr>
{{range .Runs}}<tr><td><a href="/api/runs/{{.ID}}">{{.ID}}</a></td><td>{{.Symbol}}</td><td>{{.Summary.Bars}}</td><td>{{.Summary.RoundTrips}}</td><td>{{printf "%.2f" .Summary.RealizedPnL}}</td><td>{{printf "%.2f" .Summary.OpenPnL}}</td><td>{{printf "%.2f" .Summary.MaxDrawdown}}</td></tr>
{{end}}</table>
<p>Updated {{.LastUpdate.Format "2006-01-02 15:04:05"}}</p>
</body>
</html>
`))

func NewServer(cfg Config, storage storage.Interface, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Server{
		router:    chi.NewRouter(),
		storage:   storage,
		logger:    logger,
		port:      cfg.Port,
		authToken: cfg.AuthToken,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	if s.authToken != "" {
		s.router.Use(s.authMiddleware)
	}

	s.router.Get("/", s.handleIndex)
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/api/stats", s.handleGetStats)
	s.router.Get("/api/runs", s.handleListRuns)
	s.router.Get("/api/runs/{id}", s.handleGetRun)
	s.router.Get("/api/runs/{id}/results", s.handleGetResults)
	s.router.Get("/api/runs/{id}/results.csv", s.handleGetResultsCSV)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get("X-Auth-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}

		if token != s.authToken {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Infof("Starting dashboard server on port %d", s.port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}, what string) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Errorf("Failed to encode %s", what)
	}
}

// lookupRun writes a 404 or 500 and returns nil when the run cannot be served.
func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) *storage.Run {
	id := chi.URLParam(r, "id")
	run, err := s.storage.GetRun(id)
	if err != nil {
		if errors.Is(err, storage.ErrRunNotFound) {
			http.Error(w, "Not Found", http.StatusNotFound)
			return nil
		}
		s.logger.WithError(err).WithField("run_id", id).Error("Failed to load run")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil
	}
	return run
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	runs := s.storage.ListRuns()
	data := DashboardData{
		Runs:       runs,
		Stats:      calculateStatistics(runs),
		LastUpdate: time.Now(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		s.logger.WithError(err).Error("Failed to execute index template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	}
	s.writeJSON(w, health, "health response")
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, calculateStatistics(s.storage.ListRuns()), "statistics")
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs := s.storage.ListRuns()
	if symbol := strings.ToUpper(r.URL.Query().Get("symbol")); symbol != "" {
		filtered := runs[:0]
		for _, run := range runs {
			if run.Symbol == symbol {
				filtered = append(filtered, run)
			}
		}
		runs = filtered
	}
	s.writeJSON(w, runs, "runs")
}

// runView is a run without its per-bar results.
type runView struct {
	storage.RunInfo
	Config engine.Config `json:"config"`
	Error  string        `json:"error,omitempty"`
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run := s.lookupRun(w, r)
	if run == nil {
		return
	}
	s.writeJSON(w, runView{RunInfo: run.Info(), Config: run.Config, Error: run.Error}, "run")
}

func (s *Server) handleGetResults(w http.ResponseWriter, r *http.Request) {
	run := s.lookupRun(w, r)
	if run == nil {
		return
	}
	s.writeJSON(w, run.Results, "results")
}

func (s *Server) handleGetResultsCSV(w http.ResponseWriter, r *http.Request) {
	run := s.lookupRun(w, r)
	if run == nil {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", run.Symbol+"_"+run.ID+".csv"))
	if err := report.WriteCSV(w, run.Results); err != nil {
		s.logger.WithError(err).WithField("run_id", run.ID).Error("Failed to write results csv")
	}
}

func calculateStatistics(runs []storage.RunInfo) Statistics {
	stats := Statistics{}
	for _, run := range runs {
		stats.Runs++
		if run.Partial {
			stats.PartialRuns++
		}
		stats.Bars += run.Summary.Bars
		stats.RoundTrips += run.Summary.RoundTrips
		stats.WinningRoundTrips += run.Summary.WinningRoundTrips
		stats.LosingRoundTrips += run.Summary.LosingRoundTrips
		stats.TotalPnL += run.Summary.TotalPnL()
		if run.Summary.MaxDrawdown > stats.WorstDrawdown {
			stats.WorstDrawdown = run.Summary.MaxDrawdown
		}
	}

	if decided := stats.WinningRoundTrips + stats.LosingRoundTrips; decided > 0 {
		stats.WinRate = float64(stats.WinningRoundTrips) / float64(decided) * 100
	}
	if stats.Runs > 0 {
		stats.AveragePnL = stats.TotalPnL / float64(stats.Runs)
	}
	return stats
}
