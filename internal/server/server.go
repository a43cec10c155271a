// Package server exposes plans, analysis and draw history over HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rewired-gh/ssq-planner/internal/logger"
	"github.com/rewired-gh/ssq-planner/internal/metrics"
	"github.com/rewired-gh/ssq-planner/internal/models"
	"github.com/rewired-gh/ssq-planner/internal/planner"
)

// DrawSource supplies newest-first archive snapshots.
type DrawSource interface {
	Draws(ctx context.Context) ([]models.DrawRecord, error)
	Page(ctx context.Context, page, perPage int) ([]models.DrawRecord, int, error)
}

// Config holds HTTP settings.
type Config struct {
	Addr               string
	RateLimitPerMinute int // 0 disables rate limiting
	HistoryPageSize    int
}

// Server is the HTTP front end.
type Server struct {
	engine *planner.Engine
	source DrawSource
	cfg    Config
	http   *http.Server
}

// New creates a Server.
func New(engine *planner.Engine, source DrawSource, cfg Config) *Server {
	if cfg.HistoryPageSize < 1 {
		cfg.HistoryPageSize = 50
	}
	s := &Server{engine: engine, source: source, cfg: cfg}
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if s.cfg.RateLimitPerMinute > 0 {
			r.Use(httprate.LimitByIP(s.cfg.RateLimitPerMinute, time.Minute))
		}
		r.Get("/health", s.handleHealth)
		r.Get("/plan", s.handlePlan)
		r.Post("/recommend", s.handleRecommend)
		r.Get("/history", s.handleHistory)
		r.Get("/analysis", s.handleAnalysis)
	})
	return r
}

// ListenAndServe serves until Shutdown.
func (s *Server) ListenAndServe() error {
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// planResponse wraps a plan with the newest draw it was computed from.
type planResponse struct {
	LatestPeriod string       `json:"latest_period"`
	LatestDate   string       `json:"latest_date"`
	Plan         *models.Plan `json:"plan"`
}

// recommendRequest is the POST /api/recommend body. Anchors are comma lists
// such as "1,3,08"; strategies may be a list or a comma list.
type recommendRequest struct {
	Singles    int             `json:"singles"`
	RedDan     string          `json:"red_dan"`
	BlueDan    string          `json:"blue_dan"`
	Strategies json.RawMessage `json:"strategies"`
}

type historyResponse struct {
	Page  int                 `json:"page"`
	Pages int                 `json:"pages"`
	Total int                 `json:"total"`
	Draws []models.DrawRecord `json:"draws"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, total, err := s.source.Page(r.Context(), 1, 1)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "archive unavailable", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok", "draws": total})
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := planner.Request{
		Anchor:     anchorFrom(q.Get("red_dan"), q.Get("blue_dan")),
		Strategies: splitList(q.Get("strategies")),
	}
	if v := q.Get("singles"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "singles must be an integer", nil)
			return
		}
		req.Singles = n
	}
	s.generate(w, r, req)
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var body recommendRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			respondError(w, http.StatusBadRequest, "invalid JSON body", nil)
			return
		}
	}
	strategies, err := parseStrategies(body.Strategies)
	if err != nil {
		respondError(w, http.StatusBadRequest, "strategies must be a string or a list of strings", nil)
		return
	}
	s.generate(w, r, planner.Request{
		Singles:    body.Singles,
		Anchor:     anchorFrom(body.RedDan, body.BlueDan),
		Strategies: strategies,
	})
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request, req planner.Request) {
	draws, err := s.source.Draws(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "archive unavailable", err)
		return
	}

	start := time.Now()
	plan, err := s.engine.Generate(draws, req)
	if err != nil {
		var noData planner.NoDataError
		if errors.As(err, &noData) {
			respondError(w, http.StatusServiceUnavailable, err.Error(), nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "plan generation failed", err)
		return
	}
	plan.ID = uuid.NewString()
	metrics.ObservePlan("api", plan, s.engine.Config().CoverageSets, time.Since(start))

	respondJSON(w, http.StatusOK, planResponse{
		LatestPeriod: draws[0].Period,
		LatestDate:   draws[0].Date,
		Plan:         plan,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage := s.cfg.HistoryPageSize

	draws, total, err := s.source.Page(r.Context(), page, perPage)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "archive unavailable", err)
		return
	}
	pages := max(int(math.Ceil(float64(total)/float64(perPage))), 1)
	if page > pages {
		page = pages
		if draws, total, err = s.source.Page(r.Context(), page, perPage); err != nil {
			respondError(w, http.StatusInternalServerError, "archive unavailable", err)
			return
		}
	}

	respondJSON(w, http.StatusOK, historyResponse{Page: page, Pages: pages, Total: total, Draws: draws})
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	draws, err := s.source.Draws(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "archive unavailable", err)
		return
	}
	analysis, err := planner.Analyze(draws)
	if err != nil {
		var noData planner.NoDataError
		if errors.As(err, &noData) {
			respondError(w, http.StatusServiceUnavailable, err.Error(), nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "analysis failed", err)
		return
	}
	respondJSON(w, http.StatusOK, analysis)
}

// anchorFrom parses raw anchor lists; invalid input yields no anchor.
func anchorFrom(redDan, blueDan string) *models.AnchorConstraint {
	a := models.AnchorConstraint{
		Mains:    models.ParseNumberList(redDan, models.MainPoolSize),
		Specials: models.ParseNumberList(blueDan, models.SpecialPoolSize),
	}
	a = a.Normalize()
	if a.Empty() {
		return nil
	}
	return &a
}

func parseStrategies(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return trimList(list), nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, err
	}
	return splitList(single), nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	return trimList(strings.Split(raw, ","))
}

func trimList(items []string) []string {
	var out []string
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		logger.Error("Failed to marshal JSON response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logger.Error("Failed to write JSON response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	if err != nil {
		logger.Error("API error (%d %s): %v", status, message, err)
	}
	respondJSON(w, status, errorResponse{Error: message})
}
