// Package api exposes the HTTP interface for the ingestion service.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jobwatch/jobwatch/internal/config"
	"github.com/jobwatch/jobwatch/internal/crawler"
	"github.com/jobwatch/jobwatch/internal/ingest"
	"github.com/jobwatch/jobwatch/internal/metrics"
	"github.com/jobwatch/jobwatch/internal/store"
)

// Ingestor is the subset of the pipeline the API triggers.
type Ingestor interface {
	Pass(ctx context.Context, q crawler.Query) (ingest.Stats, error)
	Purge(ctx context.Context, days int) (int64, error)
}

// Server wires HTTP handlers to the store and the ingestion pipeline.
type Server struct {
	router   chi.Router
	store    store.Store
	ingestor Ingestor
	cfg      config.Config
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(st store.Store, ingestor Ingestor, cfg config.Config, logger *zap.Logger) *Server {
	s := &Server{
		store:    st,
		ingestor: ingestor,
		cfg:      cfg,
		logger:   logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metricsMiddleware)
	r.Use(timeoutMiddleware(120 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/search", s.search)
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/recent", s.recentJobs)
			r.Get("/stats", s.stats)
			r.Post("/cleanup", s.cleanup)
		})
		r.Post("/scrape", s.scrape)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), 50)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}
	offset, err := intParam(q.Get("offset"), 0)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "offset must be an integer")
		return
	}

	rows, err := s.store.Search(r.Context(), store.Filter{
		Keyword: q.Get("keyword"),
		Company: q.Get("company"),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"count": len(rows), "jobs": rows})
}

func (s *Server) recentJobs(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r.URL.Query().Get("days"), 1)
	if err != nil || days <= 0 {
		s.writeError(w, http.StatusBadRequest, "days must be a positive integer")
		return
	}

	rows, err := s.store.Recent(r.Context(), days)
	if err != nil {
		s.logger.Error("recent lookup failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "recent lookup failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"days": days, "count": len(rows), "jobs": rows})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	total, err := s.store.Count(r.Context())
	if err != nil {
		s.logger.Error("count failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "count failed")
		return
	}
	fresh, err := s.store.Recent(r.Context(), 1)
	if err != nil {
		s.logger.Error("recent lookup failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "recent lookup failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"total_jobs":     total,
		"new_jobs_today": len(fresh),
	})
}

func (s *Server) cleanup(w http.ResponseWriter, r *http.Request) {
	days := s.cfg.Ingest.RetentionDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = parsed
	}

	deleted, err := s.ingestor.Purge(r.Context(), days)
	if err != nil {
		s.logger.Error("cleanup failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "cleanup failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"days": days, "deleted": deleted})
}

type scrapeRequest struct {
	Keyword string `json:"keyword"`
	Area    string `json:"area"`
	Pages   int    `json:"pages"`
}

func (s *Server) scrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Keyword == "" {
		s.writeError(w, http.StatusBadRequest, "keyword required")
		return
	}
	if req.Pages <= 0 {
		req.Pages = s.cfg.Ingest.SweepPages
	}
	if req.Area == "" {
		req.Area = s.cfg.Ingest.DefaultArea
	}

	stats, err := s.ingestor.Pass(r.Context(), crawler.Query{
		Keyword: req.Keyword,
		Area:    req.Area,
		Pages:   req.Pages,
	})
	if err != nil {
		s.logger.Error("scrape failed", zap.String("keyword", req.Keyword), zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "scrape failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"keyword": req.Keyword,
		"scraped": stats.Scraped,
		"written": stats.Written,
	})
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = "unknown"
		}
		metrics.ObserveHTTPRequest(r.Method, routePattern, ww.status, time.Since(start))
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

// requestIDFrom returns the request ID set by requestIDMiddleware, or ""
// when the middleware did not run.
func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
