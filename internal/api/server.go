// Package api exposes the stored build corpus over HTTP: listing and
// comparison endpoints for the storefront, plus an endpoint that kicks
// off an ingest run in the background.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/va-pc/buildscout/internal/model"
	"github.com/va-pc/buildscout/internal/store"
)

const (
	serviceName    = "buildscout"
	serviceVersion = "1.0.0"

	compareLimit = 20
)

// ParseStarter launches an ingest run in the background and returns the
// run ID. Nil on a Server means ingest is not configured (no VK token).
type ParseStarter func(groupIDs []int64, source model.Source) (string, error)

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	store       store.Store
	startParse  ParseStarter
	priceRange  float64
	origins     []string
	defaultGIDs []int64
}

// Option configures a Server.
type Option func(*Server)

// WithParseStarter enables POST /api/parse/start.
func WithParseStarter(fn ParseStarter, defaultGroupIDs []int64) Option {
	return func(s *Server) {
		s.startParse = fn
		s.defaultGIDs = defaultGroupIDs
	}
}

// WithPriceRange sets the half-width of the price comparison window.
func WithPriceRange(r float64) Option {
	return func(s *Server) { s.priceRange = r }
}

// WithAllowedOrigins sets the CORS origin whitelist.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// New builds a Server around the given store.
func New(st store.Store, opts ...Option) *Server {
	s := &Server{
		store:      st,
		priceRange: 50000,
		origins:    []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router assembles the chi router with middleware and all routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/builds/our", s.handleOurBuilds)
		r.Get("/builds/{buildID}", s.handleGetBuild)
		r.Post("/compare/price", s.handleComparePrice)
		r.Post("/compare/specs", s.handleCompareSpecs)
		r.Post("/parse/start", s.handleParseStart)
		r.Get("/stats", s.handleStats)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": serviceName,
		"version": serviceVersion,
	})
}

func (s *Server) handleOurBuilds(w http.ResponseWriter, r *http.Request) {
	builds, err := s.store.OurBuilds(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, formatBuilds(builds))
}

func (s *Server) handleGetBuild(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "buildID")
	build, err := s.store.GetBuild(r.Context(), id)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, eris.New("build not found"))
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, formatBuild(*build))
}

type compareRequest struct {
	BuildID string `json:"build_id"`
}

func (s *Server) handleComparePrice(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, eris.New("invalid request body"))
		return
	}
	target, err := s.store.GetBuild(r.Context(), req.BuildID)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, eris.New("build not found"))
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	similar, err := s.store.CompareByPrice(r.Context(), req.BuildID, s.priceRange, compareLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, annotateComparisons(similar, target.Price))
}

func (s *Server) handleCompareSpecs(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, eris.New("invalid request body"))
		return
	}
	target, err := s.store.GetBuild(r.Context(), req.BuildID)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, eris.New("build not found"))
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	similar, err := s.store.CompareBySpecs(r.Context(), req.BuildID, compareLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, annotateComparisons(similar, target.Price))
}

type parseRequest struct {
	GroupIDs []int64 `json:"group_ids"`
	Source   string  `json:"source"`
}

func (s *Server) handleParseStart(w http.ResponseWriter, r *http.Request) {
	if s.startParse == nil {
		writeError(w, http.StatusInternalServerError, eris.New("VK token not configured"))
		return
	}

	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, eris.New("invalid request body"))
		return
	}
	if req.Source == "" {
		req.Source = string(model.SourceMarket)
	}
	source := model.Source(req.Source)
	if !source.Valid() {
		writeError(w, http.StatusBadRequest, eris.Errorf("unknown source %q", req.Source))
		return
	}
	groupIDs := req.GroupIDs
	if len(groupIDs) == 0 {
		groupIDs = s.defaultGIDs
	}
	if len(groupIDs) == 0 {
		writeError(w, http.StatusBadRequest, eris.New("no group IDs given or configured"))
		return
	}

	runID, err := s.startParse(groupIDs, source)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status": "parsing_started",
		"run_id": runID,
		"groups": groupIDs,
		"source": source,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"detail": err.Error()})
}
