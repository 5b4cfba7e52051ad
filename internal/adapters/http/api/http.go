// Package api exposes the estimator over HTTP with JSON request and response bodies.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	service "github.com/okian/admission/internal/app"
	"github.com/okian/admission/internal/domain/model"
	"github.com/okian/admission/internal/domain/scoring"
	"github.com/okian/admission/pkg/logger"
	"github.com/okian/admission/pkg/metrics"
)

const (
	maxBodyBytes     = 4 << 20
	maxForecastYears = 20
	defaultLimit     = 100
	maxLimit         = 1000
)

// Dependencies bundles everything the handlers need. *service.Service implements it.
type Dependencies interface {
	EligibilityDependencies
	ProgramDependencies
	BatchDependencies
	StatsProvider
}

// Server wires HTTP routes for the estimator API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	eligibilityHandler *EligibilityHandler
	programsHandler    *ProgramsHandler
	batchesHandler     *BatchesHandler

	origins []string
}

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	testMaxScore float64
	origins      []string
	logger       logger.Logger
}

// WithTestMaxScore sets the upper bound accepted for utme.
func WithTestMaxScore(maxScore float64) ServerOption {
	return func(c *serverConfig) {
		if maxScore > 0 {
			c.testMaxScore = maxScore
		}
	}
}

// WithAllowedOrigins sets the CORS origins. An empty list keeps "*".
func WithAllowedOrigins(origins []string) ServerOption {
	return func(c *serverConfig) {
		if len(origins) > 0 {
			c.origins = origins
		}
	}
}

// WithLogger sets the logger used for server errors.
func WithLogger(l logger.Logger) ServerOption {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...ServerOption) *Server {
	cfg := serverConfig{testMaxScore: scoring.DefaultTestMaxScore, origins: []string{"*"}}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get().Named("http")
	}
	rw := responder{logger: cfg.logger}
	v := validator{testMaxScore: cfg.testMaxScore}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		eligibilityHandler: &EligibilityHandler{deps: deps, validate: v, responder: rw},
		programsHandler:    &ProgramsHandler{deps: deps, responder: rw},
		batchesHandler:     &BatchesHandler{deps: deps, validate: v, responder: rw},
		origins:            cfg.origins,
	}
}

// Router returns the chi router with every route attached. Callers may mount
// more routes on it.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Length"},
		MaxAge:         300,
	}))
	r.Use(MetricsMiddleware)

	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	r.Get("/stats", s.statsHandler.HandleStats)

	r.Post("/eligibility", s.eligibilityHandler.HandleEvaluate)

	r.Get("/programs", s.programsHandler.HandleList)
	r.Get("/programs/{id}", s.programsHandler.HandleGet)
	r.Put("/programs/{id}", s.programsHandler.HandlePut)
	r.Get("/programs/{id}/trends", s.programsHandler.HandleTrends)
	r.Get("/programs/{id}/bands", s.programsHandler.HandleBands)

	r.Post("/batches", s.batchesHandler.HandleSubmit)
	r.Get("/batches/{id}", s.batchesHandler.HandleResults)
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// responder maps errors to status codes and logs server-side failures.
type responder struct {
	logger logger.Logger
}

func (rw responder) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		rw.logger.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.String("request_id", middleware.GetReqID(r.Context())),
			logger.Error(err),
		)
	}
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}
