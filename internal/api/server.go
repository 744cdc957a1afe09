package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/terra-clan/diagnosis-engine/internal/config"
	"github.com/terra-clan/diagnosis-engine/internal/diagnosis"
	"github.com/terra-clan/diagnosis-engine/internal/health"
	"github.com/terra-clan/diagnosis-engine/internal/models"
	"github.com/terra-clan/diagnosis-engine/internal/storage"
)

// Engine is the set of diagnosis operations the API exposes
type Engine interface {
	ListBlocks(ctx context.Context, scope storage.Scope) ([]models.BlockState, error)
	GetBlockEfficiency(ctx context.Context, scope storage.Scope, blockID string) (models.BlockState, error)
	GetOverallEfficiency(ctx context.Context, scope storage.Scope) (int, error)
	GetTasksForBlock(ctx context.Context, scope storage.Scope, blockID string) ([]models.Task, error)
	GetTally(ctx context.Context, scope storage.Scope, blockID string) (diagnosis.Tally, error)
	GetHistory(ctx context.Context, scope storage.Scope) (models.HistoryView, error)
	DeleteHistoryEntry(ctx context.Context, scope storage.Scope, entryID string) error
	RecordAnswer(ctx context.Context, scope storage.Scope, blockID, questionID, optionID string) (models.BlockState, error)
	ResetBlock(ctx context.Context, scope storage.Scope, blockID string) error
	SetTaskCompleted(ctx context.Context, scope storage.Scope, blockID, taskID string, completed bool) (models.Task, error)
	Recompute(ctx context.Context, scope storage.Scope) (diagnosis.Summary, error)
}

// Server represents the HTTP API server
type Server struct {
	config   config.ServerConfig
	router   *chi.Mux
	engine   Engine
	catalog  diagnosis.Catalog
	health   *health.Registry
	gatherer prometheus.Gatherer
}

// NewServer creates a new API server
func NewServer(
	cfg config.ServerConfig,
	engine Engine,
	catalog diagnosis.Catalog,
	registry *health.Registry,
	gatherer prometheus.Gatherer,
) *Server {
	if registry == nil {
		registry = health.NewRegistry()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		config:   cfg,
		engine:   engine,
		catalog:  catalog,
		health:   registry,
		gatherer: gatherer,
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "PUT", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", UserIDHeader},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/catalog/blocks", func(r chi.Router) {
			r.Get("/", s.handleListCatalogBlocks)
			r.Get("/{blockId}", s.handleGetCatalogBlock)
		})

		r.Route("/venues/{venueId}", func(r chi.Router) {
			r.Use(IdentifyUser)

			r.Get("/efficiency", s.handleGetOverallEfficiency)
			r.Post("/recompute", s.handleRecompute)

			r.Route("/blocks", func(r chi.Router) {
				r.Get("/", s.handleListBlocks)

				r.Route("/{blockId}", func(r chi.Router) {
					r.Get("/", s.handleGetBlock)
					r.Get("/tally", s.handleGetTally)
					r.Put("/answers", s.handleRecordAnswer)
					r.Delete("/answers", s.handleResetBlock)
					r.Get("/tasks", s.handleListTasks)
					r.Put("/tasks/{taskId}", s.handleSetTaskCompleted)
				})
			})

			r.Get("/history", s.handleGetHistory)
			r.Delete("/history/{entryId}", s.handleDeleteHistoryEntry)
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
