// Package server provides the HTTP API for Tansaku.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/rag"
	"github.com/hyperjump/tansaku/internal/storage"
	"github.com/hyperjump/tansaku/pkg/utils"
)

// Engine is the Graph RAG orchestrator.
type Engine interface {
	DemographicContext(ctx context.Context, req rag.ContextRequest) (*rag.ContextResult, error)
	Ask(ctx context.Context, question string, topK int) (*rag.Answer, error)
}

// SourceIndexer loads and removes local sources.
type SourceIndexer interface {
	IndexSource(ctx context.Context, input *models.SourceInput) (*models.Source, int, error)
	DeleteSource(ctx context.Context, id string) error
}

// Status describes the optional components reported by /health.
type Status struct {
	RerankEnabled  bool   `json:"rerank_enabled"`
	KeywordEnabled bool   `json:"keyword_enabled"`
	CacheBackend   string `json:"cache_backend"`
}

// Server is the HTTP server for the Tansaku API.
type Server struct {
	engine  Engine
	indexer SourceIndexer
	storage storage.Storage
	config  *config.ServerConfig
	status  Status
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine Engine,
	idx SourceIndexer,
	store storage.Storage,
	cfg *config.ServerConfig,
	status Status,
	logger *zap.Logger,
) *Server {
	return &Server{
		engine:  engine,
		indexer: idx,
		storage: store,
		config:  cfg,
		status:  status,
		logger:  utils.OrNop(logger),
	}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/context", s.handleContext)
		r.Post("/ask", s.handleAsk)
		r.Post("/sources", s.handleIndexSource)
		r.Get("/sources/{id}", s.handleGetSource)
		r.Delete("/sources/{id}", s.handleDeleteSource)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
