// Package server provides the HTTP API for banglarag.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/banglarag/internal/config"
	"github.com/hyperjump/banglarag/internal/extract"
	"github.com/hyperjump/banglarag/internal/ingest"
	"github.com/hyperjump/banglarag/internal/models"
	"github.com/hyperjump/banglarag/internal/notify"
	"github.com/hyperjump/banglarag/internal/rag"
	"github.com/hyperjump/banglarag/internal/vectorstore"
	"github.com/hyperjump/banglarag/pkg/utils"
)

// Processor runs a processing run for a session.
type Processor interface {
	Run(ctx context.Context, session *rag.Session, docs []ingest.Document, strategy extract.Strategy, n notify.Notifier) (*ingest.Report, error)
}

// Answerer answers a question within a session.
type Answerer interface {
	Answer(ctx context.Context, session *rag.Session, question string) (*models.Answer, error)
}

// IndexLoader reads the persisted index.
type IndexLoader interface {
	Load(ctx context.Context) *vectorstore.Store
	Path() string
}

// Server is the HTTP server for the banglarag API.
type Server struct {
	processor Processor
	answerer  Answerer
	loader    IndexLoader
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server

	sessionsMu sync.RWMutex
	sessions   map[string]*rag.Session
	// processMu serializes processing runs, which replace the shared persisted index.
	processMu sync.Mutex
}

// NewServer creates a server with the given dependencies.
func NewServer(processor Processor, answerer Answerer, loader IndexLoader, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		processor: processor,
		answerer:  answerer,
		loader:    loader,
		config:    cfg,
		logger:    utils.OrNop(logger),
		sessions:  make(map[string]*rag.Session),
	}
}

// Router returns the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.config.Server.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/documents", s.handleProcessDocuments)
			r.Post("/ask", s.handleAsk)
			r.Post("/reset", s.handleResetSession)
		})
		r.Get("/search", s.handleSearch)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
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

func (s *Server) session(id string) (*rag.Session, bool) {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}
