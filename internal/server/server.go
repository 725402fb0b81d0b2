// Package server provides the HTTP API for Attesta.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/caredocs/attesta/internal/config"
	"github.com/caredocs/attesta/internal/extract"
	"github.com/caredocs/attesta/internal/library"
	"github.com/caredocs/attesta/internal/pipeline"
	"github.com/caredocs/attesta/internal/reference"
	"github.com/caredocs/attesta/internal/refine"
	"github.com/caredocs/attesta/internal/storage"
)

// Server is the HTTP server for the Attesta API.
type Server struct {
	store     storage.Storage
	blobs     *storage.BlobStore
	runner    *pipeline.Runner
	refs      *reference.Loader
	refiner   *refine.Manager
	libIndex  *library.Index
	ingester  *library.Ingester
	watcher   *library.Watcher
	extractor *extract.Service

	cfg        *config.Config
	configPath string
	cfgMu      sync.Mutex

	logger *zap.Logger
	server *http.Server
}

// Options carries the server's dependencies. Watcher may be nil when no
// library directories are configured.
type Options struct {
	Store      storage.Storage
	Blobs      *storage.BlobStore
	Runner     *pipeline.Runner
	Refs       *reference.Loader
	Refiner    *refine.Manager
	LibIndex   *library.Index
	Ingester   *library.Ingester
	Watcher    *library.Watcher
	Extractor  *extract.Service
	Config     *config.Config
	ConfigPath string
	Logger     *zap.Logger
}

// NewServer creates a server with the given dependencies.
func NewServer(opts Options) *Server {
	return &Server{
		store:      opts.Store,
		blobs:      opts.Blobs,
		runner:     opts.Runner,
		refs:       opts.Refs,
		refiner:    opts.Refiner,
		libIndex:   opts.LibIndex,
		ingester:   opts.Ingester,
		watcher:    opts.Watcher,
		extractor:  opts.Extractor,
		cfg:        opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/status", s.handleStatus)

	r.Route("/api/v1/documents", func(r chi.Router) {
		r.Post("/generate", s.handleGenerate)
		r.Get("/", s.handleListDocuments)
		r.Get("/{id}", s.handleGetDocument)
		r.Get("/{id}/file", s.handleGetDocumentFile)
		r.Delete("/{id}", s.handleDeleteDocument)
		r.Get("/{id}/versions", s.handleListVersions)
		r.Post("/{id}/refine", s.handleRefineStart)
		r.Post("/{id}/refine/feedback", s.handleRefineFeedback)
		r.Post("/{id}/refine/regenerate", s.handleRefineRegenerate)
		r.Delete("/{id}/refine", s.handleRefineCancel)
	})

	r.Route("/api/v1/ncs", func(r chi.Router) {
		r.Post("/", s.handleCreateNC)
		r.Get("/", s.handleListNCs)
		r.Get("/{id}", s.handleGetNC)
		r.Post("/{id}/advance", s.handleAdvanceNC)
		r.Post("/{id}/evidence", s.handleGenerateEvidence)
		r.Delete("/{id}/evidence", s.handleClearEvidence)
	})

	r.Route("/api/v1/library", func(r chi.Router) {
		r.Post("/search", s.handleLibrarySearch)
		r.Post("/ingest", s.handleLibraryIngest)
		r.Get("/watch", s.handleWatchList)
		r.Post("/watch", s.handleWatchAdd)
		r.Delete("/watch", s.handleWatchRemove)
	})

	r.Route("/api/v1/reference", func(r chi.Router) {
		r.Get("/personnel", s.handleListPersonnel)
		r.Post("/personnel", s.handleAddPerson)
		r.Delete("/personnel/{id}", s.handleDeletePerson)
		r.Get("/equipment", s.handleListEquipment)
		r.Post("/equipment", s.handleAddEquipment)
		r.Delete("/equipment/{id}", s.handleDeleteEquipment)
	})

	if s.blobs != nil {
		r.Handle("/files/*", http.StripPrefix("/files/", http.FileServer(http.Dir(s.blobs.Root()))))
	}

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
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
