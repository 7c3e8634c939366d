// ABOUTME: HTTP server exposing the generation pipeline and run history behind
// ABOUTME: a chi router, with HTML pages for browsing runs and a JSON API.
package web

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/2389-research/conjure/pipeline"
	"github.com/2389-research/conjure/runstore"
)

// Orchestrator is the pipeline surface the server needs. *pipeline.Orchestrator
// satisfies it; tests substitute fakes.
type Orchestrator interface {
	Run(ctx context.Context, req pipeline.Request, callerID string) (*runstore.RunRecord, error)
}

// RunReader is the read-only history surface. *runstore.Store satisfies it.
type RunReader interface {
	GetRun(runID string) (*runstore.RunRecord, bool, error)
	ListRunsForCaller(callerID string) ([]runstore.RunRecord, error)
	SearchRuns(query string) ([]runstore.RunRecord, error)
}

// ServerConfig holds the configuration for the web server.
type ServerConfig struct {
	Addr      string // listen address (default: "127.0.0.1:2389")
	CallerID  string // identity attributed to web-initiated runs (default: "super-user")
	ImagesDir string // directory of image artifacts, served under /static/images
	ModelsDir string // directory of model artifacts, served under /static/models
}

// Server serves the generation API and the run history UI.
type Server struct {
	orchestrator Orchestrator
	store        RunReader
	templates    *TemplateEngine
	router       chi.Router
	cfg          ServerConfig
}

// NewServer creates a Server wired to the given orchestrator and run store.
func NewServer(orch Orchestrator, store RunReader, cfg ServerConfig) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:2389"
	}
	if cfg.CallerID == "" {
		cfg.CallerID = "super-user"
	}
	for _, dir := range []string{cfg.ImagesDir, cfg.ModelsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating artifact directory: %w", err)
		}
	}

	tmpl, err := NewTemplateEngine()
	if err != nil {
		return nil, fmt.Errorf("initializing templates: %w", err)
	}

	s := &Server{
		orchestrator: orch,
		store:        store,
		templates:    tmpl,
		cfg:          cfg,
	}
	s.router = s.buildRouter()
	return s, nil
}

// ServeHTTP delegates to the chi router, satisfying http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on the configured address with
// timeouts sized for long-running generation requests.
func (s *Server) ListenAndServe() error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	return srv.ListenAndServe()
}

// buildRouter constructs the chi router with all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Get("/runs/{runID}", s.handleRunDetail)

	r.Route("/api", func(r chi.Router) {
		r.Post("/generations", s.handleGenerate)
		r.Get("/generations", s.handleListRuns)
		r.Get("/generations/{runID}", s.handleGetRun)
		r.Get("/search", s.handleSearch)
	})

	if s.cfg.ImagesDir != "" {
		r.Handle("/static/images/*", http.StripPrefix("/static/images/",
			http.FileServer(http.Dir(s.cfg.ImagesDir))))
	}
	if s.cfg.ModelsDir != "" {
		r.Handle("/static/models/*", http.StripPrefix("/static/models/",
			http.FileServer(http.Dir(s.cfg.ModelsDir))))
	}

	return r
}
