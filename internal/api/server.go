// Package api exposes the package database and the ingestion pipeline over
// HTTP.
//
// Routes:
//
//	POST /v1/manifests      ingest a manifest document (request body)
//	GET  /v1/specs/{hash}   fetch one spec by content hash
//	GET  /v1/specs?name=    fetch all specs with a package name
//	GET  /v1/compilers      list merged compiler specs
//	GET  /v1/healthz        liveness probe
package api

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pkgdepot/depot/pkg/ingest"
	"github.com/pkgdepot/depot/pkg/store"
)

// Server handles depot HTTP requests.
type Server struct {
	store    store.Store
	ingestor *ingest.Ingestor
	logger   *log.Logger
}

// NewServer creates a server over the given store.
// A nil logger falls back to the default logger.
func NewServer(st store.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		store:    st,
		ingestor: ingest.New(st, logger),
		logger:   logger,
	}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/manifests", s.handleIngest)
		r.Get("/specs/{hash}", s.handleSpecByHash)
		r.Get("/specs", s.handleSpecsByName)
		r.Get("/compilers", s.handleCompilers)
		r.Get("/healthz", s.handleHealth)
	})

	return r
}

// ListenAndServe runs the HTTP server until it fails.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("depot API listening", "addr", addr)
	return srv.ListenAndServe()
}

// logRequests logs each request with method, path, status, and duration.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"elapsed", time.Since(start).Round(time.Microsecond))
	})
}
