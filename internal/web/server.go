// Package web is the HTTP boundary of the lead service: thin JSON
// handlers over the import engine, the rollback engine and the
// consultation orchestrator.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luanlucolli2/catarinense-leads-sub000/internal/config"
	"github.com/luanlucolli2/catarinense-leads-sub000/internal/consult"
	"github.com/luanlucolli2/catarinense-leads-sub000/internal/importer"
	"github.com/luanlucolli2/catarinense-leads-sub000/internal/store"
	"github.com/luanlucolli2/catarinense-leads-sub000/internal/web/middleware"
)

// Server is the HTTP server for the lead import and consultation API.
type Server struct {
	pool         *pgxpool.Pool
	queries      *store.Queries
	engine       *importer.Engine
	orchestrator *consult.Orchestrator
	cfg          config.ServerConfig
	maxFileSize  int64
	router       *chi.Mux
	server       *http.Server
}

// NewServer wires the HTTP layer to its collaborators.
func NewServer(pool *pgxpool.Pool, engine *importer.Engine, orchestrator *consult.Orchestrator, cfg config.Config) *Server {
	s := &Server{
		pool:         pool,
		queries:      store.New(pool),
		engine:       engine,
		orchestrator: orchestrator,
		cfg:          cfg.Server,
		maxFileSize:  cfg.Import.MaxFileSize,
		router:       chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Metrics)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(chimw.Timeout(60 * time.Second))
	s.router.Use(securityHeaders)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/imports", s.handleImportSubmit)
		r.Get("/imports/{id}", s.handleImportStatus)
		r.Get("/imports/{id}/errors", s.handleImportErrors)
		r.Post("/imports/{id}/rollback", s.handleImportRollback)

		r.Post("/consultations", s.handleConsultationSubmit)
		r.Get("/consultations/{id}", s.handleConsultationStatus)
		r.Post("/consultations/{id}/cancel", s.handleConsultationCancel)
		r.Get("/consultations/{id}/report", s.handleConsultationReport)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.pool.Ping(r.Context()); err != nil {
		respondError(w, r, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// securityHeaders adds baseline security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
