package server

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/ziadkadry99/themestudio/internal/audit"
	"github.com/ziadkadry99/themestudio/internal/db"
	"github.com/ziadkadry99/themestudio/internal/forks"
	"github.com/ziadkadry99/themestudio/internal/identity"
	"github.com/ziadkadry99/themestudio/internal/metrics"
	"github.com/ziadkadry99/themestudio/internal/rewrite"
	"github.com/ziadkadry99/themestudio/internal/studio"
	"github.com/ziadkadry99/themestudio/internal/themes"
)

// Config holds server configuration.
type Config struct {
	Port     int
	AllowAll bool // allow all CORS origins (dev mode)

	// LogOutput receives the request log. Defaults to stdout.
	LogOutput io.Writer
}

// Server is the theme marketplace and editor server.
type Server struct {
	cfg        Config
	db         *db.DB
	themes     *themes.Store
	users      *identity.Store
	audit      *audit.Store
	resolver   *forks.Resolver
	studio     *studio.Studio
	registry   *prom.Registry
	router     chi.Router
	httpServer *http.Server
}

// New creates a server over database. rewriter may be nil, in which case AI
// edits fail with a message in the editor.
func New(cfg Config, database *db.DB, rewriter rewrite.Rewriter) *Server {
	s := &Server{
		cfg:      cfg,
		db:       database,
		themes:   themes.NewStore(database),
		users:    identity.NewStore(database),
		audit:    audit.NewStore(database),
		registry: prom.NewRegistry(),
	}
	s.resolver = forks.NewResolver(s.themes, s.users)
	s.studio = studio.New(studio.Config{
		Resolver: s.resolver,
		Forks:    s.themes,
		Rewriter: rewriter,
		Metrics:  metrics.NewPrometheusRecorder(s.registry),
		Audit:    s.audit,
	})

	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(newRequestLogger(s.cfg.LogOutput))
	r.Use(middleware.Recoverer)

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler(s.registry))

	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(s.users))

		// Editor sockets are long lived and stay outside the request timeout.
		s.studio.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			identity.RegisterRoutes(r, s.users)
			themes.RegisterRoutes(r, s.themes, s.audit)
			forks.RegisterRoutes(r, s.resolver, s.users, s.themes, s.audit)
			r.Group(func(r chi.Router) {
				r.Use(identity.RequireAdmin)
				audit.RegisterRoutes(r, s.audit)
			})
		})
	})

	return r
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() chi.Router { return s.router }

// Database returns the database connection.
func (s *Server) Database() *db.DB { return s.db }

// Studio returns the editor session registry.
func (s *Server) Studio() *studio.Studio { return s.studio }

// ServerConfig returns the server configuration.
func (s *Server) ServerConfig() Config { return s.cfg }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("themestudio server listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting requests and closes open editor sessions, which
// finishes their pending fork writes.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.studio.Close()
	return err
}
