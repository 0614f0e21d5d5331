// Package web provides the HTTP server and JSON handlers for the persons API.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/persons/internal/config"
	"github.com/JonMunkholm/persons/internal/core"
	"github.com/JonMunkholm/persons/internal/web/middleware"
)

// Server is the HTTP server for the persons API.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
	limits  []*rateLimiter
}

// NewServer creates a Server with middleware and routes configured.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()

	sc := cfg.Server
	s.server = &http.Server{
		Addr:         sc.Addr(),
		Handler:      s.router,
		ReadTimeout:  sc.ReadTimeout,
		WriteTimeout: sc.WriteTimeout,
		IdleTimeout:  sc.IdleTimeout,
	}
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONStatus(w, http.StatusNotFound, errorResponse{Message: "route not found", Code: "ERR404"})
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSONStatus(w, http.StatusMethodNotAllowed, errorResponse{Message: "method not allowed", Code: "ERR405"})
	})

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api/persons", func(r chi.Router) {
		// Imports are bounded by UPLOAD_TIMEOUT inside the service, so the
		// upload route is kept out of the request timeout group.
		r.Group(func(r chi.Router) {
			r.Use(s.rateLimit(s.cfg.Rate.UploadLimit))
			r.Post("/upload", s.handleUpload)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.rateLimit(s.cfg.Rate.RequestsPerMinute))
			r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
			r.Use(chimw.Compress(5))

			r.Get("/", s.handleListPersons)
			r.Post("/", s.handleCreatePerson)
			r.Get("/{id}", s.handleGetPerson)
			r.Put("/{id}", s.handleUpdatePerson)
			r.Delete("/{id}", s.handleDeletePerson)
		})
	})
}

// rateLimit returns a per-client limiter middleware, or a pass-through when
// rate limiting is disabled.
func (s *Server) rateLimit(perMinute int) func(http.Handler) http.Handler {
	if !s.cfg.Rate.Enabled || perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	rl := newRateLimiter(perMinute, time.Minute)
	s.limits = append(s.limits, rl)
	return rl.middleware
}

// Start begins listening for HTTP requests. It returns http.ErrServerClosed
// after Shutdown, including when Shutdown ran before Start.
func (s *Server) Start() error {
	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limits {
		rl.stop()
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
