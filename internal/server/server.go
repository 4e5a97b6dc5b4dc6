// Package server provides the HTTP redaction API: handlers, auth, and rate
// limiting around the redaction service.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	veilotel "github.com/veil-io/veil/internal/otel"
	"github.com/veil-io/veil/internal/service"
)

const defaultTimeout = 30 * time.Second

// Server holds the dependencies for the HTTP API.
type Server struct {
	router    *chi.Mux
	svc       *service.Service
	apiKeys   []string
	limiter   *RateLimiter
	startTime time.Time
}

// Option configures the Server.
type Option func(*Server)

// WithAPIKeys enables API-key auth on the /v1 routes. An empty list leaves
// the API open, which is the single-tenant development default.
func WithAPIKeys(keys []string) Option {
	return func(s *Server) { s.apiKeys = keys }
}

// WithRateLimiter enables per-caller rate limiting on the /v1 routes.
func WithRateLimiter(rl *RateLimiter) Option {
	return func(s *Server) { s.limiter = rl }
}

// NewServer builds a Server around the redaction service.
func NewServer(svc *service.Service, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		svc:       svc,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the configured http.Handler.
func (s *Server) Routes() http.Handler {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(veilotel.Middleware())

	// Unauthenticated
	r.Get("/health", s.handleHealth)
	r.Get("/v1/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if len(s.apiKeys) > 0 {
			r.Use(AuthMiddleware(s.apiKeys))
		}
		if s.limiter != nil {
			r.Use(RateLimitMiddleware(s.limiter))
		}
		r.Use(middleware.Timeout(defaultTimeout))

		r.Post("/v1/redact", s.handleRedact)
		r.Post("/v1/redact/batch", s.handleRedactBatch)
	})

	return r
}
