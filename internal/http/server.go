package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	applog "finanzas/internal/log"
	"finanzas/internal/services"
)

type Options struct {
	Addr string
	// JWTSecret turns on bearer-token authentication when set.
	JWTSecret          string
	RateLimitPerMinute int
	Logger             *applog.Logger
}

type Server struct {
	http.Server
	sessions    *services.Sessions
	jwtSecret   []byte
	rateLimiter *rateLimiter
	metrics     *securityMetrics
	logger      *applog.Logger
	structured  *applog.StructuredLogger
	now         func() time.Time
	started     time.Time

	totalRequests int64
	shutdownOnce  sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(sessions *services.Sessions, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		sessions:    sessions,
		jwtSecret:   []byte(opts.JWTSecret),
		rateLimiter: newRateLimiter(opts.RateLimitPerMinute),
		metrics:     &securityMetrics{},
		logger:      logger,
		structured:  applog.NewStructuredLogger(logger),
		now:         time.Now,
		started:     time.Now(),
	}
	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.withTrace)
	r.Use(s.withSecurityHeaders)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.withRateLimit)
		r.Use(s.withAccount)

		r.Get("/data", s.handleGetData)
		r.Post("/theme/toggle", s.handleToggleTheme)

		r.Get("/fields", s.handleListFields)
		r.Post("/fields", s.handleCreateField)
		r.Post("/fields/validate", s.handleValidateAllocation)
		r.Put("/fields/{id}", s.handleSaveField)
		r.Delete("/fields/{id}", s.handleDeleteField)

		r.Route("/months/{key}", func(r chi.Router) {
			r.Get("/", s.handleOpenMonth)
			r.Patch("/", s.handleUpdateMonth)
			r.Put("/salary", s.handleSetSalary)
			r.Put("/expenses/{subId}", s.handleSetExpense)
			r.Post("/extras", s.handleAddExtra)
			r.Delete("/extras/{fieldId}/{extraId}", s.handleDeleteExtra)
			r.Post("/recurring", s.handleResolveRecurring)
			r.Get("/summary", s.handleSummary)
			r.Get("/export.csv", s.handleExportCSV)
		})

		r.Put("/pin", s.handleSetPIN)
		r.Post("/pin/verify", s.handleVerifyPIN)
		r.Post("/session/close", s.handleCloseSession)
	})

	return r
}

// Shutdown stops the rate limiter and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"status":          "ready",
		"timestamp":       s.now().Format(time.RFC3339),
		"open_sessions":   s.sessions.Len(),
		"active_clients":  s.rateLimiter.activeClients(),
		"total_requests":  atomic.LoadInt64(&s.totalRequests),
		"rate_limit_hits": atomic.LoadInt64(&s.metrics.rateLimitHits),
		"suspicious":      atomic.LoadInt64(&s.metrics.suspiciousRequests),
		"auth_failures":   atomic.LoadInt64(&s.metrics.authFailures),
	}).Write(w)
}
