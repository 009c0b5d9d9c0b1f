// Package web provides the HTTP server and handlers for the employee directory.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/staffdir/internal/config"
	"github.com/JonMunkholm/staffdir/internal/core"
	appmw "github.com/JonMunkholm/staffdir/internal/web/middleware"
)

// Server is the HTTP server for the employee directory.
type Server struct {
	store     *core.Store
	cfg       *config.Config
	dates     core.DateFormatter
	validator core.FormValidator
	limiter   *core.ImportLimiter
	rate      *rateLimiter

	router *chi.Mux
	server *http.Server

	// viewMu guards view, the default table view shared by page renders
	// and requests that carry no sort parameters.
	viewMu sync.Mutex
	view   core.ViewState
}

// NewServer creates a Server around a loaded store.
func NewServer(store *core.Store, cfg *config.Config) *Server {
	s := &Server{
		store:     store,
		cfg:       cfg,
		validator: core.FormValidator{EnforceDateOrder: cfg.Form.EnforceDateOrder},
		limiter:   core.NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime),
		router:    chi.NewRouter(),
		view:      core.DefaultViewState(cfg.Table.RowsPerPage),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(appmw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(appmw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		s.rate = newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(s.rate.middleware(s))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/data/employees.json", s.handleSeedData)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/employees", s.handleListEmployees)
		r.Post("/employees", s.handleCreateEmployee)
		r.Get("/employees/{id}", s.handleGetEmployee)
		r.Put("/employees/{id}", s.handleUpdateEmployee)
		r.Delete("/employees/{id}", s.handleDeleteEmployee)

		r.Post("/sort/{key}", s.handleToggleSort)

		r.Get("/export.csv", s.handleExportCSV)
		r.Get("/export.xlsx", s.handleExportXLSX)

		r.Post("/import", s.handleImport)
		r.Post("/import/preview", s.handleImportPreview)

		r.Post("/reload", s.handleReload)
		r.Post("/reset", s.handleReset)
	})
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.server = s.httpServer()
	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Serve accepts connections on l until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	s.server = s.httpServer()
	slog.Info("starting server", "addr", l.Addr().String())
	return s.server.Serve(l)
}

func (s *Server) httpServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
}

// Shutdown waits for running imports, then stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if active := s.limiter.Active(); active > 0 {
		slog.Info("waiting for imports to complete", "active", active)
		if err := s.limiter.WaitForDrain(ctx); err != nil {
			slog.Warn("imports did not complete in time", "error", err)
		}
	}
	s.Close()

	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	if s.rate != nil {
		s.rate.stop()
	}
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// currentView returns a copy of the shared default view.
func (s *Server) currentView() core.ViewState {
	s.viewMu.Lock()
	defer s.viewMu.Unlock()
	return s.view
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// rateLimiter is a fixed-window limiter keyed by client IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	window   time.Duration

	done     chan struct{}
	stopOnce sync.Once
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		done:     make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// cleanup drops visitors idle for two windows until stop is called.
func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if time.Since(v.lastReset) > rl.window*2 {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// allow consumes a token for ip if one is left in the current window.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok || time.Since(v.lastReset) > rl.window {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: time.Now()}
		return true
	}
	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

// errRateLimited is reported to clients through the error mapper.
var errRateLimited = errors.New("rate limit exceeded")

func (rl *rateLimiter) middleware(s *Server) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr
			if host, _, err := net.SplitHostPort(ip); err == nil {
				ip = host
			}
			if !rl.allow(ip) {
				w.Header().Set("Retry-After", "60")
				s.respondError(w, r, errRateLimited, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
