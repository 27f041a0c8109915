package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/642studio/bachejoa/internal/datastore"
	"github.com/642studio/bachejoa/internal/handler"
	"github.com/642studio/bachejoa/internal/objectstore"
	"github.com/642studio/bachejoa/internal/server/middleware"
	"github.com/642studio/bachejoa/internal/service"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	PublicURL       string // advertised in the OpenAPI document
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	CORSOrigins     []string
	MaxBodySize     int64 // bytes
	MaxUploadSize   int64 // bytes announced by upload requests
	GlobalRateLimit int   // requests per minute per IP, 0 disables
	SecureCookies   bool
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    60 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		RequestTimeout:  30 * time.Second,
		CORSOrigins:     []string{"http://localhost:3000"},
		MaxBodySize:     2 * 1024 * 1024, // 2MB
		MaxUploadSize:   handler.MaxPhotoBytes,
		GlobalRateLimit: 300,
		SecureCookies:   true,
	}
}

// Server is the top-level HTTP server for Bachejoa. It owns the Chi router,
// the datastore and the services built on it.
type Server struct {
	cfg        Config
	router     chi.Router
	store      *datastore.SQLStore
	signer     objectstore.Signer
	sessions   *service.SessionManager
	limiter    *service.RateLimiter
	users      *service.UserService
	reports    *service.ReportService
	contact    *service.ContactService
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. signer may be nil, in which case uploads answer 503.
func New(cfg Config, store *datastore.SQLStore, signer objectstore.Signer, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		store:    store,
		signer:   signer,
		sessions: service.NewSessionManager(store, logger, cfg.SecureCookies),
		limiter:  service.NewRateLimiter(store, logger),
		users:    service.NewUserService(store, service.NewPasswordHasher(), logger),
		reports:  service.NewReportService(store, service.NewAnonymousQuota(store), logger),
		contact:  service.NewContactService(store),
		logger:   logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))
	if s.cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(s.cfg.RequestTimeout))
	}

	// --- Health checks ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Get("/openapi.json", handler.NewOpenAPIHandler(s.cfg.PublicURL).ServeSpec)

	// --- API routes ---
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.GlobalRateLimit(s.cfg.GlobalRateLimit))
		r.Use(limitBody(s.cfg.MaxBodySize))
		r.Use(middleware.Identify(s.sessions))

		limit := func(rule service.Rule) func(http.Handler) http.Handler {
			return middleware.RateLimit(s.limiter, rule)
		}
		signedIn := middleware.RequireUser(http.StatusUnauthorized, "No autorizado.")

		auth := handler.NewAuthHandler(s.users, s.sessions, s.reports, s.logger)
		r.Route("/auth", func(r chi.Router) {
			r.With(limit(service.RuleRegister)).Post("/register", auth.Register)
			r.With(limit(service.RuleLogin)).Post("/login", auth.Login)
			r.Post("/logout", auth.Logout)
			r.Get("/me", auth.Me)
			r.With(limit(service.RuleProfileUpdate), signedIn).Patch("/me", auth.UpdateMe)
		})
		r.With(limit(service.RuleAccountRead), signedIn).Get("/account", auth.Account)

		reports := handler.NewReportHandler(s.reports, s.logger)
		r.Route("/reports", func(r chi.Router) {
			r.Get("/", reports.List)
			r.With(limit(service.RuleReportCreate)).Post("/", reports.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.With(limit(service.RuleReportDelete),
					middleware.RequireAdmin("Solo el admin puede eliminar reportes.")).
					Delete("/", reports.Delete)
				r.With(limit(service.RuleReportStatus),
					middleware.RequireAdmin("Solo el admin puede cambiar etapas.")).
					Post("/status", reports.SetStatus)
				r.With(limit(service.RuleReportType),
					middleware.RequireAdmin("Solo el admin puede cambiar el tipo de reporte.")).
					Post("/type", reports.SetType)
				r.With(limit(service.RuleReportRepair),
					middleware.RequireAdmin("Solo el admin puede cambiar etapas.")).
					Post("/repair", reports.SetRepaired)
				r.With(limit(service.RuleReportPhoto),
					middleware.RequireUser(http.StatusForbidden, "Necesitas una cuenta para agregar foto.")).
					Post("/photo", reports.SetPhoto)
				r.With(limit(service.RuleReportRating)).Post("/rating", reports.Rate)
				r.With(limit(service.RuleReportAngry)).Post("/angry", reports.Angry)
			})
		})

		uploads := handler.NewUploadHandler(s.signer, s.cfg.MaxUploadSize, s.logger)
		r.With(limit(service.RuleUploadCreate)).Post("/uploads", uploads.Create)

		contact := handler.NewContactHandler(s.contact, s.logger)
		r.With(limit(service.RuleContactCreate)).Post("/contact", contact.Create)
	})

	s.router = r
}

// limitBody caps request bodies at n bytes. n <= 0 disables the cap.
func limitBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if n <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, n)
			next.ServeHTTP(w, r)
		})
	}
}

// handleHealthz is a liveness probe.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. Returns 200 when the datastore answers
// a ping, or 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status, httpStatus := "ok", http.StatusOK
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Warn("readiness check failed", "driver", s.store.Driver(), "error", err)
		status, httpStatus = "unavailable", http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests before closing the datastore.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr, "driver", s.store.Driver())
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if err := s.store.Close(); err != nil {
		s.logger.Warn("close datastore", "error", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
