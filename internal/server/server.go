// Package server wires handlers, middleware, and routes into the HTTP
// server, and owns its lifecycle.
//
// This is the composition root: every dependency is assembled here, in
// one place, and each layer receives only what it needs — services get
// the repository interface, handlers get services, nothing reaches around
// the layer below it. main.go supplies the two external collaborators
// (the identity verifier and the agent) so tests can substitute doubles.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/sakif/stock-advisor/internal/agent"
	"github.com/sakif/stock-advisor/internal/auth"
	"github.com/sakif/stock-advisor/internal/config"
	"github.com/sakif/stock-advisor/internal/handler"
	"github.com/sakif/stock-advisor/internal/middleware"
	"github.com/sakif/stock-advisor/internal/quota"
	sqliteRepo "github.com/sakif/stock-advisor/internal/repository/sqlite"
	"github.com/sakif/stock-advisor/internal/service"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// Server is the HTTP server and the dependencies it owns. The database
// connection is closed during graceful shutdown.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency graph:
//
//	sqlite.DB → quota.Manager → AuthService / ChatService → handlers → routes
//
// verifier and ag are injected by the caller: main.go passes the real
// Google verifier and the configured agent, tests pass doubles.
func New(cfg config.Config, logger *slog.Logger, verifier service.IdentityVerifier, ag agent.Agent) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(verifier, ag); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures middleware and endpoints.
//
// ROUTE STRUCTURE:
//
//	GET  /                      → API index
//	GET  /health                → liveness
//	POST /auth/google           → login with a Google ID token   [rate limited]
//	GET  /auth/google/login     → server-side OAuth redirect     [rate limited]
//	GET  /auth/google/callback  → server-side OAuth completion   [rate limited]
//	GET  /auth/profile          → profile + usage                [session]
//	POST /chat                  → agent query                    [rate limited, session]
//
// The per-IP limiters guard only the sensitive endpoints and are created
// per group, so a burst of logins doesn't eat into the chat window. They
// are a denial-of-service throttle, fully independent of the per-user
// daily quota.
func (s *Server) setupRoutes(verifier service.IdentityVerifier, ag agent.Agent) error {
	// Global middleware, in order: request ID, real client IP (the rate
	// limiter keys on it), panic recovery, request logging, CORS.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	// The server-side OAuth flow is optional; without a client secret the
	// POST /auth/google path is the only login entry.
	var google *auth.GoogleProvider
	if s.config.GoogleClientSecret != "" && s.config.GoogleCallbackURL != "" {
		google = auth.NewGoogleProvider(
			s.config.GoogleClientID,
			s.config.GoogleClientSecret,
			s.config.GoogleCallbackURL,
		)
	}

	quotas := quota.New(s.db, s.config.DailyQueryLimit, s.logger)
	authService := service.NewAuthService(verifier, s.db, tokens, quotas, s.logger)
	chatService := service.NewChatService(quotas, ag, s.logger)

	authHandler := handler.NewAuthHandler(authService, google, s.logger)
	chatHandler := handler.NewChatHandler(chatService, s.logger)
	systemHandler := handler.NewSystemHandler(Version)

	requireAuth := auth.RequireAuth(tokens)
	rateLimit := func() func(http.Handler) http.Handler {
		return httprate.Limit(
			s.config.RateLimitPerMinute,
			time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(handler.RateLimitExceeded),
		)
	}

	s.router.Get("/", systemHandler.HandleRoot)
	s.router.Get("/health", systemHandler.HandleHealth)

	s.router.Group(func(r chi.Router) {
		r.Use(rateLimit())
		r.Post("/auth/google", authHandler.HandleGoogleAuth)
		r.Get("/auth/google/login", authHandler.HandleGoogleLogin)
		r.Get("/auth/google/callback", authHandler.HandleGoogleCallback)
	})

	s.router.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/auth/profile", authHandler.HandleProfile)
	})

	s.router.Group(func(r chi.Router) {
		r.Use(rateLimit())
		r.Use(requireAuth)
		r.Post("/chat", chatHandler.HandleChat)
	})

	return nil
}

// Handler exposes the router for tests driving the server with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the server's resources without serving. Start does this
// itself; Close is for tests and callers that never reach Start.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests for up
// to 30 seconds, close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // agent calls can be slow
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
			slog.Int("dailyQueryLimit", s.config.DailyQueryLimit),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
