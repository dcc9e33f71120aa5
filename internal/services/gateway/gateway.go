// Package gateway exposes the platform over HTTP. It translates requests
// into service calls, enforces authentication from bearer tokens, and
// renders responses and localized errors as JSON.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/meridianpress/meridian/internal/platform/timeouts"
	adsapp "github.com/meridianpress/meridian/internal/services/ads/app"
	"github.com/meridianpress/meridian/internal/services/admin"
	commentsapp "github.com/meridianpress/meridian/internal/services/comments/app"
	contentapp "github.com/meridianpress/meridian/internal/services/content/app"
	subsapp "github.com/meridianpress/meridian/internal/services/subscription/app"
	taxonomyapp "github.com/meridianpress/meridian/internal/services/taxonomy/app"
	userapp "github.com/meridianpress/meridian/internal/services/userhub/app"
	"github.com/meridianpress/meridian/internal/services/userhub/token"
)

// Services bundles the application services the gateway serves.
type Services struct {
	Users         *userapp.Service
	Content       *contentapp.Service
	Taxonomy      *taxonomyapp.Service
	Comments      *commentsapp.Service
	Subscriptions *subsapp.Service
	Ads           *adsapp.Service
	Admin         *admin.Service
}

// Server wraps the chi router and the application services.
type Server struct {
	router      *chi.Mux
	services    Services
	tokens      token.Config
	logger      *slog.Logger
	addr        string
	corsOrigins []string
}

// Option configures the gateway.
type Option func(*Server)

// WithCORSOrigins restricts cross-origin requests to the given origins.
// Without it every origin is allowed.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.corsOrigins = origins
		}
	}
}

// New creates and configures the HTTP gateway.
func New(addr string, services Services, tokens token.Config, logger *slog.Logger, opts ...Option) *Server {
	srv := &Server{
		router:      chi.NewRouter(),
		services:    services,
		tokens:      tokens,
		logger:      logger,
		addr:        addr,
		corsOrigins: []string{"*"},
	}
	for _, opt := range opts {
		opt(srv)
	}

	srv.router.Use(middleware.RequestID)
	srv.router.Use(middleware.Recoverer)
	srv.router.Use(srv.loggingMiddleware)
	srv.router.Use(tracingMiddleware)
	srv.router.Use(metricsMiddleware)
	srv.router.Use(srv.localeMiddleware)
	srv.router.Use(srv.authMiddleware)
	srv.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   srv.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	srv.routes()

	return srv
}

func (s *Server) routes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", metricsHandler())

	s.router.Route("/v1/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/refresh", s.handleRefresh)
	})

	s.router.Get("/v1/me", s.handleGetProfile)
	s.router.Patch("/v1/me", s.handleUpdateProfile)

	s.router.Route("/v1/users", func(r chi.Router) {
		r.Get("/", s.handleListUsers)
		r.Put("/{id}/role", s.handleChangeRole)
	})

	s.router.Route("/v1/articles", func(r chi.Router) {
		r.Post("/", s.handleCreateDraft)
		r.Get("/", s.handleListArticles)
		r.Get("/{id}", s.handleGetArticle)
		r.Put("/{id}", s.handleUpdateDraft)
		r.Delete("/{id}", s.handleDeleteArticle)
		r.Post("/{id}/submit", s.handleSubmitArticle)
		r.Post("/{id}/publish", s.handlePublishArticle)
		r.Post("/{id}/reject", s.handleRejectArticle)
		r.Post("/{id}/revise", s.handleReviseArticle)
		r.Post("/{id}/archive", s.handleArchiveArticle)
		r.Get("/{id}/translations", s.handleTranslations)
		r.Get("/{id}/comments", s.handleListThreads)
		r.Post("/{id}/comments", s.handlePostComment)
	})

	s.router.Get("/v1/read/{language}/{slug}", s.handleReadArticle)
	s.router.Get("/v1/search", s.handleSearch)

	s.router.Route("/v1/categories", func(r chi.Router) {
		r.Get("/", s.handleCategoryTree)
		r.Post("/", s.handleCreateCategory)
		r.Get("/{id}", s.handleGetCategory)
		r.Put("/{id}", s.handleUpdateCategory)
		r.Delete("/{id}", s.handleDeleteCategory)
	})

	s.router.Route("/v1/tags", func(r chi.Router) {
		r.Get("/", s.handleListTags)
		r.Post("/", s.handleEnsureTag)
		r.Delete("/{id}", s.handleDeleteTag)
	})

	s.router.Route("/v1/comments", func(r chi.Router) {
		r.Get("/queue", s.handleCommentQueue)
		r.Put("/{id}/status", s.handleModerateComment)
	})

	s.router.Get("/v1/plans", s.handlePlans)
	s.router.Route("/v1/subscription", func(r chi.Router) {
		r.Get("/", s.handleCurrentSubscription)
		r.Post("/", s.handleSubscribe)
		r.Delete("/", s.handleCancelSubscription)
		r.Get("/payments", s.handleListPayments)
	})
	s.router.Post("/v1/payments/{id}/refund", s.handleRefundPayment)

	s.router.Route("/v1/ads", func(r chi.Router) {
		r.Get("/serve", s.handleServeAd)
		r.Get("/", s.handleListAds)
		r.Post("/", s.handleCreateAd)
		r.Put("/{id}", s.handleUpdateAd)
		r.Delete("/{id}", s.handleDeleteAd)
	})

	s.router.Get("/v1/admin/dashboard", s.handleDashboard)
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// Run starts the HTTP server and blocks until a shutdown signal is
// received or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: timeouts.ReadHeader,
		WriteTimeout:      timeouts.Write,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("gateway listening", "addr", s.addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down", "reason", "context canceled")
	case sig := <-quit:
		s.logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		return fmt.Errorf("gateway: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("gateway shutdown: %w", err)
	}

	s.logger.Info("gateway stopped")
	return nil
}
