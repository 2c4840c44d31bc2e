// Package server sets up the HTTP server, router, and all route definitions.
//
// Route layout:
//
//	POST   /api/accounts                 register
//	POST   /api/sessions                 log in (sets the session cookie)
//	DELETE /api/sessions                 log out
//	GET    /api/me                       current account        (auth)
//	PUT    /api/me/handles               update own handles     (auth)
//	GET    /api/competitors              list                   (auth)
//	PUT    /api/competitors              replace the whole list (auth)
//	POST   /api/competitors              add one entry          (auth)
//	DELETE /api/competitors/{id}         remove one entry       (auth)
//	POST   /api/competitors/{id}/verify  verify one entry       (auth)
//	POST   /api/summaries                run a summary cycle    (auth)
//	GET    /healthz                      database ping
//	GET    /metrics                      Prometheus metrics
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/socialpulse/internal/app"
	"github.com/sakif/socialpulse/internal/auth"
	"github.com/sakif/socialpulse/internal/handler"
	"github.com/sakif/socialpulse/internal/middleware"
	"github.com/sakif/socialpulse/internal/pipeline"
)

// summaryTimeout bounds POST /api/summaries, which calls every platform and
// the model in sequence.
const summaryTimeout = 5 * time.Minute

// shutdownTimeout is how long in-flight requests get after SIGINT/SIGTERM.
const shutdownTimeout = 30 * time.Second

// Server represents the HTTP server and all its dependencies.
type Server struct {
	router    *chi.Mux
	app       *app.App
	scheduler *pipeline.Scheduler
	logger    *slog.Logger
}

// New creates a Server around a wired App. The App's database is closed
// when Start returns.
func New(a *app.App, logger *slog.Logger) (*Server, error) {
	scheduler, err := a.Scheduler()
	if err != nil {
		return nil, fmt.Errorf("creating sweep scheduler: %w", err)
	}

	s := &Server{
		router:    chi.NewRouter(),
		app:       a,
		scheduler: scheduler,
		logger:    logger,
	}
	s.setupRoutes()
	return s, nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures middleware and handlers. Middleware runs in the
// order it is added.
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	cfg := s.app.Config
	accountHandler := handler.NewAccountHandler(s.app.Accounts, s.app.Tokens.TTL(), cfg.Server.SecureCookies, s.logger)
	competitorHandler := handler.NewCompetitorHandler(s.app.Competitors, s.logger)
	summaryHandler := handler.NewSummaryHandler(s.app.Orchestrator, s.logger)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/accounts", accountHandler.HandleRegister)
		r.Post("/sessions", accountHandler.HandleLogin)
		r.Delete("/sessions", accountHandler.HandleLogout)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(s.app.Tokens))

			r.Get("/me", accountHandler.HandleMe)
			r.Put("/me/handles", accountHandler.HandleUpdateHandles)

			r.Get("/competitors", competitorHandler.HandleList)
			r.Put("/competitors", competitorHandler.HandleSave)
			r.Post("/competitors", competitorHandler.HandleAdd)
			r.Delete("/competitors/{id}", competitorHandler.HandleDelete)
			r.Post("/competitors/{id}/verify", competitorHandler.HandleVerify)

			r.With(chimiddleware.Timeout(summaryTimeout)).
				Post("/summaries", summaryHandler.HandleRun)
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.app.Ping(r.Context()); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	w.Write([]byte(`{"status":"ok"}`))
}

// Start serves HTTP and runs the sweep scheduler until SIGINT or SIGTERM,
// then shuts both down gracefully and closes the database.
func (s *Server) Start() error {
	defer s.app.Close()

	port := s.app.Config.Server.Port
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// a summary cycle can take minutes
		WriteTimeout: summaryTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", port)),
			slog.String("database", s.app.Config.Server.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	s.scheduler.Start()

	select {
	case err := <-serverErrors:
		s.scheduler.Stop(context.Background())
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.scheduler.Stop(ctx)
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
