// Package api exposes the journal engine over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"discipline-journal-go/internal/auth"
	"discipline-journal-go/internal/config"
	"discipline-journal-go/internal/journal"
	"discipline-journal-go/internal/onboarding"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// Server provides the HTTP interface for the journal engine.
type Server struct {
	router     *chi.Mux
	server     *http.Server
	engine     *journal.Engine
	onboarding *onboarding.Manager
	verifier   *auth.Verifier
	logger     *zap.Logger
}

// NewServer creates a new Server.
func NewServer(cfg *config.Server, engine *journal.Engine, sessions *onboarding.Manager, verifier *auth.Verifier, logger *zap.Logger) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		engine:     engine,
		onboarding: sessions,
		verifier:   verifier,
		logger:     logger.Named("api-server"),
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(requestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.healthHandler)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.verifier.Middleware(s.logger))

		r.Get("/progress", s.progressHandler)
		r.Post("/checkins", s.checkInHandler)

		r.Route("/trades", func(r chi.Router) {
			r.Get("/", s.listTradesHandler)
			r.Post("/", s.saveTradeHandler)
			r.Post("/{id}/close", s.closeTradeHandler)
			r.Get("/{id}/violations", s.violationsHandler)
		})

		r.Get("/rules", s.listRulesHandler)
		r.Post("/rules", s.addRuleHandler)

		r.Get("/statistics", s.statisticsHandler)
		r.Get("/achievements", s.achievementsHandler)
		r.Get("/notifications", s.notificationsHandler)

		r.Get("/goal", s.getGoalHandler)
		r.Post("/goal", s.setGoalHandler)

		r.Route("/onboarding", func(r chi.Router) {
			r.Get("/templates", s.ruleTemplatesHandler)
			r.Post("/", s.startOnboardingHandler)
			r.Get("/{id}", s.getOnboardingHandler)
			r.Put("/{id}/rules", s.onboardingRulesHandler)
			r.Put("/{id}/goal", s.onboardingGoalHandler)
			r.Post("/{id}/complete", s.completeOnboardingHandler)
			r.Delete("/{id}", s.cancelOnboardingHandler)
		})
	})
}

// Start runs the HTTP server in a new goroutine.
func (s *Server) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

// requestID tags every request with an id, reusing the caller's if present.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}
