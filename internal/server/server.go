package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ducminhle1904/fusion-trading-bot/internal/bot"
	"github.com/ducminhle1904/fusion-trading-bot/internal/monitoring"
)

// Options holds server configuration.
type Options struct {
	Port   int
	Bot    *bot.Bot
	Health *monitoring.HealthChecker
	Logger zerolog.Logger
}

// Server exposes the command surface over HTTP: decision submission,
// trade queries and cancellation, the portfolio snapshot, plus the
// health and metrics endpoints.
type Server struct {
	router *chi.Mux
	server *http.Server
	bot    *bot.Bot
	health *monitoring.HealthChecker
	log    zerolog.Logger
}

// New builds the router and the underlying http.Server.
func New(opts Options) *Server {
	s := &Server{
		router: chi.NewRouter(),
		bot:    opts.Bot,
		health: opts.Health,
		log:    opts.Logger.With().Str("component", "server").Logger(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))
}

func (s *Server) setupRoutes() {
	if s.health != nil {
		s.router.Get("/health", s.health.ServeHTTP)
	}
	s.router.Handle("/metrics", monitoring.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/decisions", s.handleSubmitDecision)
		r.Get("/trades", s.handleListTrades)
		r.Get("/trades/{id}", s.handleGetTrade)
		r.Delete("/trades/{id}", s.handleCancelTrade)
		r.Get("/portfolio", s.handlePortfolio)
	})
}

// Router returns the handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start listens until the server is shut down.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("http server starting")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server stopping")
	return s.server.Shutdown(ctx)
}

func (s *Server) handleSubmitDecision(w http.ResponseWriter, r *http.Request) {
	var req bot.DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	resp, err := s.bot.SubmitDecision(r.Context(), req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"trades": s.bot.Trades()})
}

func (s *Server) handleGetTrade(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, ok := s.bot.Trade(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("trade %s not found", id))
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCancelTrade(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	canceled, err := s.bot.CancelTrade(r.Context(), id)
	if err != nil {
		status := http.StatusConflict
		if _, ok := s.bot.Trade(id); !ok {
			status = http.StatusNotFound
		}
		s.writeError(w, status, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"trade_id": id, "canceled": canceled})
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.bot.Portfolio())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Warn().Err(err).Msg("response encoding failed")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
