// Package server provides the HTTP server and routing for tickerdash.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/tickerdash/internal/database"
	"github.com/aristath/tickerdash/internal/events"
	"github.com/aristath/tickerdash/internal/modules/charts"
	chartshandlers "github.com/aristath/tickerdash/internal/modules/charts/handlers"
	marketdatahandlers "github.com/aristath/tickerdash/internal/modules/marketdata/handlers"
	riskhandlers "github.com/aristath/tickerdash/internal/modules/risk/handlers"
	"github.com/aristath/tickerdash/internal/scheduler"
	"github.com/aristath/tickerdash/internal/session"
	sessionhandlers "github.com/aristath/tickerdash/internal/session/handlers"
)

const requestTimeout = 60 * time.Second

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Port      int
	DevMode   bool
	DataDir   string
	LogFile   string
	Databases map[string]*database.DB

	MarketData MarketData
	Risk       riskhandlers.MetricsSource
	Charts     *charts.Service
	Sessions   *session.Manager
	Hub        *session.Hub
	Bus        *events.Bus
	Scheduler  *scheduler.Scheduler
}

// MarketData is the aggregation service behind /api/data and /api/ping.
type MarketData interface {
	marketdatahandlers.Fetcher
	Pinger
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	cfg    Config

	systemHandlers *SystemHandlers
	logHandlers    *LogHandlers
	eventsStream   *EventsStreamHandler
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		cfg:    cfg,
		systemHandlers: NewSystemHandlers(SystemDeps{
			Pinger:    cfg.MarketData,
			Sessions:  cfg.Sessions,
			Scheduler: cfg.Scheduler,
			Databases: cfg.Databases,
			DataDir:   cfg.DataDir,
		}, cfg.Log),
		logHandlers: NewLogHandlers(cfg.LogFile, cfg.Log),
	}
	if cfg.Bus != nil && cfg.Sessions != nil {
		s.eventsStream = NewEventsStreamHandler(cfg.Bus, cfg.Sessions, cfg.Log)
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		// No WriteTimeout: websocket and SSE streams stay open. Plain requests
		// are bounded by the timeout middleware.
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout, except for long-lived streams
	s.router.Use(unlessStream(middleware.Timeout(requestTimeout)))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(unlessStream(middleware.Compress(5)))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/ping", s.systemHandlers.HandlePing)

		if s.cfg.MarketData != nil {
			marketdatahandlers.NewHandler(s.cfg.MarketData, s.cfg.Log).RegisterRoutes(r)
		}
		if s.cfg.Risk != nil {
			riskhandlers.NewHandler(s.cfg.Risk, s.cfg.Log).RegisterRoutes(r)
		}
		if s.cfg.Charts != nil {
			chartshandlers.NewHandler(s.cfg.Charts, s.cfg.Log).RegisterRoutes(r)
		}

		if s.cfg.Sessions != nil {
			h := sessionhandlers.NewHandler(s.cfg.Sessions, s.cfg.Hub, s.cfg.Log)
			if s.eventsStream != nil {
				h.SetEventStream(s.eventsStream)
			}
			h.RegisterRoutes(r)
		}

		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.systemHandlers.HandleSystemStatus)
			r.Get("/databases", s.systemHandlers.HandleDatabaseStats)
			r.Get("/disk", s.systemHandlers.HandleDiskUsage)
			r.Post("/jobs/{name}", s.systemHandlers.HandleRunJob)
			r.Get("/logs", s.logHandlers.HandleGetLogs)
			r.Get("/logs/errors", s.logHandlers.HandleGetErrors)
		})
	})
}

// unlessStream applies mw to every request except websocket upgrades and
// event streams.
func unlessStream(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		wrapped := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isStream(r) {
				next.ServeHTTP(w, r)
				return
			}
			wrapped.ServeHTTP(w, r)
		})
	}
}

func isStream(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket") ||
		strings.HasSuffix(r.URL.Path, "/events") ||
		strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
