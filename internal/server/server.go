// Package server provides the read-only HTTP API over the filings store.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/edgardiff/internal/database"
	filingshandlers "github.com/aristath/edgardiff/internal/modules/filings/handlers"
	"github.com/aristath/edgardiff/internal/scheduler"
)

// RunStatusProvider reports the most recent pipeline run
type RunStatusProvider interface {
	Name() string
	LastRun() *scheduler.RunStatus
}

// NextRunProvider reports when a scheduled job runs next
type NextRunProvider interface {
	NextRun(name string) (time.Time, bool)
}

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Databases map[string]*database.DB
	Counter   RecordCounter
	Filings   *filingshandlers.Handler
	Runs      RunStatusProvider // optional
	Schedule  NextRunProvider   // optional, set when runs are scheduled
	DataDir   string
	LogDir    string
	Port      int
	DevMode   bool
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	port           int
	filings        *filingshandlers.Handler
	runs           RunStatusProvider
	schedule       NextRunProvider
	databases      map[string]*database.DB
	systemHandlers *SystemHandlers
	logHandlers    *LogHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		port:           cfg.Port,
		filings:        cfg.Filings,
		runs:           cfg.Runs,
		schedule:       cfg.Schedule,
		databases:      cfg.Databases,
		systemHandlers: NewSystemHandlers(cfg.Log, cfg.DataDir, cfg.Databases, cfg.Counter),
		logHandlers:    NewLogHandlers(cfg.Log, cfg.LogDir),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		if s.filings != nil {
			s.filings.RegisterRoutes(r)
		}

		r.Route("/system", func(r chi.Router) {
			r.Get("/", s.systemHandlers.HandleSystemStatus)
			r.Get("/databases", s.systemHandlers.HandleDatabaseStats)
			r.Get("/disk", s.systemHandlers.HandleDiskUsage)
		})

		r.Route("/logs", func(r chi.Router) {
			r.Get("/", s.logHandlers.HandleGetLogs)
			r.Get("/errors", s.logHandlers.HandleGetErrors)
		})

		r.Get("/runs/last", s.handleLastRun)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
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
