package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/photo-collage/internal/config"
	"github.com/kozaktomas/photo-collage/internal/constants"
	"github.com/kozaktomas/photo-collage/internal/web/handlers"
	"github.com/kozaktomas/photo-collage/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	config      *config.Config
	router      *chi.Mux
	httpServer  *http.Server
	jobManager  *handlers.JobManager
	runner      handlers.LayoutRunner
	detector    handlers.Detector
	logger      *log.Logger
	stopSweeper context.CancelFunc
}

// NewServer creates a new web server. detector may be nil, which disables
// the detection endpoint.
func NewServer(cfg *config.Config, runner handlers.LayoutRunner, detector handlers.Detector, logger *log.Logger) *Server {
	r := chi.NewRouter()

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	jobManager := handlers.NewJobManager()
	go jobManager.RunSweeper(sweepCtx, constants.JobSweepInterval, constants.JobRetention)

	s := &Server{
		config:      cfg,
		router:      r,
		jobManager:  jobManager,
		runner:      runner,
		detector:    detector,
		logger:      logger,
		stopSweeper: stopSweeper,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.RequestLogger(&chiMiddleware.DefaultLogFormatter{
		Logger:  logger.StandardLog(log.StandardLogOptions{ForceLevel: log.DebugLevel}),
		NoColor: true,
	}))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(constants.RequestTimeout))
	r.Use(middleware.CORS(cfg.Web.AllowedOrigins))
	r.Use(middleware.SecurityHeaders())

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // Long timeout for SSE and uploads
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting web server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down web server")
	s.stopSweeper()

	for _, job := range s.jobManager.ListJobs() {
		job.Cancel()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
