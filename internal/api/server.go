package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/studiocast-core/internal/audit"
	"github.com/nerrad567/studiocast-core/internal/automation"
	"github.com/nerrad567/studiocast-core/internal/infrastructure/config"
	"github.com/nerrad567/studiocast-core/internal/infrastructure/logging"
	"github.com/nerrad567/studiocast-core/internal/ingest"
	"github.com/nerrad567/studiocast-core/internal/room"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// CameraSupervisor is the relay control surface exposed over HTTP.
type CameraSupervisor interface {
	Start(roomID, sourceURL, destURL string) error
	Stop(roomID string) error
	GetStatus(roomID string) ingest.Status
	List() []ingest.Status
}

// Scheduler runs and explains schedule decisions.
type Scheduler interface {
	Tick(ctx context.Context, now time.Time) (*automation.TickResult, error)
	ScheduleStatus(ctx context.Context, scheduleID string, now time.Time) (*automation.ScheduleStatus, error)
}

// HealthChecker is implemented by infrastructure clients.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	Security   config.SecurityConfig
	Logger     *logging.Logger
	Supervisor CameraSupervisor
	Rooms      room.Directory
	Scheduler  Scheduler // optional; schedule routes return 503 without it
	ExecLog    audit.Repository

	// HealthChecks are reported by /health, keyed by component name.
	HealthChecks map[string]HealthChecker
	Version      string
}

// Server is the HTTP API server for Studiocast Capture Core.
//
// The server is created with New() and started with Start().
type Server struct {
	cfg          config.APIConfig
	secCfg       config.SecurityConfig
	logger       *logging.Logger
	supervisor   CameraSupervisor
	rooms        room.Directory
	scheduler    Scheduler
	execLog      audit.Repository
	healthChecks map[string]HealthChecker
	version      string
	server       *http.Server
	now          func() time.Time
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Supervisor == nil {
		return nil, fmt.Errorf("supervisor is required")
	}
	if deps.Rooms == nil {
		return nil, fmt.Errorf("room directory is required")
	}
	if deps.ExecLog == nil {
		return nil, fmt.Errorf("execution log is required")
	}
	if deps.Security.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	return &Server{
		cfg:          deps.Config,
		secCfg:       deps.Security,
		logger:       deps.Logger,
		supervisor:   deps.Supervisor,
		rooms:        deps.Rooms,
		scheduler:    deps.Scheduler,
		execLog:      deps.ExecLog,
		healthChecks: deps.HealthChecks,
		version:      deps.Version,
		now:          time.Now,
	}, nil
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
