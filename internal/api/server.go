package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/hood-bridge/internal/accessory"
	"github.com/nerrad567/hood-bridge/internal/infrastructure/config"
	"github.com/nerrad567/hood-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/hood-bridge/internal/platform"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Platform is the view of the discovery platform the API needs.
// *platform.Platform implements it.
type Platform interface {
	Status() platform.Status
	Accessories() []*accessory.Entry
	Accessory(id accessory.Identity) (*accessory.Entry, bool)
	Discover(ctx context.Context) (accessory.PassResult, error)
}

// HealthChecker is implemented by database, MQTT, and InfluxDB clients.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HoodCounter reports how many hoods have controllers.
type HoodCounter interface {
	HoodCount() int
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Logger   *logging.Logger
	Platform Platform

	// Checks are reported by /health, keyed by name. Optional.
	Checks map[string]HealthChecker

	// Hoods is optional.
	Hoods HoodCounter

	Version string
}

// Server is the HTTP status API server.
type Server struct {
	cfg       config.APIConfig
	logger    *logging.Logger
	platform  Platform
	checks    map[string]HealthChecker
	hoods     HoodCounter
	version   string
	startTime time.Time
	server    *http.Server
}

// New creates a new API server with the given dependencies.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Platform == nil {
		return nil, fmt.Errorf("platform is required")
	}

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		platform:  deps.Platform,
		checks:    deps.Checks,
		hoods:     deps.Hoods,
		version:   deps.Version,
		startTime: time.Now(),
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
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
