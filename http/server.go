package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"flightdelay/db"
	"flightdelay/ml"
	"flightdelay/monitoring"
)

// Predictor is the model surface the API depends on. *ml.DelayModel
// satisfies it; tests substitute fakes.
type Predictor interface {
	Predict(records []ml.FlightRecord) ([]ml.Prediction, error)
	Fit(records []ml.FlightRecord) error
	Ready() bool
	Info() ml.ModelInfo
}

// Deps are the collaborators injected into the API. Store and Hub may be
// nil; the corresponding endpoints degrade gracefully.
type Deps struct {
	Model   Predictor
	Dataset func() []ml.FlightRecord
	Store   *db.Store
	Metrics *monitoring.Metrics
	Hub     *monitoring.Hub
	Log     *zap.Logger
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port           int
	Timeout        time.Duration
	MaxBodyBytes   int64
	AllowedOrigins []string
}

// DefaultServerConfig returns the settings used when config.yaml leaves
// them out.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:           8080,
		Timeout:        30 * time.Second,
		MaxBodyBytes:   1 << 20,
		AllowedOrigins: []string{"*"},
	}
}

// Server is the HTTP front of the prediction service.
type Server struct {
	server *http.Server
	config ServerConfig
	log    *zap.Logger
}

// NewServer wires handlers, middleware and dependencies.
func NewServer(config ServerConfig, deps Deps) *Server {
	if config.Port == 0 {
		config = DefaultServerConfig()
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxBodyBytes == 0 {
		config.MaxBodyBytes = 1 << 20
	}
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = []string{"*"}
	}

	mux := http.NewServeMux()
	api := newAPI(deps)
	api.register(mux)

	chain := Chain(
		RecoveryMiddleware(deps.Log),
		LoggerMiddleware(deps.Log),
		SecurityHeadersMiddleware,
		CORSMiddleware(config.AllowedOrigins),
		TimeoutMiddleware(config.Timeout),
		RequestSizeMiddleware(config.MaxBodyBytes),
	)

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			Handler:      chain(mux),
			ReadTimeout:  config.Timeout,
			WriteTimeout: config.Timeout,
			IdleTimeout:  120 * time.Second,
		},
		config: config,
		log:    deps.Log,
	}
}

// Start blocks serving until Stop or failure.
func (s *Server) Start() error {
	s.log.Info("starting HTTP server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.log.Info("shutting down HTTP server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}
