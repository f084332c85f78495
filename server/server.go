// Package server exposes the document scheduler over a localhost JSON
// API for the Jan desktop client.
//
// server.go implements the Server organism that wires together the API
// handler set, the logging middleware, and the HTTP listener, and runs
// the periodic batch registry cleanup.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"jandocs/logging"
	"jandocs/resourcemonitor"
)

// Config configures the Server.
type Config struct {
	// Host to bind to (default: "127.0.0.1"). The API carries no
	// authentication, so it should stay on loopback.
	Host string

	// Port to listen on (default: 1338, next to Jan's own 1337)
	Port int

	// ReadTimeout for HTTP requests. Uploads stream whole documents,
	// so this is generous (default: 5m).
	ReadTimeout time.Duration

	// WriteTimeout for HTTP responses. Single-document uploads block
	// on ingestion, which may run OCR (default: 10m).
	WriteTimeout time.Duration

	// IdleTimeout for keep-alive connections (default: 120s)
	IdleTimeout time.Duration

	// ShutdownTimeout for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration

	// CleanupInterval is how often completed batches are swept from the
	// registry (default: 1h). The engine's retention age applies.
	CleanupInterval time.Duration

	// UploadDir is where uploads are staged before ingestion
	UploadDir string

	// LogSkipPaths are paths the request logger ignores
	LogSkipPaths []string

	// Version identifies the build in API responses
	Version VersionInfo
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "127.0.0.1",
		Port:            1338,
		ReadTimeout:     5 * time.Minute,
		WriteTimeout:    10 * time.Minute,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		CleanupInterval: time.Hour,
		LogSkipPaths:    []string{"/health"},
		Version:         VersionInfo{Version: "1.0.0"},
	}
}

// Server is the HTTP server organism for the document API.
// It wires together:
//   - API for the /documents, /health, and / endpoints
//   - LoggingMiddleware for request logging with request IDs
//   - a periodic sweep of completed batches from the registry
//
// Methods:
//   - NewServer() creates a configured server instance
//   - Start() begins listening on the configured port
//   - Shutdown() gracefully shuts down the server
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	config     Config
	logger     *logging.Logger
	api        *API
	loggingMw  *LoggingMiddleware
}

// NewServer creates a new Server with the given configuration and
// collaborators. Zero-value config fields take their defaults.
func NewServer(
	config Config,
	monitor *resourcemonitor.Monitor,
	ingester Ingester,
	batch BatchRunner,
	store DocumentStore,
	embedder QueryEmbedder,
	logger *logging.Logger,
) (*Server, error) {
	if logger == nil {
		return nil, ErrNilLogger
	}

	defaults := DefaultConfig()
	if config.Host == "" {
		config.Host = defaults.Host
	}
	if config.Port == 0 {
		config.Port = defaults.Port
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = defaults.ReadTimeout
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = defaults.IdleTimeout
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = defaults.CleanupInterval
	}
	if config.LogSkipPaths == nil {
		config.LogSkipPaths = defaults.LogSkipPaths
	}
	if config.Version.Version == "" {
		config.Version = defaults.Version
	}

	api, err := NewAPI(
		APIConfig{UploadDir: config.UploadDir, Version: config.Version},
		monitor, ingester, batch, store, embedder, logger,
	)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	api.RegisterRoutes(mux)

	server := &Server{
		mux:       mux,
		config:    config,
		logger:    logger.Named("server"),
		api:       api,
		loggingMw: NewLoggingMiddleware(logger, config.LogSkipPaths),
	}

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server.httpServer = &http.Server{
		Addr:         addr,
		Handler:      server.Handler(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	server.logger.Info("server created",
		zap.String("addr", addr),
		zap.String("upload_dir", api.uploadDir))

	return server, nil
}

// Handler returns the full handler chain: the API routes wrapped in the
// logging middleware.
func (s *Server) Handler() http.Handler {
	return s.loggingMw.Handler(s.mux)
}

// Start begins listening for HTTP requests and runs the registry
// cleanup loop until ctx is cancelled. It blocks until the server is
// shut down.
func (s *Server) Start(ctx context.Context) error {
	go s.cleanupLoop(ctx)

	s.logger.Info("server starting",
		zap.String("addr", s.httpServer.Addr))

	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown error: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Addr returns the server's address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// API returns the handler set for direct access.
func (s *Server) API() *API {
	return s.api
}

// cleanupLoop sweeps completed batches from the registry on the
// configured interval. The engine's retention age decides what goes.
func (s *Server) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.api.batch.CleanupCompleted(-1)
		}
	}
}
