package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"jandocs/batchprocessor"
	"jandocs/core"
	"jandocs/core/validation"
	"jandocs/docprocessor"
	"jandocs/logging"
	"jandocs/resourcemonitor"
	"jandocs/server"
	"jandocs/shutdown"
	"jandocs/vectorstore"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Use fmt here since logger isn't initialized yet
		fmt.Printf("Warning: .env file not found, using defaults: %v\n", err)
	}

	// Service management commands (install/uninstall/start/stop/status)
	// handle themselves and exit
	if HandleServiceCommand(os.Args) {
		return
	}

	// Under the Windows service manager, RunAsService blocks until the
	// service is stopped
	ranAsService, err := RunAsService()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service error: %v\n", err)
		os.Exit(core.ExitCodeError)
	}
	if ranAsService {
		return
	}

	os.Exit(runApp(context.Background()))
}

// runApp builds the sidecar, serves until the parent context is
// cancelled or a shutdown signal arrives, and returns the process exit
// code. The interactive path passes a background context and lets the
// shutdown manager's signal handling drive the exit; the Windows
// service path cancels the parent context from the service Stop call.
func runApp(parent context.Context) int {
	cfg, err := core.LoadConfig()
	if err != nil {
		printConfigError(err)
		return core.ExitCodeError
	}

	if err := cfg.EnsureDirectories(); err != nil {
		printConfigError(err)
		return core.ExitCodeError
	}

	logger, err := logging.NewLogger(cfg.DevMode, cfg.LogFilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return core.ExitCodeError
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Printf("Failed to sync logger: %v\n", syncErr)
		}
	}()

	// Run startup validation before heavy operations
	if exitCode := runStartupValidation(logger, cfg); exitCode != core.ExitCodeSuccess {
		return exitCode
	}

	logger.Info("Configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("embeddings_url", cfg.EmbeddingsURL),
		zap.String("embeddings_model", cfg.EmbeddingsModel),
		zap.String("data_dir", cfg.DataDir),
		zap.String("vector_db", cfg.VectorDBPath),
		zap.Int("max_workers", cfg.MaxWorkers),
		zap.Duration("monitor_interval", cfg.MonitorInterval),
		zap.Duration("batch_retention", cfg.BatchRetention),
		zap.Bool("dev_mode", cfg.DevMode),
	)

	// Resource monitor; a broken thresholds file falls back to the
	// defaults so a typo in an override cannot keep the service down
	monitorCfg, err := monitorConfigFor(cfg)
	if err != nil {
		logger.Warn("Threshold overrides not applied", zap.Error(err))
	}
	monitor := resourcemonitor.NewMonitor(monitorCfg, logger).
		WithPDFInspector(docprocessor.NewInspector())

	// Storage and embeddings
	store, err := vectorstore.NewStore(vectorstore.DefaultStoreConfig(cfg.VectorDBPath), logger)
	if err != nil {
		logger.Error("Failed to open vector store", zap.Error(err))
		return core.ExitCodeError
	}

	embedder, err := vectorstore.NewEmbedder(embedderConfigFor(cfg), logger)
	if err != nil {
		logger.Error("Failed to create embeddings client", zap.Error(err))
		store.Close()
		return core.ExitCodeError
	}

	// Ingestion pipeline
	ingester, err := docprocessor.New(docConfigFor(cfg), store, embedder, logger)
	if err != nil {
		logger.Error("Failed to create document processor", zap.Error(err))
		store.Close()
		return core.ExitCodeError
	}

	batch, err := batchprocessor.New(batchConfigFor(cfg), monitor, ingester, logger)
	if err != nil {
		logger.Error("Failed to create batch processor", zap.Error(err))
		store.Close()
		return core.ExitCodeError
	}

	// HTTP API
	srv, err := server.NewServer(serverConfigFor(cfg), monitor, ingester, batch, store, embedder, logger)
	if err != nil {
		logger.Error("Failed to create server", zap.Error(err))
		store.Close()
		return core.ExitCodeError
	}

	// Graceful shutdown: stop the listener, then close the store once
	// no worker can write to it, then sweep any staged uploads
	manager := shutdown.NewManager(logger.Zap())
	manager.Register("http-server", 10, srv.Shutdown)
	manager.Register("vector-store", 30, func(ctx context.Context) error {
		return store.Close()
	})
	manager.Register("cleanup-uploads", 45, shutdown.CleanupUploads(logger.Zap(), cfg.UploadsDir))
	manager.Start()

	// Background loops run until the manager's context is cancelled
	go monitor.Run(manager.Context())

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start(manager.Context())
	}()

	logger.Info("jandocs ready",
		zap.String("version", core.GetVersion()),
		zap.String("addr", srv.Addr()),
		zap.String("embeddings_url", cfg.EmbeddingsURL),
		zap.Bool("ocr_available", monitor.OCRAvailable()),
	)

	select {
	case <-parent.Done():
		logger.Info("Stop requested by service manager")
	case <-manager.Context().Done():
		// First signal; the manager already logged it
	case err := <-serverErr:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
			if shutdownErr := manager.Shutdown(); shutdownErr != nil {
				logger.Error("Shutdown completed with errors", zap.Error(shutdownErr))
			}
			return core.ExitCodeError
		}
	}

	if err := manager.Shutdown(); err != nil {
		logger.Error("Shutdown completed with errors", zap.Error(err))
		return core.ExitCodeError
	}

	logger.Info("Goodbye!")
	return core.ExitCodeSuccess
}

// runStartupValidation performs comprehensive startup validation.
//
// Returns the appropriate exit code:
//   - ExitCodeSuccess (0) if all validations pass
//   - ExitCodeError (1) if any validation fails
//
// Warnings (missing .env, unreachable embeddings server, missing
// tesseract) do not block startup; the service comes up degraded and
// /health reports the condition.
func runStartupValidation(logger *logging.Logger, cfg *core.Config) int {
	logger.Info("Starting startup validation...")

	suite := validation.NewValidationSuite().
		WithAllowSelfSignedCerts(cfg.AllowSelfSignedCerts).
		WithShowProgress(true)

	result := suite.Validate()

	if !result.Success {
		logger.Error("Configuration validation failed",
			zap.Int("passed", result.PassedSteps),
			zap.Int("failed", result.FailedSteps),
			zap.Duration("duration", result.Duration),
		)

		// Log individual failures for debugging
		for _, step := range result.Steps {
			if step.Status == validation.StepFailed {
				logger.Error("Validation step failed",
					zap.String("step", step.Name),
					zap.String("message", step.Message),
					zap.Error(step.Error),
				)
			}
		}

		return core.ExitCodeError
	}

	logger.Info("Configuration validation passed",
		zap.Int("checks_passed", result.PassedSteps),
		zap.Int("warnings", result.Warnings),
		zap.Duration("duration", result.Duration),
	)

	return core.ExitCodeSuccess
}

// printConfigError writes a configuration error to stderr with its
// action line when one is attached. Used before the logger exists.
func printConfigError(err error) {
	if cfgErr, ok := core.IsConfigError(err); ok {
		fmt.Fprintf(os.Stderr, "Configuration error [%s]: %s\n", cfgErr.Code, cfgErr.Message)
		if cfgErr.Action != "" {
			fmt.Fprintf(os.Stderr, "  └─ %s\n", cfgErr.Action)
		}
		return
	}
	fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
}
