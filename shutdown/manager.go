package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"jandocs/core"

	"go.uber.org/zap"
)

// Manager is the main shutdown coordination organism that composes:
//   - OperationTracker: tracks in-flight operations
//   - ShutdownRegistry: ordered cleanup functions
//   - SignalCounter: handles repeated signals for force shutdown
//
// Manager owns the service-lifetime context and runs the teardown
// sequence: stop accepting work, drain in-flight operations, then run
// the registered cleanup functions in priority order.
//
// Usage:
//
//	manager := NewManager(logger.Zap())
//
//	// Register cleanup handlers (lower priority runs first)
//	manager.Register("http-server", 10, func(ctx context.Context) error {
//	    return server.Shutdown(ctx)
//	})
//	manager.Register("vector-store", 30, func(ctx context.Context) error {
//	    return store.Close()
//	})
//
//	// Start signal handling
//	manager.Start()
//
//	// Block until a signal arrives
//	manager.Wait()
//
//	// Execute shutdown sequence
//	manager.Shutdown()
type Manager struct {
	logger   *zap.Logger
	timeout  time.Duration
	mu       sync.Mutex
	started  bool
	shutdown bool

	// Internal context management
	ctx    context.Context
	cancel context.CancelFunc

	// Composed molecules
	tracker  *OperationTracker
	registry *ShutdownRegistry
	signals  *SignalCounter

	// Signal channel for cleanup
	sigChan chan os.Signal
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTimeout sets the shutdown timeout duration.
// Default is 60 seconds.
func WithTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		m.timeout = timeout
	}
}

// NewManager creates a new Manager ready to coordinate graceful shutdown.
// The logger is required and used for all shutdown-related logging.
//
// Default configuration:
//   - Timeout: 60 seconds
//   - Force shutdown on second signal
func NewManager(logger *zap.Logger, opts ...ManagerOption) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		logger:   logger,
		timeout:  60 * time.Second,
		ctx:      ctx,
		cancel:   cancel,
		tracker:  NewOperationTracker(),
		registry: NewShutdownRegistry(),
		sigChan:  make(chan os.Signal, 1),
	}

	for _, opt := range opts {
		opt(m)
	}

	// Second signal escalates to an immediate exit
	m.signals = NewSignalCounter(2, func() {
		m.logger.Warn("Received second signal, forcing immediate shutdown")
		os.Exit(1)
	})

	return m
}

// Context returns the managed context that is cancelled when shutdown
// begins. Background loops (the resource monitor, the batch registry
// sweep) should run under this context.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Register adds a cleanup function to be called during shutdown.
// Lower priority values are executed first.
//
// Typical priority ranges:
//   - 0-9: critical cleanup (flush logs, metrics)
//   - 10-19: stop the HTTP listener
//   - 20-29: stop background workers (monitor loop, registry sweeps)
//   - 30-39: close the vector store
//   - 40+: final cleanup (remove staged uploads)
func (m *Manager) Register(name string, priority int, fn core.ShutdownFunc) {
	m.registry.Register(name, priority, fn)
	m.logger.Debug("Registered shutdown handler",
		zap.String("name", name),
		zap.Int("priority", priority),
	)
}

// Start begins signal handling for SIGINT and SIGTERM. The first signal
// cancels the managed context to begin graceful shutdown; a second
// signal exits immediately via os.Exit(1).
//
// Start must be called before shutdown will respond to OS signals.
// It is safe to call Start multiple times; subsequent calls are no-ops.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return
	}
	m.started = true

	signal.Notify(m.sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range m.sigChan {
			count := m.signals.Increment()
			if count == 1 {
				m.logger.Info("Received shutdown signal, initiating graceful shutdown",
					zap.String("signal", sig.String()),
				)
				m.cancel()
			}
			// Force shutdown is handled by the SignalCounter callback
		}
	}()

	m.logger.Info("Shutdown manager started, listening for signals")
}

// Shutdown executes the graceful shutdown sequence:
//  1. Close the operation tracker to reject new operations
//  2. Wait for in-flight operations (with timeout)
//  3. Execute registered cleanup functions in priority order
//
// A drain timeout is logged and the cleanup functions still run with at
// least one second of budget. Shutdown returns an error if any cleanup
// function fails.
//
// Shutdown is idempotent; subsequent calls are no-ops and return nil.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil
	}
	m.shutdown = true
	m.mu.Unlock()

	startTime := time.Now()
	m.logger.Info("Initiating graceful shutdown",
		zap.Duration("timeout", m.timeout),
		zap.Int("registered_handlers", m.registry.Count()),
	)

	// Step 1: Stop accepting new operations
	m.tracker.Close()

	// Step 2: Wait for in-flight operations
	if active := m.tracker.ActiveCount(); active > 0 {
		m.logger.Info("Waiting for in-flight operations",
			zap.Int64("active_count", active),
		)
	}

	if err := m.tracker.Wait(m.timeout); err != nil {
		m.logger.Warn("Timeout waiting for in-flight operations",
			zap.Duration("waited", time.Since(startTime)),
			zap.Int64("remaining_ops", m.tracker.ActiveCount()),
		)
	}

	// Step 3: Execute cleanup functions with the remaining timeout
	remaining := m.timeout - time.Since(startTime)
	if remaining < time.Second {
		remaining = time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), remaining)
	defer cancel()

	m.logger.Info("Executing cleanup functions",
		zap.Strings("handlers", m.registry.Names()),
	)

	errs := m.registry.Shutdown(ctx)
	for _, err := range errs {
		m.logger.Error("Cleanup function failed", zap.Error(err))
	}

	// Stop delivery before closing so the signal goroutine exits cleanly
	signal.Stop(m.sigChan)
	close(m.sigChan)

	duration := time.Since(startTime)
	if len(errs) > 0 {
		m.logger.Error("Shutdown completed with errors",
			zap.Duration("duration", duration),
			zap.Int("error_count", len(errs)),
		)
		return fmt.Errorf("shutdown had %d errors", len(errs))
	}

	m.logger.Info("Graceful shutdown completed",
		zap.Duration("duration", duration),
	)
	return nil
}

// Wait blocks until the managed context is cancelled.
// This is a convenience method for main goroutines.
func (m *Manager) Wait() {
	<-m.ctx.Done()
}

// WrapOperation executes a function while tracking it as an in-flight
// operation, so Shutdown waits for it to finish. If shutdown has begun,
// ErrTrackerClosed is returned and the function is not executed.
//
// The operation name is used for logging purposes.
//
// Example:
//
//	err := manager.WrapOperation(ctx, "ingest-batch", func(ctx context.Context) error {
//	    result := processor.ProcessBatch(ctx, paths, force, onProgress)
//	    return reportResult(result)
//	})
//	if errors.Is(err, shutdown.ErrTrackerClosed) {
//	    return fmt.Errorf("service is shutting down")
//	}
func (m *Manager) WrapOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	if !m.tracker.Start() {
		m.logger.Debug("Operation rejected, system shutting down",
			zap.String("operation", name),
		)
		return ErrTrackerClosed
	}
	defer m.tracker.Done()

	// Check if a cancellation already happened
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.ctx.Done():
		return context.Canceled
	default:
	}

	return fn(ctx)
}

// ActiveOperations returns the count of currently in-flight operations.
func (m *Manager) ActiveOperations() int64 {
	return m.tracker.ActiveCount()
}

// IsShuttingDown returns true if shutdown has been initiated.
func (m *Manager) IsShuttingDown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdown || m.tracker.IsClosed()
}

// RegisteredHandlers returns the names of all registered cleanup handlers
// in priority order (first to execute is first in slice).
func (m *Manager) RegisteredHandlers() []string {
	return m.registry.Names()
}
