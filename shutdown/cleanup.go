package shutdown

import (
	"context"
	"os"
	"path/filepath"

	"jandocs/core"

	"go.uber.org/zap"
)

// CleanupUploads returns a shutdown function that removes staged uploads
// left under the staging directory. Every entry is a per-request staging
// directory (or a stray file), so each is removed with its contents; a
// kill during a batch leaves staging behind, and this sweep reclaims it
// on the next clean exit.
//
// Priority recommendation: 40+ (final cleanup, after the server stopped)
//
// The cleanup function:
//   - Removes every entry under the staging directory
//   - Logs removals and failures, continuing past individual failures
//   - Returns nil to avoid blocking shutdown (errors are logged)
//
// Usage:
//
//	manager.Register("cleanup-uploads", 45, shutdown.CleanupUploads(logger, cfg.UploadDir))
func CleanupUploads(logger *zap.Logger, uploadDir string) core.ShutdownFunc {
	return func(ctx context.Context) error {
		return cleanupStagedUploads(ctx, logger, uploadDir)
	}
}

// CleanupUploadsAndDir returns a shutdown function that removes all
// staged uploads AND the staging directory itself. Use this when the
// staging directory is purely transient and should not persist between
// runs (the default under os.TempDir is).
//
// Priority recommendation: 45+ (very final cleanup)
//
// Usage:
//
//	manager.Register("cleanup-uploads-dir", 50, shutdown.CleanupUploadsAndDir(logger, cfg.UploadDir))
func CleanupUploadsAndDir(logger *zap.Logger, uploadDir string) core.ShutdownFunc {
	return func(ctx context.Context) error {
		if err := cleanupStagedUploads(ctx, logger, uploadDir); err != nil {
			logger.Warn("Error during staged upload cleanup, continuing with directory removal",
				zap.Error(err),
			)
		}

		// Check context before the final directory removal
		select {
		case <-ctx.Done():
			logger.Warn("Shutdown context cancelled, skipping directory removal")
			return nil
		default:
		}

		return removeUploadDir(logger, uploadDir)
	}
}

// cleanupStagedUploads removes every entry under the staging directory.
// It returns nil even if some entries fail to delete (errors are logged).
func cleanupStagedUploads(ctx context.Context, logger *zap.Logger, uploadDir string) error {
	entries, err := os.ReadDir(uploadDir)
	if os.IsNotExist(err) {
		logger.Debug("Staging directory does not exist, nothing to clean",
			zap.String("directory", uploadDir),
		)
		return nil
	}
	if err != nil {
		logger.Error("Failed to list staging directory",
			zap.String("directory", uploadDir),
			zap.Error(err),
		)
		// Return nil to not block shutdown
		return nil
	}

	if len(entries) == 0 {
		logger.Debug("No staged uploads to clean up")
		return nil
	}

	logger.Info("Cleaning up staged uploads",
		zap.Int("entry_count", len(entries)),
	)

	var removedCount int
	var failedCount int

	for _, entry := range entries {
		// Check context between removals
		select {
		case <-ctx.Done():
			logger.Warn("Shutdown context cancelled during cleanup",
				zap.Int("removed", removedCount),
				zap.Int("remaining", len(entries)-removedCount-failedCount),
			)
			return nil
		default:
		}

		path := filepath.Join(uploadDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			failedCount++
			logger.Warn("Failed to remove staged upload",
				zap.String("entry", entry.Name()),
				zap.Error(err),
			)
		} else {
			removedCount++
			logger.Debug("Removed staged upload",
				zap.String("entry", entry.Name()),
			)
		}
	}

	logger.Info("Staged upload cleanup complete",
		zap.Int("removed", removedCount),
		zap.Int("failed", failedCount),
	)

	return nil
}

// removeUploadDir removes the staging directory itself.
// It returns nil if the directory does not exist.
func removeUploadDir(logger *zap.Logger, uploadDir string) error {
	info, err := os.Stat(uploadDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		logger.Error("Failed to stat staging directory",
			zap.String("directory", uploadDir),
			zap.Error(err),
		)
		// Return nil to not block shutdown
		return nil
	}

	if !info.IsDir() {
		logger.Warn("Staging path is not a directory",
			zap.String("path", uploadDir),
		)
		return nil
	}

	if err := os.RemoveAll(uploadDir); err != nil {
		logger.Error("Failed to remove staging directory",
			zap.String("directory", uploadDir),
			zap.Error(err),
		)
		// Return nil to not block shutdown
		return nil
	}

	logger.Info("Removed staging directory",
		zap.String("directory", uploadDir),
	)

	return nil
}
