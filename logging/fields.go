// Package logging provides structured logging for jandocs.
// This file contains molecule-level helpers that compose batch processing
// values into ready-to-use zap.Field slices so log entries stay consistent
// across the scheduler, the execution engine, and the HTTP layer.
package logging

import (
	"time"

	"go.uber.org/zap"
)

// BatchFields creates structured fields for a batch-level log entry.
//
// Example:
//
//	logger.Info("batch started", logging.BatchFields(id, total, workers, "parallel")...)
func BatchFields(batchID string, totalFiles, workerCount int, mode string) []zap.Field {
	return []zap.Field{
		zap.String("batch_id", batchID),
		zap.Int("total_files", totalFiles),
		zap.Int("worker_count", workerCount),
		zap.String("mode", mode),
	}
}

// FileFields creates structured fields for a per-file log entry.
//
// Example:
//
//	logger.Info("file complete", logging.FileFields("report.pdf", 2.4, "completed")...)
func FileFields(filename string, sizeMB float64, status string) []zap.Field {
	return []zap.Field{
		zap.String("filename", filename),
		zap.Float64("size_mb", sizeMB),
		zap.String("status", status),
	}
}

// ResourceFields creates structured fields for a resource snapshot log entry.
//
// Example:
//
//	logger.Debug("resources sampled", logging.ResourceFields(42.0, 61.5, 3100, 24000)...)
func ResourceFields(cpuPercent, memoryPercent, memoryAvailableMB, diskFreeMB float64) []zap.Field {
	return []zap.Field{
		zap.Float64("cpu_percent", cpuPercent),
		zap.Float64("memory_percent", memoryPercent),
		zap.Float64("memory_available_mb", memoryAvailableMB),
		zap.Float64("disk_free_mb", diskFreeMB),
	}
}

// TimingFields creates structured fields for operation timing.
//
// Example:
//
//	start := time.Now()
//	// ... process batch ...
//	logger.Info("batch timing", logging.TimingFields(start, time.Now())...)
func TimingFields(startTime, endTime time.Time) []zap.Field {
	return []zap.Field{
		zap.Time("start_time", startTime),
		zap.Time("end_time", endTime),
		zap.Duration("duration", endTime.Sub(startTime)),
	}
}
