// Package batchprocessor executes multi-file ingestion batches with
// resource-aware parallelism.
//
// progress.go defines the progress data model: FileStatus, FileProgress,
// and BatchProgress. These are plain records; the Processor owns the lock
// that guards them while a batch is running, and hands out deep copies
// to callbacks and status queries so callers can read and marshal them
// freely.
package batchprocessor

import (
	"encoding/json"
	"math"
	"time"

	"jandocs/resourcemonitor"
)

// FileStatus is the lifecycle state of one file inside a batch.
type FileStatus string

const (
	// StatusQueued means the file is waiting for a worker.
	StatusQueued FileStatus = "queued"
	// StatusProcessing means a worker is ingesting the file.
	StatusProcessing FileStatus = "processing"
	// StatusCompleted means ingestion finished and chunks were stored.
	StatusCompleted FileStatus = "completed"
	// StatusFailed means ingestion returned an error for this file.
	StatusFailed FileStatus = "failed"
	// StatusSkipped is part of the UI status vocabulary. The engine never
	// produces it: invalid paths are excluded before a FileProgress exists.
	StatusSkipped FileStatus = "skipped"
)

// String returns the wire value of the status.
func (s FileStatus) String() string {
	return string(s)
}

// Terminal reports whether the status is an end state.
func (s FileStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusSkipped
}

// FileProgress tracks one file through a batch run.
//
// Every file moves queued -> processing -> completed|failed. The worker
// processing the file is the only writer; other goroutines read it only
// through snapshots taken under the batch lock.
type FileProgress struct {
	// Filename is the base name, shown in the UI
	Filename string
	// FilePath is the full path handed to the ingester
	FilePath string
	// SizeMB is the file size at validation time
	SizeMB float64
	// Status is the current lifecycle state
	Status FileStatus
	// ProgressPercent is 0, 10 while processing, 100 when done
	ProgressPercent float64
	// ChunksCreated is the chunk count from a successful ingest
	ChunksCreated int
	// ErrorMessage is set when Status is failed
	ErrorMessage string
	// StartedAt is stamped on the queued -> processing transition
	StartedAt time.Time
	// CompletedAt is stamped on either terminal transition
	CompletedAt time.Time
	// OCRUsed reports whether any page of this file went through OCR
	OCRUsed bool
	// OCRPages is how many pages went through OCR
	OCRPages int
}

// MarshalJSON renders the file progress for transport. Sizes are rounded
// to two decimal places and percentages to one; unset timestamps and the
// empty error message render as null. The filesystem path is withheld.
func (f FileProgress) MarshalJSON() ([]byte, error) {
	var durationSeconds *float64
	if !f.StartedAt.IsZero() && !f.CompletedAt.IsZero() {
		d := f.CompletedAt.Sub(f.StartedAt).Seconds()
		durationSeconds = &d
	}

	return json.Marshal(struct {
		Filename        string     `json:"filename"`
		SizeMB          float64    `json:"size_mb"`
		Status          FileStatus `json:"status"`
		ProgressPercent float64    `json:"progress_percent"`
		ChunksCreated   int        `json:"chunks_created"`
		ErrorMessage    *string    `json:"error_message"`
		StartedAt       *time.Time `json:"started_at"`
		CompletedAt     *time.Time `json:"completed_at"`
		DurationSeconds *float64   `json:"duration_seconds"`
		OCRUsed         bool       `json:"ocr_used"`
		OCRPages        int        `json:"ocr_pages"`
	}{
		Filename:        f.Filename,
		SizeMB:          round2(f.SizeMB),
		Status:          f.Status,
		ProgressPercent: round1(f.ProgressPercent),
		ChunksCreated:   f.ChunksCreated,
		ErrorMessage:    stringPtr(f.ErrorMessage),
		StartedAt:       timePtr(f.StartedAt),
		CompletedAt:     timePtr(f.CompletedAt),
		DurationSeconds: durationSeconds,
		OCRUsed:         f.OCRUsed,
		OCRPages:        f.OCRPages,
	})
}

// BatchProgress is the aggregate state of one batch run.
//
// Thread-Safety: the Processor mutates a registered BatchProgress only
// under its registry lock. Instances returned by Status and passed to
// progress callbacks are deep copies and safe to read, marshal, or
// retain without synchronization.
type BatchProgress struct {
	// BatchID uniquely identifies the batch within this process
	BatchID string
	// TotalFiles is the number of valid files admitted to the batch
	TotalFiles int
	// CompletedFiles counts files that reached completed
	CompletedFiles int
	// FailedFiles counts files that reached failed
	FailedFiles int
	// TotalChunks is the summed chunk count of completed files
	TotalChunks int
	// Files holds per-file progress in planned processing order
	Files []*FileProgress
	// ProcessingMode is the mode the plan selected
	ProcessingMode resourcemonitor.ProcessingMode
	// WorkerCount is the pool size the plan selected
	WorkerCount int
	// EstimatedTimeSeconds is the plan's duration estimate for the whole
	// batch. Display metadata for accept responses and CLI banners; it is
	// not part of the progress wire view.
	EstimatedTimeSeconds float64
	// StartedAt is stamped when the batch is admitted
	StartedAt time.Time
	// CompletedAt is stamped after the last file finishes
	CompletedAt time.Time
	// Warnings carries plan warnings plus engine-level notices
	Warnings []string
	// OCRAnalysis is the batch OCR aggregate the plan was built from
	OCRAnalysis *resourcemonitor.BatchOCRAnalysis
}

// ProgressPercent is the fraction of files in a terminal state, as 0-100.
// An empty batch is trivially 100% done.
func (b *BatchProgress) ProgressPercent() float64 {
	if b.TotalFiles == 0 {
		return 100.0
	}
	return float64(b.CompletedFiles+b.FailedFiles) / float64(b.TotalFiles) * 100
}

// IsComplete reports whether every file has reached a terminal state.
func (b *BatchProgress) IsComplete() bool {
	return b.CompletedFiles+b.FailedFiles >= b.TotalFiles
}

// MarshalJSON renders the batch progress for transport. Warnings and
// files always render as arrays, never null, so UI code can iterate
// without guarding.
func (b *BatchProgress) MarshalJSON() ([]byte, error) {
	warnings := b.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	files := b.Files
	if files == nil {
		files = []*FileProgress{}
	}

	return json.Marshal(struct {
		BatchID         string                            `json:"batch_id"`
		TotalFiles      int                               `json:"total_files"`
		CompletedFiles  int                               `json:"completed_files"`
		FailedFiles     int                               `json:"failed_files"`
		ProgressPercent float64                           `json:"progress_percent"`
		TotalChunks     int                               `json:"total_chunks"`
		ProcessingMode  resourcemonitor.ProcessingMode    `json:"processing_mode"`
		WorkerCount     int                               `json:"worker_count"`
		StartedAt       *time.Time                        `json:"started_at"`
		CompletedAt     *time.Time                        `json:"completed_at"`
		IsComplete      bool                              `json:"is_complete"`
		Warnings        []string                          `json:"warnings"`
		OCRAnalysis     *resourcemonitor.BatchOCRAnalysis `json:"ocr_analysis"`
		Files           []*FileProgress                   `json:"files"`
	}{
		BatchID:         b.BatchID,
		TotalFiles:      b.TotalFiles,
		CompletedFiles:  b.CompletedFiles,
		FailedFiles:     b.FailedFiles,
		ProgressPercent: round1(b.ProgressPercent()),
		TotalChunks:     b.TotalChunks,
		ProcessingMode:  b.ProcessingMode,
		WorkerCount:     b.WorkerCount,
		StartedAt:       timePtr(b.StartedAt),
		CompletedAt:     timePtr(b.CompletedAt),
		IsComplete:      b.IsComplete(),
		Warnings:        warnings,
		OCRAnalysis:     b.OCRAnalysis,
		Files:           files,
	})
}

// snapshot returns a deep copy safe to hand outside the registry lock.
func (b *BatchProgress) snapshot() *BatchProgress {
	copied := *b

	copied.Files = make([]*FileProgress, len(b.Files))
	for i, f := range b.Files {
		fc := *f
		copied.Files[i] = &fc
	}
	if b.Warnings != nil {
		copied.Warnings = append([]string(nil), b.Warnings...)
	}
	return &copied
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
