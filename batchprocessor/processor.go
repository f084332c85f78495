// Package batchprocessor executes multi-file ingestion batches with
// resource-aware parallelism.
//
// processor.go implements the Processor organism that runs a batch end
// to end. It composes:
//   - resourcemonitor.Monitor: capacity checks and plan building
//   - Ingester: the per-file document ingestion collaborator
//   - registry.go: batch lookup, listing, and cleanup
package batchprocessor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"jandocs/core"
	"jandocs/docprocessor"
	"jandocs/logging"
	"jandocs/resourcemonitor"
)

// ErrNilMonitor is returned when no resource monitor is provided.
var ErrNilMonitor = errors.New("batchprocessor: resource monitor is required")

// ErrNilIngester is returned when no ingester is provided.
var ErrNilIngester = errors.New("batchprocessor: ingester is required")

// ErrNilLogger is returned when no logger is provided.
var ErrNilLogger = errors.New("batchprocessor: logger is required")

// Ingester ingests one document end to end: extract, chunk, embed,
// store. Implementations must be safe for concurrent calls with
// different paths, and must report every unrecoverable failure through
// the returned error.
type Ingester interface {
	Ingest(ctx context.Context, path string, force bool) (*docprocessor.ProcessedDocument, error)
}

var _ Ingester = (*docprocessor.Processor)(nil)

// ProgressCallback receives a progress snapshot after each file reaches
// a terminal state and once more when the whole batch completes.
// Invocations are serialized, never concurrent, and the snapshot is the
// callback's to keep.
type ProgressCallback func(*BatchProgress)

// Config holds tunables for the batch processor.
type Config struct {
	// CleanupMaxAge is how long completed batches stay queryable before
	// CleanupCompleted removes them. Calls to CleanupCompleted with a
	// negative age fall back to this value.
	CleanupMaxAge time.Duration
}

// DefaultConfig returns the default batch processor configuration.
func DefaultConfig() Config {
	return Config{
		CleanupMaxAge: time.Hour,
	}
}

// Processor runs ingestion batches according to plans built by the
// resource monitor, tracking per-file and per-batch progress.
//
// Thread-Safety: all methods are safe for concurrent use. A single
// mutex guards the registry and every registered BatchProgress; it is
// held only for state transitions and map access, never across an
// Ingest call.
type Processor struct {
	cfg      Config
	monitor  *resourcemonitor.Monitor
	ingester Ingester
	logger   *logging.Logger

	mu           sync.Mutex
	batches      map[string]*BatchProgress
	batchCounter int
}

// New creates a batch processor wired to its collaborators.
//
// Parameters:
//   - cfg: tunables; zero-value fields take their defaults
//   - monitor: resource monitor used for capacity and planning
//   - ingester: per-file ingestion collaborator
//   - logger: parent logger; the processor logs under "batch"
func New(cfg Config, monitor *resourcemonitor.Monitor, ingester Ingester, logger *logging.Logger) (*Processor, error) {
	if monitor == nil {
		return nil, ErrNilMonitor
	}
	if ingester == nil {
		return nil, ErrNilIngester
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if cfg.CleanupMaxAge <= 0 {
		cfg.CleanupMaxAge = DefaultConfig().CleanupMaxAge
	}

	return &Processor{
		cfg:      cfg,
		monitor:  monitor,
		ingester: ingester,
		logger:   logger.Named("batch"),
		batches:  make(map[string]*BatchProgress),
	}, nil
}

// Capacity returns the monitor's current load capacity recommendation.
func (p *Processor) Capacity() resourcemonitor.LoadCapacity {
	return p.monitor.Capacity()
}

// CreatePlan builds a processing plan for a set of files without
// running them.
func (p *Processor) CreatePlan(files []core.FileInfo) resourcemonitor.ProcessingPlan {
	return p.monitor.CreatePlan(files)
}

// ProcessBatch ingests the given files synchronously and returns the
// final batch progress. Paths that do not exist or are directories are
// excluded up front; an all-invalid batch returns immediately with a
// warning and no registry entry. Per-file failures are recorded on the
// file and never abort the rest of the batch.
//
// The callback, when non-nil, fires after each file reaches a terminal
// state and once more at batch end. The returned BatchProgress and
// every callback argument are detached snapshots.
func (p *Processor) ProcessBatch(ctx context.Context, paths []string, force bool, callback ProgressCallback) *BatchProgress {
	batch, plan := p.prepare(paths)
	if batch.TotalFiles == 0 {
		return batch
	}
	return p.run(ctx, batch, plan, force, callback)
}

// ProcessBatchAsync runs the batch on its own goroutine and delivers
// the final BatchProgress on the returned channel. The channel is
// buffered and closed after the result, so the batch never blocks on a
// slow receiver. Callback invocations stay serialized on the batch
// goroutine.
func (p *Processor) ProcessBatchAsync(ctx context.Context, paths []string, force bool, callback ProgressCallback) <-chan *BatchProgress {
	_, done := p.StartBatch(ctx, paths, force, callback)
	return done
}

// StartBatch registers a batch and begins processing it on a background
// goroutine. It returns the initial progress snapshot, whose BatchID is
// already valid for Status lookups, together with the channel that will
// deliver the final BatchProgress. Callers that answer before the batch
// finishes report the snapshot and poll by ID; callers that want the
// result receive on the channel.
//
// An all-invalid input never starts a goroutine: the returned snapshot
// carries the warning, is already complete, and the channel delivers it
// immediately.
func (p *Processor) StartBatch(ctx context.Context, paths []string, force bool, callback ProgressCallback) (*BatchProgress, <-chan *BatchProgress) {
	done := make(chan *BatchProgress, 1)

	batch, plan := p.prepare(paths)
	if batch.TotalFiles == 0 {
		done <- batch
		close(done)
		return batch, done
	}

	p.mu.Lock()
	initial := batch.snapshot()
	p.mu.Unlock()

	go func() {
		done <- p.run(ctx, batch, plan, force, callback)
		close(done)
	}()
	return initial, done
}

// prepare validates paths, builds the processing plan, and registers
// the new batch with one queued FileProgress per file in plan order.
// An all-invalid input yields an unregistered batch whose TotalFiles is
// zero, carrying only the warning.
func (p *Processor) prepare(paths []string) (*BatchProgress, resourcemonitor.ProcessingPlan) {
	batchID := p.nextBatchID()

	var files []core.FileInfo
	for _, path := range paths {
		info, err := core.NewFileInfo(path)
		if err != nil {
			p.logger.Warn("skipping invalid batch entry",
				zap.String("path", path),
				zap.Error(err))
			continue
		}
		files = append(files, info)
	}

	if len(files) == 0 {
		return &BatchProgress{
			BatchID:  batchID,
			Warnings: []string{"No valid files to process"},
		}, resourcemonitor.ProcessingPlan{}
	}

	plan := p.monitor.CreatePlan(files)

	batch := &BatchProgress{
		BatchID:              batchID,
		TotalFiles:           len(files),
		ProcessingMode:       plan.Mode,
		WorkerCount:          plan.WorkerCount,
		EstimatedTimeSeconds: plan.EstimatedTimeSeconds,
		StartedAt:            time.Now(),
		Warnings:             plan.Warnings,
		OCRAnalysis:          plan.OCRAnalysis,
	}

	// One FileProgress per file, in the plan's processing order
	infoByPath := make(map[string]core.FileInfo, len(files))
	for _, info := range files {
		infoByPath[info.Path] = info
	}
	for _, path := range plan.FileOrder {
		info := infoByPath[path]
		batch.Files = append(batch.Files, &FileProgress{
			Filename: info.Name(),
			FilePath: info.Path,
			SizeMB:   info.SizeMB,
			Status:   StatusQueued,
		})
	}

	p.register(batch)

	p.logger.Info("batch started",
		logging.BatchFields(batch.BatchID, batch.TotalFiles, batch.WorkerCount, plan.Mode.String())...)

	return batch, plan
}

// run executes a prepared batch to completion on the calling goroutine
// and returns the final snapshot.
func (p *Processor) run(ctx context.Context, batch *BatchProgress, plan resourcemonitor.ProcessingPlan, force bool, callback ProgressCallback) *BatchProgress {
	if plan.Mode.IsSequential() || plan.WorkerCount <= 1 {
		p.runSequential(ctx, batch, force, callback)
	} else {
		p.runParallel(ctx, batch, plan.WorkerCount, force, callback)
	}

	p.mu.Lock()
	batch.CompletedAt = time.Now()
	final := batch.snapshot()
	p.mu.Unlock()

	p.logger.Info("batch complete",
		zap.String("batch_id", final.BatchID),
		zap.Int("completed_files", final.CompletedFiles),
		zap.Int("failed_files", final.FailedFiles),
		zap.Int("total_chunks", final.TotalChunks),
		zap.Duration("duration", final.CompletedAt.Sub(final.StartedAt)))

	if callback != nil {
		callback(final)
	}
	return final
}

// runSequential processes files one at a time on the calling goroutine,
// in plan order.
func (p *Processor) runSequential(ctx context.Context, batch *BatchProgress, force bool, callback ProgressCallback) {
	for _, file := range batch.Files {
		p.markProcessing(file)

		var doc *docprocessor.ProcessedDocument
		err := ctx.Err()
		if err == nil {
			doc, err = p.safeIngest(ctx, file.FilePath, force)
		}

		snap := p.finishFile(batch, file, doc, err)
		if callback != nil {
			callback(snap)
		}
	}
}

// runParallel processes files through a bounded worker pool. Workers
// only ingest; the collecting loop applies results in completion order
// and fires the callback between results, one at a time.
func (p *Processor) runParallel(ctx context.Context, batch *BatchProgress, workers int, force bool, callback ProgressCallback) {
	type fileResult struct {
		file *FileProgress
		doc  *docprocessor.ProcessedDocument
		err  error
	}

	jobs := make(chan *FileProgress)
	results := make(chan fileResult)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range jobs {
				p.markProcessing(file)

				var doc *docprocessor.ProcessedDocument
				err := ctx.Err()
				if err == nil {
					doc, err = p.safeIngest(ctx, file.FilePath, force)
				}
				results <- fileResult{file: file, doc: doc, err: err}
			}
		}()
	}

	go func() {
		for _, file := range batch.Files {
			jobs <- file
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	for res := range results {
		snap := p.finishFile(batch, res.file, res.doc, res.err)
		if callback != nil {
			callback(snap)
		}
	}
}

// safeIngest invokes the ingester with a recover guard, so a panicking
// collaborator surfaces as that file's failure instead of killing the
// batch. A nil document with a nil error counts as a failure too.
func (p *Processor) safeIngest(ctx context.Context, path string, force bool) (doc *docprocessor.ProcessedDocument, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("ingest panicked: %v", r)
		}
	}()

	doc, err = p.ingester.Ingest(ctx, path, force)
	if err == nil && doc == nil {
		err = errors.New("ingester returned no document")
	}
	return doc, err
}

// markProcessing transitions a file queued -> processing under the
// registry lock.
func (p *Processor) markProcessing(file *FileProgress) {
	p.mu.Lock()
	file.Status = StatusProcessing
	file.StartedAt = time.Now()
	file.ProgressPercent = 10.0
	p.mu.Unlock()
}

// finishFile applies a file's terminal transition and the batch counter
// update under the registry lock, then returns a snapshot for the
// progress callback.
func (p *Processor) finishFile(batch *BatchProgress, file *FileProgress, doc *docprocessor.ProcessedDocument, err error) *BatchProgress {
	p.mu.Lock()
	file.CompletedAt = time.Now()
	if err != nil {
		file.Status = StatusFailed
		file.ErrorMessage = err.Error()
		batch.FailedFiles++
	} else {
		file.Status = StatusCompleted
		file.ProgressPercent = 100.0
		file.ChunksCreated = doc.ChunkCount()
		file.OCRUsed = doc.OCRUsed
		file.OCRPages = doc.OCRPages
		batch.CompletedFiles++
		batch.TotalChunks += doc.ChunkCount()
	}
	snap := batch.snapshot()
	p.mu.Unlock()

	if err != nil {
		p.logger.Error("file failed",
			zap.String("batch_id", batch.BatchID),
			zap.String("filename", file.Filename),
			zap.Error(err))
	} else {
		fields := logging.FileFields(file.Filename, file.SizeMB, StatusCompleted.String())
		fields = append(fields, zap.Int("chunks_created", doc.ChunkCount()))
		if doc.OCRUsed {
			fields = append(fields, zap.Int("ocr_pages", doc.OCRPages))
		}
		p.logger.Info("file processed", fields...)
	}
	return snap
}
