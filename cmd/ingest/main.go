// Command ingest bulk-loads a directory of documents into the vector
// store from the terminal. It shares the sidecar's configuration,
// planning, and ingestion pipeline, so a directory ingested here is
// indistinguishable from one uploaded through the HTTP API.
//
// The batch is planned before anything runs: the plan (mode, workers,
// time estimate, warnings) is printed, then files are processed behind
// a progress bar. The first interrupt stops the batch at the next file
// boundary and closes the store cleanly; a second interrupt exits
// immediately.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"jandocs/batchprocessor"
	"jandocs/core"
	"jandocs/docprocessor"
	"jandocs/logging"
	"jandocs/resourcemonitor"
	"jandocs/shutdown"
	"jandocs/vectorstore"
)

func main() {
	dir := flag.String("dir", ".", "Directory to scan for documents")
	glob := flag.String("glob", "", `Only ingest files whose name matches the pattern, e.g. "*.pdf"`)
	force := flag.Bool("force", false, "Re-ingest files that are already stored")
	workers := flag.Int("workers", 0, "Cap the worker pool (0 lets the scheduler decide)")
	flag.Parse()

	// The .env file is optional here; plain environment variables work
	// the same way they do for the service.
	_ = godotenv.Load()

	os.Exit(run(*dir, *glob, *force, *workers))
}

// run executes one ingestion batch and returns the process exit code.
func run(dir, glob string, force bool, workers int) int {
	cfg, err := core.LoadConfig()
	if err != nil {
		printConfigError(err)
		return core.ExitCodeError
	}
	if err := cfg.EnsureDirectories(); err != nil {
		printConfigError(err)
		return core.ExitCodeError
	}

	// Log to the file only. The terminal belongs to the plan display and
	// the progress bar.
	logger := logging.NewFileLogger(cfg.LogFilePath, logging.DefaultFileWriterConfig())
	defer func() { _ = logger.Sync() }()
	cli := logger.Named("ingest-cli")

	fmt.Printf("jandocs bulk ingest %s\n", core.GetVersion())

	files, err := collectFiles(dir, glob)
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "✗ %v\n", err)
		return core.ExitCodeError
	}
	if len(files) == 0 {
		fmt.Printf("No supported documents found in %s\n", dir)
		return core.ExitCodeSuccess
	}

	engine, store, err := buildPipeline(cfg, workers, logger)
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "✗ %v\n", err)
		return core.ExitCodeError
	}

	plan := engine.CreatePlan(files)
	printPlan(dir, files, plan)

	// First Ctrl+C cancels between files; a second one force-exits.
	manager := shutdown.NewManager(logger.Zap())
	manager.Register("vector-store", 30, func(ctx context.Context) error {
		return store.Close()
	})
	manager.Start()

	cli.Info("batch starting",
		zap.Int("files", len(files)),
		zap.String("mode", plan.Mode.String()),
		zap.Int("workers", plan.WorkerCount),
		zap.Bool("force", force),
	)

	start := time.Now()
	bar := newProgressBar(len(files))

	// Callback invocations are serialized, so no lock is needed here.
	var done int
	onProgress := func(p *batchprocessor.BatchProgress) {
		finished := p.CompletedFiles + p.FailedFiles
		for done < finished {
			_ = bar.Add(1)
			done++
		}
	}

	var final *batchprocessor.BatchProgress
	err = manager.WrapOperation(manager.Context(), "ingest-batch", func(ctx context.Context) error {
		final = engine.ProcessBatch(ctx, filePaths(files), force, onProgress)
		return nil
	})
	interrupted := manager.Context().Err() != nil
	if err != nil {
		// Only a signal that won the race to start can land here.
		cli.Warn("batch never started", zap.Error(err))
	}
	fmt.Println()

	shutdownErr := manager.Shutdown()
	if shutdownErr != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "✗ Cleanup failed: %v\n", shutdownErr)
	}

	printResults(final, time.Since(start), interrupted)

	switch {
	case interrupted:
		return core.ExitCodeSIGINT
	case final == nil || final.FailedFiles > 0 || shutdownErr != nil:
		return core.ExitCodeError
	default:
		return core.ExitCodeSuccess
	}
}

// collectFiles walks dir and keeps the files the extractor can handle,
// optionally narrowed by a base-name glob.
func collectFiles(dir, glob string) ([]core.FileInfo, error) {
	all, err := core.CollectFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	files := make([]core.FileInfo, 0, len(all))
	for _, f := range all {
		if !docprocessor.IsSupportedPath(f.Path) {
			continue
		}
		if glob != "" {
			ok, err := filepath.Match(glob, filepath.Base(f.Path))
			if err != nil {
				return nil, fmt.Errorf("invalid glob %q: %w", glob, err)
			}
			if !ok {
				continue
			}
		}
		files = append(files, f)
	}
	return files, nil
}

// buildPipeline wires the monitor, store, embedder, document processor,
// and batch engine the same way the sidecar's main does, minus the HTTP
// server. A workers override above zero beats both MAX_WORKERS and a
// thresholds override file.
func buildPipeline(cfg *core.Config, workers int, logger *logging.Logger) (*batchprocessor.Processor, *vectorstore.Store, error) {
	mc := resourcemonitor.DefaultMonitorConfig()
	mc.SampleInterval = cfg.MonitorInterval
	mc.TesseractPath = cfg.TesseractPath
	mc.DiskPath = cfg.DataDir
	mc.Thresholds.MaxWorkers = cfg.MaxWorkers

	if cfg.ThresholdsFile != "" {
		thresholds, err := resourcemonitor.LoadThresholds(cfg.ThresholdsFile)
		if err != nil {
			// Not worth failing a one-shot run over; the defaults apply.
			color.New(color.FgYellow).Printf("! Threshold overrides not applied: %v\n", err)
		} else {
			mc.Thresholds = thresholds
		}
	}
	if workers > 0 {
		mc.Thresholds.MaxWorkers = workers
	}

	monitor := resourcemonitor.NewMonitor(mc, logger).
		WithPDFInspector(docprocessor.NewInspector())

	store, err := vectorstore.NewStore(vectorstore.DefaultStoreConfig(cfg.VectorDBPath), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open vector store: %w", err)
	}

	ec := vectorstore.DefaultEmbedderConfig()
	ec.BaseURL = cfg.EmbeddingsURL
	ec.APIKey = cfg.EmbeddingsAPIKey
	ec.Model = cfg.EmbeddingsModel
	ec.HTTPClient = core.GetHTTPClient(cfg, cfg.EmbedTimeout)

	embedder, err := vectorstore.NewEmbedder(ec, logger)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("create embeddings client: %w", err)
	}

	dc := docprocessor.DefaultConfig()
	dc.Extractor.TesseractPath = cfg.TesseractPath
	dc.Extractor.OCRLanguage = cfg.OCRLanguage
	dc.Chunker.ChunkSize = cfg.ChunkSizeTokens
	dc.Chunker.ChunkOverlap = cfg.ChunkOverlapTokens

	ingester, err := docprocessor.New(dc, store, embedder, logger)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("create document processor: %w", err)
	}

	engine, err := batchprocessor.New(batchprocessor.DefaultConfig(), monitor, ingester, logger)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("create batch engine: %w", err)
	}
	return engine, store, nil
}

// filePaths flattens the collected infos into the path list the batch
// engine takes.
func filePaths(files []core.FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

// newProgressBar builds the terminal progress bar for a batch of the
// given size.
func newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Ingesting"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// printPlan renders the processing plan before anything runs, in the
// same visual register as the startup validation suite.
func printPlan(dir string, files []core.FileInfo, plan resourcemonitor.ProcessingPlan) {
	var totalMB float64
	for _, f := range files {
		totalMB += f.SizeMB
	}

	fmt.Println()
	color.New(color.FgCyan, color.Bold).Printf("━━━ Ingestion Plan ━━━\n")
	fmt.Println()
	fmt.Printf("  Directory:  %s\n", dir)
	fmt.Printf("  Files:      %d (%s)\n", len(files), core.FormatMegabytes(totalMB))
	fmt.Printf("  Mode:       %s\n", plan.Mode)
	if !plan.Mode.IsSequential() {
		fmt.Printf("  Workers:    %d\n", plan.WorkerCount)
	}
	estimate := time.Duration(plan.EstimatedTimeSeconds * float64(time.Second))
	fmt.Printf("  Estimated:  ~%s\n", estimate.Round(time.Second))
	if plan.OCRAnalysis != nil && plan.OCRAnalysis.FilesNeedingOCR > 0 {
		fmt.Printf("  OCR files:  %d\n", plan.OCRAnalysis.FilesNeedingOCR)
	}
	for _, w := range plan.Warnings {
		color.New(color.FgYellow).Printf("  ! %s\n", w)
	}
	fmt.Println()
}

// printResults renders the batch outcome, listing failed files with
// their errors. Files the cancellation caught before they started are
// failures in the progress model; they are reported as cancelled here.
func printResults(final *batchprocessor.BatchProgress, elapsed time.Duration, interrupted bool) {
	fmt.Println()
	if final == nil {
		color.New(color.FgYellow, color.Bold).Println("━━━ Interrupted before any file was processed ━━━")
		fmt.Println()
		return
	}

	cancelled := 0
	var failed []*batchprocessor.FileProgress
	for _, f := range final.Files {
		if f.Status != batchprocessor.StatusFailed {
			continue
		}
		if f.ErrorMessage == context.Canceled.Error() {
			cancelled++
			continue
		}
		failed = append(failed, f)
	}

	switch {
	case interrupted:
		color.New(color.FgYellow, color.Bold).Println("━━━ Ingestion Interrupted ━━━")
	case len(failed) > 0:
		color.New(color.FgRed, color.Bold).Println("━━━ Ingestion Finished with Failures ━━━")
	default:
		color.New(color.FgGreen, color.Bold).Println("━━━ Ingestion Complete ━━━")
	}
	fmt.Println()

	color.New(color.FgGreen).Printf("  ✓ Completed:  %d\n", final.CompletedFiles)
	if len(failed) > 0 {
		color.New(color.FgRed).Printf("  ✗ Failed:     %d\n", len(failed))
	}
	if cancelled > 0 {
		color.New(color.FgHiBlack).Printf("  ○ Cancelled:  %d\n", cancelled)
	}
	fmt.Printf("  Chunks:       %d\n", final.TotalChunks)
	fmt.Printf("  Elapsed:      %s\n", elapsed.Round(time.Millisecond))

	for _, f := range failed {
		fmt.Println()
		color.New(color.FgRed).Printf("  ✗ %s\n", f.Filename)
		color.New(color.FgRed).Printf("    └─ %s\n", f.ErrorMessage)
	}
	fmt.Println()
}

// printConfigError writes a configuration error to stderr with its
// action line when one is attached.
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
