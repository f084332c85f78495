package resourcemonitor

import (
	"encoding/json"
	"fmt"
	"sort"

	"jandocs/core"
)

// Throughput constants for wall-clock estimation. These are coarse
// figures for local extraction and embedding on consumer hardware.
const (
	// extractionMBPerSec approximates PDF/DOCX text extraction speed
	extractionMBPerSec = 5.0
	// embeddingChunksPerSec approximates local embedding throughput
	embeddingChunksPerSec = 10.0
	// perFileOverheadSec covers hashing, storage, and coordination
	perFileOverheadSec = 0.5
)

// ProcessingPlan is the scheduling decision for one batch. It is
// constructed once by the plan builder and consumed once by the batch
// engine; nothing mutates it after construction.
type ProcessingPlan struct {
	// Mode selects sequential or pooled execution
	Mode ProcessingMode
	// WorkerCount is the pool size for parallel modes
	WorkerCount int
	// BatchSize is how many files may be in flight at once
	BatchSize int
	// EstimatedTimeSeconds is the rough wall-clock estimate
	EstimatedTimeSeconds float64
	// FileOrder is the planned processing order, a permutation of the
	// input paths: non-OCR files first, then OCR files small to large
	FileOrder []string
	// Warnings carries capacity and OCR warnings for the UI
	Warnings []string
	// OCRAnalysis is the batch OCR aggregate the plan was built from
	OCRAnalysis *BatchOCRAnalysis
}

// MarshalJSON renders the plan for transport, with the time estimate
// rounded to one decimal place.
func (p ProcessingPlan) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Mode                 ProcessingMode    `json:"mode"`
		WorkerCount          int               `json:"worker_count"`
		BatchSize            int               `json:"batch_size"`
		EstimatedTimeSeconds float64           `json:"estimated_time_seconds"`
		FileOrder            []string          `json:"file_order"`
		Warnings             []string          `json:"warnings"`
		OCRAnalysis          *BatchOCRAnalysis `json:"ocr_analysis"`
	}{
		Mode:                 p.Mode,
		WorkerCount:          p.WorkerCount,
		BatchSize:            p.BatchSize,
		EstimatedTimeSeconds: round1(p.EstimatedTimeSeconds),
		FileOrder:            p.FileOrder,
		Warnings:             p.Warnings,
		OCRAnalysis:          p.OCRAnalysis,
	})
}

// EstimateChunks guesses how many chunks a file will produce from its
// size alone, assuming roughly 10% of the bytes are extractable text
// and about 4KB of text per chunk (1000 tokens at 4 characters each).
// The floor is one chunk.
//
// This is a pure function used for planning only; the real chunk count
// comes from the chunker during ingestion.
func EstimateChunks(sizeMB float64) int {
	chunks := int(sizeMB * 1024 * 0.1 / 4)
	if chunks < 1 {
		return 1
	}
	return chunks
}

// EstimateProcessingTime predicts wall-clock seconds for a batch from
// file sizes, chunk estimates, and the worker count. Extraction and
// embedding scale with parallelism; the per-file overhead does not.
// The floor is one second.
//
// This is a pure function of its inputs.
func EstimateProcessingTime(fileSizesMB []float64, chunkEstimates []int, workers int) float64 {
	if workers < 1 {
		workers = 1
	}

	var totalMB float64
	for _, size := range fileSizesMB {
		totalMB += size
	}
	var totalChunks int
	for _, chunks := range chunkEstimates {
		totalChunks += chunks
	}

	extractionTime := totalMB / extractionMBPerSec
	embeddingTime := float64(totalChunks) / embeddingChunksPerSec

	estimated := (extractionTime+embeddingTime)/float64(workers) +
		float64(len(fileSizesMB))*perFileOverheadSec

	if estimated < 1.0 {
		return 1.0
	}
	return estimated
}

// CreatePlan builds the processing plan for a batch using a fresh
// resource snapshot. See PlanForSnapshot for the algorithm.
func (m *Monitor) CreatePlan(files []core.FileInfo) ProcessingPlan {
	return m.PlanForSnapshot(m.Snapshot(), files)
}

// PlanForSnapshot builds the processing plan for a batch against the
// given snapshot:
//
//  1. Resolve baseline capacity from the snapshot.
//  2. Analyze the batch's OCR load.
//  3. If the batch is OCR-heavy, clamp the worker count to the OCR
//     ceiling. OCR is CPU-bound and single-threaded per page, so extra
//     workers thrash rather than speed it up.
//  4. Order files non-OCR first, then by estimated OCR pages, then by
//     size, so fast results surface first for incremental UIs.
//  5. Warn about files over the size limit without dropping them.
//  6. Estimate wall-clock time, including OCR page cost.
//
// The plan is deterministic for a given snapshot and file list.
func (m *Monitor) PlanForSnapshot(snap ResourceSnapshot, files []core.FileInfo) ProcessingPlan {
	capacity := m.LoadCapacity(snap)
	warnings := append([]string{}, capacity.Warnings...)

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	ocrAnalysis := m.AnalyzeBatchOCR(paths)

	if !capacity.OCRAvailable && ocrAnalysis.FilesNeedingOCR > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"Tesseract not installed - %d file(s) with images/scanned content may not be fully processed",
			ocrAnalysis.FilesNeedingOCR))
	}

	workers := capacity.RecommendedWorkers
	mode := capacity.RecommendedMode
	if ocrAnalysis.IsOCRHeavy {
		if ceiling := m.cfg.Thresholds.OCRMaxParallelWorkers; workers > ceiling {
			warnings = append(warnings, fmt.Sprintf(
				"OCR-heavy batch - reducing workers from %d to %d to manage CPU load",
				workers, ceiling))
			workers = ceiling
		}
		if workers <= 1 {
			mode = ModeOCRSequential
		} else {
			mode = ModeParallel
		}
	}

	ordered := orderFiles(files, ocrAnalysis.Files)

	oversized := 0
	for _, f := range files {
		if f.SizeMB > float64(capacity.MaxFileSizeMB) {
			oversized++
		}
	}
	if oversized > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"%d file(s) exceed recommended size limit (%dMB) - processing may be slow",
			oversized, capacity.MaxFileSizeMB))
	}

	sizes := make([]float64, len(ordered))
	chunks := make([]int, len(ordered))
	fileOrder := make([]string, len(ordered))
	for i, f := range ordered {
		sizes[i] = f.SizeMB
		chunks[i] = EstimateChunks(f.SizeMB)
		fileOrder[i] = f.Path
	}

	estimatedTime := EstimateProcessingTime(sizes, chunks, capacity.RecommendedWorkers)
	if ocrAnalysis.EstimatedOCRPages > 0 {
		ocrTime := float64(ocrAnalysis.EstimatedOCRPages) * m.cfg.Thresholds.OCRPageTimeSeconds
		estimatedTime += ocrTime / float64(workers)
	}

	batchSize := 1
	if !mode.IsSequential() {
		batchSize = capacity.MaxConcurrentFiles
		if len(files) < batchSize {
			batchSize = len(files)
		}
	}

	return ProcessingPlan{
		Mode:                 mode,
		WorkerCount:          workers,
		BatchSize:            batchSize,
		EstimatedTimeSeconds: estimatedTime,
		FileOrder:            fileOrder,
		Warnings:             warnings,
		OCRAnalysis:          &ocrAnalysis,
	}
}

// orderFiles sorts the batch for processing: non-OCR files first, then
// OCR files by estimated page count, then by size. The sort is stable,
// so equal files keep their input order, and the result is always a
// permutation of the input.
func orderFiles(files []core.FileInfo, analyses []FileOCRAnalysis) []core.FileInfo {
	byPath := make(map[string]FileOCRAnalysis, len(analyses))
	for _, a := range analyses {
		byPath[a.Path] = a
	}

	type rankedFile struct {
		core.FileInfo
		ocrPriority int
		ocrPages    int
	}

	ranked := make([]rankedFile, len(files))
	for i, f := range files {
		ranked[i] = rankedFile{FileInfo: f}
		if a, ok := byPath[f.Path]; ok {
			if a.OCRRequirement != OCRNone {
				ranked[i].ocrPriority = 1
			}
			ranked[i].ocrPages = a.EstimatedOCRPages
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].ocrPriority != ranked[j].ocrPriority {
			return ranked[i].ocrPriority < ranked[j].ocrPriority
		}
		if ranked[i].ocrPages != ranked[j].ocrPages {
			return ranked[i].ocrPages < ranked[j].ocrPages
		}
		return ranked[i].SizeMB < ranked[j].SizeMB
	})

	ordered := make([]core.FileInfo, len(ranked))
	for i, r := range ranked {
		ordered[i] = r.FileInfo
	}
	return ordered
}
