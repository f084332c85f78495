// Package docprocessor extracts, chunks, embeds, and indexes documents
// for the jandocs document scheduler.
//
// processor.go implements the Processor organism that orchestrates a full
// ingestion: hash, dedup check, extract, chunk, embed, persist. It
// composes:
//   - extractor.go: per-format text extraction
//   - chunker.go: semantic chunking
//   - DocumentStore and Embedder: the persistence and embedding
//     collaborators, injected at construction
//   - logging.Logger: structured logging
package docprocessor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"jandocs/core"
	"jandocs/logging"

	"go.uber.org/zap"
)

// Construction errors.
var (
	// ErrNilStore indicates New was called without a document store.
	ErrNilStore = errors.New("docprocessor: store must not be nil")

	// ErrNilEmbedder indicates New was called without an embedder.
	ErrNilEmbedder = errors.New("docprocessor: embedder must not be nil")

	// ErrNilLogger indicates New was called without a logger.
	ErrNilLogger = errors.New("docprocessor: logger must not be nil")
)

// DocumentStore persists processed documents and their chunk embeddings.
// Implemented by the vector store.
type DocumentStore interface {
	// HasDocument reports whether a document with this hash is indexed.
	HasDocument(ctx context.Context, docHash string) (bool, error)

	// GetDocument loads an indexed document, chunks included.
	GetDocument(ctx context.Context, docHash string) (*ProcessedDocument, error)

	// AddDocument indexes a document. embeddings[i] belongs to
	// doc.Chunks[i]. Replaces any previous content under the same hash.
	AddDocument(ctx context.Context, doc *ProcessedDocument, embeddings [][]float32) error

	// DeleteDocument removes a document and all its chunks.
	DeleteDocument(ctx context.Context, docHash string) error
}

// Embedder turns chunk texts into embedding vectors, one per input in
// input order.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Config holds configuration for the document processor.
type Config struct {
	// Extractor configures per-format extraction
	Extractor ExtractorConfig

	// Chunker configures semantic chunking
	Chunker ChunkerConfig

	// EmbedBatchSize is how many chunk texts go into one embedding
	// request
	EmbedBatchSize int
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Extractor:      DefaultExtractorConfig(),
		Chunker:        DefaultChunkerConfig(),
		EmbedBatchSize: 32,
	}
}

// Processor is the main interface for document ingestion.
//
// Thread-Safety:
//   - Processor is safe for concurrent use; each Ingest call is
//     independent and per-document state never escapes the call
type Processor struct {
	cfg       Config
	extractor *Extractor
	chunker   *SemanticChunker
	store     DocumentStore
	embedder  Embedder
	logger    *logging.Logger
}

// New creates a Processor with explicit collaborators.
//
// Parameters:
//   - cfg: processor configuration (zero-value fields get defaults)
//   - store: persistence layer for documents and embeddings
//   - embedder: embedding backend for chunk vectors
//   - logger: structured logger
//
// Returns an error if any collaborator is nil.
//
// Example:
//
//	proc, err := docprocessor.New(docprocessor.DefaultConfig(), store, embedder, logger)
//	if err != nil {
//	    return err
//	}
//	doc, err := proc.Ingest(ctx, "/docs/report.pdf", false)
func New(cfg Config, store DocumentStore, embedder Embedder, logger *logging.Logger) (*Processor, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if embedder == nil {
		return nil, ErrNilEmbedder
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = DefaultConfig().EmbedBatchSize
	}

	return &Processor{
		cfg:       cfg,
		extractor: NewExtractor(cfg.Extractor, logger),
		chunker:   NewSemanticChunker(cfg.Chunker),
		store:     store,
		embedder:  embedder,
		logger:    logger.Named("docprocessor"),
	}, nil
}

// OCRAvailable reports whether the Tesseract binary was found. Wire this
// into the resource monitor so capacity planning and extraction agree on
// OCR availability.
func (p *Processor) OCRAvailable() bool {
	return p.extractor.OCRAvailable()
}

// Extractor returns the underlying extractor, for callers that need the
// probe hooks in tests.
func (p *Processor) Extractor() *Extractor {
	return p.extractor
}

// Ingest processes one document end to end and returns its record.
//
// The document is identified by a content hash, so the same bytes under a
// different name dedupe to one index entry. Unless force is set, a hash
// already present in the store short-circuits: the stored record is
// returned with Deduplicated set and nothing is re-extracted. With force,
// the previous index entry is replaced.
//
// Parameters:
//   - ctx: context for cancellation; checked between pipeline stages
//   - path: path to the document
//   - force: re-process even if already indexed
//
// Returns the processed document, or an error from any pipeline stage.
func (p *Processor) Ingest(ctx context.Context, path string, force bool) (*ProcessedDocument, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", path, err)
	}

	docHash, err := core.DocumentID(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, abs)
		}
		return nil, err
	}

	if !force {
		exists, err := p.store.HasDocument(ctx, docHash)
		if err != nil {
			return nil, fmt.Errorf("failed to check index for %q: %w", docHash, err)
		}
		if exists {
			doc, err := p.store.GetDocument(ctx, docHash)
			if err != nil {
				return nil, fmt.Errorf("failed to load indexed document %q: %w", docHash, err)
			}
			doc.Deduplicated = true
			p.logger.Info("document already indexed",
				zap.String("filename", doc.Filename),
				zap.String("doc_hash", docHash))
			return doc, nil
		}
	}

	start := time.Now()
	filename := filepath.Base(abs)
	p.logger.Info("processing document",
		zap.String("filename", filename),
		zap.String("doc_hash", docHash))

	result, err := p.extractor.Extract(ctx, abs)
	if err != nil {
		return nil, err
	}

	if result.OCRUsed {
		p.logger.Info("OCR applied",
			zap.String("filename", filename),
			zap.Int("ocr_pages", result.OCRPages))
	}
	if strings.TrimSpace(result.Text) == "" {
		p.logger.Warn("no text extracted", zap.String("filename", filename))
	}

	chunks := p.chunker.Chunk(result.Text, docHash)

	doc := &ProcessedDocument{
		DocHash:             docHash,
		Filename:            filename,
		FilePath:            abs,
		DocType:             DetectType(abs),
		Chunks:              chunks,
		TotalTokensEstimate: EstimateTokenCount(result.Text),
		ExtractedAt:         time.Now(),
		OCRUsed:             result.OCRUsed,
		OCRPages:            result.OCRPages,
	}

	embeddings, err := p.embedChunks(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to embed %q: %w", filename, err)
	}

	if err := p.store.AddDocument(ctx, doc, embeddings); err != nil {
		return nil, fmt.Errorf("failed to index %q: %w", filename, err)
	}

	p.logger.Info("document indexed",
		zap.String("filename", filename),
		zap.String("doc_hash", docHash),
		zap.Int("chunks", len(chunks)),
		zap.Int("tokens_estimate", doc.TotalTokensEstimate),
		zap.Bool("ocr_used", result.OCRUsed),
		zap.Duration("took", time.Since(start)))

	return doc, nil
}

// embedChunks embeds chunk contents in sub-batches of EmbedBatchSize.
func (p *Processor) embedChunks(ctx context.Context, chunks []DocumentChunk) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	embeddings := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += p.cfg.EmbedBatchSize {
		end := i + p.cfg.EmbedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := p.embedder.EmbedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		if len(batch) != end-i {
			return nil, fmt.Errorf("embedder returned %d vectors for %d inputs", len(batch), end-i)
		}
		embeddings = append(embeddings, batch...)
	}

	return embeddings, nil
}

// IngestDirectory ingests every supported document under dir.
//
// Failures are logged and skipped so one bad file cannot abort a bulk
// import; cancellation is honored between files. Hidden files and
// directories (dot-prefixed) are ignored.
//
// Parameters:
//   - ctx: context for cancellation
//   - dir: directory to scan
//   - recursive: include subdirectories
//   - extensions: optional allow-list (with or without leading dots);
//     empty means every supported extension
//
// Returns the successfully processed documents in path order.
func (p *Processor) IngestDirectory(ctx context.Context, dir string, recursive bool, extensions []string) ([]*ProcessedDocument, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%q is not a directory", dir)
	}

	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.TrimPrefix(strings.ToLower(ext), ".")] = true
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if strings.HasPrefix(d.Name(), ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if !recursive && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %q: %w", dir, err)
	}

	var docs []*ProcessedDocument
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return docs, err
		}
		if !IsSupportedPath(path) {
			continue
		}
		if len(allowed) > 0 && !allowed[core.NormalizeExtension(path)] {
			continue
		}

		doc, err := p.Ingest(ctx, path, false)
		if err != nil {
			p.logger.Error("failed to process document",
				zap.String("path", path),
				zap.Error(err))
			continue
		}
		docs = append(docs, doc)
	}

	return docs, nil
}
