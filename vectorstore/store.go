// Package vectorstore persists processed documents and their chunk
// embeddings in SQLite and serves similarity queries for the jandocs
// document scheduler.
//
// store.go implements the Store organism. It composes:
//   - connection.go: WAL-mode SQLite connection (molecule)
//   - migrate.go: embedded schema migrations (molecule)
//   - embedding.go: float32 BLOB codec and cosine scoring (atoms)
//
// The store keeps two tables: documents (one row per indexed document,
// keyed by content hash) and chunks (one row per chunk with its
// embedding, removed by CASCADE when the document row goes).
package vectorstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"jandocs/core"
	"jandocs/docprocessor"
	"jandocs/logging"

	"go.uber.org/zap"
)

// Store errors.
var (
	// ErrNotFound indicates no document with the requested hash is indexed.
	ErrNotFound = errors.New("vectorstore: document not found")

	// ErrNilLogger indicates a constructor was called without a logger.
	ErrNilLogger = errors.New("vectorstore: logger must not be nil")

	// ErrClosed indicates the store was used after Close.
	ErrClosed = errors.New("vectorstore: store is closed")
)

// DefaultTopK is how many chunks a similarity query returns when the
// caller does not ask for a specific count.
const DefaultTopK = 5

// StoreConfig holds configuration for the vector store.
type StoreConfig struct {
	// Path is the SQLite database file path
	Path string

	// Connection overrides the SQLite connection settings. Nil uses
	// DefaultConnectionConfig for Path.
	Connection *ConnectionConfig
}

// DefaultStoreConfig returns a configuration with default connection
// settings for the given database path.
func DefaultStoreConfig(path string) StoreConfig {
	return StoreConfig{Path: path}
}

// DocumentSummary is the listing view of an indexed document: everything
// except the chunk contents.
type DocumentSummary struct {
	DocHash             string    `json:"doc_hash"`
	Filename            string    `json:"filename"`
	FilePath            string    `json:"file_path"`
	DocType             string    `json:"doc_type"`
	ChunkCount          int       `json:"chunk_count"`
	TotalTokensEstimate int       `json:"total_tokens_estimate"`
	ExtractedAt         time.Time `json:"extracted_at"`
	OCRUsed             bool      `json:"ocr_used"`
	OCRPages            int       `json:"ocr_pages"`
}

// StoreStats summarizes what the store holds.
type StoreStats struct {
	// DocumentsIndexed is the number of indexed documents
	DocumentsIndexed int `json:"documents_indexed"`

	// TotalChunks is the number of stored chunks across all documents
	TotalChunks int `json:"total_chunks"`
}

// QueryResult is one scored chunk returned by a similarity query.
type QueryResult struct {
	ChunkID    string  `json:"chunk_id"`
	DocHash    string  `json:"doc_hash"`
	ChunkIndex int     `json:"chunk_index"`
	Filename   string  `json:"filename"`
	Content    string  `json:"content"`
	StartChar  int     `json:"start_char"`
	EndChar    int     `json:"end_char"`
	Relevance  float64 `json:"relevance_score"`
}

// Store is the SQLite-backed document and embedding store.
//
// Thread-Safety:
//   - Store is safe for concurrent use; SQLite serializes access through
//     the single pooled connection, and the mutex only guards the handle
//     against use after Close
type Store struct {
	db     *sql.DB
	path   string
	logger *logging.Logger
	mu     sync.RWMutex
}

var _ docprocessor.DocumentStore = (*Store)(nil)

// NewStore opens (creating if needed) the vector database at cfg.Path,
// applies pending schema migrations, and returns a ready store.
//
// Parameters:
//   - cfg: store configuration; Path is required
//   - logger: structured logger
//
// Example:
//
//	store, err := vectorstore.NewStore(vectorstore.DefaultStoreConfig("/data/vectors.db"), logger)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
func NewStore(cfg StoreConfig, logger *logging.Logger) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("vectorstore: database path is required")
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	// Ensure the parent directory exists before SQLite touches the path
	dir := filepath.Dir(cfg.Path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	// Migrations run on their own connection; the migrator closes it
	if err := runMigrations(cfg.Path); err != nil {
		return nil, err
	}

	connCfg := DefaultConnectionConfig(cfg.Path)
	if cfg.Connection != nil {
		connCfg = *cfg.Connection
		if connCfg.Path == "" {
			connCfg.Path = cfg.Path
		}
	}

	db, err := openConnection(connCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector database: %w", err)
	}

	s := &Store{
		db:     db,
		path:   cfg.Path,
		logger: logger.Named("vectorstore"),
	}

	stats, err := s.Stats(context.Background())
	if err != nil {
		db.Close()
		return nil, err
	}
	s.logger.Info("vector store ready",
		zap.String("path", cfg.Path),
		zap.Int("documents_indexed", stats.DocumentsIndexed),
		zap.Int("total_chunks", stats.TotalChunks),
	)

	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close releases the database connection. The store must not be used
// after Close.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close vector database: %w", err)
	}
	s.db = nil
	return nil
}

// Ping verifies the database connection is alive. Useful for health
// checks.
func (s *Store) Ping(ctx context.Context) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// conn returns the database handle, or ErrClosed after Close.
func (s *Store) conn() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrClosed
	}
	return s.db, nil
}

// HasDocument reports whether a document with this hash is indexed.
func (s *Store) HasDocument(ctx context.Context, docHash string) (bool, error) {
	db, err := s.conn()
	if err != nil {
		return false, err
	}

	var one int
	err = db.QueryRowContext(ctx, "SELECT 1 FROM documents WHERE doc_hash = ?", docHash).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check document %q: %w", docHash, err)
	}
	return true, nil
}

// GetDocument loads an indexed document with its chunks in document
// order. Returns ErrNotFound if the hash is not indexed.
func (s *Store) GetDocument(ctx context.Context, docHash string) (*docprocessor.ProcessedDocument, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	query := `
		SELECT filename, file_path, doc_type, total_tokens_estimate,
		       ocr_used, ocr_pages, extracted_at
		FROM documents
		WHERE doc_hash = ?`

	var (
		doc         docprocessor.ProcessedDocument
		docType     string
		extractedAt string
	)
	err = db.QueryRowContext(ctx, query, docHash).Scan(
		&doc.Filename,
		&doc.FilePath,
		&docType,
		&doc.TotalTokensEstimate,
		&doc.OCRUsed,
		&doc.OCRPages,
		&extractedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, docHash)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document %q: %w", docHash, err)
	}

	doc.DocHash = docHash
	doc.DocType = docprocessor.DocumentType(docType)
	doc.ExtractedAt, _ = time.Parse(time.RFC3339Nano, extractedAt)

	chunks, err := s.loadChunks(ctx, db, docHash)
	if err != nil {
		return nil, err
	}
	doc.Chunks = chunks

	return &doc, nil
}

// loadChunks reads a document's chunks in document order. Embedding
// blobs stay in the database; readers of a document never need them.
func (s *Store) loadChunks(ctx context.Context, db *sql.DB, docHash string) ([]docprocessor.DocumentChunk, error) {
	query := `
		SELECT chunk_index, content, start_char, end_char, char_count
		FROM chunks
		WHERE doc_hash = ?
		ORDER BY chunk_index`

	rows, err := db.QueryContext(ctx, query, docHash)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks for %q: %w", docHash, err)
	}
	defer rows.Close()

	var chunks []docprocessor.DocumentChunk
	for rows.Next() {
		chunk := docprocessor.DocumentChunk{DocHash: docHash}
		err := rows.Scan(
			&chunk.ChunkIndex,
			&chunk.Content,
			&chunk.Metadata.StartChar,
			&chunk.Metadata.EndChar,
			&chunk.Metadata.CharCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chunk row: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chunk rows: %w", err)
	}

	return chunks, nil
}

// AddDocument indexes a document and its chunk embeddings in one
// transaction. embeddings[i] belongs to doc.Chunks[i]. Any previous
// content under the same hash is replaced, so a forced re-ingest swaps
// the document atomically.
func (s *Store) AddDocument(ctx context.Context, doc *docprocessor.ProcessedDocument, embeddings [][]float32) error {
	if doc == nil {
		return errors.New("vectorstore: document must not be nil")
	}
	if doc.DocHash == "" {
		return errors.New("vectorstore: document hash must not be empty")
	}
	if len(embeddings) != len(doc.Chunks) {
		return fmt.Errorf("vectorstore: %d embeddings for %d chunks", len(embeddings), len(doc.Chunks))
	}

	db, err := s.conn()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			tx.Rollback() // No-op if already committed
		}
	}()

	// The CASCADE on chunks.doc_hash removes old chunks with the
	// document row
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE doc_hash = ?", doc.DocHash); err != nil {
		return fmt.Errorf("failed to clear previous document %q: %w", doc.DocHash, err)
	}

	insertDoc := `
		INSERT INTO documents (
			doc_hash, filename, file_path, doc_type,
			total_tokens_estimate, ocr_used, ocr_pages, extracted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = tx.ExecContext(ctx, insertDoc,
		doc.DocHash,
		doc.Filename,
		doc.FilePath,
		doc.DocType.String(),
		doc.TotalTokensEstimate,
		doc.OCRUsed,
		doc.OCRPages,
		doc.ExtractedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert document %q: %w", doc.DocHash, err)
	}

	insertChunk, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (
			id, doc_hash, chunk_index, content,
			start_char, end_char, char_count, embedding
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer insertChunk.Close()

	for i, chunk := range doc.Chunks {
		_, err := insertChunk.ExecContext(ctx,
			core.ChunkID(doc.DocHash, chunk.ChunkIndex),
			doc.DocHash,
			chunk.ChunkIndex,
			chunk.Content,
			chunk.Metadata.StartChar,
			chunk.Metadata.EndChar,
			chunk.Metadata.CharCount,
			encodeEmbedding(embeddings[i]),
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d of %q: %w", chunk.ChunkIndex, doc.DocHash, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit document %q: %w", doc.DocHash, err)
	}
	tx = nil // Prevent rollback in defer

	s.logger.Debug("document stored",
		zap.String("doc_hash", doc.DocHash),
		zap.String("filename", doc.Filename),
		zap.Int("chunks", len(doc.Chunks)),
	)

	return nil
}

// DeleteDocument removes a document and all its chunks. Returns
// ErrNotFound if the hash is not indexed.
func (s *Store) DeleteDocument(ctx context.Context, docHash string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	result, err := db.ExecContext(ctx, "DELETE FROM documents WHERE doc_hash = ?", docHash)
	if err != nil {
		return fmt.Errorf("failed to delete document %q: %w", docHash, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, docHash)
	}

	s.logger.Info("document deleted", zap.String("doc_hash", docHash))
	return nil
}

// ListDocuments returns a summary of every indexed document, ordered by
// filename.
func (s *Store) ListDocuments(ctx context.Context) ([]DocumentSummary, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	query := `
		SELECT d.doc_hash, d.filename, d.file_path, d.doc_type,
		       d.total_tokens_estimate, d.ocr_used, d.ocr_pages, d.extracted_at,
		       COUNT(c.id)
		FROM documents d
		LEFT JOIN chunks c ON c.doc_hash = d.doc_hash
		GROUP BY d.doc_hash
		ORDER BY d.filename, d.doc_hash`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []DocumentSummary
	for rows.Next() {
		var (
			doc         DocumentSummary
			extractedAt string
		)
		err := rows.Scan(
			&doc.DocHash,
			&doc.Filename,
			&doc.FilePath,
			&doc.DocType,
			&doc.TotalTokensEstimate,
			&doc.OCRUsed,
			&doc.OCRPages,
			&extractedAt,
			&doc.ChunkCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		doc.ExtractedAt, _ = time.Parse(time.RFC3339Nano, extractedAt)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document rows: %w", err)
	}

	return docs, nil
}

// Stats returns document and chunk totals.
func (s *Store) Stats(ctx context.Context) (StoreStats, error) {
	var stats StoreStats

	db, err := s.conn()
	if err != nil {
		return stats, err
	}

	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&stats.DocumentsIndexed); err != nil {
		return stats, fmt.Errorf("failed to count documents: %w", err)
	}
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&stats.TotalChunks); err != nil {
		return stats, fmt.Errorf("failed to count chunks: %w", err)
	}

	return stats, nil
}

// Query scores stored chunks against the query embedding by cosine
// similarity and returns the topK best, highest relevance first. Pass
// docHash to restrict the search to one document, or "" for all. topK
// values below 1 fall back to DefaultTopK.
//
// Scoring is a linear scan over the candidate chunks in Go.
func (s *Store) Query(ctx context.Context, embedding []float32, topK int, docHash string) ([]QueryResult, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	query := `
		SELECT c.id, c.doc_hash, c.chunk_index, c.content,
		       c.start_char, c.end_char, c.embedding, d.filename
		FROM chunks c
		JOIN documents d ON d.doc_hash = c.doc_hash`
	args := []interface{}{}
	if docHash != "" {
		query += " WHERE c.doc_hash = ?"
		args = append(args, docHash)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var results []QueryResult
	for rows.Next() {
		var (
			r    QueryResult
			blob []byte
		)
		err := rows.Scan(
			&r.ChunkID,
			&r.DocHash,
			&r.ChunkIndex,
			&r.Content,
			&r.StartChar,
			&r.EndChar,
			&blob,
			&r.Filename,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chunk row: %w", err)
		}

		vec, err := decodeEmbedding(blob)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", r.ChunkID, err)
		}
		r.Relevance = CosineSimilarity(embedding, vec)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chunk rows: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Relevance != results[j].Relevance {
			return results[i].Relevance > results[j].Relevance
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	if len(results) > topK {
		results = results[:topK]
	}

	return results, nil
}
