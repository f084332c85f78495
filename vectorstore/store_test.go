package vectorstore

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"jandocs/docprocessor"
	"jandocs/logging"
)

func newTestLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.NewLogger(false, filepath.Join(t.TempDir(), "test.log"))
	if err != nil {
		t.Fatalf("NewLogger() returned error: %v", err)
	}
	return logger
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(DefaultStoreConfig(filepath.Join(t.TempDir(), "vectors.db")), newTestLogger(t))
	if err != nil {
		t.Fatalf("NewStore() returned error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// testDocument builds a processed document with one chunk per content
// string, offsets laid out back to back.
func testDocument(hash string, contents ...string) *docprocessor.ProcessedDocument {
	doc := &docprocessor.ProcessedDocument{
		DocHash:             hash,
		Filename:            hash + ".txt",
		FilePath:            "/docs/" + hash + ".txt",
		DocType:             docprocessor.TypeTXT,
		TotalTokensEstimate: 42,
		ExtractedAt:         time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
	}
	offset := 0
	for i, content := range contents {
		doc.Chunks = append(doc.Chunks, docprocessor.DocumentChunk{
			Content: content,
			Metadata: docprocessor.ChunkMetadata{
				StartChar: offset,
				EndChar:   offset + len(content),
				CharCount: len(content),
			},
			ChunkIndex: i,
			DocHash:    hash,
		})
		offset += len(content)
	}
	return doc
}

// testEmbeddings returns n distinct two-dimensional vectors.
func testEmbeddings(n int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{float32(i), 1}
	}
	return out
}

func TestNewStore_RequiresPath(t *testing.T) {
	_, err := NewStore(StoreConfig{}, newTestLogger(t))
	if err == nil {
		t.Fatal("NewStore() with empty path should return error")
	}
}

func TestNewStore_RequiresLogger(t *testing.T) {
	_, err := NewStore(DefaultStoreConfig(filepath.Join(t.TempDir(), "vectors.db")), nil)
	if !errors.Is(err, ErrNilLogger) {
		t.Errorf("NewStore() error = %v, want ErrNilLogger", err)
	}
}

func TestNewStore_CreatesDatabaseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "vectors.db")

	store, err := NewStore(DefaultStoreConfig(path), newTestLogger(t))
	if err != nil {
		t.Fatalf("NewStore() returned error: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file not created: %v", err)
	}
	if got := store.Path(); got != path {
		t.Errorf("Path() = %q, want %q", got, path)
	}
}

func TestStore_AddAndGetDocument(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := testDocument("deadbeef00112233", "first chunk text.", "second chunk text.")
	doc.OCRUsed = true
	doc.OCRPages = 3

	if err := store.AddDocument(ctx, doc, testEmbeddings(2)); err != nil {
		t.Fatalf("AddDocument() returned error: %v", err)
	}

	got, err := store.GetDocument(ctx, doc.DocHash)
	if err != nil {
		t.Fatalf("GetDocument() returned error: %v", err)
	}

	if got.DocHash != doc.DocHash {
		t.Errorf("DocHash = %q, want %q", got.DocHash, doc.DocHash)
	}
	if got.Filename != doc.Filename {
		t.Errorf("Filename = %q, want %q", got.Filename, doc.Filename)
	}
	if got.FilePath != doc.FilePath {
		t.Errorf("FilePath = %q, want %q", got.FilePath, doc.FilePath)
	}
	if got.DocType != docprocessor.TypeTXT {
		t.Errorf("DocType = %q, want %q", got.DocType, docprocessor.TypeTXT)
	}
	if got.TotalTokensEstimate != doc.TotalTokensEstimate {
		t.Errorf("TotalTokensEstimate = %d, want %d", got.TotalTokensEstimate, doc.TotalTokensEstimate)
	}
	if !got.OCRUsed {
		t.Error("OCRUsed = false, want true")
	}
	if got.OCRPages != 3 {
		t.Errorf("OCRPages = %d, want 3", got.OCRPages)
	}
	if !got.ExtractedAt.Equal(doc.ExtractedAt) {
		t.Errorf("ExtractedAt = %v, want %v", got.ExtractedAt, doc.ExtractedAt)
	}

	if len(got.Chunks) != 2 {
		t.Fatalf("len(Chunks) = %d, want 2", len(got.Chunks))
	}
	for i, chunk := range got.Chunks {
		want := doc.Chunks[i]
		if chunk.Content != want.Content {
			t.Errorf("chunk %d Content = %q, want %q", i, chunk.Content, want.Content)
		}
		if chunk.ChunkIndex != i {
			t.Errorf("chunk %d ChunkIndex = %d", i, chunk.ChunkIndex)
		}
		if chunk.DocHash != doc.DocHash {
			t.Errorf("chunk %d DocHash = %q, want %q", i, chunk.DocHash, doc.DocHash)
		}
		if chunk.Metadata != want.Metadata {
			t.Errorf("chunk %d Metadata = %+v, want %+v", i, chunk.Metadata, want.Metadata)
		}
	}
	if got.Chunks[0].ID() != "deadbeef00112233_0" {
		t.Errorf("chunk ID = %q, want %q", got.Chunks[0].ID(), "deadbeef00112233_0")
	}
}

func TestStore_HasDocument(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	has, err := store.HasDocument(ctx, "deadbeef00112233")
	if err != nil {
		t.Fatalf("HasDocument() returned error: %v", err)
	}
	if has {
		t.Error("HasDocument() = true before AddDocument")
	}

	doc := testDocument("deadbeef00112233", "some content.")
	if err := store.AddDocument(ctx, doc, testEmbeddings(1)); err != nil {
		t.Fatalf("AddDocument() returned error: %v", err)
	}

	has, err = store.HasDocument(ctx, doc.DocHash)
	if err != nil {
		t.Fatalf("HasDocument() returned error: %v", err)
	}
	if !has {
		t.Error("HasDocument() = false after AddDocument")
	}

	has, err = store.HasDocument(ctx, "cafebabe44556677")
	if err != nil {
		t.Fatalf("HasDocument() returned error: %v", err)
	}
	if has {
		t.Error("HasDocument() = true for unknown hash")
	}
}

func TestStore_GetDocument_Missing(t *testing.T) {
	store := newTestStore(t)

	doc, err := store.GetDocument(context.Background(), "cafebabe44556677")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDocument() error = %v, want ErrNotFound", err)
	}
	if doc != nil {
		t.Errorf("GetDocument() = %+v, want nil", doc)
	}
}

func TestStore_AddDocument_ReplacesExisting(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := testDocument("deadbeef00112233", "one.", "two.", "three.")
	if err := store.AddDocument(ctx, first, testEmbeddings(3)); err != nil {
		t.Fatalf("AddDocument() returned error: %v", err)
	}

	second := testDocument("deadbeef00112233", "replacement chunk.")
	second.Filename = "renamed.txt"
	if err := store.AddDocument(ctx, second, testEmbeddings(1)); err != nil {
		t.Fatalf("AddDocument() replace returned error: %v", err)
	}

	got, err := store.GetDocument(ctx, "deadbeef00112233")
	if err != nil {
		t.Fatalf("GetDocument() returned error: %v", err)
	}
	if got.Filename != "renamed.txt" {
		t.Errorf("Filename = %q, want %q", got.Filename, "renamed.txt")
	}
	if len(got.Chunks) != 1 {
		t.Fatalf("len(Chunks) = %d, want 1", len(got.Chunks))
	}
	if got.Chunks[0].Content != "replacement chunk." {
		t.Errorf("chunk Content = %q, want %q", got.Chunks[0].Content, "replacement chunk.")
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() returned error: %v", err)
	}
	if stats.DocumentsIndexed != 1 {
		t.Errorf("DocumentsIndexed = %d, want 1", stats.DocumentsIndexed)
	}
	if stats.TotalChunks != 1 {
		t.Errorf("TotalChunks = %d, want 1; old chunks not replaced", stats.TotalChunks)
	}
}

func TestStore_AddDocument_EmbeddingCountMismatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := testDocument("deadbeef00112233", "one.", "two.")
	err := store.AddDocument(ctx, doc, testEmbeddings(1))
	if err == nil {
		t.Fatal("AddDocument() with mismatched embeddings should return error")
	}
	if !strings.Contains(err.Error(), "1 embeddings for 2 chunks") {
		t.Errorf("error = %v, want mention of the count mismatch", err)
	}

	has, err := store.HasDocument(ctx, doc.DocHash)
	if err != nil {
		t.Fatalf("HasDocument() returned error: %v", err)
	}
	if has {
		t.Error("document indexed despite embedding mismatch")
	}
}

func TestStore_AddDocument_Invalid(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.AddDocument(ctx, nil, nil); err == nil {
		t.Error("AddDocument(nil) should return error")
	}
	if err := store.AddDocument(ctx, testDocument(""), testEmbeddings(0)); err == nil {
		t.Error("AddDocument() with empty hash should return error")
	}
}

func TestStore_DeleteDocument(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := testDocument("deadbeef00112233", "one.", "two.")
	if err := store.AddDocument(ctx, doc, testEmbeddings(2)); err != nil {
		t.Fatalf("AddDocument() returned error: %v", err)
	}

	if err := store.DeleteDocument(ctx, doc.DocHash); err != nil {
		t.Fatalf("DeleteDocument() returned error: %v", err)
	}

	has, err := store.HasDocument(ctx, doc.DocHash)
	if err != nil {
		t.Fatalf("HasDocument() returned error: %v", err)
	}
	if has {
		t.Error("HasDocument() = true after delete")
	}

	// The CASCADE must take the chunks with the document row
	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() returned error: %v", err)
	}
	if stats.TotalChunks != 0 {
		t.Errorf("TotalChunks = %d after delete, want 0", stats.TotalChunks)
	}
}

func TestStore_DeleteDocument_Missing(t *testing.T) {
	store := newTestStore(t)

	err := store.DeleteDocument(context.Background(), "cafebabe44556677")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteDocument() error = %v, want ErrNotFound", err)
	}
}

func TestStore_ListDocuments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	beta := testDocument("1b1b1b1b1b1b1b1b", "beta one.", "beta two.")
	beta.Filename = "beta.txt"
	if err := store.AddDocument(ctx, beta, testEmbeddings(2)); err != nil {
		t.Fatalf("AddDocument() returned error: %v", err)
	}

	alpha := testDocument("0a0a0a0a0a0a0a0a", "alpha content.")
	alpha.Filename = "alpha.txt"
	if err := store.AddDocument(ctx, alpha, testEmbeddings(1)); err != nil {
		t.Fatalf("AddDocument() returned error: %v", err)
	}

	empty := testDocument("2c2c2c2c2c2c2c2c")
	empty.Filename = "empty.txt"
	if err := store.AddDocument(ctx, empty, testEmbeddings(0)); err != nil {
		t.Fatalf("AddDocument() returned error: %v", err)
	}

	docs, err := store.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("ListDocuments() returned error: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("len(docs) = %d, want 3", len(docs))
	}

	// Ordered by filename
	wantOrder := []string{"alpha.txt", "beta.txt", "empty.txt"}
	for i, want := range wantOrder {
		if docs[i].Filename != want {
			t.Errorf("docs[%d].Filename = %q, want %q", i, docs[i].Filename, want)
		}
	}

	if docs[0].DocHash != "0a0a0a0a0a0a0a0a" {
		t.Errorf("docs[0].DocHash = %q, want %q", docs[0].DocHash, "0a0a0a0a0a0a0a0a")
	}
	if docs[0].ChunkCount != 1 {
		t.Errorf("docs[0].ChunkCount = %d, want 1", docs[0].ChunkCount)
	}
	if docs[1].ChunkCount != 2 {
		t.Errorf("docs[1].ChunkCount = %d, want 2", docs[1].ChunkCount)
	}
	if docs[2].ChunkCount != 0 {
		t.Errorf("docs[2].ChunkCount = %d, want 0", docs[2].ChunkCount)
	}
	if docs[0].DocType != "txt" {
		t.Errorf("docs[0].DocType = %q, want %q", docs[0].DocType, "txt")
	}
	if docs[0].TotalTokensEstimate != 42 {
		t.Errorf("docs[0].TotalTokensEstimate = %d, want 42", docs[0].TotalTokensEstimate)
	}
	if !docs[0].ExtractedAt.Equal(alpha.ExtractedAt) {
		t.Errorf("docs[0].ExtractedAt = %v, want %v", docs[0].ExtractedAt, alpha.ExtractedAt)
	}
}

func TestStore_ListDocuments_Empty(t *testing.T) {
	store := newTestStore(t)

	docs, err := store.ListDocuments(context.Background())
	if err != nil {
		t.Fatalf("ListDocuments() returned error: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("len(docs) = %d, want 0", len(docs))
	}
}

func TestStore_Stats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() returned error: %v", err)
	}
	if stats.DocumentsIndexed != 0 || stats.TotalChunks != 0 {
		t.Errorf("empty store Stats() = %+v, want zeros", stats)
	}

	if err := store.AddDocument(ctx, testDocument("deadbeef00112233", "a.", "b."), testEmbeddings(2)); err != nil {
		t.Fatalf("AddDocument() returned error: %v", err)
	}
	if err := store.AddDocument(ctx, testDocument("cafebabe44556677", "c.", "d.", "e."), testEmbeddings(3)); err != nil {
		t.Fatalf("AddDocument() returned error: %v", err)
	}

	stats, err = store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() returned error: %v", err)
	}
	if stats.DocumentsIndexed != 2 {
		t.Errorf("DocumentsIndexed = %d, want 2", stats.DocumentsIndexed)
	}
	if stats.TotalChunks != 5 {
		t.Errorf("TotalChunks = %d, want 5", stats.TotalChunks)
	}
}

func TestStore_Query_RanksByCosine(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := testDocument("deadbeef00112233", "exact match.", "partial match.", "unrelated.")
	embeddings := [][]float32{
		{1, 0},
		{0.6, 0.8},
		{0, 1},
	}
	if err := store.AddDocument(ctx, doc, embeddings); err != nil {
		t.Fatalf("AddDocument() returned error: %v", err)
	}

	results, err := store.Query(ctx, []float32{1, 0}, 10, "")
	if err != nil {
		t.Fatalf("Query() returned error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}

	wantOrder := []string{"exact match.", "partial match.", "unrelated."}
	wantScores := []float64{1.0, 0.6, 0.0}
	for i := range wantOrder {
		if results[i].Content != wantOrder[i] {
			t.Errorf("results[%d].Content = %q, want %q", i, results[i].Content, wantOrder[i])
		}
		if math.Abs(results[i].Relevance-wantScores[i]) > 1e-6 {
			t.Errorf("results[%d].Relevance = %v, want %v", i, results[i].Relevance, wantScores[i])
		}
	}

	top := results[0]
	if top.ChunkID != "deadbeef00112233_0" {
		t.Errorf("ChunkID = %q, want %q", top.ChunkID, "deadbeef00112233_0")
	}
	if top.DocHash != "deadbeef00112233" {
		t.Errorf("DocHash = %q, want %q", top.DocHash, "deadbeef00112233")
	}
	if top.ChunkIndex != 0 {
		t.Errorf("ChunkIndex = %d, want 0", top.ChunkIndex)
	}
	if top.Filename != doc.Filename {
		t.Errorf("Filename = %q, want %q", top.Filename, doc.Filename)
	}
	if top.StartChar != 0 || top.EndChar != len("exact match.") {
		t.Errorf("offsets = [%d, %d), want [0, %d)", top.StartChar, top.EndChar, len("exact match."))
	}
}

func TestStore_Query_FilterByDocument(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	near := testDocument("deadbeef00112233", "near the query.")
	if err := store.AddDocument(ctx, near, [][]float32{{1, 0}}); err != nil {
		t.Fatalf("AddDocument() returned error: %v", err)
	}

	far := testDocument("cafebabe44556677", "far one.", "far two.")
	if err := store.AddDocument(ctx, far, [][]float32{{0, 1}, {0, 1}}); err != nil {
		t.Fatalf("AddDocument() returned error: %v", err)
	}

	results, err := store.Query(ctx, []float32{1, 0}, 10, "cafebabe44556677")
	if err != nil {
		t.Fatalf("Query() returned error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	for i, r := range results {
		if r.DocHash != "cafebabe44556677" {
			t.Errorf("results[%d].DocHash = %q, filter not applied", i, r.DocHash)
		}
	}
}

func TestStore_Query_DefaultTopK(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := testDocument("deadbeef00112233", "a.", "b.", "c.", "d.", "e.", "f.", "g.")
	embeddings := make([][]float32, 7)
	for i := range embeddings {
		embeddings[i] = []float32{1, 0}
	}
	if err := store.AddDocument(ctx, doc, embeddings); err != nil {
		t.Fatalf("AddDocument() returned error: %v", err)
	}

	results, err := store.Query(ctx, []float32{1, 0}, 0, "")
	if err != nil {
		t.Fatalf("Query() returned error: %v", err)
	}
	if len(results) != DefaultTopK {
		t.Fatalf("len(results) = %d, want %d", len(results), DefaultTopK)
	}

	// Equal scores fall back to chunk ID order
	if results[0].ChunkID != "deadbeef00112233_0" {
		t.Errorf("results[0].ChunkID = %q, want %q", results[0].ChunkID, "deadbeef00112233_0")
	}
}

func TestStore_Query_EmptyStore(t *testing.T) {
	store := newTestStore(t)

	results, err := store.Query(context.Background(), []float32{1, 0}, 5, "")
	if err != nil {
		t.Fatalf("Query() returned error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("len(results) = %d, want 0", len(results))
	}
}

func TestStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")
	ctx := context.Background()

	store, err := NewStore(DefaultStoreConfig(path), newTestLogger(t))
	if err != nil {
		t.Fatalf("NewStore() returned error: %v", err)
	}
	doc := testDocument("deadbeef00112233", "persistent content.")
	if err := store.AddDocument(ctx, doc, testEmbeddings(1)); err != nil {
		t.Fatalf("AddDocument() returned error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() returned error: %v", err)
	}

	reopened, err := NewStore(DefaultStoreConfig(path), newTestLogger(t))
	if err != nil {
		t.Fatalf("NewStore() reopen returned error: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.GetDocument(ctx, doc.DocHash)
	if err != nil {
		t.Fatalf("GetDocument() after reopen returned error: %v", err)
	}
	if len(got.Chunks) != 1 || got.Chunks[0].Content != "persistent content." {
		t.Errorf("reopened document = %+v, want the stored chunk back", got)
	}
}

func TestStore_UseAfterClose(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping() before close returned error: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("Close() returned error: %v", err)
	}

	if err := store.Ping(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Ping() after close error = %v, want ErrClosed", err)
	}
	if _, err := store.HasDocument(ctx, "deadbeef00112233"); !errors.Is(err, ErrClosed) {
		t.Errorf("HasDocument() after close error = %v, want ErrClosed", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("second Close() returned error: %v", err)
	}
}
