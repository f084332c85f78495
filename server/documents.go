// Package server exposes the document scheduler over a localhost JSON
// API for the Jan desktop client.
//
// documents.go implements the document endpoint handlers: uploads,
// background batches, listing, deletion, stats, and similarity queries.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"jandocs/docprocessor"
	"jandocs/resourcemonitor"
	"jandocs/vectorstore"
)

// uploadMemoryLimit caps how much of a multipart body is held in memory
// before the rest spills to temporary files.
const uploadMemoryLimit = 32 << 20

// UploadResponse represents the JSON response for POST /documents.
type UploadResponse struct {
	Success        bool   `json:"success"`
	DocHash        string `json:"doc_hash"`
	Filename       string `json:"filename"`
	Chunks         int    `json:"chunks"`
	TokensEstimate int    `json:"tokens_estimate"`
	Message        string `json:"message"`
}

// HandleDocuments handles /documents requests: POST uploads and indexes
// one document, GET lists the indexed documents.
func (api *API) HandleDocuments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		api.handleUpload(w, r)
	case http.MethodGet:
		api.handleList(w, r)
	default:
		api.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleUpload stages the uploaded file under its original name and
// runs it through the ingester. The staged copy is removed when the
// request finishes; the store holds the extracted content by then.
func (api *API) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(uploadMemoryLimit); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		api.writeError(w, r, http.StatusBadRequest, `multipart field "file" is required`)
		return
	}
	header := headers[0]

	if !docprocessor.IsSupportedPath(header.Filename) {
		api.writeError(w, r, http.StatusBadRequest, unsupportedTypeMessage(header.Filename))
		return
	}

	force, _ := strconv.ParseBool(r.FormValue("force_reindex"))

	dir, err := api.newUploadDir()
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	defer os.RemoveAll(dir)

	path, err := stageUpload(header, dir)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	doc, err := api.ingester.Ingest(r.Context(), path, force)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	api.writeJSON(w, http.StatusOK, UploadResponse{
		Success:        true,
		DocHash:        doc.DocHash,
		Filename:       doc.Filename,
		Chunks:         doc.ChunkCount(),
		TokensEstimate: doc.TotalTokensEstimate,
		Message:        fmt.Sprintf("Indexed %s: %d chunks", doc.Filename, doc.ChunkCount()),
	})
}

// DocumentsResponse represents the JSON response for GET /documents.
type DocumentsResponse struct {
	Documents []vectorstore.DocumentSummary `json:"documents"`
	Total     int                           `json:"total"`
}

// handleList returns every indexed document.
func (api *API) handleList(w http.ResponseWriter, r *http.Request) {
	documents, err := api.store.ListDocuments(r.Context())
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	if documents == nil {
		documents = []vectorstore.DocumentSummary{}
	}

	api.writeJSON(w, http.StatusOK, DocumentsResponse{
		Documents: documents,
		Total:     len(documents),
	})
}

// DeleteResponse represents the JSON response for DELETE /documents/{hash}.
type DeleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HandleDocumentByHash handles /documents/{hash} requests. DELETE
// removes the document and all of its chunks.
func (api *API) HandleDocumentByHash(w http.ResponseWriter, r *http.Request) {
	docHash := strings.TrimPrefix(r.URL.Path, "/documents/")
	if docHash == "" || strings.Contains(docHash, "/") {
		api.writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodDelete {
		api.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	err := api.store.DeleteDocument(r.Context(), docHash)
	switch {
	case errors.Is(err, vectorstore.ErrNotFound):
		api.writeError(w, r, http.StatusNotFound, fmt.Sprintf("Document not found: %s", docHash))
		return
	case err != nil:
		api.writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	api.writeJSON(w, http.StatusOK, DeleteResponse{
		Success: true,
		Message: fmt.Sprintf("Removed document: %s", docHash),
	})
}

// BatchAcceptedResponse represents the JSON response for POST
// /documents/batch. The batch runs in the background; clients poll
// GET /documents/batch/{id} with the returned ID.
type BatchAcceptedResponse struct {
	BatchID              string                         `json:"batch_id"`
	TotalFiles           int                            `json:"total_files"`
	ProcessingMode       resourcemonitor.ProcessingMode `json:"processing_mode"`
	WorkerCount          int                            `json:"worker_count"`
	EstimatedTimeSeconds float64                        `json:"estimated_time_seconds"`
	OCRFiles             int                            `json:"ocr_files"`
	Warnings             []string                       `json:"warnings"`
}

// HandleBatch handles POST /documents/batch requests. Uploads with
// unsupported extensions are skipped with a log line, the same way the
// engine skips invalid paths. Staged files are removed once the batch
// delivers its final result.
func (api *API) HandleBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := r.ParseMultipartForm(uploadMemoryLimit); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}

	var supported []*multipart.FileHeader
	for _, header := range r.MultipartForm.File["files"] {
		if !docprocessor.IsSupportedPath(header.Filename) {
			api.logger.Warn("skipping unsupported upload",
				zap.String("filename", header.Filename))
			continue
		}
		supported = append(supported, header)
	}
	if len(supported) == 0 {
		api.writeError(w, r, http.StatusBadRequest,
			fmt.Sprintf("No valid files. Supported: %s",
				strings.Join(docprocessor.SupportedExtensions(), ", ")))
		return
	}

	force, _ := strconv.ParseBool(r.FormValue("force_reindex"))

	dir, err := api.newUploadDir()
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	// One subdirectory per upload, so a batch may contain files that
	// share a base name.
	paths := make([]string, 0, len(supported))
	for i, header := range supported {
		sub := filepath.Join(dir, strconv.Itoa(i))
		if err := os.MkdirAll(sub, 0755); err != nil {
			os.RemoveAll(dir)
			api.writeError(w, r, http.StatusInternalServerError, err.Error())
			return
		}
		path, err := stageUpload(header, sub)
		if err != nil {
			os.RemoveAll(dir)
			api.writeError(w, r, http.StatusInternalServerError, err.Error())
			return
		}
		paths = append(paths, path)
	}

	// The batch outlives this request, so it does not run under the
	// request context.
	initial, done := api.batch.StartBatch(context.Background(), paths, force, nil)
	go func() {
		<-done
		os.RemoveAll(dir)
	}()

	ocrFiles := 0
	if initial.OCRAnalysis != nil {
		ocrFiles = initial.OCRAnalysis.FilesNeedingOCR
	}
	warnings := initial.Warnings
	if warnings == nil {
		warnings = []string{}
	}

	api.writeJSON(w, http.StatusAccepted, BatchAcceptedResponse{
		BatchID:              initial.BatchID,
		TotalFiles:           initial.TotalFiles,
		ProcessingMode:       initial.ProcessingMode,
		WorkerCount:          initial.WorkerCount,
		EstimatedTimeSeconds: initial.EstimatedTimeSeconds,
		OCRFiles:             ocrFiles,
		Warnings:             warnings,
	})
}

// HandleBatchStatus handles GET /documents/batch/{id} requests.
func (api *API) HandleBatchStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	batchID := strings.TrimPrefix(r.URL.Path, "/documents/batch/")
	batch, ok := api.batch.Status(batchID)
	if !ok {
		api.writeError(w, r, http.StatusNotFound, fmt.Sprintf("Batch not found: %s", batchID))
		return
	}

	api.writeJSON(w, http.StatusOK, batch)
}

// StatsResponse represents the JSON response for GET /documents/stats.
type StatsResponse struct {
	DocumentsIndexed    int      `json:"documents_indexed"`
	TotalChunks         int      `json:"total_chunks"`
	SupportedExtensions []string `json:"supported_extensions"`
	ActiveBatches       []string `json:"active_batches"`
}

// HandleStats handles GET /documents/stats requests.
func (api *API) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	stats, err := api.store.Stats(r.Context())
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	active := api.batch.ActiveBatches()
	if active == nil {
		active = []string{}
	}

	api.writeJSON(w, http.StatusOK, StatsResponse{
		DocumentsIndexed:    stats.DocumentsIndexed,
		TotalChunks:         stats.TotalChunks,
		SupportedExtensions: docprocessor.SupportedExtensions(),
		ActiveBatches:       active,
	})
}

// QueryRequest is the JSON body for POST /documents/query.
type QueryRequest struct {
	// Query is the search text (required)
	Query string `json:"query"`
	// TopK caps how many chunks come back; 0 means the store default
	TopK int `json:"top_k"`
	// DocHash restricts the search to one document when set
	DocHash string `json:"doc_hash"`
}

// QueryResponse represents the JSON response for POST /documents/query.
type QueryResponse struct {
	Query         string                    `json:"query"`
	Results       []vectorstore.QueryResult `json:"results"`
	Context       string                    `json:"context"`
	ContextLength int                       `json:"context_length"`
}

// HandleQuery handles POST /documents/query requests: embed the query,
// rank stored chunks by similarity, and assemble the prompt context.
func (api *API) HandleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		api.writeError(w, r, http.StatusBadRequest, "query is required")
		return
	}

	embedding, err := api.embedder.EmbedQuery(r.Context(), req.Query)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	results, err := api.store.Query(r.Context(), embedding, req.TopK, req.DocHash)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	if results == nil {
		results = []vectorstore.QueryResult{}
	}

	contextText := vectorstore.BuildContext(results, vectorstore.DefaultContextTokens)

	api.writeJSON(w, http.StatusOK, QueryResponse{
		Query:         req.Query,
		Results:       results,
		Context:       contextText,
		ContextLength: len(contextText),
	})
}

// newUploadDir creates a fresh staging directory for one request.
func (api *API) newUploadDir() (string, error) {
	dir := filepath.Join(api.uploadDir, uuid.NewString())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}
	return dir, nil
}

// stageUpload copies one multipart file into dir under its original
// base name and returns the staged path.
func stageUpload(header *multipart.FileHeader, dir string) (string, error) {
	name := filepath.Base(header.Filename)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "", fmt.Errorf("invalid upload filename %q", header.Filename)
	}

	src, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload %q: %w", header.Filename, err)
	}
	defer src.Close()

	path := filepath.Join(dir, name)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to stage upload %q: %w", name, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("failed to stage upload %q: %w", name, err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("failed to stage upload %q: %w", name, err)
	}
	return path, nil
}

// unsupportedTypeMessage formats the rejection for a file the extractor
// cannot handle, naming every extension it can.
func unsupportedTypeMessage(filename string) string {
	return fmt.Sprintf("Unsupported file type: %s. Supported: %s",
		filepath.Ext(filename), strings.Join(docprocessor.SupportedExtensions(), ", "))
}
