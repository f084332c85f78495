// Package server exposes the document scheduler over a localhost JSON
// API for the Jan desktop client.
//
// api.go implements the API organism: the handler set behind the HTTP
// server. It composes:
//   - resourcemonitor.Monitor for capacity and health views
//   - Ingester for single-document uploads
//   - BatchRunner for multi-file batch uploads and status polling
//   - DocumentStore and QueryEmbedder for listing, deletion, and search
package server

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"jandocs/batchprocessor"
	"jandocs/docprocessor"
	"jandocs/logging"
	"jandocs/resourcemonitor"
	"jandocs/vectorstore"
)

// ErrNilMonitor is returned when no resource monitor is provided.
var ErrNilMonitor = errors.New("server: resource monitor is required")

// ErrNilIngester is returned when no ingester is provided.
var ErrNilIngester = errors.New("server: ingester is required")

// ErrNilBatch is returned when no batch runner is provided.
var ErrNilBatch = errors.New("server: batch runner is required")

// ErrNilStore is returned when no document store is provided.
var ErrNilStore = errors.New("server: document store is required")

// ErrNilEmbedder is returned when no query embedder is provided.
var ErrNilEmbedder = errors.New("server: query embedder is required")

// ErrNilLogger is returned when no logger is provided.
var ErrNilLogger = errors.New("server: logger is required")

// healthProbeTimeout bounds the embeddings and store liveness probes so
// a hung backend cannot stall the health endpoint.
const healthProbeTimeout = 2 * time.Second

// Ingester ingests one uploaded document end to end.
type Ingester interface {
	Ingest(ctx context.Context, path string, force bool) (*docprocessor.ProcessedDocument, error)
}

var _ Ingester = (*docprocessor.Processor)(nil)

// BatchRunner is the slice of the batch engine the API drives: start a
// batch in the background, poll its progress, and reclaim finished
// entries.
type BatchRunner interface {
	StartBatch(ctx context.Context, paths []string, force bool, callback batchprocessor.ProgressCallback) (*batchprocessor.BatchProgress, <-chan *batchprocessor.BatchProgress)
	Status(batchID string) (*batchprocessor.BatchProgress, bool)
	ActiveBatches() []string
	CleanupCompleted(maxAge time.Duration) int
}

var _ BatchRunner = (*batchprocessor.Processor)(nil)

// DocumentStore is the slice of the vector store the API serves.
type DocumentStore interface {
	ListDocuments(ctx context.Context) ([]vectorstore.DocumentSummary, error)
	DeleteDocument(ctx context.Context, docHash string) error
	Stats(ctx context.Context) (vectorstore.StoreStats, error)
	Query(ctx context.Context, embedding []float32, topK int, docHash string) ([]vectorstore.QueryResult, error)
	Ping(ctx context.Context) error
}

var _ DocumentStore = (*vectorstore.Store)(nil)

// QueryEmbedder turns query text into a vector and reports whether the
// embeddings endpoint is reachable.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Ping(ctx context.Context) error
	BaseURL() string
}

var _ QueryEmbedder = (*vectorstore.Embedder)(nil)

// VersionInfo identifies the running build in API responses.
type VersionInfo struct {
	Version   string `json:"version"`
	BuildDate string `json:"build_date,omitempty"`
	GitCommit string `json:"git_commit,omitempty"`
}

// APIConfig configures the API handler set.
type APIConfig struct {
	// UploadDir is where uploads are staged before ingestion. Each
	// request gets its own subdirectory, removed when the work is done.
	UploadDir string

	// Version identifies the build in the info and health responses
	Version VersionInfo
}

// DefaultAPIConfig returns an APIConfig with sensible defaults.
func DefaultAPIConfig() APIConfig {
	return APIConfig{
		UploadDir: filepath.Join(os.TempDir(), "jandocs-uploads"),
		Version:   VersionInfo{Version: "1.0.0"},
	}
}

// API is the handler organism for the document endpoints.
//
// Endpoints:
//   - POST   /documents            - upload and index one document
//   - GET    /documents            - list indexed documents
//   - DELETE /documents/{hash}     - remove a document and its chunks
//   - POST   /documents/batch      - upload many documents, batch in background
//   - GET    /documents/batch/{id} - batch progress
//   - GET    /documents/capacity   - current resources and load capacity
//   - GET    /documents/stats      - store totals and scheduler activity
//   - POST   /documents/query      - similarity search over indexed chunks
//   - GET    /health               - component liveness
//   - GET    /                     - API description
type API struct {
	monitor   *resourcemonitor.Monitor
	ingester  Ingester
	batch     BatchRunner
	store     DocumentStore
	embedder  QueryEmbedder
	uploadDir string
	version   VersionInfo
	logger    *logging.Logger
}

// NewAPI creates the API handler set wired to its collaborators.
// The upload directory is created if it does not exist.
func NewAPI(
	cfg APIConfig,
	monitor *resourcemonitor.Monitor,
	ingester Ingester,
	batch BatchRunner,
	store DocumentStore,
	embedder QueryEmbedder,
	logger *logging.Logger,
) (*API, error) {
	if monitor == nil {
		return nil, ErrNilMonitor
	}
	if ingester == nil {
		return nil, ErrNilIngester
	}
	if batch == nil {
		return nil, ErrNilBatch
	}
	if store == nil {
		return nil, ErrNilStore
	}
	if embedder == nil {
		return nil, ErrNilEmbedder
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	defaults := DefaultAPIConfig()
	if cfg.UploadDir == "" {
		cfg.UploadDir = defaults.UploadDir
	}
	if cfg.Version.Version == "" {
		cfg.Version.Version = defaults.Version.Version
	}
	if err := os.MkdirAll(cfg.UploadDir, 0755); err != nil {
		return nil, err
	}

	return &API{
		monitor:   monitor,
		ingester:  ingester,
		batch:     batch,
		store:     store,
		embedder:  embedder,
		uploadDir: cfg.UploadDir,
		version:   cfg.Version,
		logger:    logger.Named("api"),
	}, nil
}

// RegisterRoutes registers all API routes on the given ServeMux.
func (api *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/documents", api.HandleDocuments)
	mux.HandleFunc("/documents/", api.HandleDocumentByHash)
	mux.HandleFunc("/documents/batch", api.HandleBatch)
	mux.HandleFunc("/documents/batch/", api.HandleBatchStatus)
	mux.HandleFunc("/documents/capacity", api.HandleCapacity)
	mux.HandleFunc("/documents/stats", api.HandleStats)
	mux.HandleFunc("/documents/query", api.HandleQuery)
	mux.HandleFunc("/health", api.HandleHealth)
	mux.HandleFunc("/", api.HandleInfo)
}

// CapacityResponse represents the JSON response for GET /documents/capacity.
type CapacityResponse struct {
	Resources resourcemonitor.ResourceSnapshot `json:"resources"`
	Capacity  resourcemonitor.LoadCapacity     `json:"capacity"`
}

// HandleCapacity handles GET /documents/capacity requests. Both views
// are derived from the same resource reading so they never disagree.
func (api *API) HandleCapacity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	snapshot := api.monitor.Snapshot()

	response := CapacityResponse{
		Resources: snapshot,
		Capacity:  api.monitor.LoadCapacity(snapshot),
	}

	api.writeJSON(w, http.StatusOK, response)
}

// SystemResources is the resource summary embedded in health responses.
type SystemResources struct {
	CPUPercent         float64                        `json:"cpu_percent"`
	MemoryPercent      float64                        `json:"memory_percent"`
	RecommendedMode    resourcemonitor.ProcessingMode `json:"recommended_mode"`
	MaxConcurrentFiles int                            `json:"max_concurrent_files"`
}

// HealthResponse represents the JSON response for GET /health.
type HealthResponse struct {
	Status           string          `json:"status"`
	Version          string          `json:"version"`
	EmbeddingsOnline bool            `json:"embeddings_online"`
	EmbeddingsURL    string          `json:"embeddings_url"`
	StoreOnline      bool            `json:"store_online"`
	DocumentsIndexed int             `json:"documents_indexed"`
	OCRAvailable     bool            `json:"ocr_available"`
	SystemResources  SystemResources `json:"system_resources"`
}

// HandleHealth handles GET /health requests. The service reports
// "degraded" rather than failing when the embeddings endpoint or the
// store is unreachable, so the client can show what still works.
func (api *API) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	probeCtx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
	defer cancel()

	embeddingsOnline := api.embedder.Ping(probeCtx) == nil
	storeOnline := api.store.Ping(probeCtx) == nil

	documentsIndexed := 0
	if storeOnline {
		if stats, err := api.store.Stats(probeCtx); err == nil {
			documentsIndexed = stats.DocumentsIndexed
		}
	}

	snapshot := api.monitor.Snapshot()
	capacity := api.monitor.LoadCapacity(snapshot)

	status := "healthy"
	if !embeddingsOnline || !storeOnline {
		status = "degraded"
	}

	response := HealthResponse{
		Status:           status,
		Version:          api.version.Version,
		EmbeddingsOnline: embeddingsOnline,
		EmbeddingsURL:    api.embedder.BaseURL(),
		StoreOnline:      storeOnline,
		DocumentsIndexed: documentsIndexed,
		OCRAvailable:     capacity.OCRAvailable,
		SystemResources: SystemResources{
			CPUPercent:         round1(snapshot.CPUPercent),
			MemoryPercent:      round1(snapshot.MemoryPercent),
			RecommendedMode:    capacity.RecommendedMode,
			MaxConcurrentFiles: capacity.MaxConcurrentFiles,
		},
	}

	api.writeJSON(w, http.StatusOK, response)
}

// InfoResponse represents the JSON response for GET /.
type InfoResponse struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Description string            `json:"description"`
	Endpoints   map[string]string `json:"endpoints"`
}

// HandleInfo handles GET / requests with a description of the API.
func (api *API) HandleInfo(w http.ResponseWriter, r *http.Request) {
	// Only handle the exact root path; everything else is unrouted
	if r.URL.Path != "/" {
		api.writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		api.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	response := InfoResponse{
		Name:        "jandocs",
		Version:     api.version.Version,
		Description: "Resource-aware document ingestion and retrieval sidecar for Jan",
		Endpoints: map[string]string{
			"POST /documents":           "Upload and index a single document",
			"GET /documents":            "List indexed documents",
			"DELETE /documents/{hash}":  "Remove a document and its chunks",
			"POST /documents/batch":     "Upload multiple documents as a background batch",
			"GET /documents/batch/{id}": "Poll batch progress",
			"GET /documents/capacity":   "Current system resources and load capacity",
			"GET /documents/stats":      "Store totals and scheduler activity",
			"POST /documents/query":     "Similarity search over indexed chunks",
			"GET /health":               "Component liveness",
		},
	}

	api.writeJSON(w, http.StatusOK, response)
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func (api *API) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Best effort - headers already written
		api.logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError writes an error response. Server-side failures are logged
// with the request ID so log lines and responses can be correlated.
func (api *API) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	if status >= http.StatusInternalServerError {
		api.logger.Error("request failed",
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.String("message", message))
	}

	response := ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	}
	api.writeJSON(w, status, response)
}

// round1 rounds to one decimal place for display values.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
