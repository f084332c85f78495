// Package core provides configuration, shared types, and small utilities
// for the jandocs document scheduler.
package core

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all configuration values
type Config struct {
	// Server Configuration
	Port    int  // HTTP port for the document API
	DevMode bool // Development mode enables console logging and debug level

	// Embeddings API Configuration (defaults to a local Jan server)
	EmbeddingsURL        string // OpenAI-compatible base URL for embeddings
	EmbeddingsAPIKey     string // API key (local servers usually need none)
	EmbeddingsModel      string // Model identifier sent to the embeddings endpoint
	AllowSelfSignedCerts bool   // Accept self-signed TLS certs on the embeddings server

	// Storage Paths
	DataDir      string // Root directory for application data
	UploadsDir   string // Directory where uploaded documents are staged
	VectorDBPath string // SQLite database file for the vector store
	LogFilePath  string // Log file location

	// Scheduler Configuration
	MaxWorkers      int           // Hard ceiling on parallel ingestion workers
	MonitorInterval time.Duration // Resource sampling interval
	BatchRetention  time.Duration // How long completed batches stay queryable
	ThresholdsFile  string        // Optional YAML file overriding capacity thresholds

	// Chunking Configuration
	ChunkSizeTokens    int // Target chunk size in tokens
	ChunkOverlapTokens int // Overlap between adjacent chunks in tokens

	// OCR Configuration
	OCRLanguage   string // Tesseract language code
	TesseractPath string // Tesseract binary name or absolute path

	// Processing Configuration
	EmbedTimeout time.Duration // Timeout for a single embeddings request
	MaxFileSize  int64         // Upload size cap in bytes
}

// Helper function to get environment variable with default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Helper function to parse integer environment variable with default value
func parseIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// Helper function to parse boolean environment variable with default value.
// Accepts the forms understood by strconv.ParseBool ("true", "1", "t", ...).
func parseBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// Helper function to parse a duration environment variable expressed in seconds
func parseDurationEnv(key string, defaultSeconds int) time.Duration {
	return time.Duration(parseIntEnv(key, defaultSeconds)) * time.Second
}

// LoadConfig loads configuration from environment variables with sensible
// defaults for zero-config deployment next to a local Jan server. No variable
// is strictly required; every value has a working local default.
func LoadConfig() (*Config, error) {
	// The sidecar listens one port above Jan's default API port
	port := parseIntEnv("PORT", 1338)
	devMode := parseBoolEnv("DEV_MODE", false)

	// Embeddings default to the local Jan server's OpenAI-compatible API
	embeddingsURL := getEnvOrDefault("EMBEDDINGS_URL", "http://127.0.0.1:1337/v1")
	embeddingsAPIKey := os.Getenv("EMBEDDINGS_API_KEY")
	embeddingsModel := getEnvOrDefault("EMBEDDINGS_MODEL", "all-MiniLM-L6-v2")
	allowSelfSignedCerts := parseBoolEnv("ALLOW_SELF_SIGNED_CERTS", false)

	// Storage paths default to the per-user data directory
	dataDir := getEnvOrDefault("DATA_DIR", GetDataDirectory())
	uploadsDir := getEnvOrDefault("UPLOADS_DIR", filepath.Join(dataDir, "uploads"))
	vectorDBPath := getEnvOrDefault("VECTOR_DB_PATH", filepath.Join(dataDir, "vectors.db"))
	logFilePath := getEnvOrDefault("LOG_FILE", filepath.Join(dataDir, "logs", "jandocs.log"))

	// Scheduler configuration
	// 8 workers is a safe ceiling for consumer hardware; capacity analysis
	// scales the effective count down from here
	maxWorkers := parseIntEnv("MAX_WORKERS", 8)
	// 5s sampling keeps the capacity endpoint fresh without measurable load
	monitorInterval := parseDurationEnv("MONITOR_INTERVAL", 5)
	// Completed batches stay queryable for an hour before cleanup
	batchRetention := parseDurationEnv("BATCH_RETENTION", 3600)
	thresholdsFile := os.Getenv("SCHEDULER_THRESHOLDS_FILE")

	// Chunking defaults match the sentence-transformer context window
	chunkSizeTokens := parseIntEnv("CHUNK_SIZE_TOKENS", 1000)
	chunkOverlapTokens := parseIntEnv("CHUNK_OVERLAP_TOKENS", 100)

	// OCR configuration; tesseract is resolved via PATH unless overridden
	ocrLanguage := getEnvOrDefault("OCR_LANGUAGE", "eng")
	tesseractPath := getEnvOrDefault("TESSERACT_PATH", "tesseract")

	// 60s embed timeout accommodates slow local models while preventing hangs
	embedTimeout := parseDurationEnv("EMBED_TIMEOUT", 60)
	// 100MB upload cap handles large PDFs while preventing abuse
	maxFileSize, err := ParseBytes(getEnvOrDefault("MAX_FILE_SIZE", "100MB"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_FILE_SIZE: %w", err)
	}

	// Validate scheduler configuration
	if maxWorkers < 1 || maxWorkers > 64 {
		return nil, ErrInvalidWorkerCount(maxWorkers)
	}
	if monitorInterval < time.Second {
		return nil, fmt.Errorf("MONITOR_INTERVAL must be at least 1 second, got %v", monitorInterval)
	}
	if batchRetention < time.Minute {
		return nil, fmt.Errorf("BATCH_RETENTION must be at least 60 seconds, got %v", batchRetention)
	}

	// Validate chunking configuration
	if chunkSizeTokens < 50 {
		return nil, fmt.Errorf("CHUNK_SIZE_TOKENS must be at least 50, got %d", chunkSizeTokens)
	}
	if chunkOverlapTokens < 0 || chunkOverlapTokens >= chunkSizeTokens {
		return nil, fmt.Errorf("CHUNK_OVERLAP_TOKENS must be non-negative and smaller than CHUNK_SIZE_TOKENS, got %d", chunkOverlapTokens)
	}

	return &Config{
		// Server Configuration
		Port:    port,
		DevMode: devMode,

		// Embeddings API Configuration
		EmbeddingsURL:        embeddingsURL,
		EmbeddingsAPIKey:     embeddingsAPIKey,
		EmbeddingsModel:      embeddingsModel,
		AllowSelfSignedCerts: allowSelfSignedCerts,

		// Storage Paths
		DataDir:      dataDir,
		UploadsDir:   uploadsDir,
		VectorDBPath: vectorDBPath,
		LogFilePath:  logFilePath,

		// Scheduler Configuration
		MaxWorkers:      maxWorkers,
		MonitorInterval: monitorInterval,
		BatchRetention:  batchRetention,
		ThresholdsFile:  thresholdsFile,

		// Chunking Configuration
		ChunkSizeTokens:    chunkSizeTokens,
		ChunkOverlapTokens: chunkOverlapTokens,

		// OCR Configuration
		OCRLanguage:   ocrLanguage,
		TesseractPath: tesseractPath,

		// Processing Configuration
		EmbedTimeout: embedTimeout,
		MaxFileSize:  maxFileSize,
	}, nil
}

// EnsureDirectories creates every directory the configuration points at.
// Called once at startup before any component touches the filesystem.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir, c.UploadsDir, filepath.Dir(c.VectorDBPath), filepath.Dir(c.LogFilePath)}
	for _, dir := range dirs {
		if err := EnsureDir(dir); err != nil {
			return ErrDataDirUnavailable(dir, err.Error())
		}
	}
	return nil
}

// GetHTTPClient returns an HTTP client configured with TLS settings based on AllowSelfSignedCerts.
// This should be used for all requests to the embeddings server so TLS configuration is respected.
func GetHTTPClient(cfg *Config, timeout time.Duration) *http.Client {
	client := &http.Client{
		Timeout: timeout,
	}

	if cfg.AllowSelfSignedCerts {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return client
}

// GetDefaultHTTPClient returns an HTTP client with default timeout (30s) configured with TLS settings
func GetDefaultHTTPClient(cfg *Config) *http.Client {
	return GetHTTPClient(cfg, 30*time.Second)
}

// HasOCR returns true if a tesseract binary is configured.
func (c *Config) HasOCR() bool {
	return c.TesseractPath != ""
}
