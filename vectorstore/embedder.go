// Package vectorstore persists processed documents and their chunk
// embeddings in SQLite and serves similarity queries for the jandocs
// document scheduler.
//
// embedder.go implements the Embedder molecule: an OpenAI-compatible
// embeddings client pointed at the local Jan server. It turns chunk
// texts into the vectors the store persists and queries against.
package vectorstore

import (
	"context"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"jandocs/docprocessor"
	"jandocs/logging"
)

// EmbedderConfig holds configuration for the embeddings client.
type EmbedderConfig struct {
	// BaseURL is the OpenAI-compatible API base (".../v1")
	BaseURL string

	// APIKey is the API key; local servers usually need none
	APIKey string

	// Model is the model identifier sent with every request
	Model string

	// BatchSize caps how many texts go into one request
	BatchSize int

	// HTTPClient overrides the HTTP client, carrying timeout and TLS
	// settings (optional)
	HTTPClient *http.Client
}

// DefaultEmbedderConfig returns defaults for a local Jan server: its
// OpenAI-compatible endpoint and the sentence-transformer model Jan
// ships for document search.
func DefaultEmbedderConfig() EmbedderConfig {
	return EmbedderConfig{
		BaseURL:   "http://127.0.0.1:1337/v1",
		Model:     "all-MiniLM-L6-v2",
		BatchSize: 32,
	}
}

// Embedder generates embeddings through an OpenAI-compatible API.
//
// Thread-Safety:
//   - Embedder is safe for concurrent use; the underlying client carries
//     no per-request state
type Embedder struct {
	cfg    EmbedderConfig
	client *openai.Client
	logger *logging.Logger
}

var _ docprocessor.Embedder = (*Embedder)(nil)

// NewEmbedder creates an Embedder for the configured endpoint.
// Zero-value config fields fall back to DefaultEmbedderConfig values.
//
// Example:
//
//	embedder, err := vectorstore.NewEmbedder(vectorstore.DefaultEmbedderConfig(), logger)
//	if err != nil {
//	    return err
//	}
//	vecs, err := embedder.EmbedBatch(ctx, []string{"first chunk", "second chunk"})
func NewEmbedder(cfg EmbedderConfig, logger *logging.Logger) (*Embedder, error) {
	if logger == nil {
		return nil, ErrNilLogger
	}

	defaults := DefaultEmbedderConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL
	if cfg.HTTPClient != nil {
		clientConfig.HTTPClient = cfg.HTTPClient
	}

	return &Embedder{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientConfig),
		logger: logger.Named("embedder"),
	}, nil
}

// Model returns the model identifier sent with every request.
func (e *Embedder) Model() string {
	return e.cfg.Model
}

// BaseURL returns the endpoint the embedder talks to.
func (e *Embedder) BaseURL() string {
	return e.cfg.BaseURL
}

// Ping reports whether the embeddings endpoint is reachable, by listing
// the models the server exposes. This is the liveness probe for the
// local Jan connection.
func (e *Embedder) Ping(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("embeddings endpoint unreachable: %w", err)
	}
	return nil
}

// EmbedBatch embeds the given texts, one vector per input in input
// order. Inputs are sent in sub-batches of at most BatchSize texts.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))

	for start := 0; start < len(texts); start += e.cfg.BatchSize {
		end := start + e.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: batch,
			Model: openai.EmbeddingModel(e.cfg.Model),
		})
		if err != nil {
			return nil, fmt.Errorf("embeddings request failed: %w", err)
		}
		if len(resp.Data) != len(batch) {
			return nil, fmt.Errorf("embeddings server returned %d vectors for %d inputs", len(resp.Data), len(batch))
		}

		// Place vectors by their response index; servers may return
		// them out of order
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(batch) {
				return nil, fmt.Errorf("embeddings response index %d out of range for batch of %d", d.Index, len(batch))
			}
			out[start+d.Index] = d.Embedding
		}
	}

	for i, vec := range out {
		if vec == nil {
			return nil, fmt.Errorf("embeddings server returned no vector for input %d", i)
		}
	}

	e.logger.Debug("embedded batch",
		zap.Int("texts", len(texts)),
		zap.String("model", e.cfg.Model),
	)

	return out, nil
}

// EmbedQuery embeds a single query string.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}
