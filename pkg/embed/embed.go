// Package embed provides embedding generation clients for semantic search.
//
// Embeddings convert text into fixed-size vectors that capture meaning.
// Similar texts produce similar vectors, which is what makes semantic
// search over a thought graph possible.
//
// Example Usage:
//
//	embedder := embed.NewOllama(nil) // local Ollama, all-minilm
//
//	vec, err := embedder.Embed(ctx, "graph database")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("Embedding dimensions: %d\n", len(vec))
//	// Output: 384 (for all-minilm)
//
// The provider is treated as optional infrastructure: callers that can
// degrade gracefully should check for ErrProviderUnavailable and fall back
// to a zero vector rather than failing the whole operation.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrProviderUnavailable indicates the embedding provider could not be
// reached or returned a non-success status. Callers can keep working with
// ZeroVector placeholders and retry later.
var ErrProviderUnavailable = errors.New("embedding provider unavailable")

// Embedder generates vector embeddings from text.
//
// Implementations must be safe for concurrent use from multiple goroutines.
type Embedder interface {
	// Embed generates embedding for single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector dimension
	Dimensions() int

	// Model returns the model name
	Model() string
}

// Config holds embedding provider configuration.
type Config struct {
	APIURL     string        // e.g., http://localhost:11434
	APIPath    string        // e.g., /api/embeddings
	Model      string        // e.g., all-minilm
	Dimensions int           // Expected dimensions (for validation)
	Timeout    time.Duration // Request timeout
}

// DefaultOllamaConfig returns configuration for local Ollama with all-minilm.
//
// Default settings:
//   - API URL: http://localhost:11434
//   - Model: all-minilm (384 dimensions, fast enough for interactive use)
//   - Timeout: 30 seconds
//
// This assumes Ollama is running locally:
//
//	$ ollama pull all-minilm
//	$ ollama serve
func DefaultOllamaConfig() *Config {
	return &Config{
		APIURL:     "http://localhost:11434",
		APIPath:    "/api/embeddings",
		Model:      "all-minilm",
		Dimensions: 384,
		Timeout:    30 * time.Second,
	}
}

// OllamaEmbedder implements Embedder for local Ollama models.
//
// Thread-safe: can be used concurrently from multiple goroutines.
//
// Example:
//
//	embedder := embed.NewOllama(nil)
//
//	vec, err := embedder.Embed(ctx, "hello world")
//	if errors.Is(err, embed.ErrProviderUnavailable) {
//		vec = embed.ZeroVector(embedder.Dimensions())
//	}
type OllamaEmbedder struct {
	config *Config
	client *http.Client
}

// NewOllama creates a new Ollama embedder.
// If config is nil, DefaultOllamaConfig() is used.
func NewOllama(config *Config) *OllamaEmbedder {
	if config == nil {
		config = DefaultOllamaConfig()
	}

	return &OllamaEmbedder{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// ollamaRequest is the request format for Ollama.
type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// ollamaResponse is the response format from Ollama.
type ollamaResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed generates a vector embedding for a single text string.
//
// Transport failures and non-200 responses are reported as
// ErrProviderUnavailable so callers can degrade gracefully.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	req := ollamaRequest{
		Model:  e.config.Model,
		Prompt: text,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := e.config.APIURL + e.config.APIPath
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: ollama returned %d: %s",
			ErrProviderUnavailable, resp.StatusCode, string(bodyBytes))
	}

	var ollamaResp ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if e.config.Dimensions > 0 && len(ollamaResp.Embedding) != e.config.Dimensions {
		return nil, fmt.Errorf("unexpected embedding dimensions: got %d, want %d",
			len(ollamaResp.Embedding), e.config.Dimensions)
	}

	return ollamaResp.Embedding, nil
}

// EmbedBatch generates embeddings for multiple texts.
//
// Ollama has no batch endpoint, so this makes one request per text and
// fails on the first error.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		embedding, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed text %d: %w", i, err)
		}
		results[i] = embedding
	}
	return results, nil
}

// Dimensions returns the expected embedding dimensions.
func (e *OllamaEmbedder) Dimensions() int {
	return e.config.Dimensions
}

// Model returns the model name.
func (e *OllamaEmbedder) Model() string {
	return e.config.Model
}

// ZeroVector returns an all-zero placeholder embedding of the given size.
//
// Used when the provider is down: a zero vector keeps the node indexable
// (it simply never matches a similarity query) until a later pass
// re-embeds it for real.
func ZeroVector(dims int) []float32 {
	return make([]float32, dims)
}
