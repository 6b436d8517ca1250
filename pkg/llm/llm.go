// Package llm provides a text generation client for graph question answering.
//
// The generator powers the conversational surface of the knowledge graph:
// answering questions grounded in retrieved thoughts, explaining why two
// thoughts are connected, and summarizing clusters.
//
// Example:
//
//	gen := llm.NewOllamaGenerator(nil)
//	answer, err := gen.Generate(ctx, "Explain the connection between X and Y")
package llm

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

// ErrProviderUnavailable indicates the generation provider could not be
// reached or returned a non-success status.
var ErrProviderUnavailable = errors.New("generation provider unavailable")

// Generator produces a text completion for a prompt.
//
// Implementations must be safe for concurrent use from multiple goroutines.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)

	// Model returns the model name
	Model() string
}

// Config holds generation provider configuration.
type Config struct {
	APIURL  string        // e.g., http://localhost:11434
	APIPath string        // e.g., /api/generate
	Model   string        // e.g., llama3.2
	Timeout time.Duration // Request timeout
}

// DefaultOllamaConfig returns configuration for local Ollama with llama3.2.
//
// Generation is slower than embedding; the timeout defaults to two minutes
// to leave room for long summaries on CPU-only machines.
func DefaultOllamaConfig() *Config {
	return &Config{
		APIURL:  "http://localhost:11434",
		APIPath: "/api/generate",
		Model:   "llama3.2",
		Timeout: 2 * time.Minute,
	}
}

// OllamaGenerator implements Generator against a local Ollama server.
//
// Thread-safe: can be used concurrently from multiple goroutines.
type OllamaGenerator struct {
	config *Config
	client *http.Client
}

// NewOllamaGenerator creates a new Ollama generator.
// If config is nil, DefaultOllamaConfig() is used.
func NewOllamaGenerator(config *Config) *OllamaGenerator {
	if config == nil {
		config = DefaultOllamaConfig()
	}

	return &OllamaGenerator{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// generateRequest is the request format for Ollama's generate endpoint.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// generateResponse is the non-streaming response format from Ollama.
type generateResponse struct {
	Response string `json:"response"`
}

// Generate sends a prompt and returns the full completion.
//
// Streaming is disabled: the caller gets the complete response in one
// piece. Transport failures and non-200 responses are reported as
// ErrProviderUnavailable.
func (g *OllamaGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	req := generateRequest{
		Model:  g.config.Model,
		Prompt: prompt,
		Stream: false,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := g.config.APIURL + g.config.APIPath
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: ollama returned %d: %s",
			ErrProviderUnavailable, resp.StatusCode, string(bodyBytes))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return genResp.Response, nil
}

// Model returns the model name.
func (g *OllamaGenerator) Model() string {
	return g.config.Model
}
