package embed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"embedding": [0.1, 0.2, 0.3]}`))
	}))
	defer server.Close()

	embedder := NewOllama(&Config{
		APIURL:     server.URL,
		APIPath:    "/api/embeddings",
		Model:      "all-minilm",
		Dimensions: 3,
	})

	vec, err := embedder.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, 3, embedder.Dimensions())
	assert.Equal(t, "all-minilm", embedder.Model())
}

func TestOllamaEmbedProviderDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // Connection refused from here on

	embedder := NewOllama(&Config{
		APIURL:  server.URL,
		APIPath: "/api/embeddings",
		Model:   "all-minilm",
	})

	_, err := embedder.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestOllamaEmbedErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	embedder := NewOllama(&Config{
		APIURL:  server.URL,
		APIPath: "/api/embeddings",
		Model:   "nope",
	})

	_, err := embedder.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Contains(t, err.Error(), "404")
}

func TestOllamaEmbedDimensionValidation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"embedding": [0.1, 0.2]}`))
	}))
	defer server.Close()

	embedder := NewOllama(&Config{
		APIURL:     server.URL,
		APIPath:    "/api/embeddings",
		Model:      "all-minilm",
		Dimensions: 384,
	})

	_, err := embedder.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimensions")
}

func TestZeroVector(t *testing.T) {
	vec := ZeroVector(384)
	assert.Len(t, vec, 384)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestContentHash(t *testing.T) {
	h1 := ContentHash("title", "body")
	h2 := ContentHash("title", "body")
	assert.Equal(t, h1, h2, "same input must produce same hash")
	assert.NotEmpty(t, h1)

	assert.NotEqual(t, h1, ContentHash("title", "other body"))
	assert.NotEqual(t, h1, ContentHash("other title", "body"))

	// Field boundary matters: moving characters across it changes the hash
	assert.NotEqual(t, ContentHash("ab", "c"), ContentHash("a", "bc"))
}
