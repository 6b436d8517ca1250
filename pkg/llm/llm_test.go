package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.2", req.Model)
		assert.Equal(t, "why is the sky blue?", req.Prompt)
		assert.False(t, req.Stream, "streaming must be disabled")

		w.Write([]byte(`{"response": "Rayleigh scattering.", "done": true}`))
	}))
	defer server.Close()

	gen := NewOllamaGenerator(&Config{
		APIURL:  server.URL,
		APIPath: "/api/generate",
		Model:   "llama3.2",
	})

	answer, err := gen.Generate(context.Background(), "why is the sky blue?")
	require.NoError(t, err)
	assert.Equal(t, "Rayleigh scattering.", answer)
	assert.Equal(t, "llama3.2", gen.Model())
}

func TestOllamaGenerateProviderDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	gen := NewOllamaGenerator(&Config{
		APIURL:  server.URL,
		APIPath: "/api/generate",
		Model:   "llama3.2",
	})

	_, err := gen.Generate(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestOllamaGenerateErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	gen := NewOllamaGenerator(&Config{
		APIURL:  server.URL,
		APIPath: "/api/generate",
		Model:   "llama3.2",
	})

	_, err := gen.Generate(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Contains(t, err.Error(), "500")
}
