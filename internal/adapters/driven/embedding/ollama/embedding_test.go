package ollama

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

func TestNewEmbeddingService_Defaults(t *testing.T) {
	svc := NewEmbeddingService(Config{})
	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, 768, svc.Dimensions())
	assert.Equal(t, DefaultBaseURL, svc.baseURL)

	svc = NewEmbeddingService(Config{Model: "mxbai-embed-large"})
	assert.Equal(t, 1024, svc.Dimensions())
}

func TestEmbedBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"a", "b"}, req.Input)
		assert.Equal(t, "all-minilm", req.Model)

		_, _ = w.Write([]byte(`{"embeddings":[[1,2],[3,4]]}`))
	}))
	defer srv.Close()

	svc := NewEmbeddingService(Config{BaseURL: srv.URL + "/", Model: "all-minilm"})
	vecs, err := svc.EmbedBatch(t.Context(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2}, {3, 4}}, vecs)
}

func TestEmbedBatch_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	svc := NewEmbeddingService(Config{BaseURL: srv.URL})
	_, err := svc.EmbedBatch(t.Context(), []string{"a"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTransientExternal))
}

func TestEmbedBatch_UnknownModelIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	svc := NewEmbeddingService(Config{BaseURL: srv.URL})
	_, err := svc.EmbedBatch(t.Context(), []string{"a"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrTransientExternal))
}

func TestEmbedBatch_ConnectionRefusedIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	svc := NewEmbeddingService(Config{BaseURL: url})
	_, err := svc.EmbedBatch(t.Context(), []string{"a"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTransientExternal))
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	require.NoError(t, NewEmbeddingService(Config{BaseURL: srv.URL}).Ping(t.Context()))
}
