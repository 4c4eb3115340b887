package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embeddingResponse(vector []float64) map[string]any {
	return map[string]any{
		"object": "list",
		"data": []map[string]any{
			{"object": "embedding", "index": 0, "embedding": vector},
		},
		"model": "text-embedding-3-small",
	}
}

func TestEmbedSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(embeddingResponse([]float64{0.1, 0.2, 0.3}))
	}))
	defer server.Close()

	provider := NewOpenAIProvider("test-key", WithBaseURL(server.URL))

	vector, err := provider.Embed(context.Background(), "help me test my web application")
	require.NoError(t, err)
	require.Len(t, vector, 3)
	assert.InDelta(t, 0.1, vector[0], 1e-6)
	assert.InDelta(t, 0.3, vector[2], 1e-6)
}

func TestEmbedRetriesOnceThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(embeddingResponse([]float64{0.5}))
	}))
	defer server.Close()

	provider := NewOpenAIProvider("test-key", WithBaseURL(server.URL))

	vector, err := provider.Embed(context.Background(), "some task")
	require.NoError(t, err)
	assert.Len(t, vector, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEmbedFailureWrapsErrUnavailable(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	provider := NewOpenAIProvider("test-key", WithBaseURL(server.URL))

	_, err := provider.Embed(context.Background(), "some task")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
	// One retry at most before committing to the fallback path
	assert.Equal(t, int32(2), calls.Load())
}

func TestEmbedTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(embeddingResponse([]float64{0.5}))
	}))
	defer server.Close()

	provider := NewOpenAIProvider("test-key",
		WithBaseURL(server.URL),
		WithTimeout(20*time.Millisecond),
	)

	_, err := provider.Embed(context.Background(), "some task")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
}
