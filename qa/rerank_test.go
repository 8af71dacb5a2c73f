package qa

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gamma-omg/rag-qa/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func retrievedChunk(text string, position int) docstore.RetrievedChunk {
	return docstore.RetrievedChunk{
		Chunk: docstore.Chunk{Text: text, Source: "facts.txt", Section: "main", Position: position},
	}
}

func Test_Rerank_ReordersByRelevance(t *testing.T) {
	var gotReq rerankRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"results":[{"index":2,"relevance_score":0.92},{"index":0,"relevance_score":0.41}]}`)
	}))
	defer srv.Close()

	r := NewCohereReranker(CohereRerankerConfig{
		Log:     testLogger(),
		BaseURL: srv.URL,
		APIKey:  "key",
		TopN:    2,
	})

	chunks := []docstore.RetrievedChunk{
		retrievedChunk("first", 0),
		retrievedChunk("second", 1),
		retrievedChunk("third", 2),
	}

	out := r.Rerank(context.Background(), "which one?", chunks)

	require.Len(t, out, 2)
	assert.Equal(t, chunks[2], out[0].RetrievedChunk)
	assert.Equal(t, 0.92, out[0].RerankScore)
	assert.Equal(t, chunks[0], out[1].RetrievedChunk)

	assert.Equal(t, "which one?", gotReq.Query)
	assert.Equal(t, []string{"first", "second", "third"}, gotReq.Documents)
	assert.Equal(t, 2, gotReq.TopN)
}

func Test_Rerank_FallbackOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewCohereReranker(CohereRerankerConfig{
		Log:     testLogger(),
		BaseURL: srv.URL,
		APIKey:  "key",
		TopN:    2,
	})

	chunks := []docstore.RetrievedChunk{
		retrievedChunk("first", 0),
		retrievedChunk("second", 1),
		retrievedChunk("third", 2),
	}

	out := r.Rerank(context.Background(), "q", chunks)

	require.Len(t, out, 2)
	assert.Equal(t, chunks[0], out[0].RetrievedChunk)
	assert.Equal(t, chunks[1], out[1].RetrievedChunk)
	assert.Zero(t, out[0].RerankScore)
}

func Test_Rerank_TopNCappedToInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	r := NewCohereReranker(CohereRerankerConfig{
		Log:     testLogger(),
		BaseURL: srv.URL,
		APIKey:  "key",
		TopN:    4,
	})

	out := r.Rerank(context.Background(), "q", []docstore.RetrievedChunk{retrievedChunk("only", 0)})
	require.Len(t, out, 1)
}

func Test_Rerank_DropsOutOfRangeIndices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"results":[{"index":9,"relevance_score":0.9},{"index":1,"relevance_score":0.5}]}`)
	}))
	defer srv.Close()

	r := NewCohereReranker(CohereRerankerConfig{
		Log:     testLogger(),
		BaseURL: srv.URL,
		APIKey:  "key",
		TopN:    2,
	})

	chunks := []docstore.RetrievedChunk{retrievedChunk("first", 0), retrievedChunk("second", 1)}
	out := r.Rerank(context.Background(), "q", chunks)

	require.Len(t, out, 1)
	assert.Equal(t, chunks[1], out[0].RetrievedChunk)
}

func Test_Rerank_EmptyInput(t *testing.T) {
	r := NewCohereReranker(CohereRerankerConfig{Log: testLogger(), APIKey: "key"})
	assert.Nil(t, r.Rerank(context.Background(), "q", nil))
}
