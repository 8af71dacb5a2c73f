package qa

import (
	"context"
	"testing"

	"github.com/gamma-omg/rag-qa/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeRetriever struct {
	chunks []docstore.RetrievedChunk
	err    error
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string) ([]docstore.RetrievedChunk, error) {
	return f.chunks, f.err
}

// passthroughReranker returns the input order, capped to topN.
type passthroughReranker struct {
	topN int
}

func (r *passthroughReranker) Rerank(ctx context.Context, query string, chunks []docstore.RetrievedChunk) []RerankedChunk {
	return fallbackOrder(chunks, min(r.topN, len(chunks)))
}

func Test_Answer_EmptyRetrieval(t *testing.T) {
	gen := new(mockGenerator)
	p := NewPipeline(testLogger(), &fakeRetriever{}, &passthroughReranker{topN: 4}, NewSynthesizer(gen))

	res, metrics, err := p.Answer(context.Background(), "unrelated question")
	require.NoError(t, err)

	assert.Equal(t, NoAnswer, res.Answer)
	assert.Empty(t, res.Citations)
	assert.Empty(t, res.Sources)
	assert.Zero(t, metrics.ChunksUsed)
	assert.Zero(t, metrics.TokenEstimate)
	assert.Empty(t, gen.Calls)
}

func Test_Answer_RetrievalError(t *testing.T) {
	gen := new(mockGenerator)
	p := NewPipeline(testLogger(), &fakeRetriever{err: assert.AnError}, &passthroughReranker{topN: 4}, NewSynthesizer(gen))

	_, _, err := p.Answer(context.Background(), "q")
	assert.ErrorIs(t, err, assert.AnError)
}

func Test_Answer(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return("Venus days are long [1].", nil)

	chunks := []docstore.RetrievedChunk{
		retrievedChunk("A day on Venus is longer than its year.", 0),
		retrievedChunk("Bananas are berries.", 1),
		retrievedChunk("Honey never spoils.", 2),
	}

	p := NewPipeline(testLogger(), &fakeRetriever{chunks: chunks}, &passthroughReranker{topN: 2}, NewSynthesizer(gen))

	res, metrics, err := p.Answer(context.Background(), "how long is a day on Venus?")
	require.NoError(t, err)

	assert.Equal(t, "Venus days are long [1].", res.Answer)
	require.Len(t, res.Citations, 1)
	assert.Equal(t, 1, res.Citations[0].Number)
	assert.Equal(t, "facts.txt", res.Citations[0].Source)
	assert.Equal(t, 0, res.Citations[0].Position)

	assert.Equal(t, 2, metrics.ChunksUsed)
	assert.Equal(t, 6, metrics.TokenEstimate)
	assert.GreaterOrEqual(t, metrics.LatencyMs, 0.0)
	gen.AssertExpectations(t)
}

func Test_EstimateTokens(t *testing.T) {
	assert.Equal(t, 0, estimateTokens(""))
	assert.Equal(t, 3, estimateTokens("one two three"))
}
