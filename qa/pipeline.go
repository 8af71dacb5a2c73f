package qa

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gamma-omg/rag-qa/docstore"
)

type retriever interface {
	Retrieve(ctx context.Context, query string) ([]docstore.RetrievedChunk, error)
}

// Pipeline answers a question end to end: retrieve, rerank, synthesize. It
// holds no request-spanning state; the vector store is the only shared
// dependency between concurrent requests.
type Pipeline struct {
	log         *slog.Logger
	store       retriever
	reranker    Reranker
	synthesizer *Synthesizer
}

func NewPipeline(log *slog.Logger, store retriever, reranker Reranker, synthesizer *Synthesizer) *Pipeline {
	return &Pipeline{
		log:         log,
		store:       store,
		reranker:    reranker,
		synthesizer: synthesizer,
	}
}

func (p *Pipeline) Answer(ctx context.Context, query string) (Result, Metrics, error) {
	start := time.Now()

	retrieved, err := p.store.Retrieve(ctx, query)
	if err != nil {
		return Result{}, Metrics{}, fmt.Errorf("failed to retrieve chunks: %w", err)
	}

	if len(retrieved) == 0 {
		p.log.Info("no chunks retrieved", "query", query)
		res, _ := p.synthesizer.Synthesize(ctx, query, nil)
		return res, Metrics{LatencyMs: latencyMs(start)}, nil
	}

	reranked := p.reranker.Rerank(ctx, query, retrieved)

	res, err := p.synthesizer.Synthesize(ctx, query, reranked)
	if err != nil {
		return Result{}, Metrics{}, err
	}

	return res, Metrics{
		LatencyMs:     latencyMs(start),
		TokenEstimate: estimateTokens(res.Answer),
		ChunksUsed:    len(reranked),
	}, nil
}

func latencyMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

// estimateTokens approximates the answer's token count from its word count.
func estimateTokens(text string) int {
	return int(float64(len(strings.Fields(text))) * 1.3)
}
