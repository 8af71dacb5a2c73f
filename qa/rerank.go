package qa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gamma-omg/rag-qa/docstore"
)

// Reranker re-orders retrieved chunks by relevance to the query.
type Reranker interface {
	Rerank(ctx context.Context, query string, chunks []docstore.RetrievedChunk) []RerankedChunk
}

// CohereReranker calls the Cohere rerank endpoint. Any failure degrades to the
// first topN chunks in their retrieval order rather than failing the request:
// some context beats none.
type CohereReranker struct {
	log    *slog.Logger
	hc     *http.Client
	url    string
	apiKey string
	model  string
	topN   int
}

type CohereRerankerConfig struct {
	Log     *slog.Logger
	BaseURL string
	APIKey  string
	Model   string
	TopN    int
	Timeout time.Duration
}

func NewCohereReranker(cfg CohereRerankerConfig) *CohereReranker {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.cohere.com"
	}
	if cfg.Model == "" {
		cfg.Model = "rerank-english-v3.0"
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 4
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &CohereReranker{
		log:    cfg.Log,
		hc:     &http.Client{Timeout: cfg.Timeout},
		url:    strings.TrimRight(cfg.BaseURL, "/") + "/v2/rerank",
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		topN:   cfg.TopN,
	}
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

func (r *CohereReranker) Rerank(ctx context.Context, query string, chunks []docstore.RetrievedChunk) []RerankedChunk {
	if len(chunks) == 0 {
		return nil
	}

	topN := min(r.topN, len(chunks))
	ranked, err := r.call(ctx, query, chunks, topN)
	if err != nil {
		r.log.Warn("rerank failed, falling back to retrieval order", "error", err)
		return fallbackOrder(chunks, topN)
	}

	return ranked
}

func (r *CohereReranker) call(ctx context.Context, query string, chunks []docstore.RetrievedChunk, topN int) ([]RerankedChunk, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	body, err := json.Marshal(rerankRequest{
		Model:     r.model,
		Query:     query,
		Documents: texts,
		TopN:      topN,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("rerank upstream %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode rerank response: %w", err)
	}

	ranked := make([]RerankedChunk, 0, len(out.Results))
	for _, res := range out.Results {
		// the response is untrusted, indices must map back to input chunks
		if res.Index < 0 || res.Index >= len(chunks) {
			continue
		}

		ranked = append(ranked, RerankedChunk{
			RetrievedChunk: chunks[res.Index],
			RerankScore:    res.RelevanceScore,
		})
	}

	return ranked, nil
}

func fallbackOrder(chunks []docstore.RetrievedChunk, topN int) []RerankedChunk {
	out := make([]RerankedChunk, 0, topN)
	for _, c := range chunks[:topN] {
		out = append(out, RerankedChunk{RetrievedChunk: c})
	}

	return out
}
