package qa

import "github.com/gamma-omg/rag-qa/docstore"

// RerankedChunk is a retrieved chunk with a relevance score from the reranker.
// The score is zero when the reranker fell back to retrieval order.
type RerankedChunk struct {
	docstore.RetrievedChunk
	RerankScore float64 `json:"rerank_score"`
}

// Citation ties a citation number in the answer back to the chunk it cites.
type Citation struct {
	Number   int    `json:"number"`
	Source   string `json:"source"`
	Section  string `json:"section"`
	Position int    `json:"position"`
	Excerpt  string `json:"excerpt"`
}

// Source is a chunk address referenced by at least one citation.
type Source struct {
	Source   string `json:"source"`
	Section  string `json:"section"`
	Position int    `json:"position"`
}

// Result is a grounded answer together with its validated citations. The
// answer text keeps its inline [i] markers for display.
type Result struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
	Sources   []Source   `json:"sources"`
}

// Metrics describes a single query request. Informational only.
type Metrics struct {
	LatencyMs     float64 `json:"latency_ms"`
	TokenEstimate int     `json:"token_estimate"`
	ChunksUsed    int     `json:"retrieved_chunks"`
}
