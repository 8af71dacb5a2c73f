package docstore

// Chunk is an addressable span of a source document, tagged with provenance
// metadata. Position is a 0-based index unique within one ingest of a given
// (source, section) pair; chunks are never mutated after creation.
type Chunk struct {
	Text       string `json:"text"`
	Source     string `json:"source"`
	Title      string `json:"title"`
	Section    string `json:"section"`
	Position   int    `json:"position"`
	TokenCount int    `json:"token_count"`
}

// RetrievedChunk is a chunk returned by similarity search.
type RetrievedChunk struct {
	Chunk
	ID    string  `json:"id"`
	Score float32 `json:"score"`
}

// Doc is a chunked document ready for ingestion.
type Doc struct {
	File   string
	Crc    uint32
	Chunks []Chunk
}

// InjestedDoc identifies a document version currently present in the store.
type InjestedDoc struct {
	File string
	Crc  uint32
}
