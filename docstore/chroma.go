package docstore

import (
	"context"
	"fmt"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/google/uuid"
)

const (
	SourceKey     = "source"
	TitleKey      = "title"
	SectionKey    = "section"
	PositionKey   = "position"
	TokenCountKey = "token_count"
	FilePath      = "file_path"
	FileCrc       = "file_crc"
)

type ChromaStore struct {
	results     int
	requestSize int
	col         chroma.Collection
}

type ChromaStoreConfig struct {
	BaseURL       string
	Collection    string
	EmbeddingFunc embeddings.EmbeddingFunction
	Results       int
	RequestSize   int
	Reset         bool
}

func NewChromaStore(ctx context.Context, cfg ChromaStoreConfig) (*ChromaStore, error) {
	client, err := chroma.NewHTTPClient(chroma.WithBaseURL(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create Chroma client: %w", err)
	}

	if cfg.Reset {
		// the collection may not exist yet
		_ = client.DeleteCollection(ctx, cfg.Collection)
	}

	col, err := client.GetOrCreateCollection(ctx, cfg.Collection,
		chroma.WithEmbeddingFunctionCreate(cfg.EmbeddingFunc))
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", cfg.Collection, err)
	}

	return &ChromaStore{
		results:     cfg.Results,
		requestSize: cfg.RequestSize,
		col:         col,
	}, nil
}

// ChunkID derives a stable store id from the chunk address, so re-ingesting the
// same (source, position) pair overwrites the prior entry instead of duplicating it.
func ChunkID(source string, position int) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(fmt.Sprintf("%s::%d", source, position))).String()
}

func (ds *ChromaStore) Injest(ctx context.Context, doc Doc) error {
	var (
		ids   []chroma.DocumentID
		texts []string
		metas []chroma.DocumentMetadata
		size  int
	)

	flush := func() error {
		if len(texts) == 0 {
			return nil
		}

		err := ds.col.Upsert(ctx,
			chroma.WithIDs(ids...),
			chroma.WithTexts(texts...),
			chroma.WithMetadatas(metas...),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert chunks: %w", err)
		}

		ids, texts, metas, size = nil, nil, nil, 0
		return nil
	}

	for _, c := range doc.Chunks {
		if ds.requestSize > 0 && len(texts) > 0 && size+len(c.Text) > ds.requestSize {
			if err := flush(); err != nil {
				return err
			}
		}

		ids = append(ids, chroma.DocumentID(ChunkID(c.Source, c.Position)))
		texts = append(texts, c.Text)
		metas = append(metas, chunkMetadata(doc, c))
		size += len(c.Text)
	}

	return flush()
}

func (ds *ChromaStore) Retrieve(ctx context.Context, query string) ([]RetrievedChunk, error) {
	r, err := ds.col.Query(ctx,
		chroma.WithQueryTexts(query),
		chroma.WithNResults(ds.results),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve chunks: %w", err)
	}

	docGroups := r.GetDocumentsGroups()
	if len(docGroups) == 0 || len(docGroups[0]) == 0 {
		return nil, nil
	}

	docs := docGroups[0]
	metadatas := r.GetMetadatasGroups()[0]
	scores := r.GetDistancesGroups()[0]

	res := make([]RetrievedChunk, 0, len(docs))
	for i := range docs {
		meta := metadatas[i]
		source, _ := meta.GetString(SourceKey)
		title, _ := meta.GetString(TitleKey)
		section, _ := meta.GetString(SectionKey)
		position := metaInt(meta, PositionKey)

		res = append(res, RetrievedChunk{
			Chunk: Chunk{
				Text:       docs[i].ContentString(),
				Source:     source,
				Title:      title,
				Section:    section,
				Position:   position,
				TokenCount: metaInt(meta, TokenCountKey),
			},
			ID:    ChunkID(source, position),
			Score: float32(scores[i]),
		})
	}

	return res, nil
}

func (ds *ChromaStore) Forget(ctx context.Context, doc InjestedDoc) error {
	err := ds.col.Delete(ctx, chroma.WithWhereDelete(chroma.EqString(FilePath, doc.File)))
	if err != nil {
		return fmt.Errorf("failed to forget doc %s: %w", doc.File, err)
	}

	return nil
}

func (ds *ChromaStore) GetInjested(ctx context.Context) ([]InjestedDoc, error) {
	res, err := ds.col.Get(ctx)
	if err != nil {
		return nil, err
	}

	var docs []InjestedDoc
	seen := make(map[InjestedDoc]struct{})

	for _, meta := range res.GetMetadatas() {
		path, _ := meta.GetString(FilePath)
		doc := InjestedDoc{
			File: path,
			Crc:  uint32(metaInt(meta, FileCrc)),
		}

		if _, ok := seen[doc]; ok {
			continue
		}

		seen[doc] = struct{}{}
		docs = append(docs, doc)
	}

	return docs, nil
}

func chunkMetadata(doc Doc, c Chunk) chroma.DocumentMetadata {
	return chroma.NewDocumentMetadata(
		chroma.NewStringAttribute(SourceKey, c.Source),
		chroma.NewStringAttribute(TitleKey, c.Title),
		chroma.NewStringAttribute(SectionKey, c.Section),
		chroma.NewIntAttribute(PositionKey, int64(c.Position)),
		chroma.NewIntAttribute(TokenCountKey, int64(c.TokenCount)),
		chroma.NewStringAttribute(FilePath, doc.File),
		chroma.NewIntAttribute(FileCrc, int64(doc.Crc)),
	)
}

// Chroma round-trips numeric metadata through JSON, so ints can come back as floats.
func metaInt(meta chroma.DocumentMetadata, key string) int {
	if v, ok := meta.GetInt(key); ok {
		return int(v)
	}
	if v, ok := meta.GetFloat(key); ok {
		return int(v)
	}

	return 0
}
