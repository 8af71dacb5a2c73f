package main

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"log/slog"
	"strings"

	"github.com/gamma-omg/rag-qa/docstore"
)

var errEmptyContent = errors.New("text content is empty")

// TextIngester ingests raw text supplied directly through the server boundary,
// bypassing the file registry.
type TextIngester struct {
	log     *slog.Logger
	store   DocStore
	chunker Chunker
}

func (ti *TextIngester) IngestText(ctx context.Context, text, source, title, section string) (int, error) {
	if strings.TrimSpace(text) == "" {
		return 0, errEmptyContent
	}

	if source == "" {
		source = "upload"
	}
	if title == "" {
		title = source
	}
	if section == "" {
		section = "main"
	}

	chunks := ti.chunker.Chunk(text, source, title, section)
	err := ti.store.Injest(ctx, docstore.Doc{
		File:   source,
		Crc:    crc32.Checksum([]byte(text), crc32.IEEETable),
		Chunks: chunks,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to store chunks: %w", err)
	}

	ti.log.Info("injested text", "source", source, "chunks", len(chunks))
	return len(chunks), nil
}
