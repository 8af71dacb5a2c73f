package main

import (
	"context"
	"hash/crc32"
	"testing"

	"github.com/gamma-omg/rag-qa/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func Test_IngestText(t *testing.T) {
	store := new(mockStore)
	chk := new(mockChunker)
	ti := &TextIngester{log: testRegistryLogger(), store: store, chunker: chk}

	text := "Bananas are berries. Strawberries are not."
	chunks := []docstore.Chunk{{Text: text, Source: "facts", Title: "Fruit facts", Section: "intro", TokenCount: 7}}

	chk.On("Chunk", text, "facts", "Fruit facts", "intro").Return(chunks)
	store.On("Injest", mock.Anything, docstore.Doc{
		File:   "facts",
		Crc:    crc32.Checksum([]byte(text), crc32.IEEETable),
		Chunks: chunks,
	}).Return(nil)

	count, err := ti.IngestText(context.Background(), text, "facts", "Fruit facts", "intro")
	require.NoError(t, err)

	assert.Equal(t, 1, count)
	store.AssertExpectations(t)
	chk.AssertExpectations(t)
}

func Test_IngestText_Defaults(t *testing.T) {
	store := new(mockStore)
	chk := new(mockChunker)
	ti := &TextIngester{log: testRegistryLogger(), store: store, chunker: chk}

	chk.On("Chunk", "some text", "upload", "upload", "main").Return([]docstore.Chunk{{Text: "some text"}})
	store.On("Injest", mock.Anything, mock.Anything).Return(nil)

	_, err := ti.IngestText(context.Background(), "some text", "", "", "")
	require.NoError(t, err)
	chk.AssertExpectations(t)
}

func Test_IngestText_EmptyContent(t *testing.T) {
	store := new(mockStore)
	chk := new(mockChunker)
	ti := &TextIngester{log: testRegistryLogger(), store: store, chunker: chk}

	_, err := ti.IngestText(context.Background(), "   \n ", "src", "", "")
	assert.ErrorIs(t, err, errEmptyContent)
	store.AssertNotCalled(t, "Injest", mock.Anything, mock.Anything)
}

func Test_IngestText_StoreError(t *testing.T) {
	store := new(mockStore)
	chk := new(mockChunker)
	ti := &TextIngester{log: testRegistryLogger(), store: store, chunker: chk}

	chk.On("Chunk", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]docstore.Chunk{{Text: "x"}})
	store.On("Injest", mock.Anything, mock.Anything).Return(assert.AnError)

	_, err := ti.IngestText(context.Background(), "x", "src", "", "")
	assert.ErrorIs(t, err, assert.AnError)
}
