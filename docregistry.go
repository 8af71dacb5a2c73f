package main

import (
	"context"
	"fmt"
	"hash/crc32"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gamma-omg/rag-qa/docstore"
)

type DocStore interface {
	Injest(ctx context.Context, doc docstore.Doc) error
	Retrieve(ctx context.Context, query string) ([]docstore.RetrievedChunk, error)
	Forget(ctx context.Context, doc docstore.InjestedDoc) error
	GetInjested(ctx context.Context) ([]docstore.InjestedDoc, error)
}

type FileReader interface {
	CanRead(path string) bool
	ReadText(path string) (string, error)
}

type Chunker interface {
	Chunk(text, source, title, section string) []docstore.Chunk
}

// DocRegistry keeps the vector store in sync with the documents under root.
type DocRegistry struct {
	log              *slog.Logger
	root             string
	mergeEventsDelay time.Duration
	store            DocStore
	chunker          Chunker
	readers          []FileReader
}

type DiskDoc struct {
	File string
	Crc  uint32
}

type diskDocs map[string]DiskDoc
type dbDocs map[string]docstore.InjestedDoc

// Sync diffs the documents on disk against the ingested set: changed and new
// documents are re-ingested, removed ones forgotten. Forgetting runs first so
// a changed document's stale chunks never outlive its fresh ones.
func (dr *DocRegistry) Sync(ctx context.Context) error {
	disk, err := dr.collectDocs()
	if err != nil {
		return err
	}

	diskMap := make(diskDocs)
	for _, d := range disk {
		diskMap[d.File] = d
	}

	db, err := dr.store.GetInjested(ctx)
	if err != nil {
		return err
	}

	dbMap := make(dbDocs)
	for _, d := range db {
		dbMap[d.File] = d
	}

	if err := dr.forgetRemovedDocuments(ctx, diskMap, dbMap); err != nil {
		return err
	}

	return dr.injestNewDocuments(ctx, diskMap, dbMap)
}

// Watch re-syncs after filesystem changes under root, merging event bursts
// into a single sync per mergeEventsDelay window.
func (dr *DocRegistry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	err = filepath.Walk(dr.root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return watcher.Add(path)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", dr.root, err)
	}

	var timer *time.Timer
	synced := make(chan struct{}, 1)
	schedule := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(dr.mergeEventsDelay, func() {
			select {
			case synced <- struct{}{}:
			default:
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watcher.Add(event.Name); err != nil {
						dr.log.Warn("failed to watch new directory", "path", event.Name, "error", err)
					}
				}
			}
			schedule()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			dr.log.Warn("watch error", "error", err)
		case <-synced:
			if err := dr.Sync(ctx); err != nil {
				dr.log.Error("failed to sync documents", "error", err)
			}
		}
	}
}

func (dr *DocRegistry) RegisterReader(readers ...FileReader) {
	dr.readers = append(dr.readers, readers...)
}

func (dr *DocRegistry) collectDocs() (docs []DiskDoc, err error) {
	err = filepath.Walk(dr.root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		reader, e := dr.findReader(path)
		if e != nil {
			dr.log.Warn(fmt.Sprintf("unsupported file: %s", path))
			return nil
		}

		text, e := reader.ReadText(path)
		if e != nil {
			return e
		}

		docs = append(docs, DiskDoc{
			File: path,
			Crc:  crc32.Checksum([]byte(text), crc32.IEEETable),
		})

		return nil
	})
	if err != nil {
		return
	}

	return
}

func (dr *DocRegistry) injestNewDocuments(ctx context.Context, disk diskDocs, db dbDocs) error {
	for _, diskDoc := range disk {
		dbDoc, ok := db[diskDoc.File]
		if ok && dbDoc.Crc == diskDoc.Crc {
			continue
		}

		reader, err := dr.findReader(diskDoc.File)
		if err != nil {
			return fmt.Errorf("failed to find reader for document %s: %w", diskDoc.File, err)
		}

		text, err := reader.ReadText(diskDoc.File)
		if err != nil {
			return fmt.Errorf("failed to read document %s: %w", diskDoc.File, err)
		}

		source := dr.source(diskDoc.File)
		title := strings.TrimSuffix(filepath.Base(diskDoc.File), filepath.Ext(diskDoc.File))
		chunks := dr.chunker.Chunk(text, source, title, "main")
		if len(chunks) == 0 {
			dr.log.Warn("document has no content, skipping", "file", diskDoc.File)
			continue
		}

		err = dr.store.Injest(ctx, docstore.Doc{
			File:   diskDoc.File,
			Crc:    diskDoc.Crc,
			Chunks: chunks,
		})
		if err != nil {
			return fmt.Errorf("failed to store document %s: %w", diskDoc.File, err)
		}

		dr.log.Info("injested document", "file", diskDoc.File, "chunks", len(chunks))
	}

	return nil
}

func (dr *DocRegistry) forgetRemovedDocuments(ctx context.Context, disk diskDocs, db dbDocs) error {
	for _, dbDoc := range db {
		diskDoc, ok := disk[dbDoc.File]
		if ok && diskDoc.Crc == dbDoc.Crc {
			continue
		}

		err := dr.store.Forget(ctx, dbDoc)
		if err != nil {
			return fmt.Errorf("failed to remove document %s from store: %w", dbDoc.File, err)
		}
	}

	return nil
}

// source is the chunk address prefix: stable across hosts, so relative to root.
func (dr *DocRegistry) source(file string) string {
	rel, err := filepath.Rel(dr.root, file)
	if err != nil {
		return file
	}

	return filepath.ToSlash(rel)
}

func (dr *DocRegistry) findReader(file string) (FileReader, error) {
	for _, r := range dr.readers {
		if r.CanRead(file) {
			return r, nil
		}
	}

	return nil, fmt.Errorf("unable to find reader for file: %s", file)
}
