// Package ingest turns source documents into embedded chunks in the vector
// store. Local directories and GitHub README sweeps feed the same pipeline:
// normalize, split, embed, upsert.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/orgbridge/go-orgbridge/internal/chunk"
	"github.com/orgbridge/go-orgbridge/internal/vecstore"
)

// DefaultBatchSize bounds how many chunks go to the embedder per round.
const DefaultBatchSize = 96

// TextEmbedder embeds chunk batches.
type TextEmbedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Options tune a Pipeline. Zero values take the chunker defaults and
// DefaultBatchSize.
type Options struct {
	MaxBytes     int
	OverlapBytes int
	BatchSize    int
}

// Pipeline chunks, embeds and stores documents.
type Pipeline struct {
	embedder     TextEmbedder
	store        vecstore.Store
	maxBytes     int
	overlapBytes int
	batchSize    int
}

// NewPipeline wires an embedder and a store into a pipeline.
func NewPipeline(embedder TextEmbedder, store vecstore.Store, opts Options) *Pipeline {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = chunk.DefaultMaxBytes
	}
	if opts.OverlapBytes < 0 {
		opts.OverlapBytes = chunk.DefaultOverlapBytes
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	return &Pipeline{
		embedder:     embedder,
		store:        store,
		maxBytes:     opts.MaxBytes,
		overlapBytes: opts.OverlapBytes,
		batchSize:    opts.BatchSize,
	}
}

// IngestDocument normalizes content to NFC, splits it, embeds the chunks in
// batches and upserts them. Every chunk carries the given metadata plus
// chunk_index, total_chunks and text_sha256. Returns the chunk count.
func (p *Pipeline) IngestDocument(ctx context.Context, content string, metadata map[string]any) (int, error) {
	content = norm.NFC.String(content)
	chunks, err := chunk.Split(content, p.maxBytes, p.overlapBytes)
	if err != nil {
		return 0, fmt.Errorf("ingest: split document: %w", err)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	docs := make([]vecstore.Document, 0, len(chunks))
	for start := 0; start < len(chunks); start += p.batchSize {
		end := min(start+p.batchSize, len(chunks))
		batch := chunks[start:end]

		vectors, err := p.embedder.EmbedTexts(ctx, batch)
		if err != nil {
			return 0, fmt.Errorf("ingest: embed chunks %d-%d: %w", start, end-1, err)
		}
		if len(vectors) != len(batch) {
			return 0, fmt.Errorf("ingest: embedder returned %d vectors for %d chunks", len(vectors), len(batch))
		}

		for i, text := range batch {
			meta := make(map[string]any, len(metadata)+3)
			for k, v := range metadata {
				meta[k] = v
			}
			meta["chunk_index"] = start + i
			meta["total_chunks"] = len(chunks)
			sum := sha256.Sum256([]byte(text))
			meta["text_sha256"] = hex.EncodeToString(sum[:])

			docs = append(docs, vecstore.Document{
				ID:        uuid.NewString(),
				Text:      text,
				Embedding: vectors[i],
				Metadata:  meta,
			})
		}
	}

	if err := p.store.Upsert(ctx, docs); err != nil {
		return 0, fmt.Errorf("ingest: store chunks: %w", err)
	}
	documentsIngestedTotal.Inc()
	return len(docs), nil
}

// IngestFile reads a document from disk and ingests it, first dropping any
// chunks previously stored under the same file name so re-ingesting a
// changed file never leaves stale chunks behind.
func (p *Pipeline) IngestFile(ctx context.Context, path string, extra map[string]any) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("ingest: read %s: %w", path, err)
	}

	fileName := filepath.Base(path)
	meta := make(map[string]any, len(extra)+2)
	for k, v := range extra {
		meta[k] = v
	}
	meta["file_path"] = path
	meta["file_name"] = fileName

	if _, err := p.store.DeleteByFileName(ctx, fileName); err != nil {
		return 0, fmt.Errorf("ingest: drop stale chunks for %s: %w", fileName, err)
	}
	return p.IngestDocument(ctx, string(data), meta)
}
