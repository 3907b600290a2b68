package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/orgbridge/go-orgbridge/internal/vecstore"
)

// memStore is an in-memory vecstore.Store that records calls.
type memStore struct {
	mu      sync.Mutex
	docs    []vecstore.Document
	deleted []string
	upserts int
}

func (s *memStore) Upsert(ctx context.Context, docs []vecstore.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, docs...)
	s.upserts++
	return nil
}

func (s *memStore) Search(ctx context.Context, embedding []float32, topK int) ([]vecstore.Match, error) {
	return nil, nil
}

func (s *memStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs), nil
}

func (s *memStore) DeleteByFileName(ctx context.Context, fileName string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, fileName)
	var kept []vecstore.Document
	var removed int64
	for _, doc := range s.docs {
		if name, _ := doc.Metadata["file_name"].(string); name == fileName {
			removed++
			continue
		}
		kept = append(kept, doc)
	}
	s.docs = kept
	return removed, nil
}

func (s *memStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = nil
	return nil
}

func (s *memStore) Close() error { return nil }

func (s *memStore) snapshot() []vecstore.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]vecstore.Document, len(s.docs))
	copy(out, s.docs)
	return out
}

// stubEmbedder returns fixed-size vectors and records each batch.
type stubEmbedder struct {
	mu      sync.Mutex
	batches [][]string
	err     error
}

func (e *stubEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	batch := make([]string, len(texts))
	copy(batch, texts)
	e.batches = append(e.batches, batch)
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(len(texts[i])), 0, 0}
	}
	return vectors, nil
}

func (e *stubEmbedder) batchSizes() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	sizes := make([]int, len(e.batches))
	for i, b := range e.batches {
		sizes[i] = len(b)
	}
	return sizes
}

func TestIngestDocument_ChunksAndMetadata(t *testing.T) {
	store := &memStore{}
	embedder := &stubEmbedder{}
	p := NewPipeline(embedder, store, Options{MaxBytes: 10, OverlapBytes: 0})

	content := "aaaa bbbb cccc"
	n, err := p.IngestDocument(context.Background(), content, map[string]any{"source": "local"})
	if err != nil {
		t.Fatalf("IngestDocument: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 chunks, got %d", n)
	}

	docs := store.snapshot()
	if len(docs) != 2 {
		t.Fatalf("expected 2 stored documents, got %d", len(docs))
	}
	if docs[0].Text != "aaaa bbbb " || docs[1].Text != "cccc" {
		t.Fatalf("unexpected chunk texts: %q, %q", docs[0].Text, docs[1].Text)
	}
	if docs[0].ID == "" || docs[0].ID == docs[1].ID {
		t.Fatalf("expected distinct non-empty IDs, got %q and %q", docs[0].ID, docs[1].ID)
	}

	for i, doc := range docs {
		if got := doc.Metadata["source"]; got != "local" {
			t.Errorf("doc %d source = %v, want local", i, got)
		}
		if got := doc.Metadata["chunk_index"]; got != i {
			t.Errorf("doc %d chunk_index = %v, want %d", i, got, i)
		}
		if got := doc.Metadata["total_chunks"]; got != 2 {
			t.Errorf("doc %d total_chunks = %v, want 2", i, got)
		}
		sum := sha256.Sum256([]byte(doc.Text))
		if got := doc.Metadata["text_sha256"]; got != hex.EncodeToString(sum[:]) {
			t.Errorf("doc %d text_sha256 = %v, want %s", i, got, hex.EncodeToString(sum[:]))
		}
		if len(doc.Embedding) != 3 {
			t.Errorf("doc %d embedding length = %d, want 3", i, len(doc.Embedding))
		}
	}
}

func TestIngestDocument_BatchesEmbeddings(t *testing.T) {
	store := &memStore{}
	embedder := &stubEmbedder{}
	p := NewPipeline(embedder, store, Options{MaxBytes: 4, OverlapBytes: 0, BatchSize: 2})

	// 18 bytes with maxBytes 4 yields 5 chunks.
	n, err := p.IngestDocument(context.Background(), strings.Repeat("ab", 9), nil)
	if err != nil {
		t.Fatalf("IngestDocument: %v", err)
	}
	if n != 5 {
		t.Fatalf("expected 5 chunks, got %d", n)
	}

	sizes := embedder.batchSizes()
	if len(sizes) != 3 || sizes[0] != 2 || sizes[1] != 2 || sizes[2] != 1 {
		t.Fatalf("expected batch sizes [2 2 1], got %v", sizes)
	}

	// Chunk order survives batching.
	docs := store.snapshot()
	for i, doc := range docs {
		if got := doc.Metadata["chunk_index"]; got != i {
			t.Fatalf("doc %d chunk_index = %v", i, got)
		}
	}
	if store.upserts != 1 {
		t.Fatalf("expected a single upsert, got %d", store.upserts)
	}
}

func TestIngestDocument_NormalizesNFC(t *testing.T) {
	store := &memStore{}
	p := NewPipeline(&stubEmbedder{}, store, Options{})

	// Decomposed e + combining acute accent becomes a single code point.
	if _, err := p.IngestDocument(context.Background(), "café", nil); err != nil {
		t.Fatalf("IngestDocument: %v", err)
	}
	docs := store.snapshot()
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if docs[0].Text != "café" {
		t.Fatalf("expected NFC-normalized text, got %q", docs[0].Text)
	}
}

func TestIngestDocument_Empty(t *testing.T) {
	store := &memStore{}
	embedder := &stubEmbedder{}
	p := NewPipeline(embedder, store, Options{})

	n, err := p.IngestDocument(context.Background(), "", map[string]any{"source": "local"})
	if err != nil {
		t.Fatalf("IngestDocument: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 chunks, got %d", n)
	}
	if len(embedder.batchSizes()) != 0 {
		t.Fatal("embedder should not be called for empty content")
	}
	if store.upserts != 0 {
		t.Fatal("store should not be called for empty content")
	}
}

func TestIngestDocument_EmbedError(t *testing.T) {
	store := &memStore{}
	embedder := &stubEmbedder{err: errors.New("model offline")}
	p := NewPipeline(embedder, store, Options{})

	_, err := p.IngestDocument(context.Background(), "some text", nil)
	if err == nil || !strings.Contains(err.Error(), "model offline") {
		t.Fatalf("expected embed error, got %v", err)
	}
	if store.upserts != 0 {
		t.Fatal("store should not be touched when embedding fails")
	}
}

func TestIngestFile_ReplacesPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guide.md")
	if err := os.WriteFile(path, []byte("getting started guide"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := &memStore{}
	p := NewPipeline(&stubEmbedder{}, store, Options{})

	n, err := p.IngestFile(context.Background(), path, map[string]any{"source": "github_readme", "repo_name": "guide"})
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 chunk, got %d", n)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "guide.md" {
		t.Fatalf("expected stale chunks dropped for guide.md, got %v", store.deleted)
	}

	doc := store.snapshot()[0]
	if doc.Metadata["file_name"] != "guide.md" {
		t.Errorf("file_name = %v", doc.Metadata["file_name"])
	}
	if doc.Metadata["file_path"] != path {
		t.Errorf("file_path = %v", doc.Metadata["file_path"])
	}
	if doc.Metadata["source"] != "github_readme" || doc.Metadata["repo_name"] != "guide" {
		t.Errorf("extra metadata not carried: %v", doc.Metadata)
	}

	// Re-ingesting after an edit leaves exactly the new chunks.
	if err := os.WriteFile(path, []byte("rewritten guide"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := p.IngestFile(context.Background(), path, nil); err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	docs := store.snapshot()
	if len(docs) != 1 || docs[0].Text != "rewritten guide" {
		t.Fatalf("expected only the re-ingested chunk, got %d docs", len(docs))
	}
}

func TestIngestFile_MissingFile(t *testing.T) {
	p := NewPipeline(&stubEmbedder{}, &memStore{}, Options{})
	_, err := p.IngestFile(context.Background(), filepath.Join(t.TempDir(), "absent.md"), nil)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestNewPipeline_Defaults(t *testing.T) {
	p := NewPipeline(&stubEmbedder{}, &memStore{}, Options{})
	if p.maxBytes != 1024 || p.overlapBytes != 100 || p.batchSize != DefaultBatchSize {
		t.Fatalf("unexpected defaults: max=%d overlap=%d batch=%d", p.maxBytes, p.overlapBytes, p.batchSize)
	}
}
