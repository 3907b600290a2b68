// Package vecstore persists embedded document chunks and serves cosine
// similarity searches over them. Two backends share one interface:
// Postgres with pgvector for deployed apps, an embedded DuckDB file for
// local work.
package vecstore

import "context"

// Document is one embedded chunk. Metadata carries provenance keys such as
// source, repo_name, file_path, file_name, org, chunk_index, total_chunks
// and text_sha256.
type Document struct {
	ID        string         `json:"id"`
	Text      string         `json:"text"`
	Embedding []float32      `json:"-"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Match is a search hit with its cosine similarity to the query, higher is
// closer.
type Match struct {
	Document
	Score float64 `json:"score"`
}

// Store is the backend-neutral document store.
type Store interface {
	// Upsert writes documents, replacing any with the same ID.
	Upsert(ctx context.Context, docs []Document) error
	// Search returns the topK documents nearest to the query embedding.
	Search(ctx context.Context, embedding []float32, topK int) ([]Match, error)
	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)
	// DeleteByFileName removes all chunks whose metadata file_name matches.
	DeleteByFileName(ctx context.Context, fileName string) (int64, error)
	// Clear removes every document.
	Clear(ctx context.Context) error
	// Close releases the backend.
	Close() error
}
