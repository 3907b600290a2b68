package vecstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// PGVector implements Store backed by Postgres + pgvector.
type PGVector struct {
	db  *sql.DB
	dim int
}

// NewPGVector connects to Postgres (with pgvector) and ensures the table
// and HNSW index exist.
func NewPGVector(dsn string, dim int) (*PGVector, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("vecstore: embedding dimension must be positive, got %d", dim)
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("vecstore: open postgres: %w", err)
	}
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &PGVector{db: db, dim: dim}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PGVector) ensureSchema() error {
	ddl := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS documents (
  node_id   text PRIMARY KEY,
  text      text,
  metadata_ jsonb,
  embedding vector(%d)
);
CREATE INDEX IF NOT EXISTS documents_meta_idx ON documents USING gin (metadata_);
CREATE INDEX IF NOT EXISTS documents_embedding_idx ON documents
  USING hnsw (embedding vector_cosine_ops) WITH (m = 16, ef_construction = 64);
`, s.dim)
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("vecstore: ensure schema: %w", err)
	}
	return nil
}

// Upsert writes documents in one transaction, replacing rows that share a
// node ID.
func (s *PGVector) Upsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("vecstore: begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt := `
INSERT INTO documents (node_id, text, metadata_, embedding)
VALUES ($1, $2, $3, $4)
ON CONFLICT (node_id) DO UPDATE SET
  text = EXCLUDED.text,
  metadata_ = EXCLUDED.metadata_,
  embedding = EXCLUDED.embedding;
`
	for _, d := range docs {
		embLit, err := toVectorLiteral(d.Embedding, s.dim)
		if err != nil {
			return fmt.Errorf("vecstore: document %s: %w", d.ID, err)
		}
		metaBytes, err := json.Marshal(d.Metadata)
		if err != nil {
			return fmt.Errorf("vecstore: encode metadata for %s: %w", d.ID, err)
		}
		if _, err := tx.ExecContext(ctx, stmt, d.ID, d.Text, metaBytes, embLit); err != nil {
			return fmt.Errorf("vecstore: upsert %s: %w", d.ID, err)
		}
	}
	return tx.Commit()
}

// Search returns the topK nearest documents by cosine distance.
func (s *PGVector) Search(ctx context.Context, embedding []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 10
	}
	embLit, err := toVectorLiteral(embedding, s.dim)
	if err != nil {
		return nil, fmt.Errorf("vecstore: %w", err)
	}

	// SET is per session, so the query must run on the same connection.
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("vecstore: acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "SET hnsw.ef_search = 40"); err != nil {
		return nil, fmt.Errorf("vecstore: set ef_search: %w", err)
	}

	query := `
SELECT node_id, text, metadata_, 1 - (embedding <=> $1::vector) AS score
FROM documents
ORDER BY embedding <=> $1::vector
LIMIT $2;
`
	rows, err := conn.QueryContext(ctx, query, embLit, topK)
	if err != nil {
		return nil, fmt.Errorf("vecstore: search: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var metaBytes []byte
		if err := rows.Scan(&m.ID, &m.Text, &metaBytes, &m.Score); err != nil {
			return nil, fmt.Errorf("vecstore: scan match: %w", err)
		}
		if len(metaBytes) > 0 {
			if err := json.Unmarshal(metaBytes, &m.Metadata); err != nil {
				return nil, fmt.Errorf("vecstore: decode metadata for %s: %w", m.ID, err)
			}
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Count returns the number of stored documents.
func (s *PGVector) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&n); err != nil {
		return 0, fmt.Errorf("vecstore: count: %w", err)
	}
	return n, nil
}

// DeleteByFileName removes all chunks ingested from the named file.
func (s *PGVector) DeleteByFileName(ctx context.Context, fileName string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE metadata_->>'file_name' = $1", fileName)
	if err != nil {
		return 0, fmt.Errorf("vecstore: delete by file name: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes every document.
func (s *PGVector) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return fmt.Errorf("vecstore: clear: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PGVector) Close() error {
	return s.db.Close()
}

// toVectorLiteral renders an embedding as a pgvector literal like
// "[0.1,0.2,...]".
func toVectorLiteral(embedding []float32, dim int) (string, error) {
	if len(embedding) == 0 {
		return "", errors.New("embedding is required")
	}
	if dim > 0 && len(embedding) != dim {
		return "", fmt.Errorf("embedding length %d does not match dimension %d", len(embedding), dim)
	}
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, ",")), nil
}
