package vecstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2"
)

// DuckDB implements Store backed by an embedded DuckDB file. It needs no
// external services, which makes it the default for local development.
type DuckDB struct {
	db   *sql.DB
	path string
	dim  int
}

// NewDuckDB opens (or creates) the database file and ensures the documents
// table exists.
func NewDuckDB(dbPath string, dim int) (*DuckDB, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("vecstore: embedding dimension must be positive, got %d", dim)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("vecstore: create db directory: %w", err)
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("vecstore: open duckdb: %w", err)
	}

	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS documents (
    node_id VARCHAR PRIMARY KEY,
    text VARCHAR,
    metadata JSON,
    embedding FLOAT[%d]
);
`, dim)
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("vecstore: ensure schema: %w", err)
	}

	// Security hardening
	if _, err := db.Exec("SET enable_external_access=false"); err != nil {
		db.Close()
		return nil, fmt.Errorf("vecstore: set security settings: %w", err)
	}

	return &DuckDB{db: db, path: dbPath, dim: dim}, nil
}

// Upsert writes documents in one transaction, replacing rows that share a
// node ID.
func (s *DuckDB) Upsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("vecstore: begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt := fmt.Sprintf(`
		INSERT OR REPLACE INTO documents (node_id, text, metadata, embedding)
		VALUES (?, ?, ?, ?::FLOAT[%d])
	`, s.dim)
	for _, d := range docs {
		if len(d.Embedding) != s.dim {
			return fmt.Errorf("vecstore: document %s: embedding length %d does not match dimension %d",
				d.ID, len(d.Embedding), s.dim)
		}
		metaBytes, err := json.Marshal(d.Metadata)
		if err != nil {
			return fmt.Errorf("vecstore: encode metadata for %s: %w", d.ID, err)
		}
		if _, err := tx.ExecContext(ctx, stmt, d.ID, d.Text, string(metaBytes), d.Embedding); err != nil {
			return fmt.Errorf("vecstore: upsert %s: %w", d.ID, err)
		}
	}
	return tx.Commit()
}

// Search returns the topK nearest documents by cosine distance.
func (s *DuckDB) Search(ctx context.Context, embedding []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 10
	}
	if len(embedding) != s.dim {
		return nil, fmt.Errorf("vecstore: embedding length %d does not match dimension %d", len(embedding), s.dim)
	}

	query := fmt.Sprintf(`
		SELECT node_id, text, metadata,
		       1 - array_cosine_distance(embedding, ?::FLOAT[%d]) AS score
		FROM documents
		ORDER BY array_cosine_distance(embedding, ?::FLOAT[%d]) ASC
		LIMIT ?
	`, s.dim, s.dim)

	rows, err := s.db.QueryContext(ctx, query, embedding, embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("vecstore: search: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var metaRaw sql.NullString
		if err := rows.Scan(&m.ID, &m.Text, &metaRaw, &m.Score); err != nil {
			return nil, fmt.Errorf("vecstore: scan match: %w", err)
		}
		if metaRaw.Valid && metaRaw.String != "" {
			if err := json.Unmarshal([]byte(metaRaw.String), &m.Metadata); err != nil {
				return nil, fmt.Errorf("vecstore: decode metadata for %s: %w", m.ID, err)
			}
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Count returns the number of stored documents.
func (s *DuckDB) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&n); err != nil {
		return 0, fmt.Errorf("vecstore: count: %w", err)
	}
	return n, nil
}

// DeleteByFileName removes all chunks ingested from the named file.
func (s *DuckDB) DeleteByFileName(ctx context.Context, fileName string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE json_extract_string(metadata, '$.file_name') = ?", fileName)
	if err != nil {
		return 0, fmt.Errorf("vecstore: delete by file name: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes every document.
func (s *DuckDB) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return fmt.Errorf("vecstore: clear: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *DuckDB) Close() error {
	return s.db.Close()
}
