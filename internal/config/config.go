// Package config loads the process configuration from the environment.
// The Config struct is constructed once at startup and passed by reference;
// nothing reads the environment after Load returns.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Vector store backends.
const (
	BackendPGVector = "pgvector"
	BackendDuckDB   = "duckdb"
)

// Config carries every tunable the service reads from the environment.
type Config struct {
	// Postgres+pgvector DSN (Heroku-style DATABASE_URL).
	DatabaseURL string

	// Managed inference (chat) endpoint.
	InferenceURL     string
	InferenceKey     string
	InferenceModelID string

	// Managed embeddings endpoint.
	EmbeddingURL     string
	EmbeddingKey     string
	EmbeddingModelID string

	// Chunking and embedding pipeline.
	ChunkMaxBytes     int
	ChunkOverlapBytes int
	EmbedBatchSize    int
	EmbedDim          int

	// Vector store selection.
	VectorBackend string
	DuckDBPath    string

	// Optional Data Cloud follow-up query configuration.
	DataCloudOrg   string
	DataCloudQuery string

	// AppLink add-on API (org authorization lookups).
	AppLinkAPIURL string
	AppLinkToken  string

	// Bearer token protecting the /v1 admin routes. Empty disables auth.
	AuthToken string

	AppEnv   string
	LogLevel string
	Port     int
}

// Load builds a Config from the given environment lookup. Defaults follow
// the managed-platform conventions; hard requirements are checked by the
// Validate* helpers so commands can demand only what they use.
func Load(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		DatabaseURL:      strings.TrimSpace(getenv("DATABASE_URL")),
		InferenceURL:     stringOr(getenv("INFERENCE_URL"), "https://ai.heroku.com/inference"),
		InferenceKey:     strings.TrimSpace(getenv("INFERENCE_KEY")),
		InferenceModelID: strings.TrimSpace(getenv("INFERENCE_MODEL_ID")),
		EmbeddingURL:     stringOr(getenv("EMBEDDING_URL"), "https://ai.heroku.com/embeddings"),
		EmbeddingKey:     strings.TrimSpace(getenv("EMBEDDING_KEY")),
		EmbeddingModelID: strings.TrimSpace(getenv("EMBEDDING_MODEL_ID")),
		DuckDBPath:       stringOr(getenv("DUCKDB_PATH"), defaultDuckDBPath()),
		DataCloudOrg:     strings.TrimSpace(getenv("DATA_CLOUD_ORG")),
		DataCloudQuery:   strings.TrimSpace(getenv("DATA_CLOUD_QUERY")),
		AppLinkAPIURL:    strings.TrimSpace(getenv("HEROKU_APPLINK_API_URL")),
		AppLinkToken:     strings.TrimSpace(getenv("HEROKU_APPLINK_TOKEN")),
		AuthToken:        strings.TrimSpace(getenv("ORGBRIDGE_AUTH_TOKEN")),
		AppEnv:           stringOr(getenv("APP_ENV"), "development"),
		LogLevel:         stringOr(getenv("LOG_LEVEL"), "INFO"),
	}

	var err error
	if cfg.ChunkMaxBytes, err = intOr(getenv("RAG_CHUNK_SIZE"), 1024); err != nil {
		return nil, fmt.Errorf("parse RAG_CHUNK_SIZE: %w", err)
	}
	if cfg.ChunkOverlapBytes, err = intOr(getenv("RAG_CHUNK_OVERLAP"), 100); err != nil {
		return nil, fmt.Errorf("parse RAG_CHUNK_OVERLAP: %w", err)
	}
	if cfg.EmbedBatchSize, err = intOr(getenv("RAG_EMBED_BATCH_SIZE"), 96); err != nil {
		return nil, fmt.Errorf("parse RAG_EMBED_BATCH_SIZE: %w", err)
	}
	if cfg.EmbedDim, err = intOr(getenv("RAG_EMBED_DIM"), 1024); err != nil {
		return nil, fmt.Errorf("parse RAG_EMBED_DIM: %w", err)
	}
	if cfg.Port, err = intOr(getenv("PORT"), 8000); err != nil {
		return nil, fmt.Errorf("parse PORT: %w", err)
	}

	cfg.VectorBackend = strings.TrimSpace(getenv("VECTOR_BACKEND"))
	if cfg.VectorBackend == "" {
		if cfg.DatabaseURL != "" {
			cfg.VectorBackend = BackendPGVector
		} else {
			cfg.VectorBackend = BackendDuckDB
		}
	}
	switch cfg.VectorBackend {
	case BackendPGVector, BackendDuckDB:
	default:
		return nil, fmt.Errorf("VECTOR_BACKEND must be %q or %q, got %q", BackendPGVector, BackendDuckDB, cfg.VectorBackend)
	}

	return cfg, nil
}

// NormalizedDatabaseURL rewrites the legacy postgres:// scheme that the
// platform provisions to the canonical postgresql:// form.
func (c *Config) NormalizedDatabaseURL() string {
	if strings.HasPrefix(c.DatabaseURL, "postgres://") {
		return "postgresql://" + strings.TrimPrefix(c.DatabaseURL, "postgres://")
	}
	return c.DatabaseURL
}

// EmbeddingAPIBase returns the OpenAI-compatible base URL of the
// embeddings endpoint.
func (c *Config) EmbeddingAPIBase() string {
	return strings.TrimRight(c.EmbeddingURL, "/") + "/v1"
}

// InferenceAPIBase returns the OpenAI-compatible base URL of the chat
// inference endpoint.
func (c *Config) InferenceAPIBase() string {
	return strings.TrimRight(c.InferenceURL, "/") + "/v1"
}

// ValidateStore checks that the selected vector backend is usable.
func (c *Config) ValidateStore() error {
	if c.VectorBackend == BackendPGVector && c.DatabaseURL == "" {
		return fmt.Errorf("missing required env DATABASE_URL for the pgvector backend")
	}
	return nil
}

// ValidateIngest checks the settings the ingestion pipeline needs.
func (c *Config) ValidateIngest() error {
	missing := missingNames(map[string]string{
		"EMBEDDING_KEY":      c.EmbeddingKey,
		"EMBEDDING_MODEL_ID": c.EmbeddingModelID,
	})
	if len(missing) > 0 {
		return fmt.Errorf("missing required env: %s", strings.Join(missing, ", "))
	}
	return c.ValidateStore()
}

// ValidateSearch checks the settings the RAG search path needs.
func (c *Config) ValidateSearch() error {
	missing := missingNames(map[string]string{
		"EMBEDDING_KEY":      c.EmbeddingKey,
		"EMBEDDING_MODEL_ID": c.EmbeddingModelID,
		"INFERENCE_KEY":      c.InferenceKey,
		"INFERENCE_MODEL_ID": c.InferenceModelID,
	})
	if len(missing) > 0 {
		return fmt.Errorf("missing required env: %s", strings.Join(missing, ", "))
	}
	return c.ValidateStore()
}

func missingNames(vals map[string]string) []string {
	var missing []string
	for name, v := range vals {
		if v == "" {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

func stringOr(raw, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	return raw
}

func intOr(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func defaultDuckDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "orgbridge.duckdb"
	}
	return filepath.Join(home, ".orgbridge", "orgbridge.duckdb")
}
