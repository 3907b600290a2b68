package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/orgbridge/go-orgbridge/internal/config"
	"github.com/orgbridge/go-orgbridge/internal/inference"
	"github.com/orgbridge/go-orgbridge/internal/svclog"
	"github.com/orgbridge/go-orgbridge/internal/vecstore"
)

// openStore opens the configured vector store backend.
func openStore(cfg *config.Config) (vecstore.Store, error) {
	if err := cfg.ValidateStore(); err != nil {
		return nil, err
	}
	switch cfg.VectorBackend {
	case config.BackendPGVector:
		return vecstore.NewPGVector(cfg.NormalizedDatabaseURL(), cfg.EmbedDim)
	default:
		return vecstore.NewDuckDB(cfg.DuckDBPath, cfg.EmbedDim)
	}
}

// newEmbedder builds the embedding client from the managed inference config.
func newEmbedder(cfg *config.Config) *inference.Embedder {
	return inference.NewEmbedder(cfg.EmbeddingAPIBase(), cfg.EmbeddingKey, cfg.EmbeddingModelID, cfg.EmbedDim)
}

// newChat builds the completion client from the managed inference config.
func newChat(cfg *config.Config) *inference.Chat {
	return inference.NewChat(cfg.InferenceAPIBase(), cfg.InferenceKey, cfg.InferenceModelID)
}

// eventsDBPath places the event log next to the vector database file.
func eventsDBPath(cfg *config.Config) string {
	return filepath.Join(filepath.Dir(cfg.DuckDBPath), "events.duckdb")
}

// interruptContext returns a context cancelled on the first SIGINT.
func interruptContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		svclog.Log.Info("Received interrupt signal, shutting down")
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		cancel()
	}()
	return ctx, cancel
}
