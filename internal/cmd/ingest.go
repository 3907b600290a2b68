package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/orgbridge/go-orgbridge/internal/config"
	"github.com/orgbridge/go-orgbridge/internal/github"
	"github.com/orgbridge/go-orgbridge/internal/ingest"
	"github.com/orgbridge/go-orgbridge/internal/vecstore"
)

// Ingest command flags
var (
	ingestWatch       bool
	sweepOrg          string
	sweepManifestPath string
	sweepOutputDir    string
	sweepSkipExisting bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load documents into the vector index",
	Long: `Load documents into the vector index.

Documents are split into overlapping chunks, embedded with the managed
embeddings endpoint, and upserted into the configured vector store.

Examples:
  orgbridge ingest dir ./docs              # Ingest every document under ./docs
  orgbridge ingest dir ./docs --watch      # Ingest, then re-ingest on change
  orgbridge ingest readmes                 # Sweep org READMEs from GitHub`,
}

var ingestDirCmd = &cobra.Command{
	Use:   "dir <path>",
	Short: "Ingest every document file under a directory",
	Long: `Ingest every document file (.md, .markdown, .txt) under a directory.

With --watch the command keeps running after the initial ingest and
re-ingests files as they are created or modified, until interrupted.

Examples:
  orgbridge ingest dir ./reference-app-readmes
  orgbridge ingest dir ./docs --watch`,
	Args: cobra.ExactArgs(1),
	RunE: runIngestDir,
}

var ingestReadmesCmd = &cobra.Command{
	Use:   "readmes",
	Short: "Sweep GitHub organization READMEs into the index",
	Long: `Download the README of every public repository in a GitHub organization,
save each one under the output directory as {repo}_{filename}, and ingest
them into the vector store.

A TOML manifest can sweep several organizations with include/exclude
filters; without one, a single --org is swept (default heroku-reference-apps).
Set GITHUB_TOKEN to raise the API rate limit.

Examples:
  orgbridge ingest readmes                           # Sweep the default org
  orgbridge ingest readmes --org my-org              # Sweep another org
  orgbridge ingest readmes --manifest sweep.toml     # Multi-org sweep
  orgbridge ingest readmes --skip-existing           # Reuse downloaded files`,
	RunE: runIngestReadmes,
}

func runIngestDir(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateIngest(); err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	pipeline := newPipeline(cfg, store)

	if ingestWatch {
		ctx, cancel := interruptContext()
		defer cancel()
		fmt.Printf("Watching %s for changes (Ctrl+C to stop)...\n", args[0])
		return pipeline.WatchDir(ctx, args[0])
	}

	files, chunks, err := pipeline.IngestDir(context.Background(), args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Ingested %d files (%d chunks) into the %s store\n", files, chunks, cfg.VectorBackend)
	return nil
}

func runIngestReadmes(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateIngest(); err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	pipeline := newPipeline(cfg, store)
	src := github.NewClient(os.Getenv("GITHUB_TOKEN"), nil)

	ctx, cancel := interruptContext()
	defer cancel()

	var res *ingest.SweepResult
	if sweepManifestPath != "" {
		m, err := ingest.LoadManifest(sweepManifestPath)
		if err != nil {
			return err
		}
		if sweepOutputDir != "" {
			m.OutputDir = sweepOutputDir
		}
		res, err = pipeline.SweepManifest(ctx, src, m, sweepSkipExisting)
		if err != nil {
			return err
		}
	} else {
		res, err = pipeline.SweepReadmes(ctx, src, ingest.SweepOptions{
			Org:          sweepOrg,
			OutputDir:    sweepOutputDir,
			SkipExisting: sweepSkipExisting,
		})
		if err != nil {
			return err
		}
	}

	fmt.Printf("Swept %d repositories: %d downloaded, %d reused, %d ingested (%d chunks)\n",
		res.Repos, res.Downloaded, res.Reused, res.Ingested, res.Chunks)
	for _, repo := range res.Missing {
		fmt.Printf("  no README: %s\n", repo)
	}
	for _, failure := range res.Failed {
		fmt.Printf("  failed: %s\n", failure)
	}
	if len(res.Failed) > 0 {
		return fmt.Errorf("%d repositories failed", len(res.Failed))
	}
	return nil
}

// newPipeline builds the ingestion pipeline from the chunking config.
func newPipeline(cfg *config.Config, store vecstore.Store) *ingest.Pipeline {
	return ingest.NewPipeline(newEmbedder(cfg), store, ingest.Options{
		MaxBytes:     cfg.ChunkMaxBytes,
		OverlapBytes: cfg.ChunkOverlapBytes,
		BatchSize:    cfg.EmbedBatchSize,
	})
}
