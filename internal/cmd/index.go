package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// Index command flags
var (
	indexClearYes bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect and manage the vector index",
	Long: `Inspect and manage the vector index.

Examples:
  orgbridge index stats                        # Show document count
  orgbridge index delete my-app_README.md     # Remove one file's chunks
  orgbridge index clear --yes                  # Drop everything`,
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the size of the vector index",
	RunE:  runIndexStats,
}

var indexClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every document from the vector index",
	Long: `Delete every document from the vector index.

Prompts for confirmation unless --yes is given.`,
	RunE: runIndexClear,
}

var indexDeleteCmd = &cobra.Command{
	Use:   "delete <file-name>",
	Short: "Delete one file's chunks from the vector index",
	Long: `Delete every chunk whose file_name metadata matches the argument.

The file name is the stored name, e.g. my-app_README.md for a swept README.

Examples:
  orgbridge index delete my-app_README.md`,
	Args: cobra.ExactArgs(1),
	RunE: runIndexDelete,
}

func runIndexStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	count, err := store.Count(context.Background())
	if err != nil {
		return fmt.Errorf("count documents: %w", err)
	}
	fmt.Printf("Store: %s\n", cfg.VectorBackend)
	fmt.Printf("Documents: %d\n", count)
	return nil
}

func runIndexClear(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if !indexClearYes {
		fmt.Printf("This deletes every indexed document from the %s store. Continue? [y/N] ", cfg.VectorBackend)
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(context.Background()); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	fmt.Println("Index cleared.")
	return nil
}

func runIndexDelete(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	deleted, err := store.DeleteByFileName(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("delete %s: %w", args[0], err)
	}
	if deleted == 0 {
		fmt.Printf("No documents matched %s\n", args[0])
		return nil
	}
	fmt.Printf("Deleted %d chunks for %s\n", deleted, args[0])
	return nil
}
