package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/corpus-indexer/internal/layout"
	"github.com/jonathan/corpus-indexer/internal/links"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Collect source links into the merged link table",
	Long:  "Scrapes every configured link source, normalizes and deduplicates the URLs, and writes per-source listings plus the merged all_links.csv table.",
	RunE:  runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	lay := layout.New(cfg.DataPath)
	if err := lay.Create(); err != nil {
		return err
	}

	count, err := links.BuildIndex(cmd.Context(), lay, links.DefaultSources())
	if err != nil {
		return fmt.Errorf("failed to build link index: %w", err)
	}

	_, _ = fmt.Fprintf(os.Stdout, "Indexed %d links\n", count)
	_, _ = fmt.Fprintf(os.Stdout, "Link table: %s\n", lay.AllLinks())
	return nil
}
