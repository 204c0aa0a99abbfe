package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/corpus-indexer/internal/links"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Fetch raw documents for every indexed link",
	Long:  "Fetches each link from all_links.csv in concurrent batches, stores raw HTML/PDF artifacts, and appends the fetch ledger. Links with an existing artifact are skipped.",
	RunE:  runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.close()

	entries, err := links.ReadAllLinks(p.lay.AllLinks())
	if err != nil {
		return fmt.Errorf("failed to load link table (run 'indexer index' first): %w", err)
	}

	crawler := newCrawler(p)
	records, err := crawler.Crawl(cmd.Context(), entries)
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	failed := 0
	for _, rec := range records {
		if rec.Failed() {
			failed++
		}
	}
	_, _ = fmt.Fprintf(os.Stdout, "Crawled %d documents (%d failed)\n", len(records), failed)
	_, _ = fmt.Fprintf(os.Stdout, "Ledger: %s\n", p.lay.Ledger())
	return nil
}
