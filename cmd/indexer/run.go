package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jonathan/corpus-indexer/internal/links"
	"github.com/jonathan/corpus-indexer/internal/metadata"
	"github.com/jonathan/corpus-indexer/internal/parse"
	"github.com/jonathan/corpus-indexer/internal/stats"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: index, crawl, parse, attach",
	Long:  "Runs every stage in order against the data root and prints the run summary. Previously crawled artifacts are kept; the audit log and error CSV are reset at start.",
	RunE:  runAll,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runAll(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("API key required: set --api-key flag or GEMINI_API_KEY environment variable")
	}
	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.close()

	if err := p.errors.Reset(); err != nil {
		return err
	}

	ctx := cmd.Context()

	count, err := links.BuildIndex(ctx, p.lay, links.DefaultSources())
	if err != nil {
		return fmt.Errorf("failed to build link index: %w", err)
	}
	p.run.Set(func(r *stats.Run) { r.TotalDocumentsIndexed = count })

	entries, err := links.ReadAllLinks(p.lay.AllLinks())
	if err != nil {
		return err
	}

	crawler := newCrawler(p)
	if _, err := crawler.Crawl(ctx, entries); err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	engine, err := parse.NewGeminiEngine(ctx, cfg.APIKey, cfg.Model)
	if err != nil {
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close structuring engine")
		}
	}()

	parser := newParser(p, engine)
	if err := parser.ParseAll(ctx); err != nil {
		return fmt.Errorf("parse failed: %w", err)
	}

	attacher := metadata.New(p.lay, p.auditLog, p.run)
	attacher.ExcludedTitleDomains = cfg.ExcludedTitleDomains
	if err := attacher.AttachAll(); err != nil {
		return fmt.Errorf("metadata attachment failed: %w", err)
	}

	if err := metadata.CountMetadataOnly(p.lay, p.run); err != nil {
		return err
	}

	_, _ = fmt.Fprintln(os.Stdout, p.run.Summary())
	return nil
}
