package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jonathan/corpus-indexer/internal/parse"
)

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Normalize crawled documents to Markdown",
	Long:  "Converts every crawled HTML and PDF artifact to clean Markdown, structuring the text through the Gemini engine with raw-text fallback; terminally failed documents move to the error folder.",
	RunE:  runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, _ []string) error {
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

	engine, err := parse.NewGeminiEngine(cmd.Context(), cfg.APIKey, cfg.Model)
	if err != nil {
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close structuring engine")
		}
	}()

	parser := newParser(p, engine)
	if err := parser.ParseAll(cmd.Context()); err != nil {
		return fmt.Errorf("parse failed: %w", err)
	}

	_, _ = fmt.Fprintf(os.Stdout, "Parsed documents written under %s\n", p.lay.OutDir("from_html"))
	return nil
}
