// Package main provides the entry point for the corpus indexer CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jonathan/corpus-indexer/internal/audit"
	"github.com/jonathan/corpus-indexer/internal/config"
	"github.com/jonathan/corpus-indexer/internal/crawl"
	"github.com/jonathan/corpus-indexer/internal/fetch"
	"github.com/jonathan/corpus-indexer/internal/layout"
	"github.com/jonathan/corpus-indexer/internal/parse"
	"github.com/jonathan/corpus-indexer/internal/stats"
)

var rootCmd = &cobra.Command{
	Use:   "indexer",
	Short: "Document acquisition and normalization pipeline",
	Long:  "Indexer collects curated source links, crawls their documents, normalizes them to Markdown, and attaches provenance metadata, producing a corpus ready for retrieval ingestion.",
}

var (
	flagConfig  string
	flagData    string
	flagAPIKey  string
	flagModel   string
	flagBrowser bool
	flagVerbose bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Path to JSON config file")
	rootCmd.PersistentFlags().StringVarP(&flagData, "data", "d", "", "Data root directory (default: ./data)")
	rootCmd.PersistentFlags().StringVar(&flagAPIKey, "api-key", "", "Gemini API key (overrides GEMINI_API_KEY env var)")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "Gemini model for document structuring")
	rootCmd.PersistentFlags().BoolVar(&flagBrowser, "use-browser", true, "Enable the headless-browser fallback")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Print detailed debug information")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig merges flags, config file, environment and defaults, in that
// order of precedence, and configures logging.
func loadConfig() (config.Config, error) {
	cfg := config.Config{
		DataPath:   flagData,
		APIKey:     flagAPIKey,
		Model:      flagModel,
		UseBrowser: flagBrowser,
		Verbose:    flagVerbose,
	}

	if flagConfig != "" {
		fileCfg, err := config.LoadConfig(flagConfig)
		if err != nil {
			return config.Config{}, err
		}
		cfg = cfg.MergeWithDefaults(*fileCfg)
		cfg.UseBrowser = cfg.UseBrowser || fileCfg.UseBrowser
		cfg.Verbose = cfg.Verbose || fileCfg.Verbose
	}

	cfg.FromEnv()
	cfg = cfg.MergeWithDefaults(config.Defaults())
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	return cfg, nil
}

// pipeline bundles the shared run state every stage needs.
type pipeline struct {
	cfg      config.Config
	lay      layout.Layout
	auditLog *audit.Log
	errors   *audit.ErrorCSV
	run      *stats.Run
}

// newPipeline prepares the data root and opens the run artifacts. The audit
// log is truncated here, so one pipeline value spans exactly one run.
func newPipeline(cfg config.Config) (*pipeline, error) {
	lay := layout.New(cfg.DataPath)
	if err := lay.Create(); err != nil {
		return nil, err
	}
	auditLog, err := audit.Open(lay.AuditLog())
	if err != nil {
		return nil, err
	}
	return &pipeline{
		cfg:      cfg,
		lay:      lay,
		auditLog: auditLog,
		errors:   audit.NewErrorCSV(lay.ErrorCSV()),
		run:      stats.NewRun(),
	}, nil
}

func (p *pipeline) close() {
	if err := p.auditLog.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close audit log")
	}
}

// renderer returns the configured rendering engine.
func (p *pipeline) renderer() fetch.Renderer {
	if p.cfg.UseBrowser {
		return fetch.NewBrowser()
	}
	return fetch.Disabled{}
}

// newCrawler builds a Crawler with the configured batch and retry limits
// applied.
func newCrawler(p *pipeline) *crawl.Crawler {
	c := crawl.New(p.lay, p.renderer(), p.auditLog, p.errors, p.run)
	if p.cfg.BatchSize > 0 {
		c.BatchSize = p.cfg.BatchSize
	}
	if p.cfg.MaxAttempts > 0 {
		c.Retry.MaxAttempts = p.cfg.MaxAttempts
	}
	return c
}

// newParser builds a Parser with the configured retry limit applied.
func newParser(p *pipeline, engine parse.Engine) *parse.Parser {
	parser := parse.New(p.lay, engine, p.auditLog, p.errors, p.run)
	if p.cfg.MaxAttempts > 0 {
		parser.Retry.MaxAttempts = p.cfg.MaxAttempts
	}
	return parser
}
