package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/corpus-indexer/internal/metadata"
)

var attachCmd = &cobra.Command{
	Use:   "attach",
	Short: "Attach provenance metadata to parsed documents",
	Long:  "Joins each parsed Markdown document to its link table entry and rewrites it with a YAML front matter block and a cleaned body. Documents with no matching entry are listed in no_metadata.csv.",
	RunE:  runAttach,
}

func init() {
	rootCmd.AddCommand(attachCmd)
}

func runAttach(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.close()

	attacher := metadata.New(p.lay, p.auditLog, p.run)
	attacher.ExcludedTitleDomains = cfg.ExcludedTitleDomains
	if err := attacher.AttachAll(); err != nil {
		return fmt.Errorf("metadata attachment failed: %w", err)
	}

	_, _ = fmt.Fprintf(os.Stdout, "Metadata attached; unmatched documents listed in %s\n", p.lay.NoMetadata())
	return nil
}
