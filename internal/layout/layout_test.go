package layout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate_MakesAllFolders(t *testing.T) {
	lay := New(t.TempDir())
	require.NoError(t, lay.Create())

	for _, dir := range []string{
		lay.Index(),
		lay.CrawlDir("html"),
		lay.CrawlDir("pdf"),
		lay.CrawlDir("others"),
		lay.OutDir("from_html"),
		lay.OutDir("from_pdf"),
		lay.OutDir("from_others"),
		filepath.Dir(lay.ErrorCSV()),
	} {
		info, err := os.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir(), dir)
	}
}

func TestCreate_Idempotent(t *testing.T) {
	lay := New(t.TempDir())
	require.NoError(t, lay.Create())
	assert.NoError(t, lay.Create())
}

func TestPaths(t *testing.T) {
	lay := New("/data")

	assert.Equal(t, filepath.Join("/data", "all_links.csv"), lay.AllLinks())
	assert.Equal(t, filepath.Join("/data", "output_data.csv"), lay.Ledger())
	assert.Equal(t, filepath.Join("/data", "error", "error.csv"), lay.ErrorCSV())
	assert.Equal(t, filepath.Join("/data", "no_metadata.csv"), lay.NoMetadata())
	assert.Equal(t, filepath.Join("/data", "pipeline_detailed_log.jsonl"), lay.AuditLog())
}
