package parse

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPDF_MissingFile(t *testing.T) {
	_, err := ExtractPDF(filepath.Join(t.TempDir(), "nope.pdf"))
	assert.Error(t, err)
}

func TestExtractPDF_NotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	require.NoError(t, os.WriteFile(path, []byte("<html>actually html</html>"), 0644))

	_, err := ExtractPDF(path)
	require.Error(t, err)

	var pdfErr *PDFError
	assert.ErrorAs(t, err, &pdfErr)
}

func TestCleanExtractedText(t *testing.T) {
	assert.Equal(t, "hello world", cleanExtractedText("hello\x00 world"))
	assert.NotContains(t, cleanExtractedText("a\x00b"), "\x00")
}
