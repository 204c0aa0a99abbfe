package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanMarkdown_RemovesFencesAndBackticks(t *testing.T) {
	got := CleanMarkdown("```markdown\n# Title\ncontent\n```\nand `inline` code")
	assert.NotContains(t, got, "```")
	assert.NotContains(t, got, "`")
	assert.Contains(t, got, "# Title")
	assert.Contains(t, got, "inline")
}

func TestCleanMarkdown_FlattensLinks(t *testing.T) {
	got := CleanMarkdown("See [the handbook](https://example.com/handbook) for details.")
	assert.Equal(t, "See the handbook for details.", got)
}

func TestCleanMarkdown_RemovesPrintButton(t *testing.T) {
	got := CleanMarkdown("before [Print](javascript:window.print()) after")
	assert.NotContains(t, got, "Print")
	assert.NotContains(t, got, "javascript")
}

func TestCleanMarkdown_RemovesEmptyHeaders(t *testing.T) {
	got := CleanMarkdown("# Real Header\n\n###\n\ntext")
	assert.Contains(t, got, "# Real Header")
	assert.NotContains(t, got, "###")
}

func TestCleanMarkdown_CollapsesBlankLines(t *testing.T) {
	got := CleanMarkdown("a\n\n\n\n\nb")
	assert.Equal(t, "a\n\nb", got)
}

func TestCleanMarkdown_RemovesOfflineBanner(t *testing.T) {
	got := CleanMarkdown("You’re offline. This is a read only version of the page.\ncontent")
	assert.NotContains(t, got, "offline")
	assert.Contains(t, got, "content")
}

func TestCleanMarkdown_Idempotent(t *testing.T) {
	input := "```markdown\n# T\n```\n[a](https://example.com)\n\n\n\nend"
	once := CleanMarkdown(input)
	assert.Equal(t, once, CleanMarkdown(once))
}

func TestStripFrontMatter(t *testing.T) {
	doc := "---\nurl: https://example.com\n---\nbody text"
	assert.Equal(t, "body text", StripFrontMatter(doc))
}

func TestStripFrontMatter_NoBlock(t *testing.T) {
	doc := "just a body\nwith --- a rule later\n---\n"
	assert.Equal(t, doc, StripFrontMatter(doc))
}
