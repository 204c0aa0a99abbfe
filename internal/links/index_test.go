package links

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL_LegacyDomainRewrite(t *testing.T) {
	got := NormalizeURL("https://student-services.catalog.prod.coursedog.com/programs/x")
	assert.Equal(t, "https://studentservices.byupathway.edu/programs/x", got)
}

func TestNormalizeURL_StripsFragment(t *testing.T) {
	assert.Equal(t, "https://example.com/page", NormalizeURL("https://example.com/page#section-2"))
	assert.Equal(t, "https://example.com/page", NormalizeURL("https://example.com/page"))
}

func TestFilename_Deterministic(t *testing.T) {
	a := Filename("https://example.com/doc")
	b := Filename("https://example.com/doc")
	c := Filename("https://example.com/other")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	// CRC-32 in lowercase hex, no padding.
	assert.Regexp(t, "^[0-9a-f]{1,8}$", a)
}

func TestMerge_DeduplicatesByNormalizedURL(t *testing.T) {
	rows := []Row{
		{Section: "A", Title: "First", URL: "https://example.com/doc", Role: "ACM"},
		{Section: "B", Title: "Second", URL: "https://example.com/doc#frag", Role: "missionary"},
		{Section: "C", Title: "Third", URL: "https://example.com/other", Role: "missionary"},
	}

	entries := Merge(rows)
	require.Len(t, entries, 2)

	first := entries[0]
	assert.Equal(t, "https://example.com/doc", first.URL)
	assert.Equal(t, []string{"A", "B"}, first.Section)
	assert.Equal(t, []string{"First", "Second"}, first.Title)
	// First-seen role wins.
	assert.Equal(t, "ACM", first.Role)
	assert.Equal(t, Filename("https://example.com/doc"), first.Filename)

	// First-seen order is preserved.
	assert.Equal(t, "https://example.com/other", entries[1].URL)
}

func TestMerge_BlankCellsBecomeMissing(t *testing.T) {
	entries := Merge([]Row{{URL: "https://example.com/doc", Title: "Doc"}})
	require.Len(t, entries, 1)

	assert.Equal(t, []string{Missing}, entries[0].Section)
	assert.Equal(t, []string{Missing}, entries[0].Subsection)
	assert.Equal(t, []string{"Doc"}, entries[0].Title)
}

func TestMerge_SkipsEmptyURLs(t *testing.T) {
	entries := Merge([]Row{{Title: "No URL"}})
	assert.Empty(t, entries)
}

func TestDefaultSources_WellFormed(t *testing.T) {
	sources := DefaultSources()
	require.Len(t, sources, 4)

	names := make(map[string]bool)
	for _, src := range sources {
		assert.NotEmpty(t, src.Name)
		assert.NotEmpty(t, src.URL)
		assert.NotEmpty(t, src.Role)
		assert.NotEmpty(t, src.Kind)
		names[src.Name] = true
	}
	assert.Len(t, names, 4, "source names must be unique")
}
