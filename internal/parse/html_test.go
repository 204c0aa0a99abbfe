package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertHTML_Basic(t *testing.T) {
	body := []byte(`<html>
		<head><title>  My   Page  </title><script>evil()</script></head>
		<body><main><h1>Heading</h1><p>Some text.</p></main></body>
	</html>`)

	markdown, title, err := ConvertHTML(body)
	require.NoError(t, err)

	assert.Equal(t, "My Page", title)
	assert.Contains(t, markdown, "# Heading")
	assert.Contains(t, markdown, "Some text.")
	assert.NotContains(t, markdown, "evil")
}

func TestConvertHTML_StripsNavigationChrome(t *testing.T) {
	body := []byte(`<html><body>
		<nav><a href="/">Home</a></nav>
		<div class="navbar">top bar</div>
		<div class="breadcrumb">a / b / c</div>
		<main><p>real content</p></main>
		<footer>copyright</footer>
	</body></html>`)

	markdown, _, err := ConvertHTML(body)
	require.NoError(t, err)

	assert.Contains(t, markdown, "real content")
	assert.NotContains(t, markdown, "top bar")
	assert.NotContains(t, markdown, "a / b / c")
	assert.NotContains(t, markdown, "copyright")
	assert.NotContains(t, markdown, "Home")
}

func TestConvertHTML_FallsBackToBody(t *testing.T) {
	body := []byte("<html><body><p>no main element</p></body></html>")

	markdown, _, err := ConvertHTML(body)
	require.NoError(t, err)
	assert.Contains(t, markdown, "no main element")
}

func TestConvertHTML_EmptyIsError(t *testing.T) {
	_, _, err := ConvertHTML([]byte("<html><head><title>t</title></head><body><script>x</script></body></html>"))
	assert.Error(t, err)
}

func TestIsEmptyContent(t *testing.T) {
	assert.True(t, IsEmptyContent(""))
	assert.True(t, IsEmptyContent("  \n \n  "))
	assert.False(t, IsEmptyContent("x"))
}

func TestHasMarkdownTable(t *testing.T) {
	table := "| Name | Value |\n| --- | --- |\n| a | 1 |\n"
	assert.True(t, HasMarkdownTable(table))

	assert.False(t, HasMarkdownTable("plain text"))
	// A pipe-delimited line without a separator row is not a table.
	assert.False(t, HasMarkdownTable("| just | one | line |"))
}
