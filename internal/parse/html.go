// Package parse converts raw artifacts into normalized Markdown: HTML
// through DOM cleanup and Markdown conversion, PDF through text extraction,
// both optionally refined by an external document-structuring engine.
package parse

import (
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
)

// strippedTags are removed wholesale before conversion.
var strippedTags = []string{
	"head", "style", "script", "img", "svg", "meta", "link",
	"iframe", "noscript", "footer", "nav", "ps-header",
}

// noiseSelectors remove navigation chrome that survives tag stripping.
var noiseSelectors = []string{
	`[aria-label="Search Filter"]`,
	`[aria-label*="Menu"]`,
	`[aria-label*="menu"]`,
	`[class*="menu"]`,
	`[class*="Menu"]`,
	`[role="region"]`,
	`[role="dialog"]`,
	".sr-only",
	".navbar",
	".breadcrumb",
	".btn-toolbar",
	".skip-link",
}

var blankRunsRe = regexp.MustCompile(`\n{2,}`)

// converter is shared: html-to-markdown converters are safe for reuse.
var converter = func() *md.Converter {
	c := md.NewConverter("", true, nil)
	c.Use(plugin.GitHubFlavored())
	return c
}()

// ConvertHTML cleans an HTML document and converts it to Markdown,
// returning the Markdown and the document's title tag. Empty output is an
// error so callers can retry and eventually bucket the document.
func ConvertHTML(body []byte) (markdown, titleTag string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	titleTag = cleanTitle(doc.Find("title").First().Text())

	for _, tag := range strippedTags {
		doc.Find(tag).Remove()
	}
	doc.Find(strings.Join(noiseSelectors, ", ")).Remove()

	content := doc.Find("main").First()
	if content.Length() == 0 {
		content = doc.Find("body").First()
	}

	var html string
	if content.Length() > 0 {
		html, err = goquery.OuterHtml(content)
	} else {
		html, err = doc.Html()
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to serialize cleaned HTML: %w", err)
	}

	markdown, err = converter.ConvertString(html)
	if err != nil {
		return "", "", fmt.Errorf("failed to convert HTML to Markdown: %w", err)
	}
	markdown = blankRunsRe.ReplaceAllString(markdown, "\n\n")

	if IsEmptyContent(markdown) {
		return "", titleTag, fmt.Errorf("conversion produced empty Markdown")
	}
	return markdown, titleTag, nil
}

// IsEmptyContent reports whether content has no substance once whitespace
// is removed.
func IsEmptyContent(content string) bool {
	content = strings.ReplaceAll(content, "\n", "")
	content = strings.ReplaceAll(content, " ", "")
	return content == ""
}

var (
	tableRowRe = regexp.MustCompile(`(?m)\|.*\|.*\|`)
	tableSepRe = regexp.MustCompile(`(?m)\|[\s-]*\|[\s-]*\|`)
)

// HasMarkdownTable reports whether content already contains a well-formed
// Markdown table. Such documents bypass the structuring engine: tables are
// already well-structured and re-structuring them risks corruption.
func HasMarkdownTable(content string) bool {
	return tableRowRe.MatchString(content) && tableSepRe.MatchString(content)
}

// cleanTitle collapses whitespace in a title tag.
func cleanTitle(title string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(title, "\n", " ")), " ")
}
