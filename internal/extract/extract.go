// Package extract implements per-site HTML content extraction for the
// crawl stage: wrapper subtrees for known help pages, tabbed-page expansion
// through the rendering engine, and plain passthrough for everything else.
package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/jonathan/corpus-indexer/internal/fetch"
	"github.com/jonathan/corpus-indexer/internal/types"
)

// TabSettleDelay is the fixed wait after a tab's content container
// materializes, letting JS-rendered content stabilize.
const TabSettleDelay = 1500 * time.Millisecond

// helpWrapperSelector is the content wrapper on knowledge-base pages.
const helpWrapperSelector = "div.wrapper-body"

// mainContentSelector is the article body on catalog pages.
const mainContentSelector = "article.main-content"

// faqNodePath is the fixed coordinate path of the messaging-FAQ content
// node. The page offers no stable classes or landmarks to anchor on.
const faqNodePath = "/html/body/div[1]/div/div/div/div[2]/div/div/div[1]/div[1]/div[2]/div[2]/div/div/div[1]/div/div/div/div/div/div/div"

// Result is the outcome of extraction. Status is SUCCESS unless the
// expected content node could not be located, in which case the raw body is
// passed through with a PARSE_ERROR reason (non-fatal).
type Result struct {
	HTML   string
	Status string
	Reason string
}

// Extractor dispatches on the URL's domain to the matching extraction
// strategy.
type Extractor struct {
	Renderer fetch.Renderer
}

// New returns an Extractor backed by the given rendering engine.
func New(renderer fetch.Renderer) *Extractor {
	return &Extractor{Renderer: renderer}
}

// NeedsRenderer reports whether url can only be extracted through the
// rendering engine, bypassing the plain fetch body entirely.
func NeedsRenderer(url string) bool {
	return strings.Contains(url, "faq.whatsapp")
}

// ForURL extracts the text content for url from the fetched HTML body.
func (e *Extractor) ForURL(ctx context.Context, url string, body []byte) (*Result, error) {
	switch {
	case NeedsRenderer(url):
		return e.renderFixedNode(ctx, url)
	case strings.Contains(url, "help.byupathway.edu"):
		return extractWrapper(url, body)
	case strings.Contains(url, "studentservices.byupathway.edu"):
		return e.extractCatalog(ctx, url, body)
	default:
		return &Result{HTML: string(body), Status: types.StatusSuccess}, nil
	}
}

// renderFixedNode pulls the single content node of a messaging-FAQ page by
// coordinate path. There is no raw fallback here: without the renderer the
// page has no content at all.
func (e *Extractor) renderFixedNode(ctx context.Context, url string) (*Result, error) {
	html, err := e.Renderer.RenderNode(ctx, url, faqNodePath, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to render FAQ node for %s: %w", url, err)
	}
	return &Result{HTML: html, Status: types.StatusSuccess}, nil
}

// extractWrapper takes the known content wrapper subtree of a help page.
func extractWrapper(url string, body []byte) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML for %s: %w", url, err)
	}
	wrapper := doc.Find(helpWrapperSelector).First()
	if wrapper.Length() == 0 {
		return rawFallback(url, body), nil
	}
	html, err := goquery.OuterHtml(wrapper)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize wrapper for %s: %w", url, err)
	}
	return &Result{HTML: html, Status: types.StatusSuccess}, nil
}

// extractCatalog handles catalog pages, which may spread their content
// across ARIA tabs. Tabbed pages are expanded tab by tab through the
// rendering engine; everything else takes the default article body.
func (e *Extractor) extractCatalog(ctx context.Context, url string, body []byte) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML for %s: %w", url, err)
	}

	tablist := doc.Find(`[role="tablist"]`).First()
	if tablist.Length() > 0 {
		tabs := tabTargets(tablist, url)
		if len(tabs) > 0 {
			log.Info().Str("url", url).Int("tabs", len(tabs)).Msg("detected tabbed page, extracting all tabs")
			if combined := e.renderTabs(ctx, tabs); combined != "" {
				return &Result{
					HTML:   combined,
					Status: types.StatusSuccess,
					Reason: fmt.Sprintf("Extracted %d tabs successfully", len(tabs)),
				}, nil
			}
			log.Warn().Str("url", url).Msg("tab extraction yielded nothing, using main content")
		}
	}

	article := doc.Find(mainContentSelector).First()
	if article.Length() == 0 {
		return rawFallback(url, body), nil
	}
	html, err := goquery.OuterHtml(article)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize article for %s: %w", url, err)
	}
	return &Result{HTML: html, Status: types.StatusSuccess}, nil
}

// tab is one anchor-qualified tab of a catalog page.
type tab struct {
	Title string
	URL   string
}

// tabTargets enumerates the tablist's anchors in source order. The count is
// unbounded; new tabs appear without code changes.
func tabTargets(tablist *goquery.Selection, pageURL string) []tab {
	var tabs []tab
	tablist.Find("a").Each(func(_ int, link *goquery.Selection) {
		href, ok := link.Attr("href")
		if !ok || !strings.Contains(href, "#") {
			return
		}
		fragment := href[strings.Index(href, "#")+1:]
		tabs = append(tabs, tab{
			Title: strings.TrimSpace(link.Text()),
			URL:   pageURL + "#" + fragment,
		})
	})
	return tabs
}

// renderTabs visits every tab through the rendering engine and concatenates
// the extracted sections in source order, each wrapped with a heading equal
// to the tab title. A failing tab is logged and skipped.
func (e *Extractor) renderTabs(ctx context.Context, tabs []tab) string {
	var sections []string
	for _, t := range tabs {
		html, err := e.Renderer.RenderNode(ctx, t.URL, mainContentSelector, TabSettleDelay)
		if err != nil {
			log.Warn().Err(err).Str("url", t.URL).Msg("failed to render tab")
			continue
		}
		sections = append(sections,
			fmt.Sprintf("<div class=\"tab-section\"><h1>%s</h1>%s</div>", t.Title, html))
	}
	return strings.Join(sections, "\n\n")
}

func rawFallback(url string, body []byte) *Result {
	log.Warn().Str("url", url).Msg("main content node not found, keeping raw body")
	return &Result{
		HTML:   string(body),
		Status: types.StatusParseError,
		Reason: "Error finding main content in HTML",
	}
}
