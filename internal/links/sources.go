// Package links builds the canonical URL universe: it collects rows from
// several source listings, normalizes and deduplicates them, and assigns
// each URL a stable filename used by every later stage.
package links

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/corpus-indexer/internal/fetch"
)

// Kind selects the extraction contract for a source listing.
type Kind string

// Source kinds.
const (
	// KindSelectorTable walks a container element with per-source header,
	// sub-header and link selectors, tracking running header state.
	KindSelectorTable Kind = "selector-table"
	// KindHelpAPI pages through a knowledge-base JSON endpoint.
	KindHelpAPI Kind = "help-api"
	// KindServicesNav walks a navigation landmark for section-grouped links.
	KindServicesNav Kind = "services-nav"
)

// Selectors configures a KindSelectorTable source.
type Selectors struct {
	Container string
	Header    string
	SubHeader string
	Link      string
	Text      string
}

// Source is one raw listing contributing rows to the link table.
type Source struct {
	Name      string
	URL       string
	Role      string
	Kind      Kind
	Selectors Selectors
	// SkipRows drops leading rows that are navigation noise.
	SkipRows int
}

// Row is one raw (section, subsection, title, url) tuple from a listing.
// Role is stamped by the indexer from the owning source.
type Row struct {
	Section    string
	Subsection string
	Title      string
	URL        string
	Role       string
}

// Collect fetches the source and extracts its rows.
func Collect(ctx context.Context, src Source) ([]Row, error) {
	var (
		rows []Row
		err  error
	)
	switch src.Kind {
	case KindSelectorTable:
		rows, err = collectSelectorTable(ctx, src)
	case KindHelpAPI:
		rows, err = collectHelpAPI(ctx, src)
	case KindServicesNav:
		rows, err = collectServicesNav(ctx, src)
	default:
		return nil, fmt.Errorf("unknown source kind %q", src.Kind)
	}
	if err != nil {
		return nil, err
	}
	if src.SkipRows > 0 && len(rows) > src.SkipRows {
		rows = rows[src.SkipRows:]
	}
	return rows, nil
}

func collectSelectorTable(ctx context.Context, src Source) ([]Row, error) {
	result, err := fetch.Get(ctx, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing %s: %w", src.Name, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(result.Body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing %s: %w", src.Name, err)
	}

	sel := src.Selectors
	var (
		rows         []Row
		curHeader    string
		curSubHeader string
	)

	doc.Find(sel.Container + " > *").Each(func(_ int, elem *goquery.Selection) {
		switch {
		case elem.Find(sel.SubHeader).Length() > 0 || elem.Is(sel.SubHeader):
			text := elem.Text()
			if inner := elem.Find(sel.SubHeader); inner.Length() > 0 {
				text = inner.First().Text()
			}
			curSubHeader = cleanCell(text)
		case elem.Find(sel.Header).Length() > 0 || elem.Is(sel.Header):
			text := elem.Text()
			if inner := elem.Find(sel.Header); inner.Length() > 0 {
				text = inner.First().Text()
			}
			curHeader = cleanCell(text)
			curSubHeader = ""
		case elem.Find(sel.Link).Length() > 0:
			link := elem.Find(sel.Link).First()
			href, ok := link.Attr("href")
			if !ok {
				return
			}
			title := link.Text()
			if textNode := elem.Find(sel.Text); textNode.Length() > 0 {
				title = textNode.First().Text()
			}
			rows = append(rows, Row{
				Section:    curHeader,
				Subsection: curSubHeader,
				Title:      cleanCell(title),
				URL:        cleanCell(href),
			})
		}
	})

	return rows, nil
}

// helpPage is one page of the knowledge-base listing endpoint.
type helpPage struct {
	Results []struct {
		ArticleID string `json:"articleId"`
		Title     string `json:"title"`
	} `json:"results"`
	MoreRecords bool `json:"morerecords"`
}

var controlCharRe = regexp.MustCompile(`[\x00-\x1f\x7f]`)

func collectHelpAPI(ctx context.Context, src Source) ([]Row, error) {
	base, err := url.Parse(src.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid help listing URL: %w", err)
	}
	root := base.Scheme + "://" + base.Host

	var rows []Row
	for page := 1; ; page++ {
		endpoint := fmt.Sprintf("%s/en-US/knowledgebase/fetch-articles/?page=%d&lang=en", root, page)
		result, err := fetch.Get(ctx, endpoint, nil)
		if err != nil {
			if len(rows) > 0 {
				// Keep what we have; a mid-pagination failure is not fatal.
				break
			}
			return nil, fmt.Errorf("failed to fetch help articles page %d: %w", page, err)
		}

		// The endpoint occasionally embeds raw control characters that
		// break JSON decoding.
		cleaned := controlCharRe.ReplaceAllString(string(result.Body), "")

		var parsed helpPage
		if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
			return rows, fmt.Errorf("failed to decode help articles page %d: %w", page, err)
		}

		for _, item := range parsed.Results {
			if item.ArticleID == "" || item.Title == "" {
				continue
			}
			rows = append(rows, Row{
				Section: "Help Articles",
				Title:   cleanCell(item.Title),
				URL:     fmt.Sprintf("%s/en-US/knowledgebase/article/?kb=%s&lang=en", root, item.ArticleID),
			})
		}

		if !parsed.MoreRecords {
			break
		}
	}
	return rows, nil
}

func collectServicesNav(ctx context.Context, src Source) ([]Row, error) {
	result, err := fetch.Get(ctx, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing %s: %w", src.Name, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(result.Body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing %s: %w", src.Name, err)
	}

	base, err := url.Parse(src.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid listing URL: %w", err)
	}

	var rows []Row
	doc.Find(`nav[aria-label="Mobile Navigation"] li`).Each(func(_ int, li *goquery.Selection) {
		section := cleanCell(li.Find("span").First().Text())
		li.Find("a").Each(func(_ int, link *goquery.Selection) {
			href, ok := link.Attr("href")
			if !ok || href == "" {
				return
			}
			ref, err := url.Parse(href)
			if err != nil {
				return
			}
			rows = append(rows, Row{
				Section: section,
				Title:   cleanCell(link.Find("span").First().Text()),
				URL:     base.ResolveReference(ref).String(),
			})
		})
	})
	return rows, nil
}

// cleanCell normalizes whitespace and strips zero-width artifacts from a
// listing cell.
func cleanCell(text string) string {
	text = strings.ReplaceAll(text, " ", " ")
	text = strings.ReplaceAll(text, "​", "")
	text = strings.ReplaceAll(text, " ", " ")
	return strings.Join(strings.Fields(text), " ")
}
