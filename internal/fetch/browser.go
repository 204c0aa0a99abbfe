// browser.go provides the headless-browser rendering engine used as a
// fallback for blocked requests and for pages whose content only exists
// after JavaScript runs.
package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// DefaultRenderTimeout bounds a single page render.
const DefaultRenderTimeout = 60 * time.Second

// DefaultSettleDelay is the fixed wait after page load for JS-rendered
// content to stabilize.
const DefaultSettleDelay = 5 * time.Second

// Renderer abstracts the rendering engine so the crawl and extract stages
// can be tested without a real browser.
type Renderer interface {
	// RenderPage navigates to url and returns the full rendered HTML.
	RenderPage(ctx context.Context, url string) (string, error)
	// RenderNode navigates to url, waits for sel to materialize plus a
	// settle delay, and returns the node's outer HTML. Selectors starting
	// with "/" are treated as XPath.
	RenderNode(ctx context.Context, url, sel string, settle time.Duration) (string, error)
}

// Disabled is a Renderer that refuses every render. It stands in when the
// headless-browser fallback is turned off.
type Disabled struct{}

// RenderPage always fails.
func (Disabled) RenderPage(_ context.Context, url string) (string, error) {
	return "", fmt.Errorf("browser rendering is disabled, cannot render %s", url)
}

// RenderNode always fails.
func (Disabled) RenderNode(_ context.Context, url, _ string, _ time.Duration) (string, error) {
	return "", fmt.Errorf("browser rendering is disabled, cannot render %s", url)
}

// Browser is the chromedp-backed Renderer. The browser process is acquired
// and released per call; instances are never kept alive across batches.
type Browser struct {
	Timeout time.Duration
}

// NewBrowser returns a Browser with the default render timeout.
func NewBrowser() *Browser {
	return &Browser{Timeout: DefaultRenderTimeout}
}

func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	timeout := b.Timeout
	if timeout == 0 {
		timeout = DefaultRenderTimeout
	}
	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	return chromedp.Run(browserCtx, actions...)
}

// RenderPage navigates to url, waits for the body plus the settle delay,
// and returns the rendered document.
func (b *Browser) RenderPage(ctx context.Context, url string) (string, error) {
	log.Debug().Str("url", url).Msg("rendering page with headless browser")

	var html string
	err := b.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(DefaultSettleDelay),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("browser rendering failed for %s: %w", url, err)
	}
	return html, nil
}

// RenderNode navigates to url, waits for sel, settles, and returns the
// node's outer HTML.
func (b *Browser) RenderNode(ctx context.Context, url, sel string, settle time.Duration) (string, error) {
	log.Debug().Str("url", url).Str("selector", sel).Msg("rendering node with headless browser")

	opt := chromedp.ByQuery
	if strings.HasPrefix(sel, "/") {
		opt = chromedp.BySearch
	}

	var html string
	err := b.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady(sel, opt),
		chromedp.Sleep(settle),
		chromedp.OuterHTML(sel, &html, opt),
	)
	if err != nil {
		return "", fmt.Errorf("browser node extraction failed for %s: %w", url, err)
	}
	return html, nil
}
