// Package fetch provides URL fetching for the crawl stage: a plain HTTP
// path plus a headless-browser renderer used as a fallback for blocked or
// dynamically-tabbed pages.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; CorpusIndexer/1.0)"

// Result holds the raw content from a URL fetch.
type Result struct {
	URL         string
	Body        []byte
	ContentType string
	StatusCode  int
}

// IsHTML reports whether the response declared an HTML content type.
func (r *Result) IsHTML() bool {
	return strings.Contains(r.ContentType, "text/html")
}

// IsPDF reports whether the response declared a PDF content type.
func (r *Result) IsPDF() bool {
	return strings.Contains(r.ContentType, "application/pdf")
}

// Extension derives a file extension from the content type, e.g.
// "text/csv; charset=utf-8" -> "csv".
func (r *Result) Extension() string {
	mediaType, _, err := mime.ParseMediaType(r.ContentType)
	if err != nil || !strings.Contains(mediaType, "/") {
		return "bin"
	}
	return mediaType[strings.Index(mediaType, "/")+1:]
}

// Error represents an error during URL fetching. StatusCode is zero for
// network-level failures.
type Error struct {
	URL        string
	StatusCode int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsHTTPStatus reports whether err is a fetch error carrying the given
// HTTP status code.
func IsHTTPStatus(err error, code int) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.StatusCode == code
}

// IsTransient reports whether err should be retried by the plain fetch
// path: network failures and HTTP errors other than 403.
func IsTransient(err error) bool {
	var fe *Error
	if !errors.As(err, &fe) {
		return true
	}
	return fe.StatusCode != http.StatusForbidden
}

// Options configures the fetch behavior.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
}

// DefaultOptions returns sensible defaults for fetching.
func DefaultOptions() *Options {
	return &Options{
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
	}
}

// Get retrieves the raw content of a URL. Non-2xx responses return both
// the partial Result and an *Error carrying the status code.
func Get(ctx context.Context, urlStr string, opts *Options) (*Result, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, &Error{URL: urlStr, Message: "invalid URL", Cause: err}
	}

	client := &http.Client{Timeout: opts.Timeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", opts.UserAgent)
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to read response body", Cause: err}
	}

	result := &Result{
		URL:         urlStr,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return result, &Error{
			URL:        urlStr,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("HTTP status %d", resp.StatusCode),
		}
	}

	return result, nil
}
