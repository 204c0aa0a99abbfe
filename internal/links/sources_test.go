package links

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const selectorTableHTML = `<html><body>
<div class="WordSection1">
	<p><h1>Enrollment</h1></p>
	<p><h2>Applications</h2></p>
	<p><a href="https://example.com/apply"><span>How to Apply</span></a></p>
	<p><a href="https://example.com/deadlines"><span>Deadlines</span></a></p>
	<p><h1>Financial Aid</h1></p>
	<p><a href="https://example.com/grants"><span>Grants</span></a></p>
</div>
</body></html>`

func serveHTML(t *testing.T, html string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(html))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCollectSelectorTable_TracksRunningHeaders(t *testing.T) {
	srv := serveHTML(t, selectorTableHTML)

	src := Source{
		Name: "test",
		URL:  srv.URL,
		Kind: KindSelectorTable,
		Selectors: Selectors{
			Container: "div.WordSection1",
			Header:    "h1",
			SubHeader: "h2",
			Link:      "a",
			Text:      "a > span",
		},
	}

	rows, err := Collect(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, Row{Section: "Enrollment", Subsection: "Applications", Title: "How to Apply", URL: "https://example.com/apply"}, rows[0])
	assert.Equal(t, "Deadlines", rows[1].Title)
	// A new header resets the running subsection.
	assert.Equal(t, Row{Section: "Financial Aid", Title: "Grants", URL: "https://example.com/grants"}, rows[2])
}

func TestCollect_SkipRows(t *testing.T) {
	srv := serveHTML(t, selectorTableHTML)

	src := Source{
		Name:     "test",
		URL:      srv.URL,
		Kind:     KindSelectorTable,
		SkipRows: 2,
		Selectors: Selectors{
			Container: "div.WordSection1",
			Header:    "h1",
			SubHeader: "h2",
			Link:      "a",
			Text:      "a > span",
		},
	}

	rows, err := Collect(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Grants", rows[0].Title)
}

func TestCollect_UnknownKind(t *testing.T) {
	_, err := Collect(context.Background(), Source{Kind: "bogus"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source kind")
}

func TestCollectHelpAPI_Paginates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/en-US/knowledgebase/fetch-articles/" {
			http.NotFound(w, r)
			return
		}
		page := r.URL.Query().Get("page")
		resp := map[string]any{
			"results": []map[string]string{
				{"articleId": "KA-" + page, "title": "Article " + page},
				{"articleId": "", "title": "dropped"},
			},
			"morerecords": page == "1",
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	src := Source{Name: "help", URL: srv.URL + "/knowledgebase/", Kind: KindHelpAPI}
	rows, err := Collect(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Help Articles", rows[0].Section)
	assert.Equal(t, "Article 1", rows[0].Title)
	assert.Equal(t, fmt.Sprintf("%s/en-US/knowledgebase/article/?kb=KA-1&lang=en", srv.URL), rows[0].URL)
	assert.Equal(t, "Article 2", rows[1].Title)
}

func TestCollectHelpAPI_StripsControlCharacters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// A raw control character inside a JSON string breaks decoding
		// unless scrubbed first.
		_, _ = w.Write([]byte("{\"results\":[{\"articleId\":\"KA-1\",\"title\":\"Bro\x02ken\"}],\"morerecords\":false}"))
	}))
	defer srv.Close()

	src := Source{Name: "help", URL: srv.URL + "/knowledgebase/", Kind: KindHelpAPI}
	rows, err := Collect(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Broken", rows[0].Title)
}

func TestCollectServicesNav(t *testing.T) {
	srv := serveHTML(t, `<html><body>
<nav aria-label="Mobile Navigation">
	<ul>
		<li><span>Programs</span>
			<ul>
				<li><a href="/programs/cert"><span>Certificates</span></a></li>
				<li><a href="https://other.example.com/abs"><span>Absolute</span></a></li>
			</ul>
		</li>
	</ul>
</nav>
</body></html>`)

	src := Source{Name: "services", URL: srv.URL + "/", Kind: KindServicesNav}
	rows, err := Collect(context.Background(), src)
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	var relative, absolute *Row
	for i := range rows {
		switch rows[i].Title {
		case "Certificates":
			relative = &rows[i]
		case "Absolute":
			absolute = &rows[i]
		}
	}
	require.NotNil(t, relative)
	require.NotNil(t, absolute)

	assert.Equal(t, srv.URL+"/programs/cert", relative.URL)
	assert.Equal(t, "https://other.example.com/abs", absolute.URL)
}

func TestCleanCell(t *testing.T) {
	assert.Equal(t, "a b", cleanCell("a b"))
	assert.Equal(t, "ab", cleanCell("a​b"))
	assert.Equal(t, "spaced out", cleanCell("  spaced \n out  "))
}
