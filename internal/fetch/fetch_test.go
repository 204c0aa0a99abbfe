package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer srv.Close()

	result, err := Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)

	assert.True(t, result.IsHTML())
	assert.False(t, result.IsPDF())
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Contains(t, string(result.Body), "hello")
}

func TestGet_HTTPErrorKeepsResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("denied"))
	}))
	defer srv.Close()

	result, err := Get(context.Background(), srv.URL, nil)
	require.Error(t, err)
	require.NotNil(t, result)

	assert.Equal(t, http.StatusForbidden, result.StatusCode)
	assert.True(t, IsHTTPStatus(err, http.StatusForbidden))
	assert.False(t, IsHTTPStatus(err, http.StatusNotFound))
}

func TestGet_InvalidURL(t *testing.T) {
	result, err := Get(context.Background(), "not-a-url", nil)
	assert.Nil(t, result)

	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Zero(t, fe.StatusCode)
}

func TestGet_CustomHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "custom-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "yes", r.Header.Get("X-Test"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	opts := &Options{
		Timeout:   DefaultTimeout,
		UserAgent: "custom-agent",
		Headers:   map[string]string{"X-Test": "yes"},
	}
	_, err := Get(context.Background(), srv.URL, opts)
	require.NoError(t, err)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network error", &Error{Message: "connection refused"}, true},
		{"server error", &Error{StatusCode: http.StatusInternalServerError}, true},
		{"not found", &Error{StatusCode: http.StatusNotFound}, true},
		{"forbidden", &Error{StatusCode: http.StatusForbidden}, false},
		{"plain error", errors.New("boom"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestResult_Extension(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
	}{
		{"text/html; charset=utf-8", "html"},
		{"application/pdf", "pdf"},
		{"text/csv; charset=utf-8", "csv"},
		{"", "bin"},
		{"garbage", "bin"},
	}
	for _, tt := range tests {
		r := Result{ContentType: tt.contentType}
		assert.Equal(t, tt.want, r.Extension(), "content type %q", tt.contentType)
	}
}

func TestDisabled_RefusesRenders(t *testing.T) {
	var r Renderer = Disabled{}

	_, err := r.RenderPage(context.Background(), "https://example.com")
	assert.Error(t, err)

	_, err = r.RenderNode(context.Background(), "https://example.com", "body", 0)
	assert.Error(t, err)
}
