package audit_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"siteprobe/internal/audit"
	"siteprobe/internal/htmlparser"
	"siteprobe/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cleanPage = `<!DOCTYPE html>
<html lang="en">
<head><title>Clean</title><meta name="description" content="A clean page"></head>
<body>
  <main>
    <h1>Welcome</h1>
    <h2>Section</h2>
    <p>Some text.</p>
    <img src="logo.png" alt="Company logo">
    <a href="/about">About us</a>
    <button type="button">Open</button>
  </main>
</body>
</html>`

const brokenPage = `<html><body>
  <h2>No h1</h2>
  <img src="a.png">
  <a href="/x"></a>
  <input type="text">
  <button>Go</button>
</body></html>`

func htmlServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newFetcher() *audit.Fetcher {
	return audit.NewFetcher(5*time.Second, "siteprobe-test")
}

func TestCheckAccessibility_CleanPagePassesEveryRule(t *testing.T) {
	p, err := htmlparser.Parse(strings.NewReader(cleanPage), "https://example.com/")
	require.NoError(t, err)

	res := audit.CheckAccessibility(p)
	assert.Empty(t, res.Violations)
	assert.Equal(t, res.Total, res.Passed)
	score, ok := res.Score()
	assert.True(t, ok)
	assert.Equal(t, 100.0, score)
}

func TestAccessibility_RunReportsViolations(t *testing.T) {
	srv := htmlServer(t, map[string]string{"/": brokenPage})
	a := audit.NewAccessibility(newFetcher(), logger.NewNop())

	payload, err := a.Run(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	res := payload.(*audit.AccessibilityResult)

	var rules []string
	for _, v := range res.Violations {
		rules = append(rules, v.Rule)
	}
	for _, want := range []string{
		"document-title", "html-has-lang", "image-alt", "label",
		"button-type", "link-name", "heading-order", "landmark-one-main",
	} {
		assert.Contains(t, rules, want)
	}
	assert.Equal(t, res.Total-len(res.Violations), res.Passed)
	score, _ := res.Score()
	assert.Less(t, score, 50.0)
}

func TestAccessibility_NotFoundIsStatusError(t *testing.T) {
	srv := htmlServer(t, nil)
	a := audit.NewAccessibility(newFetcher(), logger.NewNop())

	_, err := a.Run(context.Background(), srv.URL+"/missing")
	var statusErr *audit.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}
