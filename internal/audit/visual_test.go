package audit_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"siteprobe/internal/audit"
	"siteprobe/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMismatchPercent(t *testing.T) {
	assert.Equal(t, 0.0, audit.MismatchPercent("a\nb\n", "a\nb\n"))
	assert.Equal(t, 100.0, audit.MismatchPercent("", "body\n"))

	ref := "html\n  body\n    main\n    footer\n"
	cur := "html\n  body\n    main\n    aside\n"
	got := audit.MismatchPercent(ref, cur)
	assert.Greater(t, got, 0.0)
	assert.Less(t, got, 50.0)
}

func TestVisual_ReferenceThenCompare(t *testing.T) {
	var version atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if version.Load() == 0 {
			fmt.Fprint(w, `<html><body><main class="wide"><h1>Hello</h1></main></body></html>`)
			return
		}
		fmt.Fprint(w, `<html><body><nav>Menu</nav><section><h2>Totally different</h2><p>Other text</p></section></body></html>`)
	}))
	defer srv.Close()

	dir := t.TempDir()
	v := audit.NewVisual(newFetcher(), dir, 0.1, false, logger.NewNop())
	ctx := context.Background()

	// первый прогон создает эталоны
	payload, err := v.Run(ctx, srv.URL)
	require.NoError(t, err)
	first := payload.(*audit.VisualResult)
	require.Len(t, first.Checks, 2)
	for _, c := range first.Checks {
		assert.Equal(t, audit.VisualReference, c.Status)
		assert.FileExists(t, c.Reference)
	}
	assert.Equal(t, 100.0, first.Value)

	// без изменений
	payload, err = v.Run(ctx, srv.URL)
	require.NoError(t, err)
	same := payload.(*audit.VisualResult)
	assert.Equal(t, 2, same.Passed)
	for _, c := range same.Checks {
		assert.Equal(t, audit.VisualPass, c.Status)
		assert.Zero(t, c.Mismatch)
	}

	version.Store(1)
	payload, err = v.Run(ctx, srv.URL)
	require.NoError(t, err)
	changed := payload.(*audit.VisualResult)
	assert.Equal(t, 2, changed.Failed)
	assert.Equal(t, 0.0, changed.Value)
}

func TestVisual_UpdateBaselineRewritesReference(t *testing.T) {
	srv := htmlServer(t, map[string]string{"/": `<html><body><p>v1</p></body></html>`})
	dir := t.TempDir()

	_, err := audit.NewVisual(newFetcher(), dir, 0.1, false, logger.NewNop()).Run(context.Background(), srv.URL+"/")
	require.NoError(t, err)

	payload, err := audit.NewVisual(newFetcher(), dir, 0.1, true, logger.NewNop()).Run(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	res := payload.(*audit.VisualResult)
	for _, c := range res.Checks {
		assert.Equal(t, audit.VisualReference, c.Status)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
