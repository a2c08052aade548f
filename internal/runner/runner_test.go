package runner_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"siteprobe/internal/config"
	"siteprobe/internal/logger"
	"siteprobe/internal/notify"
	"siteprobe/internal/report"
	"siteprobe/internal/runner"
	"siteprobe/internal/suite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type scored float64

func (s scored) Score() (float64, bool) { return float64(s), true }

var fixed = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func testConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.OutputDir = t.TempDir()
	cfg.HTTPTimeout = 5 * time.Second
	cfg.SuiteTimeout = 5 * time.Second
	return cfg
}

func fakeRegistry(t *testing.T, failOn string) *suite.Registry {
	t.Helper()
	var entries []suite.Entry
	for _, name := range suite.Known {
		name := name
		entries = append(entries, suite.Entry{Name: name, Run: func(_ context.Context, u string) (suite.Payload, error) {
			if name == suite.SEO && u == failOn {
				return nil, errors.New("seo exploded")
			}
			return scored(90), nil
		}})
	}
	reg, err := suite.NewRegistry(entries)
	require.NoError(t, err)
	return reg
}

func newRunner(t *testing.T, cfg config.Config, opts ...runner.Option) *runner.Runner {
	t.Helper()
	opts = append([]runner.Option{
		runner.WithClock(func() time.Time { return fixed }),
		runner.WithIDGenerator(func() string { return "run-test" }),
	}, opts...)
	r, err := runner.New(cfg, logger.NewNop(), opts...)
	require.NoError(t, err)
	return r
}

func sitemapSite(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sitemap.xml" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `<urlset><url><loc>%[1]s/</loc></url><url><loc>%[1]s/a</loc></url><url><loc>%[1]s/b</loc></url></urlset>`, srv.URL)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRun_SitemapAndSelectedSuites(t *testing.T) {
	site := sitemapSite(t)
	cfg := testConfig(t)
	r := newRunner(t, cfg, runner.WithRegistry(fakeRegistry(t, "")))

	rep, err := r.Run(context.Background(), site.URL, []string{"accessibility", "seo"})
	require.NoError(t, err)

	assert.Equal(t, 3, rep.URLCount)
	assert.Equal(t, []string{site.URL + "/", site.URL + "/a", site.URL + "/b"}, rep.URLs)
	assert.Len(t, rep.Results, 2)
	assert.Len(t, rep.Results[suite.Accessibility], 3)
	assert.Len(t, rep.Results[suite.SEO], 3)
	assert.NotContains(t, rep.Results, suite.Performance)
	assert.Equal(t, "run-test", rep.ID)

	// файловый канал сохранил отчет
	_, err = os.Stat(filepath.Join(cfg.OutputDir, notify.FileName(rep)))
	assert.NoError(t, err)
}

func TestRun_LogsOverallScore(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	opts := []runner.Option{
		runner.WithRegistry(fakeRegistry(t, "")),
		runner.WithCollector(&countingCollector{}),
		runner.WithClock(func() time.Time { return fixed }),
	}
	r, err := runner.New(testConfig(t), logger.FromZap(zap.New(core)), opts...)
	require.NoError(t, err)

	_, err = r.Run(context.Background(), "https://example.com", []string{"seo"})
	require.NoError(t, err)

	done := logs.FilterMessage("прогон завершен").All()
	require.Len(t, done, 1)
	fields := done[0].ContextMap()
	assert.Equal(t, 90.0, fields["score"])
	assert.Equal(t, "https://example.com", fields["site"])
}

func TestRun_NoSitemapAndEmptyCrawl(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := newRunner(t, testConfig(t), runner.WithRegistry(fakeRegistry(t, "")))
	rep, err := r.Run(context.Background(), srv.URL, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, rep.URLCount)
	assert.Len(t, rep.Results, len(suite.Known))
	for _, cells := range rep.Results {
		assert.Empty(t, cells)
	}
	assert.Zero(t, rep.TotalFailures)
}

func TestRun_SingleFailureIsTallied(t *testing.T) {
	site := sitemapSite(t)
	r := newRunner(t, testConfig(t), runner.WithRegistry(fakeRegistry(t, site.URL+"/a")))

	rep, err := r.Run(context.Background(), site.URL, []string{"accessibility", "seo"})
	require.NoError(t, err)

	assert.Equal(t, 1, rep.TotalFailures)
	assert.Equal(t, 1, rep.Summary[suite.SEO].Failures)
	assert.Equal(t, "seo exploded", rep.Results[suite.SEO][1].Error)
	assert.False(t, rep.Results[suite.SEO][0].Failed())
	assert.False(t, rep.Results[suite.Accessibility][1].Failed())
}

type countingCollector struct{ calls int }

func (c *countingCollector) Collect(context.Context, string) []string {
	c.calls++
	return []string{"https://example.com/"}
}

func TestRun_UnknownSuiteStopsBeforeDiscovery(t *testing.T) {
	collector := &countingCollector{}
	r := newRunner(t, testConfig(t),
		runner.WithRegistry(fakeRegistry(t, "")),
		runner.WithCollector(collector))

	rep, err := r.Run(context.Background(), "example.com", []string{"seo", "spelling"})
	assert.Nil(t, rep)
	var unknown *suite.UnknownSuiteError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "spelling", unknown.Name)
	assert.Zero(t, collector.calls)
}

type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, *report.Report) error {
	return &notify.DeliveryError{Channel: "email", Err: errors.New("smtp down")}
}

func TestRun_DeliveryFailureKeepsReport(t *testing.T) {
	r := newRunner(t, testConfig(t),
		runner.WithRegistry(fakeRegistry(t, "")),
		runner.WithCollector(&countingCollector{}),
		runner.WithNotifier(failingNotifier{}))

	rep, err := r.Run(context.Background(), "https://example.com", []string{"headers"})
	require.NotNil(t, rep)
	assert.Equal(t, 1, rep.URLCount)

	var de *notify.DeliveryError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "email", de.Channel)
}

func TestNormalizeSite(t *testing.T) {
	assert.Equal(t, "https://example.com", runner.NormalizeSite(" example.com "))
	assert.Equal(t, "http://example.com", runner.NormalizeSite("http://example.com"))
	assert.Equal(t, "", runner.NormalizeSite(""))
}
