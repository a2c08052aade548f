package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "siteprobe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "не удалось прочитать")
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
site: https://example.com
suites: [accessibility, seo]
concurrency: 4
suite_timeout: 30s
discovery:
  crawl_depth: 2
visual:
  mismatch_threshold: 2.5
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", cfg.Site)
	assert.Equal(t, []string{"accessibility", "seo"}, cfg.Suites)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.SuiteTimeout)
	assert.Equal(t, 2, cfg.Discovery.CrawlDepth)
	assert.Equal(t, 50, cfg.Discovery.CrawlMaxPages)
	assert.InDelta(t, 2.5, cfg.Visual.MismatchThreshold, 0.0001)
	assert.Equal(t, "en-US", cfg.Language.Language)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, `{{{invalid yaml`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ошибка разбора")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "site: https://example.com\n")
	t.Setenv("SITEPROBE_SUITES", "seo, headers")
	t.Setenv("SMTP_TO", "a@example.com,b@example.com")
	t.Setenv("PAGESPEED_API_KEY", "secret")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"seo", "headers"}, cfg.Suites)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Email.To)
	assert.Equal(t, "secret", cfg.Performance.APIKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "bad site", mutate: func(c *Config) { c.Site = "ftp://x" }, wantErr: "site"},
		{name: "zero concurrency", mutate: func(c *Config) { c.Concurrency = 0 }, wantErr: "concurrency"},
		{name: "threshold out of range", mutate: func(c *Config) { c.Visual.MismatchThreshold = 101 }, wantErr: "mismatch_threshold"},
		{name: "email without host", mutate: func(c *Config) {
			c.Email.Enabled = true
			c.Email.From = "a@b.c"
			c.Email.To = []string{"d@e.f"}
		}, wantErr: "email.host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestApplyEnv_IgnoresMalformedNumbers(t *testing.T) {
	cfg := Default()
	env := map[string]string{
		"SITEPROBE_CONCURRENCY":   "many",
		"SITEPROBE_SUITE_TIMEOUT": "5s",
	}
	applyEnv(&cfg, func(k string) string { return env[k] })

	assert.Equal(t, 1, cfg.Concurrency)
	assert.Equal(t, 5*time.Second, cfg.SuiteTimeout)
}
