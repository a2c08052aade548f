package audit

import (
	"strings"

	"siteprobe/internal/config"
	"siteprobe/internal/logger"
	"siteprobe/internal/suite"
)

// NewRegistry - реестр всех наборов, собранный из конфигурации
func NewRegistry(cfg config.Config, log logger.Logger, opts ...suite.Option) (*suite.Registry, error) {
	fetcher := NewFetcher(cfg.HTTPTimeout, cfg.UserAgent)
	schema := NewSchemaLoader(fetcher.Client(), cfg.SEO.SchemaCacheFile, cfg.SEO.OfflineSchema, log.With(logger.String("component", "schema")))

	var disabled []string
	for _, rule := range strings.Split(cfg.Language.DisabledRules, ",") {
		if rule = strings.TrimSpace(rule); rule != "" {
			disabled = append(disabled, rule)
		}
	}

	entries := []suite.Entry{
		{Name: suite.Accessibility, Run: NewAccessibility(fetcher, suiteLogger(log, suite.Accessibility)).Run},
		{Name: suite.SEO, Run: NewSEO(fetcher, schema, suiteLogger(log, suite.SEO)).Run},
		{Name: suite.Performance, Run: NewPerformance(
			cfg.Performance.Endpoint, cfg.Performance.APIKey, cfg.Performance.Strategy,
			cfg.Performance.Timeout, suiteLogger(log, suite.Performance)).Run},
		{Name: suite.Visual, Run: NewVisual(
			fetcher, cfg.Visual.BaselineDir, cfg.Visual.MismatchThreshold,
			cfg.Visual.UpdateBaseline, suiteLogger(log, suite.Visual)).Run},
		{Name: suite.Language, Run: NewLanguage(fetcher, LanguageOptions{
			Endpoint:      cfg.Language.Endpoint,
			Language:      cfg.Language.Language,
			DisabledRules: disabled,
			MaxNodes:      cfg.Language.MaxNodes,
			Timeout:       cfg.HTTPTimeout,
		}, suiteLogger(log, suite.Language)).Run},
		{Name: suite.Headers, Run: NewHeaders(fetcher, suiteLogger(log, suite.Headers)).Run},
	}
	return suite.NewRegistry(entries, opts...)
}

func suiteLogger(log logger.Logger, name suite.Name) logger.Logger {
	return log.With(logger.String("suite", string(name)))
}
