// Package config - настройки прогона: YAML-файл, .env и переменные окружения.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Config - полная конфигурация прогона
type Config struct {
	Site         string        `yaml:"site"`
	Suites       []string      `yaml:"suites"`
	Concurrency  int           `yaml:"concurrency"`
	SuiteTimeout time.Duration `yaml:"suite_timeout"`
	OutputDir    string        `yaml:"output_dir"`
	LogLevel     string        `yaml:"log_level"`
	UserAgent    string        `yaml:"user_agent"`
	HTTPTimeout  time.Duration `yaml:"http_timeout"`

	Discovery   Discovery   `yaml:"discovery"`
	Performance Performance `yaml:"performance"`
	Language    Language    `yaml:"language"`
	Visual      Visual      `yaml:"visual"`
	SEO         SEO         `yaml:"seo"`
	Email       Email       `yaml:"email"`
}

// Discovery - настройки поиска страниц
type Discovery struct {
	MaxChildSitemaps int `yaml:"max_child_sitemaps"`
	CrawlDepth       int `yaml:"crawl_depth"`
	CrawlMaxPages    int `yaml:"crawl_max_pages"`
	CrawlConcurrency int `yaml:"crawl_concurrency"`
}

// Performance - клиент PageSpeed Insights (Lighthouse)
type Performance struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"api_key"`
	Strategy string        `yaml:"strategy"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Language - клиент LanguageTool
type Language struct {
	Endpoint      string `yaml:"endpoint"`
	Language      string `yaml:"language"`
	DisabledRules string `yaml:"disabled_rules"`
	MaxNodes      int    `yaml:"max_nodes"`
}

// Visual - настройки сравнения со снимком-эталоном
type Visual struct {
	BaselineDir       string  `yaml:"baseline_dir"`
	MismatchThreshold float64 `yaml:"mismatch_threshold"`
	UpdateBaseline    bool    `yaml:"update_baseline"`
}

// SEO - настройки SEO-проверок
type SEO struct {
	SchemaCacheFile string `yaml:"schema_cache_file"`
	OfflineSchema   bool   `yaml:"offline_schema"`
}

// Email - настройки отправки отчета по почте
type Email struct {
	Enabled  bool     `yaml:"enabled"`
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
	Subject  string   `yaml:"subject"`
}

// Default - конфигурация по умолчанию
func Default() Config {
	return Config{
		Concurrency:  1,
		SuiteTimeout: 2 * time.Minute,
		OutputDir:    "reports",
		LogLevel:     "info",
		UserAgent:    "Mozilla/5.0 (compatible; SiteProbe/1.0)",
		HTTPTimeout:  15 * time.Second,
		Discovery: Discovery{
			MaxChildSitemaps: 50,
			CrawlDepth:       1,
			CrawlMaxPages:    50,
			CrawlConcurrency: 5,
		},
		Performance: Performance{
			Endpoint: "https://www.googleapis.com/pagespeedonline/v5/runPagespeed",
			Strategy: "mobile",
			Timeout:  90 * time.Second,
		},
		Language: Language{
			Endpoint:      "https://api.languagetool.org/v2/check",
			Language:      "en-US",
			DisabledRules: "WHITESPACE_RULE",
			MaxNodes:      200,
		},
		Visual: Visual{
			BaselineDir:       "reports/visual/reference",
			MismatchThreshold: 0.1,
		},
		SEO: SEO{
			SchemaCacheFile: "schemaorg-types.json",
		},
		Email: Email{
			Port:    587,
			Subject: "Test Report",
		},
	}
}

// Validate - проверяет согласованность настроек
func (c Config) Validate() error {
	var errs []error
	if c.Site != "" {
		u, err := url.Parse(c.Site)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Errorf("site: некорректный URL %q", c.Site))
		}
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency: должно быть >= 1, получено %d", c.Concurrency))
	}
	if c.SuiteTimeout < 0 {
		errs = append(errs, errors.New("suite_timeout: отрицательное значение"))
	}
	if c.Discovery.CrawlDepth < 0 {
		errs = append(errs, errors.New("discovery.crawl_depth: отрицательное значение"))
	}
	if c.Discovery.CrawlMaxPages < 1 {
		errs = append(errs, errors.New("discovery.crawl_max_pages: должно быть >= 1"))
	}
	if c.Visual.MismatchThreshold < 0 || c.Visual.MismatchThreshold > 100 {
		errs = append(errs, fmt.Errorf("visual.mismatch_threshold: %v вне диапазона [0,100]", c.Visual.MismatchThreshold))
	}
	if c.Email.Enabled {
		if c.Email.Host == "" {
			errs = append(errs, errors.New("email.host: обязателен при enabled=true"))
		}
		if c.Email.From == "" || len(c.Email.To) == 0 {
			errs = append(errs, errors.New("email: нужны from и хотя бы один получатель"))
		}
	}
	return errors.Join(errs...)
}
