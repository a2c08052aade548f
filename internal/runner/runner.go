// Package runner - полный прогон: выбор наборов, поиск страниц, проверки, отчет, доставка.
package runner

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"siteprobe/internal/audit"
	"siteprobe/internal/config"
	"siteprobe/internal/discovery"
	"siteprobe/internal/logger"
	"siteprobe/internal/notify"
	"siteprobe/internal/orchestrator"
	"siteprobe/internal/report"
	"siteprobe/internal/suite"
)

// URLCollector - источник страниц прогона
type URLCollector interface {
	Collect(ctx context.Context, baseURL string) []string
}

// Runner - собранный конвейер одного процесса
type Runner struct {
	cfg       config.Config
	log       logger.Logger
	registry  *suite.Registry
	collector URLCollector
	notifier  notify.Notifier
	progress  io.Writer
	now       func() time.Time
	newID     func() string
}

// Option - опция конвейера
type Option func(*Runner)

// WithRegistry - подменяет реестр наборов
func WithRegistry(r *suite.Registry) Option { return func(rn *Runner) { rn.registry = r } }

// WithCollector - подменяет поиск страниц
func WithCollector(c URLCollector) Option { return func(rn *Runner) { rn.collector = c } }

// WithNotifier - подменяет доставку отчета
func WithNotifier(n notify.Notifier) Option { return func(rn *Runner) { rn.notifier = n } }

// WithProgress - прогресс-бар наборов в w
func WithProgress(w io.Writer) Option { return func(rn *Runner) { rn.progress = w } }

// WithClock - источник времени начала и конца прогона
func WithClock(now func() time.Time) Option { return func(rn *Runner) { rn.now = now } }

// WithIDGenerator - генератор идентификатора прогона
func WithIDGenerator(gen func() string) Option { return func(rn *Runner) { rn.newID = gen } }

// New - собирает конвейер из конфигурации; опции подменяют отдельные звенья
func New(cfg config.Config, log logger.Logger, opts ...Option) (*Runner, error) {
	r := &Runner{
		cfg:   cfg,
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.registry == nil {
		reg, err := audit.NewRegistry(cfg, log)
		if err != nil {
			return nil, err
		}
		r.registry = reg
	}
	if r.collector == nil {
		r.collector = newCollector(cfg, log)
	}
	if r.notifier == nil {
		r.notifier = newNotifier(cfg, log)
	}
	return r, nil
}

// Registry - реестр наборов конвейера
func (r *Runner) Registry() *suite.Registry { return r.registry }

// Run - прогон сайта. Неизвестный набор останавливает прогон до поиска страниц.
// Ошибка доставки возвращается вместе с готовым отчетом.
func (r *Runner) Run(ctx context.Context, site string, requested []string) (*report.Report, error) {
	selected, err := r.registry.Select(requested)
	if err != nil {
		return nil, err
	}
	site = NormalizeSite(site)
	log := r.log.With(logger.String("site", site))

	startedAt := r.now()
	urls := r.collector.Collect(ctx, site)
	log.Info("страницы для проверки", logger.Int("count", len(urls)))

	orchOpts := []orchestrator.Option{
		orchestrator.WithConcurrency(r.cfg.Concurrency),
		orchestrator.WithTimeout(r.cfg.SuiteTimeout),
		orchestrator.WithLogger(log),
	}
	if r.progress != nil {
		orchOpts = append(orchOpts, orchestrator.WithProgress(r.progress))
	}
	results := orchestrator.New(r.registry, orchOpts...).Run(ctx, urls, selected)

	rep := report.Aggregate(report.Run{
		ID:         r.newID(),
		Site:       site,
		StartedAt:  startedAt,
		FinishedAt: r.now(),
		URLs:       urls,
		Requested:  requested,
		Executed:   selected,
		Results:    results,
	})
	fields := []logger.Field{
		logger.String("run", rep.ID),
		logger.Int("urls", rep.URLCount),
		logger.Int("failures", rep.TotalFailures),
	}
	if rep.OverallScore != nil {
		fields = append(fields, logger.Float64("score", *rep.OverallScore))
	}
	log.Info("прогон завершен", fields...)

	if r.notifier != nil {
		if err := r.notifier.Notify(ctx, rep); err != nil {
			return rep, fmt.Errorf("отчет %s: %w", rep.ID, err)
		}
	}
	return rep, nil
}

// NormalizeSite - добавляет https://, если схема не указана
func NormalizeSite(site string) string {
	site = strings.TrimSpace(site)
	if site == "" || strings.HasPrefix(site, "http://") || strings.HasPrefix(site, "https://") {
		return site
	}
	return "https://" + site
}

func newCollector(cfg config.Config, log logger.Logger) *discovery.Collector {
	client := &http.Client{Timeout: cfg.HTTPTimeout}
	resolver := discovery.NewSitemapResolver(
		discovery.WithResolverClient(client),
		discovery.WithResolverUserAgent(cfg.UserAgent),
		discovery.WithMaxChildSitemaps(cfg.Discovery.MaxChildSitemaps),
		discovery.WithResolverLogger(log.With(logger.String("component", "sitemap"))),
	)
	crawler := discovery.NewCrawler(
		discovery.WithHTTPClient(client),
		discovery.WithUserAgent(cfg.UserAgent),
		discovery.WithMaxDepth(cfg.Discovery.CrawlDepth),
		discovery.WithMaxPages(cfg.Discovery.CrawlMaxPages),
		discovery.WithConcurrency(cfg.Discovery.CrawlConcurrency),
		discovery.WithLogger(log.With(logger.String("component", "crawler"))),
	)
	return discovery.NewCollector(log.With(logger.String("component", "discovery")), resolver, crawler)
}

func newNotifier(cfg config.Config, log logger.Logger) notify.Notifier {
	var channels []notify.Notifier
	if cfg.OutputDir != "" {
		channels = append(channels, notify.NewFile(cfg.OutputDir, log))
	}
	if cfg.Email.Enabled {
		channels = append(channels, notify.NewEmail(notify.EmailConfig{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
			To:       cfg.Email.To,
			Subject:  cfg.Email.Subject,
		}, log))
	}
	if len(channels) == 0 {
		return nil
	}
	return notify.NewMulti(log, channels...)
}
