package discovery

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"sync"
	"time"

	"siteprobe/internal/logger"
)

const maxPageBytes = 10 << 20

// Crawler - запасной способ найти страницы: обход ссылок от стартовой страницы
type Crawler struct {
	client      *http.Client
	robots      *RobotsClient
	maxDepth    int
	maxPages    int
	concurrency int
	userAgent   string
	log         logger.Logger
}

// Option - опция краулера
type Option func(*Crawler)

// WithMaxDepth - глубина обхода; 1 означает только ссылки стартовой страницы
func WithMaxDepth(d int) Option { return func(c *Crawler) { c.maxDepth = d } }

// WithMaxPages - максимальное количество адресов в результате
func WithMaxPages(n int) Option { return func(c *Crawler) { c.maxPages = n } }

// WithConcurrency - сколько страниц одного уровня загружается одновременно
func WithConcurrency(n int) Option { return func(c *Crawler) { c.concurrency = n } }

// WithUserAgent - User-Agent краулера
func WithUserAgent(ua string) Option { return func(c *Crawler) { c.userAgent = ua } }

// WithHTTPClient - HTTP-клиент для страниц и robots.txt
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Crawler) {
		c.client = hc
		c.robots = NewRobotsClient(hc)
	}
}

// WithLogger - логгер краулера
func WithLogger(l logger.Logger) Option { return func(c *Crawler) { c.log = l } }

// NewCrawler - создает новый инстанс краулера
func NewCrawler(opts ...Option) *Crawler {
	hc := &http.Client{Timeout: 15 * time.Second}
	c := &Crawler{
		client:      hc,
		robots:      NewRobotsClient(hc),
		maxDepth:    1,
		maxPages:    50,
		concurrency: 5,
		userAgent:   "SiteProbe/1.0",
		log:         logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.concurrency < 1 {
		c.concurrency = 1
	}
	return c
}

// Name - имя стратегии
func (c *Crawler) Name() string { return "crawl" }

// Discover - реализация Strategy; краулер никогда не возвращает ошибку
func (c *Crawler) Discover(ctx context.Context, baseURL string) ([]string, error) {
	return c.Crawl(ctx, baseURL), nil
}

// Crawl - обходит сайт в ширину уровнями. Порядок: стартовая страница,
// затем ссылки в порядке документа, уровень за уровнем.
func (c *Crawler) Crawl(ctx context.Context, seedURL string) []string {
	seed, err := url.Parse(seedURL)
	if err != nil || seed.Host == "" {
		c.log.Warn("некорректный стартовый URL", logger.String("url", seedURL))
		return []string{}
	}
	seed.Fragment = ""
	start := seed.String()

	if !c.robots.Allowed(ctx, c.userAgent, start) {
		c.log.Warn("стартовая страница запрещена robots.txt", logger.String("url", start))
		return []string{}
	}

	pages := c.fetchLevel(ctx, []string{start})
	if pages[0].err != nil {
		c.log.Warn("стартовая страница недоступна", logger.String("url", start), logger.Error(pages[0].err))
		return []string{}
	}

	seen := map[string]bool{start: true}
	found := []string{start}
	level := []page{pages[0]}

	for depth := 1; depth <= c.maxDepth && len(found) < c.maxPages; depth++ {
		var next []string
		for _, p := range level {
			for _, link := range p.links {
				if len(found) >= c.maxPages {
					break
				}
				if seen[link] {
					continue
				}
				seen[link] = true
				if !c.robots.Allowed(ctx, c.userAgent, link) {
					c.log.Debug("ссылка запрещена robots.txt", logger.String("url", link))
					continue
				}
				found = append(found, link)
				next = append(next, link)
			}
		}
		if depth == c.maxDepth || len(next) == 0 {
			break
		}
		level = c.fetchLevel(ctx, next)
	}

	c.log.Info("обход сайта завершен", logger.String("seed", start), logger.Int("pages", len(found)))
	return found
}

type page struct {
	links []string
	err   error
}

// fetchLevel - загружает страницы уровня пулом горутин; результат по позициям
func (c *Crawler) fetchLevel(ctx context.Context, urls []string) []page {
	pages := make([]page, len(urls))
	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := min(c.concurrency, len(urls))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				links, err := c.fetchLinks(ctx, urls[i])
				pages[i] = page{links: links, err: err}
			}
		}()
	}
	for i := range urls {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return pages
}

func (c *Crawler) fetchLinks(ctx context.Context, pageURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: pageURL, StatusCode: resp.StatusCode}
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, _ := mime.ParseMediaType(ct); mt != "text/html" && mt != "application/xhtml+xml" {
			return nil, nil
		}
	}

	// после редиректов ссылки разрешаются относительно конечного адреса
	return ExtractLinks(io.LimitReader(resp.Body, maxPageBytes), resp.Request.URL.String())
}
