// Package discovery - определение списка страниц сайта: sitemap.xml, затем обход ссылок.
package discovery

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"siteprobe/internal/logger"
)

const (
	sitemapPath     = "/sitemap.xml"
	maxSitemapBytes = 50 << 20
)

// FetchError - sitemap не удалось загрузить (сеть или не-2xx статус)
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("не удалось загрузить %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("не удалось загрузить %s: HTTP %d", e.URL, e.StatusCode)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError - тело sitemap не является корректным urlset
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("некорректный sitemap %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

type xmlURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

type xmlSitemapIndex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// SitemapResolver - загружает и разбирает <base>/sitemap.xml
type SitemapResolver struct {
	client      *http.Client
	userAgent   string
	maxChildren int
	log         logger.Logger
}

// ResolverOption - опция резолвера
type ResolverOption func(*SitemapResolver)

// WithResolverClient - HTTP-клиент резолвера
func WithResolverClient(c *http.Client) ResolverOption {
	return func(r *SitemapResolver) { r.client = c }
}

// WithResolverUserAgent - User-Agent запросов
func WithResolverUserAgent(ua string) ResolverOption {
	return func(r *SitemapResolver) { r.userAgent = ua }
}

// WithMaxChildSitemaps - сколько дочерних sitemap читать из sitemapindex
func WithMaxChildSitemaps(n int) ResolverOption {
	return func(r *SitemapResolver) { r.maxChildren = n }
}

// WithResolverLogger - логгер резолвера
func WithResolverLogger(l logger.Logger) ResolverOption {
	return func(r *SitemapResolver) { r.log = l }
}

// NewSitemapResolver - создает резолвер sitemap
func NewSitemapResolver(opts ...ResolverOption) *SitemapResolver {
	r := &SitemapResolver{
		client:      &http.Client{Timeout: 15 * time.Second},
		userAgent:   "SiteProbe/1.0",
		maxChildren: 50,
		log:         logger.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name - имя стратегии
func (r *SitemapResolver) Name() string { return "sitemap" }

// Discover - реализация Strategy
func (r *SitemapResolver) Discover(ctx context.Context, baseURL string) ([]string, error) {
	return r.Resolve(ctx, baseURL)
}

// Resolve - возвращает loc-записи sitemap в порядке документа
func (r *SitemapResolver) Resolve(ctx context.Context, baseURL string) ([]string, error) {
	sitemapURL, err := SitemapURL(baseURL)
	if err != nil {
		return nil, &FetchError{URL: baseURL, Err: err}
	}

	body, err := r.fetch(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}

	root, err := rootElement(body)
	if err != nil {
		return nil, &ParseError{URL: sitemapURL, Err: err}
	}
	if root == "sitemapindex" {
		return r.resolveIndex(ctx, sitemapURL, body)
	}
	return parseURLSet(sitemapURL, body)
}

// SitemapURL - канонический адрес sitemap для сайта
func SitemapURL(baseURL string) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("некорректный URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("нужен абсолютный URL, получено %q", baseURL)
	}
	return base.ResolveReference(&url.URL{Path: sitemapPath}).String(), nil
}

func (r *SitemapResolver) resolveIndex(ctx context.Context, indexURL string, body []byte) ([]string, error) {
	var index xmlSitemapIndex
	if err := xml.Unmarshal(body, &index); err != nil {
		return nil, &ParseError{URL: indexURL, Err: err}
	}

	var (
		urls     []string
		firstErr error
		children int
	)
	for _, sm := range index.Sitemaps {
		loc := strings.TrimSpace(sm.Loc)
		if loc == "" {
			continue
		}
		if children >= r.maxChildren {
			r.log.Warn("превышен лимит дочерних sitemap", logger.String("index", indexURL), logger.Int("limit", r.maxChildren))
			break
		}
		children++

		childBody, err := r.fetch(ctx, loc)
		if err == nil {
			var childURLs []string
			childURLs, err = parseURLSet(loc, childBody)
			urls = append(urls, childURLs...)
		}
		if err != nil {
			r.log.Warn("дочерний sitemap пропущен", logger.String("sitemap", loc), logger.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if len(urls) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return urls, nil
}

func (r *SitemapResolver) fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: target, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSitemapBytes))
	if err != nil {
		return nil, &FetchError{URL: target, StatusCode: resp.StatusCode, Err: err}
	}
	return body, nil
}

func parseURLSet(source string, body []byte) ([]string, error) {
	var set xmlURLSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, &ParseError{URL: source, Err: err}
	}
	urls := make([]string, 0, len(set.URLs))
	for _, u := range set.URLs {
		if loc := strings.TrimSpace(u.Loc); loc != "" {
			urls = append(urls, loc)
		}
	}
	return urls, nil
}

// rootElement - локальное имя корневого элемента XML-документа
func rootElement(body []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", errors.New("пустой документ")
			}
			return "", err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}
