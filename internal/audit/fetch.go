// Package audit - наборы проверок страницы: доступность, SEO, производительность,
// визуальная регрессия, язык и HTTP-заголовки.
package audit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	maxBodyBytes = 10 << 20
	maxRedirects = 5
)

// Fetched - загруженная страница
type Fetched struct {
	URL            string
	StatusCode     int
	Header         http.Header
	Body           []byte
	ResponseTimeMs int64
	Redirects      []string
}

// Fetcher - загрузчик страниц для наборов
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher - создает загрузчик; timeout ограничивает весь запрос
func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Client - HTTP-клиент загрузчика
func (f *Fetcher) Client() *http.Client { return f.client }

// Fetch - загружает страницу, принимая любой статус; не более 5 редиректов
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Fetched, error) {
	res := &Fetched{URL: rawURL}

	client := *f.client
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) > maxRedirects {
			return fmt.Errorf("слишком много редиректов (>%d)", maxRedirects)
		}
		res.Redirects = append(res.Redirects, req.URL.String())
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("некорректный URL: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("не удалось загрузить страницу: %w", err)
	}
	defer resp.Body.Close()

	res.StatusCode = resp.StatusCode
	res.Header = resp.Header
	res.Body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	res.ResponseTimeMs = time.Since(start).Milliseconds()
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения тела: %w", err)
	}
	return res, nil
}

// FetchOK - как Fetch, но статус вне 2xx считается ошибкой
func (f *Fetcher) FetchOK(ctx context.Context, rawURL string) (*Fetched, error) {
	res, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &StatusError{URL: rawURL, StatusCode: res.StatusCode}
	}
	return res, nil
}

// StatusError - страница ответила не-2xx статусом
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP статус %d для %s", e.StatusCode, e.URL)
}
