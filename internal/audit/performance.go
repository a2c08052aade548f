package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"siteprobe/internal/logger"
	"siteprobe/internal/suite"
)

// категории Lighthouse, запрашиваемые у PageSpeed Insights
var lighthouseCategories = []string{"performance", "accessibility", "best-practices", "seo"}

// метрики из audits, попадающие в результат
var lighthouseMetrics = map[string]string{
	"first-contentful-paint":   "fcp",
	"largest-contentful-paint": "lcp",
	"total-blocking-time":      "tbt",
	"cumulative-layout-shift":  "cls",
	"speed-index":              "si",
}

// PerformanceResult - результат набора performance
type PerformanceResult struct {
	Strategy string             `json:"strategy"`
	Scores   map[string]float64 `json:"scores"`
	Metrics  map[string]float64 `json:"metrics"`
}

// Score - оценка категории performance
func (r *PerformanceResult) Score() (float64, bool) {
	v, ok := r.Scores["performance"]
	return v, ok
}

// psiResponse - нужная часть ответа PageSpeed Insights v5
type psiResponse struct {
	LighthouseResult struct {
		Categories map[string]struct {
			Score *float64 `json:"score"`
		} `json:"categories"`
		Audits map[string]struct {
			NumericValue *float64 `json:"numericValue"`
		} `json:"audits"`
	} `json:"lighthouseResult"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Performance - набор Lighthouse через PageSpeed Insights
type Performance struct {
	client   *http.Client
	endpoint string
	apiKey   string
	strategy string
	log      logger.Logger
}

// NewPerformance - создает набор performance; timeout ограничивает один запрос к API
func NewPerformance(endpoint, apiKey, strategy string, timeout time.Duration, log logger.Logger) *Performance {
	return &Performance{
		client:   &http.Client{Timeout: timeout},
		endpoint: endpoint,
		apiKey:   apiKey,
		strategy: strategy,
		log:      log,
	}
}

// Run - реализация suite.Func
func (p *Performance) Run(ctx context.Context, pageURL string) (suite.Payload, error) {
	p.log.Info("запуск Lighthouse", logger.String("url", pageURL), logger.String("strategy", p.strategy))

	endpoint, err := url.Parse(p.endpoint)
	if err != nil {
		return nil, fmt.Errorf("некорректный адрес PageSpeed: %w", err)
	}
	q := endpoint.Query()
	q.Set("url", pageURL)
	q.Set("strategy", p.strategy)
	if p.apiKey != "" {
		q.Set("key", p.apiKey)
	}
	for _, c := range lighthouseCategories {
		q.Add("category", c)
	}
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос к PageSpeed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа PageSpeed: %w", err)
	}

	var psi psiResponse
	if err := json.Unmarshal(body, &psi); err != nil {
		return nil, fmt.Errorf("ошибка разбора ответа PageSpeed (HTTP %d): %w", resp.StatusCode, err)
	}
	if psi.Error != nil {
		return nil, fmt.Errorf("PageSpeed %d: %s", psi.Error.Code, psi.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("PageSpeed: HTTP %d", resp.StatusCode)
	}
	return buildPerformance(p.strategy, &psi)
}

func buildPerformance(strategy string, psi *psiResponse) (*PerformanceResult, error) {
	res := &PerformanceResult{
		Strategy: strategy,
		Scores:   make(map[string]float64),
		Metrics:  make(map[string]float64),
	}
	for name, cat := range psi.LighthouseResult.Categories {
		if cat.Score != nil {
			res.Scores[name] = math.Round(*cat.Score * 100)
		}
	}
	if _, ok := res.Scores["performance"]; !ok {
		return nil, fmt.Errorf("в ответе Lighthouse нет оценки performance")
	}
	for id, key := range lighthouseMetrics {
		if a, ok := psi.LighthouseResult.Audits[id]; ok && a.NumericValue != nil {
			res.Metrics[key] = *a.NumericValue
		}
	}
	return res, nil
}
