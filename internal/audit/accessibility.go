package audit

import (
	"bytes"
	"context"
	"math"

	"siteprobe/internal/htmlparser"
	"siteprobe/internal/logger"
	"siteprobe/internal/suite"
)

// a11yRule - правило доступности и его важность
type a11yRule struct {
	ID     string
	Impact string
	Help   string
}

// a11yRules - правила в порядке вывода
var a11yRules = []a11yRule{
	{"document-title", "serious", "У страницы должен быть <title>"},
	{"html-has-lang", "serious", "У <html> должен быть атрибут lang"},
	{"image-alt", "critical", "У изображений должен быть alt"},
	{"image-redundant-alt", "minor", "alt не должен повторять слова «image», «изображение»"},
	{"label", "critical", "У полей формы должна быть метка"},
	{"button-type", "minor", "У <button> должен быть type"},
	{"link-name", "serious", "У ссылок должен быть доступный текст"},
	{"aria-valid-attr-value", "critical", "aria-labelledby должен ссылаться на существующие id"},
	{"aria-required-attr", "critical", "Роль требует обязательные aria-атрибуты"},
	{"aria-allowed-role", "minor", "Роль должна подходить элементу"},
	{"heading-order", "moderate", "Заголовки должны начинаться с h1 и идти без пропусков"},
	{"landmark-one-main", "moderate", "На странице должен быть <main>"},
	{"click-events-have-key-events", "serious", "Элементы с onclick должны быть доступны с клавиатуры"},
}

// A11yViolation - нарушенное правило
type A11yViolation struct {
	Rule     string   `json:"rule"`
	Impact   string   `json:"impact"`
	Help     string   `json:"help"`
	Count    int      `json:"count"`
	Examples []string `json:"examples,omitempty"`
}

// AccessibilityResult - результат набора accessibility
type AccessibilityResult struct {
	Value      float64         `json:"score"`
	Passed     int             `json:"passed"`
	Total      int             `json:"total"`
	Violations []A11yViolation `json:"violations"`
	ARIA       map[string]int  `json:"aria"`
}

// Score - доля пройденных правил
func (r *AccessibilityResult) Score() (float64, bool) { return r.Value, true }

// Accessibility - набор проверок доступности
type Accessibility struct {
	fetcher *Fetcher
	log     logger.Logger
}

// NewAccessibility - создает набор accessibility
func NewAccessibility(f *Fetcher, log logger.Logger) *Accessibility {
	return &Accessibility{fetcher: f, log: log}
}

// Run - реализация suite.Func
func (a *Accessibility) Run(ctx context.Context, pageURL string) (suite.Payload, error) {
	a.log.Info("проверка доступности", logger.String("url", pageURL))

	page, err := a.fetcher.FetchOK(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	p, err := htmlparser.Parse(bytes.NewReader(page.Body), pageURL)
	if err != nil {
		return nil, err
	}
	return CheckAccessibility(p), nil
}

// CheckAccessibility - прогоняет правила по фактам страницы
func CheckAccessibility(p *htmlparser.Page) *AccessibilityResult {
	issues := make(map[string][]string, len(p.A11yIssues)+4)
	for rule, msgs := range p.A11yIssues {
		issues[rule] = msgs
	}
	if p.Title == "" {
		issues["document-title"] = []string{"Отсутствует <title>"}
	}
	if p.HTMLLang == "" {
		issues["html-has-lang"] = []string{"Отсутствует <html lang>"}
	}
	if !p.HeadingsValid() {
		issues["heading-order"] = []string{"Нарушена иерархия заголовков"}
	}
	if !p.HasMain {
		issues["landmark-one-main"] = []string{"Отсутствует <main>"}
	}

	res := &AccessibilityResult{
		Total:      len(a11yRules),
		Violations: []A11yViolation{},
		ARIA: map[string]int{
			"label":      p.AriaLabels,
			"labelledby": p.AriaLabelledBy,
			"role":       p.Roles,
		},
	}
	for _, rule := range a11yRules {
		msgs := issues[rule.ID]
		if len(msgs) == 0 {
			res.Passed++
			continue
		}
		res.Violations = append(res.Violations, A11yViolation{
			Rule:     rule.ID,
			Impact:   rule.Impact,
			Help:     rule.Help,
			Count:    len(msgs),
			Examples: firstN(msgs, 3),
		})
	}
	res.Value = math.Round(float64(res.Passed)/float64(res.Total)*10000) / 100
	return res
}

func firstN(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
