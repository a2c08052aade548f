package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"siteprobe/internal/helpers"
	"siteprobe/internal/logger"
	"siteprobe/internal/suite"
)

// селекторы текстовых узлов в порядке обхода
var languageSelectors = []string{
	"h1", "h2", "h3", "h4", "h5", "h6",
	"p", "li", "dt", "dd",
	"button", "a",
	"label", `input[type="submit"]`,
	`meta[name="description"]`,
}

// TextNode - фрагмент текста страницы
type TextNode struct {
	Text     string `json:"text"`
	Selector string `json:"selector"`
	Path     string `json:"path"`
}

// LanguageIssue - замечание LanguageTool
type LanguageIssue struct {
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions"`
	Rule        string   `json:"rule"`
	Category    string   `json:"category"`
	Offset      int      `json:"offset"`
	Length      int      `json:"length"`
}

// LanguageFinding - текст и его замечания
type LanguageFinding struct {
	Text     string          `json:"text"`
	Location string          `json:"location"`
	Issues   []LanguageIssue `json:"issues"`
}

// CategoryCount - число замечаний в категории
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// LanguageResult - результат набора language
type LanguageResult struct {
	Value            float64           `json:"score"`
	TotalWords       int               `json:"totalWords"`
	TotalIssues      int               `json:"totalIssues"`
	CheckedNodes     int               `json:"checkedNodes"`
	FailedNodes      int               `json:"failedNodes"`
	IssuesByCategory []CategoryCount   `json:"issuesByCategory"`
	Findings         []LanguageFinding `json:"findings"`
}

// Score - штраф за долю замечаний на слово
func (r *LanguageResult) Score() (float64, bool) { return r.Value, true }

// ltResponse - ответ LanguageTool /v2/check
type ltResponse struct {
	Matches []struct {
		Message      string `json:"message"`
		Offset       int    `json:"offset"`
		Length       int    `json:"length"`
		Replacements []struct {
			Value string `json:"value"`
		} `json:"replacements"`
		Rule struct {
			ID       string `json:"id"`
			Category struct {
				ID string `json:"id"`
			} `json:"category"`
		} `json:"rule"`
	} `json:"matches"`
}

// Language - набор проверки орфографии и грамматики
type Language struct {
	fetcher       *Fetcher
	client        *http.Client
	endpoint      string
	language      string
	disabledRules []string
	maxNodes      int
	log           logger.Logger
}

// LanguageOptions - параметры набора language
type LanguageOptions struct {
	Endpoint      string
	Language      string
	DisabledRules []string
	MaxNodes      int
	Timeout       time.Duration
}

// NewLanguage - создает набор language
func NewLanguage(f *Fetcher, opts LanguageOptions, log logger.Logger) *Language {
	return &Language{
		fetcher:       f,
		client:        &http.Client{Timeout: opts.Timeout},
		endpoint:      opts.Endpoint,
		language:      opts.Language,
		disabledRules: opts.DisabledRules,
		maxNodes:      opts.MaxNodes,
		log:           log,
	}
}

// Run - реализация suite.Func
func (l *Language) Run(ctx context.Context, pageURL string) (suite.Payload, error) {
	l.log.Info("проверка текста", logger.String("url", pageURL))

	page, err := l.fetcher.FetchOK(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга HTML: %w", err)
	}

	nodes := ExtractTextNodes(doc)
	if l.maxNodes > 0 && len(nodes) > l.maxNodes {
		l.log.Debug("текстовые узлы обрезаны", logger.Int("found", len(nodes)), logger.Int("max", l.maxNodes))
		nodes = nodes[:l.maxNodes]
	}

	res := &LanguageResult{Findings: []LanguageFinding{}}
	for _, node := range nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res.TotalWords += len(strings.Fields(node.Text))

		issues, err := l.check(ctx, node.Text)
		if err != nil {
			res.FailedNodes++
			l.log.Warn("не удалось проверить текст",
				logger.String("url", pageURL),
				logger.String("path", node.Path),
				logger.Error(err))
			continue
		}
		res.CheckedNodes++
		if len(issues) > 0 {
			res.Findings = append(res.Findings, LanguageFinding{Text: node.Text, Location: node.Path, Issues: issues})
			res.TotalIssues += len(issues)
		}
	}

	res.IssuesByCategory = groupByCategory(res.Findings)
	res.Value = languageScore(res.TotalIssues, res.TotalWords)
	return res, nil
}

func (l *Language) check(ctx context.Context, text string) ([]LanguageIssue, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("language", l.language)
	if len(l.disabledRules) > 0 {
		form.Set("disabledRules", strings.Join(l.disabledRules, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("LanguageTool: HTTP %d", resp.StatusCode)
	}

	var lt ltResponse
	if err := json.NewDecoder(resp.Body).Decode(&lt); err != nil {
		return nil, fmt.Errorf("ошибка разбора ответа LanguageTool: %w", err)
	}

	issues := make([]LanguageIssue, 0, len(lt.Matches))
	for _, m := range lt.Matches {
		suggestions := make([]string, 0, len(m.Replacements))
		for _, r := range m.Replacements {
			suggestions = append(suggestions, r.Value)
		}
		issues = append(issues, LanguageIssue{
			Message:     m.Message,
			Suggestions: suggestions,
			Rule:        m.Rule.ID,
			Category:    m.Rule.Category.ID,
			Offset:      m.Offset,
			Length:      m.Length,
		})
	}
	return issues, nil
}

// ExtractTextNodes - непустые тексты страницы по селекторам
func ExtractTextNodes(doc *goquery.Document) []TextNode {
	var nodes []TextNode
	for _, sel := range languageSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			var text string
			switch {
			case strings.HasPrefix(sel, "meta"):
				text = s.AttrOr("content", "")
			case strings.HasPrefix(sel, "input"):
				text = s.AttrOr("value", "")
			default:
				text = strings.Join(strings.Fields(s.Text()), " ")
			}
			text = strings.TrimSpace(text)
			if text == "" {
				return
			}
			nodes = append(nodes, TextNode{Text: text, Selector: sel, Path: elementPath(s.Get(0))})
		})
	}
	return nodes
}

// elementPath - путь вида html > body > p:nth-of-type(2)
func elementPath(n *html.Node) string {
	var parts []string
	for ; n != nil && n.Type == html.ElementNode; n = n.Parent {
		part := n.Data
		if id := helpers.GetAttr(n, "id"); id != "" {
			part += "#" + id
		} else {
			nth := 1
			for sib := n.PrevSibling; sib != nil; sib = sib.PrevSibling {
				if sib.Type == html.ElementNode && sib.Data == n.Data {
					nth++
				}
			}
			if nth != 1 {
				part += fmt.Sprintf(":nth-of-type(%d)", nth)
			}
		}
		parts = append([]string{part}, parts...)
	}
	return strings.Join(parts, " > ")
}

func groupByCategory(findings []LanguageFinding) []CategoryCount {
	counts := make(map[string]int)
	for _, f := range findings {
		for _, issue := range f.Issues {
			counts[issue.Category]++
		}
	}
	out := make([]CategoryCount, 0, len(counts))
	for cat, n := range counts {
		out = append(out, CategoryCount{Category: cat, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// languageScore - 100 минус 1000 за каждое замечание на слово, не ниже нуля
func languageScore(issues, words int) float64 {
	if words == 0 {
		return 100
	}
	score := 100 - float64(issues)/float64(words)*1000
	return math.Round(math.Max(0, score)*100) / 100
}
