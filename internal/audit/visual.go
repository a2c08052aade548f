package audit

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/net/html"

	"siteprobe/internal/helpers"
	"siteprobe/internal/logger"
	"siteprobe/internal/suite"
)

// статусы сравнения снимков
const (
	VisualPass      = "pass"
	VisualFail      = "fail"
	VisualReference = "reference"
)

// снимки страницы, сравниваемые с эталоном
var snapshotKinds = []struct {
	Name string
	Take func(*html.Node) string
}{
	{"layout", layoutSnapshot},
	{"content", contentSnapshot},
}

// VisualCheck - сравнение одного снимка с эталоном
type VisualCheck struct {
	Snapshot  string  `json:"snapshot"`
	Status    string  `json:"status"`
	Mismatch  float64 `json:"mismatch"`
	Reference string  `json:"reference"`
}

// VisualResult - результат набора visual
type VisualResult struct {
	Value     float64       `json:"score"`
	Threshold float64       `json:"threshold"`
	Total     int           `json:"total"`
	Passed    int           `json:"passed"`
	Failed    int           `json:"failed"`
	Checks    []VisualCheck `json:"checks"`
}

// Score - доля совпавших снимков
func (r *VisualResult) Score() (float64, bool) { return r.Value, true }

// Visual - набор визуальной регрессии по снимкам DOM
type Visual struct {
	fetcher   *Fetcher
	dir       string
	threshold float64
	update    bool
	log       logger.Logger
}

// NewVisual - создает набор visual; dir хранит эталонные снимки
func NewVisual(f *Fetcher, dir string, threshold float64, update bool, log logger.Logger) *Visual {
	return &Visual{fetcher: f, dir: dir, threshold: threshold, update: update, log: log}
}

// Run - реализация suite.Func
func (v *Visual) Run(ctx context.Context, pageURL string) (suite.Payload, error) {
	v.log.Info("визуальная регрессия", logger.String("url", pageURL))

	page, err := v.fetcher.FetchOK(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга HTML: %w", err)
	}
	if err := os.MkdirAll(v.dir, 0o755); err != nil {
		return nil, fmt.Errorf("каталог эталонов: %w", err)
	}

	res := &VisualResult{Threshold: v.threshold, Checks: []VisualCheck{}}
	key := snapshotKey(pageURL)
	for _, kind := range snapshotKinds {
		path := filepath.Join(v.dir, key+"-"+kind.Name+".txt")
		check, err := v.compare(path, kind.Take(doc))
		if err != nil {
			return nil, err
		}
		check.Snapshot = kind.Name
		if check.Status == VisualReference {
			v.log.Info("создан эталонный снимок", logger.String("url", pageURL), logger.String("path", path))
		}
		res.Checks = append(res.Checks, check)
		if check.Status == VisualFail {
			res.Failed++
		} else {
			res.Passed++
		}
	}
	res.Total = len(res.Checks)
	res.Value = math.Round(float64(res.Passed)/float64(res.Total)*10000) / 100
	return res, nil
}

func (v *Visual) compare(path, current string) (VisualCheck, error) {
	check := VisualCheck{Reference: path}

	reference, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) || (err == nil && v.update):
		if err := os.WriteFile(path, []byte(current), 0o644); err != nil {
			return check, fmt.Errorf("не удалось сохранить эталон: %w", err)
		}
		check.Status = VisualReference
		return check, nil
	case err != nil:
		return check, fmt.Errorf("не удалось прочитать эталон: %w", err)
	}

	check.Mismatch = MismatchPercent(string(reference), current)
	if check.Mismatch <= v.threshold {
		check.Status = VisualPass
	} else {
		check.Status = VisualFail
	}
	return check, nil
}

// MismatchPercent - расстояние Левенштейна между снимками в процентах от длины большего
func MismatchPercent(reference, current string) float64 {
	if reference == current {
		return 0
	}
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(reference, current)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	dist := dmp.DiffLevenshtein(diffs)

	longest := max(utf8.RuneCountInString(reference), utf8.RuneCountInString(current))
	return math.Round(float64(dist)/float64(longest)*10000) / 100
}

func snapshotKey(pageURL string) string {
	sum := sha256.Sum256([]byte(pageURL))
	return hex.EncodeToString(sum[:8])
}

// layoutSnapshot - дерево элементов с id и классами, по строке на элемент
func layoutSnapshot(doc *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node, depth int)
	walk = func(n *html.Node, depth int) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			}
			b.WriteString(strings.Repeat("  ", depth))
			b.WriteString(n.Data)
			if id := helpers.GetAttr(n, "id"); id != "" {
				b.WriteString("#" + id)
			}
			for _, cls := range strings.Fields(helpers.GetAttr(n, "class")) {
				b.WriteString("." + cls)
			}
			b.WriteByte('\n')
			depth++
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, depth)
		}
	}
	walk(doc, 0)
	return b.String()
}

// contentSnapshot - видимый текст страницы, по строке на текстовый узел
func contentSnapshot(doc *html.Node) string {
	var b strings.Builder
	helpers.Walk(doc, func(n *html.Node) {
		if n.Type != html.TextNode || n.Parent == nil {
			return
		}
		switch n.Parent.Data {
		case "script", "style", "noscript", "template", "title":
			return
		}
		if line := strings.Join(strings.Fields(n.Data), " "); line != "" {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	})
	return b.String()
}
