package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"siteprobe/internal/suite"
)

const (
	ruleWidth   = 65
	maxFailures = 10
)

// palette - цвета вывода; при colored=false все функции отдают текст без ESC-кодов
type palette struct {
	green, yellow, red, cyan, white, gray func(a ...any) string
}

func newPalette(colored bool) palette {
	mk := func(attr color.Attribute) func(a ...any) string {
		c := color.New(attr)
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	return palette{
		green:  mk(color.FgGreen),
		yellow: mk(color.FgYellow),
		red:    mk(color.FgRed),
		cyan:   mk(color.FgCyan),
		white:  mk(color.FgWhite),
		gray:   mk(color.FgHiBlack),
	}
}

// Print - консольная сводка отчета
func (r *Report) Print(w io.Writer, colored bool) {
	p := newPalette(colored)

	fmt.Fprintln(w, p.cyan("\n🔍 РЕЗУЛЬТАТ АУДИТА"), r.Site)
	fmt.Fprintln(w, strings.Repeat("─", ruleWidth))
	fmt.Fprintf(w, "🆔 Прогон: %s\n", p.white(r.ID))
	fmt.Fprintf(w, "🕒 Начало: %s | Длительность: %s мс\n",
		p.white(r.StartedAt.Format("2006-01-02 15:04:05")), p.white(strconv.FormatInt(r.DurationMs, 10)))
	fmt.Fprintf(w, "🌐 Страниц: %s\n", p.white(strconv.Itoa(r.URLCount)))
	if r.OverallScore != nil {
		fmt.Fprintf(w, "⭐ Общая оценка: %s\n", p.scoreText(*r.OverallScore))
	}

	fmt.Fprintln(w, "\n"+p.cyan("🧪 НАБОРЫ"))
	if len(r.Suites) == 0 {
		fmt.Fprintln(w, "  Наборы не запускались")
	}
	for _, name := range r.Suites {
		s := r.Summary[name]
		line := fmt.Sprintf("  %-14s запусков: %s, ошибок: %s", name, p.white(strconv.Itoa(s.Runs)), p.warnCount(s.Failures))
		if s.Mean != nil {
			line += fmt.Sprintf(", оценка: %s %s", p.scoreText(*s.Mean), p.gray(fmt.Sprintf("(%.0f–%.0f)", *s.Min, *s.Max)))
		}
		fmt.Fprintln(w, line)
	}

	if r.URLCount > 0 && len(r.Suites) > 0 {
		fmt.Fprintln(w, "\n"+p.cyan("📄 СТРАНИЦЫ"))
		for i, u := range r.URLs {
			var cells []string
			for _, name := range r.Suites {
				cells = append(cells, fmt.Sprintf("%s %s", shortName(name), p.cellText(r.Results[name], i)))
			}
			fmt.Fprintf(w, "  %s\n    %s\n", ellipsis(u, 60), strings.Join(cells, " | "))
		}
	}

	if failures := r.Failures(); len(failures) > 0 {
		fmt.Fprintln(w, "\n"+p.red("❌ ОШИБКИ НАБОРОВ:"))
		for i, f := range failures {
			if i >= maxFailures {
				fmt.Fprintln(w, p.gray(fmt.Sprintf("  (+%d)", len(failures)-maxFailures)))
				break
			}
			fmt.Fprintf(w, "  • [%s] %s: %s\n", f.Suite, ellipsis(f.URL, 40), ellipsis(f.Error, 80))
		}
	} else if r.URLCount > 0 {
		fmt.Fprintln(w, "\n"+p.green("✅ ВСЕ НАБОРЫ ОТРАБОТАЛИ"))
	}

	if r.URLCount == 0 {
		fmt.Fprintln(w, "\n"+p.yellow("ℹ️  Страницы для проверки не найдены"))
	}

	fmt.Fprintln(w, "\n"+strings.Repeat("─", ruleWidth))
}

func (p palette) scoreText(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	switch {
	case v >= 90:
		return p.green(s)
	case v >= 50:
		return p.yellow(s)
	default:
		return p.red(s)
	}
}

func (p palette) cellText(cells []suite.Result, i int) string {
	if i >= len(cells) {
		return p.gray("—")
	}
	c := cells[i]
	if c.Failed() {
		return p.red("ERR")
	}
	if v, ok := c.Score(); ok {
		return p.scoreText(v)
	}
	return p.green("ok")
}

func (p palette) warnCount(n int) string {
	if n == 0 {
		return p.green("0")
	}
	return p.red(strconv.Itoa(n))
}

func shortName(n suite.Name) string {
	switch n {
	case suite.Accessibility:
		return "a11y"
	case suite.Performance:
		return "perf"
	case suite.Language:
		return "lang"
	}
	return string(n)
}

func ellipsis(s string, maximum int) string {
	r := []rune(s)
	if len(r) <= maximum {
		return s
	}
	return string(r[:maximum-3]) + "..."
}
