// Package report - сводный отчет прогона и его консольное представление.
package report

import (
	"encoding/json"
	"math"
	"sort"
	"time"

	"siteprobe/internal/orchestrator"
	"siteprobe/internal/suite"
)

// Run - входные данные агрегации; время и идентификатор задает вызывающий
type Run struct {
	ID         string
	Site       string
	StartedAt  time.Time
	FinishedAt time.Time
	URLs       []string
	Requested  []string
	Executed   []suite.Name
	Results    orchestrator.RunResults
}

// Summary - сводка по набору
type Summary struct {
	Runs      int      `json:"runs"`
	Successes int      `json:"successes"`
	Failures  int      `json:"failures"`
	Scored    int      `json:"scored"`
	Mean      *float64 `json:"mean,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
}

// Report - отчет прогона; после Aggregate не изменяется
type Report struct {
	ID            string                        `json:"id"`
	Site          string                        `json:"site"`
	StartedAt     time.Time                     `json:"startedAt"`
	FinishedAt    time.Time                     `json:"finishedAt"`
	DurationMs    int64                         `json:"durationMs"`
	URLCount      int                           `json:"urlCount"`
	URLs          []string                      `json:"urls"`
	Requested     []string                      `json:"requestedSuites"`
	Suites        []suite.Name                  `json:"suites"`
	OverallScore  *float64                      `json:"overallScore,omitempty"`
	TotalFailures int                           `json:"totalFailures"`
	Summary       map[suite.Name]Summary        `json:"summary"`
	Results       map[suite.Name][]suite.Result `json:"results"`
}

// Aggregate - собирает отчет. Чистая функция: одинаковый вход дает одинаковый отчет.
// Срезы ячеек копируются, payload наборов разделяются с вызывающим и не должны меняться.
func Aggregate(run Run) *Report {
	rep := &Report{
		ID:         run.ID,
		Site:       run.Site,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		DurationMs: run.FinishedAt.Sub(run.StartedAt).Milliseconds(),
		URLCount:   len(run.URLs),
		URLs:       append([]string{}, run.URLs...),
		Requested:  append([]string{}, run.Requested...),
		Suites:     executed(run),
		Summary:    make(map[suite.Name]Summary, len(run.Results)),
		Results:    make(map[suite.Name][]suite.Result, len(run.Results)),
	}

	var means []float64
	for _, name := range rep.Suites {
		cells := append([]suite.Result{}, run.Results[name]...)
		rep.Results[name] = cells

		sum := summarize(cells)
		rep.Summary[name] = sum
		rep.TotalFailures += sum.Failures
		if sum.Mean != nil {
			means = append(means, *sum.Mean)
		}
	}
	if len(means) > 0 {
		rep.OverallScore = mean(means)
	}
	return rep
}

// executed - наборы отчета в порядке Executed (порядок реестра). Наборы, которые
// есть только в результатах, идут следом в порядке Known, затем по имени.
func executed(run Run) []suite.Name {
	seen := make(map[suite.Name]bool, len(run.Executed)+len(run.Results))
	out := make([]suite.Name, 0, len(run.Executed)+len(run.Results))
	for _, n := range run.Executed {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	for _, n := range suite.Known {
		if _, ok := run.Results[n]; ok && !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	var rest []suite.Name
	for n := range run.Results {
		if !seen[n] {
			rest = append(rest, n)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	return append(out, rest...)
}

func summarize(cells []suite.Result) Summary {
	s := Summary{Runs: len(cells)}
	var scores []float64
	for _, c := range cells {
		if c.Failed() {
			s.Failures++
			continue
		}
		s.Successes++
		if v, ok := c.Score(); ok {
			scores = append(scores, v)
		}
	}
	s.Scored = len(scores)
	if len(scores) == 0 {
		return s
	}
	lo, hi := scores[0], scores[0]
	for _, v := range scores[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	s.Mean = mean(scores)
	s.Min = &lo
	s.Max = &hi
	return s
}

func mean(values []float64) *float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	m := math.Round(total/float64(len(values))*100) / 100
	return &m
}

// JSON - отчет в виде JSON с отступами
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Failures - ячейки с ошибками в порядке наборов и страниц
func (r *Report) Failures() []Failure {
	var out []Failure
	for _, name := range r.Suites {
		for _, c := range r.Results[name] {
			if c.Failed() {
				out = append(out, Failure{Suite: name, URL: c.URL, Error: c.Error})
			}
		}
	}
	return out
}

// Failure - ячейка с ошибкой
type Failure struct {
	Suite suite.Name
	URL   string
	Error string
}
