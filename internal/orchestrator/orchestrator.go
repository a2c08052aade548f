// Package orchestrator - прогон выбранных наборов проверок по всем страницам.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"

	"siteprobe/internal/logger"
	"siteprobe/internal/suite"
)

// Suites - реестр, по которому идет прогон
type Suites interface {
	Names() []suite.Name
	Invoke(ctx context.Context, name suite.Name, pageURL string) suite.Result
}

// RunResults - результаты по наборам; внутри набора порядок страниц совпадает с порядком сбора
type RunResults map[suite.Name][]suite.Result

// Orchestrator - исполнитель матрицы страница x набор
type Orchestrator struct {
	suites      Suites
	concurrency int
	timeout     time.Duration
	progress    io.Writer
	log         logger.Logger
	now         func() time.Time
}

// Option - опция оркестратора
type Option func(*Orchestrator)

// WithConcurrency - число одновременно выполняемых ячеек
func WithConcurrency(n int) Option { return func(o *Orchestrator) { o.concurrency = n } }

// WithTimeout - ограничение времени одной ячейки; 0 - без ограничения
func WithTimeout(d time.Duration) Option { return func(o *Orchestrator) { o.timeout = d } }

// WithProgress - выводит прогресс-бар в w
func WithProgress(w io.Writer) Option { return func(o *Orchestrator) { o.progress = w } }

// WithLogger - логгер оркестратора
func WithLogger(l logger.Logger) Option { return func(o *Orchestrator) { o.log = l } }

// WithClock - источник времени для ячеек, завершенных оркестратором
func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

// New - создает оркестратор
func New(suites Suites, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		suites:      suites,
		concurrency: 1,
		log:         logger.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.concurrency < 1 {
		o.concurrency = 1
	}
	return o
}

// Executed - наборы, которые реально будут запущены: пересечение выбора с реестром
// в порядке реестра. Пустой выбор означает все наборы.
func Executed(registered, selected []suite.Name) []suite.Name {
	if len(selected) == 0 {
		return append([]suite.Name(nil), registered...)
	}
	want := make(map[suite.Name]bool, len(selected))
	for _, n := range selected {
		want[n] = true
	}
	out := make([]suite.Name, 0, len(selected))
	for _, n := range registered {
		if want[n] {
			out = append(out, n)
		}
	}
	return out
}

type cell struct {
	suite suite.Name
	index int
	url   string
}

// Run - запускает каждый выбранный набор для каждой страницы. Никогда не падает:
// ошибка, паника, таймаут или отмена дают ячейку с полем error.
func (o *Orchestrator) Run(ctx context.Context, urls []string, selected []suite.Name) RunResults {
	names := Executed(o.suites.Names(), selected)

	results := make(RunResults, len(names))
	for _, name := range names {
		results[name] = make([]suite.Result, len(urls))
	}
	total := len(urls) * len(names)
	if total == 0 {
		o.log.Info("нечего запускать", logger.Int("urls", len(urls)), logger.Int("suites", len(names)))
		return results
	}

	o.log.Info("запуск наборов",
		logger.Int("urls", len(urls)),
		logger.Strings("suites", suiteStrings(names)),
		logger.Int("concurrency", o.concurrency),
		logger.Duration("timeout", o.timeout))

	var bar *pb.ProgressBar
	if o.progress != nil {
		bar = pb.Simple.New(total).SetWriter(o.progress).Start()
	}

	cells := make(chan cell)
	var wg sync.WaitGroup
	for i := 0; i < o.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range cells {
				res := o.invoke(ctx, c)
				if res.Failed() {
					o.log.Warn("набор завершился с ошибкой",
						logger.String("suite", string(c.suite)),
						logger.String("url", c.url),
						logger.String("error", res.Error))
				}
				// каждая ячейка пишется в свою позицию
				results[c.suite][c.index] = res
				if bar != nil {
					bar.Increment()
				}
			}
		}()
	}

	for i, u := range urls {
		for _, name := range names {
			cells <- cell{suite: name, index: i, url: u}
		}
	}
	close(cells)
	wg.Wait()

	if bar != nil {
		bar.Finish()
	}
	return results
}

func (o *Orchestrator) invoke(ctx context.Context, c cell) suite.Result {
	if err := ctx.Err(); err != nil {
		return suite.Failure(c.url, o.now(), fmt.Errorf("прогон отменен: %w", err))
	}

	cellCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		cellCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	done := make(chan suite.Result, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				o.log.Error("паника в наборе",
					logger.String("suite", string(c.suite)),
					logger.String("url", c.url),
					logger.Any("panic", p))
				done <- suite.Failure(c.url, o.now(), fmt.Errorf("паника в наборе %s: %v", c.suite, p))
			}
		}()
		done <- o.suites.Invoke(cellCtx, c.suite, c.url)
	}()

	select {
	case res := <-done:
		return res
	case <-cellCtx.Done():
		if ctx.Err() != nil {
			return suite.Failure(c.url, o.now(), fmt.Errorf("прогон отменен: %w", ctx.Err()))
		}
		return suite.Failure(c.url, o.now(), fmt.Errorf("набор %s не уложился в %s: %w", c.suite, o.timeout, cellCtx.Err()))
	}
}

func suiteStrings(names []suite.Name) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out
}
