package discovery

import (
	"context"
	"fmt"

	"siteprobe/internal/logger"
)

// Strategy - один способ найти страницы сайта
type Strategy interface {
	Name() string
	Discover(ctx context.Context, baseURL string) ([]string, error)
}

// URLSet - множество адресов с сохранением порядка добавления
type URLSet struct {
	seen  map[string]bool
	order []string
}

// NewURLSet - пустое множество
func NewURLSet() *URLSet {
	return &URLSet{seen: make(map[string]bool)}
}

// Add - добавляет адрес; повтор игнорируется. Сравнение строгое, без нормализации.
func (s *URLSet) Add(u string) bool {
	if s.seen[u] {
		return false
	}
	s.seen[u] = true
	s.order = append(s.order, u)
	return true
}

// Len - размер множества
func (s *URLSet) Len() int { return len(s.order) }

// Slice - копия адресов в порядке добавления
func (s *URLSet) Slice() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Collector - перебирает стратегии, пока одна не вернет непустой список
type Collector struct {
	strategies []Strategy
	log        logger.Logger
}

// NewCollector - стратегии пробуются в переданном порядке
func NewCollector(log logger.Logger, strategies ...Strategy) *Collector {
	if log == nil {
		log = logger.NewNop()
	}
	return &Collector{strategies: strategies, log: log}
}

// Collect - итоговый список страниц прогона. Никогда не возвращает ошибку:
// пустой список допустим и означает прогон без проверок.
func (c *Collector) Collect(ctx context.Context, baseURL string) []string {
	set := NewURLSet()
	for i, s := range c.strategies {
		urls, err := c.discover(ctx, s, baseURL)
		if err == nil && len(urls) > 0 {
			for _, u := range urls {
				set.Add(u)
			}
			c.log.Info("страницы найдены",
				logger.String("strategy", s.Name()),
				logger.Int("urls", set.Len()))
			return set.Slice()
		}

		fields := []logger.Field{logger.String("strategy", s.Name()), logger.String("site", baseURL)}
		if err != nil {
			fields = append(fields, logger.Error(err))
		}
		if i+1 < len(c.strategies) {
			fields = append(fields, logger.String("fallback", c.strategies[i+1].Name()))
		}
		c.log.Warn("поиск страниц деградировал", fields...)
	}
	return set.Slice()
}

func (c *Collector) discover(ctx context.Context, s Strategy, baseURL string) (urls []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			urls, err = nil, &panicError{value: r}
		}
	}()
	return s.Discover(ctx, baseURL)
}

type panicError struct{ value any }

func (e *panicError) Error() string { return fmt.Sprintf("паника в стратегии: %v", e.value) }
