// Package suite - реестр наборов проверок и единый тип результата ячейки.
package suite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Func - набор проверок для одной страницы. Ошибка становится ячейкой с полем error.
type Func func(ctx context.Context, pageURL string) (Payload, error)

// Entry - запись реестра
type Entry struct {
	Name Name
	Run  Func
}

// Registry - неизменяемая таблица наборов, собранная при старте процесса
type Registry struct {
	entries []Entry
	index   map[Name]int
	now     func() time.Time
}

// Option - опция реестра
type Option func(*Registry)

// WithClock - подменяет источник времени для меток результатов
func WithClock(now func() time.Time) Option { return func(r *Registry) { r.now = now } }

// NewRegistry - собирает реестр в порядке объявления записей
func NewRegistry(entries []Entry, opts ...Option) (*Registry, error) {
	r := &Registry{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[Name]int, len(entries)),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, e := range entries {
		if !e.Name.IsKnown() {
			return nil, fmt.Errorf("реестр: %w", &UnknownSuiteError{Name: string(e.Name), Valid: Known})
		}
		if e.Run == nil {
			return nil, fmt.Errorf("реестр: у набора %q нет функции", e.Name)
		}
		if _, dup := r.index[e.Name]; dup {
			return nil, fmt.Errorf("реестр: набор %q зарегистрирован дважды", e.Name)
		}
		r.index[e.Name] = len(r.entries)
		r.entries = append(r.entries, e)
	}
	return r, nil
}

// Names - имена наборов в порядке приоритета
func (r *Registry) Names() []Name {
	names := make([]Name, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.Name
	}
	return names
}

// Select - проверяет выбор наборов. Пустой выбор означает все наборы.
// Результат упорядочен как реестр, повторы схлопываются.
func (r *Registry) Select(requested []string) ([]Name, error) {
	if len(requested) == 0 {
		return r.Names(), nil
	}
	chosen := make(map[Name]bool, len(requested))
	for _, raw := range requested {
		name := Name(strings.ToLower(strings.TrimSpace(raw)))
		if _, ok := r.index[name]; !ok {
			return nil, &UnknownSuiteError{Name: raw, Valid: r.Names()}
		}
		chosen[name] = true
	}
	selected := make([]Name, 0, len(chosen))
	for _, e := range r.entries {
		if chosen[e.Name] {
			selected = append(selected, e.Name)
		}
	}
	return selected, nil
}

// Invoke - запускает набор для страницы и всегда возвращает Result
func (r *Registry) Invoke(ctx context.Context, name Name, pageURL string) Result {
	i, ok := r.index[name]
	if !ok {
		return Failure(pageURL, r.now(), &UnknownSuiteError{Name: string(name), Valid: r.Names()})
	}
	payload, err := r.entries[i].Run(ctx, pageURL)
	if err != nil {
		return Failure(pageURL, r.now(), err)
	}
	if payload == nil {
		return Failure(pageURL, r.now(), errors.New("набор не вернул результат"))
	}
	return Success(pageURL, r.now(), payload)
}
