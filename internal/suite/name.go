package suite

import (
	"fmt"
	"strings"
)

// Name - имя набора проверок
type Name string

// Известные наборы проверок. Порядок объявления в реестре задает приоритет.
const (
	Accessibility Name = "accessibility"
	SEO           Name = "seo"
	Performance   Name = "performance"
	Visual        Name = "visual"
	Language      Name = "language"
	Headers       Name = "headers"
)

// Known - все наборы, которые может содержать реестр
var Known = []Name{Accessibility, SEO, Performance, Visual, Language, Headers}

// IsKnown - входит ли имя в закрытый список наборов
func (n Name) IsKnown() bool {
	for _, k := range Known {
		if k == n {
			return true
		}
	}
	return false
}

// UnknownSuiteError - запрошен набор, которого нет в реестре
type UnknownSuiteError struct {
	Name  string
	Valid []Name
}

func (e *UnknownSuiteError) Error() string {
	valid := make([]string, len(e.Valid))
	for i, n := range e.Valid {
		valid[i] = string(n)
	}
	return fmt.Sprintf("неизвестный набор проверок %q (доступны: %s)", e.Name, strings.Join(valid, ", "))
}
