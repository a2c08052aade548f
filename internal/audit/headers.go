package audit

import (
	"context"
	"math"
	"net/http"
	"strings"

	"siteprobe/internal/logger"
	"siteprobe/internal/suite"
)

// headerRule - ожидание к заголовку ответа
type headerRule struct {
	Name        string
	Required    bool
	Description string
	Valid       func(string) bool
}

func nonEmpty(v string) bool { return v != "" }

var securityHeaderRules = []headerRule{
	{"Strict-Transport-Security", true, "Браузер подключается только по HTTPS",
		func(v string) bool { return strings.Contains(v, "max-age=") }},
	{"Content-Security-Policy", true, "Ограничивает источники загружаемых ресурсов", nonEmpty},
	{"X-Content-Type-Options", true, "Запрещает MIME-sniffing",
		func(v string) bool { return v == "nosniff" }},
	{"X-Frame-Options", true, "Защищает от clickjacking",
		func(v string) bool {
			v = strings.ToUpper(v)
			return v == "DENY" || v == "SAMEORIGIN"
		}},
	{"X-XSS-Protection", false, "Включает XSS-фильтр браузера",
		func(v string) bool { return strings.HasPrefix(v, "1") }},
	{"Referrer-Policy", true, "Ограничивает передачу referrer", nonEmpty},
	{"Permissions-Policy", false, "Ограничивает доступные браузерные API", nonEmpty},
}

var cacheHeaderRules = []headerRule{
	{"Cache-Control", true, "Директивы кэширования", nonEmpty},
	{"ETag", false, "Валидатор для условных запросов", nonEmpty},
}

const (
	weightSecurity = 0.6
	weightCache    = 0.4
)

// HeaderCheck - проверенный заголовок
type HeaderCheck struct {
	Header      string `json:"header"`
	Value       string `json:"value,omitempty"`
	Description string `json:"description"`
}

// HeaderCategory - результат по категории заголовков
type HeaderCategory struct {
	Present []HeaderCheck `json:"present"`
	Missing []HeaderCheck `json:"missing"`
	Invalid []HeaderCheck `json:"invalid"`
}

// CategorySummary - счетчики категории
type CategorySummary struct {
	Total   int `json:"total"`
	Present int `json:"present"`
	Missing int `json:"missing"`
	Invalid int `json:"invalid"`
}

// OtherHeaders - справочные заголовки сервера
type OtherHeaders struct {
	Server      string `json:"server,omitempty"`
	PoweredBy   string `json:"poweredBy,omitempty"`
	Compression string `json:"compression,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

// HeadersResult - результат набора headers
type HeadersResult struct {
	Value      float64  `json:"score"`
	StatusCode int      `json:"statusCode"`
	Redirects  []string `json:"redirects,omitempty"`
	Summary    struct {
		Security CategorySummary `json:"security"`
		Cache    CategorySummary `json:"cache"`
	} `json:"summary"`
	Security HeaderCategory `json:"security"`
	Cache    HeaderCategory `json:"cache"`
	Other    OtherHeaders   `json:"other"`
}

// Score - взвешенная оценка безопасности и кэширования
func (r *HeadersResult) Score() (float64, bool) { return r.Value, true }

// Headers - набор проверок HTTP-заголовков
type Headers struct {
	fetcher *Fetcher
	log     logger.Logger
}

// NewHeaders - создает набор headers
func NewHeaders(f *Fetcher, log logger.Logger) *Headers {
	return &Headers{fetcher: f, log: log}
}

// Run - реализация suite.Func; принимается любой статус ответа
func (h *Headers) Run(ctx context.Context, pageURL string) (suite.Payload, error) {
	h.log.Info("проверка заголовков", logger.String("url", pageURL))

	page, err := h.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	res := CheckHeaders(page.Header)
	res.StatusCode = page.StatusCode
	res.Redirects = page.Redirects
	return res, nil
}

// CheckHeaders - оценивает набор заголовков ответа
func CheckHeaders(hdr http.Header) *HeadersResult {
	res := &HeadersResult{
		Security: checkCategory(hdr, securityHeaderRules),
		Cache:    checkCategory(hdr, cacheHeaderRules),
		Other: OtherHeaders{
			Server:      hdr.Get("Server"),
			PoweredBy:   hdr.Get("X-Powered-By"),
			Compression: hdr.Get("Content-Encoding"),
			ContentType: hdr.Get("Content-Type"),
		},
	}
	res.Summary.Security = summarize(res.Security, len(securityHeaderRules))
	res.Summary.Cache = summarize(res.Cache, len(cacheHeaderRules))

	sec := categoryScore(res.Security, len(securityHeaderRules))
	cache := categoryScore(res.Cache, len(cacheHeaderRules))
	res.Value = math.Round((sec*weightSecurity + cache*weightCache) * 100)
	return res
}

func checkCategory(hdr http.Header, rules []headerRule) HeaderCategory {
	cat := HeaderCategory{
		Present: []HeaderCheck{},
		Missing: []HeaderCheck{},
		Invalid: []HeaderCheck{},
	}
	for _, rule := range rules {
		value := hdr.Get(rule.Name)
		if value == "" {
			// необязательный заголовок не штрафуется
			if rule.Required {
				cat.Missing = append(cat.Missing, HeaderCheck{Header: rule.Name, Description: rule.Description})
			}
			continue
		}
		check := HeaderCheck{Header: rule.Name, Value: value, Description: rule.Description}
		if rule.Valid(value) {
			cat.Present = append(cat.Present, check)
		} else {
			cat.Invalid = append(cat.Invalid, check)
		}
	}
	return cat
}

func summarize(cat HeaderCategory, total int) CategorySummary {
	return CategorySummary{
		Total:   total,
		Present: len(cat.Present),
		Missing: len(cat.Missing),
		Invalid: len(cat.Invalid),
	}
}

func categoryScore(cat HeaderCategory, total int) float64 {
	present := float64(len(cat.Present)) / float64(total)
	penalty := float64(len(cat.Invalid)) / float64(total) * 0.5
	return math.Max(0, present-penalty)
}
