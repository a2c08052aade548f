package audit

import (
	"bytes"
	"context"
	"fmt"

	"siteprobe/internal/helpers"
	"siteprobe/internal/htmlparser"
	"siteprobe/internal/logger"
	"siteprobe/internal/suite"
)

// веса проверок SEO, в сумме 100
const (
	weightTitle       = 15
	weightDescription = 15
	weightSingleH1    = 10
	weightHeadings    = 10
	weightImagesAlt   = 10
	weightSitemap     = 20
	weightRobots      = 20
)

// minWords - порог "тонкого" контента, на оценку не влияет
const minWords = 300

// SEOMeta - мета-теги страницы
type SEOMeta struct {
	Title             string            `json:"title"`
	TitleLength       int               `json:"titleLength"`
	Description       string            `json:"description"`
	DescriptionLength int               `json:"descriptionLength"`
	HasViewport       bool              `json:"hasViewport"`
	HasCanonical      bool              `json:"hasCanonical"`
	OpenGraph         map[string]string `json:"openGraph,omitempty"`
	Twitter           map[string]string `json:"twitter,omitempty"`
}

// SEOHeadings - заголовки страницы
type SEOHeadings struct {
	Counts map[string]int      `json:"counts"`
	H1     []string            `json:"h1,omitempty"`
	Valid  bool                `json:"valid"`
	Texts  map[string][]string `json:"-"`
}

// StructuredData - разметка schema.org
type StructuredData struct {
	JSONLDBlocks   int      `json:"jsonLdBlocks"`
	Types          []string `json:"types,omitempty"`
	UnknownTypes   []string `json:"unknownTypes,omitempty"`
	Errors         []string `json:"errors,omitempty"`
	MicrodataTypes []string `json:"microdataTypes,omitempty"`
	RDFa           []string `json:"rdfa,omitempty"`
}

// SEOResult - результат набора seo
type SEOResult struct {
	Value           float64               `json:"score"`
	StatusCode      int                   `json:"statusCode"`
	ResponseTimeMs  int64                 `json:"responseTimeMs"`
	WordCount       int                   `json:"wordCount"`
	Meta            SEOMeta               `json:"metaTags"`
	Headings        SEOHeadings           `json:"headings"`
	Links           htmlparser.LinkStats  `json:"links"`
	Images          htmlparser.ImageStats `json:"images"`
	StructuredData  StructuredData        `json:"structuredData"`
	HasSitemap      bool                  `json:"hasSitemap"`
	HasRobotsTxt    bool                  `json:"hasRobotsTxt"`
	Recommendations []string              `json:"recommendations"`
}

// Score - взвешенная оценка
func (r *SEOResult) Score() (float64, bool) { return r.Value, true }

// SEO - набор SEO-проверок
type SEO struct {
	fetcher *Fetcher
	schema  *SchemaLoader
	log     logger.Logger
}

// NewSEO - создает набор seo
func NewSEO(f *Fetcher, schema *SchemaLoader, log logger.Logger) *SEO {
	return &SEO{fetcher: f, schema: schema, log: log}
}

// Run - реализация suite.Func
func (s *SEO) Run(ctx context.Context, pageURL string) (suite.Payload, error) {
	s.log.Info("SEO-анализ", logger.String("url", pageURL))

	root, err := helpers.SiteRoot(pageURL)
	if err != nil {
		return nil, fmt.Errorf("некорректный URL: %w", err)
	}

	page, err := s.fetcher.FetchOK(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	p, err := htmlparser.Parse(bytes.NewReader(page.Body), pageURL)
	if err != nil {
		return nil, err
	}

	client := s.fetcher.Client()
	hasSitemap := helpers.CheckResourceExists(ctx, client, root+"/sitemap.xml")
	hasRobots := helpers.CheckResourceExists(ctx, client, root+"/robots.txt")

	res := BuildSEO(p, s.schema.Types(ctx), hasSitemap, hasRobots)
	res.StatusCode = page.StatusCode
	res.ResponseTimeMs = page.ResponseTimeMs
	return res, nil
}

// BuildSEO - собирает результат и оценку по фактам страницы
func BuildSEO(p *htmlparser.Page, types SchemaTypes, hasSitemap, hasRobots bool) *SEOResult {
	res := &SEOResult{
		Meta: SEOMeta{
			Title:             p.Title,
			TitleLength:       len([]rune(p.Title)),
			Description:       p.Description,
			DescriptionLength: len([]rune(p.Description)),
			HasViewport:       p.HasViewport,
			HasCanonical:      p.HasCanonical,
			OpenGraph:         p.OG,
			Twitter:           p.Twitter,
		},
		Headings: SEOHeadings{
			Counts: p.HeadingCounts,
			H1:     p.HeadingTexts["h1"],
			Valid:  p.HeadingsValid(),
			Texts:  p.HeadingTexts,
		},
		WordCount:      p.WordCount,
		Links:          p.Links,
		Images:         p.Images,
		StructuredData: structuredData(p, types),
		HasSitemap:     hasSitemap,
		HasRobotsTxt:   hasRobots,
	}
	res.Value, res.Recommendations = seoScore(res)
	return res
}

func structuredData(p *htmlparser.Page, types SchemaTypes) StructuredData {
	sd := StructuredData{
		JSONLDBlocks:   len(p.JSONLD),
		Errors:         p.JSONLDErrors,
		MicrodataTypes: p.MicrodataTypes,
		RDFa:           p.RDFaVocabularies,
	}
	seen := make(map[string]bool)
	for _, block := range p.JSONLD {
		for _, t := range helpers.ExtractTypes(block["@type"]) {
			if seen[t] {
				continue
			}
			seen[t] = true
			sd.Types = append(sd.Types, t)
			if !types[t] {
				sd.UnknownTypes = append(sd.UnknownTypes, t)
			}
		}
	}
	for _, t := range p.MicrodataTypes {
		if !seen[t] && !types[t] {
			seen[t] = true
			sd.UnknownTypes = append(sd.UnknownTypes, t)
		}
	}
	return sd
}

func seoScore(r *SEOResult) (float64, []string) {
	score := 0
	recs := []string{}

	if r.Meta.Title != "" {
		score += weightTitle
	} else {
		recs = append(recs, "Добавьте <title>")
	}
	if r.Meta.Description != "" {
		score += weightDescription
	} else {
		recs = append(recs, "Добавьте meta description")
	}
	if r.Headings.Counts["h1"] == 1 {
		score += weightSingleH1
	} else {
		recs = append(recs, "На странице должен быть ровно один <h1>")
	}
	if r.Headings.Valid {
		score += weightHeadings
	} else {
		recs = append(recs, "Исправьте иерархию заголовков")
	}
	if r.Images.WithoutAlt == 0 {
		score += weightImagesAlt
	} else {
		recs = append(recs, fmt.Sprintf("Добавьте alt для %d изображений", r.Images.WithoutAlt))
	}
	if r.HasSitemap {
		score += weightSitemap
	} else {
		recs = append(recs, "Добавьте sitemap.xml")
	}
	if r.HasRobotsTxt {
		score += weightRobots
	} else {
		recs = append(recs, "Добавьте robots.txt")
	}

	// рекомендации без влияния на оценку
	if !r.Meta.HasViewport {
		recs = append(recs, "Добавьте meta viewport")
	}
	if !r.Meta.HasCanonical {
		recs = append(recs, "Добавьте canonical")
	}
	if len(r.StructuredData.UnknownTypes) > 0 {
		recs = append(recs, fmt.Sprintf("Неизвестные типы schema.org: %v", r.StructuredData.UnknownTypes))
	}
	if r.WordCount < minWords {
		recs = append(recs, fmt.Sprintf("Мало текста на странице: %d слов", r.WordCount))
	}
	if r.Links.InsecureBlank > 0 {
		recs = append(recs, "Добавьте rel=\"noopener\" ссылкам с target=\"_blank\"")
	}
	return float64(score), recs
}
