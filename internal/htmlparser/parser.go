// Package htmlparser - разбор DOM страницы в набор фактов для SEO и доступности.
package htmlparser

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"siteprobe/internal/helpers"

	"golang.org/x/net/html"
)

// Parse - разбирает HTML и собирает факты о странице
func Parse(body io.Reader, rawURL string) (*Page, error) {
	doc, err := html.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга HTML: %w", err)
	}
	return Analyze(doc, rawURL), nil
}

// Analyze - собирает факты по уже разобранному документу
func Analyze(doc *html.Node, rawURL string) *Page {
	p := newPage(rawURL)
	base, err := url.Parse(rawURL)
	if err == nil {
		p.Host = base.Host
	}

	labelForMap := make(map[string]bool)
	helpers.CollectLabelFor(doc, labelForMap)
	ids := make(map[string]bool)
	helpers.CollectIDs(doc, ids)

	w := &walker{page: p, base: base, labelFor: labelForMap, ids: ids}
	w.analyzeNode(doc)
	if body := helpers.FindFirst(doc, "body"); body != nil {
		p.WordCount = len(strings.Fields(helpers.VisibleText(body)))
	}
	return p
}

type walker struct {
	page     *Page
	base     *url.URL
	labelFor map[string]bool
	ids      map[string]bool
}

// analyzeNode - функция для анализа DOM элемента (ноды)
func (w *walker) analyzeNode(n *html.Node) {
	if n.Type == html.ElementNode {
		w.processElement(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.analyzeNode(c)
	}
}

func (w *walker) processElement(n *html.Node) {
	r := w.page
	tag := n.Data

	switch tag {
	case "html":
		r.HTMLLang = strings.TrimSpace(helpers.GetAttr(n, "lang"))
	case "meta":
		w.handleMeta(n)
	case "title":
		if r.Title == "" {
			r.Title = strings.TrimSpace(helpers.GetText(n))
		}
	case "link":
		if strings.EqualFold(helpers.GetAttr(n, "rel"), "canonical") {
			r.HasCanonical = true
		}
	case "script":
		if strings.EqualFold(helpers.GetAttr(n, "type"), "application/ld+json") {
			w.handleJSONLD(n)
		}
	case "header":
		r.HasHeader = true
	case "nav":
		r.HasNav = true
	case "main":
		r.HasMain = true
	case "footer":
		r.HasFooter = true
	case "img":
		w.handleImage(n)
	case "button":
		if helpers.GetAttr(n, "type") == "" {
			r.InvalidButtons++
			r.issue("button-type", "<button> без атрибута type")
		}
	case "a":
		w.handleLink(n)
	case "form":
		w.handleForm(n)
	case "input", "textarea", "select":
		w.handleInput(n)
	}

	if helpers.HasAttr(n, "onclick") && !helpers.HasAttr(n, "tabindex") && !isInteractive(tag) {
		r.issue("click-events-have-key-events", fmt.Sprintf("<%s> с onclick должен иметь tabindex=\"0\" для клавиатурной навигации", tag))
	}

	for _, attr := range n.Attr {
		switch attr.Key {
		case "aria-label":
			r.AriaLabels++
		case "aria-labelledby":
			r.AriaLabelledBy++
			for _, targetID := range strings.Fields(attr.Val) {
				if !w.ids[targetID] {
					r.issue("aria-valid-attr-value", fmt.Sprintf("aria-labelledby='%s' ссылается на несуществующий id", targetID))
				}
			}
		case "role":
			r.Roles++
			if !isValidRoleForElement(tag, attr.Val) {
				r.issue("aria-allowed-role", fmt.Sprintf("Недопустимая роль '%s' для <%s>", attr.Val, tag))
			}
			for _, reqAttr := range requiredAriaAttrs(attr.Val) {
				if !helpers.HasAttr(n, reqAttr) {
					r.issue("aria-required-attr", fmt.Sprintf("Роль '%s' требует атрибут %s", attr.Val, reqAttr))
				}
			}
		}
	}

	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		r.HeadingCounts[tag]++
		if text := strings.TrimSpace(helpers.GetText(n)); text != "" {
			r.HeadingTexts[tag] = append(r.HeadingTexts[tag], text)
		}
		r.HeadingsSequence = append(r.HeadingsSequence, tag)
	}

	if helpers.HasAttr(n, "itemscope") {
		r.HasMicrodata = true
		if itemType := helpers.GetAttr(n, "itemtype"); itemType != "" {
			r.MicrodataTypes = append(r.MicrodataTypes, extractSchemaTypes(itemType)...)
		}
	}
	if vocab := helpers.GetAttr(n, "vocab"); vocab != "" {
		r.HasRDFa = true
		r.RDFaVocabularies = append(r.RDFaVocabularies, vocab)
	} else if helpers.HasAttr(n, "typeof") {
		r.HasRDFa = true
	}
}

func (w *walker) handleMeta(n *html.Node) {
	r := w.page
	name, prop, content := helpers.GetMetaAttrsFull(n)
	key := name
	if key == "" {
		key = prop
	}
	if key != "" {
		r.Meta[key] = content
	}
	if strings.HasPrefix(prop, "og:") {
		r.OG[strings.TrimPrefix(prop, "og:")] = content
	}
	if strings.HasPrefix(name, "twitter:") {
		r.Twitter[strings.TrimPrefix(name, "twitter:")] = content
	}
	if (name == "description" || prop == "description") && r.Description == "" {
		r.Description = strings.TrimSpace(content)
	}
	if name == "viewport" {
		r.HasViewport = true
	}
}

func (w *walker) handleJSONLD(n *html.Node) {
	r := w.page
	trimmed := strings.TrimSpace(strings.Join(helpers.CollectText(n), ""))
	if trimmed == "" {
		r.JSONLDErrors = append(r.JSONLDErrors, "Пустой JSON-LD блок")
		return
	}

	var raw any
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		r.JSONLDErrors = append(r.JSONLDErrors, "Некорректный JSON: "+err.Error())
		return
	}

	var blocks []map[string]any
	switch v := raw.(type) {
	case map[string]any:
		blocks = append(blocks, v)
	case []any:
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				blocks = append(blocks, m)
			}
		}
	}

	for _, data := range blocks {
		if ctx, ok := data["@context"]; !ok {
			r.JSONLDErrors = append(r.JSONLDErrors, "Отсутствует @context")
		} else if !isSchemaContext(ctx) {
			r.JSONLDErrors = append(r.JSONLDErrors, "@context должен быть 'https://schema.org'")
		}
		if _, ok := data["@type"]; !ok {
			r.JSONLDErrors = append(r.JSONLDErrors, "Отсутствует @type")
		}
		r.JSONLD = append(r.JSONLD, data)
	}
}

func isSchemaContext(v any) bool {
	ctxStr := ""
	switch c := v.(type) {
	case string:
		ctxStr = c
	case []any:
		if len(c) > 0 {
			ctxStr, _ = c[0].(string)
		}
	}
	ctxStr = strings.TrimSuffix(ctxStr, "/")
	return ctxStr == "https://schema.org" || ctxStr == "http://schema.org"
}

func (w *walker) handleImage(n *html.Node) {
	r := w.page
	r.Images.Total++
	alt, hasAlt := helpers.GetAttrExists(n, "alt")

	switch {
	case !hasAlt:
		r.Images.WithoutAlt++
		r.issue("image-alt", "Изображение без alt-атрибута: "+helpers.GetAttr(n, "src"))
	case alt == "":
		r.Images.EmptyAlt++
		r.Images.WithAlt++
	default:
		r.Images.WithAlt++
		lower := strings.ToLower(alt)
		if strings.Contains(lower, "изображение") || strings.Contains(lower, "image") || strings.Contains(lower, "img") {
			r.Images.UselessAlt++
			r.issue("image-redundant-alt", fmt.Sprintf("Бесполезный alt: '%s'", alt))
		}
	}
}

func (w *walker) handleLink(n *html.Node) {
	r := w.page
	href, hasHref := helpers.GetAttrExists(n, "href")
	target := helpers.GetAttr(n, "target")
	rel := strings.Fields(strings.ToLower(helpers.GetAttr(n, "rel")))

	if !hasHref || strings.TrimSpace(href) == "" {
		r.Links.Broken++
	} else {
		switch {
		case strings.HasPrefix(href, "/"), strings.HasPrefix(href, "."), strings.HasPrefix(href, "#"):
			r.Links.Internal++
		case strings.HasPrefix(href, "http"):
			r.Links.External++
		}
		if abs := resolveURL(w.base, href); abs != "" {
			r.Links.All = append(r.Links.All, abs)
		}
	}

	if strings.TrimSpace(helpers.GetText(n)) == "" && !helpers.HasAttr(n, "aria-label") &&
		!helpers.HasAttr(n, "aria-labelledby") && !hasImageWithAlt(n) {
		r.Links.WithoutText++
		r.issue("link-name", "Ссылка без доступного текста: "+href)
	}

	if target == "_blank" && (!contains(rel, "noopener") || !contains(rel, "noreferrer")) {
		r.Links.InsecureBlank++
	}
}

func (w *walker) handleForm(n *html.Node) {
	r := w.page
	r.FormCount++
	action := helpers.GetAttr(n, "action")
	if strings.HasPrefix(r.URL, "https://") && strings.HasPrefix(action, "http://") {
		r.InsecureFormActions++
	}
	if strings.EqualFold(helpers.GetAttr(n, "method"), "get") {
		r.FormsWithGetMethod++
	}
}

func (w *walker) handleInput(n *html.Node) {
	r := w.page
	switch strings.ToLower(helpers.GetAttr(n, "type")) {
	case "hidden", "submit", "button", "reset", "image":
		return
	}

	if name := helpers.GetAttr(n, "name"); name == "" {
		r.InputWithoutName++
	}

	id := helpers.GetAttr(n, "id")
	hasLabel := (id != "" && w.labelFor[id]) || helpers.HasAncestor(n, "label")
	if hasLabel {
		return
	}
	r.InputWithoutLabel++
	if helpers.HasAttr(n, "required") {
		r.RequiredWithoutLabel++
	}
	if !helpers.HasAttr(n, "aria-label") && !helpers.HasAttr(n, "aria-labelledby") {
		r.issue("label", fmt.Sprintf("Поле <%s> не имеет доступной метки (ни <label>, ни aria-label)", n.Data))
	}
}

func hasImageWithAlt(n *html.Node) bool {
	found := false
	helpers.Walk(n, func(c *html.Node) {
		if c.Type == html.ElementNode && c.Data == "img" && strings.TrimSpace(helpers.GetAttr(c, "alt")) != "" {
			found = true
		}
	})
	return found
}

func extractSchemaTypes(itemtype string) []string {
	var types []string
	for _, part := range strings.Fields(itemtype) {
		if strings.Contains(part, "schema.org/") {
			if i := strings.LastIndex(part, "/"); i != -1 {
				types = append(types, part[i+1:])
			}
		}
	}
	return types
}

func resolveURL(base *url.URL, href string) string {
	if base == nil || href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	abs, err := base.Parse(href)
	if err != nil {
		return ""
	}
	return abs.String()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func isInteractive(tag string) bool {
	switch tag {
	case "a", "button", "input", "select", "textarea", "summary", "details":
		return true
	}
	return false
}

func isValidRoleForElement(tag, role string) bool {
	switch role {
	case "presentation", "none":
		return true
	case "heading":
		return tag == "h1" || tag == "h2" || tag == "h3" || tag == "h4" || tag == "h5" || tag == "h6" || tag == "div" || tag == "span"
	case "checkbox", "radio":
		return tag == "input" || tag == "div" || tag == "span" || tag == "button"
	case "list":
		return tag == "ul" || tag == "ol" || tag == "div"
	case "listitem":
		return tag == "li" || tag == "div"
	case "img":
		return tag == "img" || tag == "svg" || tag == "div" || tag == "span"
	}
	return true
}

func requiredAriaAttrs(role string) []string {
	switch role {
	case "checkbox", "radio":
		return []string{"aria-checked"}
	case "slider":
		return []string{"aria-valuenow", "aria-valuemin", "aria-valuemax"}
	case "spinbutton", "progressbar":
		return []string{"aria-valuenow"}
	default:
		return nil
	}
}
