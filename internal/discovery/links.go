package discovery

import (
	"io"
	"net/url"
	"strings"

	"siteprobe/internal/helpers"

	"golang.org/x/net/html"
)

// ExtractLinks - абсолютные адреса ссылок <a href> того же origin, в порядке документа, без повторов
func ExtractLinks(body io.Reader, pageURL string) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(body)
	if err != nil {
		return nil, err
	}

	// <base href> меняет точку отсчета относительных ссылок
	if n := helpers.FindFirst(doc, "base"); n != nil {
		if href := helpers.GetAttr(n, "href"); href != "" {
			if b, err := base.Parse(href); err == nil {
				base = b
			}
		}
	}

	seen := make(map[string]bool)
	var links []string
	helpers.Walk(doc, func(n *html.Node) {
		if n.Type != html.ElementNode || n.Data != "a" {
			return
		}
		abs := resolveLink(base, helpers.GetAttr(n, "href"))
		if abs == nil || !sameOrigin(base, abs) {
			return
		}
		s := abs.String()
		if !seen[s] {
			seen[s] = true
			links = append(links, s)
		}
	})
	return links, nil
}

func resolveLink(base *url.URL, href string) *url.URL {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return nil
	}
	lower := strings.ToLower(href)
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return nil
		}
	}
	abs, err := base.Parse(href)
	if err != nil {
		return nil
	}
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return nil
	}
	abs.Fragment = ""
	abs.RawFragment = ""
	return abs
}

func sameOrigin(a, b *url.URL) bool {
	return strings.EqualFold(a.Scheme, b.Scheme) && strings.EqualFold(a.Host, b.Host)
}
