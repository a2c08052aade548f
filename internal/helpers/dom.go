package helpers

import (
	"strings"

	"golang.org/x/net/html"
)

// Walk - обходит дерево в порядке документа
func Walk(n *html.Node, visit func(*html.Node)) {
	visit(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		Walk(c, visit)
	}
}

// FindFirst - первый элемент с заданным тегом
func FindFirst(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := FindFirst(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// GetText - функция получения текстового содержимого
func GetText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(GetText(c))
	}
	return sb.String()
}

// VisibleText - текст без содержимого script, style, noscript и template
func VisibleText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			}
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// CollectText - функция сбора текстового содержимого
func CollectText(n *html.Node) []string {
	if n.Type == html.TextNode {
		return []string{n.Data}
	}
	var result []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		result = append(result, CollectText(c)...)
	}
	return result
}

// CollectLabelFor - функция сбора тегов label for=
func CollectLabelFor(n *html.Node, m map[string]bool) {
	if n.Type == html.ElementNode && n.Data == "label" {
		if forAttr, exists := GetAttrExists(n, "for"); exists && forAttr != "" {
			m[forAttr] = true
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		CollectLabelFor(c, m)
	}
}

// CollectIDs - все значения атрибута id в документе
func CollectIDs(n *html.Node, m map[string]bool) {
	if n.Type == html.ElementNode {
		if id := GetAttr(n, "id"); id != "" {
			m[id] = true
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		CollectIDs(c, m)
	}
}

// GetAttrExists - функция проверки наличия атрибута у DOM-элемента
func GetAttrExists(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}

// GetAttr - функция получения атрибута и его значения у DOM-элемента
func GetAttr(n *html.Node, key string) string {
	val, _ := GetAttrExists(n, key)
	return val
}

// HasAttr - проверяет наличие атрибута у DOM элемента
func HasAttr(n *html.Node, key string) bool {
	_, exists := GetAttrExists(n, key)
	return exists
}

// GetMetaAttrsFull - функция получения meta-элементов документа
func GetMetaAttrsFull(n *html.Node) (name, prop, content string) {
	for _, attr := range n.Attr {
		switch attr.Key {
		case "name":
			name = attr.Val
		case "property":
			prop = attr.Val
		case "content":
			content = attr.Val
		}
	}
	return
}

// HasAncestor - есть ли среди предков элемент с тегом
func HasAncestor(n *html.Node, tag string) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == tag {
			return true
		}
	}
	return false
}

// ExtractTypes - функция извлечения типов
func ExtractTypes(v any) []string {
	var types []string
	switch val := v.(type) {
	case string:
		types = append(types, val)
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok {
				types = append(types, s)
			}
		}
	}
	return types
}
