package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"siteprobe/internal/logger"
)

const (
	schemaOrgURL    = "https://schema.org/version/latest/schemaorg-all-http.jsonld"
	schemaCacheTTL  = 24 * time.Hour
	schemaTypeClass = "rdfs:Class"
)

// SchemaTypes - множество известных типов schema.org
type SchemaTypes map[string]bool

// SchemaLoader - ленивый загрузчик типов schema.org с файловым кэшем
type SchemaLoader struct {
	client    *http.Client
	source    string
	cacheFile string
	offline   bool
	log       logger.Logger

	mu    sync.Mutex
	types SchemaTypes
}

// NewSchemaLoader - создает загрузчик; offline=true сразу отдает фоллбэк-список
func NewSchemaLoader(client *http.Client, cacheFile string, offline bool, log logger.Logger) *SchemaLoader {
	return &SchemaLoader{
		client:    client,
		source:    schemaOrgURL,
		cacheFile: cacheFile,
		offline:   offline,
		log:       log,
	}
}

// Types - типы schema.org; загружаются один раз за процесс.
// Фоллбэк из-за отмены контекста вызывающего не запоминается.
func (l *SchemaLoader) Types(ctx context.Context) SchemaTypes {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.types != nil {
		return l.types
	}
	if l.offline {
		l.types = FallbackSchemaTypes()
		return l.types
	}

	types, err := l.load(ctx)
	if err != nil {
		l.log.Warn("используется фоллбэк-список типов schema.org", logger.Error(err))
		if ctx.Err() != nil {
			return FallbackSchemaTypes()
		}
		types = FallbackSchemaTypes()
	}
	l.types = types
	return l.types
}

func (l *SchemaLoader) load(ctx context.Context) (SchemaTypes, error) {
	if types, ok := l.readCache(); ok {
		return types, nil
	}

	l.log.Info("загрузка актуальных типов schema.org", logger.String("source", l.source))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.source, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("не удалось скачать schema.org: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ошибка HTTP %d", resp.StatusCode)
	}

	var container struct {
		Graph []json.RawMessage `json:"@graph"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&container); err != nil {
		return nil, fmt.Errorf("ошибка парсинга корневого JSON: %w", err)
	}

	types := make(SchemaTypes)
	for _, raw := range container.Graph {
		var node struct {
			ID   string `json:"@id"`
			Type any    `json:"@type"`
		}
		if json.Unmarshal(raw, &node) != nil || !isClassNode(node.Type) {
			continue
		}
		if name := schemaTypeName(node.ID); name != "" {
			types[name] = true
		}
	}
	if len(types) == 0 {
		return nil, fmt.Errorf("в словаре schema.org нет классов")
	}

	l.writeCache(types)
	l.log.Info("загружены типы schema.org", logger.Int("count", len(types)))
	return types, nil
}

func (l *SchemaLoader) readCache() (SchemaTypes, bool) {
	if l.cacheFile == "" {
		return nil, false
	}
	info, err := os.Stat(l.cacheFile)
	if err != nil || time.Since(info.ModTime()) >= schemaCacheTTL {
		return nil, false
	}
	data, err := os.ReadFile(l.cacheFile)
	if err != nil {
		return nil, false
	}
	var types SchemaTypes
	if err := json.Unmarshal(data, &types); err != nil || len(types) == 0 {
		return nil, false
	}
	return types, true
}

func (l *SchemaLoader) writeCache(types SchemaTypes) {
	if l.cacheFile == "" {
		return
	}
	data, err := json.Marshal(types)
	if err != nil {
		return
	}
	if err := os.WriteFile(l.cacheFile, data, 0o644); err != nil {
		l.log.Warn("не удалось сохранить кэш schema.org", logger.Error(err))
	}
}

func isClassNode(typ any) bool {
	switch v := typ.(type) {
	case string:
		return v == schemaTypeClass
	case []any:
		for _, t := range v {
			if s, ok := t.(string); ok && s == schemaTypeClass {
				return true
			}
		}
	}
	return false
}

func schemaTypeName(id string) string {
	switch {
	case strings.HasPrefix(id, "https://schema.org/"):
		name := strings.TrimPrefix(id, "https://schema.org/")
		if idx := strings.Index(name, "#"); idx != -1 {
			name = name[idx+1:]
		}
		return name
	case strings.HasPrefix(id, "schema:"):
		return strings.TrimPrefix(id, "schema:")
	}
	return ""
}

// FallbackSchemaTypes - минимальный список типов, когда словарь недоступен
func FallbackSchemaTypes() SchemaTypes {
	return SchemaTypes{
		"Thing": true, "CreativeWork": true, "Article": true, "BlogPosting": true,
		"WebPage": true, "WebSite": true, "Organization": true, "Person": true,
		"Product": true, "Offer": true, "Event": true, "LocalBusiness": true,
		"BreadcrumbList": true, "FAQPage": true, "ListItem": true, "ImageObject": true,
	}
}
