package discovery

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// RobotsClient - загружает и кэширует robots.txt по хостам
type RobotsClient struct {
	client *http.Client
	mu     sync.Mutex
	cache  map[string]*robotstxt.RobotsData
}

// NewRobotsClient - создает клиент robots.txt
func NewRobotsClient(client *http.Client) *RobotsClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RobotsClient{
		client: client,
		cache:  make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed - разрешен ли адрес для агента. Недоступный robots.txt ничего не запрещает.
func (rc *RobotsClient) Allowed(ctx context.Context, userAgent, targetURL string) bool {
	parsed, err := url.Parse(targetURL)
	if err != nil {
		return false
	}

	host := parsed.Scheme + "://" + parsed.Host
	robots := rc.load(ctx, host)
	if robots == nil {
		return true
	}
	return robots.TestAgent(parsed.RequestURI(), userAgent)
}

func (rc *RobotsClient) load(ctx context.Context, host string) *robotstxt.RobotsData {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if robots, ok := rc.cache[host]; ok {
		return robots
	}

	var robots *robotstxt.RobotsData
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, host+"/robots.txt", nil)
	if err == nil {
		if resp, err := rc.client.Do(req); err == nil {
			robots, err = robotstxt.FromResponse(resp)
			resp.Body.Close()
			if err != nil {
				robots = nil
			}
		}
	}
	rc.cache[host] = robots
	return robots
}
