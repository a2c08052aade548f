package helpers

import (
	"context"
	"net/http"
	"net/url"
)

// CheckResourceExists - функция проверки целевого ресурса на доступность
func CheckResourceExists(ctx context.Context, client *http.Client, u string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

// SiteRoot - scheme://host страницы
func SiteRoot(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	return u.Scheme + "://" + u.Host, nil
}
