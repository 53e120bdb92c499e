// Package content is a client for the REST content API that serves reviews,
// articles and news.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned when the content API answers 404.
var ErrNotFound = errors.New("content: not found")

// StatusError is any other non-2xx answer.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("content api status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the content API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for baseURL. A nil httpClient gets one with
// timeout.
func NewClient(baseURL string, timeout time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) Reviews(ctx context.Context) ([]Review, error) {
	return getList[Review](ctx, c, "/api/reviews/get", nil)
}

func (c *Client) Review(ctx context.Context, id string) (*Review, error) {
	return getOne[Review](ctx, c, "/api/reviews/get/"+url.PathEscape(id))
}

func (c *Client) Articles(ctx context.Context) ([]Article, error) {
	return getList[Article](ctx, c, "/api/article/get", nil)
}

func (c *Client) Article(ctx context.Context, id string) (*Article, error) {
	return getOne[Article](ctx, c, "/api/article/get/"+url.PathEscape(id))
}

func (c *Client) News(ctx context.Context) ([]News, error) {
	return getList[News](ctx, c, "/api/news/get", nil)
}

func (c *Client) NewsItem(ctx context.Context, id string) (*News, error) {
	return getOne[News](ctx, c, "/api/news/get/"+url.PathEscape(id))
}

// Search runs a free-text search.
func (c *Client) Search(ctx context.Context, q string) ([]SearchResult, error) {
	return getList[SearchResult](ctx, c, "/search", url.Values{"q": {q}})
}

// AdvancedSearch passes filters through as query parameters. Empty values
// are dropped.
func (c *Client) AdvancedSearch(ctx context.Context, filters map[string]string) ([]SearchResult, error) {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	params := url.Values{}
	for _, k := range keys {
		if v := strings.TrimSpace(filters[k]); v != "" {
			params.Set(k, v)
		}
	}
	return getList[SearchResult](ctx, c, "/api/search/advanced", params)
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("content api %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read content api %s: %w", path, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 300)}
	}
	return body, nil
}

// getList accepts either a bare JSON array or an object with a "results"
// array.
func getList[T any, PT interface {
	*T
	normalizer
}](ctx context.Context, c *Client, path string, params url.Values) ([]T, error) {
	body, err := c.get(ctx, path, params)
	if err != nil {
		return nil, err
	}

	var items []T
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	} else {
		var wrapped struct {
			Results []T `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		items = wrapped.Results
	}

	if items == nil {
		items = []T{}
	}
	for i := range items {
		PT(&items[i]).normalizeID()
	}
	return items, nil
}

func getOne[T any, PT interface {
	*T
	normalizer
}](ctx context.Context, c *Client, path string) (*T, error) {
	body, err := c.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	var item T
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	PT(&item).normalizeID()
	return &item, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
