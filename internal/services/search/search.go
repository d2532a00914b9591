// Package search queries a web search backend.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go-mas/pkg/models"
)

const DefaultEndpoint = "https://api.duckduckgo.com/"

var ErrEmptyQuery = errors.New("search: empty query")

type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]models.SearchResult, error)
}

// DuckDuckGo uses the instant answer API. It returns few results for many queries,
// which is why the retriever searches in rounds.
type DuckDuckGo struct {
	client   *http.Client
	endpoint string
	timeout  time.Duration
}

func NewDuckDuckGo(endpoint string, timeout time.Duration) *DuckDuckGo {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &DuckDuckGo{client: &http.Client{}, endpoint: endpoint, timeout: timeout}
}

type topic struct {
	Text     string  `json:"Text"`
	FirstURL string  `json:"FirstURL"`
	Topics   []topic `json:"Topics"`
}

type instantAnswer struct {
	Heading       string  `json:"Heading"`
	AbstractText  string  `json:"AbstractText"`
	AbstractURL   string  `json:"AbstractURL"`
	RelatedTopics []topic `json:"RelatedTopics"`
}

func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_redirect", "1")
	params.Set("no_html", "1")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	req.Header.Set("User-Agent", "go-mas/1.0")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search: unexpected status %d", resp.StatusCode)
	}

	var ans instantAnswer
	if err := json.NewDecoder(resp.Body).Decode(&ans); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return collect(ans, maxResults), nil
}

func collect(ans instantAnswer, maxResults int) []models.SearchResult {
	res := make([]models.SearchResult, 0, maxResults)
	add := func(t topic) {
		if t.Text == "" || t.FirstURL == "" {
			return
		}
		res = append(res, models.SearchResult{Title: title(t.Text), URL: t.FirstURL, Snippet: t.Text})
	}
	if ans.AbstractText != "" && ans.AbstractURL != "" {
		res = append(res, models.SearchResult{Title: ans.Heading, URL: ans.AbstractURL, Snippet: ans.AbstractText})
	}
	for _, entry := range ans.RelatedTopics {
		add(entry)
		for _, sub := range entry.Topics {
			add(sub)
		}
		if maxResults > 0 && len(res) >= maxResults {
			break
		}
	}
	if maxResults > 0 && len(res) > maxResults {
		res = res[:maxResults]
	}
	return res
}

// title cuts the leading phrase of a related topic, which DuckDuckGo separates with " - ".
func title(text string) string {
	if i := strings.Index(text, " - "); i > 0 {
		return text[:i]
	}
	return text
}
