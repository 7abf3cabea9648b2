package stocks

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

const searchApiBaseUrl = "https://api.duckduckgo.com"

type searchResponse struct {
	AbstractText  string `json:"AbstractText"`
	RelatedTopics []struct {
		Text   string `json:"Text"`
		Topics []struct {
			Text string `json:"Text"`
		} `json:"Topics"`
	} `json:"RelatedTopics"`
}

type SearchClientOpts struct {
	BaseURL string
}

// SearchClient fetches web search snippets from DuckDuckGo's instant
// answer API. Used to give the analyst prompt recent news context.
type SearchClient struct {
	httpClient *resty.Client
	baseURL    string
}

func NewSearchClient(opts SearchClientOpts) *SearchClient {
	c := SearchClient{baseURL: searchApiBaseUrl}
	if opts.BaseURL != "" {
		c.baseURL = opts.BaseURL
	}
	c.httpClient = resty.New().
		SetBaseURL(c.baseURL).
		SetHeader("Accept", "application/json")
	return &c
}

// Headlines searches for the query and returns up to limit text snippets.
func (c *SearchClient) Headlines(ctx context.Context, query string, limit int) ([]string, error) {
	var result searchResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&result).
		SetQueryParams(map[string]string{
			"q":       query,
			"format":  "json",
			"no_html": "1",
		}).
		Get("/")
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("search request failed with status %d", resp.StatusCode())
	}

	var headlines []string
	if result.AbstractText != "" {
		headlines = append(headlines, result.AbstractText)
	}
	for _, topic := range result.RelatedTopics {
		if topic.Text != "" {
			headlines = append(headlines, topic.Text)
		}
		for _, sub := range topic.Topics {
			if sub.Text != "" {
				headlines = append(headlines, sub.Text)
			}
		}
	}
	if len(headlines) > limit {
		headlines = headlines[:limit]
	}
	return headlines, nil
}
