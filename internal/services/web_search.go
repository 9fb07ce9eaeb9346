package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/blagoySimandov/rowenrich/internal/models"
)

type WebSearcher interface {
	Search(ctx context.Context, query string, num int) (*models.SearchResults, error)
}

type SerperClient struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	tracker    IUsageTracker
}

type SerperClientOption = func(client *SerperClient) error

func NewSerperClient(apiKey string, opts ...SerperClientOption) (*SerperClient, error) {
	c := &SerperClient{
		apiKey:     apiKey,
		httpClient: defaultHTTPClient(30 * time.Second),
		baseURL:    "https://google.serper.dev/search",
		tracker:    noopTracker{},
	}
	if err := applyFuncOptions(c, opts...); err != nil {
		return nil, fmt.Errorf("failed to apply options: %w", err)
	}
	return c, nil
}

func WithSerperBaseURL(url string) SerperClientOption {
	return func(c *SerperClient) error {
		c.baseURL = url
		return nil
	}
}

func WithSerperUsageTracker(tracker IUsageTracker) SerperClientOption {
	return func(c *SerperClient) error {
		c.tracker = tracker
		return nil
	}
}

type serperResponse struct {
	Organic []struct {
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
		Position int    `json:"position"`
	} `json:"organic"`
}

func (c *SerperClient) Search(ctx context.Context, query string, num int) (*models.SearchResults, error) {
	payload := map[string]interface{}{"q": query}
	if num > 0 {
		payload["num"] = num
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()
	c.tracker.AddSearchQueries(ctx, 1)

	if resp.StatusCode != http.StatusOK {
		return nil, newStatusError("serper", resp)
	}

	var raw serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, newDecodeError("serper", err)
	}

	result := &models.SearchResults{Query: query}
	for _, o := range raw.Organic {
		result.Organic = append(result.Organic, models.OrganicResult{
			Title:    o.Title,
			Link:     o.Link,
			Snippet:  o.Snippet,
			Position: o.Position,
		})
	}
	return result, nil
}
